// Package rootcause implements the Root-Cause Correlator (spec §4.6):
// given a focal drift report and the recent event window, produce a
// ranked list of candidate causes.
package rootcause

import (
	"fmt"
	"sort"
	"time"

	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/history"
)

// CauseKind tags a candidate root cause.
type CauseKind string

const (
	CauseRecentDeployment CauseKind = "RECENT_DEPLOYMENT"
	CauseFleetWide        CauseKind = "FLEET_WIDE"
	CauseRepeatedDrift    CauseKind = "REPEATED_DRIFT"
	CauseUnknown          CauseKind = "UNKNOWN"
)

// kindOrder breaks confidence ties, in the order kinds are listed in
// spec §4.6.
var kindOrder = map[CauseKind]int{
	CauseRecentDeployment: 0,
	CauseFleetWide:        1,
	CauseRepeatedDrift:    2,
	CauseUnknown:          3,
}

// CandidateCause is one ranked hypothesis for a drift report's origin.
type CandidateCause struct {
	Kind        CauseKind
	Evidence    string
	Confidence  float64 // in [0, 1]
	CausalChain []string
}

// Config holds the two windows spec §4.6 leaves as implementer-exposed
// configuration (Open Question i).
type Config struct {
	DeploymentWindow time.Duration
	SpatialWindow    time.Duration
}

// DefaultConfig returns the spec's stated defaults: 3600s deployment
// window, 600s spatial window.
func DefaultConfig() Config {
	return Config{DeploymentWindow: 3600 * time.Second, SpatialWindow: 600 * time.Second}
}

// Correlator produces candidate causes from a shared history store.
type Correlator struct {
	history *history.Store
	cfg     Config
}

// New constructs a Correlator.
func New(hist *history.Store, cfg Config) *Correlator {
	return &Correlator{history: hist, cfg: cfg}
}

// Analyze ranks candidate causes for focal by descending confidence,
// breaking ties by kind order. UNKNOWN is always included as a floor.
func (c *Correlator) Analyze(focal domain.DriftReport, fleetNodes []domain.Node) []CandidateCause {
	var causes []CandidateCause

	if cause, ok := c.evaluateRecentDeployment(focal); ok {
		causes = append(causes, cause)
	}
	if cause, ok := c.evaluateFleetWide(focal, fleetNodes); ok {
		causes = append(causes, cause)
	}
	if cause, ok := c.evaluateRepeatedDrift(focal); ok {
		causes = append(causes, cause)
	}
	causes = append(causes, CandidateCause{
		Kind:        CauseUnknown,
		Evidence:    "no stronger correlated signal found",
		Confidence:  0.05,
		CausalChain: []string{"drift observed with no corroborating temporal or spatial signal"},
	})

	sort.SliceStable(causes, func(i, j int) bool {
		if causes[i].Confidence != causes[j].Confidence {
			return causes[i].Confidence > causes[j].Confidence
		}
		return kindOrder[causes[i].Kind] < kindOrder[causes[j].Kind]
	})
	return causes
}

func (c *Correlator) evaluateRecentDeployment(focal domain.DriftReport) (CandidateCause, bool) {
	nodeID := focal.Node.ID()
	since := focal.DetectedAt.Add(-c.cfg.DeploymentWindow)
	deployments := c.history.DeploymentsSince(nodeID, since)
	if len(deployments) == 0 {
		return CandidateCause{}, false
	}

	// Most recent deployment before or at the drift's detection time.
	latest := deployments[0]
	for _, d := range deployments {
		if d.At.After(latest.At) {
			latest = d
		}
	}
	age := focal.DetectedAt.Sub(latest.At)
	if age < 0 {
		age = 0
	}
	confidence := clamp01(1 - age.Seconds()/c.cfg.DeploymentWindow.Seconds())

	return CandidateCause{
		Kind:       CauseRecentDeployment,
		Evidence:   fmt.Sprintf("deployment completed %s before drift was detected", age.Round(time.Second)),
		Confidence: confidence,
		CausalChain: []string{
			"a deployment completed on this node shortly before drift was observed",
			"the deployed configuration likely diverged from the expected fingerprint",
		},
	}, true
}

func (c *Correlator) evaluateFleetWide(focal domain.DriftReport, fleetNodes []domain.Node) (CandidateCause, bool) {
	since := focal.DetectedAt.Add(-c.cfg.SpatialWindow)
	peers := domain.BlastRadiusPeers(focal.Node, fleetNodes)
	count := 0
	for _, peer := range peers {
		events := c.history.DriftEventsSince(peer.ID(), since)
		for _, e := range events {
			if e.Fingerprint == focal.Actual {
				count++
				break
			}
		}
	}
	if count == 0 {
		return CandidateCause{}, false
	}
	confidence := clamp01(float64(count) / float64(max(1, len(peers))))
	return CandidateCause{
		Kind:       CauseFleetWide,
		Evidence:   fmt.Sprintf("%d node(s) in the same blast-radius group (%q) show the same drifted fingerprint within the spatial window", count, domain.HostPrefix(focal.Node.Host)),
		Confidence: confidence,
		CausalChain: []string{
			"multiple nodes in the same hostname group drifted to the same fingerprint in a short window",
			"an upstream configuration change likely affected this group, not this node alone",
		},
	}, true
}

func (c *Correlator) evaluateRepeatedDrift(focal domain.DriftReport) (CandidateCause, bool) {
	since := focal.DetectedAt.Add(-24 * time.Hour)
	events := c.history.DriftEventsSince(focal.Node.ID(), since)
	if len(events) < 2 {
		return CandidateCause{}, false
	}
	confidence := clamp01(float64(len(events)) / 10.0)
	return CandidateCause{
		Kind:       CauseRepeatedDrift,
		Evidence:   fmt.Sprintf("%d prior drift reports for this node in the last 24h", len(events)),
		Confidence: confidence,
		CausalChain: []string{
			"this node has drifted repeatedly within the last day",
			"a local, node-specific issue is more likely than a one-off environmental event",
		},
	}, true
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
