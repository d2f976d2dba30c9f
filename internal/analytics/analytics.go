// Package analytics implements Predictive Analytics (spec §4.5): a pure
// scoring function over a node's drift history and MTTR samples that
// yields a bounded risk score and a coarse risk band.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/chimera-systems/chimera/internal/history"
)

// RiskLevel bands the continuous risk score for display.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// RiskScore is the result of assessing one node.
type RiskScore struct {
	NodeID         string
	DriftFrequency float64
	SeverityTrend  float64
	MTTRMinutes    float64 // math.Inf(1) when there are no samples
	Score          float64
	Level          RiskLevel
}

func weightOf(s string) float64 {
	switch s {
	case "LOW":
		return 1
	case "MEDIUM":
		return 2
	case "HIGH":
		return 3
	case "CRITICAL":
		return 4
	default:
		return 0
	}
}

// Service assesses per-node and fleet-wide risk from a shared history
// store. It performs no mutation; every method is a pure read.
type Service struct {
	history *history.Store
	now     func() time.Time
}

// New constructs a Service reading from hist. now defaults to time.Now.
func New(hist *history.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{history: hist, now: now}
}

// AssessRisk computes nodeID's RiskScore per spec §4.5. Empty history
// yields Score 0 and RiskLow, per spec §8 property 7: with no drift
// events at all there is nothing to score, so this short-circuits
// before touching MTTR, matching
// PredictiveAnalyticsService.assess_risk's early return in the original
// rather than relying on norm's saturation (which only masks the
// missing-MTTR sentinel when another term is already nonzero, not when
// the whole history is empty).
func (s *Service) AssessRisk(nodeID string) RiskScore {
	now := s.now()
	events := s.history.DriftEventsSince(nodeID, now.AddDate(0, 0, -7))
	last10 := s.history.DriftEventsSince(nodeID, time.Time{})
	if len(events) == 0 && len(last10) == 0 {
		return RiskScore{
			NodeID:      nodeID,
			MTTRMinutes: math.Inf(1),
			Score:       0,
			Level:       RiskLow,
		}
	}

	driftFrequency := float64(len(events)) / 7.0

	if len(last10) > 10 {
		last10 = last10[len(last10)-10:]
	}
	severityTrend := monotoneTrend(last10)

	mttr := medianMTTRMinutes(s.history.ResolutionsSince(nodeID, now.AddDate(0, 0, -30)))

	score := clamp01(
		0.4*norm(driftFrequency, 5.0) +
			0.3*math.Max(severityTrend, 0) +
			0.3*norm(mttr, 60.0),
	)

	return RiskScore{
		NodeID:         nodeID,
		DriftFrequency: driftFrequency,
		SeverityTrend:  severityTrend,
		MTTRMinutes:    mttr,
		Score:          score,
		Level:          band(score),
	}
}

// AssessFleet returns a RiskScore for every nodeID given.
func (s *Service) AssessFleet(nodeIDs []string) []RiskScore {
	out := make([]RiskScore, len(nodeIDs))
	for i, id := range nodeIDs {
		out[i] = s.AssessRisk(id)
	}
	return out
}

// norm implements spec §4.5's norm(x, c) = min(x/c, 1). math.Inf(1)/c is
// +Inf, and min(+Inf, 1) is 1, so a missing-MTTR sentinel naturally
// saturates this term rather than requiring special-casing.
func norm(x, c float64) float64 {
	return math.Min(x/c, 1)
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

func band(score float64) RiskLevel {
	switch {
	case score < 0.33:
		return RiskLow
	case score < 0.66:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// monotoneTrend computes a Spearman-like rank correlation between event
// order and severity weight over events, normalized to [-1, 1]. Fewer
// than two events, or a history with no severity variance, yields 0.
func monotoneTrend(events []history.DriftEvent) float64 {
	n := len(events)
	if n < 2 {
		return 0
	}

	weights := make([]float64, n)
	for i, e := range events {
		weights[i] = weightOf(string(e.Severity))
	}

	ranks := rankOf(weights)

	var sumOrder, sumRank, sumOrder2, sumRank2, sumOrderRank float64
	for i := 0; i < n; i++ {
		o := float64(i)
		r := ranks[i]
		sumOrder += o
		sumRank += r
		sumOrder2 += o * o
		sumRank2 += r * r
		sumOrderRank += o * r
	}
	num := float64(n)*sumOrderRank - sumOrder*sumRank
	den := math.Sqrt((float64(n)*sumOrder2 - sumOrder*sumOrder) * (float64(n)*sumRank2 - sumRank*sumRank))
	if den == 0 {
		return 0
	}
	return clampSigned(num / den)
}

func clampSigned(x float64) float64 {
	if x < -1 {
		return -1
	}
	if x > 1 {
		return 1
	}
	return x
}

// rankOf returns the average rank (1-based, ties averaged) of each
// element of vals.
func rankOf(vals []float64) []float64 {
	type indexed struct {
		v float64
		i int
	}
	idx := make([]indexed, len(vals))
	for i, v := range vals {
		idx[i] = indexed{v, i}
	}
	sort.SliceStable(idx, func(a, b int) bool { return idx[a].v < idx[b].v })

	ranks := make([]float64, len(vals))
	i := 0
	for i < len(idx) {
		j := i
		for j < len(idx) && idx[j].v == idx[i].v {
			j++
		}
		avgRank := float64(i+j+1) / 2.0 // 1-based rank average over the tie block [i, j)
		for k := i; k < j; k++ {
			ranks[idx[k].i] = avgRank
		}
		i = j
	}
	return ranks
}

func medianMTTRMinutes(samples []history.ResolutionSample) float64 {
	if len(samples) == 0 {
		return math.Inf(1)
	}
	minutes := make([]float64, len(samples))
	for i, s := range samples {
		minutes[i] = s.Duration.Minutes()
	}
	sort.Float64s(minutes)
	mid := len(minutes) / 2
	if len(minutes)%2 == 1 {
		return minutes[mid]
	}
	return (minutes[mid-1] + minutes[mid]) / 2
}
