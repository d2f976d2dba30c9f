// Package drift implements the Drift Detection Service (spec §4.3):
// fan out a congruence check across the fleet, classify severity from
// each node's drift history, compute blast radius, and assemble a
// healing plan.
package drift

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/history"
	"github.com/chimera-systems/chimera/internal/ports"
)

// Service is the Drift Detection Service. It is stateless beyond the
// injected history store and executor port; construct one per process.
type Service struct {
	executor ports.RemoteExecutorPort
	history  *history.Store
	now      func() time.Time
}

// New constructs a Service. now defaults to time.Now when nil.
func New(executor ports.RemoteExecutorPort, hist *history.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{executor: executor, history: hist, now: now}
}

// Check fans out RemoteExecutorPort.CurrentFingerprint across targets
// concurrently, classifies every non-congruent result, and returns the
// full set of congruence reports alongside the resulting healing plan.
func (s *Service) Check(ctx context.Context, targets []domain.Node, expected domain.Fingerprint) ([]domain.CongruenceReport, domain.HealingPlan, error) {
	reports := make([]domain.CongruenceReport, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	for i, node := range targets {
		i, node := i, node
		g.Go(func() error {
			actual, ok, err := s.executor.CurrentFingerprint(gctx, node)
			if err != nil || !ok {
				reports[i] = domain.Unreachable(node, expected)
				return nil
			}
			reports[i] = domain.FromActual(node, expected, actual, true)
			return nil
		})
	}
	// Fan-out errors are per-node and already folded into Unreachable
	// reports above; g.Wait only surfaces unexpected panics/context
	// cancellation, never a single node's failure.
	if err := g.Wait(); err != nil {
		return nil, domain.HealingPlan{}, err
	}

	driftReports := make([]domain.DriftReport, 0, len(reports))
	now := s.now()
	for _, report := range reports {
		var fp domain.Fingerprint
		if report.HasActual {
			fp = report.Actual
		}
		if report.IsCongruent {
			s.history.RecordCongruence(report.Node.ID(), true, now, "", fp)
			continue
		}
		if !report.HasActual {
			// Unreachable: counted toward blast radius above via
			// driftedCount, but not a heal target (spec §4.3: "Fetch
			// failures ... are not themselves heal targets").
			continue
		}

		// Classify against the count this observation produces (current
		// consecutive streak + 1), then record it with that severity in
		// a single write.
		nextCount := s.history.ConsecutiveDriftCount(report.Node.ID()) + 1
		severity := s.classifySeverity(report.Node.ID(), nextCount)
		s.history.RecordCongruence(report.Node.ID(), false, now, severity, fp)

		driftReports = append(driftReports, domain.DriftReport{
			Node:            report.Node,
			Expected:        expected,
			Actual:          report.Actual,
			Severity:        severity,
			BlastRadiusPct:  blastRadiusPct(len(targets), s.driftedCount(reports)),
			SuggestedAction: suggestAction(severity),
			DetectedAt:      now,
		})
	}

	plan := domain.HealingPlan{
		DriftReports:     driftReports,
		GlobalAction:     dominantAction(driftReports),
		RequiresApproval: requiresApproval(driftReports),
	}
	return reports, plan, nil
}

func (s *Service) driftedCount(reports []domain.CongruenceReport) int {
	n := 0
	for _, r := range reports {
		if !r.IsCongruent {
			n++
		}
	}
	return n
}

// classifySeverity implements spec §4.3 step 2 exactly:
//
//	CRITICAL if production AND consecutive-drift-count >= 3
//	HIGH     if production OR consecutive-drift-count >= 3
//	MEDIUM   if consecutive-drift-count >= 2
//	LOW      otherwise
func (s *Service) classifySeverity(nodeID string, consecutiveCount int) domain.DriftSeverity {
	production := s.history.IsProduction(nodeID)
	switch {
	case production && consecutiveCount >= 3:
		return domain.SeverityCritical
	case production || consecutiveCount >= 3:
		return domain.SeverityHigh
	case consecutiveCount >= 2:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// blastRadiusPct computes 100 * drifted/total, rounded half-up to one
// decimal place, per spec §4.3 step 3.
func blastRadiusPct(total, drifted int) float64 {
	if total == 0 {
		return 0
	}
	raw := 100 * float64(drifted) / float64(total)
	return math.Floor(raw*10+0.5) / 10
}

func suggestAction(severity domain.DriftSeverity) domain.HealingAction {
	switch severity {
	case domain.SeverityLow:
		return domain.ActionRestartService
	case domain.SeverityMedium, domain.SeverityHigh:
		return domain.ActionRebuildConfig
	case domain.SeverityCritical:
		return domain.ActionRollbackGeneration
	default:
		return domain.ActionManualIntervention
	}
}

// dominantAction picks the plan's global suggested action as the most
// severe individual suggestion, since a single fleet-wide remediation
// choice must cover the worst node.
func dominantAction(reports []domain.DriftReport) domain.HealingAction {
	if len(reports) == 0 {
		return ""
	}
	worst := reports[0]
	for _, r := range reports[1:] {
		if r.Severity.AtLeast(worst.Severity) {
			worst = r
		}
	}
	return worst.SuggestedAction
}

// requiresApproval is true iff any report is HIGH or CRITICAL, per spec
// §4.3 step 5.
func requiresApproval(reports []domain.DriftReport) bool {
	for _, r := range reports {
		if r.Severity.AtLeast(domain.SeverityHigh) {
			return true
		}
	}
	return false
}
