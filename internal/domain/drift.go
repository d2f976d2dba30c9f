package domain

import "time"

// DriftSeverity ranks how urgently a drifted node needs attention.
type DriftSeverity string

const (
	SeverityLow      DriftSeverity = "LOW"
	SeverityMedium   DriftSeverity = "MEDIUM"
	SeverityHigh     DriftSeverity = "HIGH"
	SeverityCritical DriftSeverity = "CRITICAL"
)

// severityRank orders severities for comparisons ("any HIGH or CRITICAL").
var severityRank = map[DriftSeverity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// AtLeast reports whether s is at least as severe as other.
func (s DriftSeverity) AtLeast(other DriftSeverity) bool {
	return severityRank[s] >= severityRank[other]
}

// HealingAction is the typed remediation action set. Remediation is
// deliberately limited to this set (spec §1 Non-goals).
type HealingAction string

const (
	ActionRestartService     HealingAction = "RESTART_SERVICE"
	ActionRebuildConfig      HealingAction = "REBUILD_CONFIG"
	ActionRollbackGeneration HealingAction = "ROLLBACK_GENERATION"
	ActionManualIntervention HealingAction = "MANUAL_INTERVENTION"
)

// DriftReport describes one node's classified drift.
type DriftReport struct {
	Node            Node
	Expected        Fingerprint
	Actual          Fingerprint
	Severity        DriftSeverity
	BlastRadiusPct  float64
	SuggestedAction HealingAction
	DetectedAt      time.Time
}

// HealingPlan aggregates all drift reports for a check into a single
// approval decision and a fleet-wide suggested action.
type HealingPlan struct {
	DriftReports     []DriftReport
	GlobalAction     HealingAction
	RequiresApproval bool
}

// HasDrift reports whether any node in the plan is drifted.
func (p HealingPlan) HasDrift() bool {
	return len(p.DriftReports) > 0
}

// DriftedNodes returns the nodes carried by the plan's drift reports.
func (p HealingPlan) DriftedNodes() []Node {
	nodes := make([]Node, len(p.DriftReports))
	for i, r := range p.DriftReports {
		nodes[i] = r.Node
	}
	return nodes
}
