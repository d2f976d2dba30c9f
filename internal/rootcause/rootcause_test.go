package rootcause

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/history"
)

func TestAnalyzeAlwaysIncludesUnknown(t *testing.T) {
	hist := history.NewStore()
	node, _ := domain.ParseNode("root@n1:22")
	focal := domain.DriftReport{Node: node, Actual: "fp-x", DetectedAt: time.Unix(1_700_000_000, 0)}

	corr := New(hist, DefaultConfig())
	causes := corr.Analyze(focal, []domain.Node{node})

	require.NotEmpty(t, causes)
	last := causes[len(causes)-1]
	assert.Equal(t, CauseUnknown, last.Kind)
}

func TestAnalyzeRanksRecentDeploymentHigherWhenFresh(t *testing.T) {
	hist := history.NewStore()
	node, _ := domain.ParseNode("root@n1:22")
	now := time.Unix(1_700_000_000, 0)
	hist.RecordDeployment(node.ID(), now.Add(-5*time.Minute))

	focal := domain.DriftReport{Node: node, Actual: "fp-x", DetectedAt: now}
	corr := New(hist, DefaultConfig())
	causes := corr.Analyze(focal, []domain.Node{node})

	require.NotEmpty(t, causes)
	assert.Equal(t, CauseRecentDeployment, causes[0].Kind)
	assert.Greater(t, causes[0].Confidence, 0.9)
}

func TestAnalyzeOldDeploymentOutsideWindowIsExcluded(t *testing.T) {
	hist := history.NewStore()
	node, _ := domain.ParseNode("root@n1:22")
	now := time.Unix(1_700_000_000, 0)
	hist.RecordDeployment(node.ID(), now.Add(-2*time.Hour))

	focal := domain.DriftReport{Node: node, Actual: "fp-x", DetectedAt: now}
	corr := New(hist, DefaultConfig())
	causes := corr.Analyze(focal, []domain.Node{node})

	for _, c := range causes {
		assert.NotEqual(t, CauseRecentDeployment, c.Kind)
	}
}

func TestAnalyzeDetectsFleetWideDrift(t *testing.T) {
	hist := history.NewStore()
	n1, _ := domain.ParseNode("root@n1:22")
	n2, _ := domain.ParseNode("root@n2:22")
	n3, _ := domain.ParseNode("root@n3:22")
	now := time.Unix(1_700_000_000, 0)

	hist.RecordCongruence(n2.ID(), false, now.Add(-1*time.Minute), domain.SeverityHigh, "fp-shared")
	hist.RecordCongruence(n3.ID(), false, now.Add(-2*time.Minute), domain.SeverityHigh, "fp-shared")

	focal := domain.DriftReport{Node: n1, Actual: "fp-shared", DetectedAt: now}
	corr := New(hist, DefaultConfig())
	causes := corr.Analyze(focal, []domain.Node{n1, n2, n3})

	found := false
	for _, c := range causes {
		if c.Kind == CauseFleetWide {
			found = true
			assert.Equal(t, 1.0, c.Confidence)
		}
	}
	assert.True(t, found)
}

func TestAnalyzeDetectsRepeatedDrift(t *testing.T) {
	hist := history.NewStore()
	node, _ := domain.ParseNode("root@n1:22")
	now := time.Unix(1_700_000_000, 0)
	hist.RecordCongruence(node.ID(), false, now.Add(-1*time.Hour), domain.SeverityMedium, "fp-1")
	hist.RecordCongruence(node.ID(), false, now.Add(-2*time.Hour), domain.SeverityMedium, "fp-2")

	focal := domain.DriftReport{Node: node, Actual: "fp-3", DetectedAt: now}
	corr := New(hist, DefaultConfig())
	causes := corr.Analyze(focal, []domain.Node{node})

	found := false
	for _, c := range causes {
		if c.Kind == CauseRepeatedDrift {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAnalyzeSortedByDescendingConfidence(t *testing.T) {
	hist := history.NewStore()
	node, _ := domain.ParseNode("root@n1:22")
	now := time.Unix(1_700_000_000, 0)
	hist.RecordDeployment(node.ID(), now.Add(-30*time.Minute))
	hist.RecordCongruence(node.ID(), false, now.Add(-1*time.Hour), domain.SeverityMedium, "fp-1")
	hist.RecordCongruence(node.ID(), false, now.Add(-2*time.Hour), domain.SeverityMedium, "fp-2")

	focal := domain.DriftReport{Node: node, Actual: "fp-3", DetectedAt: now}
	corr := New(hist, DefaultConfig())
	causes := corr.Analyze(focal, []domain.Node{node})

	for i := 1; i < len(causes); i++ {
		assert.LessOrEqual(t, causes[i].Confidence, causes[i-1].Confidence)
	}
}
