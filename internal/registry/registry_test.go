package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chimera-systems/chimera/internal/domain"
)

func TestHeartbeatMarksHealthy(t *testing.T) {
	node, _ := domain.ParseNode("root@n1:22")
	now := time.Unix(1_700_000_000, 0)
	reg := New(30*time.Second, func() time.Time { return now })

	reg.Heartbeat(node)
	entry, found := reg.Query(node.ID())
	require.True(t, found)
	assert.Equal(t, HealthHealthy, entry.Health)
}

func TestNodeBecomesUnreachableAfterThreeMissedHeartbeats(t *testing.T) {
	node, _ := domain.ParseNode("root@n1:22")
	now := time.Unix(1_700_000_000, 0)
	reg := New(30*time.Second, func() time.Time { return now })

	reg.Heartbeat(node)
	now = now.Add(91 * time.Second)

	entry, found := reg.Query(node.ID())
	require.True(t, found)
	assert.Equal(t, HealthUnreachable, entry.Health)
}

func TestNodeStaysHealthyWithinThreeIntervals(t *testing.T) {
	node, _ := domain.ParseNode("root@n1:22")
	now := time.Unix(1_700_000_000, 0)
	reg := New(30*time.Second, func() time.Time { return now })

	reg.Heartbeat(node)
	now = now.Add(60 * time.Second)

	entry, found := reg.Query(node.ID())
	require.True(t, found)
	assert.Equal(t, HealthHealthy, entry.Health)
}

func TestRecordDriftDowngradesHealthyToDegraded(t *testing.T) {
	node, _ := domain.ParseNode("root@n1:22")
	now := time.Unix(1_700_000_000, 0)
	reg := New(30*time.Second, func() time.Time { return now })

	reg.Heartbeat(node)
	reg.RecordDrift(node.ID(), domain.DriftReport{Node: node, Severity: domain.SeverityMedium})

	entry, found := reg.Query(node.ID())
	require.True(t, found)
	assert.Equal(t, HealthDegraded, entry.Health)
	require.NotNil(t, entry.LastDriftReport)
	assert.Equal(t, domain.SeverityMedium, entry.LastDriftReport.Severity)
}

func TestQueryUnknownNodeReturnsNotFound(t *testing.T) {
	reg := New(30*time.Second, nil)
	_, found := reg.Query("nope")
	assert.False(t, found)
}

func TestAllRecomputesHealthForEveryEntry(t *testing.T) {
	n1, _ := domain.ParseNode("root@n1:22")
	n2, _ := domain.ParseNode("root@n2:22")
	now := time.Unix(1_700_000_000, 0)
	reg := New(10*time.Second, func() time.Time { return now })

	reg.Heartbeat(n1)
	reg.Heartbeat(n2)
	now = now.Add(1 * time.Hour)

	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, HealthUnreachable, all[n1.ID()].Health)
	assert.Equal(t, HealthUnreachable, all[n2.ID()].Health)
}
