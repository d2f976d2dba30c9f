package sqliteregistry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/registry"
)

func TestSaveAndLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "registry.db"))
	require.NoError(t, err)
	defer store.Close()

	node, err := domain.ParseNode("root@n1:22")
	require.NoError(t, err)
	drift := domain.DriftReport{Node: node, Expected: "fp-A", Actual: "fp-B", Severity: domain.SeverityHigh}

	snapshot := map[string]registry.Entry{
		node.ID(): {
			Node:            node,
			LastHeartbeat:   time.Unix(1_700_000_000, 0),
			LastDriftReport: &drift,
			Health:          registry.HealthDegraded,
		},
	}

	require.NoError(t, store.Save(snapshot))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Contains(t, loaded, node.ID())
	got := loaded[node.ID()]
	assert.Equal(t, node, got.Node)
	assert.Equal(t, registry.HealthDegraded, got.Health)
	require.NotNil(t, got.LastDriftReport)
	assert.Equal(t, domain.SeverityHigh, got.LastDriftReport.Severity)
}

func TestSaveOverwritesExistingEntry(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "registry.db"))
	require.NoError(t, err)
	defer store.Close()

	node, err := domain.ParseNode("root@n1:22")
	require.NoError(t, err)

	require.NoError(t, store.Save(map[string]registry.Entry{
		node.ID(): {Node: node, LastHeartbeat: time.Unix(1, 0), Health: registry.HealthHealthy},
	}))
	require.NoError(t, store.Save(map[string]registry.Entry{
		node.ID(): {Node: node, LastHeartbeat: time.Unix(2, 0), Health: registry.HealthUnreachable},
	}))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, registry.HealthUnreachable, loaded[node.ID()].Health)
}
