package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chimeraerrors "github.com/chimera-systems/chimera/internal/errors"
)

func TestDeploymentHappyPathEventSequence(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	d := NewDeployment(SessionId("sess-1"), ConfigPath("/etc/chimera/prod.nix"), now)
	require.Equal(t, StatusPending, d.Status)

	d, err := d.StartBuild(now)
	require.NoError(t, err)
	require.Equal(t, StatusBuilding, d.Status)

	d, err = d.CompleteBuild(now.Add(time.Second), Fingerprint("fp-AAA"))
	require.NoError(t, err)
	require.Equal(t, StatusBuilt, d.Status)

	d, err = d.StartDeploying()
	require.NoError(t, err)
	require.Equal(t, StatusDeploying, d.Status)

	d, err = d.Complete(now.Add(2 * time.Second))
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, d.Status)

	require.Len(t, d.Events, 3)
	assert.Equal(t, EventTypeDeploymentStarted, d.Events[0].EventType())
	assert.Equal(t, EventTypeBuildCompleted, d.Events[1].EventType())
	assert.Equal(t, EventTypeDeploymentCompleted, d.Events[2].EventType())
}

// TestDeploymentEventAppendProperty is universal property 1 in spec §8:
// applying a sequence of valid transitions appends exactly the events
// each transition emits, in order, to the prior event list.
func TestDeploymentEventAppendProperty(t *testing.T) {
	now := time.Now()
	d := NewDeployment("s", "/c", now)
	before := append([]DomainEvent(nil), d.Events...)

	d1, err := d.StartBuild(now)
	require.NoError(t, err)
	assert.Equal(t, append(before, d1.Events[len(before):]...), d1.Events)

	d2, err := d1.CompleteBuild(now, "fp")
	require.NoError(t, err)
	assert.Equal(t, d1.Events, d2.Events[:len(d1.Events)])
	assert.Len(t, d2.Events, len(d1.Events)+1)

	// The original instance is untouched (value semantics).
	assert.Len(t, d.Events, 0)
	assert.Len(t, d1.Events, 1)
}

// TestDeploymentTerminalStatesRejectFurtherTransitions is universal
// property 2 in spec §8.
func TestDeploymentTerminalStatesRejectFurtherTransitions(t *testing.T) {
	now := time.Now()

	completed, err := buildTo(StatusCompleted, now)
	require.NoError(t, err)
	_, err = completed.StartBuild(now)
	assertInvalidTransition(t, err)
	_, err = completed.Fail(now, "boom")
	assertInvalidTransition(t, err)

	failed, err := buildTo(StatusFailed, now)
	require.NoError(t, err)
	rolledBack, err := failed.RollBack(now)
	require.NoError(t, err)
	assert.Equal(t, StatusRolledBack, rolledBack.Status)
	_, err = rolledBack.StartBuild(now)
	assertInvalidTransition(t, err)
	_, err = rolledBack.RollBack(now)
	assertInvalidTransition(t, err)
}

func assertInvalidTransition(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, chimeraerrors.IsKind(err, chimeraerrors.KindInvalidTransition))
}

func buildTo(target DeploymentStatus, now time.Time) (Deployment, error) {
	d := NewDeployment("s", "/c", now)
	var err error
	d, err = d.StartBuild(now)
	if err != nil || target == StatusBuilding {
		return d, err
	}
	if target == StatusFailed {
		return d.Fail(now, "build failed")
	}
	d, err = d.CompleteBuild(now, "fp")
	if err != nil || target == StatusBuilt {
		return d, err
	}
	d, err = d.StartDeploying()
	if err != nil || target == StatusDeploying {
		return d, err
	}
	if target == StatusCompleted {
		return d.Complete(now)
	}
	return d, nil
}

func TestDeploymentFailFromEachNonTerminalStatus(t *testing.T) {
	now := time.Now()
	for _, status := range []DeploymentStatus{StatusBuilding, StatusBuilt, StatusDeploying} {
		d, err := buildTo(status, now)
		require.NoError(t, err)
		failed, err := d.Fail(now, "reason")
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, failed.Status)
		assert.Equal(t, "reason", failed.ErrorMessage)
	}
}

func TestDrainEvents(t *testing.T) {
	now := time.Now()
	d, err := buildTo(StatusBuilt, now)
	require.NoError(t, err)
	require.NotEmpty(t, d.Events)

	drained, events := d.DrainEvents()
	assert.Empty(t, drained.Events)
	assert.Len(t, events, 2)
}
