package rollback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/eventbus"
)

type fakeExecutor struct {
	failNodeID string
}

func (f fakeExecutor) SyncClosure(ctx context.Context, node domain.Node, fp domain.Fingerprint) error {
	return nil
}
func (f fakeExecutor) Exec(ctx context.Context, node domain.Node, cmd string) error { return nil }
func (f fakeExecutor) CurrentFingerprint(ctx context.Context, node domain.Node) (domain.Fingerprint, bool, error) {
	return "", false, nil
}
func (f fakeExecutor) Rollback(ctx context.Context, node domain.Node, generation *int) error {
	if node.ID() == f.failNodeID {
		return assertErr
	}
	return nil
}

type assertError struct{}

func (assertError) Error() string { return "rollback failed" }

var assertErr = assertError{}

// TestRollbackReturnsResultForEveryTarget is universal property 9 in
// spec §8, exercised via scenario-style partial failure.
func TestRollbackReturnsResultForEveryTarget(t *testing.T) {
	n1, _ := domain.ParseNode("root@n1:22")
	n2, _ := domain.ParseNode("root@n2:22")
	bus := eventbus.New(nil)
	uc := New(fakeExecutor{failNodeID: n2.ID()}, bus, func() time.Time { return time.Unix(0, 0) })

	results, err := uc.Execute(context.Background(), Input{
		AggregateID: "dep-1", Targets: []domain.Node{n1, n2},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	byNode := map[string]NodeResult{}
	for _, r := range results {
		byNode[r.Node.ID()] = r
	}
	assert.Equal(t, StatusOK, byNode[n1.ID()].Status)
	assert.Equal(t, StatusFail, byNode[n2.ID()].Status)

	published := bus.Published()
	require.Len(t, published, 2)
	for _, e := range published {
		assert.Equal(t, domain.EventTypeDeploymentRolledBack, e.EventType())
	}
}

func TestRollbackAllSucceed(t *testing.T) {
	n1, _ := domain.ParseNode("root@n1:22")
	bus := eventbus.New(nil)
	uc := New(fakeExecutor{}, bus, nil)

	results, err := uc.Execute(context.Background(), Input{AggregateID: "dep-1", Targets: []domain.Node{n1}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StatusOK, results[0].Status)
}
