package playbookengine

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
	execCalls []string
	failCmd   string
}

func (f *fakeExecutor) SyncClosure(ctx context.Context, node domain.Node, fp domain.Fingerprint) error {
	return nil
}
func (f *fakeExecutor) Exec(ctx context.Context, node domain.Node, cmd string) error {
	f.execCalls = append(f.execCalls, cmd)
	if cmd == f.failCmd {
		return assertErr
	}
	return nil
}
func (f *fakeExecutor) CurrentFingerprint(ctx context.Context, node domain.Node) (domain.Fingerprint, bool, error) {
	return "fp", true, nil
}
func (f *fakeExecutor) Rollback(ctx context.Context, node domain.Node, generation *int) error {
	f.execCalls = append(f.execCalls, "rollback")
	return nil
}

type fakeBuilder struct{}

func (fakeBuilder) Build(ctx context.Context, path domain.ConfigPath) (domain.Fingerprint, error) {
	return "fp-built", nil
}
func (fakeBuilder) Instantiate(ctx context.Context, path domain.ConfigPath) (string, error) {
	return "", nil
}
func (fakeBuilder) Shell(ctx context.Context, path domain.ConfigPath, cmd string) (string, error) {
	return "", nil
}

var assertErr = assertError{}

type assertError struct{}

func (assertError) Error() string { return "exec failed" }

func newTestPlaybook(t *testing.T) domain.Playbook {
	t.Helper()
	steps := []domain.Step{
		{ID: "restart", Name: "restart svc", Action: domain.RestartServiceAction("api"), TimeoutSeconds: 5},
	}
	pb, err := domain.NewPlaybook("pb-1", "Restart API", "1", steps, nil, nil).Validate()
	require.NoError(t, err)
	return pb
}

func TestRunSkipsWhenPreconditionUnmet(t *testing.T) {
	node, _ := domain.ParseNode("root@n1:22")
	bus := eventbus.New(nil)
	engine := New(&fakeExecutor{}, fakeBuilder{}, bus, func() time.Time { return time.Unix(0, 0) }, nil)

	steps := []domain.Step{{ID: "s1", Action: domain.WaitSecondsAction(1), TimeoutSeconds: 5}}
	pb, err := domain.NewPlaybook("pb-2", "Wait", "1", steps, []string{"fleet-healthy"}, nil).Validate()
	require.NoError(t, err)

	policy := domain.NewPolicy().BindRole("op1", domain.RoleOperator)
	result, err := engine.Run(context.Background(), pb, node, "op1", policy, map[string]bool{})
	require.NoError(t, err)
	assert.True(t, result.Skipped)

	published := bus.Published()
	require.Len(t, published, 1)
	assert.Equal(t, domain.EventTypePlaybookSkipped, published[0].EventType())
}

func TestRunCompletesWhenAuthorizedAndSucceeds(t *testing.T) {
	node, _ := domain.ParseNode("root@n1:22")
	bus := eventbus.New(nil)
	exec := &fakeExecutor{}
	engine := New(exec, fakeBuilder{}, bus, func() time.Time { return time.Unix(0, 0) }, nil)

	pb := newTestPlaybook(t)
	policy := domain.NewPolicy().BindRole("op1", domain.RoleOperator)

	result, err := engine.Run(context.Background(), pb, node, "op1", policy, nil)
	require.NoError(t, err)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, StepOK, result.Steps[0].Status)
	assert.Contains(t, exec.execCalls, "systemctl restart api")

	published := bus.Published()
	require.Len(t, published, 1)
	assert.Equal(t, domain.EventTypePlaybookCompleted, published[0].EventType())
}

func TestRunDeniesUnauthorizedSubject(t *testing.T) {
	node, _ := domain.ParseNode("root@n1:22")
	bus := eventbus.New(nil)
	engine := New(&fakeExecutor{}, fakeBuilder{}, bus, func() time.Time { return time.Unix(0, 0) }, nil)

	pb := newTestPlaybook(t)
	policy := domain.NewPolicy().BindRole("viewer1", domain.RoleViewer)

	result, err := engine.Run(context.Background(), pb, node, "viewer1", policy, nil)
	require.NoError(t, err)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, StepDenied, result.Steps[0].Status)

	published := bus.Published()
	require.Len(t, published, 1)
	assert.Equal(t, domain.EventTypePlaybookFailed, published[0].EventType())
}

func TestRunRollsBackAppliedStepsOnFailure(t *testing.T) {
	node, _ := domain.ParseNode("root@n1:22")
	bus := eventbus.New(nil)
	exec := &fakeExecutor{failCmd: "systemctl restart broken"}
	engine := New(exec, fakeBuilder{}, bus, func() time.Time { return time.Unix(0, 0) }, nil)

	gen := 3
	steps := []domain.Step{
		{
			ID:             "restart-ok",
			Action:         domain.RestartServiceAction("api"),
			TimeoutSeconds: 5,
			Rollback:       rollbackPtr(domain.RollbackAction(&gen)),
		},
		{
			ID:             "restart-fail",
			Action:         domain.RestartServiceAction("broken"),
			TimeoutSeconds: 5,
		},
	}
	pb, err := domain.NewPlaybook("pb-3", "Two Steps", "1", steps, nil, nil).Validate()
	require.NoError(t, err)

	policy := domain.NewPolicy().BindRole("op1", domain.RoleOperator)
	result, err := engine.Run(context.Background(), pb, node, "op1", policy, nil)
	require.NoError(t, err)

	require.Len(t, result.Steps, 2)
	assert.Equal(t, StepOK, result.Steps[0].Status)
	assert.Equal(t, StepFail, result.Steps[1].Status)
	assert.Contains(t, result.RolledBack, "restart-ok")
	assert.Contains(t, exec.execCalls, "rollback")
}

func rollbackPtr(a domain.Action) *domain.Action { return &a }
