package agentloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/drift"
	"github.com/chimera-systems/chimera/internal/history"
)

type fakeBuild struct{ fp domain.Fingerprint }

func (f fakeBuild) Build(ctx context.Context, path domain.ConfigPath) (domain.Fingerprint, error) {
	return f.fp, nil
}
func (fakeBuild) Instantiate(ctx context.Context, path domain.ConfigPath) (string, error) {
	return "", nil
}
func (fakeBuild) Shell(ctx context.Context, path domain.ConfigPath, cmd string) (string, error) {
	return "", nil
}

type fakeExecutor struct {
	mu           sync.Mutex
	fingerprints map[string]domain.Fingerprint
	execCalls    []string
}

func (f *fakeExecutor) SyncClosure(ctx context.Context, node domain.Node, fp domain.Fingerprint) error {
	return nil
}
func (f *fakeExecutor) Exec(ctx context.Context, node domain.Node, cmd string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execCalls = append(f.execCalls, node.ID()+":"+cmd)
	return nil
}
func (f *fakeExecutor) CurrentFingerprint(ctx context.Context, node domain.Node) (domain.Fingerprint, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fingerprints[node.ID()], true, nil
}
func (f *fakeExecutor) Rollback(ctx context.Context, node domain.Node, generation *int) error {
	return nil
}

type fakeOrchestrator struct {
	mu             sync.Mutex
	healthReports  int
	driftReports   []domain.DriftReport
	pendingCommand string
	acked          []string
}

func (f *fakeOrchestrator) ReportHealth(ctx context.Context, node domain.Node, healthy bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthReports++
	return nil
}
func (f *fakeOrchestrator) ReportDrift(ctx context.Context, report domain.DriftReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.driftReports = append(f.driftReports, report)
	return nil
}
func (f *fakeOrchestrator) FetchHealingCommand(ctx context.Context, node domain.Node) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pendingCommand, nil
}
func (f *fakeOrchestrator) AcknowledgeHealing(ctx context.Context, node domain.Node, commandID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, commandID)
	return nil
}

func immediateCancelAfter(n int) func(ctx context.Context, d time.Duration) error {
	calls := 0
	var mu sync.Mutex
	return func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		calls++
		c := calls
		mu.Unlock()
		if c >= n {
			return context.Canceled
		}
		return nil
	}
}

func TestAgentLoopReportsHeartbeatsUntilCancelled(t *testing.T) {
	n1, err := domain.NewNode("n1.internal", "deploy", 22)
	require.NoError(t, err)
	hist := history.NewStore()
	now := time.Unix(1_700_000_000, 0)
	exec := &fakeExecutor{fingerprints: map[string]domain.Fingerprint{n1.ID(): "fp-AAA"}}
	driftSvc := drift.New(exec, hist, func() time.Time { return now })
	orch := &fakeOrchestrator{}

	sleep := immediateCancelAfter(3)
	loop := New(orch, fakeBuild{fp: "fp-AAA"}, exec, driftSvc, sleep, nil)

	err = loop.Run(context.Background(), Config{
		Node: n1, ConfigPath: "/etc/chimera/node.nix",
		HeartbeatInterval: time.Millisecond, DriftCheckInterval: time.Millisecond,
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, orch.healthReports, 1)
}

func TestAgentLoopReportsDriftAndHealsWhenAutoHealEnabled(t *testing.T) {
	n1, err := domain.NewNode("n1.internal", "deploy", 22)
	require.NoError(t, err)
	hist := history.NewStore()
	now := time.Unix(1_700_000_000, 0)
	exec := &fakeExecutor{fingerprints: map[string]domain.Fingerprint{n1.ID(): "fp-BBB"}}
	driftSvc := drift.New(exec, hist, func() time.Time { return now })
	orch := &fakeOrchestrator{pendingCommand: "systemctl restart chimera-agent"}

	sleep := immediateCancelAfter(1)
	loop := New(orch, fakeBuild{fp: "fp-AAA"}, exec, driftSvc, sleep, nil)

	err = loop.Run(context.Background(), Config{
		Node: n1, ConfigPath: "/etc/chimera/node.nix",
		HeartbeatInterval: time.Hour, DriftCheckInterval: time.Millisecond, AutoHeal: true,
	})
	assert.ErrorIs(t, err, context.Canceled)

	orch.mu.Lock()
	defer orch.mu.Unlock()
	require.NotEmpty(t, orch.driftReports)
	require.NotEmpty(t, orch.acked)
	exec.mu.Lock()
	defer exec.mu.Unlock()
	assert.Contains(t, exec.execCalls[0], "systemctl restart chimera-agent")
}
