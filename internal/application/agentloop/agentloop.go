// Package agentloop implements the per-node agent process (spec §4.11,
// §6.2 `agent`): a heartbeat tick and a drift-check tick running
// concurrently against an external fleet orchestrator, mirroring the
// check-plan-heal shape of the Autonomous Loop but scoped to the single
// node the agent runs on.
package agentloop

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/drift"
	"github.com/chimera-systems/chimera/internal/ports"
)

// Config parameterizes one Run invocation.
type Config struct {
	Node               domain.Node
	ConfigPath         domain.ConfigPath
	HeartbeatInterval  time.Duration
	DriftCheckInterval time.Duration
	AutoHeal           bool
}

// Loop drives an agent's heartbeat and self-drift-check ticks.
type Loop struct {
	orchestrator ports.OrchestratorPort
	build        ports.BuildPort
	executor     ports.RemoteExecutorPort
	drift        *drift.Service
	sleep        func(ctx context.Context, d time.Duration) error
	logger       *log.Logger
}

// New constructs a Loop. sleep defaults to a context-cancellable
// time.After wait, logger to a default charmbracelet/log logger, when
// nil.
func New(
	orchestrator ports.OrchestratorPort,
	build ports.BuildPort,
	executor ports.RemoteExecutorPort,
	driftSvc *drift.Service,
	sleep func(ctx context.Context, d time.Duration) error,
	logger *log.Logger,
) *Loop {
	if sleep == nil {
		sleep = cancellableSleep
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Loop{orchestrator: orchestrator, build: build, executor: executor, drift: driftSvc, sleep: sleep, logger: logger}
}

func cancellableSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the heartbeat and drift-check ticks concurrently until ctx
// is cancelled, at which point both loops return the context's error.
func (l *Loop) Run(ctx context.Context, cfg Config) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return l.heartbeatLoop(gctx, cfg) })
	g.Go(func() error { return l.driftLoop(gctx, cfg) })
	return g.Wait()
}

func (l *Loop) heartbeatLoop(ctx context.Context, cfg Config) error {
	for {
		if err := l.orchestrator.ReportHealth(ctx, cfg.Node, true); err != nil {
			l.logger.Error("heartbeat report failed", "node", cfg.Node.ID(), "err", err)
		}
		if err := l.sleep(ctx, cfg.HeartbeatInterval); err != nil {
			return err
		}
	}
}

func (l *Loop) driftLoop(ctx context.Context, cfg Config) error {
	for {
		if err := l.checkAndReport(ctx, cfg); err != nil {
			l.logger.Error("drift check failed", "node", cfg.Node.ID(), "err", err)
		}
		if err := l.sleep(ctx, cfg.DriftCheckInterval); err != nil {
			return err
		}
	}
}

func (l *Loop) checkAndReport(ctx context.Context, cfg Config) error {
	expected, err := l.build.Build(ctx, cfg.ConfigPath)
	if err != nil {
		return err
	}

	_, plan, err := l.drift.Check(ctx, []domain.Node{cfg.Node}, expected)
	if err != nil {
		return err
	}
	if !plan.HasDrift() {
		return nil
	}

	for _, report := range plan.DriftReports {
		if err := l.orchestrator.ReportDrift(ctx, report); err != nil {
			l.logger.Error("orchestrator drift report failed", "node", cfg.Node.ID(), "err", err)
		}
	}

	if !cfg.AutoHeal {
		return nil
	}
	return l.heal(ctx, cfg)
}

// heal fetches any pending orchestrator-issued healing command and runs
// it locally, acknowledging completion back to the orchestrator.
func (l *Loop) heal(ctx context.Context, cfg Config) error {
	cmd, err := l.orchestrator.FetchHealingCommand(ctx, cfg.Node)
	if err != nil {
		return err
	}
	if cmd == "" {
		return nil
	}
	if err := l.executor.Exec(ctx, cfg.Node, cmd); err != nil {
		return err
	}
	return l.orchestrator.AcknowledgeHealing(ctx, cfg.Node, cmd)
}
