// Package autonomousloop implements the Autonomous Loop (spec §4.10): a
// periodic build-once, check-plan-heal cycle that authorizes every
// healing action against the policy engine before acting, and is
// cancellable at both the drift-check fan-out and the sleep between
// cycles.
package autonomousloop

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/chimera-systems/chimera/internal/application/deployfleet"
	"github.com/chimera-systems/chimera/internal/application/rollback"
	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/drift"
	"github.com/chimera-systems/chimera/internal/ports"
)

// fleetAggregateID tags events the loop publishes that describe a
// fleet-wide decision rather than a single deployment aggregate.
const fleetAggregateID = "fleet"

// Config parameterizes one Run invocation.
type Config struct {
	ConfigPath     domain.ConfigPath
	Targets        []domain.Node
	Interval       time.Duration
	SessionName    domain.SessionId
	RebuildCommand string
	RestartCommand string
	Once           bool
	SubjectID      string
}

// Loop drives the check-plan-heal cycle.
type Loop struct {
	build       ports.BuildPort
	executor    ports.RemoteExecutorPort
	drift       *drift.Service
	deployFleet *deployfleet.UseCase
	rollback    *rollback.UseCase
	bus         ports.EventBusPort
	policy      domain.Policy
	sleep       func(ctx context.Context, d time.Duration) error
	now         func() time.Time
	logger      *log.Logger
}

// New constructs a Loop. now defaults to time.Now, sleep to a
// context-cancellable time.After wait, logger to a default
// charmbracelet/log logger, when nil.
func New(
	build ports.BuildPort,
	executor ports.RemoteExecutorPort,
	driftSvc *drift.Service,
	deployFleet *deployfleet.UseCase,
	rollbackUC *rollback.UseCase,
	bus ports.EventBusPort,
	policy domain.Policy,
	sleep func(ctx context.Context, d time.Duration) error,
	now func() time.Time,
	logger *log.Logger,
) *Loop {
	if sleep == nil {
		sleep = cancellableSleep
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Loop{
		build: build, executor: executor, drift: driftSvc,
		deployFleet: deployFleet, rollback: rollbackUC, bus: bus,
		policy: policy, sleep: sleep, now: now, logger: logger,
	}
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

// Run executes the loop per spec §4.10's pseudocode. It returns nil on a
// clean cfg.Once completion, or the context's cancellation error if
// interrupted at the check fan-out or the sleep.
func (l *Loop) Run(ctx context.Context, cfg Config) error {
	fingerprint, err := l.build.Build(ctx, cfg.ConfigPath)
	if err != nil {
		return err
	}

	for {
		_, plan, err := l.drift.Check(ctx, cfg.Targets, fingerprint)
		if err != nil {
			return err
		}

		if plan.HasDrift() {
			if err := l.heal(ctx, cfg, plan); err != nil {
				return err
			}
		}

		if cfg.Once {
			return nil
		}
		if err := l.sleep(ctx, cfg.Interval); err != nil {
			return err
		}
	}
}

// heal authorizes and applies plan's global action against every
// drifted node, per spec S6: an approval-requiring plan whose subject is
// denied HEAL_REBUILD is skipped entirely, never partially applied.
func (l *Loop) heal(ctx context.Context, cfg Config, plan domain.HealingPlan) error {
	if plan.RequiresApproval && l.policy.Authorize(cfg.SubjectID, domain.PermHealRebuild) != domain.Allow {
		return l.bus.Publish(ctx, []domain.DomainEvent{
			domain.NewHealingSkipped(fleetAggregateID, l.now(), "authorization_denied"),
		})
	}

	driftedTargets := plan.DriftedNodes()
	switch plan.GlobalAction {
	case domain.ActionRestartService:
		return l.restart(ctx, driftedTargets, cfg.RestartCommand)
	case domain.ActionRebuildConfig:
		_, err := l.deployFleet.Execute(ctx, deployfleet.Input{
			ConfigPath: cfg.ConfigPath, Command: cfg.RebuildCommand, SessionName: cfg.SessionName, Targets: driftedTargets,
		})
		return err
	case domain.ActionRollbackGeneration:
		_, err := l.rollback.Execute(ctx, rollback.Input{AggregateID: fleetAggregateID, Targets: driftedTargets})
		return err
	default:
		// ActionManualIntervention and any other action are not acted on:
		// no command runs and no event is published.
		return nil
	}
}

func (l *Loop) restart(ctx context.Context, targets []domain.Node, cmd string) error {
	for _, node := range targets {
		if err := l.executor.Exec(ctx, node, cmd); err != nil {
			l.logger.Error("autonomous loop restart failed", "node", node.String(), "err", err)
		}
	}
	return nil
}
