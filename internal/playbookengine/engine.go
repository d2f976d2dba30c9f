// Package playbookengine implements the Playbook Engine (spec §4.4):
// precondition validation, per-step authorization and timeout-bounded
// execution, and best-effort reverse-order rollback on failure.
package playbookengine

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/errors"
	"github.com/chimera-systems/chimera/internal/ports"
)

// actionPermission maps an action kind to the permission required to run
// it. Read-only or informational actions require only PermView.
var actionPermission = map[domain.ActionKind]domain.Permission{
	domain.ActionKindExecShell:         domain.PermHealRebuild,
	domain.ActionKindRestartService:    domain.PermHealRestart,
	domain.ActionKindRedeploy:          domain.PermHealRebuild,
	domain.ActionKindRollback:          domain.PermRollback,
	domain.ActionKindWaitSeconds:       domain.PermView,
	domain.ActionKindAssertFingerprint: domain.PermView,
}

// StepResult records the outcome of one executed step.
type StepResult struct {
	StepID string
	Status StepStatus
	Err    error
}

// Result is the outcome of a full playbook run.
type Result struct {
	PlaybookID   string
	Steps        []StepResult
	RolledBack   []string
	Skipped      bool
	SkippedReason string
}

// Engine runs playbooks against a single target node.
type Engine struct {
	executor ports.RemoteExecutorPort
	builder  ports.BuildPort
	bus      ports.EventBusPort
	now      func() time.Time
	logger   *log.Logger
}

// New constructs an Engine. now defaults to time.Now, logger to a
// default charmbracelet/log logger, when nil.
func New(executor ports.RemoteExecutorPort, builder ports.BuildPort, bus ports.EventBusPort, now func() time.Time, logger *log.Logger) *Engine {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{executor: executor, builder: builder, bus: bus, now: now, logger: logger}
}

// Run executes playbook against target on behalf of subjectID, checking
// facts against the playbook's preconditions before starting. policy
// authorizes each step's action; a denied step short-circuits the run,
// triggers rollback of everything already applied, and emits
// PlaybookFailed. A step whose action fails without ContinueOnFailure
// does the same. Success of every step emits PlaybookCompleted.
func (e *Engine) Run(ctx context.Context, playbook domain.Playbook, target domain.Node, subjectID string, policy domain.Policy, facts map[string]bool) (Result, error) {
	aggregateID := playbook.ID + "@" + target.ID()

	if reason, ok := unmetPrecondition(playbook.Preconditions, facts); ok {
		if err := e.publish(ctx, domain.NewPlaybookSkipped(aggregateID, e.now(), playbook.ID, reason)); err != nil {
			return Result{}, err
		}
		return Result{PlaybookID: playbook.ID, Skipped: true, SkippedReason: reason}, nil
	}

	var results []StepResult
	var applied []domain.Step

	for _, step := range playbook.Steps {
		status, err := e.runStep(ctx, step, target, subjectID, policy)
		results = append(results, StepResult{StepID: step.ID, Status: status, Err: err})

		if status == StepOK {
			applied = append(applied, step)
			continue
		}

		if step.ContinueOnFailure {
			continue
		}

		rolledBack := e.rollback(ctx, applied, target)
		if pubErr := e.publish(ctx, domain.NewPlaybookFailed(aggregateID, e.now(), playbook.ID, step.ID)); pubErr != nil {
			return Result{PlaybookID: playbook.ID, Steps: results, RolledBack: rolledBack}, pubErr
		}
		if len(rolledBack) > 0 {
			if pubErr := e.publish(ctx, domain.NewPlaybookRolledBack(aggregateID, e.now(), playbook.ID, rolledBack)); pubErr != nil {
				return Result{PlaybookID: playbook.ID, Steps: results, RolledBack: rolledBack}, pubErr
			}
		}
		return Result{PlaybookID: playbook.ID, Steps: results, RolledBack: rolledBack}, nil
	}

	if err := e.publish(ctx, domain.NewPlaybookCompleted(aggregateID, e.now(), playbook.ID)); err != nil {
		return Result{PlaybookID: playbook.ID, Steps: results}, err
	}
	return Result{PlaybookID: playbook.ID, Steps: results}, nil
}

func (e *Engine) runStep(ctx context.Context, step domain.Step, target domain.Node, subjectID string, policy domain.Policy) (StepStatus, error) {
	machine, err := newStepMachine()
	if err != nil {
		return StepFail, errors.InternalWrap(err, "playbookengine.run_step", "failed to build step state machine")
	}

	perm, known := actionPermission[step.Action.Kind]
	if !known || policy.Authorize(subjectID, perm) != domain.Allow {
		machine.send(stepEventDeny)
		return StepDenied, errors.AuthDenied("playbookengine.run_step", subjectID, string(perm))
	}
	machine.send(stepEventAuthorize)

	stepCtx, cancel := context.WithTimeout(ctx, time.Duration(step.TimeoutSeconds)*time.Second)
	defer cancel()

	err = e.execute(stepCtx, step.Action, target)
	switch {
	case err == nil:
		machine.send(stepEventSucceed)
		return StepOK, nil
	case stepCtx.Err() == context.DeadlineExceeded:
		machine.send(stepEventTimeout)
		return StepTimeout, errors.PortTimeout("playbookengine.run_step", "step timed out", err)
	default:
		machine.send(stepEventFail)
		return StepFail, err
	}
}

// execute dispatches action against target using the injected ports. It
// is the single seam between the playbook's declarative action set and
// the concrete adapters that carry them out.
func (e *Engine) execute(ctx context.Context, action domain.Action, target domain.Node) error {
	switch action.Kind {
	case domain.ActionKindExecShell:
		return e.executor.Exec(ctx, target, action.Cmd)
	case domain.ActionKindRestartService:
		return e.executor.Exec(ctx, target, "systemctl restart "+action.ServiceName)
	case domain.ActionKindRedeploy:
		fp, err := e.builder.Build(ctx, action.ConfigPath)
		if err != nil {
			return err
		}
		return e.executor.SyncClosure(ctx, target, fp)
	case domain.ActionKindRollback:
		return e.executor.Rollback(ctx, target, action.Generation)
	case domain.ActionKindWaitSeconds:
		select {
		case <-time.After(time.Duration(action.Seconds) * time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	case domain.ActionKindAssertFingerprint:
		actual, ok, err := e.executor.CurrentFingerprint(ctx, target)
		if err != nil {
			return err
		}
		if !ok || actual != action.Expected {
			return errors.Validation("playbookengine.assert_fingerprint", "fingerprint assertion failed")
		}
		return nil
	default:
		return errors.Internal("playbookengine.execute", "unhandled action kind "+string(action.Kind))
	}
}

// rollback runs every applied step's rollback action, in reverse order,
// best-effort: a failing rollback is logged and the pass continues so
// every other applied step still gets a chance to unwind.
func (e *Engine) rollback(ctx context.Context, applied []domain.Step, target domain.Node) []string {
	var rolledBack []string
	for i := len(applied) - 1; i >= 0; i-- {
		step := applied[i]
		if step.Rollback == nil {
			continue
		}
		if err := e.execute(ctx, *step.Rollback, target); err != nil {
			e.logger.Error("playbook rollback step failed", "step", step.ID, "err", err)
			continue
		}
		rolledBack = append(rolledBack, step.ID)
	}
	return rolledBack
}

func (e *Engine) publish(ctx context.Context, event domain.DomainEvent) error {
	return e.bus.Publish(ctx, []domain.DomainEvent{event})
}

func unmetPrecondition(preconditions []string, facts map[string]bool) (string, bool) {
	for _, p := range preconditions {
		if !facts[p] {
			return "precondition not met: " + p, true
		}
	}
	return "", false
}
