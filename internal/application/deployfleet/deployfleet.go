// Package deployfleet implements the Deploy Fleet use case (spec §4.8):
// build once, sync the resulting closure to every target concurrently,
// then run the deployment command on every node that received it.
package deployfleet

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/errors"
	"github.com/chimera-systems/chimera/internal/ports"
)

// NodeOutcome is one target's result for a Deploy Fleet run.
type NodeOutcome struct {
	Node   domain.Node
	SyncOK bool
	ExecOK bool
	Err    error
}

// Input is the Deploy Fleet use case's request.
type Input struct {
	ConfigPath  domain.ConfigPath
	Command     string
	SessionName domain.SessionId
	Targets     []domain.Node
}

// Output is the Deploy Fleet use case's result.
type Output struct {
	Deployment domain.Deployment
	Outcomes   []NodeOutcome
}

// UseCase runs a fleet deployment end to end.
type UseCase struct {
	build    ports.BuildPort
	executor ports.RemoteExecutorPort
	session  ports.SessionPort
	bus      ports.EventBusPort
	now      func() time.Time
	logger   *log.Logger
}

// New constructs a UseCase. now defaults to time.Now, logger to a
// default charmbracelet/log logger, when nil.
func New(build ports.BuildPort, executor ports.RemoteExecutorPort, session ports.SessionPort, bus ports.EventBusPort, now func() time.Time, logger *log.Logger) *UseCase {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = log.Default()
	}
	return &UseCase{build: build, executor: executor, session: session, bus: bus, now: now, logger: logger}
}

// Execute runs the deployment per spec §4.8 steps 1-6. It never returns
// a non-nil error for domain-level failure — those are reported through
// the returned Deployment's terminal status and Output.Outcomes. A
// non-nil error indicates a defect (an illegal transition, or the event
// bus itself failing).
func (uc *UseCase) Execute(ctx context.Context, input Input) (Output, error) {
	now := uc.now()
	deployment := domain.NewDeployment(input.SessionName, input.ConfigPath, now)

	deployment, err := deployment.StartBuild(now)
	if err != nil {
		return Output{}, err
	}
	if err := uc.publish(ctx, &deployment); err != nil {
		return Output{}, err
	}

	fingerprint, err := uc.build.Build(ctx, input.ConfigPath)
	if err != nil {
		return uc.fail(ctx, deployment, "build failed: "+err.Error())
	}

	deployment, err = deployment.CompleteBuild(uc.now(), fingerprint)
	if err != nil {
		return Output{}, err
	}
	if err := uc.publish(ctx, &deployment); err != nil {
		return Output{}, err
	}
	deployment, err = deployment.StartDeploying()
	if err != nil {
		return Output{}, err
	}

	outcomes := make([]NodeOutcome, len(input.Targets))
	uc.syncAll(ctx, input.Targets, fingerprint, outcomes)

	if ctx.Err() != nil {
		out, ferr := uc.fail(ctx, deployment, "cancelled")
		out.Outcomes = outcomes
		return out, ferr
	}

	survivors := survivingIndices(outcomes)
	if len(survivors) == 0 {
		out, ferr := uc.fail(ctx, deployment, "sync failed on every target node")
		out.Outcomes = outcomes
		return out, ferr
	}

	uc.execSurvivors(ctx, input.SessionName, input.Command, survivors, outcomes)

	if ctx.Err() != nil {
		out, ferr := uc.fail(ctx, deployment, "cancelled")
		out.Outcomes = outcomes
		return out, ferr
	}

	if !anyExecSucceeded(outcomes) {
		out, ferr := uc.fail(ctx, deployment, "exec failed on every surviving node")
		out.Outcomes = outcomes
		return out, ferr
	}

	deployment, err = deployment.Complete(uc.now())
	if err != nil {
		return Output{Outcomes: outcomes}, err
	}
	if err := uc.publish(ctx, &deployment); err != nil {
		return Output{Deployment: deployment, Outcomes: outcomes}, err
	}
	return Output{Deployment: deployment, Outcomes: outcomes}, nil
}

func (uc *UseCase) syncAll(ctx context.Context, targets []domain.Node, fingerprint domain.Fingerprint, outcomes []NodeOutcome) {
	g, gctx := errgroup.WithContext(ctx)
	for i, node := range targets {
		i, node := i, node
		outcomes[i].Node = node
		g.Go(func() error {
			err := uc.executor.SyncClosure(gctx, node, fingerprint)
			outcomes[i].SyncOK = err == nil
			outcomes[i].Err = err
			return nil
		})
	}
	// Errors are captured per-node above; g.Wait only surfaces the
	// group's own context cancellation.
	_ = g.Wait()
}

func (uc *UseCase) execSurvivors(ctx context.Context, sessionName domain.SessionId, command string, survivors []int, outcomes []NodeOutcome) {
	g, gctx := errgroup.WithContext(ctx)
	for _, idx := range survivors {
		idx := idx
		g.Go(func() error {
			if _, err := uc.session.Create(gctx, sessionName); err != nil {
				outcomes[idx].Err = err
				return nil
			}
			ok, err := uc.session.Run(gctx, sessionName, command)
			outcomes[idx].ExecOK = ok && err == nil
			if err != nil {
				outcomes[idx].Err = err
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (uc *UseCase) fail(ctx context.Context, deployment domain.Deployment, reason string) (Output, error) {
	next, err := deployment.Fail(uc.now(), reason)
	if err != nil {
		return Output{}, errors.InternalWrap(err, "deployfleet.fail", "could not transition to FAILED")
	}
	if pubErr := uc.publish(ctx, &next); pubErr != nil {
		return Output{Deployment: next}, pubErr
	}
	return Output{Deployment: next}, nil
}

func (uc *UseCase) publish(ctx context.Context, d *domain.Deployment) error {
	next, events := d.DrainEvents()
	*d = next
	if len(events) == 0 {
		return nil
	}
	return uc.bus.Publish(ctx, events)
}

func survivingIndices(outcomes []NodeOutcome) []int {
	var idx []int
	for i, o := range outcomes {
		if o.SyncOK {
			idx = append(idx, i)
		}
	}
	return idx
}

func anyExecSucceeded(outcomes []NodeOutcome) bool {
	for _, o := range outcomes {
		if o.ExecOK {
			return true
		}
	}
	return false
}
