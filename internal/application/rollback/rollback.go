// Package rollback implements the Rollback use case (spec §4.9): fan out
// RemoteExecutorPort.Rollback across targets concurrently and report a
// per-node outcome for every target, regardless of individual failures.
package rollback

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/ports"
)

// Status is one node's rollback outcome.
type Status string

const (
	StatusOK   Status = "OK"
	StatusFail Status = "FAIL"
)

// NodeResult is one target's rollback outcome.
type NodeResult struct {
	Node   domain.Node
	Status Status
	Reason string
}

// Input is the Rollback use case's request.
type Input struct {
	AggregateID string // correlates emitted events; typically the deployment id
	Targets     []domain.Node
	Generation  *int
}

// UseCase fans a rollback out across every target node.
type UseCase struct {
	executor ports.RemoteExecutorPort
	bus      ports.EventBusPort
	now      func() time.Time
}

// New constructs a UseCase. now defaults to time.Now when nil.
func New(executor ports.RemoteExecutorPort, bus ports.EventBusPort, now func() time.Time) *UseCase {
	if now == nil {
		now = time.Now
	}
	return &UseCase{executor: executor, bus: bus, now: now}
}

// Execute rolls every target back concurrently. Per spec §4.9, a
// per-node failure never aborts the others: every target always yields
// exactly one NodeResult (universal property 9 in spec §8).
func (uc *UseCase) Execute(ctx context.Context, input Input) ([]NodeResult, error) {
	results := make([]NodeResult, len(input.Targets))
	events := make([]domain.DomainEvent, len(input.Targets))
	now := uc.now()

	g, gctx := errgroup.WithContext(ctx)
	for i, node := range input.Targets {
		i, node := i, node
		g.Go(func() error {
			err := uc.executor.Rollback(gctx, node, input.Generation)
			if err != nil {
				results[i] = NodeResult{Node: node, Status: StatusFail, Reason: err.Error()}
				events[i] = domain.NewDeploymentRolledBack(input.AggregateID, now, node, input.Generation, false, err.Error())
				return nil
			}
			results[i] = NodeResult{Node: node, Status: StatusOK}
			events[i] = domain.NewDeploymentRolledBack(input.AggregateID, now, node, input.Generation, true, "")
			return nil
		})
	}
	_ = g.Wait()

	if err := uc.bus.Publish(ctx, events); err != nil {
		return results, err
	}
	return results, nil
}
