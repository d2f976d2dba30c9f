package domain

import (
	"time"

	"github.com/felixgeelhaar/statekit"
	"github.com/google/uuid"

	"github.com/chimera-systems/chimera/internal/errors"
)

// DeploymentStatus enumerates the lifecycle of a Deployment aggregate.
type DeploymentStatus string

const (
	StatusPending    DeploymentStatus = "PENDING"
	StatusBuilding   DeploymentStatus = "BUILDING"
	StatusBuilt      DeploymentStatus = "BUILT"
	StatusDeploying  DeploymentStatus = "DEPLOYING"
	StatusCompleted  DeploymentStatus = "COMPLETED"
	StatusFailed     DeploymentStatus = "FAILED"
	StatusRolledBack DeploymentStatus = "ROLLED_BACK"
)

// IsTerminal reports whether s admits no further meaningful progress:
// COMPLETED and ROLLED_BACK are dead ends, FAILED still admits RollBack.
// Use cases poll this to decide when a deployment run is done.
func (s DeploymentStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusRolledBack:
		return true
	default:
		return false
	}
}

// Deployment lifecycle events, mirroring the per-step events
// internal/playbookengine drives its own Statekit machine with.
const (
	deploymentEventStartBuild  statekit.EventType = "START_BUILD"
	deploymentEventBuildOK     statekit.EventType = "BUILD_OK"
	deploymentEventStartDeploy statekit.EventType = "START_DEPLOY"
	deploymentEventComplete    statekit.EventType = "COMPLETE"
	deploymentEventFail        statekit.EventType = "FAIL"
	deploymentEventRollBack    statekit.EventType = "ROLL_BACK"
)

var (
	deploymentStateIDPending    = statekit.StateID(StatusPending)
	deploymentStateIDBuilding   = statekit.StateID(StatusBuilding)
	deploymentStateIDBuilt      = statekit.StateID(StatusBuilt)
	deploymentStateIDDeploying  = statekit.StateID(StatusDeploying)
	deploymentStateIDCompleted  = statekit.StateID(StatusCompleted)
	deploymentStateIDFailed     = statekit.StateID(StatusFailed)
	deploymentStateIDRolledBack = statekit.StateID(StatusRolledBack)
)

// deploymentTransitionEvents names the event that drives each legal
// move in the diagram from spec §3:
//
//	PENDING → BUILDING → BUILT → DEPLOYING → COMPLETED
//	           ↓           ↓        ↓
//	          FAILED     FAILED   FAILED → ROLLED_BACK
//
// validateTransition looks up the event here and hands it to a fresh
// Statekit interpreter (below) to decide legality, rather than
// consulting this table's presence directly, so the machine — not a
// bare map — stays the actual authority over what moves are legal.
var deploymentTransitionEvents = map[DeploymentStatus]map[DeploymentStatus]statekit.EventType{
	StatusPending:   {StatusBuilding: deploymentEventStartBuild},
	StatusBuilding:  {StatusBuilt: deploymentEventBuildOK, StatusFailed: deploymentEventFail},
	StatusBuilt:     {StatusDeploying: deploymentEventStartDeploy, StatusFailed: deploymentEventFail},
	StatusDeploying: {StatusCompleted: deploymentEventComplete, StatusFailed: deploymentEventFail},
	StatusFailed:    {StatusRolledBack: deploymentEventRollBack},
}

// newDeploymentMachine builds the full deployment lifecycle graph with
// the interpreter started at from. Deployment itself stays an
// immutable value (its methods return a new Deployment, never mutate
// the receiver), so unlike internal/playbookengine's long-lived
// stepMachine, a fresh interpreter is built per transition check
// instead of being carried as a field on the aggregate.
func newDeploymentMachine(from DeploymentStatus) (*statekit.Interpreter[struct{}], error) {
	machine, err := statekit.NewMachine[struct{}]("deployment").
		WithInitial(statekit.StateID(from)).
		State(deploymentStateIDPending).
		On(deploymentEventStartBuild).Target(deploymentStateIDBuilding).
		Done().
		State(deploymentStateIDBuilding).
		On(deploymentEventBuildOK).Target(deploymentStateIDBuilt).
		On(deploymentEventFail).Target(deploymentStateIDFailed).
		Done().
		State(deploymentStateIDBuilt).
		On(deploymentEventStartDeploy).Target(deploymentStateIDDeploying).
		On(deploymentEventFail).Target(deploymentStateIDFailed).
		Done().
		State(deploymentStateIDDeploying).
		On(deploymentEventComplete).Target(deploymentStateIDCompleted).
		On(deploymentEventFail).Target(deploymentStateIDFailed).
		Done().
		State(deploymentStateIDFailed).
		On(deploymentEventRollBack).Target(deploymentStateIDRolledBack).
		Done().
		State(deploymentStateIDCompleted).
		Final().
		Done().
		State(deploymentStateIDRolledBack).
		Final().
		Done().
		Build()
	if err != nil {
		return nil, err
	}

	interp := statekit.NewInterpreter(machine)
	interp.Start()
	return interp, nil
}

// Deployment is the aggregate root tracking a single build-and-deploy
// run. All mutator methods are pure: they return a new Deployment with
// the transition applied and the emitted event appended, leaving the
// receiver untouched.
type Deployment struct {
	ID           string
	SessionId    SessionId
	ConfigPath   ConfigPath
	Status       DeploymentStatus
	Fingerprint  Fingerprint
	ErrorMessage string
	CreatedAt    time.Time
	Events       []DomainEvent
}

// NewDeployment constructs a PENDING Deployment. now is the creation
// timestamp; callers pass it explicitly so the aggregate stays a pure
// value with no hidden clock dependency.
func NewDeployment(sessionID SessionId, cfg ConfigPath, now time.Time) Deployment {
	return Deployment{
		ID:         uuid.NewString(),
		SessionId:  sessionID,
		ConfigPath: cfg,
		Status:     StatusPending,
		CreatedAt:  now,
	}
}

// validateTransition asks the Statekit deployment machine whether to is
// reachable from d.Status. A status pair absent from
// deploymentTransitionEvents has no event to send and is rejected
// outright; otherwise the interpreter's post-Send state must land
// exactly on to for the move to be legal.
func (d Deployment) validateTransition(op string, to DeploymentStatus) error {
	event, ok := deploymentTransitionEvents[d.Status][to]
	if !ok {
		return errors.InvalidTransition(op, string(d.Status), string(to))
	}

	interp, err := newDeploymentMachine(d.Status)
	if err != nil {
		return errors.InvalidTransition(op, string(d.Status), string(to))
	}
	interp.Send(statekit.Event{Type: event})
	if interp.State().Value != statekit.StateID(to) {
		return errors.InvalidTransition(op, string(d.Status), string(to))
	}
	return nil
}

func (d Deployment) with(status DeploymentStatus, event DomainEvent, mutate func(*Deployment)) Deployment {
	next := d
	next.Events = append(append([]DomainEvent(nil), d.Events...), event)
	next.Status = status
	if mutate != nil {
		mutate(&next)
	}
	return next
}

// StartBuild transitions PENDING → BUILDING, appending DeploymentStarted.
func (d Deployment) StartBuild(now time.Time) (Deployment, error) {
	if err := d.validateTransition("deployment.start_build", StatusBuilding); err != nil {
		return d, err
	}
	event := NewDeploymentStarted(d.ID, now, d.ConfigPath, d.SessionId)
	return d.with(StatusBuilding, event, nil), nil
}

// CompleteBuild transitions BUILDING → BUILT, appending BuildCompleted.
func (d Deployment) CompleteBuild(now time.Time, fp Fingerprint) (Deployment, error) {
	if err := d.validateTransition("deployment.complete_build", StatusBuilt); err != nil {
		return d, err
	}
	event := NewBuildCompleted(d.ID, now, fp)
	return d.with(StatusBuilt, event, func(next *Deployment) {
		next.Fingerprint = fp
	}), nil
}

// StartDeploying transitions BUILT → DEPLOYING. This transition carries
// no dedicated event in spec §3's event list; it is a silent bookkeeping
// step ahead of the fan-out phases.
func (d Deployment) StartDeploying() (Deployment, error) {
	if err := d.validateTransition("deployment.start_deploying", StatusDeploying); err != nil {
		return d, err
	}
	next := d
	next.Status = StatusDeploying
	return next, nil
}

// Complete transitions DEPLOYING → COMPLETED, appending DeploymentCompleted.
func (d Deployment) Complete(now time.Time) (Deployment, error) {
	if err := d.validateTransition("deployment.complete", StatusCompleted); err != nil {
		return d, err
	}
	event := NewDeploymentCompleted(d.ID, now, d.Fingerprint)
	return d.with(StatusCompleted, event, nil), nil
}

// Fail transitions the deployment to FAILED from BUILDING, BUILT, or
// DEPLOYING, appending DeploymentFailed.
func (d Deployment) Fail(now time.Time, message string) (Deployment, error) {
	if err := d.validateTransition("deployment.fail", StatusFailed); err != nil {
		return d, err
	}
	event := NewDeploymentFailed(d.ID, now, message)
	return d.with(StatusFailed, event, func(next *Deployment) {
		next.ErrorMessage = message
	}), nil
}

// RollBack transitions FAILED → ROLLED_BACK.
func (d Deployment) RollBack(now time.Time) (Deployment, error) {
	if err := d.validateTransition("deployment.roll_back", StatusRolledBack); err != nil {
		return d, err
	}
	// Rollback of the aggregate's own status carries no dedicated event
	// here; per-node DeploymentRolledBack events are emitted by the
	// Rollback use case for each target node, not the aggregate itself.
	next := d
	next.Status = StatusRolledBack
	return next, nil
}

// DrainEvents returns the accumulated events and a copy of the
// deployment with an empty event list, mirroring the "drained and
// published by the invoking use case" contract in spec §3.
func (d Deployment) DrainEvents() (Deployment, []DomainEvent) {
	events := d.Events
	next := d
	next.Events = nil
	return next, events
}
