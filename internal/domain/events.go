package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies the concrete shape of a DomainEvent for event-bus
// dispatch (spec §4.1: "pub/sub keyed by event-type tag").
type EventType string

const (
	EventTypeDeploymentStarted    EventType = "DeploymentStarted"
	EventTypeBuildCompleted       EventType = "BuildCompleted"
	EventTypeDeploymentCompleted  EventType = "DeploymentCompleted"
	EventTypeDeploymentFailed     EventType = "DeploymentFailed"
	EventTypeDeploymentRolledBack EventType = "DeploymentRolledBack"
	EventTypePlaybookSkipped      EventType = "PlaybookSkipped"
	EventTypePlaybookCompleted    EventType = "PlaybookCompleted"
	EventTypePlaybookFailed       EventType = "PlaybookFailed"
	EventTypePlaybookRolledBack   EventType = "PlaybookRolledBack"
	EventTypeHealingSkipped       EventType = "HealingSkipped"
)

// DomainEvent is the tagged-union interface every published event
// implements. Events are constructed once and never mutated afterward.
type DomainEvent interface {
	EventID() string
	EventType() EventType
	OccurredAt() time.Time
	AggregateID() string
}

type baseEvent struct {
	id          string
	occurredAt  time.Time
	aggregateID string
}

func newBaseEvent(aggregateID string, occurredAt time.Time) baseEvent {
	return baseEvent{id: uuid.NewString(), occurredAt: occurredAt, aggregateID: aggregateID}
}

func (b baseEvent) EventID() string       { return b.id }
func (b baseEvent) OccurredAt() time.Time { return b.occurredAt }
func (b baseEvent) AggregateID() string   { return b.aggregateID }

// DeploymentStarted is appended when a Deployment transitions PENDING → BUILDING.
type DeploymentStarted struct {
	baseEvent
	ConfigPath ConfigPath
	SessionId  SessionId
}

func (DeploymentStarted) EventType() EventType { return EventTypeDeploymentStarted }

// BuildCompleted is appended when a Deployment transitions BUILDING → BUILT.
type BuildCompleted struct {
	baseEvent
	Fingerprint Fingerprint
}

func (BuildCompleted) EventType() EventType { return EventTypeBuildCompleted }

// DeploymentCompleted is appended when a Deployment transitions DEPLOYING → COMPLETED.
type DeploymentCompleted struct {
	baseEvent
	Fingerprint Fingerprint
}

func (DeploymentCompleted) EventType() EventType { return EventTypeDeploymentCompleted }

// DeploymentFailed is appended whenever a Deployment enters FAILED, or on
// cooperative cancellation mid-deployment (Reason == "cancelled").
type DeploymentFailed struct {
	baseEvent
	Reason string
}

func (DeploymentFailed) EventType() EventType { return EventTypeDeploymentFailed }

// DeploymentRolledBack is appended per node when Rollback completes.
type DeploymentRolledBack struct {
	baseEvent
	Node       Node
	Generation *int
	Succeeded  bool
	Reason     string
}

func (DeploymentRolledBack) EventType() EventType { return EventTypeDeploymentRolledBack }

// PlaybookSkipped is emitted when a playbook's preconditions fail.
type PlaybookSkipped struct {
	baseEvent
	PlaybookID string
	Reason     string
}

func (PlaybookSkipped) EventType() EventType { return EventTypePlaybookSkipped }

// PlaybookCompleted is emitted when every step of a playbook run succeeds
// (or was allowed to fail via continueOnFailure).
type PlaybookCompleted struct {
	baseEvent
	PlaybookID string
}

func (PlaybookCompleted) EventType() EventType { return EventTypePlaybookCompleted }

// PlaybookFailed is emitted when a playbook run fails a step without
// continueOnFailure and rollback (if any) has run.
type PlaybookFailed struct {
	baseEvent
	PlaybookID string
	FailedStep string
}

func (PlaybookFailed) EventType() EventType { return EventTypePlaybookFailed }

// PlaybookRolledBack is emitted after the rollback phase completes,
// carrying the outcome of each rollback action attempted.
type PlaybookRolledBack struct {
	baseEvent
	PlaybookID     string
	RolledBackStep []string
}

func (PlaybookRolledBack) EventType() EventType { return EventTypePlaybookRolledBack }

// HealingSkipped is emitted by the Autonomous Loop when a healing plan
// requires approval and the policy engine denies it (spec S6).
type HealingSkipped struct {
	baseEvent
	Reason string
}

func (HealingSkipped) EventType() EventType { return EventTypeHealingSkipped }

// NewDeploymentStarted constructs a DeploymentStarted event for aggregateID at now.
func NewDeploymentStarted(aggregateID string, now time.Time, cfg ConfigPath, session SessionId) DeploymentStarted {
	return DeploymentStarted{baseEvent: newBaseEvent(aggregateID, now), ConfigPath: cfg, SessionId: session}
}

// NewBuildCompleted constructs a BuildCompleted event.
func NewBuildCompleted(aggregateID string, now time.Time, fp Fingerprint) BuildCompleted {
	return BuildCompleted{baseEvent: newBaseEvent(aggregateID, now), Fingerprint: fp}
}

// NewDeploymentCompleted constructs a DeploymentCompleted event.
func NewDeploymentCompleted(aggregateID string, now time.Time, fp Fingerprint) DeploymentCompleted {
	return DeploymentCompleted{baseEvent: newBaseEvent(aggregateID, now), Fingerprint: fp}
}

// NewDeploymentFailed constructs a DeploymentFailed event.
func NewDeploymentFailed(aggregateID string, now time.Time, reason string) DeploymentFailed {
	return DeploymentFailed{baseEvent: newBaseEvent(aggregateID, now), Reason: reason}
}

// NewDeploymentRolledBack constructs a DeploymentRolledBack event.
func NewDeploymentRolledBack(aggregateID string, now time.Time, node Node, generation *int, ok bool, reason string) DeploymentRolledBack {
	return DeploymentRolledBack{
		baseEvent:  newBaseEvent(aggregateID, now),
		Node:       node,
		Generation: generation,
		Succeeded:  ok,
		Reason:     reason,
	}
}

// NewPlaybookSkipped constructs a PlaybookSkipped event.
func NewPlaybookSkipped(aggregateID string, now time.Time, playbookID, reason string) PlaybookSkipped {
	return PlaybookSkipped{baseEvent: newBaseEvent(aggregateID, now), PlaybookID: playbookID, Reason: reason}
}

// NewPlaybookCompleted constructs a PlaybookCompleted event.
func NewPlaybookCompleted(aggregateID string, now time.Time, playbookID string) PlaybookCompleted {
	return PlaybookCompleted{baseEvent: newBaseEvent(aggregateID, now), PlaybookID: playbookID}
}

// NewPlaybookFailed constructs a PlaybookFailed event.
func NewPlaybookFailed(aggregateID string, now time.Time, playbookID, failedStep string) PlaybookFailed {
	return PlaybookFailed{baseEvent: newBaseEvent(aggregateID, now), PlaybookID: playbookID, FailedStep: failedStep}
}

// NewPlaybookRolledBack constructs a PlaybookRolledBack event.
func NewPlaybookRolledBack(aggregateID string, now time.Time, playbookID string, steps []string) PlaybookRolledBack {
	return PlaybookRolledBack{baseEvent: newBaseEvent(aggregateID, now), PlaybookID: playbookID, RolledBackStep: steps}
}

// NewHealingSkipped constructs a HealingSkipped event.
func NewHealingSkipped(aggregateID string, now time.Time, reason string) HealingSkipped {
	return HealingSkipped{baseEvent: newBaseEvent(aggregateID, now), Reason: reason}
}
