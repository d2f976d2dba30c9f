package websocket

import (
	"context"
	"time"

	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/eventbus"
)

// EventBroadcaster subscribes to every fleet event type on the shared
// event bus and fans each one out to connected WebSocket clients.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

var broadcastEventTypes = []domain.EventType{
	domain.EventTypeDeploymentStarted,
	domain.EventTypeBuildCompleted,
	domain.EventTypeDeploymentCompleted,
	domain.EventTypeDeploymentFailed,
	domain.EventTypeDeploymentRolledBack,
	domain.EventTypePlaybookSkipped,
	domain.EventTypePlaybookCompleted,
	domain.EventTypePlaybookFailed,
	domain.EventTypePlaybookRolledBack,
	domain.EventTypeHealingSkipped,
}

// Wire subscribes the broadcaster to every event type the bus carries.
func (b *EventBroadcaster) Wire(bus *eventbus.Bus) {
	for _, eventType := range broadcastEventTypes {
		bus.Subscribe(eventType, b.handle)
	}
}

func (b *EventBroadcaster) handle(_ context.Context, event domain.DomainEvent) error {
	b.hub.Broadcast(b.eventToMessage(event))
	return nil
}

// eventToMessage converts a domain event to a WebSocket message.
func (b *EventBroadcaster) eventToMessage(event domain.DomainEvent) Message {
	payload := map[string]any{
		"aggregate_id": event.AggregateID(),
		"occurred_at":  event.OccurredAt().Format(time.RFC3339),
	}

	switch e := event.(type) {
	case domain.DeploymentStarted:
		payload["config_path"] = e.ConfigPath.String()
		payload["session_id"] = e.SessionId.String()
	case domain.BuildCompleted:
		payload["fingerprint"] = e.Fingerprint.String()
	case domain.DeploymentCompleted:
		payload["fingerprint"] = e.Fingerprint.String()
	case domain.DeploymentFailed:
		payload["reason"] = e.Reason
	case domain.DeploymentRolledBack:
		payload["node_id"] = e.Node.ID()
		payload["succeeded"] = e.Succeeded
		payload["reason"] = e.Reason
		if e.Generation != nil {
			payload["generation"] = *e.Generation
		}
	case domain.PlaybookSkipped:
		payload["playbook_id"] = e.PlaybookID
		payload["reason"] = e.Reason
	case domain.PlaybookCompleted:
		payload["playbook_id"] = e.PlaybookID
	case domain.PlaybookFailed:
		payload["playbook_id"] = e.PlaybookID
		payload["failed_step"] = e.FailedStep
	case domain.PlaybookRolledBack:
		payload["playbook_id"] = e.PlaybookID
		payload["rolled_back_steps"] = e.RolledBackStep
	case domain.HealingSkipped:
		payload["reason"] = e.Reason
	}

	return Message{Type: string(event.EventType()), Payload: payload}
}
