package websocket

import (
	"testing"
	"time"

	"github.com/chimera-systems/chimera/internal/domain"
)

func TestEventBroadcaster_EventToMessage(t *testing.T) {
	hub := NewHub()
	broadcaster := NewEventBroadcaster(hub)

	tests := []struct {
		name         string
		event        domain.DomainEvent
		expectedType string
	}{
		{
			name:         "DeploymentStarted",
			event:        domain.NewDeploymentStarted("agg-1", time.Now(), mustConfigPath(t), mustSessionID(t)),
			expectedType: "DeploymentStarted",
		},
		{
			name:         "BuildCompleted",
			event:        domain.NewBuildCompleted("agg-1", time.Now(), domain.Fingerprint("fp-1")),
			expectedType: "BuildCompleted",
		},
		{
			name:         "DeploymentFailed",
			event:        domain.NewDeploymentFailed("agg-1", time.Now(), "boom"),
			expectedType: "DeploymentFailed",
		},
		{
			name:         "PlaybookFailed",
			event:        domain.NewPlaybookFailed("agg-1", time.Now(), "pb-1", "restart"),
			expectedType: "PlaybookFailed",
		},
		{
			name:         "HealingSkipped",
			event:        domain.NewHealingSkipped("agg-1", time.Now(), "policy denied"),
			expectedType: "HealingSkipped",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := broadcaster.eventToMessage(tt.event)
			if msg.Type != tt.expectedType {
				t.Errorf("expected message type %q, got %q", tt.expectedType, msg.Type)
			}
			payload, ok := msg.Payload.(map[string]any)
			if !ok {
				t.Fatal("expected payload to be map[string]any")
			}
			if _, ok := payload["occurred_at"]; !ok {
				t.Error("expected occurred_at in payload")
			}
		})
	}
}

func mustConfigPath(t *testing.T) domain.ConfigPath {
	t.Helper()
	cp, err := domain.NewConfigPath("/etc/chimera/fleet.nix")
	if err != nil {
		t.Fatal(err)
	}
	return cp
}

func mustSessionID(t *testing.T) domain.SessionId {
	t.Helper()
	sid, err := domain.NewSessionId("test-session")
	if err != nil {
		t.Fatal(err)
	}
	return sid
}
