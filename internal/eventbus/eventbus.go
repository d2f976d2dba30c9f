// Package eventbus implements the in-process, type-keyed domain-event
// pub/sub described in spec §4.1. It is grounded on the teacher's
// InMemoryEventPublisher (internal/infrastructure/persistence) but keys
// subscriptions by event type rather than a single flat handler list,
// and awaits every handler before Publish returns.
package eventbus

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/ports"
)

// Bus is a process-wide, mutex-guarded typed event bus. The zero value
// is not usable; construct with New.
type Bus struct {
	mu       sync.RWMutex
	handlers map[domain.EventType][]ports.EventHandler
	logger   *log.Logger
	// published records every event ever published, for test assertions
	// and for the web/TUI dashboards' recent-activity feed.
	published []domain.DomainEvent
}

// New constructs an empty Bus. A nil logger falls back to a default
// charmbracelet/log logger writing to stderr, matching the teacher's CLI
// logging setup.
func New(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Default()
	}
	return &Bus{
		handlers: make(map[domain.EventType][]ports.EventHandler),
		logger:   logger,
	}
}

// Subscribe registers handler for eventType. Handlers for a given type
// are invoked in registration order.
func (b *Bus) Subscribe(eventType domain.EventType, handler ports.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish delivers each event, in order, to every handler registered for
// its type. Publish returns only after every handler for every event has
// completed or failed (spec §4.1: "synchronous to the publisher").
// Handler errors are logged and never abort delivery to sibling handlers
// or to subsequent events.
func (b *Bus) Publish(ctx context.Context, events []domain.DomainEvent) error {
	for _, event := range events {
		b.mu.RLock()
		handlers := append([]ports.EventHandler(nil), b.handlers[event.EventType()]...)
		b.mu.RUnlock()

		for _, handler := range handlers {
			if err := handler(ctx, event); err != nil {
				b.logger.Error("event handler failed",
					"event_type", event.EventType(),
					"event_id", event.EventID(),
					"aggregate_id", event.AggregateID(),
					"error", err,
				)
			}
		}

		b.mu.Lock()
		b.published = append(b.published, event)
		b.mu.Unlock()
	}
	return nil
}

// Published returns a snapshot of every event published so far, oldest
// first. Intended for tests and for dashboards that want a recent-
// activity feed without a dedicated subscriber.
func (b *Bus) Published() []domain.DomainEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.DomainEvent(nil), b.published...)
}

var _ ports.EventBusPort = (*Bus)(nil)
