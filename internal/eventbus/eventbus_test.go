package eventbus

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/ports"
)

// TestPublishAwaitsAllHandlers is universal property 8 in spec §8: every
// handler subscribed to typeof(e) observes e before Publish returns.
func TestPublishAwaitsAllHandlers(t *testing.T) {
	bus := New(nil)
	var mu sync.Mutex
	var seen []string

	bus.Subscribe(domain.EventTypeDeploymentStarted, func(ctx context.Context, e domain.DomainEvent) error {
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		seen = append(seen, "handler1")
		mu.Unlock()
		return nil
	})
	bus.Subscribe(domain.EventTypeDeploymentStarted, func(ctx context.Context, e domain.DomainEvent) error {
		mu.Lock()
		seen = append(seen, "handler2")
		mu.Unlock()
		return nil
	})

	event := domain.NewDeploymentStarted("d1", time.Now(), "/c", "s1")
	err := bus.Publish(context.Background(), []domain.DomainEvent{event})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"handler1", "handler2"}, seen)
}

func TestPublishDeliversInInputOrder(t *testing.T) {
	bus := New(nil)
	var order []string
	bus.Subscribe(domain.EventTypeDeploymentStarted, func(ctx context.Context, e domain.DomainEvent) error {
		order = append(order, "started:"+e.EventID())
		return nil
	})
	bus.Subscribe(domain.EventTypeBuildCompleted, func(ctx context.Context, e domain.DomainEvent) error {
		order = append(order, "built:"+e.EventID())
		return nil
	})

	e1 := domain.NewDeploymentStarted("d1", time.Now(), "/c", "s1")
	e2 := domain.NewBuildCompleted("d1", time.Now(), "fp")
	require.NoError(t, bus.Publish(context.Background(), []domain.DomainEvent{e1, e2}))

	require.Len(t, order, 2)
	assert.Equal(t, "started:"+e1.EventID(), order[0])
	assert.Equal(t, "built:"+e2.EventID(), order[1])
}

func TestPublishSwallowsHandlerErrors(t *testing.T) {
	bus := New(nil)
	called := false
	bus.Subscribe(domain.EventTypeDeploymentFailed, func(ctx context.Context, e domain.DomainEvent) error {
		return fmt.Errorf("boom")
	})
	bus.Subscribe(domain.EventTypeDeploymentFailed, func(ctx context.Context, e domain.DomainEvent) error {
		called = true
		return nil
	})

	err := bus.Publish(context.Background(), []domain.DomainEvent{
		domain.NewDeploymentFailed("d1", time.Now(), "boom"),
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestPublishedRecordsHistory(t *testing.T) {
	bus := New(nil)
	e := domain.NewDeploymentStarted("d1", time.Now(), "/c", "s1")
	require.NoError(t, bus.Publish(context.Background(), []domain.DomainEvent{e}))
	assert.Len(t, bus.Published(), 1)
}

var _ ports.EventBusPort = (*Bus)(nil)
