// Package container wires Chimera's ports, core services, and
// application use cases into a single dependency graph, grounded on
// the teacher's DDDContainer composition root.
package container

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/chimera-systems/chimera/internal/analytics"
	"github.com/chimera-systems/chimera/internal/application/autonomousloop"
	"github.com/chimera-systems/chimera/internal/application/deployfleet"
	"github.com/chimera-systems/chimera/internal/application/executelocal"
	"github.com/chimera-systems/chimera/internal/application/rollback"
	"github.com/chimera-systems/chimera/internal/config"
	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/drift"
	chimeraerrors "github.com/chimera-systems/chimera/internal/errors"
	"github.com/chimera-systems/chimera/internal/eventbus"
	"github.com/chimera-systems/chimera/internal/history"
	"github.com/chimera-systems/chimera/internal/infrastructure/nixbuild"
	"github.com/chimera-systems/chimera/internal/infrastructure/sqliteregistry"
	"github.com/chimera-systems/chimera/internal/infrastructure/sshexec"
	"github.com/chimera-systems/chimera/internal/observability"
	"github.com/chimera-systems/chimera/internal/playbookengine"
	"github.com/chimera-systems/chimera/internal/ports"
	"github.com/chimera-systems/chimera/internal/registry"
	"github.com/chimera-systems/chimera/internal/rootcause"
	"github.com/chimera-systems/chimera/internal/slotracker"
)

// Closeable represents a component that must release resources at
// shutdown.
type Closeable interface {
	Close() error
}

// Container is Chimera's composition root: it owns every port adapter
// and wires them into the core services and use cases the CLI and
// server surfaces consume.
type Container struct {
	config *config.Config
	logger *log.Logger

	mu     sync.Mutex
	closed bool

	// Port adapters.
	build    *nixbuild.Adapter
	executor *sshexec.Adapter
	bus      *eventbus.Bus
	registryStore *sqliteregistry.Store

	// Shared state.
	history  *history.Store
	registry *registry.Registry
	policy   domain.Policy

	// Core services.
	Drift      *drift.Service
	Analytics  *analytics.Service
	RootCause  *rootcause.Correlator
	SLOs       *slotracker.Tracker
	Playbooks  *playbookengine.Engine
	Metrics    *observability.Metrics

	tracerShutdown func(context.Context) error

	// Application use cases.
	DeployFleet   *deployfleet.UseCase
	Rollback      *rollback.UseCase
	ExecuteLocal  *executelocal.UseCase
	AutonomousLoop *autonomousloop.Loop

	closeables []Closeable
}

// New builds a Container from cfg. It does not start any background
// process; callers invoke the use case or service they need.
func New(cfg *config.Config, logger *log.Logger) (*Container, error) {
	const op = "container.New"
	if cfg == nil {
		return nil, chimeraerrors.Config(op, "configuration is required")
	}
	if logger == nil {
		logger = log.Default()
	}

	now := time.Now

	c := &Container{config: cfg, logger: logger}

	c.build = nixbuild.New(cfg.Nix.Binary, cfg.Nix.BuildTimeout)
	c.executor = sshexec.New("", "", "", "/nix/store")
	c.bus = eventbus.New(logger)

	c.history = history.NewStore()
	for _, nodeID := range cfg.Fleet.ProductionNodeIDs {
		c.history.TagProduction(nodeID, true)
	}

	c.registry = registry.New(time.Duration(cfg.Agent.HeartbeatSeconds)*time.Second, now)
	c.policy = domain.NewPolicy()

	c.Drift = drift.New(c.executor, c.history, now)
	c.Analytics = analytics.New(c.history, now)
	c.RootCause = rootcause.New(c.history, rootcause.DefaultConfig())
	c.SLOs = slotracker.New(now)
	c.Playbooks = playbookengine.New(c.executor, c.build, c.bus, now, logger)

	c.DeployFleet = deployfleet.New(c.build, c.executor, c.executor, c.bus, now, logger)
	c.Rollback = rollback.New(c.executor, c.bus, now)
	c.ExecuteLocal = executelocal.New(c.build, c.executor, now, logger)
	c.AutonomousLoop = autonomousloop.New(c.build, c.executor, c.Drift, c.DeployFleet, c.Rollback, c.bus, c.policy, nil, now, logger)

	c.Metrics = observability.NewMetrics()
	c.Metrics.Wire(c.bus)

	shutdown, err := observability.InitTracer(observability.TracerConfig{
		Enabled:        cfg.Telemetry.Tracing.Enabled,
		ServiceName:    "chimera",
		ServiceVersion: "dev",
		Environment:    "production",
	})
	if err != nil {
		return nil, chimeraerrors.Wrap(err, chimeraerrors.KindConfig, op, "init tracer")
	}
	c.tracerShutdown = shutdown

	if err := c.initRegistryPersistence(); err != nil {
		logger.Warn("registry persistence unavailable, running with in-memory registry only", "err", err)
	}

	return c, nil
}

func (c *Container) initRegistryPersistence() error {
	if c.config.Agent.NodeID == "" {
		return nil
	}
	store, err := sqliteregistry.Open("/var/lib/chimera/registry.db")
	if err != nil {
		return err
	}
	c.registryStore = store
	c.registerCloseable(store)

	snapshot, err := store.Load()
	if err != nil {
		return err
	}
	for nodeID, entry := range snapshot {
		c.registry.Heartbeat(entry.Node)
		if entry.LastDriftReport != nil {
			c.registry.RecordDrift(nodeID, *entry.LastDriftReport)
		}
	}
	return nil
}

// EventBus exposes the shared bus so the CLI and server surfaces can
// subscribe to fleet events.
func (c *Container) EventBus() *eventbus.Bus {
	return c.bus
}

// Registry exposes the shared Agent Registry.
func (c *Container) Registry() *registry.Registry {
	return c.registry
}

// Build exposes the shared BuildPort adapter.
func (c *Container) Build() ports.BuildPort {
	return c.build
}

// Executor exposes the shared RemoteExecutorPort adapter.
func (c *Container) Executor() ports.RemoteExecutorPort {
	return c.executor
}

// Session exposes the shared SessionPort adapter for commands (`run`,
// `attach`) that operate on a named session directly, bypassing the
// deploy/rollback use cases.
func (c *Container) Session() ports.SessionPort {
	return c.executor
}

// History exposes the shared history store.
func (c *Container) History() *history.Store {
	return c.history
}

// Policy returns the currently active RBAC policy.
func (c *Container) Policy() domain.Policy {
	return c.policy
}

// SetPolicy replaces the active RBAC policy, e.g. after an operator
// edits role bindings through the web dashboard.
func (c *Container) SetPolicy(p domain.Policy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policy = p
}

func (c *Container) registerCloseable(closeable Closeable) {
	if closeable != nil {
		c.closeables = append(c.closeables, closeable)
	}
}

// PersistRegistrySnapshot flushes the in-memory registry to durable
// storage, when persistence is configured.
func (c *Container) PersistRegistrySnapshot(_ context.Context) error {
	if c.registryStore == nil {
		return nil
	}
	return c.registryStore.Save(c.registry.All())
}

// Close releases every registered resource in LIFO order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var firstErr error
	if c.tracerShutdown != nil {
		if err := c.tracerShutdown(context.Background()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for i := len(c.closeables) - 1; i >= 0; i-- {
		if err := c.closeables[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
