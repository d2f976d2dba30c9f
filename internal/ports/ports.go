// Package ports declares the eight capability interfaces the core
// consumes and never implements: build tooling, session hosting, remote
// execution, cloud discovery, the event bus, orchestrator RPC, ITSM, and
// notifications. Per spec §9, these are the only polymorphism points in
// the core; the composition root wires concrete adapters into them.
package ports

import (
	"context"

	"github.com/chimera-systems/chimera/internal/domain"
)

// BuildPort turns a declarative configuration path into a fingerprint
// and materializes or shells into the resulting closure. Implemented
// externally by the build tool; out of scope for the core (spec §1).
type BuildPort interface {
	Build(ctx context.Context, path domain.ConfigPath) (domain.Fingerprint, error)
	Instantiate(ctx context.Context, path domain.ConfigPath) (string, error)
	Shell(ctx context.Context, path domain.ConfigPath, cmd string) (string, error)
}

// SessionPort manages persistent, long-lived command sessions on a node.
type SessionPort interface {
	Create(ctx context.Context, id domain.SessionId) (bool, error)
	List(ctx context.Context) ([]domain.SessionId, error)
	Kill(ctx context.Context, id domain.SessionId) (bool, error)
	Run(ctx context.Context, id domain.SessionId, cmd string) (bool, error)
	Attach(ctx context.Context, id domain.SessionId) (string, error)
}

// RemoteExecutorPort copies closures to nodes and runs shell commands and
// rollbacks on them.
type RemoteExecutorPort interface {
	SyncClosure(ctx context.Context, node domain.Node, fp domain.Fingerprint) error
	Exec(ctx context.Context, node domain.Node, cmd string) error
	CurrentFingerprint(ctx context.Context, node domain.Node) (domain.Fingerprint, bool, error)
	Rollback(ctx context.Context, node domain.Node, generation *int) error
}

// CloudProviderPort discovers and manages cloud-hosted nodes.
type CloudProviderPort interface {
	Discover(ctx context.Context, filters map[string]string) ([]domain.Node, error)
	Provision(ctx context.Context, name, instanceType, region string, opts map[string]string) (domain.Node, error)
	Decommission(ctx context.Context, node domain.Node) error
	Metadata(ctx context.Context, node domain.Node) (map[string]string, error)
}

// EventHandler processes one published domain event. Handler errors are
// caught by the bus, logged, and never abort delivery to siblings.
type EventHandler func(ctx context.Context, event domain.DomainEvent) error

// EventBusPort is the in-process typed pub/sub coordination primitive
// described in spec §4.1.
type EventBusPort interface {
	Publish(ctx context.Context, events []domain.DomainEvent) error
	Subscribe(eventType domain.EventType, handler EventHandler)
}

// OrchestratorPort exchanges health, drift, and healing-command state
// with an external fleet orchestrator over RPC.
type OrchestratorPort interface {
	ReportHealth(ctx context.Context, node domain.Node, healthy bool) error
	ReportDrift(ctx context.Context, report domain.DriftReport) error
	FetchHealingCommand(ctx context.Context, node domain.Node) (string, error)
	AcknowledgeHealing(ctx context.Context, node domain.Node, commandID string) error
}

// ITSMPort files and manages incident tickets in an external tracker.
type ITSMPort interface {
	CreateIncident(ctx context.Context, title, description string, severity domain.DriftSeverity, nodeID string) (string, error)
	Update(ctx context.Context, ticketID, note string) error
	Resolve(ctx context.Context, ticketID, resolution string) error
	Get(ctx context.Context, ticketID string) (map[string]any, error)
}

// NotificationPort sends alerts and resolution notices to an external
// alert sink.
type NotificationPort interface {
	SendAlert(ctx context.Context, title, message string, severity domain.DriftSeverity, nodeID string) error
	SendResolution(ctx context.Context, title, message, nodeID string) error
}
