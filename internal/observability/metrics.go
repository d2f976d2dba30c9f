// Package observability wires Chimera's fleet events into Prometheus
// metrics and OpenTelemetry traces.
package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/eventbus"
)

// Metrics collects Prometheus counters from the domain event stream, so
// anything publishing to the Event Bus is scraped for free.
type Metrics struct {
	registry *prometheus.Registry

	deploymentsTotal    *prometheus.CounterVec
	rollbacksTotal      *prometheus.CounterVec
	playbookRunsTotal   *prometheus.CounterVec
	healingSkippedTotal prometheus.Counter
}

var metricEventTypes = []domain.EventType{
	domain.EventTypeDeploymentCompleted,
	domain.EventTypeDeploymentFailed,
	domain.EventTypeDeploymentRolledBack,
	domain.EventTypePlaybookCompleted,
	domain.EventTypePlaybookFailed,
	domain.EventTypePlaybookRolledBack,
	domain.EventTypeHealingSkipped,
}

// NewMetrics constructs a Metrics collector registered against a
// dedicated registry, so multiple independent instances can coexist in
// tests without colliding on the default global registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		deploymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chimera",
			Name:      "deployments_total",
			Help:      "Deployments by terminal outcome.",
		}, []string{"outcome"}),
		rollbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chimera",
			Name:      "rollbacks_total",
			Help:      "Per-node rollbacks by outcome.",
		}, []string{"outcome"}),
		playbookRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chimera",
			Name:      "playbook_runs_total",
			Help:      "Playbook runs by terminal outcome.",
		}, []string{"outcome"}),
		healingSkippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chimera",
			Name:      "healing_skipped_total",
			Help:      "Healing plans skipped for lack of authorization.",
		}),
	}
	m.registry.MustRegister(m.deploymentsTotal, m.rollbacksTotal, m.playbookRunsTotal, m.healingSkippedTotal)
	return m
}

// Handler exposes the registry over the Prometheus text exposition
// format, for mounting at the dashboard's /metrics route.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Wire subscribes every metric-relevant event type on bus, so
// deployments, rollbacks, playbook runs, and skipped healing plans are
// counted regardless of which use case published them.
func (m *Metrics) Wire(bus *eventbus.Bus) {
	for _, t := range metricEventTypes {
		bus.Subscribe(t, m.handle)
	}
}

func (m *Metrics) handle(_ context.Context, event domain.DomainEvent) error {
	switch e := event.(type) {
	case domain.DeploymentCompleted:
		m.deploymentsTotal.WithLabelValues("completed").Inc()
	case domain.DeploymentFailed:
		m.deploymentsTotal.WithLabelValues("failed").Inc()
	case domain.DeploymentRolledBack:
		if e.Succeeded {
			m.rollbacksTotal.WithLabelValues("succeeded").Inc()
		} else {
			m.rollbacksTotal.WithLabelValues("failed").Inc()
		}
	case domain.PlaybookCompleted:
		m.playbookRunsTotal.WithLabelValues("completed").Inc()
	case domain.PlaybookFailed:
		m.playbookRunsTotal.WithLabelValues("failed").Inc()
	case domain.PlaybookRolledBack:
		m.playbookRunsTotal.WithLabelValues("rolled_back").Inc()
	case domain.HealingSkipped:
		m.healingSkippedTotal.Inc()
	}
	return nil
}
