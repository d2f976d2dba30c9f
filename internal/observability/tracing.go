package observability

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerConfig configures the tracing system.
type TracerConfig struct {
	// Enabled indicates whether tracing is enabled. Disabled installs a
	// noop tracer provider, so every Start call is free.
	Enabled bool
	// ServiceName identifies this process in emitted spans.
	ServiceName string
	// ServiceVersion is the running binary's version.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Writer receives the span exporter's output. Defaults to io.Discard
	// when nil; internal/container leaves it nil.
	Writer io.Writer
}

// DefaultTracerConfig returns a disabled tracer configuration.
func DefaultTracerConfig() TracerConfig {
	return TracerConfig{
		Enabled:        false,
		ServiceName:    "chimera",
		ServiceVersion: "unknown",
		Environment:    "development",
	}
}

// Span attribute keys used across the deployment and healing pipelines.
const (
	AttrNodeHost      = "chimera.node.host"
	AttrConfigPath    = "chimera.config.path"
	AttrFingerprint   = "chimera.fingerprint"
	AttrPlaybookID    = "chimera.playbook.id"
	AttrDriftSeverity = "chimera.drift.severity"
)

var (
	globalProvider trace.TracerProvider = noop.NewTracerProvider()
	globalTracer   trace.Tracer         = globalProvider.Tracer("chimera")
	globalMu       sync.RWMutex
)

// InitTracer installs the process-wide TracerProvider. A disabled config
// installs otel's noop provider, so callers never need to branch on
// whether tracing is on. Returns a shutdown func that flushes and stops
// the exporter; callers must invoke it once during process shutdown.
func InitTracer(cfg TracerConfig) (shutdown func(context.Context) error, err error) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if !cfg.Enabled {
		globalProvider = noop.NewTracerProvider()
		otel.SetTracerProvider(globalProvider)
		globalTracer = globalProvider.Tracer(cfg.ServiceName)
		return func(context.Context) error { return nil }, nil
	}

	writer := cfg.Writer
	if writer == nil {
		writer = io.Discard
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(writer), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("build stdout span exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		attribute.String("environment", cfg.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("build tracer resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	globalProvider = provider
	otel.SetTracerProvider(provider)
	globalTracer = provider.Tracer(cfg.ServiceName)

	return provider.Shutdown, nil
}

// Tracer returns the process-wide tracer.
func Tracer() trace.Tracer {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalTracer
}

// StartSpan starts a span on the process-wide tracer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// TraceFunc runs fn inside a span named name, recording fn's error (if
// any) on the span before returning it unchanged.
func TraceFunc(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := StartSpan(ctx, name)
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
