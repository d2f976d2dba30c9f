// Package portutil wraps Fortify resilience patterns around the
// RemoteExecutorPort's ssh/rsync calls, grounded on the teacher's AI
// adapter resilience wrapper: retry with backoff and a per-node
// circuit breaker so one unreachable node's failures don't
// exhaust retries against the rest of the fleet.
package portutil

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
)

// Config configures the resilience wrapper applied to node operations.
type Config struct {
	RetryAttempts    int
	RetryInitialWait time.Duration
	RetryMaxWait     time.Duration

	CircuitBreakerThreshold   int
	CircuitBreakerTimeout     time.Duration
	CircuitBreakerMaxRequests int
}

// DefaultConfig returns sensible defaults for ssh/rsync operations
// against fleet nodes: three attempts with exponential backoff, and a
// circuit that opens after five consecutive failures.
func DefaultConfig() Config {
	return Config{
		RetryAttempts:             3,
		RetryInitialWait:          500 * time.Millisecond,
		RetryMaxWait:              5 * time.Second,
		CircuitBreakerThreshold:   5,
		CircuitBreakerTimeout:     30 * time.Second,
		CircuitBreakerMaxRequests: 1,
	}
}

// Resilience retries transient ssh/rsync failures and trips a
// per-node circuit breaker once a node stops responding, so a fleet-wide
// deploy or drift check fails fast on unreachable nodes instead of
// retrying every one of them for the full backoff schedule.
type Resilience struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]circuitbreaker.CircuitBreaker[string]
}

// New constructs a Resilience wrapper.
func New(cfg Config) *Resilience {
	return &Resilience{cfg: cfg, breakers: make(map[string]circuitbreaker.CircuitBreaker[string])}
}

func (r *Resilience) breakerFor(nodeID string) circuitbreaker.CircuitBreaker[string] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[nodeID]; ok {
		return cb
	}
	threshold := r.cfg.CircuitBreakerThreshold
	cb := circuitbreaker.New[string](circuitbreaker.Config{
		MaxRequests: uint32(r.cfg.CircuitBreakerMaxRequests), // #nosec G115 -- bounded config value
		Interval:    r.cfg.CircuitBreakerTimeout,
		Timeout:     r.cfg.CircuitBreakerTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- bounded config value
		},
	})
	r.breakers[nodeID] = cb
	return cb
}

// Execute runs op against nodeID through the retry-then-circuit-breaker
// pipeline, returning op's string result (empty for exec-only calls that
// carry no output).
func (r *Resilience) Execute(ctx context.Context, nodeID string, op func(context.Context) (string, error)) (string, error) {
	if r == nil {
		return op(ctx)
	}

	cb := r.breakerFor(nodeID)
	return cb.Execute(ctx, func(ctx context.Context) (string, error) {
		return r.retrier().Do(ctx, op)
	})
}

func (r *Resilience) retrier() retry.Retry[string] {
	return retry.New[string](retry.Config{
		MaxAttempts:   r.cfg.RetryAttempts,
		InitialDelay:  r.cfg.RetryInitialWait,
		MaxDelay:      r.cfg.RetryMaxWait,
		BackoffPolicy: retry.BackoffExponential,
		Multiplier:    2.0,
		Jitter:        true,
		IsRetryable:   isRetryable,
	})
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection reset", "no route to host", "timed out", "timeout", "broken pipe", "i/o timeout"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// State returns the circuit breaker state for nodeID: "closed",
// "half-open", "open", or "unknown" if no breaker has been created yet.
func (r *Resilience) State(nodeID string) string {
	r.mu.Lock()
	cb, ok := r.breakers[nodeID]
	r.mu.Unlock()
	if !ok {
		return "unknown"
	}
	return cb.State().String()
}
