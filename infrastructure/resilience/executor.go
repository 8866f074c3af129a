// Package resilience wraps transport dispatch with fortify's bulkhead and
// circuit breaker patterns.
package resilience

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"

	"github.com/meetscribe/scribe-go/domain/call"
)

// Executor decorates a call.Transport with a bulkhead, a per-dispatch
// timeout, and a circuit breaker, in that order. It performs no retries:
// retry decisions belong to the classifier and the coordinator's caller.
//
// Rejections that never reach the inner transport are converted to
// *call.RawFailure so the classifier sees a closed type: a bulkhead
// rejection classifies as a concurrency limit, an open breaker as
// service unavailability.
type Executor struct {
	inner    call.Transport
	bulkhead bulkhead.Bulkhead[any]
	breaker  circuitbreaker.CircuitBreaker[any]
	timeout  time.Duration
}

// ExecutorConfig configures the resilient executor.
type ExecutorConfig struct {
	// MaxConcurrent limits concurrent dispatches.
	MaxConcurrent int

	// CircuitBreakerThreshold is the number of consecutive failures
	// before the circuit opens.
	CircuitBreakerThreshold int

	// CircuitBreakerTimeout is how long the circuit stays open.
	CircuitBreakerTimeout time.Duration

	// DefaultTimeout bounds a single dispatch when the request carries
	// no timeout of its own.
	DefaultTimeout time.Duration
}

// DefaultExecutorConfig returns a configuration with sensible defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxConcurrent:           10,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
		DefaultTimeout:          30 * time.Second,
	}
}

// Option configures the executor.
type Option func(*ExecutorConfig)

// WithMaxConcurrent sets the maximum concurrent dispatches.
func WithMaxConcurrent(n int) Option {
	return func(c *ExecutorConfig) {
		c.MaxConcurrent = n
	}
}

// WithCircuitBreakerThreshold sets the consecutive-failure threshold.
func WithCircuitBreakerThreshold(n int) Option {
	return func(c *ExecutorConfig) {
		c.CircuitBreakerThreshold = n
	}
}

// WithCircuitBreakerTimeout sets the circuit's open duration.
func WithCircuitBreakerTimeout(d time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.CircuitBreakerTimeout = d
	}
}

// WithTimeout sets the default dispatch timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.DefaultTimeout = d
	}
}

// NewExecutor wraps the inner transport with the given configuration.
func NewExecutor(inner call.Transport, config ExecutorConfig, opts ...Option) *Executor {
	for _, opt := range opts {
		opt(&config)
	}

	maxConcurrent := config.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultExecutorConfig().MaxConcurrent
	}
	threshold := config.CircuitBreakerThreshold
	if threshold <= 0 {
		threshold = DefaultExecutorConfig().CircuitBreakerThreshold
	}

	return &Executor{
		inner: inner,
		bulkhead: bulkhead.New[any](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
		}),
		breaker: circuitbreaker.New[any](circuitbreaker.Config{
			MaxRequests: uint32(maxConcurrent), // #nosec G115 -- bounds checked above
			Interval:    config.CircuitBreakerTimeout,
			Timeout:     config.CircuitBreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- bounds checked above
			},
		}),
		timeout: config.DefaultTimeout,
	}
}

// Dispatch implements call.Transport.
// Composition order: Bulkhead → Timeout → Circuit Breaker → inner.
func (e *Executor) Dispatch(ctx context.Context, client call.ClientHandle, req call.Request) (any, error) {
	timeout := e.timeout
	if req.Options.Timeout > 0 {
		timeout = req.Options.Timeout
	}

	// The flags tell infrastructure rejections (bulkhead full, breaker
	// open) apart from failures of the call itself.
	admitted := false
	dispatched := false

	result, err := e.bulkhead.Execute(ctx, func(ctx context.Context) (any, error) {
		admitted = true
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return e.breaker.Execute(ctx, func(ctx context.Context) (any, error) {
			dispatched = true
			return e.inner.Dispatch(ctx, client, req)
		})
	})
	if err != nil && !dispatched {
		return nil, rejectionFailure(admitted, err)
	}
	return result, err
}

// CircuitBreakerState returns the breaker's current state.
func (e *Executor) CircuitBreakerState() circuitbreaker.State {
	return e.breaker.State()
}

// rejectionFailure converts a pre-dispatch rejection into the closed
// failure shape. A rejection past the bulkhead means the breaker refused
// the call.
func rejectionFailure(admitted bool, err error) *call.RawFailure {
	if admitted {
		return &call.RawFailure{
			StatusCode: 503,
			ErrorCode:  "service_unavailable",
			Message:    "circuit breaker open: " + err.Error(),
		}
	}
	return &call.RawFailure{
		ErrorCode: "concurrent_limit",
		Message:   "transport concurrency limit reached: " + err.Error(),
	}
}
