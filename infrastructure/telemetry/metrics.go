// Package telemetry provides OpenTelemetry metrics for the coordination
// layer: call counts, cache effectiveness, rate-limit pressure, and
// dedup suppression.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsProvider provides access to metrics instruments.
type MetricsProvider struct {
	meter metric.Meter

	// Counters
	calls             metric.Int64Counter
	cacheHits         metric.Int64Counter
	cacheMisses       metric.Int64Counter
	rateLimitDenials  metric.Int64Counter
	dedupSuppressions metric.Int64Counter
	failures          metric.Int64Counter

	// Histograms
	callDuration metric.Float64Histogram
	queueDelay   metric.Float64Histogram

	// Gauges (using UpDownCounter for OpenTelemetry)
	activeCalls metric.Int64UpDownCounter

	initOnce sync.Once
	initErr  error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter.
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/meetscribe/scribe-go",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a new metrics provider on the global meter
// provider.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	if config.MeterName == "" {
		config = DefaultMetricsConfig()
	}

	provider := otel.GetMeterProvider()
	meter := provider.Meter(
		config.MeterName,
		metric.WithInstrumentationVersion(config.MeterVersion),
	)

	mp := &MetricsProvider{
		meter: meter,
	}

	mp.initOnce.Do(func() {
		mp.initErr = mp.initInstruments()
	})

	return mp
}

// initInstruments initializes all metric instruments.
func (mp *MetricsProvider) initInstruments() error {
	var err error

	mp.calls, err = mp.meter.Int64Counter(
		"scribe.calls",
		metric.WithDescription("Number of coordinated API calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	mp.cacheHits, err = mp.meter.Int64Counter(
		"scribe.cache.hits",
		metric.WithDescription("Number of cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	mp.cacheMisses, err = mp.meter.Int64Counter(
		"scribe.cache.misses",
		metric.WithDescription("Number of cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return err
	}

	mp.rateLimitDenials, err = mp.meter.Int64Counter(
		"scribe.ratelimit.denials",
		metric.WithDescription("Number of rate limit denials"),
		metric.WithUnit("{denial}"),
	)
	if err != nil {
		return err
	}

	mp.dedupSuppressions, err = mp.meter.Int64Counter(
		"scribe.dedup.suppressions",
		metric.WithDescription("Number of duplicate in-flight calls suppressed"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	mp.failures, err = mp.meter.Int64Counter(
		"scribe.failures",
		metric.WithDescription("Number of classified call failures"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return err
	}

	mp.callDuration, err = mp.meter.Float64Histogram(
		"scribe.call.duration",
		metric.WithDescription("Duration of coordinated API calls"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.queueDelay, err = mp.meter.Float64Histogram(
		"scribe.queue.delay",
		metric.WithDescription("Time spent waiting for rate-limit admission"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.activeCalls, err = mp.meter.Int64UpDownCounter(
		"scribe.calls.active",
		metric.WithDescription("Number of in-flight API calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

// RecordCall records one completed coordinator invocation.
func (mp *MetricsProvider) RecordCall(ctx context.Context, callType string, success, fromCache bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("call.type", callType),
		attribute.Bool("success", success),
		attribute.Bool("from_cache", fromCache),
	}

	mp.calls.Add(ctx, 1, metric.WithAttributes(attrs...))
	mp.callDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordCacheHit records a response-cache hit.
func (mp *MetricsProvider) RecordCacheHit(ctx context.Context, callType string) {
	mp.cacheHits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("call.type", callType),
	))
}

// RecordCacheMiss records a response-cache miss.
func (mp *MetricsProvider) RecordCacheMiss(ctx context.Context, callType string) {
	mp.cacheMisses.Add(ctx, 1, metric.WithAttributes(
		attribute.String("call.type", callType),
	))
}

// RecordRateLimitDenial records one denied admission.
func (mp *MetricsProvider) RecordRateLimitDenial(ctx context.Context, reason string) {
	mp.rateLimitDenials.Add(ctx, 1, metric.WithAttributes(
		attribute.String("denial.reason", reason),
	))
}

// RecordDedupSuppression records a duplicate call served by a waiter.
func (mp *MetricsProvider) RecordDedupSuppression(ctx context.Context, callType string) {
	mp.dedupSuppressions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("call.type", callType),
	))
}

// RecordFailure records a classified failure.
func (mp *MetricsProvider) RecordFailure(ctx context.Context, kind, category string) {
	mp.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("failure.kind", kind),
		attribute.String("failure.category", category),
	))
}

// RecordQueueDelay records time spent waiting for admission.
func (mp *MetricsProvider) RecordQueueDelay(ctx context.Context, delay time.Duration) {
	mp.queueDelay.Record(ctx, float64(delay.Milliseconds()))
}

// IncrementActiveCalls increments the in-flight gauge.
func (mp *MetricsProvider) IncrementActiveCalls(ctx context.Context) {
	mp.activeCalls.Add(ctx, 1)
}

// DecrementActiveCalls decrements the in-flight gauge.
func (mp *MetricsProvider) DecrementActiveCalls(ctx context.Context) {
	mp.activeCalls.Add(ctx, -1)
}

// NoopMetricsProvider is a no-op metrics provider for testing or when
// metrics are disabled.
type NoopMetricsProvider struct{}

// RecordCall is a no-op.
func (n *NoopMetricsProvider) RecordCall(ctx context.Context, callType string, success, fromCache bool, duration time.Duration) {
}

// RecordCacheHit is a no-op.
func (n *NoopMetricsProvider) RecordCacheHit(ctx context.Context, callType string) {}

// RecordCacheMiss is a no-op.
func (n *NoopMetricsProvider) RecordCacheMiss(ctx context.Context, callType string) {}

// RecordRateLimitDenial is a no-op.
func (n *NoopMetricsProvider) RecordRateLimitDenial(ctx context.Context, reason string) {}

// RecordDedupSuppression is a no-op.
func (n *NoopMetricsProvider) RecordDedupSuppression(ctx context.Context, callType string) {}

// RecordFailure is a no-op.
func (n *NoopMetricsProvider) RecordFailure(ctx context.Context, kind, category string) {}

// RecordQueueDelay is a no-op.
func (n *NoopMetricsProvider) RecordQueueDelay(ctx context.Context, delay time.Duration) {}

// IncrementActiveCalls is a no-op.
func (n *NoopMetricsProvider) IncrementActiveCalls(ctx context.Context) {}

// DecrementActiveCalls is a no-op.
func (n *NoopMetricsProvider) DecrementActiveCalls(ctx context.Context) {}

// Metrics defines the interface for metrics recording.
type Metrics interface {
	RecordCall(ctx context.Context, callType string, success, fromCache bool, duration time.Duration)
	RecordCacheHit(ctx context.Context, callType string)
	RecordCacheMiss(ctx context.Context, callType string)
	RecordRateLimitDenial(ctx context.Context, reason string)
	RecordDedupSuppression(ctx context.Context, callType string)
	RecordFailure(ctx context.Context, kind, category string)
	RecordQueueDelay(ctx context.Context, delay time.Duration)
	IncrementActiveCalls(ctx context.Context)
	DecrementActiveCalls(ctx context.Context)
}

// Ensure implementations satisfy the interface.
var (
	_ Metrics = (*MetricsProvider)(nil)
	_ Metrics = (*NoopMetricsProvider)(nil)
)
