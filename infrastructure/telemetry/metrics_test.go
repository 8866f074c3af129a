package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupTestMetrics sets up a test meter provider and returns it along with a reader.
func setupTestMetrics(t *testing.T) (*metric.ManualReader, *MetricsProvider) {
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(provider)

	mp := NewMetricsProvider(DefaultMetricsConfig())
	if mp.Error() != nil {
		t.Fatalf("failed to create metrics provider: %v", mp.Error())
	}

	return reader, mp
}

// counterTotal sums the data points of a named Int64 counter.
func counterTotal(t *testing.T, reader *metric.ManualReader, name string) (int64, bool) {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s: expected Sum[int64], got %T", name, m.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total, true
		}
	}
	return 0, false
}

func TestNewMetricsProvider(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	if mp == nil {
		t.Fatal("NewMetricsProvider returned nil")
	}
	if mp.Error() != nil {
		t.Errorf("unexpected error: %v", mp.Error())
	}
}

func TestMetricsProvider_RecordCall(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	ctx := context.Background()

	mp.RecordCall(ctx, "create_transcription", true, false, 100*time.Millisecond)
	mp.RecordCall(ctx, "get_transcription", false, false, 50*time.Millisecond)

	total, found := counterTotal(t, reader, "scribe.calls")
	if !found {
		t.Fatal("scribe.calls metric not found")
	}
	if total != 2 {
		t.Errorf("scribe.calls = %d, want 2", total)
	}
}

func TestMetricsProvider_RecordCacheHitAndMiss(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	ctx := context.Background()

	mp.RecordCacheHit(ctx, "get_transcription")
	mp.RecordCacheHit(ctx, "get_transcription")
	mp.RecordCacheMiss(ctx, "get_transcription")

	hits, found := counterTotal(t, reader, "scribe.cache.hits")
	if !found || hits != 2 {
		t.Errorf("scribe.cache.hits = %d (found=%v), want 2", hits, found)
	}
}

func TestMetricsProvider_RecordRateLimitDenial(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	ctx := context.Background()

	mp.RecordRateLimitDenial(ctx, "minute window quota reached")
	mp.RecordRateLimitDenial(ctx, "concurrency limit reached")

	total, found := counterTotal(t, reader, "scribe.ratelimit.denials")
	if !found || total != 2 {
		t.Errorf("scribe.ratelimit.denials = %d (found=%v), want 2", total, found)
	}
}

func TestMetricsProvider_RecordDedupSuppression(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	mp.RecordDedupSuppression(context.Background(), "create_transcription")

	total, found := counterTotal(t, reader, "scribe.dedup.suppressions")
	if !found || total != 1 {
		t.Errorf("scribe.dedup.suppressions = %d (found=%v), want 1", total, found)
	}
}

func TestMetricsProvider_RecordFailure(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	mp.RecordFailure(context.Background(), "rate_limited", "quota")

	total, found := counterTotal(t, reader, "scribe.failures")
	if !found || total != 1 {
		t.Errorf("scribe.failures = %d (found=%v), want 1", total, found)
	}
}

func TestMetricsProvider_ActiveCallsGauge(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	ctx := context.Background()

	mp.IncrementActiveCalls(ctx)
	mp.IncrementActiveCalls(ctx)
	mp.DecrementActiveCalls(ctx)

	total, found := counterTotal(t, reader, "scribe.calls.active")
	if !found || total != 1 {
		t.Errorf("scribe.calls.active = %d (found=%v), want 1", total, found)
	}
}

func TestNoopMetricsProvider(t *testing.T) {
	t.Parallel()

	// Must not panic.
	n := &NoopMetricsProvider{}
	ctx := context.Background()
	n.RecordCall(ctx, "create_transcription", true, false, time.Second)
	n.RecordCacheHit(ctx, "x")
	n.RecordCacheMiss(ctx, "x")
	n.RecordRateLimitDenial(ctx, "x")
	n.RecordDedupSuppression(ctx, "x")
	n.RecordFailure(ctx, "x", "y")
	n.RecordQueueDelay(ctx, time.Second)
	n.IncrementActiveCalls(ctx)
	n.DecrementActiveCalls(ctx)
}
