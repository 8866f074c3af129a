package ratelimit_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/meetscribe/scribe-go/domain/call"
	"github.com/meetscribe/scribe-go/domain/config"
	"github.com/meetscribe/scribe-go/infrastructure/ratelimit"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func testConfig() config.RateLimitConfig {
	cfg := config.DefaultRateLimitConfig()
	cfg.RequestsPerMinute = 5
	cfg.RequestsPerHour = 100
	cfg.RequestsPerDay = 1000
	cfg.ConcurrentRequests = 3
	return cfg
}

func request(id string, p call.Priority) call.Request {
	return call.Request{RequestID: id, CallType: call.TypeGetHealth, Priority: p}
}

func TestManager_MinuteWindow(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	m := ratelimit.NewManager(testConfig(), ratelimit.WithClock(clock.Now))

	// Five starts within one second exhaust the minute quota.
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("req-%d", i)
		if d := m.CanProcessRequest(request(id, call.PriorityNormal)); !d.Allowed {
			t.Fatalf("request %d denied: %s", i, d.Reason)
		}
		m.RecordRequestStart(id)
		m.RecordRequestCompletion(id, true, 100*time.Millisecond)
		clock.Advance(200 * time.Millisecond)
	}

	d := m.CanProcessRequest(request("req-5", call.PriorityNormal))
	if d.Allowed {
		t.Fatal("sixth request allowed with minute quota exhausted")
	}
	if d.Delay <= 0 {
		t.Errorf("Delay = %v, want positive", d.Delay)
	}

	// Past the window the quota frees up again.
	clock.Advance(61 * time.Second)
	if d := m.CanProcessRequest(request("req-5", call.PriorityNormal)); !d.Allowed {
		t.Errorf("request denied after window elapsed: %s", d.Reason)
	}
}

func TestManager_WindowDelayPointsAtOldestExpiry(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	m := ratelimit.NewManager(testConfig(), ratelimit.WithClock(clock.Now))

	for i := 0; i < 5; i++ {
		m.RecordRequestStart(fmt.Sprintf("req-%d", i))
	}
	clock.Advance(10 * time.Second)

	d := m.CanProcessRequest(request("req-5", call.PriorityNormal))
	if d.Allowed {
		t.Fatal("request allowed over quota")
	}
	// Oldest record expires in 50s; the reported delay adds a 1s buffer.
	want := 51 * time.Second
	if d.Delay != want {
		t.Errorf("Delay = %v, want %v", d.Delay, want)
	}
}

func TestManager_ConcurrencyCheckedFirst(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	m := ratelimit.NewManager(testConfig(), ratelimit.WithClock(clock.Now))

	// Fill all three concurrency slots without completing.
	for i := 0; i < 3; i++ {
		m.RecordRequestStart(fmt.Sprintf("req-%d", i))
	}

	d := m.CanProcessRequest(request("req-3", call.PriorityNormal))
	if d.Allowed {
		t.Fatal("request allowed over concurrency ceiling")
	}
	if d.Reason != "concurrency limit reached" {
		t.Errorf("Reason = %q, want concurrency reason first", d.Reason)
	}

	// Completing one frees a slot even though window counts are unchanged.
	m.RecordRequestCompletion("req-0", true, time.Second)
	if d := m.CanProcessRequest(request("req-3", call.PriorityNormal)); !d.Allowed {
		t.Errorf("request denied after slot freed: %s", d.Reason)
	}
}

func TestManager_AdaptiveShrink(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.ConcurrentRequests = 8
	cfg.RequestsPerMinute = 1000
	clock := newFakeClock()
	m := ratelimit.NewManager(cfg, ratelimit.WithClock(clock.Now))

	prev := m.ConcurrencyLimit()
	if prev != 8 {
		t.Fatalf("initial limit = %d, want 8", prev)
	}

	// Sustained failures shrink the limit monotonically toward 1.
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("fail-%d", i)
		m.RecordRequestStart(id)
		m.RecordRequestCompletion(id, false, 100*time.Millisecond)

		limit := m.ConcurrencyLimit()
		if limit > prev {
			t.Fatalf("limit grew from %d to %d under failures", prev, limit)
		}
		if limit < 1 {
			t.Fatalf("limit fell below 1: %d", limit)
		}
		prev = limit
	}
	if prev != 1 {
		t.Errorf("limit = %d after sustained failures, want 1", prev)
	}
}

func TestManager_AdaptiveGrow(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.ConcurrentRequests = 8
	cfg.RequestsPerMinute = 1000
	clock := newFakeClock()
	m := ratelimit.NewManager(cfg, ratelimit.WithClock(clock.Now))

	// Shrink first.
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("fail-%d", i)
		m.RecordRequestStart(id)
		m.RecordRequestCompletion(id, false, 100*time.Millisecond)
	}
	shrunk := m.ConcurrencyLimit()
	if shrunk >= 8 {
		t.Fatalf("limit did not shrink: %d", shrunk)
	}

	// Fast successes push the recent success rate above 95% and grow the
	// limit back toward the configured ceiling, one step per completion.
	for i := 0; i < 60; i++ {
		id := fmt.Sprintf("ok-%d", i)
		m.RecordRequestStart(id)
		m.RecordRequestCompletion(id, true, 50*time.Millisecond)
	}
	if got := m.ConcurrencyLimit(); got != 8 {
		t.Errorf("limit = %d after recovery, want 8", got)
	}
}

func TestManager_AdaptiveDisabled(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.EnableAdaptive = false
	m := ratelimit.NewManager(cfg)

	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("fail-%d", i)
		m.RecordRequestStart(id)
		m.RecordRequestCompletion(id, false, time.Second)
	}
	if got := m.ConcurrencyLimit(); got != cfg.ConcurrentRequests {
		t.Errorf("limit = %d with adaptive disabled, want %d", got, cfg.ConcurrentRequests)
	}
}

func TestManager_QueuePriorityOrder(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.ConcurrentRequests = 1
	clock := newFakeClock()
	m := ratelimit.NewManager(cfg, ratelimit.WithClock(clock.Now))

	// Occupy the only slot so everything queues.
	m.RecordRequestStart("holder")

	var order []string
	var mu sync.Mutex
	var wg sync.WaitGroup

	enqueue := func(id string, p call.Priority) {
		ready, _ := m.Enqueue(request(id, p))
		wg.Add(1)
		go func() {
			<-ready
			// Hold the slot so only one waiter is admitted per completion.
			m.RecordRequestStart(id)
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			wg.Done()
		}()
	}

	enqueue("low-1", call.PriorityLow)
	enqueue("normal-1", call.PriorityNormal)
	enqueue("urgent-1", call.PriorityUrgent)
	enqueue("normal-2", call.PriorityNormal)

	// Release slots one by one; each completion admits the highest
	// priority waiter (stable among equals).
	for i, id := range []string{"holder", "urgent-1", "normal-1", "normal-2"} {
		m.RecordRequestCompletion(id, true, time.Millisecond)
		// Give the woken goroutine time to record its start.
		deadline := time.Now().Add(2 * time.Second)
		for {
			mu.Lock()
			n := len(order)
			mu.Unlock()
			if n > i || time.Now().After(deadline) {
				break
			}
			time.Sleep(time.Millisecond)
		}
	}
	wg.Wait()

	want := []string{"urgent-1", "normal-1", "normal-2", "low-1"}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != len(want) {
		t.Fatalf("admitted order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestManager_ViolationsRecorded(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	m := ratelimit.NewManager(testConfig(), ratelimit.WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		m.RecordRequestStart(fmt.Sprintf("req-%d", i))
	}
	m.CanProcessRequest(request("denied", call.PriorityNormal))

	violations := m.Violations()
	if len(violations) != 1 {
		t.Fatalf("violations = %d, want 1", len(violations))
	}
	v := violations[0]
	if v.Kind != "concurrency" {
		t.Errorf("Kind = %s, want concurrency", v.Kind)
	}
	if v.Current != 3 || v.Limit != 3 {
		t.Errorf("Current/Limit = %d/%d, want 3/3", v.Current, v.Limit)
	}

	// Violations age out after 24h.
	clock.Advance(25 * time.Hour)
	m.CanProcessRequest(request("denied-2", call.PriorityNormal))
	violations = m.Violations()
	if len(violations) != 1 {
		t.Errorf("violations = %d after retention, want 1", len(violations))
	}
}

func TestManager_Stats(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	m := ratelimit.NewManager(testConfig(), ratelimit.WithClock(clock.Now))

	m.RecordRequestStart("a")
	m.RecordRequestStart("b")
	m.RecordRequestCompletion("a", true, 2*time.Second)

	stats := m.Stats()
	if stats.ActiveRequests != 1 {
		t.Errorf("ActiveRequests = %d, want 1", stats.ActiveRequests)
	}
	if stats.MinuteCount != 2 {
		t.Errorf("MinuteCount = %d, want 2", stats.MinuteCount)
	}
	if stats.SuccessRate != 1.0 {
		t.Errorf("SuccessRate = %f, want 1.0", stats.SuccessRate)
	}
	if stats.AvgLatency != 2*time.Second {
		t.Errorf("AvgLatency = %v, want 2s", stats.AvgLatency)
	}
}

func TestManager_Reset(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	m := ratelimit.NewManager(cfg)

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("req-%d", i)
		m.RecordRequestStart(id)
		m.RecordRequestCompletion(id, false, time.Second)
	}
	m.Reset()

	stats := m.Stats()
	if stats.MinuteCount != 0 || stats.ActiveRequests != 0 {
		t.Errorf("counts after Reset = %d/%d, want 0/0", stats.MinuteCount, stats.ActiveRequests)
	}
	if got := m.ConcurrencyLimit(); got != cfg.ConcurrentRequests {
		t.Errorf("limit after Reset = %d, want %d", got, cfg.ConcurrentRequests)
	}
}

func TestManager_UpdateConfig(t *testing.T) {
	t.Parallel()

	m := ratelimit.NewManager(testConfig())

	lower := 1
	m.UpdateConfig(config.RateLimitPatch{ConcurrentRequests: &lower})
	if got := m.ConcurrencyLimit(); got != 1 {
		t.Errorf("limit = %d after lowering ceiling, want 1", got)
	}

	rpm := 2
	m.UpdateConfig(config.RateLimitPatch{RequestsPerMinute: &rpm})
	m.RecordRequestStart("a")
	m.RecordRequestCompletion("a", true, time.Millisecond)
	m.RecordRequestStart("b")
	m.RecordRequestCompletion("b", true, time.Millisecond)

	if d := m.CanProcessRequest(request("c", call.PriorityNormal)); d.Allowed {
		t.Error("request allowed over lowered minute quota")
	}
}

func TestManager_CancelRemovesQueuedRequest(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.ConcurrentRequests = 1
	m := ratelimit.NewManager(cfg)

	// Occupy the only slot so the next request queues.
	m.RecordRequestStart("holder")

	ready, cancel := m.Enqueue(request("abandoned", call.PriorityNormal))
	select {
	case <-ready:
		t.Fatal("queued request admitted with the slot occupied")
	default:
	}
	if got := m.Stats().QueueLength; got != 1 {
		t.Fatalf("QueueLength = %d, want 1", got)
	}

	// The caller stops waiting; its entry must leave the queue.
	cancel()
	if got := m.Stats().QueueLength; got != 0 {
		t.Fatalf("QueueLength after cancel = %d, want 0", got)
	}

	// Freeing the slot must not admit the abandoned entry or reserve
	// capacity for it: a fresh request gets the slot immediately.
	m.RecordRequestCompletion("holder", true, 50*time.Millisecond)
	if d := m.CanProcessRequest(request("next", call.PriorityNormal)); !d.Allowed {
		t.Errorf("fresh request denied after cancel: %s", d.Reason)
	}

	// Cancelling twice, or after admission, is a no-op.
	cancel()
	ready2, cancel2 := m.Enqueue(request("admitted", call.PriorityNormal))
	select {
	case <-ready2:
	case <-time.After(time.Second):
		t.Fatal("request not admitted with capacity free")
	}
	cancel2()
	if got := m.Stats().QueueLength; got != 0 {
		t.Errorf("QueueLength = %d, want 0", got)
	}
}
