// Package ratelimit enforces sliding-window quotas and adaptive concurrency
// for outbound API calls.
package ratelimit

import (
	"container/heap"
	"math"
	"sync"
	"time"

	"github.com/meetscribe/scribe-go/domain/call"
	"github.com/meetscribe/scribe-go/domain/config"
	"github.com/meetscribe/scribe-go/infrastructure/logging"
)

// windowDelayBuffer pads the reported wait past the oldest record's expiry
// so a retry does not race the window edge.
const windowDelayBuffer = time.Second

// completionWindow is how many recent completions feed the adaptive
// controller's success rate and latency average.
const completionWindow = 20

// shrinkSuccessRate is the success rate below which the concurrency limit
// shrinks.
const shrinkSuccessRate = 0.80

// growSuccessRate is the success rate above which the limit may grow.
const growSuccessRate = 0.95

// growLatencyCeiling is the average latency below which the limit may grow.
const growLatencyCeiling = 3 * time.Second

// violationRetention is how long recorded violations are kept.
const violationRetention = 24 * time.Hour

// Decision is the manager's admission verdict for one request.
type Decision struct {
	// Allowed reports whether the call may proceed now.
	Allowed bool
	// Delay is the recommended wait before retrying when denied.
	Delay time.Duration
	// Reason names the first violated constraint when denied.
	Reason string
}

// Violation records one denied admission for observability.
type Violation struct {
	// Kind names the violated constraint ("concurrency", "minute", ...).
	Kind string
	// Current is the observed value at denial time.
	Current int
	// Limit is the configured ceiling.
	Limit int
	// Delay is the wait that was recommended.
	Delay time.Duration
	// At is when the violation occurred.
	At time.Time
}

// Stats is a point-in-time snapshot of the manager's state.
type Stats struct {
	// ActiveRequests is the current in-flight count.
	ActiveRequests int
	// ConcurrencyLimit is the current adaptive ceiling.
	ConcurrencyLimit int
	// MinuteCount, HourCount, DayCount are the pruned window counts.
	MinuteCount int
	HourCount   int
	DayCount    int
	// SuccessRate is over the recent completion window, 1.0 when empty.
	SuccessRate float64
	// AvgLatency is over the recent completion window.
	AvgLatency time.Duration
	// QueueLength is the number of requests waiting for admission.
	QueueLength int
	// Violations is the count retained within the last 24 hours.
	Violations int
}

// record is one admitted attempt inside a window bucket. Records are
// keyed by request id so completion updates never guess by timestamp.
type record struct {
	id       string
	at       time.Time
	duration time.Duration
	success  bool
}

// bucket is one sliding window.
type bucket struct {
	id      string
	window  time.Duration
	max     int
	records []record
}

// prune drops records older than the window. Invariant: after prune, the
// bucket count equals the number of in-window records.
func (b *bucket) prune(now time.Time) {
	cutoff := now.Add(-b.window)
	i := 0
	for i < len(b.records) && !b.records[i].at.After(cutoff) {
		i++
	}
	if i > 0 {
		b.records = append(b.records[:0], b.records[i:]...)
	}
}

type completion struct {
	success  bool
	duration time.Duration
}

// Manager tracks sliding windows and the adaptive concurrency ceiling.
// All state lives behind one mutex; the manager never blocks callers.
type Manager struct {
	mu sync.Mutex

	cfg     config.RateLimitConfig
	buckets []*bucket
	active  map[string]time.Time

	// adaptiveLimit is the current concurrency ceiling. Additive increase
	// on sustained success, multiplicative decrease on failures.
	adaptiveLimit int

	completions []completion

	queue   requestQueue
	queueID uint64

	violations []Violation

	now func() time.Time
}

// Option configures the manager.
type Option func(*Manager)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a manager from the given configuration.
func NewManager(cfg config.RateLimitConfig, opts ...Option) *Manager {
	m := &Manager{
		cfg: cfg,
		buckets: []*bucket{
			{id: "minute", window: time.Minute, max: cfg.RequestsPerMinute},
			{id: "hour", window: time.Hour, max: cfg.RequestsPerHour},
			{id: "day", window: 24 * time.Hour, max: cfg.RequestsPerDay},
		},
		active:        make(map[string]time.Time),
		adaptiveLimit: cfg.ConcurrentRequests,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CanProcessRequest decides whether a new call may proceed now. Checks
// short-circuit in priority order: concurrency, then minute, hour, day.
// The first violated constraint determines the reason and delay.
func (m *Manager) CanProcessRequest(req call.Request) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.admitLocked()
}

func (m *Manager) admitLocked() Decision {
	now := m.now()

	if len(m.active) >= m.adaptiveLimit {
		delay := m.cfg.Backoff.InitialDelay
		m.recordViolationLocked("concurrency", len(m.active), m.adaptiveLimit, delay, now)
		return Decision{Delay: delay, Reason: "concurrency limit reached"}
	}

	for _, b := range m.buckets {
		b.prune(now)
		if len(b.records) >= b.max {
			delay := b.records[0].at.Add(b.window).Sub(now) + windowDelayBuffer
			m.recordViolationLocked(b.id, len(b.records), b.max, delay, now)
			return Decision{Delay: delay, Reason: b.id + " window quota reached"}
		}
	}

	return Decision{Allowed: true}
}

// RecordRequestStart marks a request in-flight and charges every window
// immediately. Quota is consumed by attempts, not confirmed successes;
// the provisional record is optimistic about the outcome.
func (m *Manager) RecordRequestStart(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.active[id] = now
	for _, b := range m.buckets {
		b.records = append(b.records, record{id: id, at: now, success: true})
	}
}

// RecordRequestCompletion settles a request's outcome: the in-flight slot
// frees, the matching window records update by id, the rolling completion
// window advances, and the adaptive ceiling is re-evaluated. Failed calls
// stay charged against quota.
func (m *Manager) RecordRequestCompletion(id string, success bool, duration time.Duration) {
	m.mu.Lock()

	delete(m.active, id)

	for _, b := range m.buckets {
		for i := range b.records {
			if b.records[i].id == id {
				b.records[i].success = success
				b.records[i].duration = duration
				break
			}
		}
	}

	m.completions = append(m.completions, completion{success: success, duration: duration})
	if len(m.completions) > completionWindow {
		m.completions = m.completions[len(m.completions)-completionWindow:]
	}

	if m.cfg.EnableAdaptive {
		m.adaptLocked()
	}

	drained := m.drainLocked()
	m.mu.Unlock()

	for _, ready := range drained {
		close(ready)
	}
}

// adaptLocked is the AIMD controller, re-evaluated on every completion.
func (m *Manager) adaptLocked() {
	rate, latency := m.observedLocked()

	switch {
	case rate < shrinkSuccessRate:
		next := int(math.Floor(float64(m.adaptiveLimit) * 0.9))
		if next < 1 {
			next = 1
		}
		if next != m.adaptiveLimit {
			m.adaptiveLimit = next
			logging.Debug().
				Add(logging.ConcurrencyLimit(next)).
				Msg("concurrency limit shrunk")
		}
	case rate > growSuccessRate && latency < growLatencyCeiling:
		if m.adaptiveLimit < m.cfg.ConcurrentRequests {
			m.adaptiveLimit++
			logging.Debug().
				Add(logging.ConcurrencyLimit(m.adaptiveLimit)).
				Msg("concurrency limit grown")
		}
	}
}

func (m *Manager) observedLocked() (successRate float64, avgLatency time.Duration) {
	if len(m.completions) == 0 {
		return 1.0, 0
	}
	successes := 0
	var total time.Duration
	for _, c := range m.completions {
		if c.success {
			successes++
		}
		total += c.duration
	}
	return float64(successes) / float64(len(m.completions)),
		total / time.Duration(len(m.completions))
}

// Enqueue inserts the request into the priority queue and returns a
// channel closed when the request is admitted, plus a cancel function
// the caller must invoke if it stops waiting — otherwise the abandoned
// entry would reserve an admission slot for a request already gone.
// Cancelling after admission is a no-op. Draining is attempted
// immediately; if the queue stays blocked, a retry is scheduled for the
// blocking constraint's delay without blocking the caller.
func (m *Manager) Enqueue(req call.Request) (<-chan struct{}, func()) {
	m.mu.Lock()

	q := &queued{
		req:   req,
		ready: make(chan struct{}),
		seq:   m.queueID + 1,
	}
	m.queueID++
	heap.Push(&m.queue, q)

	drained := m.drainLocked()
	m.mu.Unlock()

	for _, ch := range drained {
		close(ch)
	}

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if q.index >= 0 {
			heap.Remove(&m.queue, q.index)
		}
	}
	return q.ready, cancel
}

// drainLocked admits queued requests in priority order while capacity
// allows, returning their ready channels for the caller to close outside
// the lock. If the head stays blocked, a deferred drain is scheduled.
//
// Admission is advisory: each admitted caller records its own start after
// waking, so this round counts its own admissions as provisionally active.
// Racing admissions can still transiently exceed a window's quota; the
// quota is an admission condition, not an enforced invariant.
func (m *Manager) drainLocked() []chan struct{} {
	var drained []chan struct{}
	now := m.now()
	for m.queue.Len() > 0 {
		admitted := len(drained)

		if len(m.active)+admitted >= m.adaptiveLimit {
			time.AfterFunc(m.cfg.Backoff.InitialDelay, m.Drain)
			break
		}

		blocked := false
		for _, b := range m.buckets {
			b.prune(now)
			if len(b.records)+admitted >= b.max {
				delay := m.cfg.Backoff.InitialDelay
				if len(b.records) > 0 {
					delay = b.records[0].at.Add(b.window).Sub(now) + windowDelayBuffer
				}
				time.AfterFunc(delay, m.Drain)
				blocked = true
				break
			}
		}
		if blocked {
			break
		}

		q := heap.Pop(&m.queue).(*queued)
		drained = append(drained, q.ready)
	}
	return drained
}

// Drain retries queue processing. Safe to call from timers.
func (m *Manager) Drain() {
	m.mu.Lock()
	drained := m.drainLocked()
	m.mu.Unlock()

	for _, ch := range drained {
		close(ch)
	}
}

// recordViolationLocked appends a violation and prunes entries older than
// the 24h retention.
func (m *Manager) recordViolationLocked(kind string, current, limit int, delay time.Duration, now time.Time) {
	cutoff := now.Add(-violationRetention)
	i := 0
	for i < len(m.violations) && m.violations[i].At.Before(cutoff) {
		i++
	}
	if i > 0 {
		m.violations = append(m.violations[:0], m.violations[i:]...)
	}
	m.violations = append(m.violations, Violation{
		Kind:    kind,
		Current: current,
		Limit:   limit,
		Delay:   delay,
		At:      now,
	})
}

// Violations returns the violations retained within the last 24 hours.
func (m *Manager) Violations() []Violation {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Violation, len(m.violations))
	copy(out, m.violations)
	return out
}

// Stats returns a point-in-time snapshot.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, b := range m.buckets {
		b.prune(now)
	}
	rate, latency := m.observedLocked()

	return Stats{
		ActiveRequests:   len(m.active),
		ConcurrencyLimit: m.adaptiveLimit,
		MinuteCount:      len(m.buckets[0].records),
		HourCount:        len(m.buckets[1].records),
		DayCount:         len(m.buckets[2].records),
		SuccessRate:      rate,
		AvgLatency:       latency,
		QueueLength:      m.queue.Len(),
		Violations:       len(m.violations),
	}
}

// ConcurrencyLimit returns the current adaptive ceiling.
func (m *Manager) ConcurrencyLimit() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adaptiveLimit
}

// UpdateConfig merges a partial configuration update. The adaptive limit
// is clamped to the new ceiling.
func (m *Manager) UpdateConfig(patch config.RateLimitPatch) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cfg = patch.Apply(m.cfg)
	m.buckets[0].max = m.cfg.RequestsPerMinute
	m.buckets[1].max = m.cfg.RequestsPerHour
	m.buckets[2].max = m.cfg.RequestsPerDay
	if m.adaptiveLimit > m.cfg.ConcurrentRequests {
		m.adaptiveLimit = m.cfg.ConcurrentRequests
	}
}

// Reset clears all windows, the active set, completions, and violations,
// and restores the configured concurrency ceiling.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.buckets {
		b.records = nil
	}
	m.active = make(map[string]time.Time)
	m.completions = nil
	m.violations = nil
	m.adaptiveLimit = m.cfg.ConcurrentRequests
}
