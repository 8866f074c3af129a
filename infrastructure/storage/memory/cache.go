// Package memory provides the in-process bounded response cache.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/meetscribe/scribe-go/domain/cache"
	"github.com/meetscribe/scribe-go/infrastructure/logging"
)

// byteLowWater is the byte usage the engine evicts down to, as a share of
// the byte budget.
const byteLowWater = 0.80

// Cache is a bounded key→entry store with LRU eviction, TTL expiry, and
// pluggable integrity verification, generic over the payload type.
//
// All mutation happens under one mutex; the engine is safe for concurrent
// use from multiple goroutines.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]*cache.Entry[T]

	maxEntries   int
	maxSizeBytes int64
	defaultTTL   time.Duration

	checksum cache.ChecksumFunc[T]
	size     cache.SizeFunc[T]
	now      func() time.Time

	// accessCounter orders entries for LRU. Monotonic, never wall-clock,
	// so clock skew cannot reorder eviction.
	accessCounter uint64
	usedBytes     int64

	hits      int64
	misses    int64
	evictions int64
	expired   int64
	corrupted int64

	listeners  map[int]cache.Listener
	listenerID int
}

// Option configures the cache.
type Option[T any] func(*Cache[T])

// WithMaxEntries sets the entry budget.
func WithMaxEntries[T any](n int) Option[T] {
	return func(c *Cache[T]) {
		c.maxEntries = n
	}
}

// WithMaxSizeBytes sets the byte budget.
func WithMaxSizeBytes[T any](n int64) Option[T] {
	return func(c *Cache[T]) {
		c.maxSizeBytes = n
	}
}

// WithDefaultTTL sets the TTL applied when SetOptions carry none.
func WithDefaultTTL[T any](ttl time.Duration) Option[T] {
	return func(c *Cache[T]) {
		c.defaultTTL = ttl
	}
}

// WithChecksum enables integrity verification with the given digest func.
func WithChecksum[T any](fn cache.ChecksumFunc[T]) Option[T] {
	return func(c *Cache[T]) {
		c.checksum = fn
	}
}

// WithSizeFunc sets the byte accounting func.
func WithSizeFunc[T any](fn cache.SizeFunc[T]) Option[T] {
	return func(c *Cache[T]) {
		c.size = fn
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *Cache[T]) {
		c.now = now
	}
}

// New creates a cache engine with the given options.
func New[T any](opts ...Option[T]) *Cache[T] {
	c := &Cache[T]{
		entries:      make(map[string]*cache.Entry[T]),
		maxEntries:   1000,
		maxSizeBytes: 64 << 20,
		defaultTTL:   30 * time.Minute,
		now:          time.Now,
		listeners:    make(map[int]cache.Listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a value. It reports a miss when the key is absent, the
// entry's TTL has elapsed, or integrity verification fails; the latter two
// delete the entry as a side effect.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}

	c.mu.Lock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		c.emitLocked(cache.EventMiss, key)
		c.mu.Unlock()
		return zero, false, nil
	}

	if entry.Expired(c.now()) {
		c.removeLocked(key)
		c.expired++
		c.misses++
		c.emitLocked(cache.EventMiss, key)
		c.mu.Unlock()
		return zero, false, nil
	}

	if c.checksum != nil && c.checksum(entry.Data) != entry.Integrity.Checksum {
		entry.Integrity.Status = cache.IntegrityCorrupted
		c.removeLocked(key)
		c.corrupted++
		c.misses++
		c.emitLocked(cache.EventMiss, key)
		c.mu.Unlock()
		logging.Warn().
			Add(logging.CacheKey(key)).
			Msg("cache entry failed integrity verification")
		return zero, false, nil
	}

	c.accessCounter++
	entry.AccessOrder = c.accessCounter
	entry.AccessCount++
	entry.LastAccessTime = c.now()
	entry.Integrity.Status = cache.IntegrityValid
	c.hits++
	c.emitLocked(cache.EventHit, key)
	data := entry.Data
	c.mu.Unlock()

	return data, true, nil
}

// Set stores a value, evicting as needed to respect the entry and byte
// budgets. A positive opts.TTL overrides the default TTL.
func (c *Cache[T]) Set(ctx context.Context, key string, data T, opts cache.SetOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return cache.ErrInvalidKey
	}

	sizeBytes := int64(1)
	if c.size != nil {
		sizeBytes = c.size(data)
	}

	c.mu.Lock()
	c.ensureCapacityLocked(sizeBytes)

	ttl := c.defaultTTL
	if opts.TTL > 0 {
		ttl = opts.TTL
	}

	now := c.now()
	c.accessCounter++

	integrity := cache.Integrity{Status: cache.IntegrityUnverified}
	if c.checksum != nil {
		integrity = cache.Integrity{
			Checksum:  c.checksum(data),
			Algorithm: "sha256",
			Status:    cache.IntegrityValid,
		}
	}

	if old, ok := c.entries[key]; ok {
		c.usedBytes -= old.SizeBytes
	}

	c.entries[key] = &cache.Entry[T]{
		Key:            key,
		Data:           data,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
		LastAccessTime: now,
		AccessOrder:    c.accessCounter,
		SizeBytes:      sizeBytes,
		Integrity:      integrity,
		Metadata: cache.Metadata{
			Tags:         opts.Tags,
			Priority:     opts.Priority,
			SizeCategory: sizeCategory(sizeBytes),
		},
	}
	c.usedBytes += sizeBytes
	c.emitLocked(cache.EventSet, key)
	c.mu.Unlock()

	return nil
}

// Delete removes an entry.
func (c *Cache[T]) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	if _, ok := c.entries[key]; ok {
		c.removeLocked(key)
		c.emitLocked(cache.EventDelete, key)
	}
	c.mu.Unlock()
	return nil
}

// Has reports whether the key holds an unexpired entry. It does not touch
// access order.
func (c *Cache[T]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	return ok && !entry.Expired(c.now())
}

// Keys returns the unexpired keys. Expired entries are filtered out but
// not deleted; this is a read-only view.
func (c *Cache[T]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	keys := make([]string, 0, len(c.entries))
	for key, entry := range c.entries {
		if !entry.Expired(now) {
			keys = append(keys, key)
		}
	}
	return keys
}

// Len returns the current entry count, including not-yet-purged expired
// entries.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes all entries and resets byte accounting.
func (c *Cache[T]) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.entries = make(map[string]*cache.Entry[T])
	c.usedBytes = 0
	c.emitLocked(cache.EventClear, "")
	c.mu.Unlock()
	return nil
}

// EvictLRU removes the n least-recently-used entries and returns them.
func (c *Cache[T]) EvictLRU(n int) []cache.Entry[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictLRULocked(n)
}

// Stats returns a point-in-time snapshot of the engine counters.
func (c *Cache[T]) Stats() cache.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return cache.Stats{
		Hits:         c.hits,
		Misses:       c.misses,
		Evictions:    c.evictions,
		Expired:      c.expired,
		Corrupted:    c.corrupted,
		Entries:      len(c.entries),
		SizeBytes:    c.usedBytes,
		MaxEntries:   c.maxEntries,
		MaxSizeBytes: c.maxSizeBytes,
	}
}

// AddListener registers an event listener and returns its id for removal.
func (c *Cache[T]) AddListener(fn cache.Listener) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listenerID++
	c.listeners[c.listenerID] = fn
	return c.listenerID
}

// RemoveListener unregisters a listener by id.
func (c *Cache[T]) RemoveListener(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.listeners, id)
}

// ensureCapacityLocked makes room before an insertion: expired entries are
// purged opportunistically, then the entry budget evicts the oldest ~10%,
// then the byte budget evicts one-by-one until usage drops to 80%.
func (c *Cache[T]) ensureCapacityLocked(incomingBytes int64) {
	now := c.now()
	for key, entry := range c.entries {
		if entry.Expired(now) {
			c.removeLocked(key)
			c.expired++
		}
	}

	if len(c.entries) >= c.maxEntries {
		n := len(c.entries) / 10
		if n < 1 {
			n = 1
		}
		c.evictLRULocked(n)
	}

	if c.maxSizeBytes > 0 && c.usedBytes+incomingBytes >= c.maxSizeBytes {
		target := int64(float64(c.maxSizeBytes) * byteLowWater)
		for c.usedBytes+incomingBytes > target && len(c.entries) > 0 {
			c.evictLRULocked(1)
		}
	}
}

// evictLRULocked removes the n entries with the smallest access-order
// counters and returns them oldest first.
func (c *Cache[T]) evictLRULocked(n int) []cache.Entry[T] {
	if n <= 0 || len(c.entries) == 0 {
		return nil
	}
	if n > len(c.entries) {
		n = len(c.entries)
	}

	ordered := make([]*cache.Entry[T], 0, len(c.entries))
	for _, entry := range c.entries {
		ordered = append(ordered, entry)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].AccessOrder < ordered[j].AccessOrder
	})

	evicted := make([]cache.Entry[T], 0, n)
	for _, entry := range ordered[:n] {
		evicted = append(evicted, *entry)
		c.removeLocked(entry.Key)
		c.evictions++
		c.emitLocked(cache.EventEvict, entry.Key)
	}
	return evicted
}

// removeLocked deletes an entry and adjusts byte accounting.
func (c *Cache[T]) removeLocked(key string) {
	if entry, ok := c.entries[key]; ok {
		c.usedBytes -= entry.SizeBytes
		delete(c.entries, key)
	}
}

// emitLocked delivers an event to all listeners. Listener panics are
// recovered and logged, never propagated to cache callers.
func (c *Cache[T]) emitLocked(kind cache.EventKind, key string) {
	if len(c.listeners) == 0 {
		return
	}

	total := c.hits + c.misses
	ratio := 0.0
	if total > 0 {
		ratio = float64(c.hits) / float64(total)
	}
	event := cache.Event{
		Kind:     kind,
		Key:      key,
		HitRatio: ratio,
		Entries:  len(c.entries),
	}

	for _, fn := range c.listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logging.Warn().
						Add(logging.Str("event", string(kind))).
						Add(logging.CacheKey(key)).
						Msg("cache listener panicked")
				}
			}()
			fn(event)
		}()
	}
}

// sizeCategory buckets a payload size for entry metadata.
func sizeCategory(n int64) cache.SizeCategory {
	switch {
	case n < 1<<10:
		return cache.SizeSmall
	case n < 64<<10:
		return cache.SizeMedium
	default:
		return cache.SizeLarge
	}
}
