package memory_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/meetscribe/scribe-go/domain/cache"
	"github.com/meetscribe/scribe-go/infrastructure/storage/memory"
)

// fakeClock is a controllable time source.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestCache_SetAndGet(t *testing.T) {
	t.Parallel()

	c := memory.New[string]()
	ctx := context.Background()

	if err := c.Set(ctx, "k1", "v1", cache.SetOptions{}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, found, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Fatal("Get() should find the key")
	}
	if got != "v1" {
		t.Errorf("Get() = %q, want v1", got)
	}

	_, found, _ = c.Get(ctx, "absent")
	if found {
		t.Error("Get() found a key that was never set")
	}
}

func TestCache_RejectsEmptyKey(t *testing.T) {
	t.Parallel()

	c := memory.New[string]()
	if err := c.Set(context.Background(), "", "v", cache.SetOptions{}); err != cache.ErrInvalidKey {
		t.Errorf("Set() error = %v, want ErrInvalidKey", err)
	}
}

func TestCache_TTL(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := memory.New[string](memory.WithClock[string](clock.Now))
	ctx := context.Background()

	ttl := 10 * time.Second
	if err := c.Set(ctx, "k", "v", cache.SetOptions{TTL: ttl}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Retrievable just before the deadline.
	clock.Advance(ttl - time.Millisecond)
	if _, found, _ := c.Get(ctx, "k"); !found {
		t.Error("Get() missed before TTL elapsed")
	}

	// A miss just after, and the entry is removed.
	clock.Advance(2 * time.Millisecond)
	if _, found, _ := c.Get(ctx, "k"); found {
		t.Error("Get() hit after TTL elapsed")
	}
	if c.Has("k") {
		t.Error("Has() = true after expiry deletion")
	}

	stats := c.Stats()
	if stats.Expired != 1 {
		t.Errorf("Expired = %d, want 1", stats.Expired)
	}
}

func TestCache_LRUEviction(t *testing.T) {
	t.Parallel()

	c := memory.New[int](memory.WithMaxEntries[int](10))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := c.Set(ctx, fmt.Sprintf("k%d", i), i, cache.SetOptions{}); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	// Touch k0 so it is the most recently used.
	if _, found, _ := c.Get(ctx, "k0"); !found {
		t.Fatal("Get(k0) missed")
	}

	// Inserting one more evicts the oldest 10% (one entry): k1, since k0
	// was just refreshed.
	if err := c.Set(ctx, "k10", 10, cache.SetOptions{}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, found, _ := c.Get(ctx, "k1"); found {
		t.Error("k1 should have been evicted as least recently used")
	}
	if _, found, _ := c.Get(ctx, "k0"); !found {
		t.Error("k0 was evicted despite being recently used")
	}

	if stats := c.Stats(); stats.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", stats.Evictions)
	}
}

func TestCache_EvictLRU_ReturnsOldestFirst(t *testing.T) {
	t.Parallel()

	c := memory.New[string]()
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, k, cache.SetOptions{}); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	evicted := c.EvictLRU(2)
	if len(evicted) != 2 {
		t.Fatalf("EvictLRU(2) returned %d entries", len(evicted))
	}
	if evicted[0].Key != "a" || evicted[1].Key != "b" {
		t.Errorf("EvictLRU order = %s, %s; want a, b", evicted[0].Key, evicted[1].Key)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCache_ByteBudget(t *testing.T) {
	t.Parallel()

	// Every entry accounts 10 bytes against a 100-byte budget.
	c := memory.New[string](
		memory.WithMaxSizeBytes[string](100),
		memory.WithSizeFunc[string](func(string) int64 { return 10 }),
	)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		if err := c.Set(ctx, fmt.Sprintf("k%d", i), "x", cache.SetOptions{}); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	// Usage must have been evicted down to at most 80% of the budget
	// before each insertion that would breach it.
	if stats := c.Stats(); stats.SizeBytes > 100 {
		t.Errorf("SizeBytes = %d, exceeds budget", stats.SizeBytes)
	}
	if stats := c.Stats(); stats.Evictions == 0 {
		t.Error("expected byte-budget evictions")
	}
}

func TestCache_Integrity(t *testing.T) {
	t.Parallel()

	// The checksum flips when the stored pointer's content changes.
	type payload struct{ text string }
	digests := map[*payload]string{}
	c := memory.New[*payload](memory.WithChecksum[*payload](func(p *payload) string {
		if d, ok := digests[p]; ok {
			return d
		}
		return p.text
	}))
	ctx := context.Background()

	p := &payload{text: "original"}
	if err := c.Set(ctx, "k", p, cache.SetOptions{}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Untampered entry verifies.
	if _, found, _ := c.Get(ctx, "k"); !found {
		t.Fatal("Get() missed an intact entry")
	}

	// Corrupt the stored data out-of-band; the recomputed digest diverges.
	digests[p] = "tampered"
	if _, found, _ := c.Get(ctx, "k"); found {
		t.Error("Get() hit a corrupted entry")
	}
	if c.Has("k") {
		t.Error("corrupted entry was not deleted")
	}
	if stats := c.Stats(); stats.Corrupted != 1 {
		t.Errorf("Corrupted = %d, want 1", stats.Corrupted)
	}
}

func TestCache_Keys_FiltersExpiredWithoutDeleting(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := memory.New[string](memory.WithClock[string](clock.Now))
	ctx := context.Background()

	c.Set(ctx, "stale", "v", cache.SetOptions{TTL: time.Second})
	c.Set(ctx, "fresh", "v", cache.SetOptions{TTL: time.Hour})
	clock.Advance(2 * time.Second)

	keys := c.Keys()
	if len(keys) != 1 || keys[0] != "fresh" {
		t.Errorf("Keys() = %v, want [fresh]", keys)
	}
	// Read-only view: the stale entry is still present until touched.
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestCache_Clear(t *testing.T) {
	t.Parallel()

	c := memory.New[string]()
	ctx := context.Background()

	c.Set(ctx, "k", "v", cache.SetOptions{})
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", c.Len())
	}
	if stats := c.Stats(); stats.SizeBytes != 0 {
		t.Errorf("SizeBytes = %d after Clear, want 0", stats.SizeBytes)
	}
}

func TestCache_Stats_HitRatio(t *testing.T) {
	t.Parallel()

	c := memory.New[string]()
	ctx := context.Background()

	c.Set(ctx, "k", "v", cache.SetOptions{})
	c.Get(ctx, "k")      // hit
	c.Get(ctx, "absent") // miss

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Hits/Misses = %d/%d, want 1/1", stats.Hits, stats.Misses)
	}
	if ratio := stats.HitRatio(); ratio != 0.5 {
		t.Errorf("HitRatio() = %f, want 0.5", ratio)
	}
}

func TestCache_Listeners(t *testing.T) {
	t.Parallel()

	t.Run("events fire with snapshots", func(t *testing.T) {
		t.Parallel()

		c := memory.New[string]()
		ctx := context.Background()

		var events []cache.Event
		id := c.AddListener(func(e cache.Event) {
			events = append(events, e)
		})

		c.Set(ctx, "k", "v", cache.SetOptions{})
		c.Get(ctx, "k")
		c.Delete(ctx, "k")
		c.RemoveListener(id)
		c.Set(ctx, "k2", "v", cache.SetOptions{})

		kinds := make([]cache.EventKind, 0, len(events))
		for _, e := range events {
			kinds = append(kinds, e.Kind)
		}
		want := []cache.EventKind{cache.EventSet, cache.EventHit, cache.EventDelete}
		if len(kinds) != len(want) {
			t.Fatalf("event kinds = %v, want %v", kinds, want)
		}
		for i := range want {
			if kinds[i] != want[i] {
				t.Errorf("event[%d] = %s, want %s", i, kinds[i], want[i])
			}
		}
		if events[1].HitRatio != 1.0 {
			t.Errorf("hit event ratio = %f, want 1.0", events[1].HitRatio)
		}
	})

	t.Run("listener panic is contained", func(t *testing.T) {
		t.Parallel()

		c := memory.New[string]()
		ctx := context.Background()

		c.AddListener(func(cache.Event) {
			panic("listener bug")
		})

		if err := c.Set(ctx, "k", "v", cache.SetOptions{}); err != nil {
			t.Errorf("Set() error = %v despite panicking listener", err)
		}
		if _, found, _ := c.Get(ctx, "k"); !found {
			t.Error("Get() missed despite panicking listener")
		}
	})
}

func TestCache_ContextCancellation(t *testing.T) {
	t.Parallel()

	c := memory.New[string]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Set(ctx, "k", "v", cache.SetOptions{}); err == nil {
		t.Error("Set() with cancelled context should fail")
	}
	if _, _, err := c.Get(ctx, "k"); err == nil {
		t.Error("Get() with cancelled context should fail")
	}
}
