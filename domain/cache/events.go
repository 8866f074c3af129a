package cache

// EventKind identifies a cache lifecycle event.
type EventKind string

const (
	// EventHit fires on a successful lookup.
	EventHit EventKind = "hit"
	// EventMiss fires on a failed lookup.
	EventMiss EventKind = "miss"
	// EventSet fires after an insertion.
	EventSet EventKind = "set"
	// EventDelete fires after an explicit delete.
	EventDelete EventKind = "delete"
	// EventEvict fires for each LRU-evicted entry.
	EventEvict EventKind = "evict"
	// EventClear fires after the cache is emptied.
	EventClear EventKind = "clear"
)

// Event is delivered to listeners with a snapshot of the cache at the
// instant the event occurred.
type Event struct {
	// Kind is the event type.
	Kind EventKind
	// Key is the affected key ("" for clear).
	Key string
	// HitRatio is the hit ratio at the instant of the event.
	HitRatio float64
	// Entries is the entry count at the instant of the event.
	Entries int
}

// Listener receives cache events. Listener panics are recovered and
// logged by the engine, never propagated to cache callers.
type Listener func(Event)
