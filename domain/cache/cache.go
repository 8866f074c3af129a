// Package cache provides the domain contract for the bounded response cache.
package cache

import "time"

// IntegrityStatus describes the outcome of the last integrity verification.
type IntegrityStatus string

const (
	// IntegrityUnverified means no verification has run yet.
	IntegrityUnverified IntegrityStatus = "unverified"
	// IntegrityValid means the last verification passed.
	IntegrityValid IntegrityStatus = "valid"
	// IntegrityCorrupted means verification failed; the entry is dropped.
	IntegrityCorrupted IntegrityStatus = "corrupted"
)

// Integrity holds the checksum recorded at insertion time.
type Integrity struct {
	// Checksum is the stored digest of the entry's data.
	Checksum string
	// Algorithm names the digest algorithm (e.g. "sha256").
	Algorithm string
	// Status is the result of the last verification.
	Status IntegrityStatus
}

// SizeCategory buckets entries by payload size for observability.
type SizeCategory string

const (
	// SizeSmall is under 1 KiB.
	SizeSmall SizeCategory = "small"
	// SizeMedium is under 64 KiB.
	SizeMedium SizeCategory = "medium"
	// SizeLarge is 64 KiB and above.
	SizeLarge SizeCategory = "large"
)

// Metadata annotates an entry.
type Metadata struct {
	// Tags are free-form labels.
	Tags []string
	// Priority is advisory; eviction is strictly LRU regardless.
	Priority int
	// SizeCategory is derived from the entry's byte size.
	SizeCategory SizeCategory
}

// Entry is one cached value. Entries are owned by the engine and mutated
// only through its operations.
type Entry[T any] struct {
	// Key is the lookup key.
	Key string
	// Data is the cached value.
	Data T
	// CreatedAt is the insertion time.
	CreatedAt time.Time
	// ExpiresAt is the TTL deadline.
	ExpiresAt time.Time
	// LastAccessTime is the wall-clock time of the last hit.
	LastAccessTime time.Time
	// AccessOrder is the monotonic access counter used for LRU ordering.
	// Wall clocks are not used for eviction to avoid clock-skew issues.
	AccessOrder uint64
	// AccessCount is the number of hits.
	AccessCount int64
	// SizeBytes is the accounted payload size.
	SizeBytes int64
	// Integrity is the stored checksum.
	Integrity Integrity
	// Metadata annotates the entry.
	Metadata Metadata
}

// Expired reports whether the entry's TTL has elapsed at now.
func (e *Entry[T]) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// SetOptions configure one insertion.
type SetOptions struct {
	// TTL overrides the engine's default TTL when positive.
	TTL time.Duration
	// Tags are attached to the entry's metadata.
	Tags []string
	// Priority is attached to the entry's metadata.
	Priority int
}

// ChecksumFunc computes the digest stored and later recomputed for
// integrity verification. A nil func disables integrity checking.
type ChecksumFunc[T any] func(data T) string

// SizeFunc accounts an entry's payload size in bytes. A nil func makes
// every entry count as one byte.
type SizeFunc[T any] func(data T) int64

// Stats is a point-in-time snapshot of engine counters. All counters are
// monotonic except those reset by Clear.
type Stats struct {
	// Hits is the number of cache hits.
	Hits int64
	// Misses is the number of cache misses.
	Misses int64
	// Evictions is the number of LRU evictions.
	Evictions int64
	// Expired is the number of entries dropped for TTL expiry.
	Expired int64
	// Corrupted is the number of entries dropped for failed verification.
	Corrupted int64
	// Entries is the current entry count.
	Entries int
	// SizeBytes is the current accounted byte usage.
	SizeBytes int64
	// MaxEntries is the configured entry budget.
	MaxEntries int
	// MaxSizeBytes is the configured byte budget.
	MaxSizeBytes int64
}

// HitRatio returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
