package cache

import "errors"

// Domain errors for cache operations. Misses, expiry, and eviction are
// expected conditions and are reported through return values, not errors.
var (
	// ErrInvalidKey is returned when a key is empty.
	ErrInvalidKey = errors.New("invalid cache key")

	// ErrInvalidData is returned when data fails type-specific validation
	// at insertion time.
	ErrInvalidData = errors.New("invalid cache data")

	// ErrConnectionFailed is returned when a remote cache backend is
	// unreachable.
	ErrConnectionFailed = errors.New("cache connection failed")

	// ErrOperationTimeout is returned when a remote cache operation times
	// out.
	ErrOperationTimeout = errors.New("cache operation timed out")
)
