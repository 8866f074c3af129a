package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/meetscribe/scribe-go/domain/call"
	"github.com/meetscribe/scribe-go/domain/failure"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Str adds an arbitrary string field.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}

// Int adds an arbitrary int field.
func Int(key string, value int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, value)
	}
}

// RequestID adds a request ID field.
func RequestID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("request_id", id)
	}
}

// CallType adds a call type field.
func CallType(t call.Type) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("call_type", string(t))
	}
}

// Region adds an API region field.
func Region(region string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("region", region)
	}
}

// CacheKey adds a cache key field.
func CacheKey(key string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("cache_key", key)
	}
}

// FromCache adds a from_cache field.
func FromCache(cached bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("from_cache", cached)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// Delay adds a recommended delay field in milliseconds.
func Delay(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("delay_ms", d.Milliseconds())
	}
}

// Window adds a rate-limit window field.
func Window(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("window", id)
	}
}

// FailureKind adds a classified failure kind field.
func FailureKind(k failure.Kind) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("failure_kind", string(k))
	}
}

// Retryable adds a retryable field.
func Retryable(retryable bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("retryable", retryable)
	}
}

// ActiveRequests adds an active request count field.
func ActiveRequests(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("active_requests", n)
	}
}

// ConcurrencyLimit adds the adaptive concurrency limit field.
func ConcurrencyLimit(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("concurrency_limit", n)
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}
