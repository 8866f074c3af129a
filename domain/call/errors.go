package call

import "errors"

// Domain errors for call handling.
var (
	// ErrMissingRequestID is returned when a request has no identifier.
	ErrMissingRequestID = errors.New("call request id is empty")

	// ErrUnsupportedCallType is returned for a call type outside the known set.
	// This is the one condition the coordinator surfaces as a thrown error
	// rather than a failed response, since it indicates a programming bug.
	ErrUnsupportedCallType = errors.New("unsupported call type")

	// ErrShuttingDown is returned when a call arrives after shutdown began.
	ErrShuttingDown = errors.New("coordinator is shutting down")

	// ErrKeyDerivation is returned when a payload cannot be serialized for
	// cache key derivation.
	ErrKeyDerivation = errors.New("cache key derivation failed")

	// ErrInvalidPayload is returned when a payload cannot be coerced into
	// the shape its call type expects.
	ErrInvalidPayload = errors.New("invalid call payload")
)
