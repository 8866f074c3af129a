package call

import "time"

// ResponseError describes why a call failed, in a shape suitable for the
// caller's retry loop.
type ResponseError struct {
	// Code is a stable machine-readable error code.
	Code string
	// Message is a human-readable description.
	Message string
	// Retryable indicates whether retrying the same request may succeed.
	Retryable bool
}

// ResponseMetadata describes how a response was produced.
type ResponseMetadata struct {
	// Timestamp is when the response was assembled.
	Timestamp time.Time
	// Duration is the end-to-end time for this attempt.
	Duration time.Duration
	// Region is the API region that served the call.
	Region string
	// RetryCount echoes the caller-reported attempt number.
	RetryCount int
	// FromCache indicates the data was served without a dispatch.
	FromCache bool
}

// Response is the result of exactly one coordinator invocation.
type Response struct {
	// RequestID echoes the request's identifier.
	RequestID string
	// Success indicates the call completed and Data is populated.
	Success bool
	// Data is the operation output when Success is true.
	Data any
	// Error describes the failure when Success is false.
	Error *ResponseError
	// Metadata describes how the response was produced.
	Metadata ResponseMetadata
}
