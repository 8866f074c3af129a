// Package call provides the domain model for outbound transcription API calls.
package call

import "time"

// Type identifies the kind of API operation a request performs.
type Type string

const (
	// TypeCreateTranscription submits audio for transcription.
	TypeCreateTranscription Type = "create_transcription"
	// TypeGetTranscription fetches a transcription job result.
	TypeGetTranscription Type = "get_transcription"
	// TypeListTranscriptions lists transcription jobs.
	TypeListTranscriptions Type = "list_transcriptions"
	// TypeDeleteTranscription deletes a transcription job.
	TypeDeleteTranscription Type = "delete_transcription"
	// TypeGetHealth probes API availability.
	TypeGetHealth Type = "get_health"
	// TypeAuthenticate exchanges credentials for a session token.
	TypeAuthenticate Type = "authenticate"
)

// Valid reports whether the call type is one of the known operations.
func (t Type) Valid() bool {
	switch t {
	case TypeCreateTranscription, TypeGetTranscription, TypeListTranscriptions,
		TypeDeleteTranscription, TypeGetHealth, TypeAuthenticate:
		return true
	}
	return false
}

// Priority orders queued requests. Higher values drain first.
type Priority int

const (
	// PriorityLow is background work.
	PriorityLow Priority = iota
	// PriorityNormal is the default.
	PriorityNormal
	// PriorityHigh is user-visible work.
	PriorityHigh
	// PriorityUrgent preempts everything else in the queue.
	PriorityUrgent
)

// String returns the priority name.
func (p Priority) String() string {
	switch p {
	case PriorityUrgent:
		return "urgent"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Options control per-call behavior. Zero values fall back to the
// coordinator's configured defaults.
type Options struct {
	// Timeout bounds the transport dispatch.
	Timeout time.Duration
	// MaxRetries is advisory for the caller's retry loop.
	MaxRetries int
	// EnableCaching opts this call into the response cache.
	EnableCaching bool
	// CacheTTL overrides the cache's default TTL when positive.
	CacheTTL time.Duration
}

// Metadata carries caller-supplied context for logging and statistics.
type Metadata struct {
	// Source names the subsystem that issued the call.
	Source string
	// JobID ties the call to an orchestrator job.
	JobID string
	// Tags are free-form labels.
	Tags []string
}

// Request describes one outbound API call. A Request is immutable once
// handed to the coordinator; each retry attempt is a new Request.
type Request struct {
	// RequestID uniquely identifies this attempt.
	RequestID string
	// CallType selects the operation.
	CallType Type
	// Priority orders the request among queued work.
	Priority Priority
	// Region selects the API region the call targets.
	Region string
	// Payload is the operation input. It must be JSON-marshalable so the
	// cache and deduplication key can be derived from it.
	Payload any
	// Options are per-call overrides.
	Options Options
	// Metadata is caller context.
	Metadata Metadata
}

// Validate checks that the request can be dispatched.
func (r Request) Validate() error {
	if r.RequestID == "" {
		return ErrMissingRequestID
	}
	if !r.CallType.Valid() {
		return ErrUnsupportedCallType
	}
	return nil
}
