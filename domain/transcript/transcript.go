// Package transcript provides the domain model for transcription results.
package transcript

import "time"

// DefaultMaxTextLength bounds transcript text accepted by validation.
const DefaultMaxTextLength = 1_000_000

// Result is one completed transcription as returned by the API.
type Result struct {
	// JobID identifies the transcription job upstream.
	JobID string `json:"job_id,omitempty"`
	// Text is the transcribed speech.
	Text string `json:"text"`
	// Confidence is the recognizer's confidence in [0, 1].
	Confidence float64 `json:"confidence"`
	// Duration is the length of the transcribed audio.
	Duration time.Duration `json:"duration"`
	// Language is the detected or requested language code.
	Language string `json:"language,omitempty"`
	// Region is the API region that produced the result.
	Region string `json:"region,omitempty"`
	// CompletedAt is when the upstream job finished.
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// Validate checks the invariants a result must satisfy before it is cached.
// maxTextLength <= 0 falls back to DefaultMaxTextLength.
func (r Result) Validate(maxTextLength int) error {
	if maxTextLength <= 0 {
		maxTextLength = DefaultMaxTextLength
	}
	if r.Text == "" {
		return ErrEmptyText
	}
	if len(r.Text) > maxTextLength {
		return ErrTextTooLong
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return ErrConfidenceOutOfRange
	}
	if r.Duration <= 0 {
		return ErrNonPositiveDuration
	}
	return nil
}
