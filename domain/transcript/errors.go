package transcript

import "errors"

// Validation errors for transcription results. Invalid data is refused at
// cache time with one of these, never silently dropped.
var (
	// ErrEmptyText is returned when a result has no transcribed text.
	ErrEmptyText = errors.New("transcript text is empty")

	// ErrTextTooLong is returned when text exceeds the configured maximum.
	ErrTextTooLong = errors.New("transcript text exceeds maximum length")

	// ErrConfidenceOutOfRange is returned when confidence is outside [0, 1].
	ErrConfidenceOutOfRange = errors.New("transcript confidence outside [0, 1]")

	// ErrNonPositiveDuration is returned when audio duration is not positive.
	ErrNonPositiveDuration = errors.New("transcript duration is not positive")
)
