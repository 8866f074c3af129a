package transcript

import "time"

// CreateRequest is the payload for a create_transcription call.
type CreateRequest struct {
	// AudioURL locates the audio to transcribe.
	AudioURL string `json:"audio_url" yaml:"audio_url"`
	// Language is the expected spoken language, or empty for detection.
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
	// ContentHash is an optional digest of the audio content, used for
	// cache-key derivation.
	ContentHash string `json:"content_hash,omitempty" yaml:"content_hash,omitempty"`
}

// JobRef is the payload for get_transcription and delete_transcription
// calls.
type JobRef struct {
	// JobID identifies the transcription job.
	JobID string `json:"job_id" yaml:"job_id"`
}

// ListQuery is the payload for a list_transcriptions call.
type ListQuery struct {
	// Limit caps the page size; zero means the API default.
	Limit int `json:"limit,omitempty" yaml:"limit,omitempty"`
	// PageToken resumes a previous listing.
	PageToken string `json:"page_token,omitempty" yaml:"page_token,omitempty"`
}

// ListPage is one page of transcription results.
type ListPage struct {
	// Results are the transcriptions on this page.
	Results []Result `json:"results"`
	// NextPageToken continues the listing, empty on the last page.
	NextPageToken string `json:"next_page_token,omitempty"`
}

// HealthStatus reports the API's availability for a region.
type HealthStatus struct {
	// Healthy reports whether the API answered within bounds.
	Healthy bool `json:"healthy"`
	// Region is the probed region.
	Region string `json:"region"`
	// Latency is the observed round-trip time.
	Latency time.Duration `json:"latency"`
}

// AuthToken is the result of an authenticate call.
type AuthToken struct {
	// Token is the bearer token for subsequent calls.
	Token string `json:"token"`
	// ExpiresAt is when the token stops being valid.
	ExpiresAt time.Time `json:"expires_at"`
}
