// Package failure provides the typed failure taxonomy for API call errors.
package failure

// Kind is the closed set of failure kinds a raw error classifies into.
type Kind string

const (
	// KindAuthFailed is a failed authentication attempt.
	KindAuthFailed Kind = "auth_failed"
	// KindInvalidCredential is a rejected credential.
	KindInvalidCredential Kind = "invalid_credential"
	// KindQuotaExceeded is an exhausted usage quota.
	KindQuotaExceeded Kind = "quota_exceeded"
	// KindRateLimited is a throttled request.
	KindRateLimited Kind = "rate_limited"
	// KindRegionUnavailable is an unreachable API region.
	KindRegionUnavailable Kind = "region_unavailable"
	// KindUnsupportedFormat is an audio format the API rejects.
	KindUnsupportedFormat Kind = "unsupported_format"
	// KindOversizedInput is audio exceeding the API's size limit.
	KindOversizedInput Kind = "oversized_input"
	// KindUndersizedInput is audio below the API's minimum length.
	KindUndersizedInput Kind = "undersized_input"
	// KindUnsupportedLanguage is a language the API cannot transcribe.
	KindUnsupportedLanguage Kind = "unsupported_language"
	// KindServiceUnavailable is a temporarily down service.
	KindServiceUnavailable Kind = "service_unavailable"
	// KindTimeout is an elapsed deadline.
	KindTimeout Kind = "timeout"
	// KindInternalError is an upstream server error and the safe default.
	KindInternalError Kind = "internal_error"
	// KindBadRequest is a malformed request.
	KindBadRequest Kind = "bad_request"
	// KindNotFound is a missing resource.
	KindNotFound Kind = "not_found"
	// KindConcurrencyLimitExceeded is too many simultaneous requests.
	KindConcurrencyLimitExceeded Kind = "concurrency_limit_exceeded"
)

// Category groups kinds for reporting.
type Category string

const (
	// CategoryAuthentication covers credential and session failures.
	CategoryAuthentication Category = "authentication"
	// CategoryQuota covers quota, rate, and concurrency exhaustion.
	CategoryQuota Category = "quota"
	// CategoryValidation covers rejected input.
	CategoryValidation Category = "validation"
	// CategoryService covers upstream outages.
	CategoryService Category = "service"
	// CategoryNetwork covers transport-level failures.
	CategoryNetwork Category = "network"
	// CategorySystem is the catch-all.
	CategorySystem Category = "system"
)

// Severity ranks user impact.
type Severity string

const (
	// SeverityLow failures usually resolve on retry.
	SeverityLow Severity = "low"
	// SeverityMedium failures need caller action (slow down, fix input).
	SeverityMedium Severity = "medium"
	// SeverityHigh failures block progress until resolved.
	SeverityHigh Severity = "high"
)

// BackoffPolicy selects the delay-growth rule between retries.
type BackoffPolicy string

const (
	// BackoffNone means no delay is recommended.
	BackoffNone BackoffPolicy = "none"
	// BackoffLinear grows the delay linearly.
	BackoffLinear BackoffPolicy = "linear"
	// BackoffExponential doubles (or multiplies) the delay each attempt.
	BackoffExponential BackoffPolicy = "exponential"
	// BackoffAdaptive defers to the rate-limit manager's observed state.
	BackoffAdaptive BackoffPolicy = "adaptive"
)

// Classification is the typed verdict for one raw failure. It is derived
// purely from the inputs; the classifier holds no per-call state.
type Classification struct {
	// Kind is the failure kind.
	Kind Kind
	// Category groups the kind.
	Category Category
	// Severity ranks user impact.
	Severity Severity
	// Retryable indicates whether the same request may succeed later.
	Retryable bool
	// Backoff is the recommended delay-growth rule.
	Backoff BackoffPolicy
	// UserMessage is safe for direct display; never a stack trace.
	UserMessage string
	// RecoverySuggestions are short actionable hints.
	RecoverySuggestions []string
}

// Context carries the retry state the caller accumulated for one logical
// operation across attempts.
type Context struct {
	// RetryAttempt is the zero-based attempt number.
	RetryAttempt int
	// MaxAttempts bounds retries for this operation.
	MaxAttempts int
	// CallType names the operation for logging.
	CallType string
	// RequestID ties the classification to a request.
	RequestID string
}
