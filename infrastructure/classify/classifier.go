// Package classify turns heterogeneous transport failures into typed
// classifications with retry semantics.
package classify

import (
	"errors"
	"math"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/meetscribe/scribe-go/domain/call"
	"github.com/meetscribe/scribe-go/domain/config"
	"github.com/meetscribe/scribe-go/domain/failure"
	"github.com/meetscribe/scribe-go/infrastructure/logging"
)

// jitterFraction is the maximum relative jitter added to retry delays.
const jitterFraction = 0.10

// statusKinds maps HTTP status codes to failure kinds. Unlisted codes
// fall through to internal_error.
var statusKinds = map[int]failure.Kind{
	400: failure.KindBadRequest,
	401: failure.KindAuthFailed,
	403: failure.KindInvalidCredential,
	404: failure.KindNotFound,
	408: failure.KindTimeout,
	413: failure.KindOversizedInput,
	429: failure.KindRateLimited,
	500: failure.KindInternalError,
	503: failure.KindServiceUnavailable,
}

// codeOverrides refine the status mapping by substring match on the
// lowercased error code. Order matters: the first match wins.
var codeOverrides = []struct {
	substr string
	kind   failure.Kind
}{
	{"auth", failure.KindAuthFailed},
	{"quota", failure.KindQuotaExceeded},
	{"rate", failure.KindRateLimited},
	{"region", failure.KindRegionUnavailable},
	{"format", failure.KindUnsupportedFormat},
	{"language", failure.KindUnsupportedLanguage},
	{"concurrent", failure.KindConcurrencyLimitExceeded},
}

// messagePatterns refine further by matching the failure message. A
// message match takes precedence over both the status and code mappings:
// messages are the most specific signal the API gives us. Order matters.
var messagePatterns = []struct {
	re   *regexp.Regexp
	kind failure.Kind
}{
	{regexp.MustCompile(`(?i)invalid\s+credential`), failure.KindInvalidCredential},
	{regexp.MustCompile(`(?i)unauthorized|authentication|auth\b`), failure.KindAuthFailed},
	{regexp.MustCompile(`(?i)quota`), failure.KindQuotaExceeded},
	{regexp.MustCompile(`(?i)rate\s*limit|too\s+many\s+requests`), failure.KindRateLimited},
	{regexp.MustCompile(`(?i)region`), failure.KindRegionUnavailable},
	{regexp.MustCompile(`(?i)unsupported\s+format|invalid\s+format`), failure.KindUnsupportedFormat},
	{regexp.MustCompile(`(?i)unsupported\s+language|invalid\s+language`), failure.KindUnsupportedLanguage},
	{regexp.MustCompile(`(?i)concurren`), failure.KindConcurrencyLimitExceeded},
	{regexp.MustCompile(`(?i)timeout|timed\s+out|deadline\s+exceeded`), failure.KindTimeout},
}

// kindProfile is the fixed (category, severity) tuple for a kind.
type kindProfile struct {
	category failure.Category
	severity failure.Severity
}

var kindProfiles = map[failure.Kind]kindProfile{
	failure.KindAuthFailed:               {failure.CategoryAuthentication, failure.SeverityHigh},
	failure.KindInvalidCredential:        {failure.CategoryAuthentication, failure.SeverityHigh},
	failure.KindQuotaExceeded:            {failure.CategoryQuota, failure.SeverityMedium},
	failure.KindRateLimited:              {failure.CategoryQuota, failure.SeverityMedium},
	failure.KindConcurrencyLimitExceeded: {failure.CategoryQuota, failure.SeverityMedium},
	failure.KindBadRequest:               {failure.CategoryValidation, failure.SeverityMedium},
	failure.KindUnsupportedFormat:        {failure.CategoryValidation, failure.SeverityMedium},
	failure.KindOversizedInput:           {failure.CategoryValidation, failure.SeverityMedium},
	failure.KindUndersizedInput:          {failure.CategoryValidation, failure.SeverityMedium},
	failure.KindUnsupportedLanguage:      {failure.CategoryValidation, failure.SeverityMedium},
	failure.KindServiceUnavailable:       {failure.CategoryService, failure.SeverityHigh},
	failure.KindRegionUnavailable:        {failure.CategoryService, failure.SeverityHigh},
	failure.KindTimeout:                  {failure.CategoryNetwork, failure.SeverityLow},
}

// retryableKinds are retried regardless of status code.
var retryableKinds = map[failure.Kind]bool{
	failure.KindTimeout:            true,
	failure.KindServiceUnavailable: true,
	failure.KindInternalError:      true,
	failure.KindRateLimited:        true,
}

// retryableStatuses force retryability even for kinds outside the
// retryable set.
var retryableStatuses = map[int]bool{
	408: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// backoffPolicies maps kinds to their delay-growth rule. Unlisted kinds
// get no backoff.
var backoffPolicies = map[failure.Kind]failure.BackoffPolicy{
	failure.KindRateLimited:              failure.BackoffExponential,
	failure.KindQuotaExceeded:            failure.BackoffExponential,
	failure.KindTimeout:                  failure.BackoffLinear,
	failure.KindServiceUnavailable:       failure.BackoffLinear,
	failure.KindConcurrencyLimitExceeded: failure.BackoffAdaptive,
}

// Classifier derives typed classifications from raw failures. Stateless
// per call; safe for concurrent use.
type Classifier struct {
	backoff config.BackoffConfig
	jitter  bool
	randFn  func() float64
}

// Option configures the classifier.
type Option func(*Classifier)

// WithJitter toggles random jitter on retry delays.
func WithJitter(enabled bool) Option {
	return func(c *Classifier) {
		c.jitter = enabled
	}
}

// WithRand overrides the jitter source. Intended for tests.
func WithRand(fn func() float64) Option {
	return func(c *Classifier) {
		c.randFn = fn
	}
}

// NewClassifier creates a classifier using the given backoff settings
// for retry-delay computation.
func NewClassifier(cfg config.BackoffConfig, opts ...Option) *Classifier {
	c := &Classifier{
		backoff: cfg,
		jitter:  cfg.Jitter,
		randFn:  rand.Float64,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify turns a raw failure into a classification. It never panics:
// an internal failure degrades to a safe internal_error classification.
func (c *Classifier) Classify(raw error, fctx failure.Context) (out failure.Classification) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Add(logging.RequestID(fctx.RequestID)).
				Add(logging.Str("panic", "classification")).
				Msg("classifier degraded to default")
			out = defaultClassification()
		}
	}()

	status, code, message := extract(raw)

	kind := failure.KindInternalError
	if k, ok := statusKinds[status]; ok {
		kind = k
	}
	if code != "" {
		lower := strings.ToLower(code)
		for _, o := range codeOverrides {
			if strings.Contains(lower, o.substr) {
				kind = o.kind
				break
			}
		}
	}
	if message != "" {
		for _, p := range messagePatterns {
			if p.re.MatchString(message) {
				kind = p.kind
				break
			}
		}
	}

	profile, ok := kindProfiles[kind]
	if !ok {
		profile = kindProfile{failure.CategorySystem, failure.SeverityMedium}
	}

	return failure.Classification{
		Kind:                kind,
		Category:            profile.category,
		Severity:            profile.severity,
		Retryable:           retryableKinds[kind] || retryableStatuses[status],
		Backoff:             backoffPolicy(kind),
		UserMessage:         userMessage(kind),
		RecoverySuggestions: recoverySuggestions(kind),
	}
}

// ShouldRetry reports whether the caller should retry given the
// classification and how many attempts it has already made.
func (c *Classifier) ShouldRetry(cl failure.Classification, fctx failure.Context) bool {
	return cl.Retryable && fctx.RetryAttempt < fctx.MaxAttempts
}

// RetryDelay computes the wait before the given retry attempt:
// min(initialDelay * factor^attempt, maxDelay), plus up to 10% jitter
// when enabled, floored to a whole millisecond.
func (c *Classifier) RetryDelay(attempt int) time.Duration {
	delay := float64(c.backoff.InitialDelay) * math.Pow(c.backoff.Factor, float64(attempt))
	if ceiling := float64(c.backoff.MaxDelay); delay > ceiling {
		delay = ceiling
	}
	if c.jitter {
		delay += delay * jitterFraction * c.randFn()
	}
	return time.Duration(delay).Truncate(time.Millisecond)
}

func backoffPolicy(kind failure.Kind) failure.BackoffPolicy {
	if p, ok := backoffPolicies[kind]; ok {
		return p
	}
	return failure.BackoffNone
}

// extract adapts the error into (status, code, message). Transport
// failures carry all three on a closed struct; anything else is treated
// as a bare message.
func extract(raw error) (status int, code, message string) {
	var rf *call.RawFailure
	if errors.As(raw, &rf) {
		return rf.StatusCode, rf.ErrorCode, rf.Message
	}
	if raw != nil {
		return 0, "", raw.Error()
	}
	return 0, "", ""
}

func defaultClassification() failure.Classification {
	return failure.Classification{
		Kind:                failure.KindInternalError,
		Category:            failure.CategorySystem,
		Severity:            failure.SeverityMedium,
		Retryable:           false,
		Backoff:             failure.BackoffNone,
		UserMessage:         userMessage(failure.KindInternalError),
		RecoverySuggestions: recoverySuggestions(failure.KindInternalError),
	}
}
