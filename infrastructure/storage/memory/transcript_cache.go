package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/meetscribe/scribe-go/domain/cache"
	"github.com/meetscribe/scribe-go/domain/config"
	"github.com/meetscribe/scribe-go/domain/transcript"
)

// minTTLScale floors the confidence-based TTL reduction.
const minTTLScale = 0.5

// TranscriptCache specializes the cache engine for transcription results.
// Keys rotate daily: the lookup hash covers the normalized audio URL, the
// sorted auth header names and values, the optional content hash, and the
// UTC date, so identical inputs stop colliding across days.
type TranscriptCache struct {
	engine *Cache[transcript.Result]

	baseTTL       time.Duration
	minConfidence float64
	maxTextLength int
	now           func() time.Time
}

// KeyOptions name the inputs that participate in the lookup hash.
type KeyOptions struct {
	// AuthHeaders are the request's auth headers. Both names and values
	// participate in the key, sorted by name.
	AuthHeaders map[string]string
	// ContentHash is an optional digest of the audio content.
	ContentHash string
}

// LookupOptions configure one lookup.
type LookupOptions struct {
	KeyOptions
	// RequireMinConfidence treats hits below the configured minimum
	// confidence as misses.
	RequireMinConfidence bool
}

// TranscriptCacheOption configures the specialization.
type TranscriptCacheOption func(*TranscriptCache)

// WithTranscriptClock overrides the time source. Intended for tests.
func WithTranscriptClock(now func() time.Time) TranscriptCacheOption {
	return func(tc *TranscriptCache) {
		tc.now = now
		tc.engine.now = now
	}
}

// NewTranscriptCache creates a transcription cache over a dedicated engine
// configured from cfg. Integrity checking digests the result's text.
func NewTranscriptCache(cfg config.CacheConfig, opts ...TranscriptCacheOption) *TranscriptCache {
	tc := &TranscriptCache{
		baseTTL:       cfg.DefaultTTL,
		minConfidence: cfg.MinConfidence,
		maxTextLength: cfg.MaxTextLength,
		now:           time.Now,
	}
	tc.engine = New[transcript.Result](
		WithMaxEntries[transcript.Result](cfg.MaxEntries),
		WithMaxSizeBytes[transcript.Result](cfg.MaxSizeBytes),
		WithDefaultTTL[transcript.Result](cfg.DefaultTTL),
		WithChecksum[transcript.Result](transcriptChecksum),
		WithSizeFunc[transcript.Result](transcriptSize),
	)
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

// CacheTranscription validates and stores a result. The TTL is the base
// TTL scaled by max(0.5, confidence) so low-confidence transcriptions
// expire sooner and get re-transcribed.
func (tc *TranscriptCache) CacheTranscription(ctx context.Context, audioURL string, data transcript.Result, opts KeyOptions) error {
	if err := data.Validate(tc.maxTextLength); err != nil {
		return errors.Join(cache.ErrInvalidData, err)
	}

	scale := data.Confidence
	if scale < minTTLScale {
		scale = minTTLScale
	}
	ttl := time.Duration(float64(tc.baseTTL) * scale)

	key := tc.key(audioURL, opts)
	return tc.engine.Set(ctx, key, data, cache.SetOptions{TTL: ttl})
}

// LookupTranscription retrieves a cached result for the audio URL. A hit
// below the configured minimum confidence is reported as a miss (not an
// error) when opts.RequireMinConfidence is set.
func (tc *TranscriptCache) LookupTranscription(ctx context.Context, audioURL string, opts LookupOptions) (transcript.Result, bool, error) {
	key := tc.key(audioURL, opts.KeyOptions)

	data, found, err := tc.engine.Get(ctx, key)
	if err != nil || !found {
		return transcript.Result{}, false, err
	}
	if opts.RequireMinConfidence && data.Confidence < tc.minConfidence {
		return transcript.Result{}, false, nil
	}
	return data, true, nil
}

// Key returns the daily-rotating lookup hash for the audio URL. Shared
// second-level stores use it so both levels agree on identity.
func (tc *TranscriptCache) Key(audioURL string, opts KeyOptions) string {
	return tc.key(audioURL, opts)
}

// Stats exposes the underlying engine's counters.
func (tc *TranscriptCache) Stats() cache.Stats {
	return tc.engine.Stats()
}

// Clear empties the cache.
func (tc *TranscriptCache) Clear(ctx context.Context) error {
	return tc.engine.Clear(ctx)
}

// AddListener registers an event listener on the underlying engine.
func (tc *TranscriptCache) AddListener(fn cache.Listener) int {
	return tc.engine.AddListener(fn)
}

// RemoveListener unregisters a listener.
func (tc *TranscriptCache) RemoveListener(id int) {
	tc.engine.RemoveListener(id)
}

// key computes the daily-rotating lookup hash.
func (tc *TranscriptCache) key(audioURL string, opts KeyOptions) string {
	h := sha256.New()
	h.Write([]byte(normalizeURL(audioURL)))
	h.Write([]byte{0})

	names := make([]string, 0, len(opts.AuthHeaders))
	for name := range opts.AuthHeaders {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h.Write([]byte(strings.ToLower(name)))
		h.Write([]byte{1})
		h.Write([]byte(opts.AuthHeaders[name]))
		h.Write([]byte{1})
	}

	h.Write([]byte{0})
	h.Write([]byte(opts.ContentHash))
	h.Write([]byte{0})
	h.Write([]byte(tc.now().UTC().Format("2006-01-02")))

	return hex.EncodeToString(h.Sum(nil))
}

// normalizeURL canonicalizes an audio URL: scheme and host are lowercased,
// the fragment is dropped, and query parameters are sorted. Unparseable
// input falls back to the raw string.
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawQuery = u.Query().Encode() // Encode sorts by key
	return u.String()
}

// transcriptChecksum digests the fields integrity verification covers.
func transcriptChecksum(r transcript.Result) string {
	h := sha256.Sum256([]byte(r.Text))
	return hex.EncodeToString(h[:])
}

// transcriptSize accounts text plus a fixed overhead for the struct.
func transcriptSize(r transcript.Result) int64 {
	return int64(len(r.Text)) + 128
}
