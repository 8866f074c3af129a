package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/meetscribe/scribe-go/domain/call"
	"github.com/meetscribe/scribe-go/domain/transcript"
	"github.com/meetscribe/scribe-go/infrastructure/logging"
	"github.com/meetscribe/scribe-go/infrastructure/storage/memory"
)

// CreateTranscription submits audio for transcription. The transcript
// cache (and the shared store, when configured) is consulted before any
// call goes out: a fresh, confident transcription of the same audio is
// served directly.
func (c *Coordinator) CreateTranscription(ctx context.Context, req transcript.CreateRequest) (call.Response, error) {
	cfg := c.config()
	requestID := uuid.NewString()
	keyOpts := c.transcriptKeyOptions(req)

	if cfg.EnableCaching {
		if result, found := c.lookupTranscript(ctx, req.AudioURL, keyOpts); found {
			c.stats.recordCached()
			c.metrics.RecordCacheHit(ctx, string(call.TypeCreateTranscription))
			return call.Response{
				RequestID: requestID,
				Success:   true,
				Data:      result,
				Metadata: call.ResponseMetadata{
					Timestamp: c.now(),
					Region:    c.clientCfg.Region,
					FromCache: true,
				},
			}, nil
		}
		c.metrics.RecordCacheMiss(ctx, string(call.TypeCreateTranscription))
	}

	resp, err := c.ExecuteCall(ctx, call.Request{
		RequestID: requestID,
		CallType:  call.TypeCreateTranscription,
		Priority:  call.PriorityNormal,
		Payload:   req,
		Options: call.Options{
			Timeout:       cfg.DefaultTimeout,
			MaxRetries:    cfg.DefaultRetries,
			EnableCaching: true,
		},
	})
	if err != nil {
		return call.Response{}, err
	}

	if resp.Success && cfg.EnableCaching {
		if result, ok := resp.Data.(transcript.Result); ok {
			c.storeTranscript(ctx, req.AudioURL, keyOpts, result)
		}
	}
	return resp, nil
}

// GetTranscription fetches a transcription job's result by id.
func (c *Coordinator) GetTranscription(ctx context.Context, jobID string) (call.Response, error) {
	cfg := c.config()
	return c.ExecuteCall(ctx, call.Request{
		RequestID: uuid.NewString(),
		CallType:  call.TypeGetTranscription,
		Priority:  call.PriorityNormal,
		Payload:   transcript.JobRef{JobID: jobID},
		Options: call.Options{
			Timeout:       cfg.DefaultTimeout,
			MaxRetries:    cfg.DefaultRetries,
			EnableCaching: true,
		},
	})
}

// ListTranscriptions pages through completed transcriptions.
func (c *Coordinator) ListTranscriptions(ctx context.Context, query transcript.ListQuery) (call.Response, error) {
	cfg := c.config()
	return c.ExecuteCall(ctx, call.Request{
		RequestID: uuid.NewString(),
		CallType:  call.TypeListTranscriptions,
		Priority:  call.PriorityLow,
		Payload:   query,
		Options: call.Options{
			Timeout:       cfg.DefaultTimeout,
			MaxRetries:    cfg.DefaultRetries,
			EnableCaching: true,
		},
	})
}

// DeleteTranscription removes a transcription job. Never cached.
func (c *Coordinator) DeleteTranscription(ctx context.Context, jobID string) (call.Response, error) {
	cfg := c.config()
	return c.ExecuteCall(ctx, call.Request{
		RequestID: uuid.NewString(),
		CallType:  call.TypeDeleteTranscription,
		Priority:  call.PriorityNormal,
		Payload:   transcript.JobRef{JobID: jobID},
		Options: call.Options{
			Timeout:    cfg.DefaultTimeout,
			MaxRetries: cfg.DefaultRetries,
		},
	})
}

// PerformHealthCheck probes the API's availability. Health checks are
// urgent so they bypass queued backlog, and never cached.
func (c *Coordinator) PerformHealthCheck(ctx context.Context) (call.Response, error) {
	cfg := c.config()
	timeout := cfg.HealthCheck.Timeout
	if timeout <= 0 {
		timeout = cfg.DefaultTimeout
	}
	return c.ExecuteCall(ctx, call.Request{
		RequestID: uuid.NewString(),
		CallType:  call.TypeGetHealth,
		Priority:  call.PriorityUrgent,
		Options: call.Options{
			Timeout: timeout,
		},
	})
}

// Authenticate exchanges the configured credential for a bearer token.
func (c *Coordinator) Authenticate(ctx context.Context) (call.Response, error) {
	cfg := c.config()
	return c.ExecuteCall(ctx, call.Request{
		RequestID: uuid.NewString(),
		CallType:  call.TypeAuthenticate,
		Priority:  call.PriorityHigh,
		Options: call.Options{
			Timeout: cfg.DefaultTimeout,
		},
	})
}

// Stats returns a point-in-time snapshot of the coordinator's counters.
func (c *Coordinator) Stats() Stats {
	return c.stats.snapshot()
}

// transcriptKeyOptions binds the credential into the transcript cache
// key so results never leak across accounts.
func (c *Coordinator) transcriptKeyOptions(req transcript.CreateRequest) memory.KeyOptions {
	opts := memory.KeyOptions{ContentHash: req.ContentHash}
	if c.clientCfg.Credential != "" {
		opts.AuthHeaders = map[string]string{"Authorization": "Bearer " + c.clientCfg.Credential}
	}
	return opts
}

// lookupTranscript checks the in-process transcript cache, then the
// shared store.
func (c *Coordinator) lookupTranscript(ctx context.Context, audioURL string, keyOpts memory.KeyOptions) (transcript.Result, bool) {
	result, found, err := c.transcripts.LookupTranscription(ctx, audioURL, memory.LookupOptions{
		KeyOptions:           keyOpts,
		RequireMinConfidence: true,
	})
	if err == nil && found {
		return result, true
	}

	if c.shared == nil {
		return transcript.Result{}, false
	}
	key := c.transcripts.Key(audioURL, keyOpts)
	result, found, err = c.shared.Lookup(ctx, key)
	if err != nil {
		logging.Warn().Add(logging.ErrorField(err)).Msg("shared transcript lookup failed")
		return transcript.Result{}, false
	}
	if !found || result.Confidence < c.cacheCfg.MinConfidence {
		return transcript.Result{}, false
	}
	// Promote into the in-process cache for subsequent lookups.
	if err := c.transcripts.CacheTranscription(ctx, audioURL, result, keyOpts); err != nil {
		logging.Warn().Add(logging.ErrorField(err)).Msg("transcript promotion failed")
	}
	return result, true
}

// storeTranscript populates both cache levels after a successful
// transcription.
func (c *Coordinator) storeTranscript(ctx context.Context, audioURL string, keyOpts memory.KeyOptions, result transcript.Result) {
	if err := c.transcripts.CacheTranscription(ctx, audioURL, result, keyOpts); err != nil {
		logging.Warn().Add(logging.ErrorField(err)).Msg("transcript cache populate failed")
		return
	}
	if c.shared == nil {
		return
	}

	ttl := time.Duration(float64(c.cacheCfg.DefaultTTL) * scaleForConfidence(result.Confidence))
	key := c.transcripts.Key(audioURL, keyOpts)
	if err := c.shared.Store(ctx, key, result, ttl); err != nil {
		logging.Warn().Add(logging.ErrorField(err)).Msg("shared transcript store failed")
	}
}

// scaleForConfidence mirrors the in-process cache's TTL scaling.
func scaleForConfidence(confidence float64) float64 {
	if confidence < 0.5 {
		return 0.5
	}
	return confidence
}
