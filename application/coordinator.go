// Package application provides the API call coordinator: the single entry
// point that governs how and when calls to the transcription API happen
// and whether their results can be served from cache.
package application

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/meetscribe/scribe-go/domain/cache"
	"github.com/meetscribe/scribe-go/domain/call"
	"github.com/meetscribe/scribe-go/domain/config"
	"github.com/meetscribe/scribe-go/domain/failure"
	"github.com/meetscribe/scribe-go/infrastructure/classify"
	"github.com/meetscribe/scribe-go/infrastructure/logging"
	"github.com/meetscribe/scribe-go/infrastructure/ratelimit"
	"github.com/meetscribe/scribe-go/infrastructure/storage/memory"
	"github.com/meetscribe/scribe-go/infrastructure/storage/redis"
	"github.com/meetscribe/scribe-go/infrastructure/telemetry"
)

// Coordinator orchestrates one external API call end-to-end: cache
// lookup, deduplication of in-flight identical calls, rate-limit
// admission, dispatch, statistics, and cache population on success.
//
// The coordinator never loops retries itself. Failures come back as a
// failed response carrying the classifier's verdict; the caller decides
// whether and when to retry.
type Coordinator struct {
	cfg       config.CoordinatorConfig
	cacheCfg  config.CacheConfig
	clientCfg call.ClientConfig

	transport  call.Transport
	pool       call.ClientPool
	limiter    *ratelimit.Manager
	classifier *classify.Classifier
	metrics    telemetry.Metrics

	responses   *memory.Cache[call.Response]
	transcripts *memory.TranscriptCache
	shared      *redis.TranscriptStore

	inflight *registry
	stats    *statistics

	mu       sync.Mutex
	active   map[string]call.Type
	draining sync.WaitGroup
	shutdown bool
	stopped  chan struct{}

	now func() time.Time
}

// Deps are the external collaborators the coordinator consumes.
type Deps struct {
	// Transport dispatches calls to the transcription API.
	Transport call.Transport
	// Pool leases transport clients.
	Pool call.ClientPool
}

// Option configures the coordinator.
type Option func(*Coordinator)

// WithMetrics sets the metrics sink. Defaults to a no-op provider.
func WithMetrics(m telemetry.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithSharedStore adds a Redis-backed second cache level for transcripts.
func WithSharedStore(s *redis.TranscriptStore) Option {
	return func(c *Coordinator) {
		c.shared = s
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// New creates a coordinator from the given configuration and
// collaborators. The rate-limit manager, classifier, and caches are
// constructed internally; nothing is shared process-wide.
func New(cfg config.Config, deps Deps, opts ...Option) (*Coordinator, error) {
	if deps.Transport == nil {
		return nil, errors.New("application: transport is required")
	}
	if deps.Pool == nil {
		return nil, errors.New("application: client pool is required")
	}

	c := &Coordinator{
		cfg:      cfg.Coordinator,
		cacheCfg: cfg.Cache,
		clientCfg: call.ClientConfig{
			Region:     cfg.Transport.Region,
			Credential: cfg.Transport.Credential,
		},
		transport:  deps.Transport,
		pool:       deps.Pool,
		limiter:    ratelimit.NewManager(cfg.RateLimit),
		classifier: classify.NewClassifier(cfg.RateLimit.Backoff),
		metrics:    &telemetry.NoopMetricsProvider{},
		responses: memory.New[call.Response](
			memory.WithMaxEntries[call.Response](cfg.Cache.MaxEntries),
			memory.WithMaxSizeBytes[call.Response](cfg.Cache.MaxSizeBytes),
			memory.WithDefaultTTL[call.Response](cfg.Cache.DefaultTTL),
			memory.WithSizeFunc[call.Response](responseSize),
		),
		transcripts: memory.NewTranscriptCache(cfg.Cache),
		inflight:    newRegistry(),
		stats:       newStatistics(),
		active:      make(map[string]call.Type),
		stopped:     make(chan struct{}),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.cfg.HealthCheck.Enabled {
		go c.healthLoop()
	}
	return c, nil
}

// ExecuteCall runs one API call through the full pipeline. The returned
// error is reserved for programming mistakes (invalid request,
// unsupported call type) and shutdown; API failures come back as a
// response with Success=false and a classified error.
func (c *Coordinator) ExecuteCall(ctx context.Context, req call.Request) (call.Response, error) {
	if err := req.Validate(); err != nil {
		return call.Response{}, err
	}

	// One snapshot of the runtime-patchable configuration serves the whole
	// invocation; UpdateConfig replaces c.cfg under the same lock.
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return call.Response{}, call.ErrShuttingDown
	}
	cfg := c.cfg
	c.draining.Add(1)
	c.mu.Unlock()
	defer c.draining.Done()

	start := c.now()

	key := c.requestKey(cfg, req)

	// Cache lookup.
	if cachingEnabled(cfg, req) && key != "" {
		if resp, found := c.cachedResponse(ctx, key, req); found {
			return resp, nil
		}
	}

	// Deduplication: the first caller for a key dispatches; everyone else
	// waits for its result to be broadcast.
	if cfg.EnableDeduplication && key != "" {
		waiter, first := c.inflight.register(key)
		if !first {
			return c.awaitBroadcast(ctx, waiter, req)
		}
		defer c.inflight.unregister(key)
	}

	resp := c.dispatch(ctx, req, start)

	if cfg.EnableDeduplication && key != "" {
		c.inflight.broadcast(key, resp)
	}
	if resp.Success && cachingEnabled(cfg, req) && key != "" {
		c.storeResponse(ctx, key, req, resp)
	}
	return resp, nil
}

// dispatch performs admission, client acquisition, and the transport
// call, recording rate-limit bookkeeping unconditionally.
func (c *Coordinator) dispatch(ctx context.Context, req call.Request, start time.Time) call.Response {
	// Admission. A denial is never fatal: enqueue and wait for the
	// manager to signal readiness, bounded by the reported delay.
	if decision := c.limiter.CanProcessRequest(req); !decision.Allowed {
		c.metrics.RecordRateLimitDenial(ctx, decision.Reason)
		logging.Debug().
			Add(logging.RequestID(req.RequestID)).
			Add(logging.Str("reason", decision.Reason)).
			Add(logging.Delay(decision.Delay)).
			Msg("admission denied, queueing")

		waited := c.now()
		ready, cancel := c.limiter.Enqueue(req)
		select {
		case <-ready:
		case <-time.After(decision.Delay):
			// Proceeding without admission; the queued entry must not
			// linger and reserve a slot for a request already gone.
			cancel()
		case <-ctx.Done():
			cancel()
			return c.failureResponse(ctx, req, ctx.Err(), start)
		}
		c.metrics.RecordQueueDelay(ctx, c.now().Sub(waited))
	}

	client, err := c.pool.GetClient(ctx, c.clientCfg)
	if err != nil {
		return c.failureResponse(ctx, req, err, start)
	}
	defer c.pool.ReleaseClient(client.ClientID)

	c.limiter.RecordRequestStart(req.RequestID)
	c.metrics.IncrementActiveCalls(ctx)
	c.trackActive(req, true)

	dispatchStart := c.now()
	data, err := c.transport.Dispatch(ctx, client, req)

	// The limiter's latency feeds the adaptive controller, so it measures
	// the dispatch alone; queue and cache time stay out of that signal.
	c.limiter.RecordRequestCompletion(req.RequestID, err == nil, c.now().Sub(dispatchStart))
	duration := c.now().Sub(start)
	c.metrics.DecrementActiveCalls(ctx)
	c.trackActive(req, false)

	if err != nil {
		return c.failureResponse(ctx, req, err, start)
	}

	c.stats.recordSuccess(req.CallType, duration)
	c.metrics.RecordCall(ctx, string(req.CallType), true, false, duration)
	logging.Debug().
		Add(logging.RequestID(req.RequestID)).
		Add(logging.CallType(req.CallType)).
		Add(logging.Duration(duration)).
		Msg("call succeeded")

	return call.Response{
		RequestID: req.RequestID,
		Success:   true,
		Data:      data,
		Metadata: call.ResponseMetadata{
			Timestamp: c.now(),
			Duration:  duration,
			Region:    c.clientCfg.Region,
		},
	}
}

// failureResponse classifies the raw failure and converts it into a
// failed response. Every failure path funnels through the classifier;
// there is no second retryability heuristic.
func (c *Coordinator) failureResponse(ctx context.Context, req call.Request, rawErr error, start time.Time) call.Response {
	duration := c.now().Sub(start)

	resp, classification := c.classifiedResponse(req, rawErr, duration)

	c.stats.recordFailure(req.CallType)
	c.metrics.RecordCall(ctx, string(req.CallType), false, false, duration)
	c.metrics.RecordFailure(ctx, string(classification.Kind), string(classification.Category))
	logging.Warn().
		Add(logging.RequestID(req.RequestID)).
		Add(logging.CallType(req.CallType)).
		Add(logging.FailureKind(classification.Kind)).
		Add(logging.Retryable(classification.Retryable)).
		Add(logging.ErrorField(rawErr)).
		Msg("call failed")

	return resp
}

// classifiedResponse converts a raw failure into a failed response
// through the classifier without touching dispatch counters. Paths where
// no dispatch happened (a cancelled dedup wait) use it directly.
func (c *Coordinator) classifiedResponse(req call.Request, rawErr error, duration time.Duration) (call.Response, failure.Classification) {
	classification := c.classifier.Classify(rawErr, failure.Context{
		MaxAttempts: req.Options.MaxRetries,
		CallType:    string(req.CallType),
		RequestID:   req.RequestID,
	})

	return call.Response{
		RequestID: req.RequestID,
		Success:   false,
		Error: &call.ResponseError{
			Code:      string(classification.Kind),
			Message:   classification.UserMessage,
			Retryable: classification.Retryable,
		},
		Metadata: call.ResponseMetadata{
			Timestamp: c.now(),
			Duration:  duration,
			Region:    c.clientCfg.Region,
		},
	}, classification
}

// cachedResponse serves a response-cache hit, rebinding it to the
// requesting call.
func (c *Coordinator) cachedResponse(ctx context.Context, key string, req call.Request) (call.Response, bool) {
	resp, found, err := c.responses.Get(ctx, key)
	if err != nil || !found {
		c.metrics.RecordCacheMiss(ctx, string(req.CallType))
		return call.Response{}, false
	}

	c.stats.recordCached()
	c.metrics.RecordCacheHit(ctx, string(req.CallType))
	logging.Debug().
		Add(logging.RequestID(req.RequestID)).
		Add(logging.CacheKey(key)).
		Msg("served from cache")

	resp.RequestID = req.RequestID
	resp.Metadata.FromCache = true
	resp.Metadata.Timestamp = c.now()
	return resp, true
}

// storeResponse populates the response cache after a successful call.
func (c *Coordinator) storeResponse(ctx context.Context, key string, req call.Request, resp call.Response) {
	ttl := req.Options.CacheTTL
	if ttl <= 0 {
		ttl = c.cacheCfg.DefaultTTL
	}
	if err := c.responses.Set(ctx, key, resp, cache.SetOptions{TTL: ttl}); err != nil {
		logging.Warn().
			Add(logging.CacheKey(key)).
			Add(logging.ErrorField(err)).
			Msg("response cache populate failed")
	}
}

// awaitBroadcast blocks a duplicate call until the first caller's result
// arrives, then rebinds it to the waiting request.
func (c *Coordinator) awaitBroadcast(ctx context.Context, w *waiter, req call.Request) (call.Response, error) {
	c.metrics.RecordDedupSuppression(ctx, string(req.CallType))
	logging.Debug().
		Add(logging.RequestID(req.RequestID)).
		Add(logging.CallType(req.CallType)).
		Msg("duplicate in-flight call, awaiting result")

	select {
	case <-w.done:
		resp := w.resp
		resp.RequestID = req.RequestID
		return resp, nil
	case <-ctx.Done():
		// No dispatch happened for this waiter, so dispatch counters must
		// not move; the failure is reported, not recorded.
		resp, _ := c.classifiedResponse(req, ctx.Err(), 0)
		return resp, nil
	}
}

// requestKey derives the shared cache/dedup key. Derivation failure
// disables caching for this call rather than failing it.
func (c *Coordinator) requestKey(cfg config.CoordinatorConfig, req call.Request) string {
	if !cachingEnabled(cfg, req) && !cfg.EnableDeduplication {
		return ""
	}
	key, err := req.CacheKey()
	if err != nil {
		logging.Warn().
			Add(logging.RequestID(req.RequestID)).
			Add(logging.ErrorField(err)).
			Msg("cache key derivation failed, proceeding uncached")
		return ""
	}
	return key
}

func cachingEnabled(cfg config.CoordinatorConfig, req call.Request) bool {
	return cfg.EnableCaching && req.Options.EnableCaching
}

// config returns a copy of the coordinator configuration, safe to read
// alongside concurrent UpdateConfig calls.
func (c *Coordinator) config() config.CoordinatorConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

func (c *Coordinator) trackActive(req call.Request, add bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if add {
		c.active[req.RequestID] = req.CallType
	} else {
		delete(c.active, req.RequestID)
	}
}

// ActiveRequests returns the ids of requests currently dispatched.
func (c *Coordinator) ActiveRequests() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.active))
	for id := range c.active {
		ids = append(ids, id)
	}
	return ids
}

// UpdateConfig merges a partial coordinator configuration update.
func (c *Coordinator) UpdateConfig(patch config.CoordinatorPatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = patch.Apply(c.cfg)
}

// UpdateRateLimit merges a partial rate-limit configuration update.
func (c *Coordinator) UpdateRateLimit(patch config.RateLimitPatch) {
	c.limiter.UpdateConfig(patch)
}

// RateLimitStats returns the rate-limit manager's snapshot.
func (c *Coordinator) RateLimitStats() ratelimit.Stats {
	return c.limiter.Stats()
}

// Shutdown stops the health loop and waits, bounded by the configured
// drain timeout, for in-flight requests to finish. Requests still active
// past the timeout are logged, never aborted. Caches and bookkeeping are
// cleared before returning.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return nil
	}
	c.shutdown = true
	drainTimeout := c.cfg.ShutdownDrainTimeout
	close(c.stopped)
	c.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		c.draining.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(drainTimeout):
		c.mu.Lock()
		remaining := len(c.active)
		c.mu.Unlock()
		logging.Warn().
			Add(logging.ActiveRequests(remaining)).
			Msg("shutdown drain timeout elapsed with requests still active")
	case <-ctx.Done():
		logging.Warn().
			Add(logging.ErrorField(ctx.Err())).
			Msg("shutdown context cancelled before drain finished")
	}

	if err := c.responses.Clear(context.WithoutCancel(ctx)); err != nil {
		logging.Warn().Add(logging.ErrorField(err)).Msg("response cache clear failed")
	}
	if err := c.transcripts.Clear(context.WithoutCancel(ctx)); err != nil {
		logging.Warn().Add(logging.ErrorField(err)).Msg("transcript cache clear failed")
	}

	c.mu.Lock()
	c.active = make(map[string]call.Type)
	c.mu.Unlock()

	logging.Info().Msg("coordinator shut down")
	return nil
}

// healthLoop periodically probes the API until shutdown. The interval is
// fixed at loop start; the probe timeout follows config updates.
func (c *Coordinator) healthLoop() {
	interval := c.config().HealthCheck.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.config().HealthCheck.Timeout)
			resp, err := c.PerformHealthCheck(ctx)
			cancel()
			if err != nil || !resp.Success {
				logging.Warn().Msg("periodic health check failed")
				continue
			}
			logging.Debug().Msg("periodic health check ok")
		case <-c.stopped:
			return
		}
	}
}

// responseSize approximates a cached response's footprint by its JSON
// encoding, with a fixed floor for unencodable payloads.
func responseSize(resp call.Response) int64 {
	encoded, err := json.Marshal(resp)
	if err != nil {
		return 256
	}
	return int64(len(encoded))
}
