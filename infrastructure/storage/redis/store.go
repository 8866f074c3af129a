package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meetscribe/scribe-go/domain/cache"
	"github.com/meetscribe/scribe-go/domain/transcript"
)

// TranscriptStore is a Redis-backed transcript result store. It shares
// cached transcriptions across processes; the coordinator consults it on
// an in-process cache miss and writes through on success.
type TranscriptStore struct {
	client    *redis.Client
	keyPrefix string
	hits      atomic.Int64
	misses    atomic.Int64
}

// NewTranscriptStore connects to Redis with the given configuration.
func NewTranscriptStore(cfg Config, opts ...ConfigOption) (*TranscriptStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Join(cache.ErrConnectionFailed, err)
	}

	return &TranscriptStore{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// NewTranscriptStoreFromClient creates a store from an existing client.
func NewTranscriptStoreFromClient(client *redis.Client, keyPrefix string) *TranscriptStore {
	return &TranscriptStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// prefixKey adds the key prefix.
func (s *TranscriptStore) prefixKey(key string) string {
	return s.keyPrefix + "transcript:" + key
}

// Lookup retrieves a transcript by cache key.
func (s *TranscriptStore) Lookup(ctx context.Context, key string) (transcript.Result, bool, error) {
	if err := ctx.Err(); err != nil {
		return transcript.Result{}, false, err
	}

	raw, err := s.client.Get(ctx, s.prefixKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.misses.Add(1)
			return transcript.Result{}, false, nil
		}
		return transcript.Result{}, false, s.wrapError(err)
	}

	var result transcript.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		// A corrupt entry is deleted and reported as a miss.
		_ = s.client.Del(ctx, s.prefixKey(key)).Err()
		s.misses.Add(1)
		return transcript.Result{}, false, nil
	}

	s.hits.Add(1)
	return result, true, nil
}

// Store writes a transcript under the cache key with the given TTL.
func (s *TranscriptStore) Store(ctx context.Context, key string, data transcript.Result, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return cache.ErrInvalidKey
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return errors.Join(cache.ErrInvalidData, err)
	}

	var expiration time.Duration
	if ttl > 0 {
		expiration = ttl
	}
	if err := s.client.Set(ctx, s.prefixKey(key), encoded, expiration).Err(); err != nil {
		return s.wrapError(err)
	}
	return nil
}

// Delete removes a transcript by cache key.
func (s *TranscriptStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.prefixKey(key)).Err(); err != nil {
		return s.wrapError(err)
	}
	return nil
}

// Clear removes all transcripts under the store's prefix.
func (s *TranscriptStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pattern := s.keyPrefix + "transcript:*"
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return s.wrapError(err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return s.wrapError(err)
	}
	if len(keys) > 0 {
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return s.wrapError(err)
		}
	}
	return nil
}

// Stats returns hit/miss counters. Entry and byte counts are not tracked
// for the remote store.
func (s *TranscriptStore) Stats() cache.Stats {
	return cache.Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
	}
}

// Ping checks the Redis connection.
func (s *TranscriptStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *TranscriptStore) Close() error {
	return s.client.Close()
}

// wrapError maps Redis errors onto domain errors.
func (s *TranscriptStore) wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(cache.ErrOperationTimeout, err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Join(cache.ErrOperationTimeout, err)
	}
	return err
}
