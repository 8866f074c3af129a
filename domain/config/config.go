// Package config provides configuration models for the coordination layer.
package config

import "time"

// Config is the complete configuration for one coordinator instance.
type Config struct {
	// Name is a human-readable name for this configuration.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Coordinator contains call coordination settings.
	Coordinator CoordinatorConfig `json:"coordinator" yaml:"coordinator"`
	// RateLimit contains sliding-window and concurrency settings.
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	// Cache contains response cache settings.
	Cache CacheConfig `json:"cache" yaml:"cache"`
	// Transport contains API endpoint settings.
	Transport TransportConfig `json:"transport,omitempty" yaml:"transport,omitempty"`
	// Logging contains log output settings.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// CoordinatorConfig controls the call coordination pipeline.
type CoordinatorConfig struct {
	// MaxConcurrentCalls bounds simultaneous dispatches.
	MaxConcurrentCalls int `json:"max_concurrent_calls" yaml:"max_concurrent_calls"`
	// DefaultTimeout applies when a request carries no timeout.
	DefaultTimeout time.Duration `json:"default_timeout" yaml:"default_timeout"`
	// DefaultRetries is the advisory retry budget reported to callers.
	DefaultRetries int `json:"default_retries" yaml:"default_retries"`
	// EnableCaching turns the response cache on.
	EnableCaching bool `json:"enable_caching" yaml:"enable_caching"`
	// EnableDeduplication suppresses identical in-flight calls.
	EnableDeduplication bool `json:"enable_deduplication" yaml:"enable_deduplication"`
	// LoadBalancing selects how regions are chosen ("round_robin" or "sticky").
	LoadBalancing string `json:"load_balancing,omitempty" yaml:"load_balancing,omitempty"`
	// ShutdownDrainTimeout bounds the wait for in-flight calls at shutdown.
	ShutdownDrainTimeout time.Duration `json:"shutdown_drain_timeout" yaml:"shutdown_drain_timeout"`
	// HealthCheck configures the periodic health probe.
	HealthCheck HealthCheckConfig `json:"health_check" yaml:"health_check"`
}

// HealthCheckConfig configures the periodic health probe.
type HealthCheckConfig struct {
	// Enabled turns the probe loop on.
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Interval is the time between probes.
	Interval time.Duration `json:"interval" yaml:"interval"`
	// Timeout bounds one probe.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// RateLimitConfig controls sliding-window quotas and adaptive concurrency.
type RateLimitConfig struct {
	// RequestsPerMinute is the minute-window quota.
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"`
	// RequestsPerHour is the hour-window quota.
	RequestsPerHour int `json:"requests_per_hour" yaml:"requests_per_hour"`
	// RequestsPerDay is the day-window quota.
	RequestsPerDay int `json:"requests_per_day" yaml:"requests_per_day"`
	// ConcurrentRequests is the concurrency ceiling.
	ConcurrentRequests int `json:"concurrent_requests" yaml:"concurrent_requests"`
	// EnableAdaptive turns the AIMD concurrency controller on.
	EnableAdaptive bool `json:"enable_adaptive" yaml:"enable_adaptive"`
	// Backoff configures retry delay growth.
	Backoff BackoffConfig `json:"backoff" yaml:"backoff"`
}

// BackoffConfig configures retry delay growth.
type BackoffConfig struct {
	// InitialDelay is the attempt-zero delay.
	InitialDelay time.Duration `json:"initial_delay" yaml:"initial_delay"`
	// MaxDelay caps the delay.
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay"`
	// Factor is the exponential growth factor.
	Factor float64 `json:"factor" yaml:"factor"`
	// MaxRetries bounds attempts.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
	// Jitter adds up to +10% random delay when true.
	Jitter bool `json:"jitter" yaml:"jitter"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	// MaxEntries is the entry budget.
	MaxEntries int `json:"max_entries" yaml:"max_entries"`
	// MaxSizeBytes is the byte budget.
	MaxSizeBytes int64 `json:"max_size_bytes" yaml:"max_size_bytes"`
	// DefaultTTL applies when a call carries no TTL override.
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl"`
	// MinConfidence rejects cached transcripts below this confidence on
	// lookup when the caller requires it.
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`
	// MaxTextLength bounds transcript text accepted into the cache.
	MaxTextLength int `json:"max_text_length" yaml:"max_text_length"`
}

// TransportConfig selects the API endpoint.
type TransportConfig struct {
	// BaseURL is the transcription API root.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// Region is the default API region.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
	// Credential authenticates requests.
	Credential string `json:"credential,omitempty" yaml:"credential,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is the output format (json or console).
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Default returns a Config with documented defaults.
func Default() Config {
	return Config{
		Coordinator: DefaultCoordinatorConfig(),
		RateLimit:   DefaultRateLimitConfig(),
		Cache:       DefaultCacheConfig(),
		Logging:     LoggingConfig{Level: "info", Format: "console"},
	}
}

// DefaultCoordinatorConfig returns coordinator defaults.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		MaxConcurrentCalls:   10,
		DefaultTimeout:       30 * time.Second,
		DefaultRetries:       3,
		EnableCaching:        true,
		EnableDeduplication:  true,
		LoadBalancing:        "round_robin",
		ShutdownDrainTimeout: 5 * time.Second,
		HealthCheck: HealthCheckConfig{
			Enabled:  false,
			Interval: 60 * time.Second,
			Timeout:  10 * time.Second,
		},
	}
}

// DefaultRateLimitConfig returns rate-limit defaults.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute:  60,
		RequestsPerHour:    1000,
		RequestsPerDay:     10000,
		ConcurrentRequests: 5,
		EnableAdaptive:     true,
		Backoff:            DefaultBackoffConfig(),
	}
}

// DefaultBackoffConfig returns backoff defaults.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 1 * time.Second,
		MaxDelay:     60 * time.Second,
		Factor:       2.0,
		MaxRetries:   3,
		Jitter:       true,
	}
}

// DefaultCacheConfig returns cache defaults.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxEntries:    1000,
		MaxSizeBytes:  64 << 20,
		DefaultTTL:    30 * time.Minute,
		MinConfidence: 0.0,
		MaxTextLength: 1_000_000,
	}
}
