package config

import "time"

// CoordinatorPatch is a partial update for CoordinatorConfig. Nil fields
// keep their current value.
type CoordinatorPatch struct {
	MaxConcurrentCalls  *int
	DefaultTimeout      *time.Duration
	DefaultRetries      *int
	EnableCaching       *bool
	EnableDeduplication *bool
	LoadBalancing       *string
	HealthCheck         *HealthCheckConfig
}

// Apply merges the patch into cfg and returns the result.
func (p CoordinatorPatch) Apply(cfg CoordinatorConfig) CoordinatorConfig {
	if p.MaxConcurrentCalls != nil {
		cfg.MaxConcurrentCalls = *p.MaxConcurrentCalls
	}
	if p.DefaultTimeout != nil {
		cfg.DefaultTimeout = *p.DefaultTimeout
	}
	if p.DefaultRetries != nil {
		cfg.DefaultRetries = *p.DefaultRetries
	}
	if p.EnableCaching != nil {
		cfg.EnableCaching = *p.EnableCaching
	}
	if p.EnableDeduplication != nil {
		cfg.EnableDeduplication = *p.EnableDeduplication
	}
	if p.LoadBalancing != nil {
		cfg.LoadBalancing = *p.LoadBalancing
	}
	if p.HealthCheck != nil {
		cfg.HealthCheck = *p.HealthCheck
	}
	return cfg
}

// RateLimitPatch is a partial update for RateLimitConfig. Nil fields keep
// their current value.
type RateLimitPatch struct {
	RequestsPerMinute  *int
	RequestsPerHour    *int
	RequestsPerDay     *int
	ConcurrentRequests *int
	EnableAdaptive     *bool
	Backoff            *BackoffConfig
}

// Apply merges the patch into cfg and returns the result.
func (p RateLimitPatch) Apply(cfg RateLimitConfig) RateLimitConfig {
	if p.RequestsPerMinute != nil {
		cfg.RequestsPerMinute = *p.RequestsPerMinute
	}
	if p.RequestsPerHour != nil {
		cfg.RequestsPerHour = *p.RequestsPerHour
	}
	if p.RequestsPerDay != nil {
		cfg.RequestsPerDay = *p.RequestsPerDay
	}
	if p.ConcurrentRequests != nil {
		cfg.ConcurrentRequests = *p.ConcurrentRequests
	}
	if p.EnableAdaptive != nil {
		cfg.EnableAdaptive = *p.EnableAdaptive
	}
	if p.Backoff != nil {
		cfg.Backoff = *p.Backoff
	}
	return cfg
}
