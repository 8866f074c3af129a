package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validate checks the configuration and returns all violations found.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors
	add := func(path, msg string) {
		errs = append(errs, ValidationError{Path: path, Message: msg})
	}

	if c.Coordinator.MaxConcurrentCalls <= 0 {
		add("coordinator.max_concurrent_calls", "must be positive")
	}
	if c.Coordinator.DefaultTimeout <= 0 {
		add("coordinator.default_timeout", "must be positive")
	}
	if c.Coordinator.DefaultRetries < 0 {
		add("coordinator.default_retries", "must not be negative")
	}
	switch c.Coordinator.LoadBalancing {
	case "", "round_robin", "sticky":
	default:
		add("coordinator.load_balancing", "must be round_robin or sticky")
	}
	if hc := c.Coordinator.HealthCheck; hc.Enabled {
		if hc.Interval <= 0 {
			add("coordinator.health_check.interval", "must be positive when enabled")
		}
		if hc.Timeout <= 0 {
			add("coordinator.health_check.timeout", "must be positive when enabled")
		}
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		add("rate_limit.requests_per_minute", "must be positive")
	}
	if c.RateLimit.RequestsPerHour <= 0 {
		add("rate_limit.requests_per_hour", "must be positive")
	}
	if c.RateLimit.RequestsPerDay <= 0 {
		add("rate_limit.requests_per_day", "must be positive")
	}
	if c.RateLimit.ConcurrentRequests <= 0 {
		add("rate_limit.concurrent_requests", "must be positive")
	}
	if c.RateLimit.Backoff.InitialDelay <= 0 {
		add("rate_limit.backoff.initial_delay", "must be positive")
	}
	if c.RateLimit.Backoff.MaxDelay < c.RateLimit.Backoff.InitialDelay {
		add("rate_limit.backoff.max_delay", "must be at least initial_delay")
	}
	if c.RateLimit.Backoff.Factor < 1 {
		add("rate_limit.backoff.factor", "must be at least 1")
	}
	if c.RateLimit.Backoff.MaxRetries < 0 {
		add("rate_limit.backoff.max_retries", "must not be negative")
	}

	if c.Cache.MaxEntries <= 0 {
		add("cache.max_entries", "must be positive")
	}
	if c.Cache.MaxSizeBytes <= 0 {
		add("cache.max_size_bytes", "must be positive")
	}
	if c.Cache.DefaultTTL <= 0 {
		add("cache.default_ttl", "must be positive")
	}
	if c.Cache.MinConfidence < 0 || c.Cache.MinConfidence > 1 {
		add("cache.min_confidence", "must be within [0, 1]")
	}
	if c.Cache.MaxTextLength <= 0 {
		add("cache.max_text_length", "must be positive")
	}

	return errs
}
