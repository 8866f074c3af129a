package config_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/meetscribe/scribe-go/domain/config"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	if errs := cfg.Validate(); errs.HasErrors() {
		t.Errorf("Default() fails validation: %v", errs)
	}
	if cfg.Coordinator.MaxConcurrentCalls != 10 {
		t.Errorf("MaxConcurrentCalls = %d, want 10", cfg.Coordinator.MaxConcurrentCalls)
	}
	if cfg.RateLimit.RequestsPerMinute != 60 {
		t.Errorf("RequestsPerMinute = %d, want 60", cfg.RateLimit.RequestsPerMinute)
	}
	if cfg.Cache.DefaultTTL != 30*time.Minute {
		t.Errorf("DefaultTTL = %v, want 30m", cfg.Cache.DefaultTTL)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("overrides layered over defaults", func(t *testing.T) {
		t.Parallel()

		doc := `
coordinator:
  max_concurrent_calls: 3
rate_limit:
  requests_per_minute: 5
`
		cfg, err := config.Load(strings.NewReader(doc))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Coordinator.MaxConcurrentCalls != 3 {
			t.Errorf("MaxConcurrentCalls = %d, want 3", cfg.Coordinator.MaxConcurrentCalls)
		}
		if cfg.RateLimit.RequestsPerMinute != 5 {
			t.Errorf("RequestsPerMinute = %d, want 5", cfg.RateLimit.RequestsPerMinute)
		}
		// Unmentioned fields keep defaults.
		if cfg.RateLimit.RequestsPerHour != 1000 {
			t.Errorf("RequestsPerHour = %d, want default 1000", cfg.RateLimit.RequestsPerHour)
		}
	})

	t.Run("empty document yields defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := config.Load(strings.NewReader(""))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Coordinator.DefaultTimeout != 30*time.Second {
			t.Errorf("DefaultTimeout = %v, want 30s", cfg.Coordinator.DefaultTimeout)
		}
	})

	t.Run("invalid yaml reports ErrInvalidFormat", func(t *testing.T) {
		t.Parallel()

		_, err := config.Load(strings.NewReader("coordinator: ["))
		if !errors.Is(err, config.ErrInvalidFormat) {
			t.Errorf("Load() error = %v, want ErrInvalidFormat", err)
		}
	})

	t.Run("invalid values report ErrValidationFailed", func(t *testing.T) {
		t.Parallel()

		_, err := config.Load(strings.NewReader("rate_limit:\n  requests_per_minute: -1\n"))
		if !errors.Is(err, config.ErrValidationFailed) {
			t.Errorf("Load() error = %v, want ErrValidationFailed", err)
		}
	})
}

func TestLoadFile_NotFound(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFile("/nonexistent/scribe.yaml")
	if !errors.Is(err, config.ErrConfigNotFound) {
		t.Errorf("LoadFile() error = %v, want ErrConfigNotFound", err)
	}
}
