package logging

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/meetscribe/scribe-go/domain/call"
	"github.com/meetscribe/scribe-go/domain/failure"
)

// testLogger creates a logger that writes to a buffer for testing.
func testLogger() (*bolt.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	handler := bolt.NewJSONHandler(buf)
	logger := bolt.New(handler).SetLevel(bolt.TRACE)
	return logger, buf
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()

	if config.Level != "info" {
		t.Errorf("Level = %s, want info", config.Level)
	}
	if config.Format != "console" {
		t.Errorf("Format = %s, want console", config.Format)
	}
	if config.Output != os.Stdout {
		t.Errorf("Output = %v, want os.Stdout", config.Output)
	}
}

func TestProductionConfig(t *testing.T) {
	t.Parallel()

	config := ProductionConfig()

	if config.Format != "json" {
		t.Errorf("Format = %s, want json", config.Format)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected bolt.Level
	}{
		{"trace", bolt.TRACE},
		{"debug", bolt.DEBUG},
		{"info", bolt.INFO},
		{"warn", bolt.WARN},
		{"error", bolt.ERROR},
		{"unknown", bolt.INFO},
		{"", bolt.INFO},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.expected {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestFields(t *testing.T) {
	t.Parallel()

	logger, buf := testLogger()

	event := logger.Info()
	event = RequestID("req-1")(event)
	event = CallType(call.TypeCreateTranscription)(event)
	event = Region("eu-west")(event)
	event = FromCache(true)(event)
	event = Duration(1500 * time.Millisecond)(event)
	event = FailureKind(failure.KindRateLimited)(event)
	event = Retryable(true)(event)
	event.Msg("call finished")

	out := buf.String()
	for _, want := range []string{
		`"request_id":"req-1"`,
		`"call_type":"create_transcription"`,
		`"region":"eu-west"`,
		`"from_cache":true`,
		`"duration_ms":1500`,
		`"failure_kind":"rate_limited"`,
		`"retryable":true`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
}

func TestErrorField(t *testing.T) {
	t.Parallel()

	t.Run("adds error", func(t *testing.T) {
		t.Parallel()

		logger, buf := testLogger()
		event := logger.Error()
		event = ErrorField(errors.New("boom"))(event)
		event.Msg("failed")

		if !strings.Contains(buf.String(), "boom") {
			t.Errorf("log output missing error: %s", buf.String())
		}
	})

	t.Run("nil error is a no-op", func(t *testing.T) {
		t.Parallel()

		logger, buf := testLogger()
		event := logger.Error()
		event = ErrorField(nil)(event)
		event.Msg("failed")

		if strings.Contains(buf.String(), "error") {
			t.Errorf("log output unexpectedly has error field: %s", buf.String())
		}
	})
}
