package transcript_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/meetscribe/scribe-go/domain/transcript"
)

func TestResult_Validate(t *testing.T) {
	t.Parallel()

	valid := transcript.Result{
		Text:       "hello world",
		Confidence: 0.92,
		Duration:   3 * time.Second,
	}

	tests := []struct {
		name    string
		mutate  func(r transcript.Result) transcript.Result
		maxLen  int
		wantErr error
	}{
		{
			name:   "valid result passes",
			mutate: func(r transcript.Result) transcript.Result { return r },
		},
		{
			name: "empty text rejected",
			mutate: func(r transcript.Result) transcript.Result {
				r.Text = ""
				return r
			},
			wantErr: transcript.ErrEmptyText,
		},
		{
			name: "overlong text rejected",
			mutate: func(r transcript.Result) transcript.Result {
				r.Text = strings.Repeat("a", 101)
				return r
			},
			maxLen:  100,
			wantErr: transcript.ErrTextTooLong,
		},
		{
			name: "negative confidence rejected",
			mutate: func(r transcript.Result) transcript.Result {
				r.Confidence = -0.01
				return r
			},
			wantErr: transcript.ErrConfidenceOutOfRange,
		},
		{
			name: "confidence above one rejected",
			mutate: func(r transcript.Result) transcript.Result {
				r.Confidence = 1.01
				return r
			},
			wantErr: transcript.ErrConfidenceOutOfRange,
		},
		{
			name: "zero duration rejected",
			mutate: func(r transcript.Result) transcript.Result {
				r.Duration = 0
				return r
			},
			wantErr: transcript.ErrNonPositiveDuration,
		},
		{
			name: "boundary confidence values pass",
			mutate: func(r transcript.Result) transcript.Result {
				r.Confidence = 1.0
				return r
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.mutate(valid).Validate(tt.maxLen)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestResult_Validate_DefaultMaxLength(t *testing.T) {
	t.Parallel()

	r := transcript.Result{
		Text:       strings.Repeat("a", 1000),
		Confidence: 0.5,
		Duration:   time.Second,
	}
	if err := r.Validate(0); err != nil {
		t.Errorf("Validate(0) error = %v, want nil (default max applies)", err)
	}
}
