package call_test

import (
	"errors"
	"testing"

	"github.com/meetscribe/scribe-go/domain/call"
)

func TestRequest_Validate(t *testing.T) {
	t.Parallel()

	t.Run("accepts well-formed request", func(t *testing.T) {
		t.Parallel()

		req := call.Request{
			RequestID: "req-1",
			CallType:  call.TypeCreateTranscription,
		}
		if err := req.Validate(); err != nil {
			t.Errorf("Validate() error = %v, want nil", err)
		}
	})

	t.Run("rejects empty request id", func(t *testing.T) {
		t.Parallel()

		req := call.Request{CallType: call.TypeGetHealth}
		if err := req.Validate(); !errors.Is(err, call.ErrMissingRequestID) {
			t.Errorf("Validate() error = %v, want ErrMissingRequestID", err)
		}
	})

	t.Run("rejects unknown call type", func(t *testing.T) {
		t.Parallel()

		req := call.Request{RequestID: "req-1", CallType: call.Type("summarize")}
		if err := req.Validate(); !errors.Is(err, call.ErrUnsupportedCallType) {
			t.Errorf("Validate() error = %v, want ErrUnsupportedCallType", err)
		}
	})
}

func TestType_Valid(t *testing.T) {
	t.Parallel()

	valid := []call.Type{
		call.TypeCreateTranscription,
		call.TypeGetTranscription,
		call.TypeListTranscriptions,
		call.TypeDeleteTranscription,
		call.TypeGetHealth,
		call.TypeAuthenticate,
	}
	for _, ct := range valid {
		if !ct.Valid() {
			t.Errorf("Type(%q).Valid() = false, want true", ct)
		}
	}
	if call.Type("").Valid() {
		t.Error(`Type("").Valid() = true, want false`)
	}
}

func TestPriority_String(t *testing.T) {
	t.Parallel()

	cases := map[call.Priority]string{
		call.PriorityUrgent: "urgent",
		call.PriorityHigh:   "high",
		call.PriorityNormal: "normal",
		call.PriorityLow:    "low",
	}
	for p, want := range cases {
		if got := p.String(); got != want {
			t.Errorf("Priority(%d).String() = %q, want %q", p, got, want)
		}
	}
}

func TestRequest_CacheKey(t *testing.T) {
	t.Parallel()

	t.Run("identical requests share a key", func(t *testing.T) {
		t.Parallel()

		a := call.Request{
			RequestID: "req-1",
			CallType:  call.TypeCreateTranscription,
			Region:    "eu-west",
			Payload:   map[string]any{"audioUrl": "https://x/a.mp3", "language": "en"},
		}
		b := call.Request{
			RequestID: "req-2", // identity differs, key must not
			CallType:  call.TypeCreateTranscription,
			Region:    "eu-west",
			Payload:   map[string]any{"language": "en", "audioUrl": "https://x/a.mp3"},
		}

		ka, err := a.CacheKey()
		if err != nil {
			t.Fatalf("CacheKey() error = %v", err)
		}
		kb, err := b.CacheKey()
		if err != nil {
			t.Fatalf("CacheKey() error = %v", err)
		}
		if ka != kb {
			t.Errorf("keys differ for deep-equal payloads: %s != %s", ka, kb)
		}
	})

	t.Run("different payloads produce different keys", func(t *testing.T) {
		t.Parallel()

		a := call.Request{CallType: call.TypeGetTranscription, Payload: map[string]any{"jobId": "1"}}
		b := call.Request{CallType: call.TypeGetTranscription, Payload: map[string]any{"jobId": "2"}}

		ka, _ := a.CacheKey()
		kb, _ := b.CacheKey()
		if ka == kb {
			t.Error("distinct payloads produced identical keys")
		}
	})

	t.Run("region participates in the key", func(t *testing.T) {
		t.Parallel()

		a := call.Request{CallType: call.TypeGetHealth, Region: "us-east"}
		b := call.Request{CallType: call.TypeGetHealth, Region: "eu-west"}

		ka, _ := a.CacheKey()
		kb, _ := b.CacheKey()
		if ka == kb {
			t.Error("distinct regions produced identical keys")
		}
	})

	t.Run("unmarshalable payload reports ErrKeyDerivation", func(t *testing.T) {
		t.Parallel()

		req := call.Request{CallType: call.TypeGetHealth, Payload: make(chan int)}
		if _, err := req.CacheKey(); !errors.Is(err, call.ErrKeyDerivation) {
			t.Errorf("CacheKey() error = %v, want ErrKeyDerivation", err)
		}
	})
}
