package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/meetscribe/scribe-go/domain/call"
	"github.com/meetscribe/scribe-go/domain/config"
	"github.com/meetscribe/scribe-go/domain/transcript"
	"github.com/meetscribe/scribe-go/infrastructure/classify"
)

// transcribeOptions holds flags for the transcribe command.
type transcribeOptions struct {
	audioURL    string
	language    string
	contentHash string
	retries     int
}

// newTranscribeCmd creates the transcribe command.
func (a *App) newTranscribeCmd() *cobra.Command {
	opts := &transcribeOptions{}

	cmd := &cobra.Command{
		Use:   "transcribe",
		Short: "Submit audio for transcription",
		Long: `Submit an audio recording for transcription.

The coordinator consults its transcript cache first, so repeated
submissions of the same audio are served without an API call. Retryable
failures are retried with classifier-driven backoff.

Examples:
  scribe transcribe --audio-url https://cdn.example.com/rec.wav
  scribe transcribe --audio-url https://cdn.example.com/rec.wav --language de-DE
  scribe transcribe -c scribe.yaml --audio-url https://cdn.example.com/rec.wav`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTranscribe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.audioURL, "audio-url", "", "URL of the audio to transcribe (required)")
	cmd.Flags().StringVar(&opts.language, "language", "", "language hint, e.g. en-US")
	cmd.Flags().StringVar(&opts.contentHash, "content-hash", "", "content hash of the audio for cache identity")
	cmd.Flags().IntVar(&opts.retries, "retries", -1, "retry budget for retryable failures (-1 uses the configured default)")
	_ = cmd.MarkFlagRequired("audio-url")

	return cmd
}

func (a *App) runTranscribe(ctx context.Context, opts *transcribeOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	coord, err := a.buildCoordinator(cfg)
	if err != nil {
		return fmt.Errorf("building coordinator: %w", err)
	}
	defer a.shutdown(coord, cfg.Coordinator.ShutdownDrainTimeout)

	retries := opts.retries
	if retries < 0 {
		retries = cfg.Coordinator.DefaultRetries
	}

	req := transcript.CreateRequest{
		AudioURL:    opts.audioURL,
		Language:    opts.language,
		ContentHash: opts.contentHash,
	}
	resp, err := retryLoop(ctx, cfg.RateLimit.Backoff, retries, func(ctx context.Context) (call.Response, error) {
		return coord.CreateTranscription(ctx, req)
	})
	if err != nil {
		return err
	}
	return a.printResponse(resp)
}

// retryLoop re-invokes op while the coordinator reports a retryable
// failure, sleeping the classifier's backoff delay between attempts. The
// coordinator itself never loops; the retry decision sits with its
// caller.
func retryLoop(ctx context.Context, backoff config.BackoffConfig, maxAttempts int, op func(context.Context) (call.Response, error)) (call.Response, error) {
	classifier := classify.NewClassifier(backoff)

	var resp call.Response
	var err error
	for attempt := 0; ; attempt++ {
		resp, err = op(ctx)
		if err != nil || resp.Success {
			return resp, err
		}
		if resp.Error == nil || !resp.Error.Retryable || attempt >= maxAttempts {
			return resp, nil
		}

		select {
		case <-time.After(classifier.RetryDelay(attempt)):
		case <-ctx.Done():
			return resp, ctx.Err()
		}
	}
}
