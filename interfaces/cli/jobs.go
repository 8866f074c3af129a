package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meetscribe/scribe-go/application"
	"github.com/meetscribe/scribe-go/domain/call"
	"github.com/meetscribe/scribe-go/domain/transcript"
)

// newGetCmd creates the get command.
func (a *App) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <job-id>",
		Short: "Fetch a transcription job's result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runJobCommand(cmd.Context(), func(ctx context.Context, coord *application.Coordinator) (call.Response, error) {
				return coord.GetTranscription(ctx, args[0])
			})
		},
	}
}

// newListCmd creates the list command.
func (a *App) newListCmd() *cobra.Command {
	var limit int
	var pageToken string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List completed transcriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runJobCommand(cmd.Context(), func(ctx context.Context, coord *application.Coordinator) (call.Response, error) {
				return coord.ListTranscriptions(ctx, transcript.ListQuery{
					Limit:     limit,
					PageToken: pageToken,
				})
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of results per page")
	cmd.Flags().StringVar(&pageToken, "page-token", "", "continuation token from a previous page")

	return cmd
}

// newDeleteCmd creates the delete command.
func (a *App) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Delete a transcription job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runJobCommand(cmd.Context(), func(ctx context.Context, coord *application.Coordinator) (call.Response, error) {
				return coord.DeleteTranscription(ctx, args[0])
			})
		},
	}
}

// runJobCommand assembles the coordinator, runs one retried call, and
// prints the response.
func (a *App) runJobCommand(ctx context.Context, op func(context.Context, *application.Coordinator) (call.Response, error)) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	coord, err := a.buildCoordinator(cfg)
	if err != nil {
		return fmt.Errorf("building coordinator: %w", err)
	}
	defer a.shutdown(coord, cfg.Coordinator.ShutdownDrainTimeout)

	resp, err := retryLoop(ctx, cfg.RateLimit.Backoff, cfg.Coordinator.DefaultRetries, func(ctx context.Context) (call.Response, error) {
		return op(ctx, coord)
	})
	if err != nil {
		return err
	}
	return a.printResponse(resp)
}
