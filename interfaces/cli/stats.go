package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meetscribe/scribe-go/application"
	"github.com/meetscribe/scribe-go/infrastructure/ratelimit"
)

// newStatsCmd creates the stats command.
func (a *App) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print coordinator and rate-limit statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStats(cmd.Context())
		},
	}
}

func (a *App) runStats(ctx context.Context) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	coord, err := a.buildCoordinator(cfg)
	if err != nil {
		return fmt.Errorf("building coordinator: %w", err)
	}
	defer a.shutdown(coord, cfg.Coordinator.ShutdownDrainTimeout)

	report := struct {
		Stats     application.Stats `json:"stats"`
		RateLimit ratelimit.Stats   `json:"rate_limit"`
	}{
		Stats:     coord.Stats(),
		RateLimit: coord.RateLimitStats(),
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, string(out))
	return nil
}
