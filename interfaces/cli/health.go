package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meetscribe/scribe-go/application"
	"github.com/meetscribe/scribe-go/infrastructure/ratelimit"
)

// healthReport is the JSON document the health command prints.
type healthReport struct {
	Healthy   bool              `json:"healthy"`
	Status    any               `json:"status,omitempty"`
	Error     string            `json:"error,omitempty"`
	Stats     application.Stats `json:"stats"`
	RateLimit ratelimit.Stats   `json:"rate_limit"`
}

// newHealthCmd creates the health command.
func (a *App) newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the transcription API and print coordinator statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHealth(cmd.Context())
		},
	}
}

func (a *App) runHealth(ctx context.Context) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	coord, err := a.buildCoordinator(cfg)
	if err != nil {
		return fmt.Errorf("building coordinator: %w", err)
	}
	defer a.shutdown(coord, cfg.Coordinator.ShutdownDrainTimeout)

	report := healthReport{
		Stats:     coord.Stats(),
		RateLimit: coord.RateLimitStats(),
	}

	resp, err := coord.PerformHealthCheck(ctx)
	switch {
	case err != nil:
		report.Error = err.Error()
	case resp.Success:
		report.Healthy = true
		report.Status = resp.Data
	case resp.Error != nil:
		report.Error = resp.Error.Message
	}
	// Stats taken after the probe so the probe itself is counted.
	report.Stats = coord.Stats()

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, string(out))

	if !report.Healthy {
		return fmt.Errorf("transcription API unhealthy")
	}
	return nil
}
