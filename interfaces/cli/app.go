// Package cli provides a command-line interface for the scribe
// coordination layer.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	scribe "github.com/meetscribe/scribe-go"
	"github.com/meetscribe/scribe-go/application"
	"github.com/meetscribe/scribe-go/domain/config"
	"github.com/meetscribe/scribe-go/infrastructure/logging"
	"github.com/meetscribe/scribe-go/infrastructure/resilience"
	"github.com/meetscribe/scribe-go/infrastructure/telemetry"
	"github.com/meetscribe/scribe-go/infrastructure/transport"
)

// Build metadata set at link time; the release version itself comes
// from the root package.
var (
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	configPath string
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "scribe",
		Short: "Request coordination and caching for speech transcription",
		Long: `scribe coordinates calls to a cloud speech-transcription API: it caches
responses, deduplicates identical in-flight calls, enforces sliding-window
rate limits with adaptive concurrency, and classifies failures into typed,
retryable verdicts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	app.root.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "path to a YAML configuration file")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newTranscribeCmd(),
		app.newGetCmd(),
		app.newListCmd(),
		app.newDeleteCmd(),
		app.newHealthCmd(),
		app.newStatsCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// loadConfig reads the configured YAML file, or the defaults when no
// file is given.
func (a *App) loadConfig() (config.Config, error) {
	if a.configPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFile(a.configPath)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return config.Config{}, fmt.Errorf("configuration file not found: %s", a.configPath)
		}
		return config.Config{}, err
	}
	return cfg, nil
}

// buildCoordinator assembles the coordinator stack from configuration.
func (a *App) buildCoordinator(cfg config.Config) (*application.Coordinator, error) {
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	pool := transport.NewPool(transport.WithClientTimeout(cfg.Coordinator.DefaultTimeout))
	dispatcher := resilience.NewExecutor(
		transport.NewHTTP(cfg.Transport, pool),
		resilience.DefaultExecutorConfig(),
		resilience.WithMaxConcurrent(cfg.Coordinator.MaxConcurrentCalls),
		resilience.WithTimeout(cfg.Coordinator.DefaultTimeout),
	)

	return application.New(cfg, application.Deps{
		Transport: dispatcher,
		Pool:      pool,
	}, application.WithMetrics(telemetry.NewMetricsProvider(telemetry.DefaultMetricsConfig())))
}

// newVersionCmd creates the version command.
func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "scribe version %s\n", scribe.GetVersion())
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}
