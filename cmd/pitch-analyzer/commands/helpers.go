package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/spherical/pitch-analyzer/cmd/pitch-analyzer/ui"
	"github.com/spherical/pitch-analyzer/internal/app"
	"github.com/spherical/pitch-analyzer/internal/config"
	"github.com/spherical/pitch-analyzer/internal/observability"
)

// loadConfig reads .env and the config file given by --config or CONFIG_PATH.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()

	path := cfgFile
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newApp wires the application for one command run. Logs go to stderr and
// are only shown at debug level with --verbose.
func newApp(ctx context.Context, cfg *config.Config) (*app.App, error) {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      "console",
		Output:      os.Stderr,
		ServiceName: cfg.Observability.ServiceName,
	})

	var opts []app.Option
	if noHistory {
		opts = append(opts, app.WithoutHistory())
	}
	application, err := app.New(ctx, cfg, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return application, nil
}

// commandContext is cancelled on SIGINT or SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	ui.Message("%s", data)
	return nil
}
