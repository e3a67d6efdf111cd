package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"kanban/internal/config"
	"kanban/internal/storage"
	"kanban/internal/storage/postgres"
	"kanban/internal/storage/sqlite"
	"kanban/internal/util"
)

var (
	configPath string
	envFile    string
)

// rootCmd is the kanban entrypoint; it does nothing on its own.
var rootCmd = &cobra.Command{
	Use:           "kanban",
	Short:         "Project board backend with pin-protected projects",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", util.EnvOrDefault("KANBAN_CONFIG", "kanban.yaml"), "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", util.EnvOrDefault("KANBAN_ENV_FILE", ".env"), "Path to .env file")

	rootCmd.AddCommand(serveCmd, reportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the .env file, then the YAML config with env overrides,
// and builds the logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	logger, err := cfg.Logging.NewLogger(os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openStore opens the configured backend and seeds the member roster.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Gateway, error) {
	var (
		store storage.Gateway
		err   error
	)
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		store, err = postgres.Open(ctx, cfg.Database.DSN, logger)
	default:
		store, err = sqlite.Open(cfg.Database.Path, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}

	if err := store.EnsureMembers(ctx, cfg.Members); err != nil {
		store.Close()
		return nil, fmt.Errorf("seed members: %w", err)
	}
	return store, nil
}
