package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"fleets-server/internal/shared/config"
	"fleets-server/internal/shared/database"
	"fleets-server/internal/shared/logger"
	"fleets-server/internal/store/postgres"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen, color.Bold)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "fleetctl",
		Short:         "Operator tooling for the fleets server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newCatalogCmd(), newMissionsCmd(), newUniverseCmd(), newTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig initializes configuration and a stderr logger so tables on
// stdout stay clean.
func loadConfig() (*config.Config, *slog.Logger, error) {
	if err := config.Init(); err != nil {
		return nil, nil, err
	}
	cfg := config.GlobalConfig
	log := logger.New(os.Stderr, cfg.Logging)
	slog.SetDefault(log)
	return cfg, log, nil
}

// openStore connects to the configured database. Operator commands only make
// sense against a persistent store.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*postgres.Store, *database.DB, error) {
	if !cfg.Database.Enabled {
		return nil, nil, fmt.Errorf("database is disabled (DB_ENABLED=false), nothing to inspect")
	}
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return postgres.New(db, log), db, nil
}
