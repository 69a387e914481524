package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/ledger-reconciler/internal/app"
	"github.com/dvloznov/ledger-reconciler/internal/config"
	"github.com/dvloznov/ledger-reconciler/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "reconciler",
	Short:         "Ledger reconciler command line",
	Long:          `Manage the ledger database and run documents through the reconciliation pipeline.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("RECONCILER_CONFIG"), "path to the TOML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig loads the config named by --config and builds the logger.
func loadConfig() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	log := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Out: os.Stderr})
	return cfg, log, nil
}

// openApp opens the application for a command and returns a context that
// carries its logger.
func openApp(cmd *cobra.Command) (context.Context, *app.App, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	ctx := logger.WithContext(cmd.Context(), log)
	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return ctx, a, nil
}
