// Package cmd provides the budgetiq operator commands.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/dvloznov/budgetiq/internal/app"
	"github.com/dvloznov/budgetiq/internal/config"
	"github.com/dvloznov/budgetiq/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "budgetiq",
	Short: "Operate a budgetiq deployment",
	Long: `budgetiq is the operator CLI for the budgetiq API.

It supports:
- Applying and rolling back database migrations
- Seeding demo transactions
- Materialising due recurring transactions
- Exporting a user's ledger to BigQuery and reporting on it
- Mirroring a user's ledger into a Notion database

Example:
  budgetiq migrate up
  budgetiq export bigquery --user 6f1c... --from 2024-01-01 --to 2024-01-31`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			os.Setenv("BUDGETIQ_CONFIG", cfgFile)
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env and environment)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(recurringCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(syncNotionCmd)
}

// loadConfig reads configuration and builds the command logger.
func loadConfig() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	log := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format).With().Str("service", "cli").Logger()
	if debug {
		log = log.Level(zerolog.DebugLevel)
	}
	return cfg, log, nil
}

// newApp loads configuration and wires the application for a single command.
// The caller must Close the returned App.
func newApp(ctx context.Context) (*app.App, context.Context, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, ctx, err
	}
	if cfg.Database.URL == "" {
		return nil, ctx, fmt.Errorf("DATABASE_URL is required")
	}
	ctx = logger.WithContext(ctx, log)
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, ctx, err
	}
	return a, ctx, nil
}

// exitOnError logs err and exits when it is non-nil.
func exitOnError(err error, msg string) {
	if err != nil {
		l := logger.New()
		l.Error().Err(err).Msg(msg)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
