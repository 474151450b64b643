package cmd

import (
	"fmt"

	"github.com/dvloznov/budgetiq/internal/infra/postgres"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the Postgres schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Run: func(cmd *cobra.Command, args []string) {
		dsn, log := migrationTarget()
		exitOnError(postgres.MigrateUp(dsn), "failed to apply migrations")
		log.Info().Msg("Migrations applied")
	},
}

var migrateDownCmd = &cobra.Command{
	Use:     "down",
	Short:   "Roll back migrations",
	Example: "  budgetiq migrate down --steps 2",
	Run: func(cmd *cobra.Command, args []string) {
		dsn, log := migrationTarget()
		exitOnError(postgres.MigrateDown(dsn, migrateSteps), "failed to roll back migrations")
		log.Info().Int("steps", migrateSteps).Msg("Migrations rolled back")
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	Run: func(cmd *cobra.Command, args []string) {
		dsn, _ := migrationTarget()
		v, dirty, err := postgres.MigrationVersion(dsn)
		exitOnError(err, "failed to read schema version")
		fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
}

func migrationTarget() (string, zerolog.Logger) {
	cfg, log, err := loadConfig()
	exitOnError(err, "failed to load configuration")
	if cfg.Database.URL == "" {
		exitOnError(fmt.Errorf("DATABASE_URL is required"), "invalid configuration")
	}
	return cfg.Database.URL, log
}
