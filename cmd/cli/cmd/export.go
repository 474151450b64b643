package cmd

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"
)

var (
	exportUser string
	exportFrom string
	exportTo   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export ledger data to external systems",
}

var exportBigQueryCmd = &cobra.Command{
	Use:   "bigquery",
	Short: "Export a user's transactions and conversions to BigQuery",
	Long: `bigquery creates the warehouse tables if needed, then streams the user's
transactions and currency conversions in the date range into them. Every
run is recorded in the export_runs table.`,
	Example: "  budgetiq export bigquery --user 6f1c... --from 2024-01-01 --to 2024-03-31",
	Run: func(cmd *cobra.Command, args []string) {
		from, to, err := parseRange(exportFrom, exportTo)
		exitOnError(err, "invalid flags")
		if exportUser == "" {
			exitOnError(fmt.Errorf("--user is required"), "invalid flags")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()

		a, ctx, err := newApp(ctx)
		exitOnError(err, "failed to initialise application")
		defer a.Close()

		if a.Warehouse == nil {
			exitOnError(fmt.Errorf("GOOGLE_CLOUD_PROJECT is not set"), "BigQuery export is not configured")
		}
		exitOnError(a.Warehouse.EnsureTables(ctx), "failed to prepare BigQuery tables")

		res, err := a.Exporter.ExportTransactions(ctx, exportUser, from, to)
		exitOnError(err, "export failed")

		fmt.Fprintf(cmd.OutOrStdout(), "export run %s: %d transactions, %d conversions\n",
			res.ExportRunID, res.Transactions, res.Conversions)
	},
}

func init() {
	exportBigQueryCmd.Flags().StringVar(&exportUser, "user", "", "user ID to export (required)")
	exportBigQueryCmd.Flags().StringVar(&exportFrom, "from", "", "first day, YYYY-MM-DD (required)")
	exportBigQueryCmd.Flags().StringVar(&exportTo, "to", "", "last day, YYYY-MM-DD (required)")

	exportCmd.AddCommand(exportBigQueryCmd)
}

// parseRange parses an inclusive date range given as YYYY-MM-DD strings.
func parseRange(fromStr, toStr string) (civil.Date, civil.Date, error) {
	if fromStr == "" || toStr == "" {
		return civil.Date{}, civil.Date{}, fmt.Errorf("--from and --to are required")
	}
	from, err := civil.ParseDate(fromStr)
	if err != nil {
		return civil.Date{}, civil.Date{}, fmt.Errorf("invalid --from %q: %w", fromStr, err)
	}
	to, err := civil.ParseDate(toStr)
	if err != nil {
		return civil.Date{}, civil.Date{}, fmt.Errorf("invalid --to %q: %w", toStr, err)
	}
	if to.Before(from) {
		return civil.Date{}, civil.Date{}, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return from, to, nil
}
