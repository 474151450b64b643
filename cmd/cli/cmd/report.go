package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	reportUser string
	reportFrom string
	reportTo   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Query exported data in BigQuery",
}

var reportCategoriesCmd = &cobra.Command{
	Use:     "categories",
	Short:   "Print spending totals per category from the warehouse",
	Example: "  budgetiq report categories --user 6f1c... --from 2024-01-01 --to 2024-01-31",
	Run: func(cmd *cobra.Command, args []string) {
		from, to, err := parseRange(reportFrom, reportTo)
		exitOnError(err, "invalid flags")
		if reportUser == "" {
			exitOnError(fmt.Errorf("--user is required"), "invalid flags")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		a, ctx, err := newApp(ctx)
		exitOnError(err, "failed to initialise application")
		defer a.Close()

		if a.Warehouse == nil {
			exitOnError(fmt.Errorf("GOOGLE_CLOUD_PROJECT is not set"), "BigQuery is not configured")
		}

		rows, err := a.Warehouse.CategoryTotals(ctx, reportUser, from, to)
		exitOnError(err, "failed to query category totals")

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CATEGORY\tCURRENCY\tTOTAL\tCOUNT")
		for _, r := range rows {
			total := "0"
			if r.Total != nil {
				total = r.Total.FloatString(2)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", r.CategoryName, r.Currency, total, r.TxCount)
		}
		exitOnError(w.Flush(), "failed to write report")
	},
}

func init() {
	reportCategoriesCmd.Flags().StringVar(&reportUser, "user", "", "user ID (required)")
	reportCategoriesCmd.Flags().StringVar(&reportFrom, "from", "", "first day, YYYY-MM-DD (required)")
	reportCategoriesCmd.Flags().StringVar(&reportTo, "to", "", "last day, YYYY-MM-DD (required)")

	reportCmd.AddCommand(reportCategoriesCmd)
}
