package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var recurringCmd = &cobra.Command{
	Use:   "recurring",
	Short: "Recurring transaction maintenance",
}

var recurringRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Materialise every due recurring occurrence once",
	Long: `run performs a single scheduler pass: each active rule whose next run is due
produces its missed occurrences and advances. Running it twice in a row is
safe; the second pass finds nothing due.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		a, ctx, err := newApp(ctx)
		exitOnError(err, "failed to initialise application")
		defer a.Close()

		res, err := a.Recurring.RunDue(ctx)
		exitOnError(err, "recurring pass failed")

		fmt.Fprintf(cmd.OutOrStdout(), "rules: %d, transactions: %d, skipped: %d\n", res.Rules, res.Transactions, res.Skipped)
	},
}

func init() {
	recurringCmd.AddCommand(recurringRunCmd)
}
