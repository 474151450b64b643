package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/budgetiq/internal/notionsync"
	"github.com/spf13/cobra"
)

var (
	notionUser   string
	notionFrom   string
	notionTo     string
	notionToken  string
	notionDBID   string
	notionDryRun bool
	notionPrune  bool
)

var syncNotionCmd = &cobra.Command{
	Use:   "sync-notion",
	Short: "Mirror a user's transactions into a Notion database",
	Long: `sync-notion upserts one Notion page per transaction in the date range, keyed
by transaction ID. With --prune, pages in the range whose transaction no
longer exists are archived. --dry-run only logs the planned writes.

The token and database ID default to NOTION_TOKEN and NOTION_DATABASE_ID.`,
	Example: "  budgetiq sync-notion --user 6f1c... --from 2024-01-01 --to 2024-01-31 --dry-run",
	Run: func(cmd *cobra.Command, args []string) {
		from, to, err := parseRange(notionFrom, notionTo)
		exitOnError(err, "invalid flags")
		if notionUser == "" {
			exitOnError(fmt.Errorf("--user is required"), "invalid flags")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()

		a, ctx, err := newApp(ctx)
		exitOnError(err, "failed to initialise application")
		defer a.Close()

		token := firstNonEmpty(notionToken, a.Config.Notion.Token)
		dbID := firstNonEmpty(notionDBID, a.Config.Notion.DatabaseID)
		if token == "" || dbID == "" {
			exitOnError(fmt.Errorf("a Notion token and database ID are required"), "invalid flags")
		}

		client, err := notionsync.NewNotionClient(token)
		exitOnError(err, "failed to create Notion client")

		syncer := notionsync.NewSyncer(a.Repo, client, dbID, a.Log)
		res, err := syncer.SyncTransactions(ctx, notionUser, notionsync.Options{
			From:   from,
			To:     to,
			DryRun: notionDryRun,
			Prune:  notionPrune,
		})
		exitOnError(err, "Notion sync failed")

		fmt.Fprintf(cmd.OutOrStdout(), "total: %d, created: %d, updated: %d, deleted: %d, failed: %d\n",
			res.Total, res.Created, res.Updated, res.Deleted, res.Failed)
	},
}

func init() {
	syncNotionCmd.Flags().StringVar(&notionUser, "user", "", "user ID to sync (required)")
	syncNotionCmd.Flags().StringVar(&notionFrom, "from", "", "first day, YYYY-MM-DD (required)")
	syncNotionCmd.Flags().StringVar(&notionTo, "to", "", "last day, YYYY-MM-DD (required)")
	syncNotionCmd.Flags().StringVar(&notionToken, "notion-token", "", "Notion integration token")
	syncNotionCmd.Flags().StringVar(&notionDBID, "notion-db-id", "", "Notion database ID")
	syncNotionCmd.Flags().BoolVar(&notionDryRun, "dry-run", false, "log planned writes without calling Notion")
	syncNotionCmd.Flags().BoolVar(&notionPrune, "prune", false, "archive pages whose transaction was deleted")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
