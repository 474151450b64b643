package notionsync

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/budgetiq/internal/store"
	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"
)

const (
	// BatchSize defines the number of transactions to process in a single batch
	BatchSize = 100

	// pageSize is the Notion query page size (the API maximum).
	pageSize = 100
)

// Options selects what one sync run does.
type Options struct {
	From civil.Date
	To   civil.Date

	// DryRun logs the planned writes without calling Notion's write endpoints.
	DryRun bool

	// Prune archives pages in the date range whose transaction no longer exists.
	Prune bool
}

// Result counts what a sync run did (or would do, in dry-run mode).
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// Syncer copies a user's ledger into a Notion database.
type Syncer struct {
	transactions store.TransactionRepository
	notion       NotionService
	databaseID   string
	log          zerolog.Logger
}

// NewSyncer creates a Syncer writing to databaseID.
func NewSyncer(transactions store.TransactionRepository, notion NotionService, databaseID string, log zerolog.Logger) *Syncer {
	return &Syncer{
		transactions: transactions,
		notion:       notion,
		databaseID:   databaseID,
		log:          log,
	}
}

// SyncTransactions upserts one Notion page per transaction dated within the range.
// Pages are keyed by the Transaction ID property, so re-running updates rather than
// duplicates. Individual page failures are logged and counted; the run continues.
func (s *Syncer) SyncTransactions(ctx context.Context, userID string, opts Options) (*Result, error) {
	if s.databaseID == "" {
		return nil, fmt.Errorf("SyncTransactions: notion database id is required")
	}
	if opts.To.Before(opts.From) {
		return nil, fmt.Errorf("SyncTransactions: from %s is after to %s", opts.From, opts.To)
	}

	log := s.log.With().Str("user_id", userID).Bool("dry_run", opts.DryRun).Logger()
	log.Info().
		Str("from", opts.From.String()).
		Str("to", opts.To.String()).
		Msg("Starting transaction sync to Notion")

	txs, err := s.transactions.ListTransactionsBetween(ctx, userID, opts.From.In(time.UTC), opts.To.In(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("SyncTransactions: loading transactions: %w", err)
	}
	log.Info().Int("transaction_count", len(txs)).Msg("Loaded transactions")

	pages, err := s.queryUserPages(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("SyncTransactions: %w", err)
	}
	log.Info().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	existing := make(map[string]string, len(pages))
	for _, page := range pages {
		if txID := extractTransactionID(page); txID != "" {
			existing[txID] = string(page.ID)
		}
	}

	res := &Result{Total: len(txs)}
	current := make(map[string]bool, len(txs))

	for i := 0; i < len(txs); i += BatchSize {
		end := min(i+BatchSize, len(txs))
		log.Debug().Int("batch_start", i).Int("batch_end", end).Msg("Processing batch")

		for _, tx := range txs[i:end] {
			current[tx.ID] = true
			pageID, found := existing[tx.ID]

			if opts.DryRun {
				if found {
					log.Info().Str("transaction_id", tx.ID).Str("page_id", pageID).Msg("[DRY RUN] Would update Notion page")
					res.Updated++
				} else {
					log.Info().Str("transaction_id", tx.ID).Msg("[DRY RUN] Would create Notion page")
					res.Created++
				}
				continue
			}

			props := TransactionToNotionProperties(tx)
			if found {
				if _, err := s.notion.UpdatePage(ctx, pageID, props); err != nil {
					log.Warn().Err(err).Str("transaction_id", tx.ID).Str("page_id", pageID).Msg("Failed to update Notion page")
					res.Failed++
					continue
				}
				res.Updated++
				continue
			}

			page, err := s.notion.CreatePage(ctx, s.databaseID, props)
			if err != nil {
				log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to create Notion page")
				res.Failed++
				continue
			}
			log.Debug().Str("transaction_id", tx.ID).Str("page_id", string(page.ID)).Msg("Created Notion page")
			res.Created++
		}
	}

	if opts.Prune {
		s.prune(ctx, log, pages, current, opts, res)
	}

	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("deleted", res.Deleted).
		Int("failed", res.Failed).
		Int("total", res.Total).
		Msg("Transaction sync completed")
	return res, nil
}

// prune archives in-range pages whose transaction was not part of this run.
func (s *Syncer) prune(ctx context.Context, log zerolog.Logger, pages []notionapi.Page, current map[string]bool, opts Options, res *Result) {
	for _, page := range pages {
		txID := extractTransactionID(page)
		if txID == "" || current[txID] {
			continue
		}
		day, ok := extractDate(page)
		if !ok || day.Before(opts.From) || day.After(opts.To) {
			continue
		}

		if opts.DryRun {
			log.Info().Str("transaction_id", txID).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would delete stale Notion page")
			res.Deleted++
			continue
		}
		if err := s.notion.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).Str("transaction_id", txID).Str("page_id", string(page.ID)).Msg("Failed to delete stale Notion page")
			res.Failed++
			continue
		}
		res.Deleted++
	}
}

// queryUserPages returns every page of the database owned by userID.
// Handles pagination automatically.
func (s *Syncer) queryUserPages(ctx context.Context, userID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			Filter: notionapi.PropertyFilter{
				Property: PropUser,
				RichText: &notionapi.TextFilterCondition{Equals: userID},
			},
			PageSize: pageSize,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := s.notion.QueryDatabase(ctx, s.databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryUserPages: %w", err)
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}
	return all, nil
}

func extractDate(page notionapi.Page) (civil.Date, bool) {
	prop, ok := page.Properties[PropDate]
	if !ok {
		return civil.Date{}, false
	}
	dp, ok := prop.(*notionapi.DateProperty)
	if !ok || dp.Date == nil || dp.Date.Start == nil {
		return civil.Date{}, false
	}
	return civil.DateOf(time.Time(*dp.Date.Start)), true
}
