// Package exports copies a user's ledger into external analytics destinations.
package exports

import (
	"context"
	"fmt"
	"math/big"
	"time"

	gbq "cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	bq "github.com/dvloznov/budgetiq/internal/bigquery"
	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/dvloznov/budgetiq/internal/jobs"
	"github.com/dvloznov/budgetiq/internal/store"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	// DefaultBatchSize is how many rows one streaming insert carries.
	DefaultBatchSize = 500

	// conversionScanLimit bounds how many conversions one export reads.
	conversionScanLimit = 10000
)

// Directions recorded on exported transactions.
const (
	DirectionDebit  = "DEBIT"
	DirectionCredit = "CREDIT"
)

// Result summarises one export.
type Result struct {
	ExportRunID  string `json:"exportRunId"`
	Transactions int    `json:"transactions"`
	Conversions  int    `json:"conversions"`
}

// BigQueryExporter streams transactions and conversions into a Warehouse.
type BigQueryExporter struct {
	transactions store.TransactionRepository
	accounts     store.AccountRepository
	warehouse    bq.Warehouse
	batchSize    int
	log          zerolog.Logger
	now          func() time.Time
}

// NewBigQueryExporter creates an exporter.
func NewBigQueryExporter(transactions store.TransactionRepository, accounts store.AccountRepository, warehouse bq.Warehouse, log zerolog.Logger) *BigQueryExporter {
	return &BigQueryExporter{
		transactions: transactions,
		accounts:     accounts,
		warehouse:    warehouse,
		batchSize:    DefaultBatchSize,
		log:          log,
		now:          time.Now,
	}
}

// ExportTransactions exports the user's transactions dated within [from, to] and the
// conversions created within the same days. Every exported row carries the export
// run id, and the run is marked failed if any insert fails.
func (e *BigQueryExporter) ExportTransactions(ctx context.Context, userID string, from, to civil.Date) (*Result, error) {
	if to.Before(from) {
		return nil, domain.Validation("from must not be after to")
	}

	runID, err := e.warehouse.StartExportRun(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("ExportTransactions: starting run: %w", err)
	}
	log := e.log.With().Str("export_run_id", runID).Str("user_id", userID).Logger()
	log.Info().Str("from", from.String()).Str("to", to.String()).Msg("Export started")

	res, err := e.export(ctx, runID, userID, from, to)
	if err != nil {
		e.warehouse.MarkExportRunFailed(ctx, runID, err)
		log.Error().Err(err).Msg("Export failed")
		return nil, fmt.Errorf("ExportTransactions: %w", err)
	}

	if err := e.warehouse.MarkExportRunSucceeded(ctx, runID, res.Transactions, res.Conversions); err != nil {
		return nil, fmt.Errorf("ExportTransactions: %w", err)
	}
	log.Info().Int("transactions", res.Transactions).Int("conversions", res.Conversions).Msg("Export completed")
	return res, nil
}

func (e *BigQueryExporter) export(ctx context.Context, runID, userID string, from, to civil.Date) (*Result, error) {
	exportedAt := e.now().UTC()
	res := &Result{ExportRunID: runID}

	txs, err := e.transactions.ListTransactionsBetween(ctx, userID, from.In(time.UTC), to.In(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	txRows := make([]*bq.TransactionRow, 0, len(txs))
	for _, t := range txs {
		txRows = append(txRows, TransactionRow(t, runID, exportedAt))
	}
	for start := 0; start < len(txRows); start += e.batchSize {
		end := min(start+e.batchSize, len(txRows))
		if err := e.warehouse.InsertTransactions(ctx, txRows[start:end]); err != nil {
			return nil, fmt.Errorf("inserting transactions %d-%d: %w", start, end, err)
		}
		res.Transactions = end
	}

	conversions, err := e.accounts.ListConversions(ctx, userID, conversionScanLimit)
	if err != nil {
		return nil, fmt.Errorf("loading conversions: %w", err)
	}
	var convRows []*bq.ConversionRow
	for _, c := range conversions {
		day := civil.DateOf(c.CreatedAt.UTC())
		if day.Before(from) || day.After(to) {
			continue
		}
		convRows = append(convRows, ConversionRow(c, runID, exportedAt))
	}
	for start := 0; start < len(convRows); start += e.batchSize {
		end := min(start+e.batchSize, len(convRows))
		if err := e.warehouse.InsertConversions(ctx, convRows[start:end]); err != nil {
			return nil, fmt.Errorf("inserting conversions %d-%d: %w", start, end, err)
		}
		res.Conversions = end
	}
	return res, nil
}

// HandleJob is the jobs.JobHandler for export_bigquery jobs.
func (e *BigQueryExporter) HandleJob(ctx context.Context, job *jobs.Job) error {
	from, err := civil.ParseDate(job.Params[jobs.ParamFrom])
	if err != nil {
		return fmt.Errorf("HandleJob: invalid %s: %w", jobs.ParamFrom, err)
	}
	to, err := civil.ParseDate(job.Params[jobs.ParamTo])
	if err != nil {
		return fmt.Errorf("HandleJob: invalid %s: %w", jobs.ParamTo, err)
	}

	res, err := e.ExportTransactions(ctx, job.UserID, from, to)
	if err != nil {
		return err
	}
	job.Result = map[string]any{
		"exportRunId":  res.ExportRunID,
		"transactions": res.Transactions,
		"conversions":  res.Conversions,
	}
	return nil
}

// TransactionRow maps a ledger entry to its warehouse row.
func TransactionRow(t *domain.Transaction, runID string, exportedAt time.Time) *bq.TransactionRow {
	direction := DirectionCredit
	if t.IsExpense() {
		direction = DirectionDebit
	}
	row := &bq.TransactionRow{
		TransactionID:   t.ID,
		UserID:          t.UserID,
		ExportRunID:     runID,
		TransactionDate: t.Date,
		Amount:          ratOf(t.Amount),
		Currency:        t.Currency,
		Direction:       direction,
		Merchant:        t.Merchant,
		CategoryName:    nullString(t.Category),
		Notes:           gbq.NullString{StringVal: t.Notes, Valid: t.Notes != ""},
		RecurringID:     nullString(t.RecurringID),
		ReceiptID:       nullString(t.ReceiptID),
		CreatedTS:       t.CreatedAt,
		ExportedTS:      exportedAt,
	}
	if len(t.Split) > 0 {
		row.IsSplitParent = gbq.NullBool{Bool: true, Valid: true}
		row.SplitCount = gbq.NullInt64{Int64: int64(len(t.Split)), Valid: true}
	}
	return row
}

// ConversionRow maps a conversion record to its warehouse row.
func ConversionRow(c *domain.Conversion, runID string, exportedAt time.Time) *bq.ConversionRow {
	return &bq.ConversionRow{
		ConversionID:  c.ID,
		UserID:        c.UserID,
		ExportRunID:   runID,
		FromAccountID: c.FromAccountID,
		ToAccountID:   c.ToAccountID,
		FromCurrency:  c.FromCurrency,
		ToCurrency:    c.ToCurrency,
		FromAmount:    ratOf(c.FromAmount),
		ToAmount:      ratOf(c.ToAmount),
		ExchangeRate:  ratOf(c.ExchangeRate),
		Description:   gbq.NullString{StringVal: c.Description, Valid: c.Description != ""},
		CreatedTS:     c.CreatedAt,
		ExportedTS:    exportedAt,
	}
}

func ratOf(d decimal.Decimal) *big.Rat {
	return d.Rat()
}

func nullString(s *string) gbq.NullString {
	if s == nil || *s == "" {
		return gbq.NullString{}
	}
	return gbq.NullString{StringVal: *s, Valid: true}
}
