package bigquery

import (
	"context"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// Export run statuses.
const (
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

// Warehouse provides an interface for analytics export operations.
type Warehouse interface {
	// StartExportRun inserts a new export run with status=RUNNING and returns the export_run_id.
	StartExportRun(ctx context.Context, userID string, from, to civil.Date) (string, error)

	// MarkExportRunSucceeded sets status=SUCCESS, finished_ts and row counts for an export run.
	MarkExportRunSucceeded(ctx context.Context, exportRunID string, transactions, conversions int) error

	// MarkExportRunFailed sets status=FAILED, finished_ts and error_message for an export run.
	MarkExportRunFailed(ctx context.Context, exportRunID string, exportErr error)

	// InsertTransactions streams a batch of TransactionRow into the warehouse.
	InsertTransactions(ctx context.Context, rows []*TransactionRow) error

	// InsertConversions streams a batch of ConversionRow into the warehouse.
	InsertConversions(ctx context.Context, rows []*ConversionRow) error

	// CategoryTotals sums exported expenses per category and currency within [from, to].
	CategoryTotals(ctx context.Context, userID string, from, to civil.Date) ([]*CategoryTotalRow, error)
}

// TransactionRow represents a transaction record in BigQuery.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED
	ExportRunID   string `bigquery:"export_run_id"`  // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Amount   *big.Rat `bigquery:"amount"`   // REQUIRED NUMERIC
	Currency string   `bigquery:"currency"` // REQUIRED STRING

	Direction string `bigquery:"direction"` // REQUIRED: DEBIT or CREDIT

	Merchant     string              `bigquery:"merchant"`      // REQUIRED STRING
	CategoryName bigquery.NullString `bigquery:"category_name"` // NULLABLE
	Notes        bigquery.NullString `bigquery:"notes"`         // NULLABLE

	IsSplitParent bigquery.NullBool  `bigquery:"is_split_parent"`
	SplitCount    bigquery.NullInt64 `bigquery:"split_count"`

	RecurringID bigquery.NullString `bigquery:"recurring_id"` // NULLABLE
	ReceiptID   bigquery.NullString `bigquery:"receipt_id"`   // NULLABLE

	CreatedTS  time.Time `bigquery:"created_ts"`  // REQUIRED
	ExportedTS time.Time `bigquery:"exported_ts"` // REQUIRED
}

// ConversionRow represents a committed currency transfer in BigQuery.
type ConversionRow struct {
	ConversionID  string `bigquery:"conversion_id"`
	UserID        string `bigquery:"user_id"`
	ExportRunID   string `bigquery:"export_run_id"`
	FromAccountID string `bigquery:"from_account_id"`
	ToAccountID   string `bigquery:"to_account_id"`

	FromCurrency string   `bigquery:"from_currency"`
	ToCurrency   string   `bigquery:"to_currency"`
	FromAmount   *big.Rat `bigquery:"from_amount"`   // NUMERIC
	ToAmount     *big.Rat `bigquery:"to_amount"`     // NUMERIC
	ExchangeRate *big.Rat `bigquery:"exchange_rate"` // NUMERIC

	Description bigquery.NullString `bigquery:"description"`

	CreatedTS  time.Time `bigquery:"created_ts"`
	ExportedTS time.Time `bigquery:"exported_ts"`
}

// CategoryTotalRow is one row of the category totals report.
type CategoryTotalRow struct {
	CategoryName string   `bigquery:"category_name"`
	Currency     string   `bigquery:"currency"`
	Total        *big.Rat `bigquery:"total"`
	TxCount      int64    `bigquery:"tx_count"`
}
