package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	bq "github.com/dvloznov/budgetiq/internal/bigquery"
	"google.golang.org/api/iterator"
)

// InsertTransactions streams a batch of TransactionRow into the transactions table.
func (r *Repository) InsertTransactions(ctx context.Context, rows []*bq.TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := r.table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

// InsertConversions streams a batch of ConversionRow into the conversions table.
func (r *Repository) InsertConversions(ctx context.Context, rows []*bq.ConversionRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := r.table(conversionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertConversions: inserting rows: %w", err)
	}
	return nil
}

// CategoryTotals sums exported expenses per category and currency. Only rows
// from successful export runs are counted, and a transaction exported by more
// than one run is counted once.
func (r *Repository) CategoryTotals(ctx context.Context, userID string, from, to civil.Date) ([]*bq.CategoryTotalRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		WITH latest AS (
			SELECT t.*
			FROM %s t
			INNER JOIN %s er
			  ON t.export_run_id = er.export_run_id
			WHERE t.user_id = @user_id
			  AND t.transaction_date >= @start_date
			  AND t.transaction_date <= @end_date
			  AND er.status = 'SUCCESS'
			QUALIFY ROW_NUMBER() OVER (PARTITION BY t.transaction_id ORDER BY t.exported_ts DESC) = 1
		)
		SELECT
			COALESCE(category_name, 'Uncategorized') AS category_name,
			currency,
			SUM(ABS(amount)) AS total,
			COUNT(*) AS tx_count
		FROM latest
		WHERE direction = 'DEBIT'
		GROUP BY category_name, currency
		ORDER BY total DESC
	`, r.qualified(transactionsTable), r.qualified(exportRunsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "start_date", Value: from},
		{Name: "end_date", Value: to},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("CategoryTotals: query read: %w", err)
	}

	var rows []*bq.CategoryTotalRow
	for {
		var row bq.CategoryTotalRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("CategoryTotals: iter next: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}
