package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	bq "github.com/dvloznov/budgetiq/internal/bigquery"
	"github.com/dvloznov/budgetiq/internal/logger"
	"github.com/google/uuid"
)

// maxErrorLen bounds the stored error_message.
const maxErrorLen = 2000

// StartExportRun inserts a new row into export_runs with status=RUNNING
// and returns the generated export_run_id.
func (r *Repository) StartExportRun(ctx context.Context, userID string, from, to civil.Date) (string, error) {
	exportRunID := uuid.NewString()

	q := r.client.Query(fmt.Sprintf(`
		INSERT %s (
			export_run_id,
			user_id,
			from_date,
			to_date,
			started_ts,
			status
		)
		VALUES (
			@export_run_id,
			@user_id,
			@from_date,
			@to_date,
			@started_ts,
			@status
		)
	`, r.qualified(exportRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "export_run_id", Value: exportRunID},
		{Name: "user_id", Value: userID},
		{Name: "from_date", Value: from},
		{Name: "to_date", Value: to},
		{Name: "started_ts", Value: time.Now()},
		{Name: "status", Value: bq.RunStatusRunning},
	}

	if err := r.runDML(ctx, q); err != nil {
		return "", fmt.Errorf("StartExportRun: %w", err)
	}
	return exportRunID, nil
}

// MarkExportRunFailed sets status=FAILED, finished_ts and error_message.
// Failures are logged, not returned, so the original export error is what the caller sees.
func (r *Repository) MarkExportRunFailed(ctx context.Context, exportRunID string, exportErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if exportErr != nil {
		errMsg = exportErr.Error()
		if len(errMsg) > maxErrorLen {
			errMsg = errMsg[:maxErrorLen]
		}
	}

	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE export_run_id = @export_run_id
	`, r.qualified(exportRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: bq.RunStatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "export_run_id", Value: exportRunID},
	}

	if err := r.runDML(ctx, q); err != nil {
		log.Error().
			Err(err).
			Str("export_run_id", exportRunID).
			Msg("MarkExportRunFailed: update failed")
	}
}

// MarkExportRunSucceeded sets status=SUCCESS, finished_ts and the row counts.
func (r *Repository) MarkExportRunSucceeded(ctx context.Context, exportRunID string, transactions, conversions int) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    transactions = @transactions,
		    conversions = @conversions,
		    error_message = ""
		WHERE export_run_id = @export_run_id
	`, r.qualified(exportRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: bq.RunStatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "transactions", Value: int64(transactions)},
		{Name: "conversions", Value: int64(conversions)},
		{Name: "export_run_id", Value: exportRunID},
	}

	if err := r.runDML(ctx, q); err != nil {
		return fmt.Errorf("MarkExportRunSucceeded: %w", err)
	}
	return nil
}
