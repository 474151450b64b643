package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	bq "github.com/dvloznov/budgetiq/internal/bigquery"
	"google.golang.org/api/googleapi"
)

// exportRunRow describes the export_runs table. Rows are written with DML only.
type exportRunRow struct {
	ExportRunID  string                 `bigquery:"export_run_id"`
	UserID       string                 `bigquery:"user_id"`
	FromDate     civil.Date             `bigquery:"from_date"`
	ToDate       civil.Date             `bigquery:"to_date"`
	StartedTS    time.Time              `bigquery:"started_ts"`
	FinishedTS   bigquery.NullTimestamp `bigquery:"finished_ts"`
	Status       string                 `bigquery:"status"`
	Transactions bigquery.NullInt64     `bigquery:"transactions"`
	Conversions  bigquery.NullInt64     `bigquery:"conversions"`
	ErrorMessage bigquery.NullString    `bigquery:"error_message"`
}

// EnsureTables creates the dataset and export tables if they do not exist.
// Existing tables are left untouched.
func (r *Repository) EnsureTables(ctx context.Context) error {
	ds := r.client.DatasetInProject(r.projectID, r.datasetID)
	if err := ds.Create(ctx, &bigquery.DatasetMetadata{}); err != nil && !alreadyExists(err) {
		return fmt.Errorf("EnsureTables: creating dataset %s: %w", r.datasetID, err)
	}

	tables := []struct {
		name string
		row  any
		part string
	}{
		{name: exportRunsTable, row: exportRunRow{}},
		{name: transactionsTable, row: bq.TransactionRow{}, part: "transaction_date"},
		{name: conversionsTable, row: bq.ConversionRow{}},
	}

	for _, t := range tables {
		schema, err := bigquery.InferSchema(t.row)
		if err != nil {
			return fmt.Errorf("EnsureTables: inferring %s schema: %w", t.name, err)
		}
		md := &bigquery.TableMetadata{Schema: schema}
		if t.part != "" {
			md.TimePartitioning = &bigquery.TimePartitioning{Type: bigquery.MonthPartitioningType, Field: t.part}
		}
		if err := ds.Table(t.name).Create(ctx, md); err != nil && !alreadyExists(err) {
			return fmt.Errorf("EnsureTables: creating table %s: %w", t.name, err)
		}
	}
	return nil
}

func alreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}
