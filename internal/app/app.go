// Package app wires configuration into the services shared by the API server,
// the worker and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/dvloznov/budgetiq/internal/api"
	"github.com/dvloznov/budgetiq/internal/auth"
	"github.com/dvloznov/budgetiq/internal/budgets"
	"github.com/dvloznov/budgetiq/internal/categorize"
	"github.com/dvloznov/budgetiq/internal/config"
	"github.com/dvloznov/budgetiq/internal/currency"
	"github.com/dvloznov/budgetiq/internal/dashboard"
	"github.com/dvloznov/budgetiq/internal/exports"
	"github.com/dvloznov/budgetiq/internal/gcs"
	"github.com/dvloznov/budgetiq/internal/gcsuploader"
	"github.com/dvloznov/budgetiq/internal/groups"
	infraBQ "github.com/dvloznov/budgetiq/internal/infra/bigquery"
	"github.com/dvloznov/budgetiq/internal/infra/postgres"
	"github.com/dvloznov/budgetiq/internal/jobs"
	"github.com/dvloznov/budgetiq/internal/jobs/inmemory"
	"github.com/dvloznov/budgetiq/internal/ocr"
	"github.com/dvloznov/budgetiq/internal/receipts"
	"github.com/dvloznov/budgetiq/internal/recurring"
	"github.com/dvloznov/budgetiq/internal/transactions"
	"github.com/rs/zerolog"
)

// App holds every long-lived dependency of a process.
type App struct {
	Config config.Config
	Log    zerolog.Logger

	Pool *postgres.Pool
	Repo *postgres.Repository

	Auth         *auth.Service
	Accounts     *currency.AccountService
	Transfers    *currency.TransferService
	Rates        currency.RatesProvider
	Transactions *transactions.Service
	Budgets      *budgets.Service
	Recurring    *recurring.Service
	Groups       *groups.Service
	Receipts     *receipts.Service
	Dashboard    *dashboard.Service

	JobStore   *inmemory.Store
	Queue      *inmemory.Queue
	Dispatcher *jobs.Dispatcher

	// Warehouse and Exporter are nil unless a BigQuery project is configured.
	Warehouse *infraBQ.Repository
	Exporter  *exports.BigQueryExporter

	closers []func() error
}

// New builds the application. The database pool connects lazily, so New
// itself does not touch the network for Postgres.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	a.Pool = postgres.NewPool(cfg.Database.URL, postgres.PoolOptions{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		Tracing:         cfg.Telemetry.Enabled,
	})
	a.closers = append(a.closers, func() error { a.Pool.Close(); return nil })
	a.Repo = postgres.NewRepository(a.Pool)

	files, err := a.fileStore(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("New: %w", err)
	}

	extractor, err := ocr.New(ctx, cfg.OCR.Provider, cfg.OCR.Model)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("New: creating OCR extractor: %w", err)
	}

	var rates currency.RatesProvider = currency.NewStaticRates()
	if cfg.Currency.RatesAPIURL != "" {
		rates = currency.NewLiveRates(cfg.Currency.RatesAPIURL, cfg.Currency.RatesCacheTTL, rates, log)
	}
	a.Rates = rates

	a.JobStore = inmemory.NewStore()
	a.Queue = inmemory.NewQueue(cfg.Jobs.BufferSize, cfg.Jobs.Workers, cfg.Jobs.MaxRetries, a.JobStore)
	a.closers = append(a.closers, a.Queue.Close)
	a.Dispatcher = jobs.NewDispatcher()

	a.Auth = auth.NewService(a.Repo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.BcryptCost, log)
	a.Accounts = currency.NewAccountService(a.Repo, cfg.Currency.DefaultAccountCurrency, log)
	a.Transfers = currency.NewTransferService(a.Repo, a.Repo, log)
	a.Transactions = transactions.NewService(a.Repo, categorize.New(), log)
	a.Budgets = budgets.NewService(a.Repo, a.Repo)
	a.Recurring = recurring.NewService(a.Repo, log)
	a.Groups = groups.NewService(a.Repo)
	a.Receipts = receipts.NewService(a.Repo, files, extractor, a.Queue, log)
	a.Dashboard = dashboard.NewService(a.Repo, a.Repo, rates, cfg.Currency.ReportingCurrency, log)

	a.Dispatcher.Register(jobs.JobTypeExtractReceipt, a.Receipts.HandleJob)

	if cfg.BigQuery.ProjectID != "" {
		wh, err := infraBQ.NewRepository(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("New: %w", err)
		}
		a.closers = append(a.closers, wh.Close)
		a.Warehouse = wh
		a.Exporter = exports.NewBigQueryExporter(a.Repo, a.Repo, wh, log)
		a.Dispatcher.Register(jobs.JobTypeExportBigQuery, a.Exporter.HandleJob)
	}

	return a, nil
}

func (a *App) fileStore(ctx context.Context) (gcs.FileStore, error) {
	if a.Config.Storage.Bucket == "" {
		a.Log.Warn().Msg("No GCS bucket configured - receipts use in-memory mock storage")
		return gcsuploader.NewMemoryStore(), nil
	}
	store, err := gcsuploader.NewGCSStore(ctx, a.Config.Storage.Bucket)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)
	return store, nil
}

// StartJobs starts the job workers. They stop when ctx is cancelled or on Close.
func (a *App) StartJobs(ctx context.Context) error {
	return a.Queue.Start(ctx, a.Dispatcher.Handle)
}

// Services returns the HTTP layer's dependencies.
func (a *App) Services() api.Services {
	s := api.Services{
		Auth:         a.Auth,
		Accounts:     a.Accounts,
		Transfers:    a.Transfers,
		Rates:        a.Rates,
		Transactions: a.Transactions,
		Budgets:      a.Budgets,
		Recurring:    a.Recurring,
		Groups:       a.Groups,
		Receipts:     a.Receipts,
		Dashboard:    a.Dashboard,
		Jobs:         a.JobStore,
		DB:           a.Pool,
	}
	if a.Exporter != nil {
		s.Exports = a.Queue
	}
	return s
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Error().Err(err).Msg("Error during shutdown")
		}
	}
	a.closers = nil
}
