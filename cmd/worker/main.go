package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/budgetiq/internal/app"
	"github.com/dvloznov/budgetiq/internal/config"
	"github.com/dvloznov/budgetiq/internal/logger"
	"github.com/dvloznov/budgetiq/internal/recurring"
)

// The worker runs the recurring scheduler outside the API process. Its job
// queue is in-memory, so it only consumes jobs enqueued in this process; a
// shared broker (Cloud Tasks or Pub/Sub) would replace it in production.
func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format).With().Str("service", "worker").Logger()

	if cfg.Database.URL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise application")
	}
	defer application.Close()

	log.Info().Msg("Starting worker service")

	// Start consuming jobs
	if err := application.StartJobs(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	runner := recurring.NewRunner(application.Recurring, cfg.Recurring.Schedule, log)
	if err := runner.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start recurring runner")
	}

	// Catch up immediately rather than waiting for the first tick.
	if res, err := application.Recurring.RunDue(ctx); err != nil {
		log.Error().Err(err).Msg("Initial recurring pass failed")
	} else {
		log.Info().
			Int("rules", res.Rules).
			Int("transactions", res.Transactions).
			Int("skipped", res.Skipped).
			Msg("Initial recurring pass completed")
	}

	log.Info().Str("schedule", cfg.Recurring.Schedule).Msg("Worker service started, waiting for work...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := runner.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping recurring runner")
	}

	// Stop consumer and wait for in-flight jobs
	if err := application.Queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping worker")
	}
	cancel()

	log.Info().Msg("Worker service stopped")
}
