package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dvloznov/budgetiq/internal/api"
	"github.com/dvloznov/budgetiq/internal/app"
	"github.com/dvloznov/budgetiq/internal/config"
	"github.com/dvloznov/budgetiq/internal/logger"
	"github.com/dvloznov/budgetiq/internal/recurring"
	"github.com/dvloznov/budgetiq/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	shutdownTelemetry, err := telemetry.Setup(cfg.Telemetry.Enabled, cfg.Telemetry.ServiceName, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure telemetry")
	}
	defer shutdownTelemetry()

	ctx := context.Background()
	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise application")
	}
	defer application.Close()

	// Start job workers in background
	workerCtx, cancelWorker := context.WithCancel(logger.WithContext(ctx, log))
	defer cancelWorker()

	log.Info().Int("workers", cfg.Jobs.Workers).Msg("Starting job workers")
	if err := application.StartJobs(workerCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	var runner *recurring.Runner
	if cfg.Recurring.Enabled {
		runner = recurring.NewRunner(application.Recurring, cfg.Recurring.Schedule, log)
		if err := runner.Start(workerCtx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start recurring runner")
		}
	}

	handler := api.NewRouter(application.Services(), api.Options{
		AllowedOrigin: cfg.HTTP.AllowedOrigin,
		SecureCookies: cfg.Production(),
		ServiceName:   cfg.Telemetry.ServiceName,
	}, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.HTTP.Port).Str("env", cfg.Env).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if runner != nil {
		if err := runner.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping recurring runner")
		}
	}

	// Stop job queue and wait for in-flight jobs
	if err := application.Queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
