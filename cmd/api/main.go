package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/voice-inventory/internal/api/handlers"
	"github.com/dvloznov/voice-inventory/internal/app"
	"github.com/dvloznov/voice-inventory/internal/config"
	"github.com/dvloznov/voice-inventory/internal/jobs"
	"github.com/dvloznov/voice-inventory/internal/jobs/inmemory"
	"github.com/dvloznov/voice-inventory/internal/logger"
	"github.com/dvloznov/voice-inventory/internal/notionsync"
	flag "github.com/spf13/pflag"
)

func main() {
	cfg := config.Load()

	// Parse command-line flags
	var (
		port     = flag.StringP("port", "p", cfg.Server.Port, "HTTP server port")
		backend  = flag.String("store", cfg.Store.Backend, "Store backend: memory, postgres or bigquery")
		logLevel = flag.String("log-level", cfg.Logger.Level, "Log level")
	)
	flag.Parse()
	cfg.Server.Port = *port
	cfg.Store.Backend = *backend
	cfg.Logger.Level = *logLevel

	// Initialize logger
	log := logger.NewFromOptions(logger.Options{
		Level:      cfg.Logger.Level,
		File:       cfg.Logger.File,
		MaxSizeMB:  cfg.Logger.MaxSizeMB,
		MaxBackups: cfg.Logger.MaxBackups,
	})

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	ctx := logger.WithContext(context.Background(), log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise services")
	}
	defer a.Close()

	// Initialize job infrastructure
	jobStore, err := a.NewJobStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create job store")
	}

	var (
		jobQueue  *inmemory.Queue
		publisher jobs.Publisher
	)
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if cfg.Notion.Token != "" && cfg.Notion.DatabaseID != "" {
		notionClient, err := notionsync.NewNotionClient(cfg.Notion.Token)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Notion client")
		}
		jobQueue = inmemory.NewQueue(100, 2, jobStore)
		publisher = jobQueue

		// Start job consumer in background
		handler := notionsync.NewJobHandler(a.Store, notionClient, cfg.Notion.DatabaseID)
		go func() {
			log.Info().Msg("Starting job worker")
			if err := jobQueue.Start(workerCtx, handler); err != nil {
				log.Error().Err(err).Msg("Job worker stopped with error")
			}
		}()
	} else {
		log.Warn().Msg("No Notion credentials configured - ledger sync will be disabled")
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Ledger:         a.Ledger,
		Voice:          a.Voice,
		JobStore:       jobStore,
		Publisher:      publisher,
		JWTSecret:      cfg.JWT.Secret,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Log:            log,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.RequestTimeout,
		WriteTimeout: cfg.Server.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Str("store", cfg.Store.Backend).
			Str("llm", cfg.LLM.Provider).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if jobQueue != nil {
		// Stop job queue and wait for in-flight jobs
		cancelWorker()
		if err := jobQueue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping job queue")
		}
		if err := jobQueue.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close job queue")
		}
	}

	log.Info().Msg("Server exited")
}
