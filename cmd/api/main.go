package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dvloznov/trading-analyzer/internal/api"
	"github.com/dvloznov/trading-analyzer/internal/api/handlers"
	"github.com/dvloznov/trading-analyzer/internal/config"
	"github.com/dvloznov/trading-analyzer/internal/gcsuploader"
	"github.com/dvloznov/trading-analyzer/internal/jobs"
	"github.com/dvloznov/trading-analyzer/internal/jobs/inmemory"
	"github.com/dvloznov/trading-analyzer/internal/logger"
	"github.com/dvloznov/trading-analyzer/internal/narrator"
	"github.com/dvloznov/trading-analyzer/internal/pipeline"
	"github.com/dvloznov/trading-analyzer/internal/session"
	"github.com/dvloznov/trading-analyzer/internal/trace"
)

func main() {
	_ = godotenv.Load()

	// Parse command-line flags
	var (
		configPath = flag.String("config", envOr("ANALYZER_CONFIG", "config.toml"), "Path to a TOML or YAML config file")
		port       = flag.String("port", "", "HTTP server port (overrides server.port)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	log := logger.NewWithLevel(cfg.Logging.Level, cfg.Logging.Format)

	if err := trace.Init(cfg.Tracing, os.Stderr); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise tracing")
	}

	ctx := logger.WithContext(context.Background(), log)

	n, err := narrator.New(ctx, cfg.Narrator)
	if err != nil {
		log.Warn().Err(err).Msg("Narrator unavailable, continuing without commentary")
		n = narrator.Noop{}
	}

	storage := gcsuploader.NewGCSStorageService(cfg.Limits.MaxBytes())
	svc, err := pipeline.NewService(cfg, pipeline.WithStorage(storage), pipeline.WithNarrator(n))
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid sheet filter")
	}

	var lister handlers.ExportLister
	if cfg.Storage.Bucket != "" {
		lister = storage
	} else {
		log.Warn().Msg("No GCS bucket configured - batch analysis will be disabled")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Server.QueueSize, cfg.Server.Workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", cfg.Server.Workers).Msg("Starting job workers")
	if err := jobQueue.Start(workerCtx, jobs.NewAnalyzeHandler(svc)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	sessions := session.NewManager()
	go expireSessions(workerCtx, sessions, cfg.Server.GetSessionTTL())

	handler := api.NewRouter(api.Deps{
		Config:    cfg,
		Sessions:  sessions,
		Analyzer:  svc,
		JobStore:  jobStore,
		Publisher: jobQueue,
		Lister:    lister,
		Log:       log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.GetReadTimeout(),
		WriteTimeout: cfg.Server.GetWriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	if err := trace.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to flush traces")
	}

	log.Info().Msg("Server exited")
}

// expireSessions drops idle sessions every ttl/4 until ctx is done.
func expireSessions(ctx context.Context, sessions *session.Manager, ttl time.Duration) {
	ticker := time.NewTicker(ttl / 4)
	defer ticker.Stop()

	log := logger.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Expire(ttl); n > 0 {
				log.Debug().Int("expired", n).Msg("Expired idle sessions")
			}
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
