package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/dvloznov/trading-analyzer/internal/config"
	"github.com/dvloznov/trading-analyzer/internal/gcsuploader"
	"github.com/dvloznov/trading-analyzer/internal/jobs"
	"github.com/dvloznov/trading-analyzer/internal/jobs/inmemory"
	"github.com/dvloznov/trading-analyzer/internal/logger"
	"github.com/dvloznov/trading-analyzer/internal/narrator"
	"github.com/dvloznov/trading-analyzer/internal/pipeline"
	"github.com/dvloznov/trading-analyzer/internal/trace"
)

const pollInterval = 500 * time.Millisecond

func main() {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", envOr("ANALYZER_CONFIG", "config.toml"), "Path to a TOML or YAML config file")
		prefix     = flag.String("prefix", "", "GCS prefix to analyse, e.g. gs://bucket/exports/ (defaults to storage.bucket/storage.prefix)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.NewWithLevel(cfg.Logging.Level, cfg.Logging.Format)

	if err := trace.Init(cfg.Tracing, os.Stderr); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise tracing")
	}

	if *prefix == "" {
		if cfg.Storage.Bucket == "" {
			log.Fatal().Msg("Usage: worker -prefix gs://bucket/path/ (or set storage.bucket)")
		}
		*prefix = "gs://" + cfg.Storage.Bucket + "/" + cfg.Storage.Prefix
	}

	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

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

	uris, err := storage.ListExports(ctx, *prefix)
	if err != nil {
		log.Fatal().Err(err).Str("prefix", *prefix).Msg("Failed to list exports")
	}
	if len(uris) == 0 {
		color.Yellow("No exports found under %s", *prefix)
		return
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(len(uris), cfg.Server.Workers, jobStore)

	log.Info().Int("exports", len(uris)).Int("workers", cfg.Server.Workers).Msg("Starting worker service")

	if err := jobQueue.Start(ctx, jobs.NewAnalyzeHandler(svc)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	batchID := uuid.New().String()
	for _, uri := range uris {
		job := &jobs.AnalyzeExportJob{BatchID: batchID, GCSURI: uri}
		if err := jobQueue.PublishAnalyzeExport(ctx, job); err != nil {
			log.Fatal().Err(err).Str("gcs_uri", uri).Msg("Failed to enqueue export")
		}
	}

	finished, err := waitForBatch(ctx, jobStore, batchID, len(uris))
	if err != nil {
		log.Warn().Err(err).Msg("Interrupted before every export finished")
	}
	printBatch(os.Stdout, finished)

	log.Info().Msg("Shutting down worker service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	if err := trace.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to flush traces")
	}

	log.Info().Msg("Worker service exited")
}

// waitForBatch polls the store until total jobs of the batch are completed
// or failed. It returns the jobs seen so far when ctx ends first.
func waitForBatch(ctx context.Context, store jobs.JobStore, batchID string, total int) ([]*jobs.AnalyzeExportJob, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		list, err := store.ListJobs(ctx, jobs.JobFilter{BatchID: batchID})
		if err != nil {
			return nil, fmt.Errorf("waitForBatch: %w", err)
		}
		if sum := jobs.Summarize(batchID, list); sum.Done && sum.Total == total {
			return list, nil
		}

		select {
		case <-ctx.Done():
			return list, ctx.Err()
		case <-ticker.C:
		}
	}
}

// printBatch writes one line per export.
func printBatch(w io.Writer, list []*jobs.AnalyzeExportJob) {
	for _, j := range list {
		switch {
		case j.Status == jobs.JobStatusFailed:
			color.New(color.FgRed).Fprintf(w, "FAIL  %s: %s\n", j.GCSURI, j.Error)
		case j.Result == nil:
			fmt.Fprintf(w, "%-5s %s\n", j.Status, j.GCSURI)
		case j.Result.NoTradingData:
			color.New(color.FgYellow).Fprintf(w, "EMPTY %s: no PnL column found\n", j.GCSURI)
		default:
			r := j.Result
			c := color.New(color.FgGreen)
			if r.TotalPnL < 0 {
				c = color.New(color.FgRed)
			}
			c.Fprintf(w, "OK    %s: pnl %.2f, %d trades, win rate %.1f%%\n", j.GCSURI, r.TotalPnL, r.TotalTrades, r.GlobalWinRate)
		}
	}
	sum := jobs.Summarize("", list)
	fmt.Fprintf(w, "\n%d exports, %d failed, total pnl %.2f\n", sum.Total, sum.Failed, sum.TotalPnL)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
