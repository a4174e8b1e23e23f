package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/dvloznov/trading-analyzer/internal/config"
	"github.com/dvloznov/trading-analyzer/internal/gcs"
	"github.com/dvloznov/trading-analyzer/internal/gcsuploader"
	"github.com/dvloznov/trading-analyzer/internal/logger"
	"github.com/dvloznov/trading-analyzer/internal/trace"
)

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "analyze":
		runAnalyze(os.Args[2:])
	case "inspect":
		runInspect(os.Args[2:])
	case "list":
		runList(os.Args[2:])
	case "upload":
		runUpload(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Trading Analyzer CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  analyze   Analyse an exchange export (local file or gs:// URI)")
	fmt.Println("  inspect   Show detected columns and validation per sheet")
	fmt.Println("  list      List exports under a GCS prefix")
	fmt.Println("  upload    Upload an export to GCS")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// setup loads configuration and returns a logger configured from it.
// Tracing is started when enabled; the returned func flushes it.
func setup(configPath string) (*config.Config, zerolog.Logger, func()) {
	cfg, err := config.Load(configPath)
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.NewWithLevel(cfg.Logging.Level, cfg.Logging.Format)

	if err := trace.Init(cfg.Tracing, os.Stderr); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise tracing")
	}

	return cfg, log, func() {
		if err := trace.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to flush traces")
		}
	}
}

func newStorage(cfg *config.Config) gcs.StorageService {
	return gcsuploader.NewGCSStorageService(cfg.Limits.MaxBytes())
}

func defaultConfigPath() string {
	if p := os.Getenv("ANALYZER_CONFIG"); p != "" {
		return p
	}
	return "config.toml"
}

func runList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "Path to a TOML or YAML config file")
	prefix := fs.String("prefix", "", "GCS prefix, e.g. gs://bucket/exports/ (defaults to storage.bucket/storage.prefix)")
	fs.Parse(args)

	cfg, log, done := setup(*configPath)
	defer done()

	if *prefix == "" {
		if cfg.Storage.Bucket == "" {
			log.Fatal().Msg("Usage: cli list -prefix gs://bucket/path/ (or set storage.bucket)")
		}
		*prefix = "gs://" + cfg.Storage.Bucket + "/" + cfg.Storage.Prefix
	}

	ctx := logger.WithContext(context.Background(), log)

	storage := newStorage(cfg)
	uris, err := storage.ListExports(ctx, *prefix)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list exports")
	}

	if len(uris) == 0 {
		color.Yellow("No exports found under %s", *prefix)
		return
	}
	for _, uri := range uris {
		fmt.Println(uri)
	}
}

func runUpload(args []string) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "Path to a TOML or YAML config file")
	bucketName := fs.String("bucket", "", "GCS bucket name (defaults to storage.bucket)")
	objectName := fs.String("object", "", "GCS object name (defaults to storage.prefix + filename)")
	filePath := fs.String("file", "", "Path to local export (.xlsx, .xls or .csv)")
	fs.Parse(args)

	cfg, log, done := setup(*configPath)
	defer done()

	if *bucketName == "" {
		*bucketName = cfg.Storage.Bucket
	}
	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	if *objectName == "" {
		*objectName = strings.TrimPrefix(cfg.Storage.Prefix+filepath.Base(*filePath), "/")
	}

	ctx := logger.WithContext(context.Background(), log)

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	storage := newStorage(cfg)
	if err := storage.UploadFile(ctx, *bucketName, *objectName, *filePath); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to gs://%s/%s\n", *filePath, *bucketName, *objectName)
}
