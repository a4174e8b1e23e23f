package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/dvloznov/trading-analyzer/internal/config"
	"github.com/dvloznov/trading-analyzer/internal/loader"
	"github.com/dvloznov/trading-analyzer/internal/logger"
	"github.com/dvloznov/trading-analyzer/internal/narrator"
	"github.com/dvloznov/trading-analyzer/internal/pipeline"
	"github.com/dvloznov/trading-analyzer/internal/portfolio"
	"github.com/dvloznov/trading-analyzer/internal/report"
)

// sheetFlags are the sheet selection options shared by analyze and inspect.
type sheetFlags struct {
	include     string
	exclude     string
	accountType string
	autoDetect  bool
}

func (f *sheetFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.include, "sheets", "", "Comma-separated sheet names to analyse")
	fs.StringVar(&f.exclude, "exclude", "", "Comma-separated sheet names to skip")
	fs.StringVar(&f.accountType, "account-type", "", "Only sheets of this account type: futures, spot, margin, savings or trading")
	fs.BoolVar(&f.autoDetect, "auto-detect", false, "Skip sheets named like templates or instructions")
}

// apply layers the flags over the configured sheet rules.
func (f *sheetFlags) apply(cfg *config.SheetsConfig) {
	cfg.Include = append(cfg.Include, splitList(f.include)...)
	cfg.Exclude = append(cfg.Exclude, splitList(f.exclude)...)
	if f.accountType != "" {
		cfg.AccountTypes = append(cfg.AccountTypes, f.accountType)
	}
	if f.autoDetect {
		cfg.AutoDetect = true
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sourceFor turns a path or gs:// URI into a pipeline source. Local files
// are read here so that the size limit applies before loading.
func sourceFor(target string, maxBytes int64) (pipeline.Source, error) {
	if strings.HasPrefix(target, "gs://") {
		return pipeline.Source{GCSURI: target}, nil
	}

	f, err := os.Open(target)
	if err != nil {
		return pipeline.Source{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return pipeline.Source{}, err
	}
	return pipeline.Source{Filename: filepath.Base(target), Data: data}, nil
}

func newService(ctx context.Context, cfg *config.Config, log zerolog.Logger) *pipeline.Service {
	opts := []pipeline.Option{
		pipeline.WithStorage(newStorage(cfg)),
	}

	if cfg.Narrator.Enabled {
		n, err := narrator.New(ctx, cfg.Narrator)
		if err != nil {
			log.Warn().Err(err).Msg("Narrator unavailable, continuing without commentary")
		} else {
			opts = append(opts, pipeline.WithNarrator(n))
		}
	}

	svc, err := pipeline.NewService(cfg, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid sheet filter")
	}
	return svc
}

// target returns the -file flag or the first positional argument.
func target(fs *flag.FlagSet, file string) string {
	if file != "" {
		return file
	}
	return fs.Arg(0)
}

func runAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "Path to a TOML or YAML config file")
	file := fs.String("file", "", "Local export or gs:// URI (may also be given as the first argument)")
	format := fs.String("format", "text", "Output format: text, summary or json")
	chartPath := fs.String("chart", "", "Write a PNG chart to this path")
	chartKind := fs.String("chart-kind", report.ChartPnL, "Chart to write: pnl, winrate or hourly")
	narrate := fs.Bool("narrate", false, "Ask Gemini for a short commentary")
	var sheets sheetFlags
	sheets.register(fs)
	fs.Parse(args)

	cfg, log, done := setup(*configPath)
	defer done()

	path := target(fs, *file)
	if path == "" {
		log.Fatal().Msg("Usage: cli analyze [-format text|summary|json] [-chart out.png] FILE|gs://URI")
	}
	sheets.apply(&cfg.Sheets)
	if *narrate {
		cfg.Narrator.Enabled = true
	}

	ctx := logger.WithContext(context.Background(), log)

	src, err := sourceFor(path, cfg.Limits.MaxBytes())
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to read export")
	}

	result, err := newService(ctx, cfg, log).Analyze(ctx, src)
	if err != nil {
		exitWithAnalysisError(log, err)
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(result)
	case "summary":
		err = report.Summary(os.Stdout, result, cfg.Thresholds, time.Now())
		if err == nil {
			printAlerts(os.Stdout, result.SmartAlerts)
		}
	default:
		err = report.Full(os.Stdout, result, time.Now())
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to write output")
	}

	if *chartPath != "" {
		img, err := report.RenderChart(*chartKind, result)
		if err != nil {
			log.Fatal().Err(err).Str("kind", *chartKind).Msg("Failed to render chart")
		}
		if err := os.WriteFile(*chartPath, img, 0o644); err != nil {
			log.Fatal().Err(err).Msg("Failed to write chart")
		}
		log.Info().Str("path", *chartPath).Str("kind", *chartKind).Msg("Chart written")
	}
}

func runInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "Path to a TOML or YAML config file")
	file := fs.String("file", "", "Local export or gs:// URI (may also be given as the first argument)")
	var sheets sheetFlags
	sheets.register(fs)
	fs.Parse(args)

	cfg, log, done := setup(*configPath)
	defer done()

	path := target(fs, *file)
	if path == "" {
		log.Fatal().Msg("Usage: cli inspect FILE|gs://URI")
	}
	sheets.apply(&cfg.Sheets)

	ctx := logger.WithContext(context.Background(), log)

	src, err := sourceFor(path, cfg.Limits.MaxBytes())
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to read export")
	}

	ins, err := newService(ctx, cfg, log).Inspect(ctx, src)
	if err != nil {
		exitWithAnalysisError(log, err)
	}

	md := ins.Metadata
	fmt.Println("\n=== File ===")
	fmt.Printf("Name:     %s\n", md.FileName)
	fmt.Printf("Type:     %s\n", md.FileType)
	fmt.Printf("Sheets:   %d\n", md.TotalSheets)
	fmt.Printf("Rows:     %d\n", md.TotalRows)
	if md.Encoding != "" {
		fmt.Printf("Encoding: %s\n", md.Encoding)
	}

	for _, s := range ins.Sheets {
		title := fmt.Sprintf("\n=== %s (%d rows) ===", s.Name, s.Rows)
		if s.Skipped {
			color.New(color.Faint).Println(title + " skipped by filter")
			continue
		}
		fmt.Println(title)
		fmt.Printf("Columns:   %s\n", strings.Join(s.Columns, ", "))
		fmt.Printf("Timestamp: %s\n", orDash(s.Roles.Timestamp))
		fmt.Printf("Amount:    %s\n", orDash(s.Roles.Amount))
		fmt.Printf("Type:      %s\n", orDash(s.Roles.Type))
		fmt.Printf("Asset:     %s\n", orDash(s.Roles.Asset))
		fmt.Printf("Main PnL:  %s\n", orDash(s.Roles.MainPnL))
		if len(s.Amounts) > 0 {
			fmt.Printf("Amounts:   %s\n", strings.Join(s.Amounts, ", "))
		}
		if !s.Validation.MinRows {
			color.Yellow("Only %d rows; statistics may be unreliable", s.Rows)
		}
		if s.Roles.MainPnL == "" {
			color.Yellow("No PnL column detected")
		}
	}
	fmt.Println()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// exitWithAnalysisError prints a load hint when there is one and exits.
func exitWithAnalysisError(log zerolog.Logger, err error) {
	var le *loader.LoadError
	if errors.As(err, &le) {
		color.Red("Could not load %s: %v", le.Filename, le)
		if hint := le.Hint(); hint != "" {
			color.Yellow("%s", hint)
		}
		os.Exit(1)
	}
	if errors.Is(err, pipeline.ErrTimeout) {
		color.Red("Analysis timed out. Raise limits.timeout or analyse fewer sheets.")
		os.Exit(1)
	}
	log.Fatal().Err(err).Msg("Analysis failed")
}

// alertColor picks the colour for an alert by its marker.
func alertColor(alert string) *color.Color {
	switch {
	case strings.HasPrefix(alert, portfolio.MarkCritical):
		return color.New(color.FgRed, color.Bold)
	case strings.HasPrefix(alert, portfolio.MarkWarning), strings.HasPrefix(alert, portfolio.MarkTime):
		return color.New(color.FgYellow)
	case strings.HasPrefix(alert, portfolio.MarkPositive):
		return color.New(color.FgGreen)
	}
	return color.New(color.FgWhite)
}

func printAlerts(w io.Writer, alerts []string) {
	if len(alerts) == 0 {
		return
	}
	fmt.Fprintln(w, "\nAlerts:")
	for _, a := range alerts {
		alertColor(a).Fprintf(w, "  %s\n", a)
	}
}
