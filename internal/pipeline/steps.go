package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dvloznov/trading-analyzer/internal/analyzer"
	"github.com/dvloznov/trading-analyzer/internal/columns"
	"github.com/dvloznov/trading-analyzer/internal/config"
	"github.com/dvloznov/trading-analyzer/internal/domain"
	"github.com/dvloznov/trading-analyzer/internal/filter"
	"github.com/dvloznov/trading-analyzer/internal/loader"
	"github.com/dvloznov/trading-analyzer/internal/logger"
	"github.com/dvloznov/trading-analyzer/internal/narrator"
	"github.com/dvloznov/trading-analyzer/internal/portfolio"
	"github.com/dvloznov/trading-analyzer/internal/trace"
)

// FetchExportStep downloads the export when only a GCS URI is known.
type FetchExportStep struct {
	Storage StorageService
}

func (s *FetchExportStep) Execute(ctx context.Context, state *PipelineState) error {
	if len(state.Data) > 0 || state.GCSURI == "" {
		return nil
	}
	if s.Storage == nil {
		return fmt.Errorf("FetchExportStep: no storage configured for %s", state.GCSURI)
	}

	data, err := s.Storage.FetchFromGCS(ctx, state.GCSURI)
	if err != nil {
		return err
	}
	state.Data = data
	if state.Filename == "" {
		state.Filename = s.Storage.ExtractFilenameFromGCSURI(state.GCSURI)
	}
	return nil
}

// LoadStep parses the export into tables.
type LoadStep struct {
	Limits loader.Limits
}

func (s *LoadStep) Execute(ctx context.Context, state *PipelineState) error {
	wb, err := loader.Load(ctx, bytes.NewReader(state.Data), state.Filename, s.Limits)
	if err != nil {
		return err
	}
	state.Workbook = wb
	state.Tables = wb.Tables
	return nil
}

// SelectSheetsStep drops the sheets rejected by the sheet filter.
type SelectSheetsStep struct {
	Sheets *filter.Sheets
}

func (s *SelectSheetsStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Sheets == nil {
		return nil
	}
	kept, skipped := s.Sheets.Apply(state.Tables)
	state.Tables = kept
	state.SheetsSkipped = skipped

	if len(skipped) > 0 {
		log := logger.FromContext(ctx)
		log.Info().
			Strs("skipped", skipped).
			Int("kept", len(kept)).
			Msg("Sheets filtered")
	}
	return nil
}

// InferColumnsStep assigns column roles for every table.
type InferColumnsStep struct {
	Vocabulary config.VocabularyConfig
}

func (s *InferColumnsStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	state.Roles = make(map[string]domain.ColumnRoleMap, len(state.Tables))
	for _, t := range state.Tables {
		roles := columns.Infer(t, s.Vocabulary)
		state.Roles[t.Name] = roles
		log.Debug().
			Str("sheet", t.Name).
			Str("timestamp", roles.Timestamp).
			Str("amount", roles.Amount).
			Str("type", roles.Type).
			Str("asset", roles.Asset).
			Str("main_pnl", roles.MainPnL).
			Msg("Columns inferred")
	}
	return nil
}

// FilterTradingStep removes non-trading rows from every table.
type FilterTradingStep struct {
	Exclusions []string
}

func (s *FilterTradingStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Trading = make(map[string]*domain.Table, len(state.Tables))
	state.ExcludedRows = make(map[string]int, len(state.Tables))
	for _, t := range state.Tables {
		kept, excluded := filter.Trading(t, state.Roles[t.Name].Type, s.Exclusions)
		state.Trading[t.Name] = kept
		state.ExcludedRows[t.Name] = excluded
	}
	return nil
}

// AnalyzeSheetsStep computes per-sheet statistics in workbook order.
type AnalyzeSheetsStep struct {
	Options analyzer.Options
}

func (s *AnalyzeSheetsStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Sheets = make([]domain.SheetStatistics, 0, len(state.Tables))
	for _, t := range state.Tables {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("AnalyzeSheetsStep: %s: %w", t.Name, err)
		}

		sheetCtx, span := trace.StartSpan(ctx, "AnalyzeSheet", attribute.String("sheet", t.Name))
		stats := analyzer.Analyze(sheetCtx, state.Trading[t.Name], state.Roles[t.Name], s.Options)
		stats.ExcludedRows = state.ExcludedRows[t.Name]
		span.SetAttributes(
			attribute.Int("rows", stats.Rows),
			attribute.Bool("financial", stats.HasFinancialData()),
		)
		trace.End(span, nil)

		state.Sheets = append(state.Sheets, stats)
	}
	return nil
}

// AggregateStep builds the portfolio summary.
type AggregateStep struct {
	Thresholds config.ThresholdsConfig
}

func (s *AggregateStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Summary = portfolio.Aggregate(state.Sheets, s.Thresholds)
	if state.Summary.NoTradingData {
		log := logger.FromContext(ctx)
		log.Warn().Msg("No sheet contains trading data")
	}
	return nil
}

// CollectTransactionsStep builds the cross-sheet transaction log.
type CollectTransactionsStep struct{}

func (s *CollectTransactionsStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Transactions = CollectTransactions(state.Tables, state.Trading, state.Roles)
	return nil
}

// CollectTransactions returns every filtered row that has both a timestamp
// and an amount, oldest first. Rows with equal timestamps keep workbook
// order.
func CollectTransactions(tables []*domain.Table, trading map[string]*domain.Table, roles map[string]domain.ColumnRoleMap) []domain.Transaction {
	var out []domain.Transaction
	for _, t := range tables {
		r := roles[t.Name]
		if r.Timestamp == "" || r.MainPnL == "" {
			continue
		}
		for _, row := range trading[t.Name].Rows {
			tx := domain.NewTransaction(t.Name, row, r)
			if tx.Timestamp != nil && tx.Amount != nil {
				out = append(out, tx)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(*out[j].Timestamp)
	})
	return out
}

// NarrateStep asks the narrator for commentary. Failures are logged and
// leave the narrative empty.
type NarrateStep struct {
	Narrator narrator.Narrator
	Timeout  time.Duration
}

func (s *NarrateStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Narrator == nil || state.Summary.NoTradingData {
		return nil
	}

	nctx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		nctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	text, err := s.Narrator.Narrate(nctx, state.Summary)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Narration failed")
		return nil
	}
	state.Narrative = text
	return nil
}
