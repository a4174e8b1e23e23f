package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dvloznov/trading-analyzer/internal/analyzer"
	"github.com/dvloznov/trading-analyzer/internal/columns"
	"github.com/dvloznov/trading-analyzer/internal/config"
	"github.com/dvloznov/trading-analyzer/internal/domain"
	"github.com/dvloznov/trading-analyzer/internal/filter"
	"github.com/dvloznov/trading-analyzer/internal/loader"
	"github.com/dvloznov/trading-analyzer/internal/logger"
	"github.com/dvloznov/trading-analyzer/internal/narrator"
	"github.com/dvloznov/trading-analyzer/internal/trace"
)

// Source is one export to analyse: either its bytes and file name, or a
// GCS URI.
type Source struct {
	Filename string
	Data     []byte
	GCSURI   string
}

// Service runs analyses with a fixed configuration.
type Service struct {
	cfg      *config.Config
	storage  StorageService
	narrator narrator.Narrator
	sheets   *filter.Sheets
}

// Option configures a Service.
type Option func(*Service)

// WithStorage sets the storage used for GCS sources.
func WithStorage(s StorageService) Option {
	return func(svc *Service) { svc.storage = s }
}

// WithNarrator enables commentary.
func WithNarrator(n narrator.Narrator) Option {
	return func(svc *Service) { svc.narrator = n }
}

// WithSheets replaces the sheet filter built from configuration.
func WithSheets(f *filter.Sheets) Option {
	return func(svc *Service) { svc.sheets = f }
}

// NewService creates a Service. The sheet filter comes from cfg.Sheets
// unless WithSheets is given.
func NewService(cfg *config.Config, opts ...Option) (*Service, error) {
	svc := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.sheets == nil {
		f, err := filter.FromConfig(cfg.Sheets)
		if err != nil {
			return nil, fmt.Errorf("NewService: sheet filter: %w", err)
		}
		svc.sheets = f
	}
	return svc, nil
}

func (s *Service) limits() loader.Limits {
	return loader.Limits{MaxBytes: s.cfg.Limits.MaxBytes(), MaxRows: s.cfg.Limits.MaxRows}
}

// NewAnalysisPipeline creates the standard analysis pipeline.
func (s *Service) NewAnalysisPipeline() *Pipeline {
	return NewPipeline(
		&FetchExportStep{Storage: s.storage},
		&LoadStep{Limits: s.limits()},
		&SelectSheetsStep{Sheets: s.sheets},
		&InferColumnsStep{Vocabulary: s.cfg.Vocabulary},
		&FilterTradingStep{Exclusions: s.cfg.Vocabulary.Exclusions},
		&AnalyzeSheetsStep{Options: analyzer.Options{Vocabulary: s.cfg.Vocabulary}},
		&AggregateStep{Thresholds: s.cfg.Thresholds},
		&CollectTransactionsStep{},
		&NarrateStep{Narrator: s.narrator, Timeout: s.cfg.Narrator.GetTimeout()},
	)
}

// Analyze runs the full pipeline on src within the configured time budget.
// Load failures come back as *loader.LoadError; running out of time gives
// ErrTimeout.
func (s *Service) Analyze(ctx context.Context, src Source) (*domain.AnalysisResult, error) {
	start := time.Now()
	state := &PipelineState{
		AnalysisID: uuid.New().String(),
		Filename:   src.Filename,
		GCSURI:     src.GCSURI,
		Data:       src.Data,
	}

	log := logger.FromContext(ctx).With().
		Str("analysis_id", state.AnalysisID).
		Str("file", src.Filename).
		Logger()
	ctx = logger.WithContext(ctx, log)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Limits.GetTimeout())
	defer cancel()

	ctx, span := trace.StartSpan(ctx, "Analyze", attribute.String("analysis_id", state.AnalysisID))
	err := s.NewAnalysisPipeline().Execute(ctx, state)
	trace.End(span, err)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		log.Error().Err(err).Msg("Analysis failed")
		return nil, fmt.Errorf("Analyze: %w", err)
	}

	result := buildResult(state)
	log.Info().
		Int("sheets", len(result.Sheets)).
		Int("skipped", len(result.SheetsSkipped)).
		Int("excluded_rows", result.ExcludedRows).
		Float64("total_pnl", result.TradingPerformance.OverallMetrics.TotalPnLAllAccounts).
		Bool("no_trading_data", result.NoTradingData).
		Dur("elapsed", time.Since(start)).
		Msg("Analysis completed")
	return result, nil
}

func buildResult(state *PipelineState) *domain.AnalysisResult {
	result := &domain.AnalysisResult{
		AnalysisID:       state.AnalysisID,
		CreatedAt:        time.Now().UTC(),
		Metadata:         state.Workbook.Metadata,
		Sheets:           state.Sheets,
		FinancialSummary: make(map[string]domain.SheetStatistics, len(state.Sheets)),
		PortfolioSummary: state.Summary,
		SheetsSkipped:    state.SheetsSkipped,
		Narrative:        state.Narrative,
		Transactions:     state.Transactions,
	}
	for _, sheet := range state.Sheets {
		result.FinancialSummary[sheet.Sheet] = sheet
		result.ExcludedRows += sheet.ExcludedRows
	}
	return result
}

// SheetInspection is what the inspect command reports for one sheet.
type SheetInspection struct {
	Name       string                 `json:"name"`
	Rows       int                    `json:"rows"`
	Columns    []string               `json:"columns"`
	Roles      domain.ColumnRoleMap   `json:"roles"`
	Amounts    []string               `json:"amount_columns"`
	Validation loader.SheetValidation `json:"validation"`
	Skipped    bool                   `json:"skipped"`
}

// Inspection describes a file without analysing it.
type Inspection struct {
	Metadata domain.FileMetadata  `json:"metadata"`
	Sheets   []SheetInspection    `json:"sheets"`
	Filter   filter.SheetsSummary `json:"filter"`
}

// Inspect loads src and reports column roles and validation per sheet.
func (s *Service) Inspect(ctx context.Context, src Source) (*Inspection, error) {
	state := &PipelineState{Filename: src.Filename, GCSURI: src.GCSURI, Data: src.Data}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Limits.GetTimeout())
	defer cancel()

	p := NewPipeline(
		&FetchExportStep{Storage: s.storage},
		&LoadStep{Limits: s.limits()},
	)
	if err := p.Execute(ctx, state); err != nil {
		return nil, fmt.Errorf("Inspect: %w", err)
	}

	vocab := s.cfg.Vocabulary
	validation := loader.Validate(state.Workbook, vocab.Timestamp, vocab.Amount, s.cfg.Thresholds.MinRows)

	out := &Inspection{Metadata: state.Workbook.Metadata, Filter: s.sheets.Summary()}
	for _, t := range state.Workbook.Tables {
		out.Sheets = append(out.Sheets, SheetInspection{
			Name:       t.Name,
			Rows:       t.Len(),
			Columns:    t.Columns,
			Roles:      columns.Infer(t, vocab),
			Amounts:    columns.AmountColumns(t, vocab),
			Validation: validation[t.Name],
			Skipped:    !s.sheets.Accept(t.Name),
		})
	}
	return out, nil
}
