package jobs

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/trading-analyzer/internal/domain"
	"github.com/dvloznov/trading-analyzer/internal/loader"
	"github.com/dvloznov/trading-analyzer/internal/logger"
	"github.com/dvloznov/trading-analyzer/internal/pipeline"
)

// Analyzer runs one analysis.
type Analyzer interface {
	Analyze(ctx context.Context, src pipeline.Source) (*domain.AnalysisResult, error)
}

// NewAnalyzeHandler returns a JobHandler that analyses the export of each
// AnalyzeExportJob and attaches the headline to the job. Unreadable or
// missing exports fail permanently.
func NewAnalyzeHandler(a Analyzer) JobHandler {
	return func(ctx context.Context, job Job) error {
		j, ok := job.(*AnalyzeExportJob)
		if !ok {
			return Permanent(fmt.Errorf("unexpected job type: %T", job))
		}

		log := logger.FromContext(ctx).With().
			Str("job_id", j.JobID).
			Str("gcs_uri", j.GCSURI).
			Logger()
		log.Info().Int("attempt", j.RetryCount+1).Msg("Processing analysis job")

		result, err := a.Analyze(logger.WithContext(ctx, log), pipeline.Source{GCSURI: j.GCSURI})
		if err != nil {
			var le *loader.LoadError
			if errors.As(err, &le) || errors.Is(err, storage.ErrObjectNotExist) {
				return Permanent(err)
			}
			return err
		}

		j.Result = NewJobResult(result)
		log.Info().
			Str("analysis_id", result.AnalysisID).
			Float64("total_pnl", j.Result.TotalPnL).
			Msg("Analysis job completed")
		return nil
	}
}

// NewJobResult condenses an analysis into a job headline.
func NewJobResult(r *domain.AnalysisResult) *JobResult {
	m := r.TradingPerformance.OverallMetrics
	return &JobResult{
		AnalysisID:    r.AnalysisID,
		FileName:      r.Metadata.FileName,
		TotalPnL:      m.TotalPnLAllAccounts,
		TotalTrades:   m.TotalTradesAllAccounts,
		GlobalWinRate: m.GlobalWinRate,
		BestAccount:   m.BestPerformingAccount,
		WorstAccount:  m.WorstPerformingAccount,
		NoTradingData: r.NoTradingData,
		Alerts:        r.SmartAlerts,
	}
}
