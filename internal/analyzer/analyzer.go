// Package analyzer computes the per-sheet statistics of a trading export.
package analyzer

import (
	"context"
	"strconv"

	"github.com/dvloznov/trading-analyzer/internal/columns"
	"github.com/dvloznov/trading-analyzer/internal/config"
	"github.com/dvloznov/trading-analyzer/internal/domain"
	"github.com/dvloznov/trading-analyzer/internal/filter"
	"github.com/dvloznov/trading-analyzer/internal/logger"
	"github.com/rs/zerolog"
)

// Options configures Analyze.
type Options struct {
	Vocabulary config.VocabularyConfig
}

// Analyze computes every statistic it can for table. Blocks that cannot be
// computed are left nil and recorded in Omissions. It never fails and
// returns the same result for the same input.
func Analyze(ctx context.Context, table *domain.Table, roles domain.ColumnRoleMap, opts Options) domain.SheetStatistics {
	log := logger.FromContext(ctx).With().Str("sheet", table.Name).Logger()

	stats := domain.SheetStatistics{
		Sheet:   table.Name,
		Rows:    table.Len(),
		Columns: len(table.Columns),
		Roles:   roles,
	}
	omit := func(field, reason string) {
		stats.Omissions = append(stats.Omissions, domain.Omission{Field: field, Reason: reason})
		log.Debug().Str("field", field).Str("reason", reason).Msg("Statistic omitted")
	}

	analyzeTimestamps(&stats, table, roles.Timestamp, log, omit)

	if roles.MainPnL == "" {
		omit("financial", "no PnL column")
	} else if values := table.Numbers(roles.MainPnL); len(values) == 0 {
		omit("financial", "PnL column has no numeric values")
	} else {
		fs, omitted := analyzeFinancial(roles.MainPnL, values)
		stats.Financial = fs
		for _, o := range omitted {
			omit(o.Field, o.Reason)
		}
		stats.Performance = performanceFor(table, roles, values, opts.Vocabulary.Trading, omit)
	}

	if roles.Type == "" {
		omit("transaction_types", "no type column")
	} else if stats.TransactionTypes = analyzeTypes(table, roles.Type); stats.TransactionTypes == nil {
		omit("transaction_types", "type column is empty")
	}

	if roles.Asset == "" {
		omit("assets", "no asset column")
	} else if stats.Assets = analyzeAssets(table, roles.Asset); stats.Assets == nil {
		omit("assets", "asset column is empty")
	}

	stats.AmountColumns = amountColumnStats(table, opts.Vocabulary)

	log.Debug().
		Int("rows", stats.Rows).
		Int("omissions", len(stats.Omissions)).
		Bool("financial", stats.HasFinancialData()).
		Msg("Sheet analysed")

	return stats
}

func analyzeTimestamps(stats *domain.SheetStatistics, table *domain.Table, column string, log zerolog.Logger, omit func(string, string)) {
	if column == "" {
		omit("temporal", "no timestamp column")
		return
	}
	timestamps, bad, ok := ParseTimestamps(table, column)
	if !ok {
		log.Warn().Str("column", column).Str("value", bad).Msg("Unparseable timestamp, temporal statistics skipped")
		stats.Omissions = append(stats.Omissions, domain.Omission{
			Field:  "temporal",
			Reason: "unparseable timestamp " + strconv.Quote(bad),
		})
		return
	}
	if len(timestamps) == 0 {
		omit("temporal", "timestamp column is empty")
		return
	}
	stats.Temporal = analyzeTemporal(column, timestamps, table.Len())
}

// performanceFor prefers the trading subset of the table when a type
// column is present and the subset holds PnL values.
func performanceFor(table *domain.Table, roles domain.ColumnRoleMap, values []float64, trading []string, omit func(string, string)) *domain.PerformanceStats {
	subset := filter.TradingSubset(table, roles.Type, trading)
	if subset == nil {
		return Performance(values, domain.ScopeSheet)
	}

	subsetValues := subset.Numbers(roles.MainPnL)
	if len(subsetValues) == 0 {
		omit("trading_subset", "no trading rows with PnL values")
		return Performance(values, domain.ScopeSheet)
	}

	ps := Performance(subsetValues, domain.ScopeTradingSubset)
	ps.TotalTrades = subset.Len()
	ps.TradingRows = subset.Len()
	ps.TradingPercentage = ptr(float64(subset.Len()) / float64(table.Len()) * 100)
	return ps
}

func amountColumnStats(table *domain.Table, vocab config.VocabularyConfig) []domain.ColumnStats {
	var out []domain.ColumnStats
	for _, col := range columns.AmountColumns(table, vocab) {
		if !table.IsNumeric(col) {
			continue
		}
		values := table.Numbers(col)
		cs := domain.ColumnStats{Column: col, Count: len(values)}
		cs.Total, cs.Mean, cs.Median, cs.Min, cs.Max = summarize(values)
		if std, ok := sampleStd(values); ok {
			cs.Std = ptr(std)
		}
		out = append(out, cs)
	}
	return out
}
