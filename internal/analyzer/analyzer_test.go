package analyzer

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/trading-analyzer/internal/config"
	"github.com/dvloznov/trading-analyzer/internal/domain"
	"github.com/dvloznov/trading-analyzer/internal/logger"
)

func table(name string, columns []string, rows ...[]string) *domain.Table {
	t := domain.NewTable(name, columns)
	for _, r := range rows {
		row := make(domain.Row, len(columns))
		for i, c := range columns {
			if i < len(r) {
				row[c] = domain.NewValue(r[i])
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func testContext() context.Context {
	return logger.WithContext(context.Background(), logger.Nop())
}

func opts() Options {
	return Options{Vocabulary: config.DefaultVocabulary()}
}

func futuresTable() *domain.Table {
	return table("Futures",
		[]string{"Date", "Side", "Realized_PnL", "Symbol"},
		[]string{"2024-01-01 09:15:00", "BUY", "10", "BTCUSDT"},
		[]string{"2024-01-02 10:30:00", "SELL", "20", "BTCUSDT"},
		[]string{"2024-01-03 10:45:00", "BUY", "-5", "ETHUSDT"},
		[]string{"2024-01-04 14:00:00", "SELL", "30", "BTCUSDT"},
		[]string{"2024-01-05 16:20:00", "BUY", "-15", "SOLUSDT"},
	)
}

func futuresRoles() domain.ColumnRoleMap {
	return domain.ColumnRoleMap{
		Timestamp: "Date", Amount: "Realized_PnL", Type: "Side", Asset: "Symbol", MainPnL: "Realized_PnL",
	}
}

func TestAnalyze_FuturesExport(t *testing.T) {
	stats := Analyze(testContext(), futuresTable(), futuresRoles(), opts())

	require.NotNil(t, stats.Financial)
	require.NotNil(t, stats.Performance)

	fs := stats.Financial
	assert.Equal(t, "Realized_PnL", fs.Column)
	assert.Equal(t, []float64{10, 20, -5, 30, -15}, fs.Values)
	assert.InDelta(t, 40, fs.PnLTotal, 1e-9)
	assert.InDelta(t, 60, fs.TotalProfit, 1e-9)
	assert.InDelta(t, 20, fs.TotalLoss, 1e-9)
	assert.InDelta(t, fs.PnLTotal, fs.TotalProfit-fs.TotalLoss, 1e-9)
	assert.Equal(t, 3, fs.ProfitableTrades)
	assert.Equal(t, 2, fs.LosingTrades)
	require.NotNil(t, fs.LargestLoss)
	assert.InDelta(t, 15, *fs.LargestLoss, 1e-9)

	ps := stats.Performance
	assert.Equal(t, domain.ScopeTradingSubset, ps.Scope)
	assert.Equal(t, 5, ps.TotalTrades)
	assert.InDelta(t, 60, ps.WinRate, 1e-9)
	assert.InDelta(t, 3, float64(ps.ProfitFactor), 1e-9)
	require.NotNil(t, ps.Expectancy)
	assert.InDelta(t, 8, *ps.Expectancy, 1e-9)
	require.NotNil(t, ps.TradingPercentage)
	assert.InDelta(t, 100, *ps.TradingPercentage, 1e-9)

	require.NotNil(t, stats.Temporal)
	assert.Equal(t, 4, stats.Temporal.PeriodDays)
	assert.Equal(t, "10:00", stats.Temporal.PeakTradingHour)
	assert.Equal(t, "2024-01", stats.Temporal.MostActiveMonth)
	assert.Empty(t, stats.Temporal.MonthlyTrend)

	require.NotNil(t, stats.Assets)
	assert.Equal(t, "BTCUSDT", stats.Assets.MostTradedAsset)
	assert.Equal(t, 3, stats.Assets.UniqueAssets)
	assert.InDelta(t, 60, stats.Assets.AssetConcentration, 1e-9)
	assert.InDelta(t, 0.44, stats.Assets.HerfindahlIndex, 1e-9)
	assert.True(t, stats.Assets.IsDiversified)

	require.NotNil(t, stats.TransactionTypes)
	assert.Equal(t, 2, stats.TransactionTypes.UniqueTypes)
	assert.Equal(t, 3, stats.TransactionTypes.Counts.Count("BUY"))
}

func TestAnalyze_Idempotent(t *testing.T) {
	tbl := futuresTable()
	first := Analyze(testContext(), tbl, futuresRoles(), opts())
	second := Analyze(testContext(), tbl, futuresRoles(), opts())
	assert.Equal(t, first, second)
}

func TestAnalyze_RatesSumToHundred(t *testing.T) {
	tbl := table("Spot", []string{"PnL"},
		[]string{"1"}, []string{"0"}, []string{"-3"}, []string{"2"}, []string{"0"}, []string{"-1"}, []string{"4"},
	)
	stats := Analyze(testContext(), tbl, domain.ColumnRoleMap{MainPnL: "PnL", Amount: "PnL"}, opts())

	require.NotNil(t, stats.Performance)
	ps := stats.Performance
	assert.Equal(t, domain.ScopeSheet, ps.Scope)
	assert.Equal(t, 7, ps.TotalTrades)
	assert.InDelta(t, 100, ps.WinRate+ps.LossRate+ps.NeutralRate, 1e-9)
	assert.Equal(t, 2, ps.NeutralTrades)
}

func TestAnalyze_UnparseableTimestampOmitsTemporal(t *testing.T) {
	tbl := table("Futures", []string{"Date", "PnL"},
		[]string{"2024-01-01", "5"},
		[]string{"not a date", "-2"},
	)
	stats := Analyze(testContext(), tbl, domain.ColumnRoleMap{Timestamp: "Date", MainPnL: "PnL"}, opts())

	assert.Nil(t, stats.Temporal)
	assert.True(t, stats.Omitted("temporal"))
	require.NotNil(t, stats.Financial)
	assert.InDelta(t, 3, stats.Financial.PnLTotal, 1e-9)
}

func TestAnalyze_NoPnLColumn(t *testing.T) {
	tbl := table("Notes", []string{"Comment"}, []string{"hello"})
	stats := Analyze(testContext(), tbl, domain.ColumnRoleMap{}, opts())

	assert.False(t, stats.HasFinancialData())
	assert.Nil(t, stats.Performance)
	assert.True(t, stats.Omitted("financial"))
	assert.True(t, stats.Omitted("temporal"))
	assert.True(t, stats.Omitted("assets"))
}

func TestAnalyze_EmptyTradingSubsetFallsBackToSheet(t *testing.T) {
	tbl := table("Funding", []string{"Type", "PnL"},
		[]string{"funding", "1"},
		[]string{"interest", "-1"},
	)
	stats := Analyze(testContext(), tbl, domain.ColumnRoleMap{Type: "Type", MainPnL: "PnL"}, opts())

	require.NotNil(t, stats.Performance)
	assert.Equal(t, domain.ScopeSheet, stats.Performance.Scope)
	assert.True(t, stats.Omitted("trading_subset"))
}

func TestAnalyze_SingleValueHasNoStd(t *testing.T) {
	tbl := table("One", []string{"PnL"}, []string{"7"})
	stats := Analyze(testContext(), tbl, domain.ColumnRoleMap{MainPnL: "PnL"}, opts())

	require.NotNil(t, stats.Financial)
	assert.Nil(t, stats.Financial.PnLStd)
	assert.True(t, stats.Omitted("pnl_std"))
	assert.Nil(t, stats.Financial.AvgLoss)
	assert.True(t, stats.Performance.ProfitFactor.Inf())
}

func TestStreaks(t *testing.T) {
	tests := []struct {
		name          string
		values        []float64
		winning, lost int
	}{
		{"mixed", []float64{5, 3, -2, -1, -4, 7}, 2, 3},
		{"zero resets both", []float64{1, 1, 0, 1, -1, 0, -1}, 2, 1},
		{"empty", nil, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, l := Streaks(tt.values)
			assert.Equal(t, tt.winning, w)
			assert.Equal(t, tt.lost, l)
		})
	}
}

func TestDrawdown(t *testing.T) {
	maxDD, current := Drawdown([]float64{5, 3, -5, 3, -4})
	assert.InDelta(t, -6, maxDD, 1e-9)
	assert.InDelta(t, -6, current, 1e-9)

	maxDD, current = Drawdown([]float64{1, 2, 3})
	assert.Zero(t, maxDD)
	assert.Zero(t, current)

	// An opening loss counts from the first cumulative value.
	maxDD, _ = Drawdown([]float64{-2, -3})
	assert.InDelta(t, -3, maxDD, 1e-9)
}

func TestProfitFactor(t *testing.T) {
	assert.True(t, ProfitFactor(10, 0).Inf())
	assert.Zero(t, float64(ProfitFactor(0, 0)))
	assert.InDelta(t, 2.5, float64(ProfitFactor(5, 2)), 1e-9)
}

func TestMonthlyTrend(t *testing.T) {
	tbl := table("Spot", []string{"Date"},
		[]string{"2024-01-10"},
		[]string{"2024-02-10"},
		[]string{"2024-02-11"},
		[]string{"2024-03-10"},
		[]string{"2024-03-11"},
		[]string{"2024-03-12"},
	)
	stats := Analyze(testContext(), tbl, domain.ColumnRoleMap{Timestamp: "Date"}, opts())

	require.NotNil(t, stats.Temporal)
	assert.Equal(t, "increasing", stats.Temporal.MonthlyTrend)
	require.NotNil(t, stats.Temporal.TrendStrength)
	assert.InDelta(t, 1, *stats.Temporal.TrendStrength, 1e-9)
	assert.Equal(t, "2024-03", stats.Temporal.MostActiveMonth)

	tbl = table("Spot", []string{"Date"},
		[]string{"2024-01-10"},
		[]string{"2024-01-11"},
		[]string{"2024-01-12"},
		[]string{"2024-02-10"},
		[]string{"2024-02-11"},
		[]string{"2024-03-10"},
	)
	stats = Analyze(testContext(), tbl, domain.ColumnRoleMap{Timestamp: "Date"}, opts())

	require.NotNil(t, stats.Temporal)
	assert.Equal(t, "decreasing", stats.Temporal.MonthlyTrend)
	require.NotNil(t, stats.Temporal.TrendStrength)
	assert.InDelta(t, 1, *stats.Temporal.TrendStrength, 1e-9)
}

func TestWeekdayHistogram_TieGoesToEarlierDay(t *testing.T) {
	tbl := table("Spot", []string{"Date"},
		[]string{"2024-01-03"}, // Wednesday
		[]string{"2024-01-02"}, // Tuesday
	)
	ts, _, ok := ParseTimestamps(tbl, "Date")
	require.True(t, ok)

	mode, _ := WeekdayHistogram(ts).Mode()
	assert.Equal(t, "Tuesday", mode)
}

func TestAmountColumnStats(t *testing.T) {
	tbl := table("Spot", []string{"Amount", "Fee Amount", "Note"},
		[]string{"10", "x", "a"},
		[]string{"20", "0.1", "b"},
	)
	stats := Analyze(testContext(), tbl, domain.ColumnRoleMap{}, opts())

	require.Len(t, stats.AmountColumns, 1)
	cs := stats.AmountColumns[0]
	assert.Equal(t, "Amount", cs.Column)
	assert.InDelta(t, 15, cs.Mean, 1e-9)
	require.NotNil(t, cs.Std)
	assert.InDelta(t, math.Sqrt(50), *cs.Std, 1e-9)
}
