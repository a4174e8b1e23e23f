package analyzer

import (
	"math"

	"github.com/dvloznov/trading-analyzer/internal/domain"
)

// analyzeFinancial summarises the PnL values of one column. values must
// not be empty. The second result lists fields that were not computable.
func analyzeFinancial(column string, values []float64) (*domain.FinancialStats, []domain.Omission) {
	var omissions []domain.Omission

	fs := &domain.FinancialStats{
		Column: column,
		Values: values,
	}
	fs.PnLTotal, fs.PnLMean, fs.PnLMedian, fs.PnLMin, fs.PnLMax = summarize(values)

	if std, ok := sampleStd(values); ok {
		fs.PnLStd = ptr(std)
	} else {
		omissions = append(omissions, domain.Omission{Field: "pnl_std", Reason: "fewer than two values"})
	}

	var profits, losses []float64
	for _, v := range values {
		switch {
		case v > 0:
			profits = append(profits, v)
		case v < 0:
			losses = append(losses, v)
		default:
			fs.NeutralTrades++
		}
	}
	fs.ProfitableTrades = len(profits)
	fs.LosingTrades = len(losses)

	for _, p := range profits {
		fs.TotalProfit += p
	}
	for _, l := range losses {
		fs.TotalLoss += -l
	}
	fs.GrossProfit = fs.TotalProfit
	fs.GrossLoss = fs.TotalLoss

	if len(profits) > 0 {
		fs.AvgProfit = ptr(fs.TotalProfit / float64(len(profits)))
		fs.MedianProfit = ptr(median(profits))
		fs.LargestWin = ptr(maxOf(profits))
	} else {
		omissions = append(omissions, domain.Omission{Field: "avg_profit", Reason: "no profitable values"})
	}

	if len(losses) > 0 {
		fs.AvgLoss = ptr(fs.TotalLoss / float64(len(losses)))
		fs.MedianLoss = ptr(math.Abs(median(losses)))
		fs.LargestLoss = ptr(math.Abs(minOf(losses)))
	} else {
		omissions = append(omissions, domain.Omission{Field: "avg_loss", Reason: "no losing values"})
	}

	fs.MaxWinningStreak, fs.MaxLosingStreak = Streaks(values)
	fs.MaxDrawdown, fs.CurrentDrawdown = Drawdown(values)

	return fs, omissions
}

// Streaks returns the longest runs of strictly positive and strictly
// negative values. A zero ends both runs.
func Streaks(values []float64) (winning, losing int) {
	curWin, curLoss := 0, 0
	for _, v := range values {
		switch {
		case v > 0:
			curWin++
			curLoss = 0
		case v < 0:
			curLoss++
			curWin = 0
		default:
			curWin, curLoss = 0, 0
		}
		winning = max(winning, curWin)
		losing = max(losing, curLoss)
	}
	return winning, losing
}

// Drawdown walks the cumulative sum of values and returns the deepest
// drop below the running peak and the drop at the last value. Both are
// zero or negative.
func Drawdown(values []float64) (maxDrawdown, current float64) {
	cum, peak := 0.0, math.Inf(-1)
	for _, v := range values {
		cum += v
		peak = math.Max(peak, cum)
		current = cum - peak
		maxDrawdown = math.Min(maxDrawdown, current)
	}
	return maxDrawdown, current
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		m = math.Max(m, v)
	}
	return m
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		m = math.Min(m, v)
	}
	return m
}
