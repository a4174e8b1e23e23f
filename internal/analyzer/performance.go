package analyzer

import (
	"math"

	"github.com/dvloznov/trading-analyzer/internal/domain"
)

// Performance computes win/loss ratios over values. values must not be
// empty.
func Performance(values []float64, scope string) *domain.PerformanceStats {
	ps := &domain.PerformanceStats{
		Scope:       scope,
		TotalTrades: len(values),
	}

	var grossProfit, grossLoss float64
	for _, v := range values {
		switch {
		case v > 0:
			ps.WinningTrades++
			grossProfit += v
		case v < 0:
			ps.LosingTrades++
			grossLoss += -v
		default:
			ps.NeutralTrades++
		}
	}

	n := float64(len(values))
	ps.WinRate = float64(ps.WinningTrades) / n * 100
	ps.LossRate = float64(ps.LosingTrades) / n * 100
	ps.NeutralRate = float64(ps.NeutralTrades) / n * 100

	ps.ProfitFactor = ProfitFactor(grossProfit, grossLoss)

	avgWin := 0.0
	if ps.WinningTrades > 0 {
		avgWin = grossProfit / float64(ps.WinningTrades)
		ps.AvgWin = ptr(avgWin)
	}
	if ps.LosingTrades > 0 {
		avgLoss := grossLoss / float64(ps.LosingTrades)
		ps.AvgLoss = ptr(avgLoss)
		if avgLoss > 0 {
			ps.Expectancy = ptr(ps.WinRate/100*avgWin - ps.LossRate/100*avgLoss)
		}
	}

	return ps
}

// ProfitFactor is grossProfit / grossLoss, +Inf when only profits exist
// and 0 when both are zero.
func ProfitFactor(grossProfit, grossLoss float64) domain.Factor {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return domain.Factor(math.Inf(1))
		}
		return 0
	}
	return domain.Factor(grossProfit / grossLoss)
}
