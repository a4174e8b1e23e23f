package portfolio

import (
	"gonum.org/v1/gonum/stat"

	"github.com/dvloznov/trading-analyzer/internal/domain"
)

func riskMetrics(trading []domain.SheetStatistics) domain.RiskMetrics {
	rm := domain.RiskMetrics{IndividualRisks: map[string]domain.RiskProfile{}}

	var all []float64
	for _, s := range trading {
		values := s.Financial.Values
		if len(values) < 2 {
			continue
		}
		rm.IndividualRisks[s.Sheet] = Risk(values)
		all = append(all, values...)
	}

	if len(all) > 0 {
		p := Risk(all)
		rm.PortfolioRisk = &domain.PortfolioRisk{
			TotalPortfolioVolatility: p.Volatility,
			PortfolioSharpeRatio:     p.SharpeRatio,
			PortfolioRiskLevel:       p.RiskLevel,
		}
	}
	return rm
}

// Risk estimates volatility as the population standard deviation of values
// and a Sharpe-like ratio as mean over volatility, zero when flat.
func Risk(values []float64) domain.RiskProfile {
	mean, std := stat.PopMeanStdDev(values, nil)
	sharpe := 0.0
	if std > 0 {
		sharpe = mean / std
	}
	return domain.RiskProfile{
		Volatility:  std,
		SharpeRatio: sharpe,
		RiskLevel:   RiskLevel(sharpe),
	}
}

// RiskLevel buckets a Sharpe-like ratio.
func RiskLevel(sharpe float64) domain.Level {
	switch {
	case sharpe > 1:
		return domain.LevelLow
	case sharpe > 0.5:
		return domain.LevelMedium
	default:
		return domain.LevelHigh
	}
}
