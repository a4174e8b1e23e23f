// Package portfolio combines per-sheet statistics into workbook-wide
// totals, risk and inactivity estimates, and advisory text.
package portfolio

import (
	"sort"

	"github.com/dvloznov/trading-analyzer/internal/config"
	"github.com/dvloznov/trading-analyzer/internal/domain"
)

// Aggregate builds the portfolio summary. sheets must be in workbook order;
// ties in the ranking keep that order. Sheets without financial data only
// contribute to the temporal and inactivity sections and to TotalAccounts.
func Aggregate(sheets []domain.SheetStatistics, thresholds config.ThresholdsConfig) domain.PortfolioSummary {
	summary := domain.PortfolioSummary{
		TradingPerformance: domain.TradingPerformance{
			OverallMetrics: domain.OverallMetrics{
				AccountPnLs:     map[string]float64{},
				AccountWinRates: map[string]float64{},
				Ranking:         []string{},
			},
			AccountComparison: map[string]domain.AccountComparison{},
		},
		InactivityPatterns: domain.InactivityPatterns{
			AccountInactivity:  map[string]domain.AccountInactivity{},
			SeverityAssessment: domain.LevelLow,
		},
		RiskMetrics: domain.RiskMetrics{
			IndividualRisks: map[string]domain.RiskProfile{},
		},
		PredictiveInsights: domain.PredictiveInsights{
			Recommendations: []string{},
		},
		SmartAlerts: []string{},
	}

	summary.TemporalAnalysis = globalTemporal(sheets)
	summary.InactivityPatterns = inactivityPatterns(sheets, thresholds.InactivityGapDays)
	summary.TradingPerformance.OverallMetrics.TotalAccounts = len(sheets)

	var trading []domain.SheetStatistics
	for _, s := range sheets {
		if s.HasFinancialData() {
			trading = append(trading, s)
		}
	}
	if len(trading) == 0 {
		summary.NoTradingData = true
		return summary
	}

	summary.TradingPerformance.OverallMetrics = overallMetrics(trading)
	summary.TradingPerformance.OverallMetrics.TotalAccounts = len(sheets)
	for _, s := range trading {
		summary.TradingPerformance.AccountComparison[s.Sheet] = compare(s)
	}

	summary.RiskMetrics = riskMetrics(trading)
	summary.PredictiveInsights = insights(trading, summary.TradingPerformance.OverallMetrics, thresholds)
	summary.SmartAlerts = alerts(summary, sheets, thresholds)

	return summary
}

func overallMetrics(trading []domain.SheetStatistics) domain.OverallMetrics {
	m := domain.OverallMetrics{
		AccountPnLs:     make(map[string]float64, len(trading)),
		AccountWinRates: make(map[string]float64, len(trading)),
	}

	var winRateSum float64
	var wins, decided int
	for _, s := range trading {
		pnl := s.PnLTotal()
		m.TotalPnLAllAccounts += pnl
		m.TotalTradesAllAccounts += s.TotalTrades()
		m.AccountPnLs[s.Sheet] = pnl
		m.AccountWinRates[s.Sheet] = s.WinRate()
		winRateSum += s.WinRate()

		switch {
		case pnl > 0:
			m.ProfitableAccounts++
		case pnl < 0:
			m.LosingAccounts++
		}

		if p := s.Performance; p != nil {
			wins += p.WinningTrades
			decided += p.WinningTrades + p.LosingTrades + p.NeutralTrades
		}
	}

	m.GlobalWinRate = winRateSum / float64(len(trading))
	if decided > 0 {
		m.WeightedGlobalWinRate = float64(wins) / float64(decided) * 100
	}

	m.Ranking = Rank(trading)
	m.BestPerformingAccount = m.Ranking[0]
	m.WorstPerformingAccount = m.Ranking[len(m.Ranking)-1]
	return m
}

// Rank orders sheet names by PnL total, best first.
func Rank(sheets []domain.SheetStatistics) []string {
	ordered := append([]domain.SheetStatistics(nil), sheets...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PnLTotal() > ordered[j].PnLTotal()
	})
	names := make([]string, len(ordered))
	for i, s := range ordered {
		names[i] = s.Sheet
	}
	return names
}

func compare(s domain.SheetStatistics) domain.AccountComparison {
	fs := s.Financial
	c := domain.AccountComparison{
		PnL:         fs.PnLTotal,
		WinRate:     s.WinRate(),
		TotalTrades: s.TotalTrades(),
		MaxDrawdown: fs.MaxDrawdown,
		TotalProfit: fs.TotalProfit,
		TotalLoss:   fs.TotalLoss,
		AvgProfit:   fs.AvgProfit,
		AvgLoss:     fs.AvgLoss,
	}
	if p := s.Performance; p != nil {
		c.ProfitFactor = p.ProfitFactor
		c.Expectancy = p.Expectancy
	}
	return c
}
