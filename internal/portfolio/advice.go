package portfolio

import (
	"fmt"
	"math"

	"github.com/dvloznov/trading-analyzer/internal/config"
	"github.com/dvloznov/trading-analyzer/internal/domain"
)

// Alert markers.
const (
	MarkCritical = "[CRITICAL]"
	MarkWarning  = "[WARNING]"
	MarkPositive = "[POSITIVE]"
	MarkTime     = "[TIME]"
)

// alerts walks sheets so that per-account warnings keep workbook order.
func alerts(summary domain.PortfolioSummary, sheets []domain.SheetStatistics, th config.ThresholdsConfig) []string {
	m := summary.TradingPerformance.OverallMetrics
	out := []string{}

	switch {
	case m.GlobalWinRate > th.WinRate.Excellent:
		out = append(out, fmt.Sprintf("%s Global win rate %.1f%% is above %.0f%%", MarkPositive, m.GlobalWinRate, th.WinRate.Excellent))
	case m.GlobalWinRate < th.WinRate.Poor:
		out = append(out, fmt.Sprintf("%s Global win rate %.1f%% is below %.0f%%", MarkWarning, m.GlobalWinRate, th.WinRate.Poor))
	}

	switch {
	case m.TotalPnLAllAccounts >= th.PnL.SignificantProfit:
		out = append(out, fmt.Sprintf("%s Significant profit: total PnL %.2f", MarkPositive, m.TotalPnLAllAccounts))
	case m.TotalPnLAllAccounts <= th.PnL.SignificantLoss:
		out = append(out, fmt.Sprintf("%s Significant loss: total PnL %.2f", MarkCritical, m.TotalPnLAllAccounts))
	}

	for _, s := range sheets {
		ai, ok := summary.InactivityPatterns.AccountInactivity[s.Sheet]
		if ok && ai.RiskLevel == domain.LevelHigh {
			out = append(out, fmt.Sprintf("%s Account %s was inactive for %d days", MarkTime, s.Sheet, ai.MaxInactivityDays))
		}
	}

	if summary.InactivityPatterns.SeverityAssessment == domain.LevelHigh {
		out = append(out, MarkTime+" Most accounts show long inactivity periods")
	}

	if r := summary.RiskMetrics.PortfolioRisk; r != nil && r.PortfolioRiskLevel == domain.LevelHigh {
		out = append(out, MarkWarning+" Portfolio risk level is high")
	}

	return out
}

// Recommendations returns per-account advice in workbook order.
func Recommendations(trading []domain.SheetStatistics, th config.ThresholdsConfig) []string {
	var out []string
	for _, s := range trading {
		wr := s.WinRate()
		switch {
		case wr < th.WinRate.Good && math.Abs(s.Financial.MaxDrawdown) > th.DrawdownReview:
			out = append(out, fmt.Sprintf("%s: win rate %.1f%% with drawdown %.2f, review the strategy", s.Sheet, wr, s.Financial.MaxDrawdown))
		case wr > th.WinRate.Excellent:
			out = append(out, fmt.Sprintf("%s: win rate %.1f%%, keep the current strategy", s.Sheet, wr))
		}
	}
	return out
}

func insights(trading []domain.SheetStatistics, m domain.OverallMetrics, th config.ThresholdsConfig) domain.PredictiveInsights {
	in := domain.PredictiveInsights{
		PerformancePrediction: "stable",
		GrowthPotential:       domain.LevelMedium,
		RiskAssessment:        domain.LevelMedium,
		Recommendations:       Recommendations(trading, th),
	}

	switch {
	case m.TotalPnLAllAccounts > th.PnL.SignificantProfit:
		in.Recommendations = append(in.Recommendations, "Strong overall performance: consider increasing trading capital")
		in.PerformancePrediction = "bullish"
		in.GrowthPotential = domain.LevelHigh
	case m.TotalPnLAllAccounts < th.PnL.SignificantLoss:
		in.Recommendations = append(in.Recommendations, "Losses need attention: revisit the overall strategy")
		in.PerformancePrediction = "bearish"
		in.RiskAssessment = domain.LevelHigh
	}

	switch {
	case m.GlobalWinRate < th.WinRate.Poor:
		in.Recommendations = append(in.Recommendations, "Low win rate: review entry and exit points")
	case m.GlobalWinRate > th.WinRate.Excellent:
		in.Recommendations = append(in.Recommendations, "Excellent win rate: keep the current approach")
	}

	if in.Recommendations == nil {
		in.Recommendations = []string{}
	}
	return in
}
