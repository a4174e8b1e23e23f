// Package report renders an analysis as plain text and PNG charts.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dvloznov/trading-analyzer/internal/config"
	"github.com/dvloznov/trading-analyzer/internal/domain"
	"github.com/dvloznov/trading-analyzer/internal/portfolio"
)

// Status markers used by the summary report.
const (
	MarkOK = "[OK]"
)

var printer = message.NewPrinter(language.English)

func money(v float64) string {
	return printer.Sprintf("%.2f", v)
}

func count(n int) string {
	return printer.Sprintf("%d", n)
}

func section(b *strings.Builder, title string, width int) {
	b.WriteString(title)
	b.WriteByte('\n')
	b.WriteString(strings.Repeat("-", width))
	b.WriteByte('\n')
}

// Full writes the comprehensive report for r.
func Full(w io.Writer, r *domain.AnalysisResult, now time.Time) error {
	var b strings.Builder

	b.WriteString("TRADING ANALYZER REPORT\n")
	b.WriteString(strings.Repeat("=", 80) + "\n")
	fmt.Fprintf(&b, "Generated: %s\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Analysis: %s\n\n", r.AnalysisID)

	md := r.Metadata
	section(&b, "FILE", 40)
	fmt.Fprintf(&b, "File: %s\n", md.FileName)
	fmt.Fprintf(&b, "Type: %s\n", strings.ToUpper(string(md.FileType)))
	fmt.Fprintf(&b, "Sheets: %d\n", md.TotalSheets)
	fmt.Fprintf(&b, "Total rows: %s\n", count(md.TotalRows))
	if r.ExcludedRows > 0 {
		fmt.Fprintf(&b, "Non-trading rows excluded: %s\n", count(r.ExcludedRows))
	}
	if len(r.SheetsSkipped) > 0 {
		fmt.Fprintf(&b, "Sheets skipped: %s\n", strings.Join(r.SheetsSkipped, ", "))
	}
	b.WriteByte('\n')

	if r.NoTradingData {
		fmt.Fprintf(&b, "%s No sheet contains a PnL column. Nothing to report.\n", portfolio.MarkWarning)
		return writeString(w, b.String())
	}

	m := r.TradingPerformance.OverallMetrics
	section(&b, "KEY METRICS", 40)
	fmt.Fprintf(&b, "Total PnL: %s\n", money(m.TotalPnLAllAccounts))
	fmt.Fprintf(&b, "Total trades: %s\n", count(m.TotalTradesAllAccounts))
	fmt.Fprintf(&b, "Accounts analysed: %d\n", m.TotalAccounts)
	fmt.Fprintf(&b, "Global win rate: %.1f%%\n", m.GlobalWinRate)
	fmt.Fprintf(&b, "Weighted win rate: %.1f%%\n", m.WeightedGlobalWinRate)
	fmt.Fprintf(&b, "Profitable accounts: %d\n", m.ProfitableAccounts)
	fmt.Fprintf(&b, "Losing accounts: %d\n", m.LosingAccounts)
	if m.BestPerformingAccount != "" {
		fmt.Fprintf(&b, "Best account: %s\n", m.BestPerformingAccount)
	}
	if m.WorstPerformingAccount != "" {
		fmt.Fprintf(&b, "Worst account: %s\n", m.WorstPerformingAccount)
	}
	b.WriteByte('\n')

	section(&b, "ACCOUNTS", 50)
	for _, s := range r.Sheets {
		if !s.HasFinancialData() {
			continue
		}
		writeAccount(&b, s)
	}
	b.WriteByte('\n')

	if g := r.TemporalAnalysis.GlobalActivityPatterns; g != nil {
		section(&b, "ACTIVITY", 30)
		fmt.Fprintf(&b, "Period: %d days\n", g.TotalPeriodDays)
		fmt.Fprintf(&b, "Active days: %d\n", g.ActiveDays)
		fmt.Fprintf(&b, "Most active day: %s\n", orNA(g.MostActiveDay))
		fmt.Fprintf(&b, "Peak hour: %s\n\n", orNA(g.PeakHour))
	}

	if p := r.RiskMetrics.PortfolioRisk; p != nil {
		section(&b, "RISK", 30)
		fmt.Fprintf(&b, "Portfolio volatility: %.4f\n", p.TotalPortfolioVolatility)
		fmt.Fprintf(&b, "Sharpe ratio: %.4f\n", p.PortfolioSharpeRatio)
		fmt.Fprintf(&b, "Risk level: %s\n\n", strings.ToUpper(string(p.PortfolioRiskLevel)))
	}

	pi := r.PredictiveInsights
	section(&b, "OUTLOOK", 40)
	fmt.Fprintf(&b, "Performance prediction: %s\n", strings.ToUpper(orNA(pi.PerformancePrediction)))
	fmt.Fprintf(&b, "Growth potential: %s\n", strings.ToUpper(orNA(string(pi.GrowthPotential))))
	fmt.Fprintf(&b, "Risk assessment: %s\n", strings.ToUpper(orNA(string(pi.RiskAssessment))))
	if len(pi.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for i, rec := range pi.Recommendations {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, rec)
		}
	}
	b.WriteByte('\n')

	if len(r.SmartAlerts) > 0 {
		section(&b, "ALERTS", 35)
		for i, a := range r.SmartAlerts {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, a)
		}
		b.WriteByte('\n')
	}

	ip := r.InactivityPatterns
	if len(ip.AccountInactivity) > 0 {
		section(&b, "INACTIVITY", 35)
		fmt.Fprintf(&b, "Overall assessment: %s\n\n", strings.ToUpper(string(ip.SeverityAssessment)))
		for _, s := range r.Sheets {
			ai, ok := ip.AccountInactivity[s.Sheet]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "  %s:\n", s.Sheet)
			fmt.Fprintf(&b, "    Longest gap: %d days\n", ai.MaxInactivityDays)
			fmt.Fprintf(&b, "    Risk level: %s\n", strings.ToUpper(string(ai.RiskLevel)))
			fmt.Fprintf(&b, "    Gaps: %d\n", ai.TotalGaps)
			fmt.Fprintf(&b, "    Last active: %s\n\n", ai.LastActive)
		}
	}

	if r.Narrative != "" {
		section(&b, "COMMENTARY", 35)
		b.WriteString(strings.TrimSpace(r.Narrative))
		b.WriteString("\n\n")
	}

	b.WriteString(strings.Repeat("=", 80) + "\n")
	return writeString(w, b.String())
}

func writeAccount(b *strings.Builder, s domain.SheetStatistics) {
	f := s.Financial
	fmt.Fprintf(b, "\n%s:\n", strings.ToUpper(s.Sheet))
	fmt.Fprintf(b, "  PnL: %s\n", money(f.PnLTotal))
	if p := s.Performance; p != nil {
		fmt.Fprintf(b, "  Win rate: %.1f%%\n", p.WinRate)
		fmt.Fprintf(b, "  Trades: %s\n", count(p.TotalTrades))
		fmt.Fprintf(b, "  Profit factor: %s\n", factor(p.ProfitFactor))
		if p.Expectancy != nil {
			fmt.Fprintf(b, "  Expectancy: %s\n", money(*p.Expectancy))
		}
	}
	fmt.Fprintf(b, "  Max drawdown: %s\n", money(f.MaxDrawdown))
	fmt.Fprintf(b, "  Total profit: %s\n", money(f.TotalProfit))
	fmt.Fprintf(b, "  Total loss: %s\n", money(f.TotalLoss))
	fmt.Fprintf(b, "  Streaks: %d won / %d lost\n", f.MaxWinningStreak, f.MaxLosingStreak)
}

// Summary writes the short executive summary for r. The status line uses
// the significant-profit threshold.
func Summary(w io.Writer, r *domain.AnalysisResult, th config.ThresholdsConfig, now time.Time) error {
	var b strings.Builder
	m := r.TradingPerformance.OverallMetrics

	fmt.Fprintf(&b, "EXECUTIVE SUMMARY - %s\n", now.Format("2006-01-02"))
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	if r.NoTradingData {
		fmt.Fprintf(&b, "%s No trading data found in %s\n", portfolio.MarkWarning, r.Metadata.FileName)
		return writeString(w, b.String())
	}

	fmt.Fprintf(&b, "Total PnL: %s\n", money(m.TotalPnLAllAccounts))
	fmt.Fprintf(&b, "Accounts: %d\n", m.TotalAccounts)
	fmt.Fprintf(&b, "Win rate: %.1f%%\n\n", m.GlobalWinRate)

	switch {
	case m.TotalPnLAllAccounts > th.PnL.SignificantProfit:
		fmt.Fprintf(&b, "%s STATUS: EXCELLENT PERFORMANCE\n", MarkOK)
	case m.TotalPnLAllAccounts > 0:
		fmt.Fprintf(&b, "%s STATUS: POSITIVE PERFORMANCE\n", MarkOK)
	default:
		fmt.Fprintf(&b, "%s STATUS: NEEDS ATTENTION\n", portfolio.MarkWarning)
	}

	if n := CriticalAlerts(r.SmartAlerts); n > 0 {
		fmt.Fprintf(&b, "\n%s Critical alerts: %d\n", portfolio.MarkCritical, n)
	}

	fmt.Fprintf(&b, "\nGenerated: %s\n", now.Format("15:04"))
	return writeString(w, b.String())
}

// CriticalAlerts counts the alerts carrying the critical marker.
func CriticalAlerts(alerts []string) int {
	n := 0
	for _, a := range alerts {
		if strings.HasPrefix(a, portfolio.MarkCritical) {
			n++
		}
	}
	return n
}

func factor(f domain.Factor) string {
	if f.Inf() {
		return "inf"
	}
	return fmt.Sprintf("%.2f", float64(f))
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func writeString(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("report: write: %w", err)
	}
	return nil
}
