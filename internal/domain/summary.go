package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// Level is a coarse low/medium/high classification.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Gap severities.
const (
	GapMinor    = "minor"
	GapModerate = "moderate"
	GapCritical = "critical"
)

// OverallMetrics are the portfolio totals.
type OverallMetrics struct {
	TotalPnLAllAccounts    float64 `json:"total_pnl_all_accounts"`
	TotalTradesAllAccounts int     `json:"total_trades_all_accounts"`

	// GlobalWinRate is the unweighted mean of per-account win rates.
	GlobalWinRate float64 `json:"global_win_rate"`
	// WeightedGlobalWinRate weights every account by its trade count.
	WeightedGlobalWinRate float64 `json:"weighted_global_win_rate"`

	BestPerformingAccount  string `json:"best_performing_account"`
	WorstPerformingAccount string `json:"worst_performing_account"`
	ProfitableAccounts     int    `json:"profitable_accounts"`
	LosingAccounts         int    `json:"losing_accounts"`
	TotalAccounts          int    `json:"total_accounts"`

	AccountPnLs     map[string]float64 `json:"account_pnls"`
	AccountWinRates map[string]float64 `json:"account_win_rates"`
	// Ranking lists accounts by PnL, best first.
	Ranking []string `json:"ranking"`
}

// AccountComparison is one row of the per-account comparison table.
type AccountComparison struct {
	PnL          float64  `json:"pnl"`
	WinRate      float64  `json:"win_rate"`
	TotalTrades  int      `json:"total_trades"`
	ProfitFactor Factor   `json:"profit_factor"`
	MaxDrawdown  float64  `json:"max_drawdown"`
	Expectancy   *float64 `json:"expectancy,omitempty"`
	TotalProfit  float64  `json:"total_profit"`
	TotalLoss    float64  `json:"total_loss"`
	AvgProfit    *float64 `json:"avg_profit,omitempty"`
	AvgLoss      *float64 `json:"avg_loss,omitempty"`
}

// TradingPerformance groups totals and the comparison table.
type TradingPerformance struct {
	OverallMetrics    OverallMetrics               `json:"overall_metrics"`
	AccountComparison map[string]AccountComparison `json:"account_comparison"`
}

// GlobalActivityPatterns covers every timestamp in the workbook.
type GlobalActivityPatterns struct {
	TotalPeriodDays int    `json:"total_period_days"`
	MostActiveDay   string `json:"most_active_day"`
	PeakHour        string `json:"peak_hour"`
	ActiveDays      int    `json:"active_days"`
}

// DailyCount is the number of rows on one calendar day.
type DailyCount struct {
	Date  civil.Date `json:"date"`
	Count int        `json:"count"`
}

// SeasonalityAnalysis holds workbook-wide activity histograms.
type SeasonalityAnalysis struct {
	MonthlyActivity Histogram    `json:"monthly_activity"`
	WeekdayActivity Histogram    `json:"weekday_activity"`
	HourlyActivity  Histogram    `json:"hourly_activity"`
	DailyActivity   []DailyCount `json:"daily_activity"`
	MostActiveMonth string       `json:"most_active_month"`
}

// TemporalAnalysis is nil-safe: both blocks are absent without timestamps.
type TemporalAnalysis struct {
	GlobalActivityPatterns *GlobalActivityPatterns `json:"global_activity_patterns,omitempty"`
	SeasonalityAnalysis    *SeasonalityAnalysis    `json:"seasonality_analysis,omitempty"`
}

// InactivityGap is a pause between two consecutive rows longer than the
// configured minimum.
type InactivityGap struct {
	From     civil.Date `json:"from"`
	To       civil.Date `json:"to"`
	Days     int        `json:"days"`
	Severity string     `json:"severity"`
}

// AccountInactivity describes pauses in one account.
type AccountInactivity struct {
	MaxInactivityDays int             `json:"max_inactivity_days"`
	AvgInactivityDays float64         `json:"avg_inactivity_days"`
	TotalGaps         int             `json:"total_gaps"`
	Gaps              []InactivityGap `json:"gaps"`
	RiskLevel         Level           `json:"risk_level"`
	LastActive        civil.Date      `json:"last_active"`
}

// InactivityPatterns groups per-account inactivity.
type InactivityPatterns struct {
	AccountInactivity  map[string]AccountInactivity `json:"account_inactivity"`
	SeverityAssessment Level                        `json:"severity_assessment"`
}

// RiskProfile is the crude risk estimate of one PnL series.
type RiskProfile struct {
	Volatility  float64 `json:"volatility"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	RiskLevel   Level   `json:"risk_level"`
}

// PortfolioRisk is the risk estimate over all PnL values.
type PortfolioRisk struct {
	TotalPortfolioVolatility float64 `json:"total_portfolio_volatility"`
	PortfolioSharpeRatio     float64 `json:"portfolio_sharpe_ratio"`
	PortfolioRiskLevel       Level   `json:"portfolio_risk_level"`
}

// RiskMetrics groups portfolio and per-account risk.
type RiskMetrics struct {
	PortfolioRisk   *PortfolioRisk         `json:"portfolio_risk,omitempty"`
	IndividualRisks map[string]RiskProfile `json:"individual_risks"`
}

// PredictiveInsights holds advisory output.
type PredictiveInsights struct {
	PerformancePrediction string   `json:"performance_prediction"`
	GrowthPotential       Level    `json:"growth_potential"`
	RiskAssessment        Level    `json:"risk_assessment"`
	Recommendations       []string `json:"recommendations"`
}

// PortfolioSummary is the aggregate over all sheets of one workbook.
type PortfolioSummary struct {
	TradingPerformance TradingPerformance `json:"trading_performance"`
	TemporalAnalysis   TemporalAnalysis   `json:"temporal_analysis"`
	InactivityPatterns InactivityPatterns `json:"inactivity_patterns"`
	RiskMetrics        RiskMetrics        `json:"risk_metrics"`
	PredictiveInsights PredictiveInsights `json:"predictive_insights"`
	SmartAlerts        []string           `json:"smart_alerts"`

	// NoTradingData is set when no sheet resolved a main PnL column.
	NoTradingData bool `json:"no_trading_data"`
}

// AnalysisResult is the immutable outcome of one pipeline run.
type AnalysisResult struct {
	AnalysisID string       `json:"analysis_id"`
	CreatedAt  time.Time    `json:"created_at"`
	Metadata   FileMetadata `json:"metadata"`

	// Sheets keeps per-sheet statistics in workbook order.
	Sheets           []SheetStatistics          `json:"-"`
	FinancialSummary map[string]SheetStatistics `json:"financial_summary"`

	PortfolioSummary

	SheetsSkipped []string `json:"sheets_skipped,omitempty"`
	ExcludedRows  int      `json:"excluded_rows"`
	Narrative     string   `json:"narrative,omitempty"`

	// Transactions is the cross-sheet log of rows with a timestamp and an
	// amount, sorted by time.
	Transactions []Transaction `json:"-"`
}

// Sheet returns the statistics for name.
func (r *AnalysisResult) Sheet(name string) (SheetStatistics, bool) {
	for _, s := range r.Sheets {
		if s.Sheet == name {
			return s, true
		}
	}
	return SheetStatistics{}, false
}
