package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Factor is a ratio that may be infinite. +Inf is encoded in JSON as the
// string "Infinity".
type Factor float64

// Inf reports whether f is positive infinity.
func (f Factor) Inf() bool {
	return math.IsInf(float64(f), 1)
}

// MarshalJSON implements json.Marshaler.
func (f Factor) MarshalJSON() ([]byte, error) {
	if f.Inf() {
		return []byte(`"Infinity"`), nil
	}
	return json.Marshal(float64(f))
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Factor) UnmarshalJSON(data []byte) error {
	if string(data) == `"Infinity"` {
		*f = Factor(math.Inf(1))
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Factor(v)
	return nil
}

// Bin is one bucket of a Histogram.
type Bin struct {
	Label string
	Count int
}

// Histogram is an ordered list of labelled counts. It marshals as a JSON
// object whose keys keep the histogram order.
type Histogram []Bin

// Mode returns the label with the highest count. Ties go to the bin that
// comes first.
func (h Histogram) Mode() (string, bool) {
	best := -1
	for i, b := range h {
		if b.Count <= 0 {
			continue
		}
		if best < 0 || b.Count > h[best].Count {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	return h[best].Label, true
}

// Total sums all counts.
func (h Histogram) Total() int {
	total := 0
	for _, b := range h {
		total += b.Count
	}
	return total
}

// Count returns the count stored for label.
func (h Histogram) Count(label string) int {
	for _, b := range h {
		if b.Label == label {
			return b.Count
		}
	}
	return 0
}

// MarshalJSON implements json.Marshaler.
func (h Histogram) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, b := range h {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(b.Label)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(b.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Omission records a statistic that could not be computed.
type Omission struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// TemporalStats describes when a sheet's rows happened.
type TemporalStats struct {
	Column string `json:"column"`

	// Timestamps holds every parsed timestamp in row order.
	Timestamps []time.Time `json:"-"`

	PeriodDays           int       `json:"period_days"`
	FirstTransaction     time.Time `json:"first_transaction"`
	LastTransaction      time.Time `json:"last_transaction"`
	TransactionFrequency float64   `json:"transaction_frequency"`

	WeekdayDistribution Histogram `json:"weekday_distribution"`
	MostActiveWeekday   string    `json:"most_active_weekday"`
	HourlyDistribution  Histogram `json:"hourly_distribution"`
	PeakTradingHour     string    `json:"peak_trading_hour"`
	MonthlyActivity     Histogram `json:"monthly_activity"`
	MostActiveMonth     string    `json:"most_active_month"`

	MonthlyTrend  string   `json:"monthly_trend,omitempty"`
	TrendStrength *float64 `json:"trend_strength,omitempty"`
}

// FinancialStats summarises the main PnL column.
type FinancialStats struct {
	Column string    `json:"main_pnl_column"`
	Values []float64 `json:"pnl_values"`

	PnLTotal  float64  `json:"pnl_total"`
	PnLMean   float64  `json:"pnl_mean"`
	PnLMedian float64  `json:"pnl_median"`
	PnLStd    *float64 `json:"pnl_std,omitempty"`
	PnLMin    float64  `json:"pnl_min"`
	PnLMax    float64  `json:"pnl_max"`

	TotalProfit float64 `json:"total_profit"`
	TotalLoss   float64 `json:"total_loss"`
	GrossProfit float64 `json:"gross_profit"`
	GrossLoss   float64 `json:"gross_loss"`

	ProfitableTrades int `json:"profitable_trades"`
	LosingTrades     int `json:"losing_trades"`
	NeutralTrades    int `json:"neutral_trades"`

	AvgProfit    *float64 `json:"avg_profit,omitempty"`
	MedianProfit *float64 `json:"median_profit,omitempty"`
	LargestWin   *float64 `json:"largest_win,omitempty"`
	AvgLoss      *float64 `json:"avg_loss,omitempty"`
	MedianLoss   *float64 `json:"median_loss,omitempty"`
	LargestLoss  *float64 `json:"largest_loss,omitempty"`

	MaxWinningStreak int `json:"max_winning_streak"`
	MaxLosingStreak  int `json:"max_losing_streak"`

	MaxDrawdown     float64 `json:"max_drawdown"`
	CurrentDrawdown float64 `json:"current_drawdown"`
}

// Performance scopes.
const (
	ScopeSheet         = "sheet"
	ScopeTradingSubset = "trading_subset"
)

// PerformanceStats holds the reported win/loss ratios. When the sheet has
// a type column with trading rows they are computed over that subset only.
type PerformanceStats struct {
	Scope string `json:"performance_scope"`

	TotalTrades   int `json:"total_trades"`
	WinningTrades int `json:"winning_trades"`
	LosingTrades  int `json:"losing_trades"`
	NeutralTrades int `json:"neutral_trades"`

	WinRate     float64 `json:"win_rate"`
	LossRate    float64 `json:"loss_rate"`
	NeutralRate float64 `json:"neutral_rate"`

	ProfitFactor Factor   `json:"profit_factor"`
	AvgWin       *float64 `json:"avg_win,omitempty"`
	AvgLoss      *float64 `json:"avg_loss,omitempty"`
	Expectancy   *float64 `json:"expectancy,omitempty"`

	TradingRows       int      `json:"trading_rows,omitempty"`
	TradingPercentage *float64 `json:"trading_percentage,omitempty"`
}

// AssetStats describes how activity spreads across instruments.
type AssetStats struct {
	Column               string    `json:"column"`
	Distribution         Histogram `json:"distribution"`
	UniqueAssets         int       `json:"unique_assets"`
	MostTradedAsset      string    `json:"most_traded_asset"`
	AssetConcentration   float64   `json:"asset_concentration"`
	HerfindahlIndex      float64   `json:"herfindahl_index"`
	DiversificationScore float64   `json:"diversification_score"`
	IsDiversified        bool      `json:"is_diversified"`
}

// TypeStats counts the values of the type column.
type TypeStats struct {
	Column      string    `json:"column"`
	Counts      Histogram `json:"counts"`
	UniqueTypes int       `json:"unique_types"`
}

// ColumnStats summarises one amount-tagged numeric column.
type ColumnStats struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Total  float64  `json:"total"`
	Mean   float64  `json:"mean"`
	Median float64  `json:"median"`
	Std    *float64 `json:"std,omitempty"`
	Min    float64  `json:"min"`
	Max    float64  `json:"max"`
}

// SheetStatistics is everything computed for one table. Absent blocks are
// nil and listed in Omissions.
type SheetStatistics struct {
	Sheet        string        `json:"sheet"`
	Rows         int           `json:"rows"`
	Columns      int           `json:"columns"`
	ExcludedRows int           `json:"excluded_rows"`
	Roles        ColumnRoleMap `json:"roles"`

	Temporal         *TemporalStats    `json:"temporal,omitempty"`
	Financial        *FinancialStats   `json:"financial,omitempty"`
	Performance      *PerformanceStats `json:"performance,omitempty"`
	Assets           *AssetStats       `json:"assets,omitempty"`
	TransactionTypes *TypeStats        `json:"transaction_types,omitempty"`
	AmountColumns    []ColumnStats     `json:"amount_columns,omitempty"`

	Omissions []Omission `json:"omissions,omitempty"`
}

// HasFinancialData reports whether a main PnL column yielded values.
func (s SheetStatistics) HasFinancialData() bool {
	return s.Financial != nil
}

// PnLTotal returns the sum of the main PnL column, or 0.
func (s SheetStatistics) PnLTotal() float64 {
	if s.Financial == nil {
		return 0
	}
	return s.Financial.PnLTotal
}

// WinRate returns the reported win rate, or 0.
func (s SheetStatistics) WinRate() float64 {
	if s.Performance == nil {
		return 0
	}
	return s.Performance.WinRate
}

// TotalTrades returns the reported trade count, or 0.
func (s SheetStatistics) TotalTrades() int {
	if s.Performance == nil {
		return 0
	}
	return s.Performance.TotalTrades
}

// Omitted reports whether field was recorded as omitted.
func (s SheetStatistics) Omitted(field string) bool {
	for _, o := range s.Omissions {
		if o.Field == field {
			return true
		}
	}
	return false
}
