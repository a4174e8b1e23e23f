package report

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/dvloznov/trading-analyzer/internal/domain"
)

// Chart kinds accepted by RenderChart.
const (
	ChartPnL     = "pnl"
	ChartWinRate = "winrate"
	ChartHourly  = "hourly"
)

var (
	// ErrNoChartData is returned when there is nothing to plot.
	ErrNoChartData = errors.New("no data to chart")
	// ErrUnknownChart is returned for an unsupported chart kind.
	ErrUnknownChart = errors.New("unknown chart")
)

var (
	colorProfit  = drawing.ColorFromHex("16a34a") // green-600
	colorLoss    = drawing.ColorFromHex("dc2626") // red-600
	colorNeutral = drawing.ColorFromHex("2563eb") // blue-600
)

// RenderChart renders the chart of the given kind for r as PNG.
func RenderChart(kind string, r *domain.AnalysisResult) ([]byte, error) {
	switch kind {
	case ChartPnL:
		return PnLChart(r.Sheets)
	case ChartWinRate:
		return WinRateChart(r.Sheets)
	case ChartHourly:
		if r.TemporalAnalysis.SeasonalityAnalysis == nil {
			return nil, ErrNoChartData
		}
		return HourlyChart(r.TemporalAnalysis.SeasonalityAnalysis.HourlyActivity)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownChart, kind)
}

// PnLChart plots total PnL per account, green for gains and red for losses.
func PnLChart(sheets []domain.SheetStatistics) ([]byte, error) {
	var bars []chart.Value
	for _, s := range sheets {
		if !s.HasFinancialData() {
			continue
		}
		c := colorProfit
		if s.PnLTotal() < 0 {
			c = colorLoss
		}
		bars = append(bars, bar(s.Sheet, s.PnLTotal(), c))
	}
	return renderBars("PnL by Account", bars, func(v float64) string {
		return fmt.Sprintf("%.0f", v)
	})
}

// WinRateChart plots the reported win rate per account.
func WinRateChart(sheets []domain.SheetStatistics) ([]byte, error) {
	var bars []chart.Value
	for _, s := range sheets {
		if s.Performance == nil {
			continue
		}
		bars = append(bars, bar(s.Sheet, s.WinRate(), colorNeutral))
	}
	return renderBars("Win Rate by Account", bars, func(v float64) string {
		return fmt.Sprintf("%.0f%%", v)
	})
}

// HourlyChart plots the workbook-wide hourly activity histogram.
func HourlyChart(hours domain.Histogram) ([]byte, error) {
	if hours.Total() == 0 {
		return nil, ErrNoChartData
	}
	bars := make([]chart.Value, 0, len(hours))
	for _, b := range hours {
		bars = append(bars, bar(b.Label, float64(b.Count), colorNeutral))
	}
	return renderBars("Activity by Hour", bars, func(v float64) string {
		return fmt.Sprintf("%.0f", v)
	})
}

func bar(label string, value float64, c drawing.Color) chart.Value {
	return chart.Value{
		Label: label,
		Value: value,
		Style: chart.Style{FillColor: c, StrokeColor: c},
	}
}

func renderBars(title string, bars []chart.Value, format func(float64) string) ([]byte, error) {
	if len(bars) == 0 {
		return nil, ErrNoChartData
	}

	lo, hi := 0.0, 0.0
	for _, b := range bars {
		lo = math.Min(lo, b.Value)
		hi = math.Max(hi, b.Value)
	}
	if lo == hi {
		hi = lo + 1
	}

	barWidth, spacing := 40, 40
	if len(bars) > 12 {
		barWidth, spacing = 20, 10
	}

	graph := chart.BarChart{
		Title:  title,
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		BarWidth:     barWidth,
		BarSpacing:   spacing,
		UseBaseValue: true,
		BaseValue:    0,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return format(f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
