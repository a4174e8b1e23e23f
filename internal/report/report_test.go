package report

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/trading-analyzer/internal/analyzer"
	"github.com/dvloznov/trading-analyzer/internal/config"
	"github.com/dvloznov/trading-analyzer/internal/domain"
	"github.com/dvloznov/trading-analyzer/internal/logger"
	"github.com/dvloznov/trading-analyzer/internal/portfolio"
)

var generated = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func sheet(name string, dates []string, pnl ...float64) domain.SheetStatistics {
	tbl := domain.NewTable(name, []string{"Date", "PnL"})
	for i, v := range pnl {
		row := domain.Row{"PnL": domain.NewValue(strconv.FormatFloat(v, 'f', -1, 64))}
		if i < len(dates) {
			row["Date"] = domain.NewValue(dates[i])
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	roles := domain.ColumnRoleMap{Amount: "PnL", MainPnL: "PnL", Timestamp: "Date"}
	ctx := logger.WithContext(context.Background(), logger.Nop())
	return analyzer.Analyze(ctx, tbl, roles, analyzer.Options{Vocabulary: config.DefaultVocabulary()})
}

func result(sheets ...domain.SheetStatistics) *domain.AnalysisResult {
	return &domain.AnalysisResult{
		AnalysisID:       "a-1",
		Metadata:         domain.FileMetadata{FileName: "export.xlsx", FileType: domain.FormatXLSX, TotalSheets: len(sheets), TotalRows: 1200},
		Sheets:           sheets,
		PortfolioSummary: portfolio.Aggregate(sheets, config.NewDefaultConfig().Thresholds),
	}
}

func TestFull(t *testing.T) {
	dates := []string{"2024-01-01 10:00:00", "2024-01-02 11:00:00"}
	r := result(
		sheet("Spot", dates, 600, 400),
		sheet("Futures", dates, -1000, -500),
	)
	r.Narrative = "Losses in futures outweigh spot gains."

	var buf bytes.Buffer
	require.NoError(t, Full(&buf, r, generated))
	out := buf.String()

	assert.Contains(t, out, "Generated: 2024-03-01 09:30:00")
	assert.Contains(t, out, "Type: XLSX")
	assert.Contains(t, out, "Total rows: 1,200")
	assert.Contains(t, out, "Total PnL: -500.00")
	assert.Contains(t, out, "Worst account: Futures")
	assert.Contains(t, out, "1. [CRITICAL] Significant loss: total PnL -500.00")
	assert.Contains(t, out, "Losses in futures outweigh spot gains.")

	// Accounts keep workbook order.
	assert.Less(t, strings.Index(out, "\nSPOT:"), strings.Index(out, "\nFUTURES:"))
}

func TestFull_NoTradingData(t *testing.T) {
	r := &domain.AnalysisResult{Metadata: domain.FileMetadata{FileName: "notes.csv", FileType: domain.FormatCSV}}
	r.NoTradingData = true

	var buf bytes.Buffer
	require.NoError(t, Full(&buf, r, generated))

	assert.Contains(t, buf.String(), "[WARNING] No sheet contains a PnL column")
	assert.NotContains(t, buf.String(), "KEY METRICS")
}

func TestSummary(t *testing.T) {
	th := config.NewDefaultConfig().Thresholds

	tests := []struct {
		name string
		r    *domain.AnalysisResult
		want []string
	}{
		{
			name: "excellent",
			r:    result(sheet("Spot", nil, 1000, 500)),
			want: []string{"Total PnL: 1,500.00", "[OK] STATUS: EXCELLENT PERFORMANCE"},
		},
		{
			name: "positive",
			r:    result(sheet("Spot", nil, 100, -20)),
			want: []string{"[OK] STATUS: POSITIVE PERFORMANCE"},
		},
		{
			name: "loss",
			r:    result(sheet("Spot", nil, 600, 400), sheet("Futures", nil, -1000, -500)),
			want: []string{"[WARNING] STATUS: NEEDS ATTENTION", "[CRITICAL] Critical alerts: 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Summary(&buf, tt.r, th, generated))
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}

func TestCriticalAlerts(t *testing.T) {
	alerts := []string{
		"[CRITICAL] Significant loss: total PnL -900.00",
		"[TIME] Account Spot was inactive for 40 days",
		"[WARNING] Portfolio risk level is high",
	}
	assert.Equal(t, 1, CriticalAlerts(alerts))
	assert.Equal(t, 0, CriticalAlerts(nil))
}

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestRenderChart(t *testing.T) {
	dates := []string{"2024-01-01 10:00:00", "2024-01-02 15:00:00"}
	r := result(
		sheet("Spot", dates, 600, 400),
		sheet("Futures", dates, -1000, 500),
	)

	for _, kind := range []string{ChartPnL, ChartWinRate, ChartHourly} {
		t.Run(kind, func(t *testing.T) {
			img, err := RenderChart(kind, r)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(img, pngMagic))
		})
	}
}

func TestRenderChart_Errors(t *testing.T) {
	_, err := RenderChart("pie", result())
	assert.ErrorIs(t, err, ErrUnknownChart)

	_, err = RenderChart(ChartPnL, result())
	assert.ErrorIs(t, err, ErrNoChartData)

	_, err = RenderChart(ChartHourly, result(sheet("Spot", nil, 1)))
	assert.ErrorIs(t, err, ErrNoChartData)

	_, err = HourlyChart(domain.Histogram{{Label: "10:00", Count: 0}})
	assert.ErrorIs(t, err, ErrNoChartData)
}
