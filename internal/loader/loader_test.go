package loader

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/dvloznov/trading-analyzer/internal/domain"
)

func buildWorkbook(t *testing.T, sheets map[string][][]interface{}, order []string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			values := row
			require.NoError(t, f.SetSheetRow(name, cell, &values))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		want domain.Format
	}{
		{"export.xlsx", domain.FormatXLSX},
		{"EXPORT.XLS", domain.FormatXLS},
		{"trades.csv", domain.FormatCSV},
		{"trades.tsv", domain.FormatCSV},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := DetectFormat("report.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.NotEmpty(t, le.Hint())
}

func TestLoad_XLSXMultipleSheets(t *testing.T) {
	data := buildWorkbook(t, map[string][][]interface{}{
		"Futures": {
			{"Time(UTC)", "Symbol", "Realized PnL"},
			{"2024-01-02 10:00:00", "BTCUSDT", 12.5},
			{"2024-01-03 11:00:00", "ETHUSDT", -4},
		},
		"Spot": {
			{"Date", "Amount"},
			{"2024-01-05", 100},
		},
	}, []string{"Futures", "Spot"})

	wb, err := Load(context.Background(), bytes.NewReader(data), "export.xlsx", DefaultLimits)
	require.NoError(t, err)

	assert.Equal(t, []string{"Futures", "Spot"}, wb.SheetNames())
	assert.Equal(t, domain.FormatXLSX, wb.Metadata.FileType)
	assert.Equal(t, 2, wb.Metadata.TotalSheets)
	assert.Equal(t, 3, wb.Metadata.TotalRows)

	futures := wb.Table("Futures")
	require.NotNil(t, futures)
	assert.Equal(t, []string{"Time(UTC)", "Symbol", "Realized PnL"}, futures.Columns)
	n, ok := futures.Rows[0].Get("Realized PnL").Number()
	require.True(t, ok)
	assert.Equal(t, 12.5, n)
}

func TestLoad_XLSXContentUnderXLSName(t *testing.T) {
	data := buildWorkbook(t, map[string][][]interface{}{
		"Trades": {{"PnL"}, {1}, {-2}},
	}, []string{"Trades"})

	wb, err := Load(context.Background(), bytes.NewReader(data), "legacy.xls", DefaultLimits)
	require.NoError(t, err)
	assert.Equal(t, domain.FormatXLSX, wb.Metadata.FileType)
	assert.Equal(t, 2, wb.Table("Trades").Len())
}

func TestLoad_CSV(t *testing.T) {
	csv := "Date,Side,Realized_PnL,Symbol\n" +
		"2024-01-01,BUY,10,BTC\n" +
		"\n" +
		"2024-01-02,SELL,-5,ETH\n"

	wb, err := Load(context.Background(), strings.NewReader(csv), "trades.csv", DefaultLimits)
	require.NoError(t, err)

	require.Len(t, wb.Tables, 1)
	table := wb.Tables[0]
	assert.Equal(t, CSVSheetName, table.Name)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, "SELL", table.Rows[1].Get("Side").String())
	assert.Equal(t, "UTF-8", wb.Metadata.Encoding)
}

func TestLoad_CSVSemicolonAndBOM(t *testing.T) {
	csv := "\xEF\xBB\xBFFecha;Tipo;Beneficio\n2024-01-01;compra;\"1.234,50\"\n"

	wb, err := Load(context.Background(), strings.NewReader(csv), "es.csv", DefaultLimits)
	require.NoError(t, err)

	table := wb.Tables[0]
	assert.Equal(t, []string{"Fecha", "Tipo", "Beneficio"}, table.Columns)
	n, ok := table.Rows[0].Get("Beneficio").Number()
	require.True(t, ok)
	assert.InDelta(t, 1234.5, n, 1e-9)
}

func TestLoad_CSVWindows1252(t *testing.T) {
	encoded, err := charmap.Windows1252.NewEncoder().String(
		"Operación,Comisión,Descripción del movimiento de la cuenta\n" +
			"venta,-1,Liquidación de posición en el mercado de futuros perpetuos\n" +
			"compra,-2,Depósito recibido desde la cuenta principal del usuario\n")
	require.NoError(t, err)

	wb, err := Load(context.Background(), strings.NewReader(encoded), "latin.csv", DefaultLimits)
	require.NoError(t, err)

	assert.Contains(t, wb.Tables[0].Columns, "Operación")
	assert.NotEqual(t, "UTF-8", wb.Metadata.Encoding)
}

func TestLoad_HeaderNormalisation(t *testing.T) {
	csv := "PnL,,PnL,Note\n1,2,3,\n"

	wb, err := Load(context.Background(), strings.NewReader(csv), "dup.csv", DefaultLimits)
	require.NoError(t, err)

	assert.Equal(t, []string{"PnL", "Unnamed: 1", "PnL.1", "Note"}, wb.Tables[0].Columns)
	assert.Equal(t, "3", wb.Tables[0].Rows[0].Get("PnL.1").String())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     string
		limits   Limits
		want     error
	}{
		{"unsupported", "notes.docx", "x", DefaultLimits, ErrUnsupportedFormat},
		{"empty", "empty.csv", "  \n\n", DefaultLimits, ErrEmptyFile},
		{"header only", "header.csv", "Date,PnL\n", DefaultLimits, ErrEmptyFile},
		{"corrupt xlsx", "broken.xlsx", "PK\x03\x04not really a zip", DefaultLimits, ErrCorrupt},
		{"too many bytes", "big.csv", "PnL\n1\n2\n3\n", Limits{MaxBytes: 4, MaxRows: 10}, ErrTooLarge},
		{"too many rows", "rows.csv", "PnL\n1\n2\n3\n", Limits{MaxBytes: 1024, MaxRows: 2}, ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), strings.NewReader(tt.data), tt.filename, tt.limits)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.filename, le.Filename)
		})
	}
}

func TestLoad_CancelledContext(t *testing.T) {
	data := buildWorkbook(t, map[string][][]interface{}{
		"Trades": {{"PnL"}, {1}},
	}, []string{"Trades"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, bytes.NewReader(data), "export.xlsx", DefaultLimits)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ',', sniffDelimiter("a,b,c\n"))
	assert.Equal(t, ';', sniffDelimiter("a;b;\"c,d\"\n"))
	assert.Equal(t, '\t', sniffDelimiter("\n\na\tb\tc"))
	assert.Equal(t, '|', sniffDelimiter("a|b|c"))
	assert.Equal(t, ',', sniffDelimiter("single"))
}

func TestValidate(t *testing.T) {
	csv := "Date,Amount,Note\n2024-01-01,5,x\n"
	wb, err := Load(context.Background(), strings.NewReader(csv), "v.csv", DefaultLimits)
	require.NoError(t, err)

	got := Validate(wb, []string{"date", "time"}, []string{"amount", "pnl"}, 10)["main"]
	assert.True(t, got.HasData)
	assert.True(t, got.HasDateColumns)
	assert.True(t, got.HasAmountColumns)
	assert.True(t, got.HasNumericColumns)
	assert.False(t, got.MinRows)
	assert.Equal(t, 3, got.Columns)
}
