package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dvloznov/trading-analyzer/internal/domain"
	"github.com/dvloznov/trading-analyzer/internal/logger"
)

// Limits bound how much a single file may hold.
type Limits struct {
	MaxBytes int64
	MaxRows  int
}

// DefaultLimits are 50 MB and one million rows.
var DefaultLimits = Limits{MaxBytes: 50 * 1024 * 1024, MaxRows: 1_000_000}

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// DetectFormat maps a file name to a container format by extension.
func DetectFormat(filename string) (domain.Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return domain.FormatXLSX, nil
	case ".xls":
		return domain.FormatXLS, nil
	case ".csv", ".tsv", ".txt":
		return domain.FormatCSV, nil
	}
	return "", newLoadError(KindUnsupportedFormat, filename, fmt.Errorf("extension %q", filepath.Ext(filename)))
}

// LoadFile opens path and loads it.
func LoadFile(ctx context.Context, path string, limits Limits) (*domain.Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadFile: %w", err)
	}
	defer f.Close()

	return Load(ctx, f, filepath.Base(path), limits)
}

// Load reads r according to filename's extension and returns one table
// per sheet (a single table named "main" for CSV).
func Load(ctx context.Context, r io.Reader, filename string, limits Limits) (*domain.Workbook, error) {
	log := logger.FromContext(ctx)

	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}

	if limits.MaxBytes <= 0 {
		limits.MaxBytes = DefaultLimits.MaxBytes
	}
	if limits.MaxRows <= 0 {
		limits.MaxRows = DefaultLimits.MaxRows
	}

	data, err := io.ReadAll(io.LimitReader(r, limits.MaxBytes+1))
	if err != nil {
		return nil, newLoadError(KindCorrupt, filename, err)
	}
	if int64(len(data)) > limits.MaxBytes {
		return nil, newLoadError(KindTooLarge, filename, fmt.Errorf("more than %d bytes", limits.MaxBytes))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, newLoadError(KindEmpty, filename, nil)
	}

	// Exchanges often ship xlsx content under an .xls name and the reverse.
	if format != domain.FormatCSV {
		switch {
		case bytes.HasPrefix(data, zipMagic):
			format = domain.FormatXLSX
		case bytes.HasPrefix(data, oleMagic):
			format = domain.FormatXLS
		}
	}

	var (
		sheets   []rawSheet
		encoding string
	)
	switch format {
	case domain.FormatXLSX:
		sheets, err = readXLSX(ctx, data, limits)
	case domain.FormatXLS:
		sheets, err = readXLS(ctx, data, limits)
	case domain.FormatCSV:
		var sheet rawSheet
		sheet, encoding, err = readCSV(data, limits)
		sheets = []rawSheet{sheet}
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("Load: %w", ctxErr)
		}
		var le *LoadError
		if errors.As(err, &le) {
			le.Filename = filename
			return nil, le
		}
		return nil, newLoadError(KindCorrupt, filename, err)
	}

	wb := &domain.Workbook{
		Metadata: domain.FileMetadata{
			FileName:  filename,
			FileType:  format,
			SizeBytes: int64(len(data)),
			Encoding:  encoding,
		},
	}
	for _, s := range sheets {
		table := buildTable(s.name, s.rows)
		if table == nil {
			log.Debug().Str("sheet", s.name).Msg("Skipping sheet without header")
			continue
		}
		wb.Tables = append(wb.Tables, table)
		wb.Metadata.TotalRows += table.Len()
		wb.Metadata.TotalColumns += len(table.Columns)
	}
	wb.Metadata.TotalSheets = len(wb.Tables)

	if wb.Metadata.TotalRows == 0 {
		return nil, newLoadError(KindEmpty, filename, nil)
	}

	log.Info().
		Str("file", filename).
		Str("format", string(format)).
		Int("sheets", wb.Metadata.TotalSheets).
		Int("rows", wb.Metadata.TotalRows).
		Msg("File loaded")

	return wb, nil
}

// rawSheet is a sheet as a grid of strings before header handling.
type rawSheet struct {
	name string
	rows [][]string
}

// rowBudget counts data rows across all sheets of a file.
type rowBudget struct {
	max  int
	used int
}

func (b *rowBudget) take() error {
	b.used++
	if b.used > b.max {
		return newLoadError(KindTooLarge, "", fmt.Errorf("more than %d rows", b.max))
	}
	return nil
}

// buildTable turns a raw grid into a Table. The first non-empty row is the
// header. Blank header cells become "Unnamed: N" and repeated names get a
// ".1", ".2" suffix. Fully empty rows are dropped. Returns nil when the grid
// has no non-empty row.
func buildTable(name string, grid [][]string) *domain.Table {
	headerIdx := -1
	for i, row := range grid {
		if !blankRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil
	}

	width := 0
	for _, row := range grid[headerIdx:] {
		if len(row) > width {
			width = len(row)
		}
	}

	header := grid[headerIdx]
	columns := make([]string, width)
	seen := make(map[string]int)
	for i := 0; i < width; i++ {
		col := ""
		if i < len(header) {
			col = strings.TrimSpace(header[i])
		}
		if col == "" {
			col = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := seen[col]; dup {
			seen[col] = n + 1
			col = col + "." + strconv.Itoa(n+1)
		} else {
			seen[col] = 0
		}
		columns[i] = col
	}

	var rows [][]string
	for _, row := range grid[headerIdx+1:] {
		if !blankRow(row) {
			rows = append(rows, row)
		}
	}

	// Drop unnamed columns that never hold a value.
	keep := make([]bool, width)
	for i, col := range columns {
		if !strings.HasPrefix(col, "Unnamed: ") {
			keep[i] = true
			continue
		}
		for _, row := range rows {
			if i < len(row) && strings.TrimSpace(row[i]) != "" {
				keep[i] = true
				break
			}
		}
	}

	table := &domain.Table{Name: name}
	for i, col := range columns {
		if keep[i] {
			table.Columns = append(table.Columns, col)
		}
	}
	table.Rows = make([]domain.Row, 0, len(rows))
	for _, raw := range rows {
		row := make(domain.Row, len(table.Columns))
		for i, col := range columns {
			if !keep[i] {
				continue
			}
			cell := ""
			if i < len(raw) {
				cell = raw[i]
			}
			row[col] = domain.NewValue(cell)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
