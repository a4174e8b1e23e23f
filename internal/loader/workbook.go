package loader

import (
	"bytes"
	"context"
	"fmt"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// readXLSX streams every worksheet of an Office Open XML workbook.
func readXLSX(ctx context.Context, data []byte, limits Limits) ([]rawSheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, newLoadError(KindCorrupt, "", fmt.Errorf("open workbook: %w", err))
	}
	defer f.Close()

	budget := &rowBudget{max: limits.MaxRows}
	var sheets []rawSheet

	for _, name := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := f.Rows(name)
		if err != nil {
			return nil, newLoadError(KindCorrupt, "", fmt.Errorf("sheet %q: %w", name, err))
		}

		var grid [][]string
		for rows.Next() {
			cols, err := rows.Columns()
			if err != nil {
				rows.Close()
				return nil, newLoadError(KindCorrupt, "", fmt.Errorf("sheet %q: %w", name, err))
			}
			if blankRow(cols) {
				continue
			}
			if err := budget.take(); err != nil {
				rows.Close()
				return nil, err
			}
			grid = append(grid, cols)
		}
		if err := rows.Error(); err != nil {
			rows.Close()
			return nil, newLoadError(KindCorrupt, "", fmt.Errorf("sheet %q: %w", name, err))
		}
		if err := rows.Close(); err != nil {
			return nil, newLoadError(KindCorrupt, "", fmt.Errorf("sheet %q: %w", name, err))
		}

		sheets = append(sheets, rawSheet{name: name, rows: grid})
	}

	return sheets, nil
}

// readXLS reads a legacy BIFF workbook. The decoder panics on some
// malformed files, so panics are reported as corruption.
func readXLS(ctx context.Context, data []byte, limits Limits) (sheets []rawSheet, err error) {
	defer func() {
		if r := recover(); r != nil {
			sheets = nil
			err = newLoadError(KindCorrupt, "", fmt.Errorf("xls decoder: %v", r))
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, newLoadError(KindCorrupt, "", fmt.Errorf("open workbook: %w", err))
	}

	budget := &rowBudget{max: limits.MaxRows}

	for i := 0; i < wb.NumSheets(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}

		var grid [][]string
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheet.Row(r)
			if row == nil {
				continue
			}
			cols := make([]string, 0, row.LastCol())
			for c := 0; c < row.LastCol(); c++ {
				cols = append(cols, row.Col(c))
			}
			if blankRow(cols) {
				continue
			}
			if err := budget.take(); err != nil {
				return nil, err
			}
			grid = append(grid, cols)
		}

		sheets = append(sheets, rawSheet{name: sheet.Name, rows: grid})
	}

	return sheets, nil
}
