package loader

import (
	"strings"

	"github.com/dvloznov/trading-analyzer/internal/domain"
)

// SheetValidation is a quick structural check of one table.
type SheetValidation struct {
	Rows              int  `json:"rows"`
	Columns           int  `json:"columns"`
	HasData           bool `json:"has_data"`
	HasNumericColumns bool `json:"has_numeric_columns"`
	HasDateColumns    bool `json:"has_date_columns"`
	HasAmountColumns  bool `json:"has_amount_columns"`
	MinRows           bool `json:"min_rows"`
}

// Validate inspects every table of wb. Date and amount columns are found by
// keyword containment in the column name.
func Validate(wb *domain.Workbook, dateKeywords, amountKeywords []string, minRows int) map[string]SheetValidation {
	out := make(map[string]SheetValidation, len(wb.Tables))
	for _, t := range wb.Tables {
		v := SheetValidation{
			Rows:    t.Len(),
			Columns: len(t.Columns),
			HasData: t.Len() > 0,
			MinRows: t.Len() >= minRows,
		}
		for _, col := range t.Columns {
			name := strings.ToLower(col)
			if containsAny(name, dateKeywords) {
				v.HasDateColumns = true
			}
			if containsAny(name, amountKeywords) {
				v.HasAmountColumns = true
			}
			if !v.HasNumericColumns && t.IsNumeric(col) {
				v.HasNumericColumns = true
			}
		}
		out[t.Name] = v
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(s, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
