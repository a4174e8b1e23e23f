// Package filter removes rows and sheets that do not describe trading
// activity.
package filter

import (
	"strings"

	"github.com/dvloznov/trading-analyzer/internal/domain"
)

// Trading returns a copy of table without the rows whose typeColumn value
// contains any exclusion word, and the number of rows removed. With no type
// column the table is returned unchanged. The input is never modified.
func Trading(table *domain.Table, typeColumn string, exclusions []string) (*domain.Table, int) {
	if typeColumn == "" || !table.HasColumn(typeColumn) {
		return table, 0
	}

	words := lower(exclusions)
	out := table.Filter(func(row domain.Row) bool {
		return !containsAny(strings.ToLower(row.Get(typeColumn).String()), words)
	})
	return out, table.Len() - out.Len()
}

// TradingSubset keeps only rows whose typeColumn value contains a trading
// keyword. It returns nil when there is no type column.
func TradingSubset(table *domain.Table, typeColumn string, keywords []string) *domain.Table {
	if typeColumn == "" || !table.HasColumn(typeColumn) {
		return nil
	}

	words := lower(keywords)
	return table.Filter(func(row domain.Row) bool {
		return containsAny(strings.ToLower(row.Get(typeColumn).String()), words)
	})
}

func lower(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
