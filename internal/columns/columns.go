// Package columns assigns semantic roles to free-form spreadsheet columns
// by keyword containment.
package columns

import (
	"math"
	"strings"

	"github.com/dvloznov/trading-analyzer/internal/config"
	"github.com/dvloznov/trading-analyzer/internal/domain"
)

// minPnLMagnitude is the largest absolute value a fallback PnL column must
// exceed.
const minPnLMagnitude = 0.01

// Rule binds a role to the keywords that select it.
type Rule struct {
	Role     domain.Role
	Keywords []string
}

// Rules returns the ordered role rules for vocab.
func Rules(vocab config.VocabularyConfig) []Rule {
	return []Rule{
		{Role: domain.RoleTimestamp, Keywords: vocab.Timestamp},
		{Role: domain.RoleAmount, Keywords: vocab.Amount},
		{Role: domain.RoleType, Keywords: vocab.Type},
		{Role: domain.RoleAsset, Keywords: vocab.Asset},
	}
}

// Match returns the first column, left to right, whose lowercased name
// contains any keyword.
func Match(columns []string, keywords []string) (string, bool) {
	for _, col := range columns {
		if containsAny(strings.ToLower(col), keywords) {
			return col, true
		}
	}
	return "", false
}

// Infer resolves every role for table, including the main PnL column.
func Infer(table *domain.Table, vocab config.VocabularyConfig) domain.ColumnRoleMap {
	var roles domain.ColumnRoleMap
	for _, rule := range Rules(vocab) {
		if col, ok := Match(table.Columns, rule.Keywords); ok {
			roles.Set(rule.Role, col)
		}
	}
	roles.MainPnL = MainPnLColumn(table, vocab)
	return roles
}

// MainPnLColumn picks the column used for financial totals. PnL keywords
// are tried in priority order against every column, with underscores read
// as spaces on both sides. Failing that, the first amount-tagged numeric
// column with a value above minPnLMagnitude in absolute terms is used.
// An empty result means the table is not a trading sheet.
func MainPnLColumn(table *domain.Table, vocab config.VocabularyConfig) string {
	for _, keyword := range vocab.PnL {
		k := normalize(keyword)
		if k == "" {
			continue
		}
		for _, col := range table.Columns {
			if strings.Contains(normalize(col), k) {
				return col
			}
		}
	}

	for _, col := range AmountColumns(table, vocab) {
		if !table.IsNumeric(col) {
			continue
		}
		if maxAbs(table.Numbers(col)) > minPnLMagnitude {
			return col
		}
	}
	return ""
}

// AmountColumns lists every amount-tagged column in header order.
func AmountColumns(table *domain.Table, vocab config.VocabularyConfig) []string {
	var out []string
	for _, col := range table.Columns {
		if containsAny(strings.ToLower(col), vocab.Amount) {
			out = append(out, col)
		}
	}
	return out
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", " ")
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(s, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

func maxAbs(values []float64) float64 {
	m := 0.0
	for _, v := range values {
		m = math.Max(m, math.Abs(v))
	}
	return m
}
