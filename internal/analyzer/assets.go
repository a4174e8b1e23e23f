package analyzer

import (
	"sort"

	"github.com/dvloznov/trading-analyzer/internal/domain"
)

// diversifiedBelow is the Herfindahl index under which activity counts as
// diversified.
const diversifiedBelow = 0.5

// ValueCounts counts the non-empty cells of column, most frequent first.
// Ties keep first-seen order.
func ValueCounts(table *domain.Table, column string) domain.Histogram {
	index := make(map[string]int)
	var h domain.Histogram
	for _, v := range table.Values(column) {
		if v.IsEmpty() {
			continue
		}
		label := v.String()
		if i, ok := index[label]; ok {
			h[i].Count++
			continue
		}
		index[label] = len(h)
		h = append(h, domain.Bin{Label: label, Count: 1})
	}
	sort.SliceStable(h, func(i, j int) bool { return h[i].Count > h[j].Count })
	return h
}

// analyzeAssets returns nil when the column holds no values.
func analyzeAssets(table *domain.Table, column string) *domain.AssetStats {
	counts := ValueCounts(table, column)
	if len(counts) == 0 {
		return nil
	}

	total := float64(counts.Total())
	hhi := 0.0
	for _, b := range counts {
		share := float64(b.Count) / total
		hhi += share * share
	}

	return &domain.AssetStats{
		Column:               column,
		Distribution:         counts,
		UniqueAssets:         len(counts),
		MostTradedAsset:      counts[0].Label,
		AssetConcentration:   float64(counts[0].Count) / float64(table.Len()) * 100,
		HerfindahlIndex:      hhi,
		DiversificationScore: 1 - hhi,
		IsDiversified:        hhi < diversifiedBelow,
	}
}

// analyzeTypes returns nil when the column holds no values.
func analyzeTypes(table *domain.Table, column string) *domain.TypeStats {
	counts := ValueCounts(table, column)
	if len(counts) == 0 {
		return nil
	}
	return &domain.TypeStats{
		Column:      column,
		Counts:      counts,
		UniqueTypes: len(counts),
	}
}
