package portfolio

import (
	"sort"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/trading-analyzer/internal/analyzer"
	"github.com/dvloznov/trading-analyzer/internal/domain"
)

func globalTemporal(sheets []domain.SheetStatistics) domain.TemporalAnalysis {
	var all []time.Time
	for _, s := range sheets {
		if s.Temporal != nil {
			all = append(all, s.Temporal.Timestamps...)
		}
	}
	if len(all) == 0 {
		return domain.TemporalAnalysis{}
	}

	first, last := all[0], all[0]
	for _, t := range all[1:] {
		if t.Before(first) {
			first = t
		}
		if t.After(last) {
			last = t
		}
	}

	weekdays := analyzer.WeekdayHistogram(all)
	hours := analyzer.HourHistogram(all)
	months := analyzer.MonthHistogram(all)
	daily := DailyActivity(all)

	patterns := &domain.GlobalActivityPatterns{
		TotalPeriodDays: int(last.Sub(first).Hours() / 24),
		ActiveDays:      len(daily),
	}
	patterns.MostActiveDay, _ = weekdays.Mode()
	patterns.PeakHour, _ = hours.Mode()

	seasonality := &domain.SeasonalityAnalysis{
		MonthlyActivity: months,
		WeekdayActivity: weekdays,
		HourlyActivity:  hours,
		DailyActivity:   daily,
	}
	seasonality.MostActiveMonth, _ = months.Mode()

	return domain.TemporalAnalysis{
		GlobalActivityPatterns: patterns,
		SeasonalityAnalysis:    seasonality,
	}
}

// DailyActivity counts timestamps per calendar day, oldest first.
func DailyActivity(timestamps []time.Time) []domain.DailyCount {
	counts := make(map[civil.Date]int)
	for _, t := range timestamps {
		counts[civil.DateOf(t)]++
	}
	out := make([]domain.DailyCount, 0, len(counts))
	for d, c := range counts {
		out = append(out, domain.DailyCount{Date: d, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
