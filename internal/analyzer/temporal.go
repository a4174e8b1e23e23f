package analyzer

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/dvloznov/trading-analyzer/internal/domain"
)

var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// ParseTimestamps parses every non-empty cell of column in row order. The
// returned string is the first cell that failed to parse.
func ParseTimestamps(table *domain.Table, column string) ([]time.Time, string, bool) {
	var out []time.Time
	for _, v := range table.Values(column) {
		if v.IsEmpty() {
			continue
		}
		t, ok := v.Time()
		if !ok {
			return nil, v.String(), false
		}
		out = append(out, t)
	}
	return out, "", true
}

// analyzeTemporal builds the temporal block. rows is the number of table
// rows used for the transaction frequency.
func analyzeTemporal(column string, timestamps []time.Time, rows int) *domain.TemporalStats {
	sorted := append([]time.Time(nil), timestamps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	first, last := sorted[0], sorted[len(sorted)-1]
	period := int(last.Sub(first).Hours() / 24)

	ts := &domain.TemporalStats{
		Column:               column,
		Timestamps:           timestamps,
		PeriodDays:           period,
		FirstTransaction:     first,
		LastTransaction:      last,
		TransactionFrequency: float64(rows) / float64(max(period, 1)),
		WeekdayDistribution:  WeekdayHistogram(timestamps),
		HourlyDistribution:   HourHistogram(timestamps),
		MonthlyActivity:      MonthHistogram(timestamps),
	}

	ts.MostActiveWeekday, _ = ts.WeekdayDistribution.Mode()
	ts.PeakTradingHour, _ = ts.HourlyDistribution.Mode()
	ts.MostActiveMonth, _ = ts.MonthlyActivity.Mode()

	if len(ts.MonthlyActivity) >= 2 {
		counts := make([]float64, len(ts.MonthlyActivity))
		for i, b := range ts.MonthlyActivity {
			counts[i] = float64(b.Count)
		}
		s := slope(counts)
		ts.MonthlyTrend = "decreasing"
		if s > 0 {
			ts.MonthlyTrend = "increasing"
		}
		ts.TrendStrength = ptr(math.Abs(s))
	}

	return ts
}

// WeekdayHistogram counts timestamps per weekday, Monday first. Days
// without activity are left out.
func WeekdayHistogram(timestamps []time.Time) domain.Histogram {
	var counts [7]int
	for _, t := range timestamps {
		counts[t.Weekday()]++
	}
	var h domain.Histogram
	for _, d := range weekdayOrder {
		if counts[d] > 0 {
			h = append(h, domain.Bin{Label: d.String(), Count: counts[d]})
		}
	}
	return h
}

// HourHistogram counts timestamps per hour of day, labelled "H:00".
func HourHistogram(timestamps []time.Time) domain.Histogram {
	var counts [24]int
	for _, t := range timestamps {
		counts[t.Hour()]++
	}
	var h domain.Histogram
	for hour, c := range counts {
		if c > 0 {
			h = append(h, domain.Bin{Label: strconv.Itoa(hour) + ":00", Count: c})
		}
	}
	return h
}

// MonthHistogram counts timestamps per calendar month ("2006-01"), in
// chronological order.
func MonthHistogram(timestamps []time.Time) domain.Histogram {
	counts := make(map[string]int)
	for _, t := range timestamps {
		counts[fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))]++
	}
	months := make([]string, 0, len(counts))
	for m := range counts {
		months = append(months, m)
	}
	sort.Strings(months)

	h := make(domain.Histogram, 0, len(months))
	for _, m := range months {
		h = append(h, domain.Bin{Label: m, Count: counts[m]})
	}
	return h
}

