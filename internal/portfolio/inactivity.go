package portfolio

import (
	"sort"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/trading-analyzer/internal/domain"
)

const (
	moderateGapDays = 7
	criticalGapDays = 30
)

func inactivityPatterns(sheets []domain.SheetStatistics, minGapDays int) domain.InactivityPatterns {
	patterns := domain.InactivityPatterns{
		AccountInactivity:  map[string]domain.AccountInactivity{},
		SeverityAssessment: domain.LevelLow,
	}

	highRisk := 0
	for _, s := range sheets {
		if s.Temporal == nil {
			continue
		}
		ai, ok := Inactivity(s.Temporal.Timestamps, minGapDays)
		if !ok {
			continue
		}
		patterns.AccountInactivity[s.Sheet] = ai
		if ai.RiskLevel == domain.LevelHigh {
			highRisk++
		}
	}

	switch {
	case float64(highRisk) > float64(len(sheets))/2:
		patterns.SeverityAssessment = domain.LevelHigh
	case highRisk > 0:
		patterns.SeverityAssessment = domain.LevelMedium
	}
	return patterns
}

// Inactivity measures the pauses between consecutive timestamps in whole
// days. Only gaps longer than minGapDays are listed, but every interval
// counts towards the maximum, the average and TotalGaps. ok is false
// with fewer than two timestamps.
func Inactivity(timestamps []time.Time, minGapDays int) (domain.AccountInactivity, bool) {
	if len(timestamps) < 2 {
		return domain.AccountInactivity{}, false
	}
	sorted := append([]time.Time(nil), timestamps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	ai := domain.AccountInactivity{
		TotalGaps:  len(sorted) - 1,
		Gaps:       []domain.InactivityGap{},
		LastActive: civil.DateOf(sorted[len(sorted)-1]),
	}

	sum := 0
	for i := 1; i < len(sorted); i++ {
		days := int(sorted[i].Sub(sorted[i-1]).Hours() / 24)
		sum += days
		ai.MaxInactivityDays = max(ai.MaxInactivityDays, days)
		if days > minGapDays {
			ai.Gaps = append(ai.Gaps, domain.InactivityGap{
				From:     civil.DateOf(sorted[i-1]),
				To:       civil.DateOf(sorted[i]),
				Days:     days,
				Severity: GapSeverity(days),
			})
		}
	}
	ai.AvgInactivityDays = float64(sum) / float64(ai.TotalGaps)

	switch {
	case ai.MaxInactivityDays > criticalGapDays:
		ai.RiskLevel = domain.LevelHigh
	case ai.MaxInactivityDays > moderateGapDays:
		ai.RiskLevel = domain.LevelMedium
	default:
		ai.RiskLevel = domain.LevelLow
	}
	return ai, true
}

// GapSeverity buckets a gap length in days.
func GapSeverity(days int) string {
	switch {
	case days > criticalGapDays:
		return domain.GapCritical
	case days > moderateGapDays:
		return domain.GapModerate
	default:
		return domain.GapMinor
	}
}
