package analyzer

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// sampleStd is the n-1 standard deviation. ok is false below two values.
func sampleStd(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	return stat.StdDev(values, nil), true
}

// slope fits counts against their index by ordinary least squares.
func slope(counts []float64) float64 {
	x := make([]float64, len(counts))
	floats.Span(x, 0, float64(len(counts)-1))
	_, beta := stat.LinearRegression(x, counts, nil, false)
	return beta
}

func summarize(values []float64) (total, mean, med, lo, hi float64) {
	total = floats.Sum(values)
	mean = stat.Mean(values, nil)
	med = median(values)
	lo = floats.Min(values)
	hi = floats.Max(values)
	return total, mean, med, lo, hi
}

func ptr(v float64) *float64 {
	return &v
}
