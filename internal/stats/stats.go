// Package stats holds the small set of estimators shared by every calculator.
// All functions are total: empty or degenerate input yields 0, never NaN.
package stats

import (
	"math"
	"sort"
)

// TradingDaysPerYear is the annualization factor for daily ratios
const TradingDaysPerYear = 252

// Mean returns the arithmetic mean
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation (N-1 denominator)
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

// Median returns the middle value (mean of the two middle values for even N)
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := Sorted(values)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Percentile returns the p-th percentile (0..100) of an ascending slice,
// linearly interpolated
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	idx := p / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Sorted returns an ascending copy
func Sorted(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// Negatives returns the strictly negative subset, preserving order
func Negatives(values []float64) []float64 {
	out := make([]float64, 0)
	for _, v := range values {
		if v < 0 {
			out = append(out, v)
		}
	}
	return out
}

// SimpleReturns converts a value series into period-over-period simple returns.
// A non-positive previous value yields a 0 return for that period.
func SimpleReturns(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (values[i]-prev)/prev)
	}
	return out
}

// Finite replaces NaN and ±Inf with 0
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Covariance returns the sample covariance of the first min(len(x), len(y)) pairs
func Covariance(x, y []float64) float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n < 2 {
		return 0
	}
	mx, my := Mean(x[:n]), Mean(y[:n])
	var sum float64
	for i := 0; i < n; i++ {
		sum += (x[i] - mx) * (y[i] - my)
	}
	return sum / float64(n-1)
}

// zeroVarianceTol is the relative tolerance below which a stdev is treated as 0
const zeroVarianceTol = 1e-12

// IsZeroVariance reports whether sd is rounding noise relative to the series mean.
// A constant series like [0.003, 0.003, 0.003] has a computed stdev near 1e-18, not 0.
func IsZeroVariance(sd, mean float64) bool {
	return sd <= zeroVarianceTol*math.Max(1, math.Abs(mean))
}

// IsNearZero reports |v| below the same tolerance
func IsNearZero(v float64) bool {
	return math.Abs(v) < zeroVarianceTol
}
