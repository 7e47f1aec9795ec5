// Package distribution describes the shape of a daily return series:
// moments, tail fractions, historical VaR and a fixed-width histogram.
// Inputs and outputs are percentage points (1.0 = 1%).
package distribution

import (
	"fmt"
	"math"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/stats"
)

// HistogramConfig fixes the bucket grid
type HistogramConfig struct {
	BucketWidth float64 `json:"bucket_width" yaml:"bucket_width"`
	Min         float64 `json:"min" yaml:"min"`
	Max         float64 `json:"max" yaml:"max"`
}

// DefaultHistogramConfig is 0.5-point buckets over [-5, +5]
func DefaultHistogramConfig() HistogramConfig {
	return HistogramConfig{BucketWidth: 0.5, Min: -5, Max: 5}
}

// Valid reports whether the grid has at least one bucket
func (c HistogramConfig) Valid() bool {
	return c.BucketWidth > 0 && c.Max > c.Min
}

// bucketCount rounds to absorb float noise in (max-min)/width
func (c HistogramConfig) bucketCount() int {
	return int(math.Max(1, math.Round((c.Max-c.Min)/c.BucketWidth)))
}

// percentageTolerance is the allowed drift of summed bucket percentages from 100
const percentageTolerance = 0.1

// Analyze computes distribution statistics and the histogram of daily % returns.
// An invalid grid falls back to the default with a warning.
func Analyze(returnsPct []float64, cfg HistogramConfig) contracts.Distribution {
	dist := contracts.Distribution{Warnings: []string{}}
	if !cfg.Valid() {
		dist.Warnings = append(dist.Warnings, fmt.Sprintf("invalid histogram config %+v, using default", cfg))
		cfg = DefaultHistogramConfig()
	}

	dist.Stats = Describe(returnsPct)
	dist.Buckets = Histogram(returnsPct, cfg)

	if len(returnsPct) > 0 {
		sum := 0.0
		for _, b := range dist.Buckets {
			sum += b.Percentage
		}
		if math.Abs(sum-100) > percentageTolerance {
			dist.Warnings = append(dist.Warnings, fmt.Sprintf("bucket percentages sum to %.2f", sum))
		}
	}
	return dist
}

// Describe computes moments, tails and VaR of a % return series
func Describe(returnsPct []float64) contracts.DistributionStats {
	s := contracts.DistributionStats{Observations: len(returnsPct)}
	n := len(returnsPct)
	if n == 0 {
		return s
	}

	sorted := stats.Sorted(returnsPct)
	s.Mean = stats.Mean(returnsPct)
	s.StdDev = stats.StdDev(returnsPct)
	s.Median = stats.Median(returnsPct)
	s.Min = sorted[0]
	s.Max = sorted[n-1]

	if s.StdDev > 0 {
		var m3, m4 float64
		for _, x := range returnsPct {
			z := (x - s.Mean) / s.StdDev
			z2 := z * z
			m3 += z2 * z
			m4 += z2 * z2
		}
		s.Skewness = m3 / float64(n)
		s.ExcessKurtosis = m4/float64(n) - 3
	}

	above, below := 0, 0
	for _, x := range returnsPct {
		if x > 1 {
			above++
		}
		if x < -1 {
			below++
		}
	}
	s.PctAbove1 = 100 * float64(above) / float64(n)
	s.PctBelowMinus1 = 100 * float64(below) / float64(n)

	v95 := HistoricalVaR(returnsPct, 0.95)
	v99 := HistoricalVaR(returnsPct, 0.99)
	s.VaR95, s.CVaR95 = v95.VaR, v95.CVaR
	s.VaR99, s.CVaR99 = v99.VaR, v99.CVaR
	return s
}

// Histogram buckets values on a fixed grid; out-of-range values (±Inf included)
// land in the nearest edge bucket and NaN is not counted.
// Percentages are of the counted values, rounded to 2 decimals.
func Histogram(values []float64, cfg HistogramConfig) []contracts.DistributionBucket {
	if !cfg.Valid() {
		cfg = DefaultHistogramConfig()
	}
	n := cfg.bucketCount()

	buckets := make([]contracts.DistributionBucket, n)
	for i := range buckets {
		start := cfg.Min + float64(i)*cfg.BucketWidth
		end := start + cfg.BucketWidth
		if i == n-1 {
			end = cfg.Max
		}
		buckets[i] = contracts.DistributionBucket{
			RangeStart: start,
			RangeEnd:   end,
			Label:      fmt.Sprintf("%.1f%% to %.1f%%", start, end),
		}
	}

	counted := 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		// float 공간에서 clamp: 큰 값의 int 변환은 overflow
		f := math.Floor((v - cfg.Min) / cfg.BucketWidth)
		idx := 0
		switch {
		case f >= float64(n):
			idx = n - 1
		case f > 0:
			idx = int(f)
		}
		buckets[idx].Count++
		counted++
	}

	if counted > 0 {
		for i := range buckets {
			pct := 100 * float64(buckets[i].Count) / float64(counted)
			buckets[i].Percentage = math.Round(pct*100) / 100
		}
	}
	return buckets
}
