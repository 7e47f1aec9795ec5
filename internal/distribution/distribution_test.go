package distribution

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeSymmetric(t *testing.T) {
	s := Describe([]float64{-2, -1, 0, 1, 2})

	assert.Equal(t, 5, s.Observations)
	assert.InDelta(t, 0.0, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), s.StdDev, 1e-12)
	assert.InDelta(t, 0.0, s.Skewness, 1e-12)
	assert.InDelta(t, 5.44/5-3, s.ExcessKurtosis, 1e-9)
	assert.Equal(t, 20.0, s.PctAbove1)
	assert.Equal(t, 20.0, s.PctBelowMinus1)
	assert.Equal(t, -2.0, s.Min)
	assert.Equal(t, 2.0, s.Max)
	assert.Equal(t, 0.0, s.Median)
}

func TestDescribeSkew(t *testing.T) {
	s := Describe([]float64{0, 0, 0, 0, 10})
	assert.Greater(t, s.Skewness, 0.0, "long right tail")

	s = Describe([]float64{0, 0, 0, 0, -10})
	assert.Less(t, s.Skewness, 0.0)
}

func TestDescribeDegenerate(t *testing.T) {
	empty := Describe(nil)
	assert.Zero(t, empty.Observations)
	assert.Zero(t, empty.StdDev)

	flat := Describe([]float64{0.5, 0.5, 0.5})
	assert.Zero(t, flat.Skewness)
	assert.Zero(t, flat.ExcessKurtosis)
}

func TestHistoricalVaR(t *testing.T) {
	returns := make([]float64, 100)
	for i := range returns {
		returns[i] = float64(i - 50) // -50 .. 49
	}

	v95 := HistoricalVaR(returns, 0.95)
	assert.Equal(t, 45.0, v95.VaR)
	assert.InDelta(t, 47.5, v95.CVaR, 1e-12)

	v99 := HistoricalVaR(returns, 0.99)
	assert.Equal(t, 49.0, v99.VaR)
	assert.InDelta(t, 49.5, v99.CVaR, 1e-12)

	gains := HistoricalVaR([]float64{1, 2, 3}, 0.95)
	assert.Zero(t, gains.VaR, "no loss in the tail")
	assert.Zero(t, gains.CVaR)

	assert.Zero(t, HistoricalVaR(nil, 0.95).VaR)
}

func TestHistogramClampsEdges(t *testing.T) {
	buckets := Histogram([]float64{-7, -5, 0.2, 4.9, 5, 9}, DefaultHistogramConfig())

	require.Len(t, buckets, 20)
	assert.Equal(t, -5.0, buckets[0].RangeStart)
	assert.Equal(t, 5.0, buckets[19].RangeEnd)
	assert.Equal(t, "-5.0% to -4.5%", buckets[0].Label)

	assert.Equal(t, 2, buckets[0].Count, "-7 clamped into the first bucket")
	assert.Equal(t, 1, buckets[10].Count)
	assert.Equal(t, 3, buckets[19].Count, "4.9, 5 and 9 in the last bucket")

	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	assert.Equal(t, 6, total)
}

func TestHistogramExtremeValues(t *testing.T) {
	buckets := Histogram([]float64{1e300, math.Inf(1), -1e300, math.Inf(-1), math.NaN()}, DefaultHistogramConfig())

	require.Len(t, buckets, 20)
	assert.Equal(t, 2, buckets[19].Count, "huge positive returns land in the last bucket")
	assert.Equal(t, 2, buckets[0].Count)
	assert.Equal(t, 50.0, buckets[19].Percentage, "NaN is not counted")

	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	assert.Equal(t, 4, total)
}

func TestAnalyzePercentagesSumTo100(t *testing.T) {
	returns := []float64{-1.2, -0.3, 0.1, 0.4, 0.45, 0.8, 1.7, 2.2, -3.1}

	dist := Analyze(returns, DefaultHistogramConfig())

	sum := 0.0
	for _, b := range dist.Buckets {
		sum += b.Percentage
	}
	assert.InDelta(t, 100.0, sum, 0.1)
	assert.Empty(t, dist.Warnings)
	assert.Equal(t, len(returns), dist.Stats.Observations)
}

func TestAnalyzeInvalidConfigFallsBack(t *testing.T) {
	dist := Analyze([]float64{0.1}, HistogramConfig{BucketWidth: 0, Min: 1, Max: -1})

	require.Len(t, dist.Warnings, 1)
	assert.Len(t, dist.Buckets, 20)
}

func TestAnalyzeEmpty(t *testing.T) {
	dist := Analyze(nil, DefaultHistogramConfig())

	assert.Len(t, dist.Buckets, 20)
	for _, b := range dist.Buckets {
		assert.Zero(t, b.Count)
		assert.Zero(t, b.Percentage)
	}
	assert.Empty(t, dist.Warnings)
}
