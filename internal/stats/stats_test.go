package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanAndStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	assert.InDelta(t, 5.0, Mean(values), 1e-12)
	// sample variance = 32/7
	assert.InDelta(t, math.Sqrt(32.0/7.0), StdDev(values), 1e-12)
}

func TestDegenerateInputs(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, StdDev([]float64{1}))
	assert.Equal(t, 0.0, Median(nil))
	assert.Equal(t, 0.0, Percentile(nil, 50))
	assert.Empty(t, SimpleReturns([]float64{100}))
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 3.0, Median([]float64{5, 1, 3}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{25, 2},
		{50, 3},
		{90, 4.6},
		{100, 5},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, Percentile(sorted, tt.p), 1e-12, "p=%v", tt.p)
	}
}

func TestSimpleReturns(t *testing.T) {
	got := SimpleReturns([]float64{100, 105, 0, 10})

	assert.Len(t, got, 3)
	assert.InDelta(t, 0.05, got[0], 1e-12)
	assert.InDelta(t, -1.0, got[1], 1e-12)
	assert.Equal(t, 0.0, got[2], "previous value <= 0 yields 0")
}

func TestFinite(t *testing.T) {
	assert.Equal(t, 0.0, Finite(math.NaN()))
	assert.Equal(t, 0.0, Finite(math.Inf(-1)))
	assert.Equal(t, 1.5, Finite(1.5))
}

func TestCovariance(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{2, 4, 6, 8, 100} // extra value ignored

	assert.InDelta(t, 2*StdDev(x)*StdDev(x), Covariance(x, y), 1e-12)
	assert.Equal(t, 0.0, Covariance([]float64{1}, []float64{2}))
}

func TestIsZeroVariance(t *testing.T) {
	for _, v := range []float64{0.003, 0.1, -0.003, 1e6} {
		values := []float64{v, v, v, v, v}
		assert.True(t, IsZeroVariance(StdDev(values), Mean(values)), "constant %v", v)
	}

	assert.True(t, IsZeroVariance(0, 0))
	assert.False(t, IsZeroVariance(1e-6, 0.003))
	assert.False(t, IsZeroVariance(StdDev([]float64{0.01, -0.005, 0.02}), 0.008))

	assert.True(t, IsNearZero(1e-17))
	assert.True(t, IsNearZero(-1e-17))
	assert.False(t, IsNearZero(1e-9))
}
