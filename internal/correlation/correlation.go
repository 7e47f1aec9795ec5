// Package correlation builds cross-strategy correlation matrices of daily returns.
package correlation

import (
	"math"
	"sort"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/stats"
)

// Matrix computes pairwise Pearson correlation of the daily simple returns of
// each equity curve. Labels are sorted; the diagonal is 1 by definition and
// every pair is evaluated with the same formula so the matrix is symmetric.
func Matrix(curves map[string][]float64) contracts.CorrelationMatrix {
	labels := make([]string, 0, len(curves))
	for label := range curves {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	returns := make([][]float64, len(labels))
	for i, label := range labels {
		returns[i] = Returns(curves[label])
	}

	matrix := make([][]float64, len(labels))
	for i := range matrix {
		matrix[i] = make([]float64, len(labels))
		matrix[i][i] = 1
	}
	for i := 0; i < len(labels); i++ {
		for j := i + 1; j < len(labels); j++ {
			r := Pearson(returns[i], returns[j])
			matrix[i][j] = r
			matrix[j][i] = r
		}
	}

	return contracts.CorrelationMatrix{Labels: labels, Matrix: matrix}
}

// Returns converts an equity series to daily simple returns
func Returns(equity []float64) []float64 {
	return stats.SimpleReturns(equity)
}

// Pearson returns the correlation of x and y over their first min(len) values.
// 0 when the overlap is shorter than 2 or either side has zero variance.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n < 2 {
		return 0
	}
	x, y = x[:n], y[:n]

	mx, my := stats.Mean(x), stats.Mean(y)
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	sdX, sdY := math.Sqrt(sxx/float64(n-1)), math.Sqrt(syy/float64(n-1))
	if stats.IsZeroVariance(sdX, mx) || stats.IsZeroVariance(sdY, my) {
		return 0
	}

	r := sxy / math.Sqrt(sxx*syy)
	return math.Max(-1, math.Min(1, stats.Finite(r)))
}
