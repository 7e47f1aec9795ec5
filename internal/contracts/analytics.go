package contracts

import "time"

// =============================================================================
// Correlation
// =============================================================================

// CorrelationMatrix is a square symmetric matrix with unit diagonal
type CorrelationMatrix struct {
	Labels []string    `json:"labels"`
	Matrix [][]float64 `json:"matrix"`
}

// Get returns the correlation between two labels, false if either is unknown
func (m CorrelationMatrix) Get(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, label := range m.Labels {
		if label == a {
			i = k
		}
		if label == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Matrix[i][j], true
}

// =============================================================================
// Rolling metrics
// =============================================================================

// RollingPoint holds trailing-window metrics indexed by the window's last date
// nil means the window had too few return observations.
type RollingPoint struct {
	Date        time.Time `json:"date"`
	ReturnPct   *float64  `json:"return_pct"`     // 윈도우 첫 값 대비 %
	Volatility  *float64  `json:"volatility_pct"` // 연환산 표본 표준편차 %
	Sharpe      *float64  `json:"sharpe"`
	Sortino     *float64  `json:"sortino"`
	MaxDrawdown *float64  `json:"max_drawdown"`
}

// RollingMetricsData is the rolling series of one window size (days)
type RollingMetricsData struct {
	WindowDays int            `json:"window_days"`
	Points     []RollingPoint `json:"points"`
}

// RollingBenchmarkPoint holds trailing-window beta/alpha against a benchmark.
// nil means the window had too few observations or a flat benchmark.
type RollingBenchmarkPoint struct {
	Date     time.Time `json:"date"`
	Beta     *float64  `json:"beta"`
	AlphaPct *float64  `json:"alpha_pct"`
}

// RollingBenchmarkData is the rolling beta/alpha series of one window size (days)
type RollingBenchmarkData struct {
	WindowDays int                     `json:"window_days"`
	Points     []RollingBenchmarkPoint `json:"points"`
}

// =============================================================================
// Distribution
// =============================================================================

// DistributionBucket is one fixed-width histogram bucket of daily % returns
type DistributionBucket struct {
	RangeStart float64 `json:"range_start"`
	RangeEnd   float64 `json:"range_end"`
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// DistributionStats holds the moments and tails of daily % returns
type DistributionStats struct {
	Observations   int     `json:"observations"`
	Mean           float64 `json:"mean"`
	StdDev         float64 `json:"std_dev"`
	Median         float64 `json:"median"`
	Min            float64 `json:"min"`
	Max            float64 `json:"max"`
	Skewness       float64 `json:"skewness"`
	ExcessKurtosis float64 `json:"excess_kurtosis"`
	PctAbove1      float64 `json:"pct_above_1"`
	PctBelowMinus1 float64 `json:"pct_below_minus_1"`

	// VaR/CVaR: 손실을 양수로 표현 (percentage points)
	VaR95  float64 `json:"var_95"`
	CVaR95 float64 `json:"cvar_95"`
	VaR99  float64 `json:"var_99"`
	CVaR99 float64 `json:"cvar_99"`
}

// Distribution is the histogram plus statistics of a return series
type Distribution struct {
	Buckets  []DistributionBucket `json:"buckets"`
	Stats    DistributionStats    `json:"stats"`
	Warnings []string             `json:"warnings,omitempty"`
}
