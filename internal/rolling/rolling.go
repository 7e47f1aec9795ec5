// Package rolling computes trailing-window risk metrics over a daily equity series.
package rolling

import (
	"math"
	"time"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/performance"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/stats"
)

// DefaultWindows are the window sizes (days) used when none are requested
var DefaultWindows = []int{30, 90, 365}

// DateRange trims output points; zero bounds are open
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t is inside the range (inclusive)
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// Compute returns one series per window. For index i >= w the trailing slice
// [i-w, i] is evaluated, so every window sees its full history even when the
// visible range starts later. Windows <= 0 are skipped.
// O(n*w) per window.
func Compute(points []contracts.EquityPoint, windows []int, visible DateRange) []contracts.RollingMetricsData {
	if len(windows) == 0 {
		windows = DefaultWindows
	}

	out := make([]contracts.RollingMetricsData, 0, len(windows))
	values := contracts.EquityValues(points)

	for _, w := range windows {
		if w <= 0 {
			continue
		}
		data := contracts.RollingMetricsData{WindowDays: w, Points: []contracts.RollingPoint{}}

		for i := w; i < len(points); i++ {
			if !visible.Contains(points[i].Time) {
				continue
			}
			data.Points = append(data.Points, window(points[i].Time, values[i-w:i+1]))
		}
		out = append(out, data)
	}
	return out
}

func window(at time.Time, equity []float64) contracts.RollingPoint {
	p := contracts.RollingPoint{Date: at}

	dd := maxDrawdownPct(equity)
	p.MaxDrawdown = &dd

	if first := equity[0]; first > 0 {
		ret := 100 * (equity[len(equity)-1]/first - 1)
		p.ReturnPct = &ret
	}

	returns := stats.SimpleReturns(equity)
	if len(returns) < 2 {
		return p
	}
	sd := stats.StdDev(returns)
	vol := 100 * sd * math.Sqrt(stats.TradingDaysPerYear)
	p.Volatility = &vol

	if stats.IsZeroVariance(sd, stats.Mean(returns)) {
		return p
	}
	sharpe := performance.Sharpe(returns)
	sortino := performance.Sortino(returns)
	p.Sharpe = &sharpe
	p.Sortino = &sortino
	return p
}

// DefaultBenchmarkWindow is the trailing window (days) of rolling beta/alpha
const DefaultBenchmarkWindow = 60

// Benchmark returns rolling beta/alpha of daily strategy returns against
// aligned benchmark returns. days, strategy and benchmark share one index
// (strategy[i] is the return into days[i]); point i uses the w returns ending
// at i, matching the equity window of Compute. window <= 0 uses
// DefaultBenchmarkWindow.
func Benchmark(days []time.Time, strategy, benchmark []float64, window int, visible DateRange) contracts.RollingBenchmarkData {
	if window <= 0 {
		window = DefaultBenchmarkWindow
	}
	n := len(days)
	if len(strategy) < n {
		n = len(strategy)
	}
	if len(benchmark) < n {
		n = len(benchmark)
	}

	data := contracts.RollingBenchmarkData{WindowDays: window, Points: []contracts.RollingBenchmarkPoint{}}
	for i := window; i < n; i++ {
		if !visible.Contains(days[i]) {
			continue
		}
		p := contracts.RollingBenchmarkPoint{Date: days[i]}
		s, b := strategy[i-window+1:i+1], benchmark[i-window+1:i+1]
		if len(s) >= 2 && !stats.IsZeroVariance(stats.StdDev(b), stats.Mean(b)) {
			bm := performance.BetaAlpha(s, b)
			p.Beta, p.AlphaPct = &bm.Beta, &bm.AlphaPct
		}
		data.Points = append(data.Points, p)
	}
	return data
}

// maxDrawdownPct returns the deepest peak-to-trough decline as a positive %
func maxDrawdownPct(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0]
	worst := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := 100 * (peak - v) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
