// Package performance computes return and risk ratios from equity series.
package performance

import (
	"math"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/equity"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/stats"
)

// DaysPerYear converts elapsed calendar days to years
const DaysPerYear = 365.25

// Options tunes Calculate
type Options struct {
	// YearsOverride replaces the elapsed-years estimate when > 0
	YearsOverride float64
}

// Calculate derives PerformanceMetrics from the trade curve and the daily series.
// TradeStats is left nil; it is attached by the caller that owns the raw trades.
func Calculate(curve equity.Curve, daily equity.DailySeries, opts Options) contracts.PerformanceMetrics {
	m := contracts.PerformanceMetrics{
		StartingCapital:   curve.StartingCapital,
		FinalEquity:       curve.FinalEquity,
		TotalPnL:          curve.TotalPnL.InexactFloat64(),
		TradingDays:       len(daily.Points),
		SortinoConvention: contracts.SortinoConvention,
		MaxDrawdownPct:    curve.MaxDrawdownPct,
		MaxDrawdownAmount: curve.MaxDrawdownAmount,
	}
	if curve.IsEmpty() {
		return m
	}

	m.FirstExit = curve.SortedTrades[0].ExitTime
	m.LastExit = curve.SortedTrades[len(curve.SortedTrades)-1].ExitTime

	m.TotalReturnPct = TotalReturn(curve.StartingCapital, curve.FinalEquity)
	m.YearsElapsed = YearsElapsed(float64(contracts.DaysBetween(m.FirstExit, m.LastExit)), opts.YearsOverride)
	m.AnnualizedReturnPct = AnnualizedReturn(m.TotalReturnPct, m.YearsElapsed)

	m.SharpeRatio = Sharpe(daily.Returns)
	m.SortinoRatio = Sortino(daily.Returns)
	m.CalmarRatio = Calmar(m.AnnualizedReturnPct, m.MaxDrawdownPct)

	return m
}

// TotalReturn returns 100*(final-start)/start, 0 when start <= 0
func TotalReturn(start, final float64) float64 {
	if start <= 0 {
		return 0
	}
	return 100 * (final - start) / start
}

// YearsElapsed converts calendar days to years unless override > 0
func YearsElapsed(days, override float64) float64 {
	if override > 0 {
		return override
	}
	if days <= 0 {
		return 0
	}
	return days / DaysPerYear
}

// AnnualizedReturn compounds a total % return over years.
// Falls back to totalPct when years <= 0 and floors at -100 for a wiped-out account.
func AnnualizedReturn(totalPct, years float64) float64 {
	if years <= 0 {
		return totalPct
	}
	growth := 1 + totalPct/100
	if growth <= 0 {
		return -100
	}
	return stats.Finite(100 * (math.Pow(growth, 1/years) - 1))
}

// Sharpe returns mean/stdev * sqrt(252), risk-free rate 0.
// 0 for fewer than 2 observations or zero variance.
func Sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean, sd := stats.Mean(returns), stats.StdDev(returns)
	if stats.IsZeroVariance(sd, mean) {
		return 0
	}
	return stats.Finite(mean / sd * math.Sqrt(stats.TradingDaysPerYear))
}

// Sortino returns mean/downsideStdev * sqrt(252) under the sortino/v1 convention:
// downside stdev is the sample stdev of the strictly negative returns.
// With no negative return at all it equals Sharpe.
func Sortino(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	downside := stats.Negatives(returns)
	if len(downside) == 0 {
		return Sharpe(returns)
	}
	dd := stats.StdDev(downside)
	if stats.IsZeroVariance(dd, stats.Mean(downside)) {
		return 0
	}
	return stats.Finite(stats.Mean(returns) / dd * math.Sqrt(stats.TradingDaysPerYear))
}

// Calmar returns annualized return / max drawdown %, 0 without drawdown
func Calmar(annualizedPct, maxDrawdownPct float64) float64 {
	if maxDrawdownPct == 0 {
		return 0
	}
	return stats.Finite(annualizedPct / math.Abs(maxDrawdownPct))
}

// BetaAlpha compares aligned daily returns against a benchmark.
// Series are truncated to the shorter length; alpha is annualized in percentage points.
func BetaAlpha(strategy, benchmark []float64) contracts.BenchmarkComparison {
	n := len(strategy)
	if len(benchmark) < n {
		n = len(benchmark)
	}
	out := contracts.BenchmarkComparison{Observations: n}
	if n < 2 {
		return out
	}

	s, b := strategy[:n], benchmark[:n]
	sdB := stats.StdDev(b)
	if stats.IsZeroVariance(sdB, stats.Mean(b)) {
		return out
	}
	varB := sdB * sdB

	cov := stats.Covariance(s, b)
	out.Beta = cov / varB
	out.AlphaPct = (stats.Mean(s) - out.Beta*stats.Mean(b)) * stats.TradingDaysPerYear * 100

	if sdS := stats.StdDev(s); !stats.IsZeroVariance(sdS, stats.Mean(s)) {
		out.Correlation = math.Max(-1, math.Min(1, cov/(sdS*sdB)))
	}
	return out
}
