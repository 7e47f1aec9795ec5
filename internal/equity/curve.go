// Package equity folds trade batches into equity trajectories.
//
// Cents are converted to decimal currency units exactly once, here. Running
// totals are accumulated with shopspring/decimal so the curve always
// reconciles with the directly summed P&L.
package equity

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
)

// DefaultStartingCapital is used when the caller supplies a non-positive capital
const DefaultStartingCapital = 100_000.0

var hundred = decimal.NewFromInt(100)

// Curve is the trade-by-trade equity trajectory
type Curve struct {
	Points          []contracts.EquityPoint
	StartingCapital float64
	FinalEquity     float64
	TotalPnL        decimal.Decimal
	// MaxDrawdownPct is positive (peak-to-trough percentage)
	MaxDrawdownPct    float64
	MaxDrawdownAmount float64
	// SortedTrades is the exit-sorted copy the curve was built from
	SortedTrades []contracts.Trade
}

// IsEmpty reports whether the curve has no points
func (c Curve) IsEmpty() bool {
	return len(c.Points) == 0
}

// Reconcile returns FinalEquity - StartingCapital - TotalPnL in exact decimal.
// A correct curve always reconciles to zero.
func (c Curve) Reconcile() decimal.Decimal {
	return decimal.NewFromFloat(c.FinalEquity).
		Sub(decimal.NewFromFloat(c.StartingCapital)).
		Sub(c.TotalPnL)
}

// NormalizeCapital maps a non-positive starting capital to the default
func NormalizeCapital(startingCapital float64) float64 {
	if startingCapital <= 0 {
		return DefaultStartingCapital
	}
	return startingCapital
}

// SortByExit returns a stable exit-time-ascending copy of trades
// ⭐ SSOT: exit 순서 정렬은 여기서만, 하위 계산기는 재정렬하지 않음
func SortByExit(trades []contracts.Trade) []contracts.Trade {
	sorted := make([]contracts.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ExitTime.Before(sorted[j].ExitTime)
	})
	return sorted
}

// BuildCurve folds trades into an equity curve.
// The first point is synthetic: the first (exit-sorted) trade's entry time at
// starting capital. Empty input yields an empty curve.
func BuildCurve(trades []contracts.Trade, startingCapital float64) Curve {
	startingCapital = NormalizeCapital(startingCapital)
	curve := Curve{
		Points:          []contracts.EquityPoint{},
		StartingCapital: startingCapital,
		FinalEquity:     startingCapital,
		TotalPnL:        decimal.Zero,
		SortedTrades:    SortByExit(trades),
	}
	if len(trades) == 0 {
		return curve
	}

	start := decimal.NewFromFloat(startingCapital)
	equity := start
	peak := start
	maxDDPct := 0.0
	maxDDAmount := decimal.Zero

	curve.Points = make([]contracts.EquityPoint, 0, len(trades)+1)
	curve.Points = append(curve.Points, contracts.EquityPoint{
		Time:        curve.SortedTrades[0].EntryTime,
		Equity:      startingCapital,
		Peak:        startingCapital,
		DrawdownPct: 0,
	})

	for _, t := range curve.SortedTrades {
		pnl := decimal.NewFromInt(t.PnL).Div(hundred)
		curve.TotalPnL = curve.TotalPnL.Add(pnl)
		equity = start.Add(curve.TotalPnL)

		if equity.GreaterThan(peak) {
			peak = equity
		}

		dd := drawdownPct(peak, equity)
		if dd > maxDDPct {
			maxDDPct = dd
		}
		if gap := peak.Sub(equity); gap.GreaterThan(maxDDAmount) {
			maxDDAmount = gap
		}

		curve.Points = append(curve.Points, contracts.EquityPoint{
			Time:        t.ExitTime,
			Equity:      equity.InexactFloat64(),
			Peak:        peak.InexactFloat64(),
			DrawdownPct: dd,
		})
	}

	curve.FinalEquity = equity.InexactFloat64()
	curve.MaxDrawdownPct = maxDDPct
	curve.MaxDrawdownAmount = maxDDAmount.InexactFloat64()
	return curve
}

// drawdownPct is 100*(peak-equity)/peak, 0 at a peak or when peak <= 0
func drawdownPct(peak, equity decimal.Decimal) float64 {
	if !peak.IsPositive() || !equity.LessThan(peak) {
		return 0
	}
	return peak.Sub(equity).Mul(hundred).Div(peak).InexactFloat64()
}

// WithDrawdown recomputes Peak/DrawdownPct for a series given only Time/Equity
func WithDrawdown(points []contracts.EquityPoint) []contracts.EquityPoint {
	out := make([]contracts.EquityPoint, len(points))
	peak := 0.0
	for i, p := range points {
		if i == 0 || p.Equity > peak {
			peak = p.Equity
		}
		dd := 0.0
		if peak > 0 && p.Equity < peak {
			dd = 100 * (peak - p.Equity) / peak
		}
		out[i] = contracts.EquityPoint{Time: p.Time, Equity: p.Equity, Peak: peak, DrawdownPct: dd}
	}
	return out
}
