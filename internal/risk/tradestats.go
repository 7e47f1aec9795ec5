// Package risk computes trade-level statistics and ruin/position-sizing estimates.
//
// Everything here works on the raw trade list, not on the equity curve.
package risk

import (
	"math"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/equity"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/stats"
)

// Options tunes CalculateTradeStats
type Options struct {
	StartingCapital float64 // <= 0 uses equity.DefaultStartingCapital
	Multiplier      float64 // contract multiplier for notional, <= 0 means 1
}

// CalculateTradeStats aggregates win/loss behaviour and attaches the ruin estimate.
// Empty input yields zero stats with nil RiskOfRuinDetails.
func CalculateTradeStats(trades []contracts.Trade, opts Options) contracts.TradeStats {
	var s contracts.TradeStats
	s.TotalTrades = len(trades)
	if len(trades) == 0 {
		return s
	}

	sorted := equity.SortByExit(trades)
	pnls := make([]float64, len(sorted))
	holding := make([]float64, len(sorted))
	returnsPct := make([]float64, 0, len(sorted))

	for i, t := range sorted {
		pnl := t.PnLDollars()
		pnls[i] = pnl
		holding[i] = t.HoldingMinutes()
		s.TotalCommission += float64(t.Commission) / 100

		switch {
		case pnl > 0:
			s.WinningTrades++
			s.GrossWins += pnl
		case pnl < 0:
			s.LosingTrades++
			s.GrossLosses += -pnl
		default:
			s.FlatTrades++
		}

		if notional := t.Notional(opts.Multiplier) / 100; notional > 0 {
			returnsPct = append(returnsPct, pnl/notional*100)
		}
	}

	ordered := stats.Sorted(pnls)
	s.WorstTrade = ordered[0]
	s.BestTrade = ordered[len(ordered)-1]
	s.MeanTrade = stats.Mean(pnls)
	s.MedianTrade = stats.Median(pnls)
	s.WinRate = 100 * float64(s.WinningTrades) / float64(s.TotalTrades)

	if s.WinningTrades > 0 {
		s.AvgWin = s.GrossWins / float64(s.WinningTrades)
	}
	if s.LosingTrades > 0 {
		s.AvgLoss = s.GrossLosses / float64(s.LosingTrades)
	}
	s.ProfitFactor = ProfitFactor(s.GrossWins, s.GrossLosses)

	s.Expectancy = s.MeanTrade
	s.ExpectancyPct = stats.Mean(returnsPct)

	s.AvgHoldingMinutes = stats.Mean(holding)
	s.MedianHoldingMinutes = stats.Median(holding)

	s.LongestWinStreak, s.LongestLossStreak = Streaks(pnls)

	s.RiskOfRuinDetails = CalculateRiskOfRuin(s, opts.StartingCapital)
	return s
}

// ProfitFactor returns grossWins/grossLosses.
// +Inf when there are wins but no losses, 0 when both are zero.
func ProfitFactor(grossWins, grossLosses float64) float64 {
	if grossLosses == 0 {
		if grossWins > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return grossWins / grossLosses
}

// Streaks returns the longest winning and losing runs of an exit-ordered P&L series.
// A sign change resets the opposite streak; zero P&L touches neither.
func Streaks(pnls []float64) (longestWin, longestLoss int) {
	win, loss := 0, 0
	for _, pnl := range pnls {
		switch {
		case pnl > 0:
			win++
			loss = 0
		case pnl < 0:
			loss++
			win = 0
		default:
			continue
		}
		if win > longestWin {
			longestWin = win
		}
		if loss > longestLoss {
			longestLoss = loss
		}
	}
	return longestWin, longestLoss
}
