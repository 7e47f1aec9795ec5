package equity

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/calendar"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
)

func trade(id string, exit time.Time, pnl int64) contracts.Trade {
	return contracts.Trade{
		ID:         id,
		StrategyID: "S1",
		EntryTime:  exit.Add(-2 * time.Hour),
		ExitTime:   exit,
		Direction:  contracts.DirectionLong,
		EntryPrice: 10000,
		ExitPrice:  10000 + pnl,
		Quantity:   1,
		PnL:        pnl,
	}
}

func at(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func scenarioTrades() []contracts.Trade {
	// 입력 순서를 일부러 섞음
	return []contracts.Trade{
		trade("t3", at(2024, time.July, 3, 15), 20000),
		trade("t1", at(2024, time.July, 1, 15), 50000),
		trade("t2", at(2024, time.July, 2, 15), -30000),
	}
}

func TestBuildCurveScenario(t *testing.T) {
	curve := BuildCurve(scenarioTrades(), 100000)

	require.Len(t, curve.Points, 4)

	wantEquity := []float64{100000, 100500, 100200, 100400}
	wantPeak := []float64{100000, 100500, 100500, 100500}
	wantDD := []float64{0, 0, 0.2985, 0.0995}
	for i, p := range curve.Points {
		assert.Equal(t, wantEquity[i], p.Equity, "equity[%d]", i)
		assert.Equal(t, wantPeak[i], p.Peak, "peak[%d]", i)
		assert.InDelta(t, wantDD[i], p.DrawdownPct, 1e-4, "drawdown[%d]", i)
	}

	// synthetic first point sits at the first trade's entry
	assert.Equal(t, at(2024, time.July, 1, 13), curve.Points[0].Time)
	assert.Equal(t, "t1", curve.SortedTrades[0].ID)

	assert.InDelta(t, 0.2985, curve.MaxDrawdownPct, 1e-4)
	assert.Equal(t, 300.0, curve.MaxDrawdownAmount)
	assert.Equal(t, 100400.0, curve.FinalEquity)
	assert.True(t, curve.TotalPnL.Equal(decimal.NewFromInt(400)))
	assert.True(t, curve.Reconcile().IsZero())
}

func TestBuildCurveDoesNotMutateInput(t *testing.T) {
	trades := scenarioTrades()
	BuildCurve(trades, 100000)
	assert.Equal(t, "t3", trades[0].ID)
}

func TestBuildCurveEmpty(t *testing.T) {
	curve := BuildCurve(nil, 0)

	assert.True(t, curve.IsEmpty())
	assert.Equal(t, DefaultStartingCapital, curve.StartingCapital)
	assert.Equal(t, DefaultStartingCapital, curve.FinalEquity)
	assert.True(t, curve.TotalPnL.IsZero())
}

func TestBuildCurveInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	trades := make([]contracts.Trade, 0, 2000)
	base := at(2020, time.January, 2, 15)
	var sum int64
	for i := 0; i < 2000; i++ {
		pnl := rng.Int63n(200001) - 95000 // cents, slight positive drift
		sum += pnl
		trades = append(trades, trade(fmt.Sprintf("t%d", i), base.Add(time.Duration(i)*7*time.Hour), pnl))
	}

	curve := BuildCurve(trades, 250000)

	require.Len(t, curve.Points, len(trades)+1)
	assert.Equal(t, 250000.0, curve.Points[0].Equity)

	for i, p := range curve.Points {
		assert.GreaterOrEqual(t, p.Peak, p.Equity, "point %d", i)
		assert.GreaterOrEqual(t, p.DrawdownPct, 0.0)
		assert.LessOrEqual(t, p.DrawdownPct, 100.0)
		if p.Equity == p.Peak {
			assert.Zero(t, p.DrawdownPct, "point %d at peak", i)
		} else {
			assert.Greater(t, p.DrawdownPct, 0.0, "point %d below peak", i)
		}
	}

	// cents reconcile exactly
	assert.True(t, curve.TotalPnL.Equal(decimal.New(sum, -2)))
	assert.True(t, curve.Reconcile().IsZero())
}

func TestDrawdownGuardWhenPeakNotPositive(t *testing.T) {
	assert.Zero(t, drawdownPct(decimal.Zero, decimal.NewFromInt(-5)))
	assert.Zero(t, drawdownPct(decimal.NewFromInt(-10), decimal.NewFromInt(-20)))
}

func TestBuildDailyForwardFill(t *testing.T) {
	trades := []contracts.Trade{
		trade("a", at(2024, time.July, 1, 15), 50000),
		trade("b", at(2024, time.July, 1, 19), 10000),
		trade("c", at(2024, time.July, 8, 15), -20000),
	}

	series := BuildDaily(trades, 100000)

	// Jul 1,2,3,5,8 (Jul 4 holiday, weekend skipped)
	require.Len(t, series.Points, 5)
	wantDates := []time.Time{
		at(2024, time.July, 1, 0),
		at(2024, time.July, 2, 0),
		at(2024, time.July, 3, 0),
		at(2024, time.July, 5, 0),
		at(2024, time.July, 8, 0),
	}
	for i, p := range series.Points {
		assert.Equal(t, wantDates[i], p.Date)
		assert.True(t, calendar.IsTradingDay(p.Date))
	}

	first := series.Points[0]
	assert.Equal(t, 100600.0, first.Equity)
	assert.Equal(t, 600.0, first.DailyPnL)
	assert.Equal(t, 2, first.TradeCount)
	assert.False(t, first.IsForwardFilled)
	assert.InDelta(t, 0.006, first.DailyReturn, 1e-12)

	for _, p := range series.Points[1:4] {
		assert.True(t, p.IsForwardFilled)
		assert.Equal(t, 100600.0, p.Equity)
		assert.Zero(t, p.DailyReturn)
	}

	last := series.Points[4]
	assert.Equal(t, 100400.0, last.Equity)
	assert.InDelta(t, -200.0/100600.0, last.DailyReturn, 1e-12)

	require.Len(t, series.Returns, 5)
	require.Len(t, series.DownsideReturns, 1)
	assert.InDelta(t, -200.0/100600.0, series.DownsideReturns[0], 1e-12)
}

func TestBuildDailyBooksWeekendExitOnNextTradingDay(t *testing.T) {
	trades := []contracts.Trade{
		trade("a", at(2024, time.July, 5, 15), 10000),
		trade("b", at(2024, time.July, 6, 12), 5000), // Saturday
	}

	series := BuildDaily(trades, 100000)

	require.Len(t, series.Points, 2)
	assert.Equal(t, at(2024, time.July, 8, 0), series.Points[1].Date)
	assert.Equal(t, 50.0, series.Points[1].DailyPnL)
	assert.Equal(t, 100150.0, series.Points[1].Equity)
}

func TestBuildDailyEmpty(t *testing.T) {
	series := BuildDaily(nil, 100000)

	assert.True(t, series.IsEmpty())
	assert.Empty(t, series.Returns)
	assert.Empty(t, series.DownsideReturns)
}

func TestAsEquityPoints(t *testing.T) {
	series := BuildDaily(scenarioTrades(), 100000)
	points := series.AsEquityPoints()

	require.Len(t, points, 3)
	assert.Equal(t, 100500.0, points[0].Peak)
	assert.InDelta(t, 0.2985, points[1].DrawdownPct, 1e-4)
	assert.Equal(t, series.Points[2].Date, points[2].Time)
}
