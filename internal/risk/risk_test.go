package risk

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
)

var base = time.Date(2024, time.March, 4, 14, 30, 0, 0, time.UTC)

// tradesFromPnL builds one trade per day in the given order, each held 90 minutes
func tradesFromPnL(pnlCents ...int64) []contracts.Trade {
	trades := make([]contracts.Trade, len(pnlCents))
	for i, pnl := range pnlCents {
		exit := base.AddDate(0, 0, i)
		trades[i] = contracts.Trade{
			ID:         string(rune('a' + i)),
			StrategyID: "S1",
			EntryTime:  exit.Add(-90 * time.Minute),
			ExitTime:   exit,
			Direction:  contracts.DirectionLong,
			EntryPrice: 500000, // $5,000
			ExitPrice:  500000 + pnl,
			Quantity:   1,
			PnL:        pnl,
			Commission: 250,
		}
	}
	return trades
}

func TestTradeStatsPositiveEdge(t *testing.T) {
	// 6 wins of $1000, 4 losses of $500
	trades := tradesFromPnL(100000, 100000, -50000, 100000, -50000, 100000, 100000, -50000, 100000, -50000)

	s := CalculateTradeStats(trades, Options{StartingCapital: 100000})

	assert.Equal(t, 10, s.TotalTrades)
	assert.Equal(t, 6, s.WinningTrades)
	assert.Equal(t, 4, s.LosingTrades)
	assert.Equal(t, 60.0, s.WinRate)
	assert.Equal(t, 1000.0, s.AvgWin)
	assert.Equal(t, 500.0, s.AvgLoss)
	assert.Equal(t, 1000.0, s.BestTrade)
	assert.Equal(t, -500.0, s.WorstTrade)
	assert.Equal(t, 400.0, s.MeanTrade)
	assert.Equal(t, 1000.0, s.MedianTrade)
	assert.Equal(t, 3.0, s.ProfitFactor)
	assert.Equal(t, 400.0, s.Expectancy)
	assert.InDelta(t, 8.0, s.ExpectancyPct, 1e-9) // $400 on $5,000 notional
	assert.Equal(t, 90.0, s.AvgHoldingMinutes)
	assert.Equal(t, 90.0, s.MedianHoldingMinutes)
	assert.Equal(t, 2, s.LongestWinStreak)
	assert.Equal(t, 1, s.LongestLossStreak)
	assert.Equal(t, 25.0, s.TotalCommission)

	require.NotNil(t, s.RiskOfRuinDetails)
	d := s.RiskOfRuinDetails
	assert.InDelta(t, 2.0, d.PayoffRatio, 1e-12)
	assert.InDelta(t, 0.4, d.TradingAdvantage, 1e-12)
	assert.InDelta(t, 200.0, d.CapitalUnits, 1e-12)
	assert.Less(t, d.RiskOfRuin, 1e-10)
	assert.InDelta(t, 40.0, d.KellyPct, 1e-9)

	require.NotNil(t, d.MinBalanceForZeroRisk)
	wantUnits := math.Log(TargetRiskOfRuin) / math.Log(0.6/1.4)
	assert.InDelta(t, wantUnits*500, *d.MinBalanceForZeroRisk, 1e-6)
}

func TestTradeStatsNegativeEdge(t *testing.T) {
	// 3 wins and 7 losses of $500
	trades := tradesFromPnL(50000, -50000, -50000, 50000, -50000, -50000, -50000, 50000, -50000, -50000)

	s := CalculateTradeStats(trades, Options{StartingCapital: 100000})

	require.NotNil(t, s.RiskOfRuinDetails)
	assert.InDelta(t, -0.4, s.RiskOfRuinDetails.TradingAdvantage, 1e-12)
	assert.Equal(t, 100.0, s.RiskOfRuinDetails.RiskOfRuin)
	assert.Zero(t, s.RiskOfRuinDetails.KellyPct)
	assert.Nil(t, s.RiskOfRuinDetails.MinBalanceForZeroRisk)
	assert.Equal(t, 3, s.LongestLossStreak)
}

func TestRiskOfRuinZeroAdvantage(t *testing.T) {
	// p=0.5, b=1 → A=0
	trades := tradesFromPnL(50000, -50000, 50000, -50000)

	s := CalculateTradeStats(trades, Options{})

	require.NotNil(t, s.RiskOfRuinDetails)
	assert.Zero(t, s.RiskOfRuinDetails.TradingAdvantage)
	assert.Equal(t, 50.0, s.RiskOfRuinDetails.RiskOfRuin)
}

func TestRiskOfRuinNearZeroAdvantage(t *testing.T) {
	// p=0.3, b=7/3 → A=0 analytically, float arithmetic leaves ~1e-17
	s := contracts.TradeStats{TotalTrades: 10, WinningTrades: 3, LosingTrades: 7, AvgWin: 700, AvgLoss: 300}

	d := CalculateRiskOfRuin(s, 100000)

	require.NotNil(t, d)
	assert.Zero(t, d.TradingAdvantage)
	assert.Equal(t, 50.0, d.RiskOfRuin)
	assert.Zero(t, d.KellyPct)
	assert.Nil(t, d.MinBalanceForZeroRisk)
}

func TestRiskOfRuinShrinksWithCapital(t *testing.T) {
	s := CalculateTradeStats(tradesFromPnL(60000, -50000, 60000, -50000, 60000), Options{})

	small := CalculateRiskOfRuin(s, 2000)
	large := CalculateRiskOfRuin(s, 200000)

	require.NotNil(t, small)
	require.NotNil(t, large)
	assert.Greater(t, small.RiskOfRuin, large.RiskOfRuin)
	assert.Less(t, large.RiskOfRuin, 1e-6)
}

func TestTradeStatsNoLosses(t *testing.T) {
	s := CalculateTradeStats(tradesFromPnL(10000, 20000), Options{})

	assert.True(t, math.IsInf(s.ProfitFactor, 1))
	assert.Nil(t, s.RiskOfRuinDetails, "no average loss")

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"profit_factor":"Infinity"`)

	var back contracts.TradeStats
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, math.IsInf(back.ProfitFactor, 1))
	assert.Equal(t, 2, back.WinningTrades)
}

func TestTradeStatsEmpty(t *testing.T) {
	s := CalculateTradeStats(nil, Options{})

	assert.Zero(t, s.TotalTrades)
	assert.Zero(t, s.ProfitFactor)
	assert.Nil(t, s.RiskOfRuinDetails)
}

func TestProfitFactor(t *testing.T) {
	assert.Zero(t, ProfitFactor(0, 0))
	assert.True(t, math.IsInf(ProfitFactor(5, 0), 1))
	assert.Equal(t, 2.5, ProfitFactor(5, 2))
}

func TestStreaksIgnoreFlatTrades(t *testing.T) {
	win, loss := Streaks([]float64{1, 0, 2, 0, 3, -1, 0, -2, 4})

	assert.Equal(t, 3, win, "zero P&L does not break the win streak")
	assert.Equal(t, 2, loss)
}

func TestStreaksUseExitOrder(t *testing.T) {
	trades := tradesFromPnL(10000, 10000, -10000)
	// 입력 순서를 뒤집어도 exit 순서로 계산
	reversed := []contracts.Trade{trades[2], trades[1], trades[0]}

	s := CalculateTradeStats(reversed, Options{})

	assert.Equal(t, 2, s.LongestWinStreak)
	assert.Equal(t, 1, s.LongestLossStreak)
}

func TestSimulateRuinIsReproducible(t *testing.T) {
	pnls := []float64{1000, -500, 1000, -500, 1000, 1000, -500, -500, 1000, -500}
	cfg := DefaultMonteCarloConfig()
	cfg.Seed = 42
	cfg.NumSimulations = 500

	first, err := SimulateRuin(context.Background(), pnls, 100000, cfg)
	require.NoError(t, err)
	second, err := SimulateRuin(context.Background(), pnls, 100000, cfg)
	require.NoError(t, err)

	assert.Equal(t, first.RuinProbabilityPct, second.RuinProbabilityPct)
	assert.Equal(t, first.FinalEquity, second.FinalEquity)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, 10, first.InputSampleCount)
	assert.Zero(t, first.RuinProbabilityPct)
	assert.LessOrEqual(t, first.FinalEquity[5], first.FinalEquity[50])
	assert.LessOrEqual(t, first.FinalEquity[50], first.FinalEquity[95])
}

func TestSimulateRuinCertainRuin(t *testing.T) {
	pnls := make([]float64, 10)
	for i := range pnls {
		pnls[i] = -20000
	}
	cfg := DefaultMonteCarloConfig()
	cfg.Seed = 1

	res, err := SimulateRuin(context.Background(), pnls, 100000, cfg)
	require.NoError(t, err)

	assert.Equal(t, 100.0, res.RuinProbabilityPct)
	assert.InDelta(t, -100000.0, res.FinalEquity[50], 1e-9)
}

func TestSimulateRuinErrors(t *testing.T) {
	_, err := SimulateRuin(context.Background(), nil, 100000, DefaultMonteCarloConfig())
	assert.True(t, errors.Is(err, ErrInsufficientData))

	cfg := DefaultMonteCarloConfig()
	cfg.NumSimulations = 0
	_, err = SimulateRuin(context.Background(), []float64{1}, 100000, cfg)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg = DefaultMonteCarloConfig()
	cfg.MinSamples = 1
	_, err = SimulateRuin(ctx, []float64{1, -1}, 100000, cfg)
	assert.ErrorIs(t, err, context.Canceled)
}
