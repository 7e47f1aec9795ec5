package audit

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/analysisconfig"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/calendar"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/observability"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/logger"
)

// tradingDay returns the n-th trading day starting Monday 2024-03-04, at 20:00 UTC
func tradingDay(n int) time.Time {
	d := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		d = calendar.NextTradingDay(d)
	}
	return d.Add(20 * time.Hour)
}

// mkTrade builds a consistent LONG trade closing on trading day n with pnl cents
func mkTrade(id, strategy string, n int, pnl int64) contracts.Trade {
	exit := tradingDay(n)
	entry, exitPrice := int64(500000), int64(500000)
	switch {
	case pnl > 0:
		exitPrice += 100
	case pnl < 0:
		exitPrice -= 100
	}
	return contracts.Trade{
		ID: id, StrategyID: strategy,
		EntryTime: exit.Add(-3 * time.Hour), ExitTime: exit,
		Direction: contracts.DirectionLong, EntryPrice: entry, ExitPrice: exitPrice,
		Quantity: 1, PnL: pnl, Commission: 125,
	}
}

func newTestAnalyzer(t *testing.T) (*Analyzer, *observability.Metrics) {
	t.Helper()
	m := observability.NewMetrics(prometheus.NewRegistry())
	a := NewAnalyzer(logger.Nop(), m)
	a.now = func() time.Time { return time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC) }
	return a, m
}

func params(mutate func(*analysisconfig.Params)) *analysisconfig.Params {
	p := analysisconfig.Default()
	p.StartingCapital = 100000
	p.MonteCarlo.Seed = 42
	if mutate != nil {
		mutate(&p)
	}
	return &p
}

func TestAnalyzeScenario(t *testing.T) {
	a, m := newTestAnalyzer(t)
	trades := []contracts.Trade{
		mkTrade("t3", "ES", 2, 20000),
		mkTrade("t1", "ES", 0, 50000),
		mkTrade("t2", "ES", 1, -30000),
	}

	report, err := a.Analyze(context.Background(), trades, params(nil), Options{StrategyID: "ES"})
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "ES", report.StrategyID)
	assert.Equal(t, []float64{100000, 100500, 100200, 100400}, contracts.EquityValues(report.EquityCurve))
	assert.InDelta(t, 0.2985, report.Metrics.MaxDrawdownPct, 1e-4)
	assert.Equal(t, 100400.0, report.Metrics.FinalEquity)
	require.NotNil(t, report.Metrics.TradeStats)
	assert.Equal(t, 3, report.Metrics.TradeStats.TotalTrades)
	assert.Len(t, report.DailyEquity, 3)
	assert.Len(t, report.Underwater, 3)
	assert.Empty(t, report.MajorDrawdowns, "no episode deeper than -10%")
	assert.Equal(t, contracts.QualityExcellent, report.Quality.Score)

	assert.Nil(t, report.MonteCarlo, "3 trades is below min_samples")
	codes := []string{}
	for _, w := range report.Metadata.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Contains(t, codes, "MONTE_CARLO_SKIPPED")

	assert.Equal(t, 3, report.Metadata.AnalyzedTrades)
	assert.Equal(t, tradingDay(0), report.Metadata.DataFrom)
	assert.Equal(t, tradingDay(2), report.Metadata.DataTo)
	assert.Len(t, report.Metadata.ParamsHash, 64)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsComputed.WithLabelValues("ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.TradesAnalyzed))
}

func TestAnalyzeDoesNotMutateInput(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	trades := []contracts.Trade{mkTrade("b", "ES", 1, 100), mkTrade("a", "ES", 0, -50)}
	_, err := a.Analyze(context.Background(), trades, params(nil), Options{})
	require.NoError(t, err)
	assert.Equal(t, "b", trades[0].ID)
}

func TestAnalyzeErrors(t *testing.T) {
	a, m := newTestAnalyzer(t)
	ctx := context.Background()

	_, err := a.Analyze(ctx, nil, params(nil), Options{})
	assert.ErrorIs(t, err, ErrNoTrades)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsComputed.WithLabelValues("error")))

	_, err = a.Analyze(ctx, []contracts.Trade{mkTrade("a", "ES", 0, 100)},
		params(func(p *analysisconfig.Params) { p.StartingCapital = -1 }), Options{})
	var verr analysisconfig.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "starting_capital", verr.Field)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = a.Analyze(cancelled, []contracts.Trade{mkTrade("a", "ES", 0, 100)}, params(nil), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeNilParamsUsesDefault(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	report, err := a.Analyze(context.Background(), []contracts.Trade{mkTrade("a", "ES", 0, 100)}, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, "default", report.Metadata.Params.Name)
}

func TestAnalyzeExcludeInvalid(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	bad := mkTrade("bad", "ES", 1, 999999)
	bad.Quantity = 0
	trades := []contracts.Trade{mkTrade("a", "ES", 0, 1000), bad, mkTrade("c", "ES", 2, -400)}

	report, err := a.Analyze(context.Background(), trades, params(func(p *analysisconfig.Params) {
		p.ExcludeInvalid = true
	}), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Metadata.InputTrades)
	assert.Equal(t, 2, report.Metadata.AnalyzedTrades)
	assert.Equal(t, 1, report.Metadata.ExcludedTrades)
	assert.Equal(t, 1, report.Quality.InvalidTrades, "quality is graded on the raw batch")
	assert.Equal(t, 100006.0, report.Metrics.FinalEquity)

	_, err = a.Analyze(context.Background(), []contracts.Trade{bad}, params(func(p *analysisconfig.Params) {
		p.ExcludeInvalid = true
	}), Options{})
	assert.ErrorIs(t, err, ErrNoTrades)
}

func edgeTrades(strategy string, n int) []contracts.Trade {
	trades := make([]contracts.Trade, 0, n)
	for i := 0; i < n; i++ {
		pnl := int64(100000)
		if i%5 >= 3 {
			pnl = -50000
		}
		trades = append(trades, mkTrade(fmt.Sprintf("%s-%d", strategy, i), strategy, i, pnl))
	}
	return trades
}

func TestAnalyzeMonteCarloIsReproducible(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	trades := edgeTrades("ES", 20)

	r1, err := a.Analyze(context.Background(), trades, params(nil), Options{})
	require.NoError(t, err)
	r2, err := a.Analyze(context.Background(), trades, params(nil), Options{})
	require.NoError(t, err)

	require.NotNil(t, r1.MonteCarlo)
	assert.Equal(t, int64(42), r1.MonteCarlo.Config.Seed)
	assert.Equal(t, r1.MonteCarlo.RuinProbabilityPct, r2.MonteCarlo.RuinProbabilityPct)
	assert.Equal(t, r1.MonteCarlo.FinalEquity, r2.MonteCarlo.FinalEquity)
	assert.NotEqual(t, r1.ID, r2.ID)

	s := r1.Metrics.TradeStats
	assert.Equal(t, 60.0, s.WinRate)
	require.NotNil(t, s.RiskOfRuinDetails)
	assert.InDelta(t, 0.4, s.RiskOfRuinDetails.TradingAdvantage, 1e-9)
}

type fixedReturns []float64

func (f fixedReturns) AlignedReturns(days []time.Time) []float64 {
	return f[:min(len(f), len(days))]
}

func TestAnalyzeBenchmark(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	trades := edgeTrades("ES", 10)

	report, err := a.Analyze(context.Background(), trades, params(func(p *analysisconfig.Params) {
		p.MonteCarlo.Enabled = false
		p.Rolling.BenchmarkWindow = 5
	}), Options{Benchmark: fixedReturns{0.01, -0.005, 0.002, 0.004, -0.001, 0.003, 0.0, -0.002, 0.001, 0.002}})
	require.NoError(t, err)

	require.NotNil(t, report.Benchmark)
	assert.Equal(t, 10, report.Benchmark.Observations)
	assert.Nil(t, report.MonteCarlo)

	require.NotNil(t, report.RollingBenchmark)
	assert.Equal(t, 5, report.RollingBenchmark.WindowDays)
	require.Len(t, report.RollingBenchmark.Points, 5)
	for _, p := range report.RollingBenchmark.Points {
		assert.NotNil(t, p.Beta)
	}

	plain, err := a.Analyze(context.Background(), trades, params(nil), Options{})
	require.NoError(t, err)
	assert.Nil(t, plain.RollingBenchmark)
}

func TestAnalyzeStrategies(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	trades := append(edgeTrades("ES", 12), edgeTrades("NQ", 8)...)

	out, err := a.AnalyzeStrategies(context.Background(), trades, params(nil))
	require.NoError(t, err)

	require.Len(t, out.Strategies, 2)
	assert.Equal(t, 12, out.Strategies["ES"].Metrics.TradeStats.TotalTrades)
	assert.Equal(t, "NQ", out.Strategies["NQ"].StrategyID)
	require.NotNil(t, out.Combined)
	assert.Equal(t, 20, out.Combined.Metrics.TradeStats.TotalTrades)

	assert.Equal(t, []string{"ES", "NQ"}, out.Correlation.Labels)
	for i := range out.Correlation.Matrix {
		assert.Equal(t, 1.0, out.Correlation.Matrix[i][i])
	}
	assert.Equal(t, tradingDay(0), out.OverlapFrom.Add(20*time.Hour))
	assert.Equal(t, tradingDay(7), out.OverlapTo.Add(20*time.Hour))

	_, err = a.AnalyzeStrategies(context.Background(), nil, params(nil))
	assert.ErrorIs(t, err, ErrNoTrades)
}

func TestAlignDaily(t *testing.T) {
	day := func(n int) time.Time { return contracts.TruncateDay(tradingDay(n)) }
	series := func(from, to int) []contracts.DailyEquityPoint {
		var pts []contracts.DailyEquityPoint
		for i := from; i <= to; i++ {
			pts = append(pts, contracts.DailyEquityPoint{Date: day(i), Equity: float64(100 + i)})
		}
		return pts
	}

	curves, from, to := alignDaily(map[string]*PerformanceReport{
		"A": {DailyEquity: series(0, 5)},
		"B": {DailyEquity: series(2, 8)},
	})
	assert.Equal(t, day(2), from)
	assert.Equal(t, day(5), to)
	assert.Equal(t, []float64{102, 103, 104, 105}, curves["A"])
	assert.Equal(t, curves["A"], curves["B"])

	curves, from, _ = alignDaily(map[string]*PerformanceReport{
		"A": {DailyEquity: series(0, 1)},
		"B": {DailyEquity: series(3, 4)},
	})
	assert.True(t, from.IsZero())
	assert.Empty(t, curves["A"])
	assert.Empty(t, curves["B"])
}

func TestToSummary(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	report, err := a.Analyze(context.Background(), edgeTrades("ES", 20), params(nil), Options{StrategyID: "ES"})
	require.NoError(t, err)

	summary := report.ToSummary()
	for _, want := range []string{
		"=== Performance Report: ES (2024-04-01) ===",
		"Win Rate: 60.00%",
		"Sortino:",
		"sortino/v1",
		"Monte Carlo Simulation",
		"Data Quality: ",
	} {
		assert.True(t, strings.Contains(summary, want), "summary missing %q", want)
	}

	data, err := report.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"strategy_id": "ES"`)
}

func TestFormatProfitFactor(t *testing.T) {
	s := contracts.TradeStats{}
	assert.Equal(t, "0.00", formatProfitFactor(s.ProfitFactor))
	assert.Equal(t, "2.50", formatProfitFactor(2.5))
}
