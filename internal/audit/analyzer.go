// Package audit assembles the calculators into performance reports.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/analysisconfig"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/distribution"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/drawdown"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/equity"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/observability"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/performance"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/quality"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/risk"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/rolling"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/logger"
)

// Analyzer builds performance reports from trade batches
// ⭐ SSOT: 계산기 조립 순서는 여기서만
type Analyzer struct {
	log     zerolog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewAnalyzer creates a new analyzer. metrics may be nil.
func NewAnalyzer(log *logger.Logger, metrics *observability.Metrics) *Analyzer {
	return &Analyzer{
		log:     log.Component("audit.analyzer"),
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Options are per-call inputs that are not part of the parameter profile
type Options struct {
	StrategyID string
	// Benchmark is aligned to the daily series' dates (benchmark.Series)
	Benchmark BenchmarkSource
	// Visible trims the rolling series only
	Visible rolling.DateRange
}

// BenchmarkSource yields one benchmark return per trading day
type BenchmarkSource interface {
	AlignedReturns(days []time.Time) []float64
}

// Analyze runs the full pipeline over trades.
// Shape edge cases inside the calculators never fail; only an empty batch,
// invalid params or a cancelled context do.
func (a *Analyzer) Analyze(ctx context.Context, trades []contracts.Trade, params *analysisconfig.Params, opts Options) (report *PerformanceReport, err error) {
	start := time.Now()
	defer func() { a.metrics.RecordReport(len(trades), time.Since(start), err) }()

	if params == nil {
		p := analysisconfig.Default()
		params = &p
	}
	if err := analysisconfig.Validate(params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if len(trades) == 0 {
		return nil, ErrNoTrades
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash, err := analysisconfig.Hash(params)
	if err != nil {
		return nil, err
	}

	report = &PerformanceReport{
		ID:         uuid.NewString(),
		StrategyID: opts.StrategyID,
		CreatedAt:  a.now(),
		Metadata: ReportMetadata{
			ParamsHash:  hash,
			Params:      *params,
			InputTrades: len(trades),
			Warnings:    analysisconfig.Warn(params),
		},
	}

	// 1. 데이터 품질 (원본 기준)
	report.Quality = quality.Assess(trades, params.QualityConfig())

	analyzed := trades
	if params.ExcludeInvalid {
		analyzed = quality.FilterValid(trades, report.Quality.Validations)
		if len(analyzed) == 0 {
			return nil, fmt.Errorf("%w: all %d trades are invalid", ErrNoTrades, len(trades))
		}
	}
	report.Metadata.AnalyzedTrades = len(analyzed)
	report.Metadata.ExcludedTrades = len(trades) - len(analyzed)

	// 2. 에쿼티 커브 (cents -> currency 변환은 여기서 한 번)
	curve := equity.BuildCurve(analyzed, params.StartingCapital)
	daily := equity.BuildDaily(analyzed, params.StartingCapital)
	report.EquityCurve = curve.Points
	report.DailyEquity = daily.Points
	report.Metadata.DataFrom = curve.SortedTrades[0].ExitTime
	report.Metadata.DataTo = curve.SortedTrades[len(curve.SortedTrades)-1].ExitTime

	if diff := curve.Reconcile(); !diff.IsZero() {
		a.log.Error().Str("diff", diff.String()).Msg("equity curve does not reconcile with summed P&L")
	}

	// 3. 수익률/리스크 지표
	metrics := performance.Calculate(curve, daily, performance.Options{YearsOverride: params.YearsOverride})
	stats := risk.CalculateTradeStats(analyzed, params.TradeStatsOptions())
	metrics.TradeStats = &stats
	report.Metrics = metrics

	// 4. 드로다운: underwater는 일별, major episode는 거래별 커브
	dailyPoints := daily.AsEquityPoints()
	report.Underwater = drawdown.Underwater(dailyPoints)
	report.DrawdownStats = drawdown.Stats(report.Underwater)
	report.MajorDrawdowns = drawdown.MajorDrawdowns(curve.Points, params.Drawdown.MajorThresholdPct)

	// 5. 롤링 / 분포
	report.Rolling = rolling.Compute(dailyPoints, params.Rolling.Windows, opts.Visible)
	report.Distribution = distribution.Analyze(daily.ReturnsPct(), params.Histogram)

	// 6. 벤치마크 (선택적)
	if opts.Benchmark != nil {
		days := make([]time.Time, len(daily.Points))
		for i, p := range daily.Points {
			days[i] = p.Date
		}
		benchReturns := opts.Benchmark.AlignedReturns(days)
		bm := performance.BetaAlpha(daily.Returns, benchReturns)
		report.Benchmark = &bm
		rb := rolling.Benchmark(days, daily.Returns, benchReturns, params.Rolling.BenchmarkWindow, opts.Visible)
		report.RollingBenchmark = &rb
	}

	// 7. Monte Carlo (선택적)
	if params.MonteCarlo.Enabled {
		if err := a.simulate(ctx, report, curve); err != nil {
			return nil, err
		}
	}

	report.Metadata.ElapsedMs = time.Since(start).Milliseconds()

	a.log.Info().
		Str("report_id", report.ID).
		Str("strategy_id", opts.StrategyID).
		Int("trades", len(analyzed)).
		Str("quality", string(report.Quality.Score)).
		Int64("elapsed_ms", report.Metadata.ElapsedMs).
		Msg("performance report generated")

	return report, nil
}

// simulate attaches the Monte Carlo result. Too few trades is a warning, not a failure.
func (a *Analyzer) simulate(ctx context.Context, report *PerformanceReport, curve equity.Curve) error {
	pnls := make([]float64, len(curve.SortedTrades))
	for i, t := range curve.SortedTrades {
		pnls[i] = t.PnLDollars()
	}

	mc, err := risk.SimulateRuin(ctx, pnls, curve.StartingCapital, report.Metadata.Params.MonteCarloConfig())
	switch {
	case errors.Is(err, risk.ErrInsufficientData):
		a.log.Warn().Err(err).Str("report_id", report.ID).Msg("Monte Carlo simulation skipped")
		report.Metadata.Warnings = append(report.Metadata.Warnings, analysisconfig.Warning{
			Code:    "MONTE_CARLO_SKIPPED",
			Message: err.Error(),
		})
		return nil
	case err != nil:
		return fmt.Errorf("monte carlo: %w", err)
	}

	report.MonteCarlo = mc
	return nil
}
