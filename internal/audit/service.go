package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/analysisconfig"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/storage"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/logger"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/redis"
)

// ReportService serves stored strategies' reports through the cache
// 조회 -> 캐시 -> 계산 -> 저장 순서
type ReportService struct {
	analyzer *Analyzer
	trades   storage.TradeStore
	runs     storage.ReportRunStore // nil이면 저장 생략
	cache    *redis.Cache
	ttl      time.Duration
	log      zerolog.Logger
}

// NewReportService creates a new report service
func NewReportService(analyzer *Analyzer, trades storage.TradeStore, runs storage.ReportRunStore, cache *redis.Cache, log *logger.Logger) *ReportService {
	return &ReportService{
		analyzer: analyzer,
		trades:   trades,
		runs:     runs,
		cache:    cache,
		ttl:      redis.TTLLong,
		log:      log.Component("audit.report_service"),
	}
}

// WithCacheTTL sets how long a computed strategy report stays cached (<= 0 keeps the default)
func (s *ReportService) WithCacheTTL(ttl time.Duration) *ReportService {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

// Strategies lists every strategy with stored trades
func (s *ReportService) Strategies(ctx context.Context) ([]string, error) {
	return s.trades.ListStrategyIDs(ctx)
}

// StrategyReport returns the cached report of a strategy or computes, caches
// and persists it. The bool reports a cache hit.
func (s *ReportService) StrategyReport(ctx context.Context, strategyID string, params *analysisconfig.Params) (*PerformanceReport, bool, error) {
	hash, err := analysisconfig.Hash(params)
	if err != nil {
		return nil, false, err
	}

	var report PerformanceReport
	cached, err := s.cache.GetOrSet(ctx, redis.ReportKey(strategyID, hash), &report, s.ttl,
		func() (interface{}, error) {
			return s.compute(ctx, strategyID, params)
		})
	if err != nil {
		return nil, false, err
	}
	s.analyzer.metrics.RecordCache(cached)

	return &report, cached, nil
}

// Recompute bypasses the cache: it computes a fresh report, drops every cached
// report of the strategy (other param sets included) and stores the new one.
func (s *ReportService) Recompute(ctx context.Context, strategyID string, params *analysisconfig.Params) (*PerformanceReport, error) {
	report, err := s.compute(ctx, strategyID, params)
	if err != nil {
		return nil, err
	}

	if _, err := s.cache.DeletePrefix(ctx, redis.StrategyReportPrefix(strategyID)); err != nil {
		s.log.Warn().Err(err).Str("strategy_id", strategyID).Msg("failed to invalidate cached reports")
	}
	if err := s.cache.Set(ctx, redis.ReportKey(strategyID, report.Metadata.ParamsHash), report, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("strategy_id", strategyID).Msg("failed to cache report")
	}

	return report, nil
}

// RecomputeAll recomputes every stored strategy. A failing strategy does not
// stop the others; failures are joined into the returned error.
func (s *ReportService) RecomputeAll(ctx context.Context, params *analysisconfig.Params) (int, error) {
	ids, err := s.trades.ListStrategyIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list strategies: %w", err)
	}

	var (
		done int
		errs []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.Recompute(ctx, id, params); err != nil {
			errs = append(errs, fmt.Errorf("strategy %s: %w", id, err))
			continue
		}
		done++
	}

	return done, errors.Join(errs...)
}

// Portfolio analyzes several stored strategies together (all when ids is empty)
func (s *ReportService) Portfolio(ctx context.Context, ids []string, params *analysisconfig.Params) (*PortfolioReport, error) {
	trades, err := s.trades.ListTrades(ctx, storage.TradeFilter{StrategyIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	return s.analyzer.AnalyzeStrategies(ctx, trades, params)
}

// Runs returns the persisted run history of a strategy, newest first
func (s *ReportService) Runs(ctx context.Context, strategyID string, limit int) ([]storage.ReportRun, error) {
	if s.runs == nil {
		return []storage.ReportRun{}, nil
	}
	return s.runs.ListRuns(ctx, strategyID, limit)
}

func (s *ReportService) compute(ctx context.Context, strategyID string, params *analysisconfig.Params) (*PerformanceReport, error) {
	trades, err := s.trades.ListTrades(ctx, storage.TradeFilter{StrategyIDs: []string{strategyID}})
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	if len(trades) == 0 {
		return nil, fmt.Errorf("strategy %s: %w", strategyID, ErrNoTrades)
	}

	report, err := s.analyzer.Analyze(ctx, trades, params, Options{StrategyID: strategyID})
	if err != nil {
		return nil, err
	}

	if s.runs != nil {
		run, err := ToRun(report)
		if err == nil {
			err = s.runs.SaveRun(ctx, run)
		}
		if err != nil {
			// 저장 실패해도 리포트는 반환
			s.log.Warn().Err(err).Str("report_id", report.ID).Msg("failed to persist report run")
		} else {
			s.analyzer.metrics.RecordPersisted()
		}
	}

	return report, nil
}

// ToRun flattens a report into its persisted summary
func ToRun(report *PerformanceReport) (*storage.ReportRun, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}

	m := report.Metrics
	return &storage.ReportRun{
		ID:              report.ID,
		StrategyID:      report.StrategyID,
		ParamsHash:      report.Metadata.ParamsHash,
		CreatedAt:       report.CreatedAt,
		TradeCount:      report.Metadata.AnalyzedTrades,
		QualityScore:    report.Quality.Score,
		StartingCapital: money(m.StartingCapital),
		FinalEquity:     money(m.FinalEquity),
		TotalPnL:        money(m.TotalPnL),
		TotalReturnPct:  m.TotalReturnPct,
		SharpeRatio:     m.SharpeRatio,
		SortinoRatio:    m.SortinoRatio,
		MaxDrawdownPct:  m.MaxDrawdownPct,
		Report:          payload,
	}, nil
}

// money rounds to cents; the curve keeps cents exact so this only removes float noise
func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
