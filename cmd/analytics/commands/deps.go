package commands

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/analysisconfig"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/audit"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/observability"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/storage"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/storage/clickhouse"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/storage/migrations"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/storage/postgres"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/config"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/database"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/logger"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/redis"
)

// =============================================================================
// Shared wiring
// =============================================================================

// initConfig loads the environment and applies global flag overrides
func initConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if paramsFile != "" {
		cfg.Analytics.ParamsFile = paramsFile
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, logger.New(cfg), nil
}

// initParams resolves the run parameters and logs advisory warnings
func initParams(cfg *config.Config, log *logger.Logger) (*analysisconfig.Params, error) {
	params, err := analysisconfig.Resolve(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve params: %w", err)
	}
	for _, w := range analysisconfig.Warn(params) {
		log.WithField("code", w.Code).Warn(w.Message)
	}
	return params, nil
}

// stores is the storage wiring of one process
type stores struct {
	db     *database.DB
	ch     *clickhouse.Conn // nil unless TRADES_SOURCE=clickhouse
	trades storage.TradeStore
	writer storage.TradeWriter
	runs   storage.ReportRunStore
}

func (s *stores) Close() {
	if s.ch != nil {
		s.ch.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

// openStores connects PostgreSQL (always: report runs live there) and,
// when configured, ClickHouse as the trade source
func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	s := &stores{db: db, runs: postgres.NewReportRunStore(db.Pool)}

	if cfg.Storage.AutoMigrate {
		if err := migrations.RunPostgres(ctx, db.Pool); err != nil {
			s.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}

	switch cfg.Storage.TradeSource {
	case "clickhouse":
		conn, err := clickhouse.NewConn(ctx, cfg.Storage.ClickHouseDSN)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.ch = conn
		if cfg.Storage.AutoMigrate {
			if err := migrations.RunClickhouse(ctx, conn); err != nil {
				s.Close()
				return nil, fmt.Errorf("migrate clickhouse: %w", err)
			}
		}
		ts := clickhouse.NewTradeStore(conn)
		s.trades, s.writer = ts, ts
	default:
		ts := postgres.NewTradeStore(db.Pool)
		s.trades, s.writer = ts, ts
	}

	log.WithFields(map[string]interface{}{
		"trade_source": cfg.Storage.TradeSource,
		"auto_migrate": cfg.Storage.AutoMigrate,
	}).Info("Storage connected")

	return s, nil
}

// services is the storage-backed report wiring shared by serve and worker
type services struct {
	stores  *stores
	redis   *redis.Client
	cache   *redis.Cache
	metrics *observability.Metrics
	service *audit.ReportService
}

func (s *services) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.stores != nil {
		s.stores.Close()
	}
}

// initServices connects storage and Redis and builds the report service.
// Metrics are registered on reg.
func initServices(ctx context.Context, cfg *config.Config, log *logger.Logger, reg prometheus.Registerer) (*services, error) {
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	rdb, err := redis.New(ctx, cfg)
	if err != nil {
		st.Close()
		return nil, err
	}
	if rdb.Enabled() {
		log.Info("Connected to Redis")
	}

	metrics := observability.NewMetrics(reg)
	observability.RegisterPool(reg, "postgres", func() (int32, int32, int32) {
		ps := st.db.Stats()
		return ps.AcquiredConns, ps.IdleConns, ps.TotalConns
	})
	cache := redis.NewCache(rdb, redis.KeyPrefix)
	analyzer := audit.NewAnalyzer(log, metrics)

	return &services{
		stores:  st,
		redis:   rdb,
		cache:   cache,
		metrics: metrics,
		service: audit.NewReportService(analyzer, st.trades, st.runs, cache, log).WithCacheTTL(cfg.Redis.ReportTTL),
	}, nil
}
