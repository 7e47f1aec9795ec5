package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/api"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/api/handlers"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/audit"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/observability"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/redis"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

DATABASE_URL이 없으면 요청 본문 기반 분석 엔드포인트만 제공합니다.

Endpoints:
  GET  /health                          - Health check (DB/Redis/ClickHouse)
  GET  /metrics                         - Prometheus metrics
  POST /api/analytics/report            - 요청 본문 거래로 리포트 계산
  POST /api/analytics/validate          - 데이터 품질 검사
  POST /api/analytics/correlation       - 전략 간 상관관계
  GET  /api/strategies                  - 저장된 전략 목록
  GET  /api/strategies/{id}/report      - 전략 리포트 (캐시)
  POST /api/strategies/{id}/recompute   - 리포트 재계산
  GET  /api/strategies/{id}/runs        - 리포트 실행 이력
  GET  /api/strategies/correlation      - 저장된 전략 상관관계

Example:
  go run ./cmd/analytics serve
  go run ./cmd/analytics serve --port 8080`,
	RunE: runServe,
}

var (
	servePort string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. Load config
	cfg, log, err := initConfig()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Port = servePort
	}
	params, err := initParams(cfg, log)
	if err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"port":   cfg.Port,
		"env":    cfg.Env,
		"params": params.Name,
	}).Info("Initializing API server")

	// 2. Metrics registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := api.Deps{
		Config:   cfg,
		Logger:   log,
		Gatherer: reg,
		Checks:   map[string]api.HealthCheck{},
	}

	// 3. Storage-backed services (optional)
	var (
		cache   *redis.Cache
		rdb     *redis.Client
		metrics *observability.Metrics
	)
	if cfg.Database.URL != "" {
		svcs, err := initServices(ctx, cfg, log, reg)
		if err != nil {
			return err
		}
		defer svcs.Close()

		cache, rdb, metrics = svcs.cache, svcs.redis, svcs.metrics
		deps.Strategies = handlers.NewStrategyHandler(svcs.service, *params, log)
		db := svcs.stores.db
		deps.Checks["database"] = func(ctx context.Context) error {
			_, err := db.HealthCheck(ctx)
			return err
		}
		if ch := svcs.stores.ch; ch != nil {
			deps.Checks["clickhouse"] = ch.Ping
		}
	} else {
		log.Warn("DATABASE_URL not set: stored strategy endpoints disabled")
		if rdb, err = redis.New(ctx, cfg); err != nil {
			return err
		}
		defer rdb.Close()
		metrics = observability.NewMetrics(reg)
		cache = redis.NewCache(rdb, redis.KeyPrefix)
	}
	if rdb.Enabled() {
		deps.Checks["redis"] = rdb.Ping
		deps.ComputeLimiter = redis.NewRateLimiter(rdb, redis.KeyPrefix)
	}

	analyzer := audit.NewAnalyzer(log, metrics)
	deps.Metrics = metrics
	deps.Analytics = handlers.NewAnalyticsHandler(analyzer, *params, cache, log)

	// 4. Create server
	server := api.New(cfg, log, api.NewRouter(deps))

	// 5. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	out := cmd.OutOrStdout()
	printSuccess(out, fmt.Sprintf("Server running on http://localhost:%s", cfg.Port))
	fmt.Fprintln(out, "Press Ctrl+C to stop")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
