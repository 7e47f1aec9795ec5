package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/analysisconfig"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/api/handlers"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/audit"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/calendar"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/observability"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/storage/memory"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/config"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/logger"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/redis"
)

func testConfig() *config.Config {
	return &config.Config{
		Port: "0",
		Env:  "development",
		API: config.APIConfig{
			RateLimit:      1000,
			RateBurst:      1000,
			ReadTimeout:    time.Second,
			WriteTimeout:   time.Second,
			MetricsEnabled: true,
		},
	}
}

// strategyTrades returns n trades on consecutive trading days, 3 of every 5 winning
func strategyTrades(strategy string, n int) []contracts.Trade {
	day := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	out := make([]contracts.Trade, 0, n)
	for i := 0; i < n; i++ {
		exit := day.Add(20 * time.Hour)
		pnl, exitPrice := int64(100000), int64(500100)
		if i%5 >= 3 {
			pnl, exitPrice = -50000, 499900
		}
		out = append(out, contracts.Trade{
			ID: fmt.Sprintf("%s-%03d", strategy, i), StrategyID: strategy,
			EntryTime: exit.Add(-2 * time.Hour), ExitTime: exit,
			Direction: contracts.DirectionLong, EntryPrice: 500000, ExitPrice: exitPrice,
			Quantity: 1, PnL: pnl,
		})
		day = calendar.NextTradingDay(day)
	}
	return out
}

type testEnv struct {
	handler http.Handler
	store   *memory.Store
}

func newTestEnv(t *testing.T, withStore bool, checks map[string]HealthCheck) testEnv {
	t.Helper()

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	log := logger.Nop()
	analyzer := audit.NewAnalyzer(log, metrics)
	cache := redis.NewCache(redis.Disabled(), redis.KeyPrefix)
	params := analysisconfig.Default()
	params.MonteCarlo.NumSimulations = 50
	params.MonteCarlo.Seed = 7

	deps := Deps{
		Config:    testConfig(),
		Logger:    log,
		Analytics: handlers.NewAnalyticsHandler(analyzer, params, cache, log),
		Metrics:   metrics,
		Gatherer:  reg,
		Checks:    checks,
	}

	env := testEnv{}
	if withStore {
		env.store = memory.NewStore()
		_, err := env.store.InsertTrades(context.Background(),
			append(strategyTrades("ES", 20), strategyTrades("NQ", 15)...))
		require.NoError(t, err)
		svc := audit.NewReportService(analyzer, env.store, env.store, cache, log)
		deps.Strategies = handlers.NewStrategyHandler(svc, params, log)
	}
	env.handler = NewRouter(deps)
	return env
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.10:40000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false, map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
	})
	rec := do(t, env.handler, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"strategy-analytics-api","dependencies":{"database":"ok"}}`, rec.Body.String())

	env = newTestEnv(t, false, map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	rec = do(t, env.handler, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

func TestAnalyticsReport(t *testing.T) {
	env := newTestEnv(t, false, nil)
	body := map[string]interface{}{
		"strategy_id": "ES",
		"trades":      strategyTrades("ES", 20),
		"params":      map[string]interface{}{"starting_capital": 50000},
	}

	rec := do(t, env.handler, http.MethodPost, "/api/analytics/report", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	var report audit.PerformanceReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "ES", report.StrategyID)
	assert.Equal(t, 20, report.Metrics.TradeStats.TotalTrades)
	assert.Equal(t, 50000.0, report.Metadata.Params.StartingCapital)

	rec = do(t, env.handler, http.MethodPost, "/api/analytics/report?format=summary", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, rec.Body.String(), "Performance Report: ES")
}

func TestAnalyticsReportErrors(t *testing.T) {
	env := newTestEnv(t, false, nil)

	tests := []struct {
		name string
		body interface{}
		code int
	}{
		{"no trades", map[string]interface{}{"trades": []contracts.Trade{}}, http.StatusUnprocessableEntity},
		{"unknown field", map[string]interface{}{"trades": []contracts.Trade{}, "bogus": 1}, http.StatusBadRequest},
		{"unknown param", map[string]interface{}{
			"trades": strategyTrades("ES", 5),
			"params": map[string]interface{}{"startin_capital": 1},
		}, http.StatusBadRequest},
		{"invalid param", map[string]interface{}{
			"trades": strategyTrades("ES", 5),
			"params": map[string]interface{}{"starting_capital": -1},
		}, http.StatusBadRequest},
		{"bad date", map[string]interface{}{
			"trades":       strategyTrades("ES", 5),
			"visible_from": "03/01/2024",
		}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, env.handler, http.MethodPost, "/api/analytics/report", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestAnalyticsValidate(t *testing.T) {
	env := newTestEnv(t, false, nil)
	trades := strategyTrades("ES", 5)
	trades[2].ExitTime = trades[2].EntryTime.Add(-time.Hour)

	rec := do(t, env.handler, http.MethodPost, "/api/analytics/validate", map[string]interface{}{"trades": trades})
	require.Equal(t, http.StatusOK, rec.Code)

	var q contracts.DataQualityReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	assert.Equal(t, 5, q.TotalTrades)
	assert.Equal(t, 1, q.InvalidTrades)
}

func TestAnalyticsCorrelation(t *testing.T) {
	env := newTestEnv(t, false, nil)
	trades := append(strategyTrades("ES", 20), strategyTrades("NQ", 20)...)

	rec := do(t, env.handler, http.MethodPost, "/api/analytics/correlation", map[string]interface{}{"trades": trades})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handlers.CorrelationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Strategies, 2)
	assert.NotNil(t, resp.Combined)
}

func TestStrategiesUnavailable(t *testing.T) {
	env := newTestEnv(t, false, nil)
	rec := do(t, env.handler, http.MethodGet, "/api/strategies", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStrategyEndpoints(t *testing.T) {
	env := newTestEnv(t, true, nil)

	rec := do(t, env.handler, http.MethodGet, "/api/strategies", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"strategies":["ES","NQ"],"count":2}`, rec.Body.String())

	rec = do(t, env.handler, http.MethodGet, "/api/strategies/ES/report", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	rec = do(t, env.handler, http.MethodGet, "/api/strategies/YM/report", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, env.handler, http.MethodPost, "/api/strategies/NQ/recompute", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"strategy_id":"NQ"`)

	rec = do(t, env.handler, http.MethodGet, "/api/strategies/ES/runs?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var runs struct {
		Runs []map[string]interface{} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs.Runs, 1)
	assert.NotContains(t, runs.Runs[0], "report", "list omits the report payload")

	rec = do(t, env.handler, http.MethodGet, "/api/strategies/ES/runs?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, env.handler, http.MethodGet, "/api/strategies/correlation?ids=ES,NQ", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"correlation"`)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, false, nil)
	do(t, env.handler, http.MethodGet, "/health", nil)

	rec := do(t, env.handler, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(),
		`strategy_analytics_http_requests_total{code="200",method="GET",route="/health"} 1`)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := do(t, h, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestIPLimiter(t *testing.T) {
	l := newIPLimiter(1, 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, l.allow("a", now))
	assert.True(t, l.allow("a", now))
	assert.False(t, l.allow("a", now), "burst exhausted")
	assert.True(t, l.allow("b", now), "buckets are per ip")
	assert.True(t, l.allow("a", now.Add(time.Second)), "refills at the configured rate")

	// idle buckets are dropped on the next sweep
	l.allow("c", now.Add(time.Hour))
	assert.NotContains(t, l.limiters, "b")
}

func TestRateLimitMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := rateLimitMiddleware(newIPLimiter(0.001, 1))(ok)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodGet, "/", nil).Code)
	rec := do(t, h, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestComputeLimitDisabledRedisAllows(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := computeLimitMiddleware(redis.NewRateLimiter(redis.Disabled(), redis.KeyPrefix), logger.Nop())(ok)

	rec := do(t, h, http.MethodPost, "/", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, fmt.Sprint(redis.ReportComputeLimit.Limit), rec.Header().Get("X-RateLimit-Remaining"))
}
