package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/api/handlers"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/observability"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/config"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/logger"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/redis"
)

// HealthCheck probes one dependency (database, redis, clickhouse)
type HealthCheck func(ctx context.Context) error

// Deps bundles everything the router wires
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	Analytics  *handlers.AnalyticsHandler
	Strategies *handlers.StrategyHandler // nil when no trade storage is configured
	Metrics    *observability.Metrics
	Gatherer   prometheus.Gatherer
	// ComputeLimiter, when set, bounds report computations across instances
	ComputeLimiter *redis.RateLimiter
	Checks         map[string]HealthCheck
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(d Deps) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler(d.Checks)).Methods("GET")

	if d.Config.API.MetricsEnabled && d.Gatherer != nil {
		r.Handle("/metrics", observability.Handler(d.Gatherer)).Methods("GET")
	}

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	compute := func(h http.HandlerFunc) http.Handler { return h }
	if d.ComputeLimiter != nil {
		limit := computeLimitMiddleware(d.ComputeLimiter, d.Logger)
		compute = func(h http.HandlerFunc) http.Handler { return limit(h) }
	}

	// Ad-hoc analytics (trades in the request body)
	api.Handle("/analytics/report", compute(d.Analytics.Report)).Methods("POST")
	api.Handle("/analytics/correlation", compute(d.Analytics.Correlation)).Methods("POST")
	api.HandleFunc("/analytics/validate", d.Analytics.Validate).Methods("POST")

	// Stored strategies
	if s := d.Strategies; s != nil {
		api.HandleFunc("/strategies", s.List).Methods("GET")
		api.Handle("/strategies/correlation", compute(s.Correlation)).Methods("GET")
		api.HandleFunc("/strategies/{id}/report", s.Report).Methods("GET")
		api.Handle("/strategies/{id}/recompute", compute(s.Recompute)).Methods("POST")
		api.HandleFunc("/strategies/{id}/runs", s.Runs).Methods("GET")
	} else {
		api.PathPrefix("/strategies").HandlerFunc(storageUnavailable)
	}

	// Apply middleware
	r.Use(loggingMiddleware(d.Logger, d.Metrics))
	r.Use(recoveryMiddleware(d.Logger))
	r.Use(rateLimitMiddleware(newIPLimiter(d.Config.API.RateLimit, d.Config.API.RateBurst)))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				deps[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":       state,
			"service":      "strategy-analytics-api",
			"dependencies": deps,
		})
	}
}

func storageUnavailable(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusServiceUnavailable, "Trade storage not configured")
}
