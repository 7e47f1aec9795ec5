package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/analysisconfig"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/audit"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/benchmark"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/quality"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/rolling"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/logger"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/redis"
)

// AnalyticsHandler serves ad-hoc analytics over trades posted in the request
// ⭐ SSOT: 요청 본문 기반 분석 API는 이 구조체에서만
type AnalyticsHandler struct {
	analyzer *audit.Analyzer
	params   analysisconfig.Params // 서버 기본 파라미터
	cache    *redis.Cache
	logger   *logger.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyzer *audit.Analyzer, params analysisconfig.Params, cache *redis.Cache, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyzer: analyzer,
		params:   params,
		cache:    cache,
		logger:   log,
	}
}

// ReportRequest is the body of POST /api/analytics/report
type ReportRequest struct {
	StrategyID string            `json:"strategy_id"`
	Trades     []contracts.Trade `json:"trades"`
	// Params overlays the server defaults; unknown keys are rejected
	Params    json.RawMessage   `json:"params,omitempty"`
	Benchmark []benchmark.Point `json:"benchmark,omitempty"`
	// VisibleFrom/VisibleTo trim the rolling series (YYYY-MM-DD)
	VisibleFrom string `json:"visible_from,omitempty"`
	VisibleTo   string `json:"visible_to,omitempty"`
}

// Report computes a full performance report
// POST /api/analytics/report
func (h *AnalyticsHandler) Report(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ReportRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	params, err := h.resolveParams(req.Params)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := audit.Options{StrategyID: req.StrategyID}
	if opts.Visible, err = parseRange(req.VisibleFrom, req.VisibleTo); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Benchmark) > 0 {
		series, err := benchmark.NewSeries("request", req.Benchmark)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid benchmark: "+err.Error())
			return
		}
		opts.Benchmark = series
	}

	key, err := requestKey(req, params)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to hash request")
		return
	}

	var report audit.PerformanceReport
	cached, err := h.cache.GetOrSet(ctx, redis.AdhocReportKey(key), &report, redis.TTLShort, func() (interface{}, error) {
		return h.analyzer.Analyze(ctx, req.Trades, params, opts)
	})
	if err != nil {
		status := statusFor(err, http.StatusUnprocessableEntity)
		if status == http.StatusInternalServerError {
			h.logger.WithError(err).Error("Failed to compute report")
		}
		respondError(w, status, err.Error())
		return
	}

	w.Header().Set("X-Cache", cacheHeader(cached))
	if r.URL.Query().Get("format") == "summary" {
		respondText(w, http.StatusOK, report.ToSummary())
		return
	}
	respondJSON(w, http.StatusOK, &report)
}

// ValidateRequest is the body of POST /api/analytics/validate
type ValidateRequest struct {
	Trades          []contracts.Trade `json:"trades"`
	StartingCapital float64           `json:"starting_capital,omitempty"`
	ZScoreThreshold float64           `json:"zscore_threshold,omitempty"`
}

// Validate grades trade data without computing metrics
// POST /api/analytics/validate
func (h *AnalyticsHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	cfg := h.params.QualityConfig()
	if req.StartingCapital > 0 {
		cfg.StartingCapital = req.StartingCapital
	}
	if req.ZScoreThreshold > 0 {
		cfg.ZScoreThreshold = req.ZScoreThreshold
	}

	respondJSON(w, http.StatusOK, quality.Assess(req.Trades, cfg))
}

// CorrelationRequest is the body of POST /api/analytics/correlation
type CorrelationRequest struct {
	Trades []contracts.Trade `json:"trades"`
	Params json.RawMessage   `json:"params,omitempty"`
}

// CorrelationResponse is the correlation matrix plus per-strategy headline metrics
type CorrelationResponse struct {
	Correlation contracts.CorrelationMatrix             `json:"correlation"`
	OverlapFrom time.Time                               `json:"overlap_from"`
	OverlapTo   time.Time                               `json:"overlap_to"`
	Strategies  map[string]contracts.PerformanceMetrics `json:"strategies"`
	Combined    *contracts.PerformanceMetrics           `json:"combined,omitempty"`
}

// NewCorrelationResponse trims a portfolio report to its headline figures
func NewCorrelationResponse(p *audit.PortfolioReport) CorrelationResponse {
	resp := CorrelationResponse{
		Correlation: p.Correlation,
		OverlapFrom: p.OverlapFrom,
		OverlapTo:   p.OverlapTo,
		Strategies:  make(map[string]contracts.PerformanceMetrics, len(p.Strategies)),
	}
	for id, report := range p.Strategies {
		resp.Strategies[id] = report.Metrics
	}
	if p.Combined != nil {
		m := p.Combined.Metrics
		resp.Combined = &m
	}
	return resp
}

// Correlation groups posted trades by strategy_id and correlates their daily equity
// POST /api/analytics/correlation
func (h *AnalyticsHandler) Correlation(w http.ResponseWriter, r *http.Request) {
	var req CorrelationRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	params, err := h.resolveParams(req.Params)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	portfolio, err := h.analyzer.AnalyzeStrategies(r.Context(), req.Trades, params)
	if err != nil {
		respondError(w, statusFor(err, http.StatusUnprocessableEntity), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, NewCorrelationResponse(portfolio))
}

// resolveParams overlays the request's params on the server defaults
func (h *AnalyticsHandler) resolveParams(raw json.RawMessage) (*analysisconfig.Params, error) {
	if len(raw) == 0 || string(raw) == "null" {
		p := h.params
		return &p, nil
	}
	// JSON은 YAML의 부분집합이라 같은 디코더(KnownFields) 사용
	return analysisconfig.Decode(raw, h.params)
}

// requestKey hashes the parts of the request that determine the report
func requestKey(req ReportRequest, params *analysisconfig.Params) (string, error) {
	payload, err := json.Marshal(struct {
		Req    ReportRequest          `json:"req"`
		Params *analysisconfig.Params `json:"params"`
	}{req, params})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func parseRange(from, to string) (rolling.DateRange, error) {
	var rng rolling.DateRange
	var err error
	if from != "" {
		if rng.From, err = time.Parse("2006-01-02", from); err != nil {
			return rng, errBadDate("visible_from")
		}
	}
	if to != "" {
		if rng.To, err = time.Parse("2006-01-02", to); err != nil {
			return rng, errBadDate("visible_to")
		}
	}
	return rng, nil
}

type errBadDate string

func (e errBadDate) Error() string {
	return "Invalid '" + string(e) + "' date format (expected YYYY-MM-DD)"
}

func cacheHeader(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}
