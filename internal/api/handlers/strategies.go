package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/analysisconfig"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/audit"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/logger"
)

// StrategyHandler serves reports of strategies held in trade storage
type StrategyHandler struct {
	service *audit.ReportService
	params  analysisconfig.Params
	logger  *logger.Logger
}

// NewStrategyHandler creates a new strategy handler
func NewStrategyHandler(service *audit.ReportService, params analysisconfig.Params, log *logger.Logger) *StrategyHandler {
	return &StrategyHandler{
		service: service,
		params:  params,
		logger:  log,
	}
}

// List returns every strategy with stored trades
// GET /api/strategies
func (h *StrategyHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.Strategies(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list strategies")
		respondError(w, http.StatusInternalServerError, "Failed to list strategies")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"strategies": ids,
		"count":      len(ids),
	})
}

// Report returns the (cached) report of one strategy
// GET /api/strategies/{id}/report
func (h *StrategyHandler) Report(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	params := h.params

	report, cached, err := h.service.StrategyReport(r.Context(), id, &params)
	if err != nil {
		h.fail(w, id, err)
		return
	}

	w.Header().Set("X-Cache", cacheHeader(cached))
	if r.URL.Query().Get("format") == "summary" {
		respondText(w, http.StatusOK, report.ToSummary())
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Recompute forces a fresh report and refreshes the cache
// POST /api/strategies/{id}/recompute
func (h *StrategyHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	params := h.params

	report, err := h.service.Recompute(r.Context(), id, &params)
	if err != nil {
		h.fail(w, id, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"report_id":   report.ID,
		"strategy_id": id,
		"created_at":  report.CreatedAt,
		"params_hash": report.Metadata.ParamsHash,
	})
}

// Runs returns the persisted run history, newest first
// GET /api/strategies/{id}/runs?limit=20
func (h *StrategyHandler) Runs(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 1000 {
			respondError(w, http.StatusBadRequest, "limit must be an integer in [0, 1000]")
			return
		}
		limit = n
	}

	runs, err := h.service.Runs(r.Context(), id, limit)
	if err != nil {
		h.fail(w, id, err)
		return
	}

	// 목록에서는 전체 리포트 JSON 제외
	for i := range runs {
		runs[i].Report = nil
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"strategy_id": id,
		"runs":        runs,
	})
}

// Correlation correlates stored strategies
// GET /api/strategies/correlation?ids=ES,NQ (all when omitted)
func (h *StrategyHandler) Correlation(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if v := r.URL.Query().Get("ids"); v != "" {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	params := h.params

	portfolio, err := h.service.Portfolio(r.Context(), ids, &params)
	if err != nil {
		h.fail(w, strings.Join(ids, ","), err)
		return
	}

	respondJSON(w, http.StatusOK, NewCorrelationResponse(portfolio))
}

func (h *StrategyHandler) fail(w http.ResponseWriter, id string, err error) {
	status := statusFor(err, http.StatusNotFound)
	if status == http.StatusInternalServerError {
		h.logger.WithStrategy(id).WithError(err).Error("Strategy request failed")
		respondError(w, status, "Internal error")
		return
	}
	respondError(w, status, err.Error())
}
