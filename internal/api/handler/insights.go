package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stingsense/stingsense/internal/analyst"
	"github.com/stingsense/stingsense/internal/api/models"
	"github.com/stingsense/stingsense/internal/api/response"
	"github.com/stingsense/stingsense/internal/query"
)

// insightIntents maps the {kind} path segment to the aggregation it runs.
var insightIntents = map[string]query.Intent{
	"hotspots":   query.IntentAggressiveDriving,
	"dwell":      query.IntentDwellTime,
	"efficiency": query.IntentRouteEfficiency,
	"summary":    query.IntentGeneralInfo,
}

// InsightsHandler serves aggregations without calling the completion service.
type InsightsHandler struct {
	analyst *analyst.Service
}

// NewInsightsHandler creates a new InsightsHandler.
func NewInsightsHandler(svc *analyst.Service) *InsightsHandler {
	return &InsightsHandler{analyst: svc}
}

// GetInsight handles GET /v1/insights/{kind}.
func (h *InsightsHandler) GetInsight(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	intent, ok := insightIntents[kind]
	if !ok {
		response.NotFound(w, r, "unknown insight "+kind)
		return
	}

	findings, ctxCard := h.analyst.Insights(r.Context(), intent)

	resp := models.InsightsResponse{
		Intent:      string(findings.Intent),
		Title:       findings.Title,
		GeneratedAt: models.Timestamp(time.Now()),
		Findings:    findings.Findings,
		ContextCard: ctxCard,
	}
	switch intent {
	case query.IntentAggressiveDriving:
		resp.Data = findings.Hotspots
	case query.IntentDwellTime:
		resp.Data = findings.Dwells
	case query.IntentRouteEfficiency:
		if findings.Efficiency != nil {
			resp.Data = findings.Efficiency
		}
	default:
		if findings.Summary != nil {
			resp.Data = findings.Summary
		}
	}

	response.JSON(w, r, http.StatusOK, resp)
}
