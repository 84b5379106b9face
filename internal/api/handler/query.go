package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/stingsense/stingsense/internal/analyst"
	"github.com/stingsense/stingsense/internal/api/middleware"
	"github.com/stingsense/stingsense/internal/api/models"
	"github.com/stingsense/stingsense/internal/api/response"
)

// QueryHandler handles question answering.
type QueryHandler struct {
	analyst *analyst.Service
	logger  zerolog.Logger
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(svc *analyst.Service, logger zerolog.Logger) *QueryHandler {
	return &QueryHandler{
		analyst: svc,
		logger:  logger,
	}
}

// Ask handles POST /v1/queries.
func (h *QueryHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var input models.QueryRequest
	if err := response.DecodeJSON(w, r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	text, ok := queryText(input.Query)
	if !ok {
		response.BadRequest(w, r, "query must be a non-empty string", []models.FieldError{
			{Field: "query", Message: "must be a string", Code: "type"},
		})
		return
	}

	mode, err := analyst.ParseMode(input.Mode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	answer, err := h.analyst.Ask(r.Context(), analyst.Query{Text: text, Mode: mode})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, toQueryResponse(answer))
}

// queryText returns the question in raw, which must be a JSON string.
func queryText(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", true
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", false
	}
	return text, true
}

// writeError maps an analyst failure to a problem. Only the error's caller-safe
// message is exposed.
func (h *QueryHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *analyst.Error
	if !errors.As(err, &e) {
		h.logger.Error().Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("unclassified query failure")
		response.InternalError(w, r, "An unexpected error occurred.")
		return
	}

	switch e.Kind {
	case analyst.KindValidation:
		response.BadRequest(w, r, e.Message, nil)
	case analyst.KindUpstream:
		response.UpstreamFailure(w, r, e.Message)
	default:
		response.ServiceUnavailable(w, r, e.Message)
	}
}

func toQueryResponse(a *analyst.Answer) models.QueryResponse {
	return models.QueryResponse{
		ID:          a.ID,
		Query:       a.Query,
		Mode:        string(a.Mode),
		Intent:      string(a.Intent),
		Answer:      a.Text,
		ContextCard: a.Card,
		Findings:    a.Findings,
		Warnings:    a.Warnings,
		Chunks:      a.Chunks,
		Usage:       a.Usage,
		Model:       a.Model,
		Cached:      a.Cached,
		CreatedAt:   models.Timestamp(a.CreatedAt),
	}
}
