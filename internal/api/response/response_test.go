package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stingsense/stingsense/internal/api/middleware"
	"github.com/stingsense/stingsense/internal/api/models"
	"github.com/stingsense/stingsense/internal/api/response"
)

func requestWithID(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	return req.WithContext(middleware.WithRequestID(req.Context(), "req_test"))
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	response.JSON(rec, requestWithID(http.MethodGet, "/v1/insights/summary", ""), http.StatusOK, map[string]string{"hello": "bus"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req_test", rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"hello":"bus"}`, rec.Body.String())
}

func TestJSON_NilDataAndNoRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	response.JSON(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody), http.StatusAccepted, nil)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Request-Id"))
	assert.Empty(t, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Query string `json:"query"`
	}

	tests := []struct {
		name    string
		in      string
		wantErr string
	}{
		{"valid", `{"query":"hi"}`, ""},
		{"empty", ``, response.ErrEmptyBody.Error()},
		{"malformed", `{"query":`, "invalid JSON body"},
		{"unknown field", `{"query":"hi","extra":1}`, "unknown field"},
		{"trailing", `{"query":"hi"} {"query":"again"}`, "unexpected data"},
		{"too large", `{"query":"` + strings.Repeat("a", response.MaxBodyBytes) + `"}`, "exceeds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst body
			err := response.DecodeJSON(httptest.NewRecorder(), requestWithID(http.MethodPost, "/v1/queries", tt.in), &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "hi", dst.Query)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProblemHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter, *http.Request)
		status int
		typ    string
	}{
		{"bad request", func(w http.ResponseWriter, r *http.Request) { response.BadRequest(w, r, "bad", nil) }, http.StatusBadRequest, models.ProblemTypeValidation},
		{"not found", func(w http.ResponseWriter, r *http.Request) { response.NotFound(w, r, "bad") }, http.StatusNotFound, models.ProblemTypeNotFound},
		{"internal", func(w http.ResponseWriter, r *http.Request) { response.InternalError(w, r, "bad") }, http.StatusInternalServerError, models.ProblemTypeInternal},
		{"upstream", func(w http.ResponseWriter, r *http.Request) { response.UpstreamFailure(w, r, "bad") }, http.StatusServiceUnavailable, models.ProblemTypeUpstream},
		{"unavailable", func(w http.ResponseWriter, r *http.Request) { response.ServiceUnavailable(w, r, "bad") }, http.StatusServiceUnavailable, models.ProblemTypeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec, requestWithID(http.MethodPost, "/v1/queries", ""))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

			var p models.Problem
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
			assert.Equal(t, tt.typ, p.Type)
			assert.Equal(t, "bad", p.Detail)
			assert.Equal(t, "/v1/queries", p.Instance)
			assert.Equal(t, "req_test", p.TraceID)
		})
	}
}
