package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stingsense/stingsense/internal/analyst"
	"github.com/stingsense/stingsense/internal/analytics"
	"github.com/stingsense/stingsense/internal/api"
	"github.com/stingsense/stingsense/internal/api/middleware"
	"github.com/stingsense/stingsense/internal/api/models"
	"github.com/stingsense/stingsense/internal/busdata"
	"github.com/stingsense/stingsense/internal/completion"
	"github.com/stingsense/stingsense/internal/geo"
	"github.com/stingsense/stingsense/internal/geocontext"
	"github.com/stingsense/stingsense/internal/query"
)

type echoProvider struct{}

func (echoProvider) Name() string { return "echo" }

func (echoProvider) Complete(_ context.Context, _ completion.Request) (*completion.Response, error) {
	return &completion.Response{Text: "ok", Model: "echo", FinishReason: completion.FinishReasonStop}, nil
}

func testAnalyst(t *testing.T) *analyst.Service {
	t.Helper()
	resolver, err := geocontext.NewResolver(geocontext.Config{Location: time.UTC})
	require.NoError(t, err)

	start := time.Date(2024, 10, 24, 9, 0, 0, 0, time.UTC)
	events := make([]busdata.Event, 0, 6)
	for i := 0; i < 6; i++ {
		events = append(events, busdata.Event{
			ID:          fmt.Sprintf("e%d", i),
			Timestamp:   start.Add(time.Duration(i) * time.Minute),
			Coordinates: geo.Point{Lat: 33.7756 + float64(i)*0.0002, Lon: -84.3963},
			Behavior:    busdata.BehaviorAggressive,
		})
	}

	svc, err := analyst.NewService(analyst.ServiceConfig{
		Dataset:  busdata.NewDataset("test", events),
		Router:   query.NewRouter(query.RouterConfig{Analyzer: analytics.NewAnalyzer(resolver, analytics.Config{})}),
		Provider: echoProvider{},
	})
	require.NoError(t, err)
	return svc
}

func newTestRouter(t *testing.T, mutate ...func(*api.RouterConfig)) http.Handler {
	t.Helper()
	cfg := api.RouterConfig{
		Version: "test",
		Logger:  zerolog.Nop(),
		Analyst: testAnalyst(t),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return api.NewRouter(cfg)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) models.Problem {
	t.Helper()
	var p models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
}

func TestRouter_ReadinessAndStatus(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/v1/ops/ready", "/v1/ops/status"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRouter_Query(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/queries", strings.NewReader(`{"query":"Where do buses brake hardest?"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Answer)
	assert.Equal(t, string(query.IntentAggressiveDriving), resp.Intent)
}

func TestRouter_QueryRejectsNonJSON(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/queries", strings.NewReader("query=hi"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestRouter_QueryRateLimited(t *testing.T) {
	router := newTestRouter(t, func(cfg *api.RouterConfig) {
		cfg.QueryRateLimit = &middleware.RateLimitConfig{RequestLimit: 2, WindowLength: time.Minute}
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/queries", strings.NewReader(`{"query":"summary"}`))
		req.RemoteAddr = "192.0.2.10:5000"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", w.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRouter_Insights(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/insights/hotspots", http.NoBody))

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.InsightsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(query.IntentAggressiveDriving), resp.Intent)
}

func TestRouter_OpsOnlyWithoutAnalyst(t *testing.T) {
	router := newTestRouter(t, func(cfg *api.RouterConfig) { cfg.Analyst = nil })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/insights/summary", http.NoBody))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_RequireTLS(t *testing.T) {
	router := newTestRouter(t, func(cfg *api.RouterConfig) { cfg.RequireTLS = true })

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Forwarded-Proto", "http")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, models.ProblemTypeTLSRequired, decode(t, w).Type)

	req = httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Forwarded-Proto", "https")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_RequestID(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody))
	assert.True(t, strings.HasPrefix(w.Header().Get("X-Request-Id"), "req_"))

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-Id", "custom_request_id")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "custom_request_id", w.Header().Get("X-Request-Id"))
}

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/nonexistent", http.NoBody))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Equal(t, "/v1/nonexistent", decode(t, w).Instance)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/ops/health", http.NoBody))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
