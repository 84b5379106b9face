// Package api provides the HTTP API for Sting Sense.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/stingsense/stingsense/internal/analyst"
	"github.com/stingsense/stingsense/internal/api/handler"
	"github.com/stingsense/stingsense/internal/api/middleware"
	"github.com/stingsense/stingsense/internal/api/models"
	"github.com/stingsense/stingsense/internal/api/response"
	"github.com/stingsense/stingsense/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// Analyst answers questions. When nil only the ops endpoints are served.
	Analyst *analyst.Service

	// Registry reports the health of the completion-service clients.
	Registry *resilience.Registry

	// RequireTLS rejects plain-HTTP requests.
	RequireTLS bool

	// QueryRateLimit and InsightsRateLimit override the per-IP defaults.
	QueryRateLimit    *middleware.RateLimitConfig
	InsightsRateLimit *middleware.RateLimitConfig
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "stingsense-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, models.NewMethodNotAllowed(middleware.GetRequestID(r.Context()),
			r.Method+" is not supported on "+r.URL.Path))
	})

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Analyst, cfg.Registry)

	queryLimit := middleware.QueryRateLimit
	if cfg.QueryRateLimit != nil {
		queryLimit = *cfg.QueryRateLimit
	}
	insightsLimit := middleware.InsightsRateLimit
	if cfg.InsightsRateLimit != nil {
		insightsLimit = *cfg.InsightsRateLimit
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		if cfg.Analyst == nil {
			return
		}

		queryHandler := handler.NewQueryHandler(cfg.Analyst, cfg.Logger)
		insightsHandler := handler.NewInsightsHandler(cfg.Analyst)

		// Each question may cost several completion calls.
		r.With(
			middleware.RateLimitByIP(queryLimit),
			middleware.RequireJSON,
		).Post("/queries", queryHandler.Ask)

		r.With(middleware.RateLimitByIP(insightsLimit)).Get("/insights/{kind}", insightsHandler.GetInsight)
	})

	return r
}
