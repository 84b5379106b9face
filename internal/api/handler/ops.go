// Package handler provides HTTP handlers for the Sting Sense API.
package handler

import (
	"net/http"
	"time"

	"github.com/stingsense/stingsense/internal/analyst"
	"github.com/stingsense/stingsense/internal/api/models"
	"github.com/stingsense/stingsense/internal/api/response"
	"github.com/stingsense/stingsense/internal/provider/resilience"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	analyst   *analyst.Service
	registry  *resilience.Registry
}

// NewOpsHandler creates a new OpsHandler. registry may be nil.
func NewOpsHandler(version, buildTime string, svc *analyst.Service, registry *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		analyst:   svc,
		registry:  registry,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready. The service is ready once telemetry is
// loaded; without a completion provider it still serves insights and reports DEGRADED.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status:  models.HealthStatusOK,
		Time:    models.Timestamp(time.Now()),
		Details: map[string]any{},
	}

	if h.analyst == nil || h.analyst.Dataset().Len() == 0 {
		health.Status = models.HealthStatusFail
		health.Details["telemetry"] = analyst.MessageNoTelemetry
		response.JSON(w, r, http.StatusServiceUnavailable, health)
		return
	}

	health.Details["events"] = h.analyst.Dataset().Len()
	if !h.analyst.Configured() {
		health.Status = models.HealthStatusDegraded
		health.Details["completion"] = "not configured"
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - subsystem and provider status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: h.subsystems(),
		Providers:  h.providers(),
	}

	for _, s := range status.Subsystems {
		status.Status = worst(status.Status, s.Status)
	}
	for _, p := range status.Providers {
		status.Status = worst(status.Status, p.Status)
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) subsystems() []models.SubsystemStatus {
	if h.analyst == nil {
		return []models.SubsystemStatus{
			{Name: "telemetry", Status: models.HealthStatusFail, Detail: analyst.MessageNoTelemetry},
		}
	}

	ds := h.analyst.Dataset()
	telemetry := models.SubsystemStatus{
		Name:   "telemetry",
		Status: models.HealthStatusOK,
		Detail: ds.Source(),
		Metrics: map[string]any{
			"events":   ds.Len(),
			"loadedAt": models.Timestamp(ds.LoadedAt()),
		},
	}
	if ds.Len() == 0 {
		telemetry.Status = models.HealthStatusFail
	}

	completionStatus := models.SubsystemStatus{Name: "completion", Status: models.HealthStatusOK}
	if !h.analyst.Configured() {
		completionStatus.Status = models.HealthStatusDegraded
		completionStatus.Detail = "not configured"
	}

	engine := h.analyst.Engine()
	chunking := models.SubsystemStatus{
		Name:   "chunking",
		Status: models.HealthStatusOK,
		Metrics: map[string]any{
			"budgetChars": engine.Budget(),
			"chunkChars":  engine.ChunkSize(),
			"maxChunks":   engine.Config().MaxChunks,
			"prefetch":    engine.Config().Prefetch,
		},
	}

	stats := h.analyst.CacheStats()
	cacheStatus := models.SubsystemStatus{
		Name:   "cache",
		Status: models.HealthStatusOK,
		Metrics: map[string]any{
			"enabled": stats.Enabled,
			"entries": stats.Entries,
			"hits":    stats.Hits,
			"misses":  stats.Misses,
		},
	}

	return []models.SubsystemStatus{telemetry, completionStatus, chunking, cacheStatus}
}

func (h *OpsHandler) providers() []models.ProviderStatus {
	if h.registry == nil {
		return []models.ProviderStatus{}
	}

	all := h.registry.GetAllHealth()
	out := make([]models.ProviderStatus, 0, len(all))
	for _, ph := range all {
		ps := models.ProviderStatus{
			Provider:            ph.Name,
			CircuitState:        ph.CircuitState.String(),
			ConsecutiveFailures: ph.Counts.ConsecutiveFailures,
			LastSuccessAt:       timestampPtr(ph.LastSuccessAt),
			LastFailureAt:       timestampPtr(ph.LastFailureAt),
		}
		switch ph.Status() {
		case resilience.StatusUnhealthy:
			ps.Status = models.HealthStatusFail
		case resilience.StatusDegraded:
			ps.Status = models.HealthStatusDegraded
		default:
			ps.Status = models.HealthStatusOK
		}
		out = append(out, ps)
	}
	return out
}

// worst returns the more severe of two statuses.
func worst(a, b models.HealthStatus) models.HealthStatus {
	if a == models.HealthStatusFail || b == models.HealthStatusFail {
		return models.HealthStatusFail
	}
	if a == models.HealthStatusDegraded || b == models.HealthStatusDegraded {
		return models.HealthStatusDegraded
	}
	return models.HealthStatusOK
}

func timestampPtr(t *time.Time) *models.Timestamp {
	if t == nil {
		return nil
	}
	ts := models.Timestamp(*t)
	return &ts
}
