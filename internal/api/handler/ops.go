// Package handler provides HTTP handlers for the air-quality API.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/aqoutlook/aqoutlook/internal/api/models"
	"github.com/aqoutlook/aqoutlook/internal/api/response"
	"github.com/aqoutlook/aqoutlook/internal/provider/resilience"
	"github.com/aqoutlook/aqoutlook/internal/weather"
)

// ProviderHealthSource reports upstream provider health.
// *resilience.Registry satisfies it.
type ProviderHealthSource interface {
	GetAllHealth() []*resilience.ProviderHealth
}

// WeatherStatsSource reports weather fetch counters.
type WeatherStatsSource interface {
	Stats() weather.Stats
}

// OpsConfig holds configuration for the ops handler.
type OpsConfig struct {
	Version   string
	BuildTime string

	// Providers is optional; without it the status lists no providers.
	Providers ProviderHealthSource

	// CacheBackend names the snapshot cache backend.
	CacheBackend string

	// WeatherEnabled is false when no weather API key is configured.
	WeatherEnabled bool

	// WeatherStats, when set, adds fetch counters to the weather subsystem
	// detail. *weather.Service satisfies it.
	WeatherStats WeatherStatsSource

	// ReadyCheck, when set, must succeed for the service to be ready.
	ReadyCheck func(ctx context.Context) error
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if h.cfg.ReadyCheck != nil {
		if err := h.cfg.ReadyCheck(r.Context()); err != nil {
			response.ServiceUnavailable(w, r, "not ready: "+err.Error())
			return
		}
	}

	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Version:    h.cfg.Version,
		Subsystems: []models.SubsystemStatus{h.cacheStatus(), h.weatherStatus()},
		Providers:  []models.ProviderStatus{},
	}

	if !h.cfg.WeatherEnabled {
		status.ActiveDegradationFlags = append(status.ActiveDegradationFlags, "WEATHER_DISABLED")
	}

	if h.cfg.Providers != nil {
		health := h.cfg.Providers.GetAllHealth()
		sort.Slice(health, func(i, j int) bool { return health[i].Name < health[j].Name })

		for _, ph := range health {
			ps := providerStatus(ph)
			if ps.Status != models.HealthStatusOK {
				status.ActiveDegradationFlags = append(status.ActiveDegradationFlags,
					strings.ToUpper(ph.Name)+"_CIRCUIT_"+strings.ToUpper(strings.ReplaceAll(ps.CircuitState, "-", "_")))
			}
			status.Providers = append(status.Providers, ps)
		}
	}

	if len(status.ActiveDegradationFlags) > 0 {
		status.Status = models.HealthStatusDegraded
	}
	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) cacheStatus() models.SubsystemStatus {
	backend := h.cfg.CacheBackend
	if backend == "" {
		backend = "unknown"
	}
	return models.SubsystemStatus{Name: "snapshot-cache", Status: models.HealthStatusOK, Detail: &backend}
}

func (h *OpsHandler) weatherStatus() models.SubsystemStatus {
	if h.cfg.WeatherEnabled {
		st := models.SubsystemStatus{Name: "weather", Status: models.HealthStatusOK}
		if h.cfg.WeatherStats != nil {
			stats := h.cfg.WeatherStats.Stats()
			detail := fmt.Sprintf("%s: %d fetches, %d failed", stats.Provider, stats.Fetches, stats.Failures)
			st.Detail = &detail
		}
		return st
	}
	detail := "OPENWEATHER_API_KEY not set; scoring with neutral weather"
	return models.SubsystemStatus{Name: "weather", Status: models.HealthStatusDegraded, Detail: &detail}
}

func providerStatus(ph *resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:            ph.Name,
		CircuitState:        ph.CircuitState.String(),
		Requests:            ph.Counts.Requests,
		ConsecutiveFailures: ph.Counts.ConsecutiveFailures,
		LastSuccessAt:       models.TimestampOf(ph.LastSuccessAt),
		LastFailureAt:       models.TimestampOf(ph.LastFailureAt),
		LastStateChangeAt:   models.TimestampOf(ph.LastStateChangeAt),
	}

	switch ph.CircuitState {
	case gobreaker.StateOpen:
		ps.Status = models.HealthStatusFail
	case gobreaker.StateHalfOpen:
		ps.Status = models.HealthStatusDegraded
	default:
		ps.Status = models.HealthStatusOK
	}

	if ph.LastError != "" {
		msg := ph.LastError
		ps.Message = &msg
	}
	return ps
}
