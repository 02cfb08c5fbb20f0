// Package api provides the HTTP API for the air-quality service.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/aqoutlook/aqoutlook/internal/api/handler"
	"github.com/aqoutlook/aqoutlook/internal/api/middleware"
	"github.com/aqoutlook/aqoutlook/internal/api/response"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	Conditions handler.ConditionsService
	Ops        handler.OpsConfig

	// RateLimitPerMinute applies to the inexpensive read endpoints.
	// Zero uses middleware.StandardRateLimit.
	RateLimitPerMinute int

	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "aqoutlook-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	ops := cfg.Ops
	if ops.Version == "" {
		ops.Version = cfg.Version
	}
	if ops.BuildTime == "" {
		ops.BuildTime = cfg.BuildTime
	}

	opsHandler := handler.NewOpsHandler(ops)
	metadataHandler := handler.NewMetadataHandler()
	conditionsHandler := handler.NewConditionsHandler(cfg.Conditions)

	standard := middleware.StandardRateLimit
	if cfg.RateLimitPerMinute > 0 {
		standard = middleware.PerMinute(cfg.RateLimitPerMinute)
	}
	standardRateLimit := middleware.RateLimitByIP(standard)
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit)
	geocodeRateLimit := middleware.RateLimitByIP(middleware.GeocodeRateLimit)

	r.NotFound(response.NotFound)
	r.MethodNotAllowed(response.MethodNotAllowed)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.With(standardRateLimit).Get("/metadata/enums", metadataHandler.GetEnums)
		r.With(standardRateLimit).Get("/cities", conditionsHandler.ListCities)
		r.With(standardRateLimit).Get("/stations/near", conditionsHandler.ListStationsNear)
		r.With(geocodeRateLimit).Get("/geocode", conditionsHandler.Geocode)

		r.Route("/aq", func(r chi.Router) {
			r.With(standardRateLimit).Get("/current", conditionsHandler.GetCurrent)
			r.With(standardRateLimit).Get("/series24h", conditionsHandler.GetSeries24h)

			// Simulation endpoints run a full forecast per call
			r.With(expensiveRateLimit).Get("/outlook", conditionsHandler.GetOutlook)
			r.With(expensiveRateLimit).Get("/school-decision", conditionsHandler.GetSchoolDecision)
		})
	})

	return r
}
