// Package app assembles the conditions pipeline from configuration. It is
// shared by the API server and the cache warmer.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/aqoutlook/aqoutlook/internal/airquality/openaq"
	"github.com/aqoutlook/aqoutlook/internal/cache"
	"github.com/aqoutlook/aqoutlook/internal/city"
	"github.com/aqoutlook/aqoutlook/internal/conditions"
	"github.com/aqoutlook/aqoutlook/internal/config"
	"github.com/aqoutlook/aqoutlook/internal/database"
	"github.com/aqoutlook/aqoutlook/internal/geocode/nominatim"
	"github.com/aqoutlook/aqoutlook/internal/provider/resilience"
	"github.com/aqoutlook/aqoutlook/internal/telemetry"
	"github.com/aqoutlook/aqoutlook/internal/weather"
	"github.com/aqoutlook/aqoutlook/internal/weather/openweathermap"
)

// App is the assembled pipeline and the resources it holds.
type App struct {
	Conditions *conditions.Service
	Cities     *city.Registry
	Providers  *resilience.Registry
	Cache      cache.SnapshotCache
	Weather    *weather.Service

	// Pool is nil unless the cache runs on PostgreSQL.
	Pool *pgxpool.Pool
}

// Build wires clients, cache and registry into a conditions service.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger, metrics *telemetry.PipelineMetrics) (*App, error) {
	cities, err := buildCities(cfg)
	if err != nil {
		return nil, err
	}

	providers := resilience.NewRegistry(resilience.WithLogger(log.With().Str("component", "resilience").Logger()))

	sensors := openaq.NewClient(openaq.ClientConfig{
		BaseURL:    cfg.OpenAQ.BaseURL,
		APIKey:     cfg.OpenAQ.APIKey,
		Timeout:    cfg.OpenAQ.Timeout,
		MaxRetries: cfg.OpenAQ.MaxRetries,
		Registry:   providers,
	})
	if cfg.OpenAQ.APIKey == "" {
		log.Warn().Msg("OPENAQ_API_KEY not set - air quality requests will fail until it is configured")
	}

	var weatherProvider weather.Provider
	if cfg.Weather.Enabled() {
		weatherProvider = openweathermap.NewClient(openweathermap.ClientConfig{
			APIKey:   cfg.Weather.APIKey,
			BaseURL:  cfg.Weather.BaseURL,
			Timeout:  cfg.Weather.Timeout,
			Registry: providers,
		})
	} else {
		log.Warn().Msg("OPENWEATHER_API_KEY not set - scoring with neutral weather")
	}
	weatherService := weather.NewService(weather.ServiceConfig{
		Provider: weatherProvider,
		Logger:   log.With().Str("component", "weather").Logger(),
	})

	geocoder := nominatim.NewClient(nominatim.ClientConfig{
		BaseURL:   cfg.Geocode.BaseURL,
		UserAgent: cfg.Geocode.UserAgent,
		Timeout:   cfg.Geocode.Timeout,
		Registry:  providers,
		Logger:    log.With().Str("component", "geocode").Logger(),
	})

	a := &App{
		Cities:    cities,
		Providers: providers,
		Weather:   weatherService,
	}

	if err := a.buildCache(ctx, cfg, log); err != nil {
		return nil, err
	}

	a.Conditions = conditions.NewService(conditions.ServiceConfig{
		Provider:     sensors,
		Weather:      weatherService,
		Geocoder:     geocoder,
		Cache:        a.Cache,
		Cities:       cities,
		Logger:       log.With().Str("component", "conditions").Logger(),
		Metrics:      metrics,
		RadiusMeters: cfg.OpenAQ.RadiusMeters,
		MaxLocations: cfg.OpenAQ.MaxLocations,
		MaxChecks:    cfg.OpenAQ.MaxChecks,
		CacheTTL:     cfg.Cache.TTL,
	})

	return a, nil
}

// Ready reports whether the backing store is reachable.
func (a *App) Ready(ctx context.Context) error {
	if a.Pool == nil {
		return nil
	}
	return a.Pool.Ping(ctx)
}

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}

func buildCities(cfg *config.Config) (*city.Registry, error) {
	cities := city.Defaults()
	if cfg.CitiesJSON != "" {
		parsed, err := city.ParseJSON(cfg.CitiesJSON)
		if err != nil {
			return nil, fmt.Errorf("CITIES_JSON: %w", err)
		}
		cities = parsed
	}
	return city.NewRegistry(cities, cfg.DefaultCity)
}

func (a *App) buildCache(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if cfg.Cache.Backend != config.CacheBackendPostgres {
		a.Cache = cache.NewMemoryCache(nil)
		return nil
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect snapshot cache database: %w", err)
	}

	pg := cache.NewPostgresCache(pool, nil)
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("prepare snapshot cache schema: %w", err)
	}

	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("database", cfg.Database.Database).
		Msg("snapshot cache database connected")

	a.Pool = pool
	a.Cache = pg
	return nil
}
