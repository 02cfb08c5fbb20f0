// Package conditions assembles current-conditions snapshots and outlooks.
//
// A snapshot request resolves the best nearby PM2.5 sensor, then fetches the
// sensor's last 24 hours and the current weather concurrently. Only sensor
// resolution can fail the request: series and weather failures lower the
// confidence instead. When resolution fails, the last cached snapshot for the
// same key is served, marked stale.
package conditions

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/aqoutlook/aqoutlook/internal/airquality"
	"github.com/aqoutlook/aqoutlook/internal/cache"
	"github.com/aqoutlook/aqoutlook/internal/city"
	"github.com/aqoutlook/aqoutlook/internal/geocode"
	"github.com/aqoutlook/aqoutlook/internal/outlook"
	"github.com/aqoutlook/aqoutlook/internal/risk"
	"github.com/aqoutlook/aqoutlook/internal/telemetry"
	"github.com/aqoutlook/aqoutlook/internal/weather"
)

const (
	tracerName = "github.com/aqoutlook/aqoutlook/internal/conditions"

	sensorProvider = "openaq"

	// defaultAgeMinutes is assumed when the reading timestamp cannot be parsed.
	defaultAgeMinutes = 60.0

	seriesLookback = 24 * time.Hour
)

// ErrGeocodingDisabled is returned by Geocode when no geocoder is configured.
var ErrGeocodingDisabled = errors.New("geocoding is not configured")

// WeatherSource provides weather reports. *weather.Service satisfies it.
type WeatherSource interface {
	Enabled() bool
	GetReport(ctx context.Context, lat, lon float64) (*weather.Report, error)
}

// ServiceConfig holds configuration for the conditions service.
type ServiceConfig struct {
	// Provider is the sensor network (required).
	Provider airquality.Provider

	// Weather is optional. Nil or disabled means neutral weather scores.
	Weather WeatherSource

	// Geocoder is optional.
	Geocoder geocode.Provider

	// Cache stores snapshots for fallback (required).
	Cache cache.SnapshotCache

	// Cities is the city registry (required).
	Cities *city.Registry

	// Scorer defaults to the default weight policy.
	Scorer *risk.Scorer

	Logger  zerolog.Logger
	Metrics *telemetry.PipelineMetrics

	// Sensor search bounds, see airquality.ResolverConfig.
	RadiusMeters int
	MaxLocations int
	MaxChecks    int

	// CacheTTL is how long snapshots are kept (default: 10 minutes).
	CacheTTL time.Duration

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Service produces scored snapshots, series and outlooks.
type Service struct {
	provider  airquality.Provider
	resolver  *airquality.SensorResolver
	weather   WeatherSource
	geocoder  geocode.Provider
	cache     cache.SnapshotCache
	cities    *city.Registry
	scorer    *risk.Scorer
	simulator *outlook.Simulator
	logger    zerolog.Logger
	metrics   *telemetry.PipelineMetrics
	tracer    trace.Tracer
	cacheTTL  time.Duration
	now       func() time.Time
}

// NewService creates a new conditions service.
func NewService(cfg ServiceConfig) *Service {
	scorer := cfg.Scorer
	if scorer == nil {
		scorer = risk.NewScorer(risk.Weights{})
	}

	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = cache.DefaultTTL
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		provider: cfg.Provider,
		resolver: airquality.NewSensorResolver(airquality.ResolverConfig{
			Provider:     cfg.Provider,
			Logger:       cfg.Logger,
			RadiusMeters: cfg.RadiusMeters,
			MaxLocations: cfg.MaxLocations,
			MaxChecks:    cfg.MaxChecks,
		}),
		weather:   cfg.Weather,
		geocoder:  cfg.Geocoder,
		cache:     cfg.Cache,
		cities:    cfg.Cities,
		scorer:    scorer,
		simulator: outlook.NewSimulator(scorer),
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		tracer:    otel.Tracer(tracerName),
		cacheTTL:  cacheTTL,
		now:       now,
	}
}

// CityInfo is the public view of a registry city.
type CityInfo struct {
	Key     string `json:"key"`
	Display string `json:"display"`
}

// Cities lists the registry cities.
func (s *Service) Cities() []CityInfo {
	all := s.cities.All()
	out := make([]CityInfo, 0, len(all))
	for _, c := range all {
		out = append(out, CityInfo{Key: c.Key, Display: c.Display})
	}
	return out
}

// ResolveCity picks the city for a request. A known key wins; otherwise a
// coordinate selects the nearest city, and the default city is the last resort.
func (s *Service) ResolveCity(key string, coord *airquality.Coordinate) city.City {
	if c, ok := s.cities.Get(key); ok {
		return c
	}
	if coord != nil {
		return s.cities.Nearest(*coord)
	}
	return s.cities.Default()
}

// CurrentSnapshot returns the scored conditions for a city, or for coord
// when it is non-nil. On upstream failure a cached snapshot for the same key
// is returned marked stale; without one the error is returned.
func (s *Service) CurrentSnapshot(ctx context.Context, cityKey string, coord *airquality.Coordinate) (*airquality.Snapshot, error) {
	if coord != nil {
		if err := coord.Validate(); err != nil {
			return nil, err
		}
	}

	c := s.ResolveCity(cityKey, coord)
	point := c.Coordinate
	if coord != nil {
		point = *coord
	}
	key := cache.Key(c.Key, point)

	ctx, span := s.tracer.Start(ctx, "conditions.CurrentSnapshot", trace.WithAttributes(
		attribute.String("city", c.Key),
		attribute.String("cache.key", key),
	))
	defer span.End()

	snap, err := s.fresh(ctx, c, point)
	if err == nil {
		if perr := s.cache.Put(ctx, key, snap, s.cacheTTL); perr != nil {
			s.logger.Warn().Err(perr).Str("key", key).Msg("failed to cache snapshot")
		}
		s.metrics.RecordSnapshot(c.Key, telemetry.OutcomeFresh)
		return snap, nil
	}

	cached, cerr := s.cache.Get(ctx, key)
	if cerr != nil {
		if !errors.Is(cerr, cache.ErrCacheMiss) {
			s.logger.Warn().Err(cerr).Str("key", key).Msg("snapshot cache lookup failed")
		}
		s.metrics.RecordCacheMiss(s.cache.Backend())
		s.metrics.RecordSnapshot(c.Key, telemetry.OutcomeFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error().Err(err).Str("city", c.Key).Msg("current snapshot unavailable")
		return nil, err
	}

	s.metrics.RecordCacheHit(s.cache.Backend())
	s.metrics.RecordSnapshot(c.Key, telemetry.OutcomeStale)
	span.SetAttributes(attribute.Bool("stale", true))
	s.logger.Warn().Err(err).Str("city", c.Key).Str("key", key).Msg("serving stale snapshot")
	return cached.MarkStale(err), nil
}

// fresh builds a snapshot from live upstream data.
func (s *Service) fresh(ctx context.Context, c city.City, point airquality.Coordinate) (*airquality.Snapshot, error) {
	start := time.Now()
	res, err := s.resolver.Resolve(ctx, point)
	s.metrics.RecordRequest(sensorProvider, "resolve", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	now := s.now()

	var (
		points []airquality.MeasurementPoint
		report *weather.Report
	)

	// Neither goroutine fails the group: both degrade to missing data.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.provider.SensorHourly(gctx, res.SensorID, now.Add(-seriesLookback), now)
		if err != nil {
			s.logger.Warn().Err(err).Int64("sensor_id", res.SensorID).Msg("hourly series unavailable, scoring without trend")
			return nil
		}
		points = airquality.NormalizeHourly(rows)
		return nil
	})
	g.Go(func() error {
		report = s.currentWeather(gctx, point)
		return nil
	})
	_ = g.Wait()

	series := []float64{res.Value}
	coverage := airquality.DefaultCoverage
	if len(points) > 0 {
		series = airquality.Values(points)
		coverage = airquality.CoverageRatio(points)
	}

	var reading airquality.WeatherReading
	if report != nil {
		reading = airquality.WeatherReading{
			TempC:       report.Current.TempC,
			WindMS:      report.Current.WindMS,
			PressureHPa: report.Current.PressureHPa,
		}
	}

	ageMinutes := defaultAgeMinutes
	var tsLocal string
	if ts, err := time.Parse(time.RFC3339, res.TimestampUTC); err == nil {
		ageMinutes = math.Max(0, now.Sub(ts).Minutes())
		tsLocal = ts.In(c.Location()).Format("2006-01-02 15:04")
	}

	scored := s.scorer.Score(risk.Input{
		PM25:              res.Value,
		WindMS:            reading.WindMS,
		PressureHPa:       reading.PressureHPa,
		Series:            series,
		AgeMinutes:        ageMinutes,
		Coverage:          coverage,
		ForecastStability: risk.DefaultForecastStability,
		Month:             now.In(c.Location()).Month(),
		Hemisphere:        risk.HemisphereFor(point.Lat),
	})

	sensorID := res.SensorID
	return &airquality.Snapshot{
		City:           c.Key,
		CityDisplay:    c.Display,
		Coords:         point,
		PM25:           math.Round(res.Value*10) / 10,
		Unit:           res.Unit,
		AQI:            scored.AQI,
		Category:       string(scored.Category),
		RiskScore:      scored.RiskScore,
		Confidence:     scored.Confidence,
		Trend:          scored.Trend,
		TimestampUTC:   res.TimestampUTC,
		TimestampLocal: tsLocal,
		SensorID:       &sensorID,
		LocationID:     res.Location.ID,
		LocationName:   res.Location.Name,
		Provider:       res.Location.Provider,
		Owner:          res.Location.Owner,
		Source:         airquality.SourceFresh,
		Weather:        reading,
	}, nil
}

// currentWeather returns nil when weather is disabled or unavailable.
func (s *Service) currentWeather(ctx context.Context, point airquality.Coordinate) *weather.Report {
	if s.weather == nil || !s.weather.Enabled() {
		return nil
	}
	report, err := s.weather.GetReport(ctx, point.Lat, point.Lon)
	if err != nil {
		s.logger.Warn().Err(err).Msg("weather unavailable, using neutral stagnation")
		return nil
	}
	return report
}

// StationsNear lists PM2.5 monitoring locations around coord, nearest first.
// Non-positive radius or limit select the configured defaults.
func (s *Service) StationsNear(ctx context.Context, coord airquality.Coordinate, radiusMeters, limit int) ([]airquality.Location, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	locations, err := s.resolver.LocationsNear(ctx, coord, radiusMeters, limit)
	s.metrics.RecordRequest(sensorProvider, "locations", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("stations near: %w", err)
	}
	return locations, nil
}

// Series24h returns the last 24 hourly points of a sensor. A non-positive
// sensor id yields an empty series.
func (s *Service) Series24h(ctx context.Context, sensorID int64) (airquality.Series, error) {
	if sensorID <= 0 {
		return airquality.Last24h(nil), nil
	}

	now := s.now()
	start := time.Now()
	rows, err := s.provider.SensorHourly(ctx, sensorID, now.Add(-seriesLookback), now)
	s.metrics.RecordRequest(sensorProvider, "hourly", time.Since(start), err)
	if err != nil {
		return airquality.Series{}, fmt.Errorf("series for sensor %d: %w", sensorID, err)
	}
	return airquality.Last24h(airquality.NormalizeHourly(rows)), nil
}

// Geocode searches places by name.
func (s *Service) Geocode(ctx context.Context, query string) ([]geocode.Place, error) {
	if s.geocoder == nil {
		return nil, ErrGeocodingDisabled
	}
	return s.geocoder.Search(ctx, query)
}
