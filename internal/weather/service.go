package weather

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Provider defines the interface for weather data providers.
type Provider interface {
	// GetReport fetches current weather and the hourly forecast for a location.
	GetReport(ctx context.Context, lat, lon float64) (*Report, error)

	// Name returns the provider name for logging.
	Name() string
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Provider is the weather data provider. A nil provider disables weather.
	Provider Provider

	Logger zerolog.Logger

	// GridSize is the cell size in degrees used to coalesce concurrent
	// requests. Default 0.01 (about 1km).
	GridSize float64

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Service fetches reports from the provider. Every call asks the provider;
// concurrent calls for the same grid cell share one upstream request. A
// failed fetch is returned to the caller, never replaced by an older report.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	gridSize float64
	now      func() time.Time

	inflight singleflight.Group

	mu    sync.Mutex
	stats Stats
}

// Stats counts upstream fetches.
type Stats struct {
	Provider      string
	Fetches       int64
	Failures      int64
	LastSuccessAt time.Time
	LastError     string
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		gridSize: cfg.GridSize,
		now:      cfg.Now,
	}
	if s.gridSize <= 0 {
		s.gridSize = 0.01
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.provider != nil {
		s.stats.Provider = s.provider.Name()
	}
	return s
}

// Enabled reports whether a provider is configured.
func (s *Service) Enabled() bool {
	return s.provider != nil
}

// GetReport fetches the report for lat/lon. Provider failures wrap
// ErrProviderUnavailable.
func (s *Service) GetReport(ctx context.Context, lat, lon float64) (*Report, error) {
	if s.provider == nil {
		return nil, ErrNotConfigured
	}
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	// The shared fetch must outlive any single caller's cancellation.
	ch := s.inflight.DoChan(s.cellKey(lat, lon), func() (interface{}, error) {
		return s.fetch(context.WithoutCancel(ctx), lat, lon)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Report), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) fetch(ctx context.Context, lat, lon float64) (*Report, error) {
	log := s.logger.With().
		Float64("lat", lat).
		Float64("lon", lon).
		Str("provider", s.provider.Name()).
		Logger()

	log.Debug().Msg("fetching weather from provider")

	report, err := s.provider.GetReport(ctx, lat, lon)

	s.mu.Lock()
	s.stats.Fetches++
	if err != nil {
		s.stats.Failures++
		s.stats.LastError = err.Error()
	} else {
		s.stats.LastSuccessAt = s.now()
	}
	s.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Msg("failed to fetch weather")
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	return report, nil
}

// cellKey snaps a point to the south-west corner of its grid cell.
func (s *Service) cellKey(lat, lon float64) string {
	gridLat := math.Floor(lat/s.gridSize) * s.gridSize
	gridLon := math.Floor(lon/s.gridSize) * s.gridSize
	return fmt.Sprintf("%.4f:%.4f", gridLat, gridLon)
}

// Stats returns the fetch counters.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
