package airquality

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// ResolveError is returned when every scanned location was skipped.
// It keeps the reason for each skipped location.
type ResolveError struct {
	Reasons []string
}

func (e *ResolveError) Error() string {
	if len(e.Reasons) == 0 {
		return ErrNoDataFound.Error()
	}
	return fmt.Sprintf("%s: %s", ErrNoDataFound, e.Reasons[len(e.Reasons)-1])
}

// Unwrap makes ResolveError match ErrNoDataFound.
func (e *ResolveError) Unwrap() error {
	return ErrNoDataFound
}

// Resolution is the best PM2.5 reading found near a coordinate.
type Resolution struct {
	Value        float64
	Unit         string
	TimestampUTC string
	SensorID     int64
	Location     Location
}

// ResolverConfig holds configuration for the sensor resolver.
type ResolverConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// RadiusMeters bounds the location search (default: 9000).
	RadiusMeters int

	// MaxLocations bounds the number of locations requested (default: 25).
	MaxLocations int

	// MaxChecks bounds the number of locations whose sensors are inspected (default: 10).
	MaxChecks int
}

// SensorResolver picks the single best PM2.5 sensor near a coordinate.
type SensorResolver struct {
	provider     Provider
	logger       zerolog.Logger
	radiusMeters int
	maxLocations int
	maxChecks    int
}

// NewSensorResolver creates a resolver.
func NewSensorResolver(cfg ResolverConfig) *SensorResolver {
	r := &SensorResolver{
		provider:     cfg.Provider,
		logger:       cfg.Logger,
		radiusMeters: cfg.RadiusMeters,
		maxLocations: cfg.MaxLocations,
		maxChecks:    cfg.MaxChecks,
	}
	if r.radiusMeters <= 0 {
		r.radiusMeters = 9000
	}
	if r.maxLocations <= 0 {
		r.maxLocations = 25
	}
	if r.maxChecks <= 0 {
		r.maxChecks = 10
	}
	return r
}

// LocationsNear returns PM2.5 locations near coord, nearest first when distances are known.
func (r *SensorResolver) LocationsNear(ctx context.Context, coord Coordinate, radiusMeters, limit int) ([]Location, error) {
	if radiusMeters <= 0 {
		radiusMeters = r.radiusMeters
	}
	if limit <= 0 {
		limit = r.maxLocations
	}

	locations, err := r.provider.LocationsNear(ctx, coord, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	sortByDistance(locations)
	return locations, nil
}

// Resolve finds the freshest PM2.5 reading near coord.
//
// Locations are visited nearest first, at most MaxChecks of them. A location
// is skipped when it has no PM2.5 sensor or its best sensor has no value.
func (r *SensorResolver) Resolve(ctx context.Context, coord Coordinate) (*Resolution, error) {
	locations, err := r.LocationsNear(ctx, coord, r.radiusMeters, r.maxLocations)
	if err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return nil, ErrNoLocationsFound
	}

	checks := min(len(locations), r.maxChecks)
	var reasons []string

	for _, loc := range locations[:checks] {
		sensors, err := r.provider.LocationSensors(ctx, loc.ID)
		if err != nil {
			// Credential problems will not improve at the next location.
			if errors.Is(err, ErrMissingAPIKey) || errors.Is(err, ErrInvalidAPIKey) {
				return nil, err
			}
			reasons = r.skip(reasons, loc, fmt.Sprintf("sensors unavailable: %v", err))
			continue
		}

		best := BestPM25Sensor(sensors)
		if best == nil {
			reasons = r.skip(reasons, loc, "no PM2.5 sensor")
			continue
		}
		if best.Latest == nil || best.Latest.Value == nil {
			reasons = r.skip(reasons, loc, fmt.Sprintf("PM2.5 sensor %d has no latest value", best.ID))
			continue
		}

		unit := strings.TrimSpace(best.Units)
		if unit == "" {
			unit = DefaultUnit
		}

		return &Resolution{
			Value:        *best.Latest.Value,
			Unit:         unit,
			TimestampUTC: best.Latest.TimestampUTC,
			SensorID:     best.ID,
			Location:     loc,
		}, nil
	}

	return nil, &ResolveError{Reasons: reasons}
}

func (r *SensorResolver) skip(reasons []string, loc Location, reason string) []string {
	r.logger.Warn().
		Int64("location_id", loc.ID).
		Str("location", loc.Name).
		Str("reason", reason).
		Msg("skipping air quality location")
	return append(reasons, fmt.Sprintf("location %d (%s): %s", loc.ID, loc.Name, reason))
}

// BestPM25Sensor returns the preferred PM2.5 sensor, or nil when none qualifies.
// A sensor with a latest value beats one without; ties go to the most recent timestamp.
func BestPM25Sensor(sensors []Sensor) *Sensor {
	var best *Sensor
	for i := range sensors {
		s := &sensors[i]
		if !s.IsPM25() {
			continue
		}
		if best == nil || betterSensor(s, best) {
			best = s
		}
	}
	return best
}

func betterSensor(a, b *Sensor) bool {
	aHas, bHas := hasValue(a), hasValue(b)
	if aHas != bHas {
		return aHas
	}
	// ISO-8601 UTC timestamps order lexicographically.
	return latestTimestamp(a) > latestTimestamp(b)
}

func hasValue(s *Sensor) bool {
	return s.Latest != nil && s.Latest.Value != nil
}

func latestTimestamp(s *Sensor) string {
	if s.Latest == nil {
		return ""
	}
	return s.Latest.TimestampUTC
}

// sortByDistance orders locations nearest first when any distance is known.
// Locations without a distance sort last; provider order is otherwise kept.
func sortByDistance(locations []Location) {
	anyDistance := false
	for _, l := range locations {
		if l.DistanceMeters != nil {
			anyDistance = true
			break
		}
	}
	if !anyDistance {
		return
	}

	sort.SliceStable(locations, func(i, j int) bool {
		di, dj := locations[i].DistanceMeters, locations[j].DistanceMeters
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return *di < *dj
		}
	})
}
