// Package airquality provides PM2.5 sensor discovery, measurement series
// normalization and the scored snapshot model.
package airquality

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Provider errors.
var (
	// ErrMissingAPIKey is returned when the sensor network requires a key and none is configured.
	ErrMissingAPIKey = errors.New("air quality API key is missing")

	// ErrInvalidAPIKey is returned when the sensor network rejects the configured key.
	ErrInvalidAPIKey = errors.New("air quality API key was rejected")

	// ErrProviderUnavailable is returned on transport failures and non-success statuses.
	ErrProviderUnavailable = errors.New("air quality provider unavailable")

	// ErrNoDataFound is the root of every "nothing usable near this point" failure.
	ErrNoDataFound = errors.New("no air quality data found")

	// ErrNoLocationsFound is returned when no PM2.5 location is near the coordinate.
	ErrNoLocationsFound = fmt.Errorf("%w: no PM2.5 locations near coordinate", ErrNoDataFound)
)

// PM25ParameterID is the sensor network's numeric id for PM2.5.
const PM25ParameterID = 2

// DefaultUnit is reported when a sensor does not carry a unit.
const DefaultUnit = "µg/m³"

// Coordinate is a WGS84 point in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Location is a monitoring site reported by the sensor network.
type Location struct {
	ID             int64
	Name           string
	Coordinate     Coordinate
	DistanceMeters *float64
	Provider       string
	Owner          string
}

// Reading is the most recent value reported by a sensor.
type Reading struct {
	Value        *float64
	TimestampUTC string
}

// Sensor is a single instrument at a Location.
type Sensor struct {
	ID            int64
	ParameterID   int
	ParameterName string
	Units         string
	Latest        *Reading
}

// IsPM25 reports whether the sensor measures PM2.5, by id or by name.
func (s *Sensor) IsPM25() bool {
	if s.ParameterID == PM25ParameterID {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(s.ParameterName)) {
	case "pm25", "pm2.5", "pm2_5":
		return true
	}
	return false
}

// HourlyRow is one raw hourly aggregate as returned by the sensor network.
// Any field may be absent.
type HourlyRow struct {
	Value           *float64
	PeriodFromUTC   string
	PeriodFromLocal string
	PercentCoverage *float64
}

// MeasurementPoint is a normalized hourly measurement.
type MeasurementPoint struct {
	// Timestamp keeps the offset reported upstream, so it formats as local wall time.
	Timestamp time.Time
	Value     float64
	Coverage  *float64
}

// Provider is the sensor-network collaborator.
type Provider interface {
	// LocationsNear returns monitoring locations advertising PM2.5 within radiusMeters.
	LocationsNear(ctx context.Context, coord Coordinate, radiusMeters, limit int) ([]Location, error)

	// LocationSensors returns the sensors installed at a location.
	LocationSensors(ctx context.Context, locationID int64) ([]Sensor, error)

	// SensorHourly returns hourly aggregates for a sensor within [from, to].
	SensorHourly(ctx context.Context, sensorID int64, from, to time.Time) ([]HourlyRow, error)
}
