// Package geocode resolves free-text place names to coordinates.
package geocode

import (
	"context"
	"errors"
)

// ErrProviderUnavailable is returned when the geocoder cannot be reached or answers badly.
var ErrProviderUnavailable = errors.New("geocoding provider unavailable")

// Place is a single geocoding match.
type Place struct {
	DisplayName string  `json:"displayName"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// Provider searches for places by name.
type Provider interface {
	Search(ctx context.Context, query string) ([]Place, error)
}
