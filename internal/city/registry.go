// Package city holds the named cities the service reports on.
package city

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	_ "time/tzdata" // containers often ship without zoneinfo

	"github.com/aqoutlook/aqoutlook/internal/airquality"
)

// Registry errors.
var (
	ErrEmptyRegistry  = errors.New("city registry is empty")
	ErrUnknownDefault = errors.New("default city is not in the registry")
	ErrInvalidCity    = errors.New("invalid city definition")
)

// City is a named reporting area.
type City struct {
	Key        string
	Display    string
	Coordinate airquality.Coordinate
	Timezone   string

	loc *time.Location
}

// Location returns the city's time zone, UTC if unknown.
func (c City) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Defaults returns the built-in cities.
func Defaults() []City {
	return []City{
		{
			Key:        "almaty",
			Display:    "Almaty",
			Coordinate: airquality.Coordinate{Lat: 43.238949, Lon: 76.889709},
			Timezone:   "Asia/Almaty",
		},
		{
			Key:        "astana",
			Display:    "Astana",
			Coordinate: airquality.Coordinate{Lat: 51.169392, Lon: 71.449074},
			Timezone:   "Asia/Almaty",
		},
	}
}

type cityJSON struct {
	Display  string  `json:"display"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Timezone string  `json:"timezone"`
}

// ParseJSON decodes a {"key": {"display","lat","lon","timezone"}} document.
func ParseJSON(data string) ([]City, error) {
	var raw map[string]cityJSON
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCity, err)
	}

	cities := make([]City, 0, len(raw))
	for key, c := range raw {
		cities = append(cities, City{
			Key:        key,
			Display:    c.Display,
			Coordinate: airquality.Coordinate{Lat: c.Lat, Lon: c.Lon},
			Timezone:   c.Timezone,
		})
	}
	sort.Slice(cities, func(i, j int) bool { return cities[i].Key < cities[j].Key })
	return cities, nil
}

// Registry looks cities up by key or position.
type Registry struct {
	cities     map[string]City
	order      []string
	defaultKey string
}

// NewRegistry validates cities and builds a registry.
// Keys are case-insensitive; the default must be one of them.
func NewRegistry(cities []City, defaultKey string) (*Registry, error) {
	if len(cities) == 0 {
		return nil, ErrEmptyRegistry
	}

	r := &Registry{
		cities:     make(map[string]City, len(cities)),
		defaultKey: strings.ToLower(strings.TrimSpace(defaultKey)),
	}

	for _, c := range cities {
		c.Key = strings.ToLower(strings.TrimSpace(c.Key))
		if c.Key == "" {
			return nil, fmt.Errorf("%w: empty key", ErrInvalidCity)
		}
		if err := c.Coordinate.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCity, c.Key, err)
		}
		if c.Display == "" {
			c.Display = c.Key
		}
		if c.Timezone != "" {
			loc, err := time.LoadLocation(c.Timezone)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCity, c.Key, err)
			}
			c.loc = loc
		}
		if _, dup := r.cities[c.Key]; !dup {
			r.order = append(r.order, c.Key)
		}
		r.cities[c.Key] = c
	}

	if _, ok := r.cities[r.defaultKey]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDefault, defaultKey)
	}
	return r, nil
}

// Get returns the city for key.
func (r *Registry) Get(key string) (City, bool) {
	c, ok := r.cities[strings.ToLower(strings.TrimSpace(key))]
	return c, ok
}

// Lookup returns the city for key, or the default city when key is empty or unknown.
func (r *Registry) Lookup(key string) City {
	if c, ok := r.Get(key); ok {
		return c
	}
	return r.Default()
}

// Default returns the default city.
func (r *Registry) Default() City {
	return r.cities[r.defaultKey]
}

// All returns the cities in registration order.
func (r *Registry) All() []City {
	out := make([]City, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.cities[k])
	}
	return out
}

// Nearest returns the city closest to coord.
func (r *Registry) Nearest(coord airquality.Coordinate) City {
	var best City
	bestDist := -1.0
	for _, k := range r.order {
		c := r.cities[k]
		d := airquality.DistanceMeters(coord, c.Coordinate)
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
