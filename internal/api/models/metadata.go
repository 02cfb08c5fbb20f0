package models

import (
	"github.com/aqoutlook/aqoutlook/internal/airquality"
	"github.com/aqoutlook/aqoutlook/internal/conditions"
	"github.com/aqoutlook/aqoutlook/internal/geocode"
	"github.com/aqoutlook/aqoutlook/internal/outlook"
	"github.com/aqoutlook/aqoutlook/internal/risk"
)

// Station represents an air quality monitoring location.
type Station struct {
	ID        int64                 `json:"id"`
	Name      string                `json:"name"`
	DistanceM *float64              `json:"distance_m"`
	Coords    airquality.Coordinate `json:"coords"`
	Provider  string                `json:"provider,omitempty"`
	Owner     string                `json:"owner,omitempty"`
}

// StationList is the response of GET /v1/stations/near.
type StationList struct {
	Count   int       `json:"count"`
	Results []Station `json:"results"`
}

// NewStationList converts locations into a StationList.
func NewStationList(locations []airquality.Location) StationList {
	out := StationList{Count: len(locations), Results: make([]Station, 0, len(locations))}
	for _, l := range locations {
		out.Results = append(out.Results, Station{
			ID:        l.ID,
			Name:      l.Name,
			DistanceM: l.DistanceMeters,
			Coords:    l.Coordinate,
			Provider:  l.Provider,
			Owner:     l.Owner,
		})
	}
	return out
}

// CityList is the response of GET /v1/cities.
type CityList struct {
	Results []conditions.CityInfo `json:"results"`
}

// GeocodeResults is the response of GET /v1/geocode.
type GeocodeResults struct {
	Results []geocode.Place `json:"results"`
}

// Enums represents the enum values used by the API.
type Enums struct {
	Categories []risk.Category    `json:"categories"`
	Trends     []string           `json:"trends"`
	Decisions  []outlook.Decision `json:"decisions"`
}
