package conditions

import (
	"context"

	"github.com/aqoutlook/aqoutlook/internal/outlook"
	"github.com/aqoutlook/aqoutlook/internal/risk"
	"github.com/aqoutlook/aqoutlook/internal/weather"
)

// Outlook is an hourly projection for a city.
type Outlook struct {
	City        string          `json:"city"`
	CityDisplay string          `json:"city_display"`
	Hours       int             `json:"hours"`
	Stale       bool            `json:"stale,omitempty"`
	Results     []outlook.Point `json:"results"`
}

// SchoolDecision is the outdoor-activity verdict for the next school morning.
type SchoolDecision struct {
	City     string           `json:"city"`
	Decision outlook.Decision `json:"decision"`
	Slot     outlook.Point    `json:"slot"`
	Stale    bool             `json:"stale,omitempty"`
}

// Outlook projects a city's current snapshot forward. hours is clamped to
// [1, 72]. Weather failures only remove the weather from the projection.
func (s *Service) Outlook(ctx context.Context, cityKey string, hours int) (*Outlook, error) {
	hours = outlook.ClampHours(hours)
	c := s.ResolveCity(cityKey, nil)

	snap, err := s.CurrentSnapshot(ctx, c.Key, nil)
	if err != nil {
		return nil, err
	}

	var samples []weather.Sample
	if report := s.currentWeather(ctx, c.Coordinate); report != nil {
		samples = report.HourlyWindow(hours)
	}

	points := s.simulator.Simulate(outlook.Input{
		PM25:       snap.PM25,
		Start:      s.now().In(c.Location()),
		Hemisphere: risk.HemisphereFor(c.Coordinate.Lat),
	}, samples, hours)

	return &Outlook{
		City:        c.Key,
		CityDisplay: c.Display,
		Hours:       hours,
		Stale:       snap.Stale,
		Results:     points,
	}, nil
}

// SchoolDecision classifies the first morning slot (06:00 to 08:59 local)
// in the next 36 hours.
func (s *Service) SchoolDecision(ctx context.Context, cityKey string) (*SchoolDecision, error) {
	o, err := s.Outlook(ctx, cityKey, outlook.SchoolHorizonHours)
	if err != nil {
		return nil, err
	}

	slot := outlook.SchoolSlot(o.Results)
	return &SchoolDecision{
		City:     o.City,
		Decision: outlook.Decide(*slot),
		Slot:     *slot,
		Stale:    o.Stale,
	}, nil
}
