// Package weather provides current and hourly forecast weather used to
// score atmospheric stagnation.
package weather

import (
	"errors"
	"time"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
	ErrNotConfigured       = errors.New("weather provider not configured")
)

// Condition represents the general weather condition.
type Condition string

const (
	ConditionClear        Condition = "CLEAR"
	ConditionClouds       Condition = "CLOUDS"
	ConditionRain         Condition = "RAIN"
	ConditionDrizzle      Condition = "DRIZZLE"
	ConditionThunderstorm Condition = "THUNDERSTORM"
	ConditionSnow         Condition = "SNOW"
	ConditionMist         Condition = "MIST"
	ConditionFog          Condition = "FOG"
	ConditionHaze         Condition = "HAZE"
	ConditionUnknown      Condition = "UNKNOWN"
)

// Sample is the weather at one instant. Any measurement may be absent.
type Sample struct {
	Time        time.Time
	TempC       *float64
	WindMS      *float64
	PressureHPa *float64
	Humidity    *float64
	Condition   Condition
}

// Known reports whether both wind and pressure are present.
func (s Sample) Known() bool {
	return s.WindMS != nil && s.PressureHPa != nil
}

// Report is the current weather plus an hourly forecast for a point.
type Report struct {
	Lat     float64
	Lon     float64
	Current Sample
	// Hourly starts at the current hour, oldest first.
	Hourly    []Sample
	FetchedAt time.Time
}

// HourlyWindow returns the first n hourly samples, padded with empty samples
// when the forecast is shorter than n.
func (r *Report) HourlyWindow(n int) []Sample {
	out := make([]Sample, n)
	if r != nil {
		copy(out, r.Hourly)
	}
	return out
}
