// Package outlook projects a current PM2.5 snapshot forward hour by hour
// using forecast wind and pressure.
//
// Each step only looks at the previous concentration and that hour's
// weather: calm air under high pressure lets PM2.5 build up, wind disperses
// it, and anything else decays slowly.
package outlook

import (
	"math"
	"time"

	"github.com/aqoutlook/aqoutlook/internal/airquality"
	"github.com/aqoutlook/aqoutlook/internal/risk"
	"github.com/aqoutlook/aqoutlook/internal/weather"
)

// Hour bounds.
const (
	MinHours     = 1
	MaxHours     = 72
	DefaultHours = 72
)

const (
	stagnantWindMS     = 1.5
	stagnantPressure   = 1020.0
	dispersingWindMS   = 5.5
	stagnationFactor   = 1.03
	dispersionFactor   = 0.90
	mildDecayFactor    = 0.99
	unknownDecayFactor = 0.995

	baseAgeMinutes    = 30.0
	agePerStepMinutes = 5.0
	stepCoverage      = 0.7
	stabilityKnown    = 0.75
	stabilityUnknown  = 0.55
)

// Point is one simulated future hour.
type Point struct {
	Time time.Time `json:"-"`
	// Label is the local wall-clock time of the hour, "01-02 15:04".
	Label      string                    `json:"t"`
	PM25       float64                   `json:"pm25"`
	AQI        int                       `json:"aqi"`
	Category   risk.Category             `json:"category"`
	Risk       int                       `json:"risk"`
	Confidence float64                   `json:"confidence"`
	Weather    airquality.WeatherReading `json:"weather"`
}

// Input is the starting state of a simulation.
type Input struct {
	// PM25 is the current concentration.
	PM25 float64
	// Start is the time of the first step. Its location sets the labels.
	Start time.Time
	// Hemisphere selects the seasonal prior.
	Hemisphere risk.Hemisphere
}

// ClampHours bounds a requested horizon to [MinHours, MaxHours].
func ClampHours(hours int) int {
	return min(MaxHours, max(MinHours, hours))
}

// Simulator runs the hourly projection with a fixed scorer.
type Simulator struct {
	scorer *risk.Scorer
}

// NewSimulator creates a simulator. A nil scorer uses the default weights.
func NewSimulator(scorer *risk.Scorer) *Simulator {
	if scorer == nil {
		scorer = risk.NewScorer(risk.Weights{})
	}
	return &Simulator{scorer: scorer}
}

// Step applies one hour of weather to a concentration.
func Step(pm float64, sample weather.Sample) float64 {
	if !sample.Known() {
		return pm * unknownDecayFactor
	}

	wind, pressure := *sample.WindMS, *sample.PressureHPa
	switch {
	case wind < stagnantWindMS && pressure > stagnantPressure:
		return pm * stagnationFactor
	case wind > dispersingWindMS:
		return pm * dispersionFactor
	default:
		return pm * mildDecayFactor
	}
}

// Simulate projects in forward across samples, which are clamped or padded
// to the clamped number of hours. Missing samples count as unknown weather.
// The result depends only on its arguments.
func (s *Simulator) Simulate(in Input, samples []weather.Sample, hours int) []Point {
	hours = ClampHours(hours)

	points := make([]Point, 0, hours)
	pm := in.PM25

	for i := 0; i < hours; i++ {
		var sample weather.Sample
		if i < len(samples) {
			sample = samples[i]
		}

		pm = Step(pm, sample)
		at := in.Start.Add(time.Duration(i) * time.Hour)

		stability := stabilityUnknown
		if sample.WindMS != nil {
			stability = stabilityKnown
		}

		res := s.scorer.Score(risk.Input{
			PM25:              pm,
			WindMS:            sample.WindMS,
			PressureHPa:       sample.PressureHPa,
			Series:            []float64{in.PM25, pm},
			AgeMinutes:        baseAgeMinutes + float64(i)*agePerStepMinutes,
			Coverage:          stepCoverage,
			ForecastStability: stability,
			Month:             at.Month(),
			Hemisphere:        in.Hemisphere,
		})

		points = append(points, Point{
			Time:       at,
			Label:      at.Format("01-02 15:04"),
			PM25:       round1(pm),
			AQI:        res.AQI,
			Category:   res.Category,
			Risk:       res.RiskScore,
			Confidence: res.Confidence,
			Weather: airquality.WeatherReading{
				TempC:       sample.TempC,
				WindMS:      sample.WindMS,
				PressureHPa: sample.PressureHPa,
			},
		})
	}

	return points
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
