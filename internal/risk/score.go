package risk

import (
	"math"
	"time"
)

// Trend labels.
const (
	TrendRising  = "rising"
	TrendFalling = "falling"
	TrendStable  = "stable"
)

// AllTrends returns every trend label.
func AllTrends() []string {
	return []string{TrendRising, TrendFalling, TrendStable}
}

// Hemisphere selects which months count as the winter smog season.
type Hemisphere int

const (
	Northern Hemisphere = iota
	Southern
)

// HemisphereFor returns the hemisphere of a latitude.
func HemisphereFor(lat float64) Hemisphere {
	if lat < 0 {
		return Southern
	}
	return Northern
}

const (
	// pm25Guideline is the WHO 24h PM2.5 guideline in µg/m³.
	pm25Guideline = 15.0
	// pm25Saturation is the guideline multiple at which PMNorm reaches 1.
	pm25Saturation = 4.0

	neutralStagnation = 0.4
	neutralTrend      = 0.5
	trendDeadband     = 3.0

	seasonHigh = 0.75
	seasonLow  = 0.25

	// freshnessHorizon is the data age, in minutes, at which freshness reaches zero.
	freshnessHorizon = 180.0
)

// DefaultForecastStability is the stability assumed for a current snapshot.
const DefaultForecastStability = 0.7

// Weights is the risk blend. Each factor is in [0,1] and the weights sum to 1.
// Weights are tuned in code, not per user.
type Weights struct {
	PM          float64
	Stagnation  float64
	Trend       float64
	Seasonality float64
}

// DefaultWeights returns the production risk blend.
func DefaultWeights() Weights {
	return Weights{
		PM:          0.45,
		Stagnation:  0.25,
		Trend:       0.20,
		Seasonality: 0.10,
	}
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return min(1, max(0, x))
}

// PMNorm normalizes a concentration against the WHO guideline,
// saturating at four times the guideline.
func PMNorm(pm float64) float64 {
	return clamp01(pm / pm25Guideline / pm25Saturation)
}

// Stagnation scores how strongly the weather traps pollutants: low wind and
// high pressure score high. Missing wind or pressure yields a neutral 0.4.
func Stagnation(windMS, pressureHPa *float64) float64 {
	if windMS == nil || pressureHPa == nil {
		return neutralStagnation
	}
	wind := clamp01((2.5 - *windMS) / 2.5)
	pressure := clamp01((*pressureHPa - 1012) / 18.0)
	return clamp01(0.65*wind + 0.35*pressure)
}

// Trend scores the change between the first and last values of series.
// Fewer than two points yields (0.5, TrendStable).
func Trend(series []float64) (float64, string) {
	if len(series) < 2 {
		return neutralTrend, TrendStable
	}

	first := series[0]
	last := series[len(series)-1]
	delta := last - first

	denom := max(10.0, math.Abs(first)+10.0)
	score := clamp01((delta/denom + 0.7) / 1.4)

	switch {
	case delta > trendDeadband:
		return score, TrendRising
	case delta < -trendDeadband:
		return score, TrendFalling
	default:
		return score, TrendStable
	}
}

// Seasonality is the winter smog prior: high from November to March in the
// northern hemisphere and from May to September in the southern.
func Seasonality(month time.Month, h Hemisphere) float64 {
	if h == Southern {
		if month >= time.May && month <= time.September {
			return seasonHigh
		}
		return seasonLow
	}
	if month >= time.November || month <= time.March {
		return seasonHigh
	}
	return seasonLow
}

// Confidence blends data freshness, hourly coverage and forecast stability.
func Confidence(ageMinutes, coverage, stability float64) float64 {
	freshness := clamp01(1 - ageMinutes/freshnessHorizon)
	return clamp01(0.5*freshness + 0.35*clamp01(coverage) + 0.15*clamp01(stability))
}

// Index combines the factor scores into a 0-100 risk score.
func (w Weights) Index(pm, stagnation, trend, seasonality float64) int {
	r := w.PM*PMNorm(pm) +
		w.Stagnation*clamp01(stagnation) +
		w.Trend*clamp01(trend) +
		w.Seasonality*clamp01(seasonality)
	return int(math.Round(100 * clamp01(r)))
}

// Input holds everything needed to score one point in time.
type Input struct {
	PM25        float64
	WindMS      *float64
	PressureHPa *float64
	// Series is the recent concentration history, oldest first.
	Series            []float64
	AgeMinutes        float64
	Coverage          float64
	ForecastStability float64
	Month             time.Month
	Hemisphere        Hemisphere
}

// Factors are the intermediate scores behind a Result.
type Factors struct {
	PMNorm      float64 `json:"pm_norm"`
	Stagnation  float64 `json:"stagnation"`
	Trend       float64 `json:"trend"`
	Seasonality float64 `json:"seasonality"`
}

// Result is a scored point in time.
type Result struct {
	AQI        int
	Category   Category
	RiskScore  int
	Confidence float64
	Trend      string
	Factors    Factors
}

// Scorer scores inputs with a fixed weight policy.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer. Zero weights select DefaultWeights.
func NewScorer(w Weights) *Scorer {
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	return &Scorer{weights: w}
}

// Weights returns the weight policy in use.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score computes the AQI, risk score, confidence and trend for in.
func (s *Scorer) Score(in Input) Result {
	aqi, category := AQI(in.PM25)
	trendScore, trendLabel := Trend(in.Series)

	f := Factors{
		PMNorm:      PMNorm(in.PM25),
		Stagnation:  Stagnation(in.WindMS, in.PressureHPa),
		Trend:       trendScore,
		Seasonality: Seasonality(in.Month, in.Hemisphere),
	}

	return Result{
		AQI:        aqi,
		Category:   category,
		RiskScore:  s.weights.Index(in.PM25, f.Stagnation, f.Trend, f.Seasonality),
		Confidence: Confidence(in.AgeMinutes, in.Coverage, in.ForecastStability),
		Trend:      trendLabel,
		Factors:    f,
	}
}
