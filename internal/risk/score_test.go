package risk_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aqoutlook/aqoutlook/internal/risk"
)

func TestPMNorm(t *testing.T) {
	assert.Equal(t, 0.0, risk.PMNorm(0))
	assert.InDelta(t, 0.25, risk.PMNorm(15), 1e-9)
	assert.Equal(t, 1.0, risk.PMNorm(60))
	assert.Equal(t, 1.0, risk.PMNorm(250))
	assert.Equal(t, 0.0, risk.PMNorm(-5))
}

func TestStagnation(t *testing.T) {
	tests := []struct {
		name     string
		wind     *float64
		pressure *float64
		want     float64
	}{
		{"both absent", nil, nil, 0.4},
		{"wind absent", nil, ptr(1030), 0.4},
		{"pressure absent", ptr(0), nil, 0.4},
		{"calm and high pressure", ptr(0), ptr(1030), 1.0},
		{"windy and low pressure", ptr(6), ptr(1000), 0.0},
		{"calm and low pressure", ptr(0), ptr(1012), 0.65},
		{"half wind half pressure", ptr(1.25), ptr(1021), 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, risk.Stagnation(tt.wind, tt.pressure), 1e-9)
		})
	}
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name   string
		series []float64
		label  string
		score  float64
	}{
		{"empty", nil, risk.TrendStable, 0.5},
		{"single", []float64{42}, risk.TrendStable, 0.5},
		{"rising", []float64{10, 20}, risk.TrendRising, (10.0/20.0 + 0.7) / 1.4},
		{"falling", []float64{20, 10}, risk.TrendFalling, (-10.0/30.0 + 0.7) / 1.4},
		{"stable", []float64{10, 11}, risk.TrendStable, (1.0/20.0 + 0.7) / 1.4},
		{"uses first and last only", []float64{10, 90, 0, 12}, risk.TrendStable, (2.0/20.0 + 0.7) / 1.4},
		{"saturates", []float64{0, 100}, risk.TrendRising, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, label := risk.Trend(tt.series)
			assert.Equal(t, tt.label, label)
			assert.InDelta(t, tt.score, score, 1e-9)
		})
	}
}

func TestSeasonality(t *testing.T) {
	for m := time.January; m <= time.December; m++ {
		winterNorth := m >= time.November || m <= time.March
		want := 0.25
		if winterNorth {
			want = 0.75
		}
		assert.Equal(t, want, risk.Seasonality(m, risk.Northern), m.String())
	}

	assert.Equal(t, 0.75, risk.Seasonality(time.July, risk.Southern))
	assert.Equal(t, 0.25, risk.Seasonality(time.January, risk.Southern))
	assert.Equal(t, risk.Southern, risk.HemisphereFor(-33.9))
	assert.Equal(t, risk.Northern, risk.HemisphereFor(43.2))
}

func TestConfidence(t *testing.T) {
	assert.InDelta(t, 1.0, risk.Confidence(0, 1, 1), 1e-9)
	assert.InDelta(t, 0.0, risk.Confidence(500, 0, 0), 1e-9)
	// 90 minutes old: freshness 0.5.
	assert.InDelta(t, 0.5*0.5+0.35*0.75+0.15*0.7, risk.Confidence(90, 0.75, 0.7), 1e-9)
	// Inputs outside [0,1] are clamped.
	assert.InDelta(t, 0.5+0.35+0.15, risk.Confidence(-30, 3, 2), 1e-9)
}

func TestWeights_Index(t *testing.T) {
	w := risk.DefaultWeights()

	assert.Equal(t, 0, w.Index(0, 0, 0, 0))
	assert.Equal(t, 100, w.Index(60, 1, 1, 1))
	assert.Equal(t, 100, w.Index(1000, 5, 5, 5))
	assert.Equal(t, 0, w.Index(-10, -1, -1, -1))
	// 0.45*0.25 + 0.25*0.4 + 0.20*0.5 + 0.10*0.75 = 0.3875
	assert.Equal(t, 39, w.Index(15, 0.4, 0.5, 0.75))

	for pm := 0.0; pm <= 120; pm += 7.5 {
		for f := 0.0; f <= 1.0; f += 0.25 {
			idx := w.Index(pm, f, f, f)
			assert.GreaterOrEqual(t, idx, 0)
			assert.LessOrEqual(t, idx, 100)
		}
	}
}

func TestDefaultWeightsSumToOne(t *testing.T) {
	w := risk.DefaultWeights()
	assert.InDelta(t, 1.0, w.PM+w.Stagnation+w.Trend+w.Seasonality, 1e-9)
}

func TestScorer_Score(t *testing.T) {
	scorer := risk.NewScorer(risk.Weights{})
	assert.Equal(t, risk.DefaultWeights(), scorer.Weights())

	in := risk.Input{
		PM25:              35.4,
		WindMS:            ptr(0.5),
		PressureHPa:       ptr(1027),
		Series:            []float64{20, 35.4},
		AgeMinutes:        30,
		Coverage:          0.9,
		ForecastStability: risk.DefaultForecastStability,
		Month:             time.January,
	}

	res := scorer.Score(in)

	assert.Equal(t, 100, res.AQI)
	assert.Equal(t, risk.CategoryModerate, res.Category)
	assert.Equal(t, risk.TrendRising, res.Trend)
	assert.InDelta(t, 0.59, res.Factors.PMNorm, 1e-9)
	assert.InDelta(t, 0.65*0.8+0.35*(15.0/18.0), res.Factors.Stagnation, 1e-9)
	assert.Equal(t, 0.75, res.Factors.Seasonality)

	expectedRisk := 0.45*res.Factors.PMNorm + 0.25*res.Factors.Stagnation + 0.20*res.Factors.Trend + 0.10*0.75
	assert.InDelta(t, expectedRisk*100, float64(res.RiskScore), 0.5)
	assert.InDelta(t, risk.Confidence(30, 0.9, 0.7), res.Confidence, 1e-12)

	// Pure: identical inputs, identical results.
	assert.Equal(t, res, scorer.Score(in))
}

func TestScorer_Score_NaNConcentration(t *testing.T) {
	res := risk.NewScorer(risk.DefaultWeights()).Score(risk.Input{
		PM25:              math.NaN(),
		Series:            []float64{math.NaN()},
		AgeMinutes:        30,
		Coverage:          0.9,
		ForecastStability: risk.DefaultForecastStability,
		Month:             time.July,
	})

	assert.Equal(t, 0, res.AQI)
	assert.Equal(t, risk.CategoryUnknown, res.Category)
	assert.Zero(t, res.Factors.PMNorm)
	assert.GreaterOrEqual(t, res.RiskScore, 0)
	assert.LessOrEqual(t, res.RiskScore, 100)
}

func TestScorer_CustomWeights(t *testing.T) {
	legacy := risk.NewScorer(risk.Weights{PM: 0.55, Stagnation: 0.20, Trend: 0.15, Seasonality: 0.10})

	in := risk.Input{PM25: 60, Month: time.July}
	res := legacy.Score(in)

	// 0.55*1 + 0.20*0.4 + 0.15*0.5 + 0.10*0.25 = 0.73
	assert.Equal(t, 73, res.RiskScore)
}
