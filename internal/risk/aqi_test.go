package risk_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aqoutlook/aqoutlook/internal/risk"
)

func ptr(v float64) *float64 { return &v }

func TestAQI_Breakpoints(t *testing.T) {
	tests := []struct {
		name     string
		pm       float64
		aqi      int
		category risk.Category
	}{
		{"zero", 0, 0, risk.CategoryGood},
		{"negative clamps to zero", -4, 0, risk.CategoryGood},
		{"good top", 12.0, 50, risk.CategoryGood},
		{"gap above good", 12.05, 51, risk.CategoryModerate},
		{"moderate bottom", 12.1, 51, risk.CategoryModerate},
		{"moderate top", 35.4, 100, risk.CategoryModerate},
		{"sensitive bottom", 35.5, 101, risk.CategorySensitive},
		{"sensitive top", 55.4, 150, risk.CategorySensitive},
		{"unhealthy bottom", 55.5, 151, risk.CategoryUnhealthy},
		{"unhealthy top", 150.4, 200, risk.CategoryUnhealthy},
		{"very unhealthy bottom", 150.5, 201, risk.CategoryVeryUnhealthy},
		{"very unhealthy top", 250.4, 300, risk.CategoryVeryUnhealthy},
		{"hazardous bottom", 250.5, 301, risk.CategoryHazardous},
		{"hazardous top", 500.4, 500, risk.CategoryHazardous},
		{"above scale", 600, 500, risk.CategoryHazardous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			aqi, category := risk.AQI(tt.pm)
			assert.Equal(t, tt.aqi, aqi)
			assert.Equal(t, tt.category, category)
		})
	}
}

func TestAQIFromPM25_Absent(t *testing.T) {
	aqi, category := risk.AQIFromPM25(nil)
	assert.Equal(t, 0, aqi)
	assert.Equal(t, risk.CategoryUnknown, category)

	aqi, category = risk.AQIFromPM25(ptr(math.NaN()))
	assert.Equal(t, 0, aqi)
	assert.Equal(t, risk.CategoryUnknown, category)

	aqi, category = risk.AQIFromPM25(ptr(12.0))
	assert.Equal(t, 50, aqi)
	assert.Equal(t, risk.CategoryGood, category)
}

func TestAQI_NaN(t *testing.T) {
	aqi, category := risk.AQI(math.NaN())
	assert.Equal(t, 0, aqi)
	assert.Equal(t, risk.CategoryUnknown, category)
}

func TestAQI_MonotonicAndBounded(t *testing.T) {
	prev := -1
	for pm := 0.0; pm <= 650; pm += 0.05 {
		aqi, _ := risk.AQI(pm)
		assert.GreaterOrEqual(t, aqi, prev, "pm=%.2f", pm)
		assert.GreaterOrEqual(t, aqi, 0)
		assert.LessOrEqual(t, aqi, 500)
		prev = aqi
	}
}

func TestAllCategories(t *testing.T) {
	cats := risk.AllCategories()
	assert.Len(t, cats, 6)
	assert.Equal(t, risk.CategoryGood, cats[0])
	assert.Equal(t, risk.CategoryHazardous, cats[5])
}
