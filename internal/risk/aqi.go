// Package risk converts PM2.5 concentrations into AQI values and blends
// concentration, stagnation, trend and seasonality into a risk score.
// Every function here is pure.
package risk

import "math"

// Category is an AQI category label.
type Category string

const (
	CategoryGood          Category = "Good"
	CategoryModerate      Category = "Moderate"
	CategorySensitive     Category = "Unhealthy for Sensitive Groups"
	CategoryUnhealthy     Category = "Unhealthy"
	CategoryVeryUnhealthy Category = "Very Unhealthy"
	CategoryHazardous     Category = "Hazardous"
	CategoryUnknown       Category = "—"
)

const maxAQI = 500

// AllCategories returns the AQI categories from best to worst.
func AllCategories() []Category {
	return []Category{
		CategoryGood,
		CategoryModerate,
		CategorySensitive,
		CategoryUnhealthy,
		CategoryVeryUnhealthy,
		CategoryHazardous,
	}
}

type breakpoint struct {
	cLow, cHigh float64
	iLow, iHigh int
	category    Category
}

// US EPA PM2.5 breakpoints (µg/m³).
var pm25Breakpoints = []breakpoint{
	{0.0, 12.0, 0, 50, CategoryGood},
	{12.1, 35.4, 51, 100, CategoryModerate},
	{35.5, 55.4, 101, 150, CategorySensitive},
	{55.5, 150.4, 151, 200, CategoryUnhealthy},
	{150.5, 250.4, 201, 300, CategoryVeryUnhealthy},
	{250.5, 500.4, 301, 500, CategoryHazardous},
}

// AQIFromPM25 maps a concentration to an index in [0,500] and its category.
// An absent concentration yields (0, CategoryUnknown).
func AQIFromPM25(pm *float64) (int, Category) {
	if pm == nil {
		return 0, CategoryUnknown
	}
	return AQI(*pm)
}

// AQI maps a concentration to an index in [0,500] and its category.
//
// NaN yields (0, CategoryUnknown) and negative values count as zero. A
// value between two published ranges (for example 12.05) belongs to the
// upper range and is scored at its lower edge. Values above 500.4 clamp
// to 500.
func AQI(pm float64) (int, Category) {
	if math.IsNaN(pm) {
		return 0, CategoryUnknown
	}
	pm = max(0, pm)

	for _, bp := range pm25Breakpoints {
		if pm > bp.cHigh {
			continue
		}
		c := max(pm, bp.cLow)
		index := float64(bp.iHigh-bp.iLow)/(bp.cHigh-bp.cLow)*(c-bp.cLow) + float64(bp.iLow)
		return int(math.Round(index)), bp.category
	}

	return maxAQI, CategoryHazardous
}
