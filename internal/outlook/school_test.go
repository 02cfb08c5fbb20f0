package outlook_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqoutlook/aqoutlook/internal/outlook"
	"github.com/aqoutlook/aqoutlook/internal/risk"
)

func TestSchoolSlot(t *testing.T) {
	base := time.Date(2026, 1, 10, 22, 0, 0, 0, time.UTC)
	points := make([]outlook.Point, 12)
	for i := range points {
		points[i] = outlook.Point{Time: base.Add(time.Duration(i) * time.Hour)}
	}

	slot := outlook.SchoolSlot(points)
	require.NotNil(t, slot)
	assert.Equal(t, 6, slot.Time.Hour())

	late := points[11:]
	require.NotNil(t, outlook.SchoolSlot(late))
	assert.Equal(t, 9, outlook.SchoolSlot(late).Time.Hour())

	assert.Nil(t, outlook.SchoolSlot(nil))
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		category risk.Category
		risk     int
		want     outlook.Decision
	}{
		{"good and low risk", risk.CategoryGood, 20, outlook.DecisionOutdoorOK},
		{"moderate just below threshold", risk.CategoryModerate, 44, outlook.DecisionOutdoorOK},
		{"moderate at threshold", risk.CategoryModerate, 45, outlook.DecisionCaution},
		{"sensitive low risk", risk.CategorySensitive, 30, outlook.DecisionCaution},
		{"unhealthy just below caution limit", risk.CategoryUnhealthy, 69, outlook.DecisionCaution},
		{"unhealthy at caution limit", risk.CategoryUnhealthy, 70, outlook.DecisionIndoors},
		{"hazardous", risk.CategoryHazardous, 95, outlook.DecisionIndoors},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outlook.Decide(outlook.Point{Category: tt.category, Risk: tt.risk}))
		})
	}
}
