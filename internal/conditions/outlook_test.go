package conditions_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqoutlook/aqoutlook/internal/outlook"
	"github.com/aqoutlook/aqoutlook/internal/weather"
)

func hourlyWeather(n int, wind, pressure float64) *fakeWeather {
	samples := make([]weather.Sample, n)
	for i := range samples {
		samples[i] = weather.Sample{
			Time:        testNow.Add(time.Duration(i) * time.Hour),
			TempC:       f64(-3),
			WindMS:      f64(wind),
			PressureHPa: f64(pressure),
		}
	}
	return &fakeWeather{report: &weather.Report{Current: samples[0], Hourly: samples}}
}

func TestOutlook_ClampsHours(t *testing.T) {
	svc, _ := newTestService(t, pmProvider(25), hourlyWeather(48, 3, 1010))
	ctx := context.Background()

	o, err := svc.Outlook(ctx, "almaty", 500)
	require.NoError(t, err)
	assert.Equal(t, outlook.MaxHours, o.Hours)
	assert.Len(t, o.Results, outlook.MaxHours)
	assert.Equal(t, "almaty", o.City)

	// Hours past the forecast have no weather.
	assert.True(t, o.Results[47].Weather.Known())
	assert.False(t, o.Results[48].Weather.Known())

	o, err = svc.Outlook(ctx, "almaty", -4)
	require.NoError(t, err)
	assert.Len(t, o.Results, outlook.MinHours)
}

func TestOutlook_LabelsUseCityTime(t *testing.T) {
	svc, _ := newTestService(t, pmProvider(25), nil)

	o, err := svc.Outlook(context.Background(), "astana", 3)
	require.NoError(t, err)
	require.Len(t, o.Results, 3)
	assert.Equal(t, "01-15 13:00", o.Results[0].Label)
	assert.Equal(t, "01-15 15:00", o.Results[2].Label)
}

func TestOutlook_Deterministic(t *testing.T) {
	svc, _ := newTestService(t, pmProvider(25), hourlyWeather(72, 1.0, 1025))
	ctx := context.Background()

	a, err := svc.Outlook(ctx, "almaty", 24)
	require.NoError(t, err)
	b, err := svc.Outlook(ctx, "almaty", 24)
	require.NoError(t, err)

	require.Len(t, b.Results, len(a.Results))
	for i := range a.Results {
		assert.Equal(t, a.Results[i].PM25, b.Results[i].PM25)
		assert.Equal(t, a.Results[i].AQI, b.Results[i].AQI)
		assert.Equal(t, a.Results[i].Risk, b.Results[i].Risk)
	}
	// Stagnant air keeps concentrations rising.
	assert.Greater(t, a.Results[23].PM25, a.Results[0].PM25)
}

func TestOutlook_WeatherFailureStillProjects(t *testing.T) {
	svc, _ := newTestService(t, pmProvider(25), &fakeWeather{err: weather.ErrProviderUnavailable})

	o, err := svc.Outlook(context.Background(), "almaty", 6)
	require.NoError(t, err)
	require.Len(t, o.Results, 6)
	for _, p := range o.Results {
		assert.False(t, p.Weather.Known())
	}
}

func TestSchoolDecision(t *testing.T) {
	tests := []struct {
		name    string
		pm      float64
		weather *fakeWeather
		want    outlook.Decision
	}{
		{
			name:    "clean breezy morning",
			pm:      5,
			weather: hourlyWeather(48, 3, 1010),
			want:    outlook.DecisionOutdoorOK,
		},
		{
			name:    "smog under stagnant air",
			pm:      300,
			weather: hourlyWeather(48, 0.5, 1030),
			want:    outlook.DecisionIndoors,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, pmProvider(tt.pm), tt.weather)

			d, err := svc.SchoolDecision(context.Background(), "almaty")
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Decision)
			assert.Equal(t, "almaty", d.City)
			// 08:00 UTC is 13:00 in Almaty, so the next 06:00 is tomorrow.
			assert.Equal(t, "01-16 06:00", d.Slot.Label)
		})
	}
}

func TestSchoolDecision_Failure(t *testing.T) {
	p := pmProvider(25)
	p.fail(context.DeadlineExceeded)
	svc, _ := newTestService(t, p, nil)

	_, err := svc.SchoolDecision(context.Background(), "almaty")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
