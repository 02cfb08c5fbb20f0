package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqoutlook/aqoutlook/internal/airquality"
	"github.com/aqoutlook/aqoutlook/internal/api"
	"github.com/aqoutlook/aqoutlook/internal/api/handler"
	"github.com/aqoutlook/aqoutlook/internal/api/middleware"
	"github.com/aqoutlook/aqoutlook/internal/api/models"
	"github.com/aqoutlook/aqoutlook/internal/conditions"
	"github.com/aqoutlook/aqoutlook/internal/geocode"
	"github.com/aqoutlook/aqoutlook/internal/outlook"
	"github.com/aqoutlook/aqoutlook/internal/provider/resilience"
	"github.com/aqoutlook/aqoutlook/internal/risk"
	"github.com/aqoutlook/aqoutlook/internal/weather"
)

// fakeConditions records the arguments it was called with.
type fakeConditions struct {
	err   error
	stale bool

	gotCity     string
	gotCoord    *airquality.Coordinate
	gotHours    int
	gotSensorID int64
	gotRadius   int
	gotLimit    int
	gotQuery    string
}

func (f *fakeConditions) Cities() []conditions.CityInfo {
	return []conditions.CityInfo{
		{Key: "almaty", Display: "Almaty"},
		{Key: "astana", Display: "Astana"},
	}
}

func (f *fakeConditions) CurrentSnapshot(_ context.Context, city string, coord *airquality.Coordinate) (*airquality.Snapshot, error) {
	f.gotCity, f.gotCoord = city, coord
	if f.err != nil {
		return nil, f.err
	}
	snap := &airquality.Snapshot{
		City:        "almaty",
		CityDisplay: "Almaty",
		PM25:        41.2,
		Unit:        "µg/m³",
		AQI:         115,
		Category:    string(risk.CategorySensitive),
		RiskScore:   52,
		Source:      airquality.SourceFresh,
	}
	if f.stale {
		snap = snap.MarkStale(errors.New("upstream timeout"))
	}
	return snap, nil
}

func (f *fakeConditions) StationsNear(_ context.Context, coord airquality.Coordinate, radius, limit int) ([]airquality.Location, error) {
	f.gotCoord, f.gotRadius, f.gotLimit = &coord, radius, limit
	if f.err != nil {
		return nil, f.err
	}
	d := 420.0
	return []airquality.Location{{ID: 7, Name: "Station 7", Coordinate: coord, DistanceMeters: &d}}, nil
}

func (f *fakeConditions) Series24h(_ context.Context, sensorID int64) (airquality.Series, error) {
	f.gotSensorID = sensorID
	if f.err != nil {
		return airquality.Series{}, f.err
	}
	return airquality.Series{Labels: []string{"08:00", "09:00"}, Values: []float64{12, 14}}, nil
}

func (f *fakeConditions) Outlook(_ context.Context, city string, hours int) (*conditions.Outlook, error) {
	f.gotCity, f.gotHours = city, hours
	if f.err != nil {
		return nil, f.err
	}
	return &conditions.Outlook{
		City:    "almaty",
		Hours:   outlook.ClampHours(hours),
		Results: []outlook.Point{{Label: "01-15 09:00", PM25: 30, AQI: 89, Category: risk.CategoryModerate, Risk: 40}},
	}, nil
}

func (f *fakeConditions) SchoolDecision(_ context.Context, city string) (*conditions.SchoolDecision, error) {
	f.gotCity = city
	if f.err != nil {
		return nil, f.err
	}
	return &conditions.SchoolDecision{
		City:     "almaty",
		Decision: outlook.DecisionCaution,
		Slot:     outlook.Point{Label: "01-16 06:00", Risk: 55},
	}, nil
}

func (f *fakeConditions) Geocode(_ context.Context, query string) ([]geocode.Place, error) {
	f.gotQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return []geocode.Place{{DisplayName: "Almaty, Kazakhstan", Lat: 43.2, Lon: 76.9}}, nil
}

type fakeWeatherStats weather.Stats

func (f fakeWeatherStats) Stats() weather.Stats { return weather.Stats(f) }

type fakeProviders []*resilience.ProviderHealth

func (f fakeProviders) GetAllHealth() []*resilience.ProviderHealth { return f }

func newTestRouter(svc handler.ConditionsService) http.Handler {
	return newTestRouterWith(api.RouterConfig{Conditions: svc})
}

func newTestRouterWith(cfg api.RouterConfig) http.Handler {
	cfg.Version = "test"
	cfg.BuildTime = "2025-01-01T00:00:00Z"
	cfg.Logger = zerolog.New(io.Discard)
	if cfg.Conditions == nil {
		cfg.Conditions = &fakeConditions{}
	}
	return api.NewRouter(cfg)
}

func get(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) models.Problem {
	t.Helper()
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	return problem
}

func TestRouter_HealthCheck(t *testing.T) {
	w := get(t, newTestRouter(nil), "/v1/ops/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))

	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
}

func TestRouter_ReadinessCheck(t *testing.T) {
	w := get(t, newTestRouter(nil), "/v1/ops/ready")

	assert.Equal(t, http.StatusOK, w.Code)

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
}

func TestRouter_ReadinessCheck_NotReady(t *testing.T) {
	router := newTestRouterWith(api.RouterConfig{
		Ops: handler.OpsConfig{
			ReadyCheck: func(context.Context) error { return errors.New("database unreachable") },
		},
	})

	w := get(t, router, "/v1/ops/ready")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	problem := decodeProblem(t, w)
	assert.Contains(t, problem.Detail, "database unreachable")
}

func TestRouter_SystemStatus(t *testing.T) {
	success := time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)
	router := newTestRouterWith(api.RouterConfig{
		Ops: handler.OpsConfig{
			CacheBackend:   "memory",
			WeatherEnabled: true,
			WeatherStats:   fakeWeatherStats{Fetches: 3, Failures: 1, Provider: "openweathermap"},
			Providers: fakeProviders{
				{Name: "openweathermap", CircuitState: gobreaker.StateClosed},
				{Name: "openaq", CircuitState: gobreaker.StateClosed, LastSuccessAt: &success,
					Counts: gobreaker.Counts{Requests: 4, ConsecutiveFailures: 1}},
			},
		},
	})

	w := get(t, router, "/v1/ops/status")

	assert.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))

	assert.Equal(t, models.HealthStatusOK, status.Status)
	assert.Empty(t, status.ActiveDegradationFlags)
	require.Len(t, status.Subsystems, 2)
	assert.Equal(t, "snapshot-cache", status.Subsystems[0].Name)
	require.NotNil(t, status.Subsystems[0].Detail)
	assert.Equal(t, "memory", *status.Subsystems[0].Detail)
	assert.Equal(t, "weather", status.Subsystems[1].Name)
	require.NotNil(t, status.Subsystems[1].Detail)
	assert.Equal(t, "openweathermap: 3 fetches, 1 failed", *status.Subsystems[1].Detail)
	assert.Equal(t, "test", status.Version)

	require.Len(t, status.Providers, 2)
	assert.Equal(t, "openaq", status.Providers[0].Provider)
	assert.Equal(t, "closed", status.Providers[0].CircuitState)
	require.NotNil(t, status.Providers[0].LastSuccessAt)
	assert.True(t, status.Providers[0].LastSuccessAt.Time().Equal(success))
	assert.Equal(t, uint32(4), status.Providers[0].Requests)
	assert.Equal(t, uint32(1), status.Providers[0].ConsecutiveFailures)
	assert.Equal(t, "openweathermap", status.Providers[1].Provider)
}

func TestRouter_SystemStatus_Degraded(t *testing.T) {
	router := newTestRouterWith(api.RouterConfig{
		Ops: handler.OpsConfig{
			Providers: fakeProviders{
				{Name: "openaq", CircuitState: gobreaker.StateOpen, LastError: "server error: Bad Gateway"},
			},
		},
	})

	w := get(t, router, "/v1/ops/status")

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))

	assert.Equal(t, models.HealthStatusDegraded, status.Status)
	assert.ElementsMatch(t, []string{"WEATHER_DISABLED", "OPENAQ_CIRCUIT_OPEN"}, status.ActiveDegradationFlags)
	require.Len(t, status.Providers, 1)
	assert.Equal(t, models.HealthStatusFail, status.Providers[0].Status)
	require.NotNil(t, status.Providers[0].Message)
	assert.Equal(t, "server error: Bad Gateway", *status.Providers[0].Message)
	assert.Equal(t, models.HealthStatusDegraded, status.Subsystems[1].Status)
}

func TestRouter_GetEnums(t *testing.T) {
	w := get(t, newTestRouter(nil), "/v1/metadata/enums")

	assert.Equal(t, http.StatusOK, w.Code)

	var enums models.Enums
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &enums))

	assert.Equal(t, risk.AllCategories(), enums.Categories)
	assert.Equal(t, risk.AllTrends(), enums.Trends)
	assert.Equal(t, outlook.AllDecisions(), enums.Decisions)
}

func TestRouter_ListCities(t *testing.T) {
	w := get(t, newTestRouter(&fakeConditions{}), "/v1/cities")

	assert.Equal(t, http.StatusOK, w.Code)

	var cities models.CityList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cities))
	require.Len(t, cities.Results, 2)
	assert.Equal(t, "almaty", cities.Results[0].Key)
}

func TestRouter_GetCurrent(t *testing.T) {
	svc := &fakeConditions{}
	w := get(t, newTestRouter(svc), "/v1/aq/current?city=almaty")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "almaty", svc.gotCity)
	assert.Nil(t, svc.gotCoord)

	var snap airquality.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, 115, snap.AQI)
	assert.Equal(t, airquality.SourceFresh, snap.Source)
}

func TestRouter_GetCurrent_StaleHeader(t *testing.T) {
	router := newTestRouter(&fakeConditions{stale: true})

	w := get(t, router, "/v1/aq/current?city=almaty")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get(middleware.HeaderSnapshotStale))

	var body airquality.Snapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.True(t, body.Stale)
	assert.Equal(t, airquality.SourceCached, body.Source)

	fresh := get(t, newTestRouter(&fakeConditions{}), "/v1/aq/current?city=almaty")
	assert.Empty(t, fresh.Header().Get(middleware.HeaderSnapshotStale))
}

func TestRouter_GetCurrent_WithCoordinate(t *testing.T) {
	svc := &fakeConditions{}
	w := get(t, newTestRouter(svc), "/v1/aq/current?lat=51.17&lon=71.45")

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.gotCoord)
	assert.InDelta(t, 51.17, svc.gotCoord.Lat, 1e-9)
	assert.InDelta(t, 71.45, svc.gotCoord.Lon, 1e-9)
}

func TestRouter_GetCurrent_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		field string
	}{
		{name: "non-numeric lat", query: "lat=abc&lon=71", field: "lat"},
		{name: "lat without lon", query: "lat=43.2", field: "lon"},
		{name: "lat out of range", query: "lat=91&lon=71", field: "lat"},
		{name: "lon out of range", query: "lat=43&lon=-181", field: "lon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeConditions{}
			w := get(t, newTestRouter(svc), "/v1/aq/current?"+tt.query)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			problem := decodeProblem(t, w)
			assert.Equal(t, models.ProblemTypeValidation, problem.Type)
			require.NotEmpty(t, problem.Errors)
			assert.Equal(t, tt.field, problem.Errors[0].Field)
			assert.Empty(t, svc.gotCity)
		})
	}
}

func TestRouter_GetCurrent_FailureStatuses(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		wantType string
		wantHint string
	}{
		{
			name:     "missing key",
			err:      airquality.ErrMissingAPIKey,
			status:   http.StatusServiceUnavailable,
			wantType: models.ProblemTypeUnavailable,
			wantHint: conditions.HintMissingKey,
		},
		{
			name:     "no data",
			err:      fmt.Errorf("almaty: %w", airquality.ErrNoDataFound),
			status:   http.StatusNotFound,
			wantType: models.ProblemTypeNoData,
			wantHint: conditions.HintNoData,
		},
		{
			name:     "upstream",
			err:      errors.New("connection refused"),
			status:   http.StatusBadGateway,
			wantType: models.ProblemTypeUpstream,
			wantHint: conditions.HintCheckKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, newTestRouter(&fakeConditions{err: tt.err}), "/v1/aq/current?city=almaty")

			assert.Equal(t, tt.status, w.Code)
			problem := decodeProblem(t, w)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, tt.wantHint, problem.Hint)
			assert.Contains(t, problem.Detail, tt.err.Error())
		})
	}
}

func TestRouter_GetOutlook(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantHours int
	}{
		{name: "default hours", query: "city=almaty", wantHours: outlook.DefaultHours},
		{name: "explicit hours", query: "city=almaty&hours=12", wantHours: 12},
		{name: "oversized hours passed through", query: "city=almaty&hours=500", wantHours: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeConditions{}
			w := get(t, newTestRouter(svc), "/v1/aq/outlook?"+tt.query)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantHours, svc.gotHours)
			assert.Equal(t, "almaty", svc.gotCity)

			var o conditions.Outlook
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))
			require.Len(t, o.Results, 1)
			assert.Equal(t, "01-15 09:00", o.Results[0].Label)
		})
	}
}

func TestRouter_GetOutlook_InvalidHours(t *testing.T) {
	w := get(t, newTestRouter(&fakeConditions{}), "/v1/aq/outlook?hours=soon")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	problem := decodeProblem(t, w)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "hours", problem.Errors[0].Field)
}

func TestRouter_GetOutlook_RateLimited(t *testing.T) {
	router := newTestRouter(&fakeConditions{})

	for i := 0; i < 30; i++ {
		w := get(t, router, "/v1/aq/outlook")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w := get(t, router, "/v1/aq/outlook")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRouter_GetSchoolDecision(t *testing.T) {
	svc := &fakeConditions{}
	w := get(t, newTestRouter(svc), "/v1/aq/school-decision?city=astana")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "astana", svc.gotCity)

	var d conditions.SchoolDecision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, outlook.DecisionCaution, d.Decision)
	assert.Equal(t, "01-16 06:00", d.Slot.Label)
}

func TestRouter_GetSeries24h(t *testing.T) {
	svc := &fakeConditions{}
	w := get(t, newTestRouter(svc), "/v1/aq/series24h?sensor_id=12345")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(12345), svc.gotSensorID)

	var series airquality.Series
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &series))
	assert.Equal(t, []float64{12, 14}, series.Values)
}

func TestRouter_GetSeries24h_InvalidSensor(t *testing.T) {
	for _, q := range []string{"sensor_id=abc", "sensor_id=-3"} {
		w := get(t, newTestRouter(&fakeConditions{}), "/v1/aq/series24h?"+q)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestRouter_ListStationsNear(t *testing.T) {
	svc := &fakeConditions{}
	w := get(t, newTestRouter(svc), "/v1/stations/near?lat=43.2&lon=76.9&radius=5000&limit=10")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5000, svc.gotRadius)
	assert.Equal(t, 10, svc.gotLimit)

	var list models.StationList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
	require.Len(t, list.Results, 1)
	require.NotNil(t, list.Results[0].DistanceM)
	assert.InDelta(t, 420.0, *list.Results[0].DistanceM, 1e-9)
}

func TestRouter_ListStationsNear_RequiresCoordinate(t *testing.T) {
	w := get(t, newTestRouter(&fakeConditions{}), "/v1/stations/near?lat=43.2")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	problem := decodeProblem(t, w)
	assert.Equal(t, "lat and lon are required", problem.Detail)
}

func TestRouter_Geocode(t *testing.T) {
	svc := &fakeConditions{}
	w := get(t, newTestRouter(svc), "/v1/geocode?q=Almaty")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Almaty", svc.gotQuery)

	var results models.GeocodeResults
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results.Results, 1)
	assert.Equal(t, "Almaty, Kazakhstan", results.Results[0].DisplayName)
}

func TestRouter_Geocode_Disabled(t *testing.T) {
	w := get(t, newTestRouter(&fakeConditions{err: conditions.ErrGeocodingDisabled}), "/v1/geocode?q=Almaty")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_RequireTLS(t *testing.T) {
	router := newTestRouterWith(api.RouterConfig{RequireTLS: true})

	req := httptest.NewRequest(http.MethodGet, "/v1/cities", http.NoBody)
	req.Header.Set("X-Forwarded-Proto", "http")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	problem := decodeProblem(t, w)
	assert.Equal(t, models.ProblemTypeTLSRequired, problem.Type)
}

func TestRouter_NotFound(t *testing.T) {
	w := get(t, newTestRouter(nil), "/v1/nonexistent")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.ProblemTypeNotFound, decodeProblem(t, w).Type)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/cities", http.NoBody)
	w := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, http.MethodGet, w.Header().Get("Allow"))
}

func TestRouter_SecurityHeaders(t *testing.T) {
	w := get(t, newTestRouter(nil), "/v1/ops/health")

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}
