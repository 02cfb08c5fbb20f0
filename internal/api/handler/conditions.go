package handler

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/aqoutlook/aqoutlook/internal/airquality"
	"github.com/aqoutlook/aqoutlook/internal/api/middleware"
	"github.com/aqoutlook/aqoutlook/internal/api/models"
	"github.com/aqoutlook/aqoutlook/internal/api/response"
	"github.com/aqoutlook/aqoutlook/internal/conditions"
	"github.com/aqoutlook/aqoutlook/internal/geocode"
	"github.com/aqoutlook/aqoutlook/internal/outlook"
)

// ConditionsService is the pipeline behind the air-quality endpoints.
// *conditions.Service satisfies it.
type ConditionsService interface {
	Cities() []conditions.CityInfo
	CurrentSnapshot(ctx context.Context, city string, coord *airquality.Coordinate) (*airquality.Snapshot, error)
	StationsNear(ctx context.Context, coord airquality.Coordinate, radiusMeters, limit int) ([]airquality.Location, error)
	Series24h(ctx context.Context, sensorID int64) (airquality.Series, error)
	Outlook(ctx context.Context, city string, hours int) (*conditions.Outlook, error)
	SchoolDecision(ctx context.Context, city string) (*conditions.SchoolDecision, error)
	Geocode(ctx context.Context, query string) ([]geocode.Place, error)
}

// ConditionsHandler handles the air-quality endpoints.
type ConditionsHandler struct {
	service  ConditionsService
	validate *validator.Validate
}

// NewConditionsHandler creates a new ConditionsHandler.
func NewConditionsHandler(service ConditionsService) *ConditionsHandler {
	return &ConditionsHandler{
		service:  service,
		validate: newValidator(),
	}
}

// ListCities handles GET /v1/cities.
func (h *ConditionsHandler) ListCities(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.CityList{Results: h.service.Cities()})
}

// GetCurrent handles GET /v1/aq/current.
func (h *ConditionsHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	p := newQueryParser(r.URL.Query())
	q := models.CurrentQuery{
		City: p.str("city"),
		Lat:  p.float("lat"),
		Lon:  p.float("lon"),
	}
	if errs := validate(h.validate, p, q); errs != nil {
		response.BadRequest(w, r, "invalid query parameters", errs)
		return
	}

	var coord *airquality.Coordinate
	if q.Lat != nil && q.Lon != nil {
		coord = &airquality.Coordinate{Lat: *q.Lat, Lon: *q.Lon}
	}

	snap, err := h.service.CurrentSnapshot(r.Context(), q.City, coord)
	if err != nil {
		response.Failure(w, r, conditions.Describe(err))
		return
	}
	markStale(w, snap.Stale)
	response.JSON(w, r, http.StatusOK, snap)
}

// GetOutlook handles GET /v1/aq/outlook.
func (h *ConditionsHandler) GetOutlook(w http.ResponseWriter, r *http.Request) {
	p := newQueryParser(r.URL.Query())
	q := models.OutlookQuery{
		City:  p.str("city"),
		Hours: p.int("hours", outlook.DefaultHours),
	}
	if errs := validate(h.validate, p, q); errs != nil {
		response.BadRequest(w, r, "invalid query parameters", errs)
		return
	}

	o, err := h.service.Outlook(r.Context(), q.City, q.Hours)
	if err != nil {
		response.Failure(w, r, conditions.Describe(err))
		return
	}
	markStale(w, o.Stale)
	response.JSON(w, r, http.StatusOK, o)
}

// GetSchoolDecision handles GET /v1/aq/school-decision.
func (h *ConditionsHandler) GetSchoolDecision(w http.ResponseWriter, r *http.Request) {
	city := newQueryParser(r.URL.Query()).str("city")

	d, err := h.service.SchoolDecision(r.Context(), city)
	if err != nil {
		response.Failure(w, r, conditions.Describe(err))
		return
	}
	markStale(w, d.Stale)
	response.JSON(w, r, http.StatusOK, d)
}

// GetSeries24h handles GET /v1/aq/series24h.
func (h *ConditionsHandler) GetSeries24h(w http.ResponseWriter, r *http.Request) {
	p := newQueryParser(r.URL.Query())
	q := models.SeriesQuery{SensorID: p.int64("sensor_id")}
	if errs := validate(h.validate, p, q); errs != nil {
		response.BadRequest(w, r, "invalid query parameters", errs)
		return
	}

	series, err := h.service.Series24h(r.Context(), q.SensorID)
	if err != nil {
		response.Failure(w, r, conditions.Describe(err))
		return
	}
	response.JSON(w, r, http.StatusOK, series)
}

// ListStationsNear handles GET /v1/stations/near.
func (h *ConditionsHandler) ListStationsNear(w http.ResponseWriter, r *http.Request) {
	p := newQueryParser(r.URL.Query())
	q := models.StationsQuery{
		Lat:    p.float("lat"),
		Lon:    p.float("lon"),
		Radius: p.int("radius", 0),
		Limit:  p.int("limit", 0),
	}
	if errs := validate(h.validate, p, q); errs != nil {
		response.BadRequest(w, r, "lat and lon are required", errs)
		return
	}

	coord := airquality.Coordinate{Lat: *q.Lat, Lon: *q.Lon}
	locations, err := h.service.StationsNear(r.Context(), coord, q.Radius, q.Limit)
	if err != nil {
		response.Failure(w, r, conditions.Describe(err))
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewStationList(locations))
}

// Geocode handles GET /v1/geocode.
func (h *ConditionsHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	p := newQueryParser(r.URL.Query())
	q := models.GeocodeQuery{Q: p.str("q")}
	if errs := validate(h.validate, p, q); errs != nil {
		response.BadRequest(w, r, "invalid query parameters", errs)
		return
	}

	places, err := h.service.Geocode(r.Context(), q.Q)
	if err != nil {
		response.Failure(w, r, conditions.Describe(err))
		return
	}
	response.JSON(w, r, http.StatusOK, models.GeocodeResults{Results: places})
}

// markStale flags responses served from the snapshot cache so the logging,
// tracing and metrics middleware can see them.
func markStale(w http.ResponseWriter, stale bool) {
	if stale {
		w.Header().Set(middleware.HeaderSnapshotStale, "true")
	}
}
