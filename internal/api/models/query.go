package models

// Query parameter DTOs. Handlers parse the raw strings into these and run
// them through the validator; the query tag names the parameter in errors.

// CurrentQuery is GET /v1/aq/current.
type CurrentQuery struct {
	City string   `query:"city" validate:"omitempty,max=64"`
	Lat  *float64 `query:"lat" validate:"required_with=Lon,omitempty,gte=-90,lte=90"`
	Lon  *float64 `query:"lon" validate:"required_with=Lat,omitempty,gte=-180,lte=180"`
}

// OutlookQuery is GET /v1/aq/outlook. Hours outside [1,72] are clamped, not rejected.
type OutlookQuery struct {
	City  string `query:"city" validate:"omitempty,max=64"`
	Hours int    `query:"hours"`
}

// StationsQuery is GET /v1/stations/near.
type StationsQuery struct {
	Lat    *float64 `query:"lat" validate:"required,gte=-90,lte=90"`
	Lon    *float64 `query:"lon" validate:"required,gte=-180,lte=180"`
	Radius int      `query:"radius" validate:"gte=0,lte=100000"`
	Limit  int      `query:"limit" validate:"gte=0,lte=1000"`
}

// SeriesQuery is GET /v1/aq/series24h. A zero sensor id yields an empty series.
type SeriesQuery struct {
	SensorID int64 `query:"sensor_id" validate:"gte=0"`
}

// GeocodeQuery is GET /v1/geocode.
type GeocodeQuery struct {
	Q string `query:"q" validate:"max=256"`
}
