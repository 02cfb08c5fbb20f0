// Package openaq provides a client for the OpenAQ v3 API.
package openaq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aqoutlook/aqoutlook/internal/airquality"
	"github.com/aqoutlook/aqoutlook/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the OpenAQ API.
	DefaultBaseURL = "https://api.openaq.org"

	// ProviderName identifies this provider.
	ProviderName = "openaq"

	hourlyPageLimit = 200
)

// ClientConfig holds configuration for the OpenAQ client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// APIKey is sent as X-API-Key. Every call fails with ErrMissingAPIKey when empty.
	APIKey string

	// HTTPClient is the HTTP client to use.
	// If nil, a resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 25s).
	Timeout time.Duration

	// MaxRetries after the first attempt (default: 2).
	MaxRetries uint64

	// Registry receives health updates for the created resilient client.
	Registry *resilience.Registry
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an OpenAQ v3 API client. It implements airquality.Provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPDoer
}

var _ airquality.Provider = (*Client)(nil)

// NewClient creates a new OpenAQ client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 25 * time.Second
		}
		retries := cfg.MaxRetries
		if retries == 0 {
			retries = 2
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderName,
			Timeout:         timeout,
			MaxRetries:      retries,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Registry:        cfg.Registry,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: httpClient,
	}
}

// API response types (from OpenAQ v3).

type envelope[T any] struct {
	Results []T `json:"results"`
}

type locationData struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Coordinates coordinatesData  `json:"coordinates"`
	Distance    *float64         `json:"distance"`
	Provider    *namedEntityData `json:"provider"`
	Owner       *namedEntityData `json:"owner"`
}

type coordinatesData struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type namedEntityData struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type sensorData struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Parameter parameterData `json:"parameter"`
	Latest    *latestData   `json:"latest"`
}

type parameterData struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Units string `json:"units"`
}

type latestData struct {
	Value    *float64     `json:"value"`
	Datetime datetimeData `json:"datetime"`
}

type datetimeData struct {
	UTC   string `json:"utc"`
	Local string `json:"local"`
}

type hourlyData struct {
	Value    *float64      `json:"value"`
	Period   *periodData   `json:"period"`
	Coverage *coverageData `json:"coverage"`
}

type periodData struct {
	DatetimeFrom *datetimeData `json:"datetimeFrom"`
}

type coverageData struct {
	PercentCoverage *float64 `json:"percentCoverage"`
}

// LocationsNear retrieves locations measuring PM2.5 within radiusMeters of coord.
func (c *Client) LocationsNear(ctx context.Context, coord airquality.Coordinate, radiusMeters, limit int) ([]airquality.Location, error) {
	q := url.Values{}
	q.Set("coordinates", formatCoord(coord.Lat)+","+formatCoord(coord.Lon))
	q.Set("radius", strconv.Itoa(radiusMeters))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("page", "1")
	q.Set("parameters_id", strconv.Itoa(airquality.PM25ParameterID))

	var result envelope[locationData]
	if err := c.get(ctx, "/v3/locations", q, &result); err != nil {
		return nil, fmt.Errorf("fetch locations: %w", err)
	}

	locations := make([]airquality.Location, 0, len(result.Results))
	for i := range result.Results {
		locations = append(locations, toLocation(&result.Results[i]))
	}
	return locations, nil
}

// LocationSensors retrieves the sensors installed at a location.
func (c *Client) LocationSensors(ctx context.Context, locationID int64) ([]airquality.Sensor, error) {
	path := fmt.Sprintf("/v3/locations/%d/sensors", locationID)

	var result envelope[sensorData]
	if err := c.get(ctx, path, nil, &result); err != nil {
		return nil, fmt.Errorf("fetch sensors for location %d: %w", locationID, err)
	}

	sensors := make([]airquality.Sensor, 0, len(result.Results))
	for i := range result.Results {
		sensors = append(sensors, toSensor(&result.Results[i]))
	}
	return sensors, nil
}

// SensorHourly retrieves hourly aggregates for a sensor in [from, to].
func (c *Client) SensorHourly(ctx context.Context, sensorID int64, from, to time.Time) ([]airquality.HourlyRow, error) {
	path := fmt.Sprintf("/v3/sensors/%d/measurements/hourly", sensorID)
	q := url.Values{}
	q.Set("datetime_from", from.UTC().Format(time.RFC3339))
	q.Set("datetime_to", to.UTC().Format(time.RFC3339))
	q.Set("limit", strconv.Itoa(hourlyPageLimit))
	q.Set("page", "1")

	var result envelope[hourlyData]
	if err := c.get(ctx, path, q, &result); err != nil {
		return nil, fmt.Errorf("fetch hourly measurements for sensor %d: %w", sensorID, err)
	}

	rows := make([]airquality.HourlyRow, 0, len(result.Results))
	for i := range result.Results {
		rows = append(rows, toHourlyRow(&result.Results[i]))
	}
	return rows, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if c.apiKey == "" {
		return airquality.ErrMissingAPIKey
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", airquality.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", airquality.ErrInvalidAPIKey, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: unexpected status %d", airquality.ErrProviderUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", airquality.ErrProviderUnavailable, err)
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func toLocation(l *locationData) airquality.Location {
	loc := airquality.Location{
		ID:   l.ID,
		Name: l.Name,
		Coordinate: airquality.Coordinate{
			Lat: l.Coordinates.Latitude,
			Lon: l.Coordinates.Longitude,
		},
		DistanceMeters: l.Distance,
	}
	if l.Provider != nil {
		loc.Provider = l.Provider.Name
	}
	if l.Owner != nil {
		loc.Owner = l.Owner.Name
	}
	return loc
}

func toSensor(s *sensorData) airquality.Sensor {
	sensor := airquality.Sensor{
		ID:            s.ID,
		ParameterID:   s.Parameter.ID,
		ParameterName: s.Parameter.Name,
		Units:         s.Parameter.Units,
	}
	if s.Latest != nil {
		sensor.Latest = &airquality.Reading{
			Value:        s.Latest.Value,
			TimestampUTC: s.Latest.Datetime.UTC,
		}
	}
	return sensor
}

func toHourlyRow(h *hourlyData) airquality.HourlyRow {
	row := airquality.HourlyRow{Value: h.Value}
	if h.Period != nil && h.Period.DatetimeFrom != nil {
		row.PeriodFromUTC = h.Period.DatetimeFrom.UTC
		row.PeriodFromLocal = h.Period.DatetimeFrom.Local
	}
	if h.Coverage != nil {
		row.PercentCoverage = h.Coverage.PercentCoverage
	}
	return row
}
