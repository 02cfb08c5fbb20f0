// Package openweathermap provides a client for the OpenWeatherMap One Call 3.0 API.
package openweathermap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aqoutlook/aqoutlook/internal/provider/resilience"
	"github.com/aqoutlook/aqoutlook/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "openweathermap"

	// DefaultBaseURL is the OpenWeatherMap API base URL.
	DefaultBaseURL = "https://api.openweathermap.org"

	oneCallPath = "/data/3.0/onecall"
)

// ClientConfig holds configuration for the OpenWeatherMap client.
type ClientConfig struct {
	// APIKey is the OpenWeatherMap API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout for the default resilient client (default: 20s).
	Timeout time.Duration

	// Registry receives health updates for the default resilient client.
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger

	// Now stamps FetchedAt on reports (default time.Now).
	Now func() time.Time
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an OpenWeatherMap API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
	now        func() time.Time
}

var _ weather.Provider = (*Client)(nil)

// NewClient creates a new OpenWeatherMap client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		rc := resilience.DefaultClientConfig(ProviderName)
		if cfg.Timeout > 0 {
			rc.Timeout = cfg.Timeout
		}
		rc.Registry = cfg.Registry
		httpClient = resilience.NewClient(rc)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		logger:     cfg.Logger,
		now:        now,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetReport fetches current weather and the hourly forecast for a location.
// A rejected key wraps weather.ErrNotConfigured; any other failure wraps
// weather.ErrProviderUnavailable.
func (c *Client) GetReport(ctx context.Context, lat, lon float64) (*weather.Report, error) {
	if c.apiKey == "" {
		return nil, weather.ErrNotConfigured
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")
	q.Set("exclude", "minutely,daily,alerts")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+oneCallPath+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", weather.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: key rejected with status %d", weather.ErrNotConfigured, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: unexpected status %d", weather.ErrProviderUnavailable, resp.StatusCode)
	}

	var owmResp oneCallResponse
	if err := json.NewDecoder(resp.Body).Decode(&owmResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", weather.ErrProviderUnavailable, err)
	}

	report := toReport(&owmResp, c.now())
	c.logger.Debug().
		Int("hourly", len(report.Hourly)).
		Msg("weather report fetched")

	return report, nil
}

func toReport(resp *oneCallResponse, fetchedAt time.Time) *weather.Report {
	report := &weather.Report{
		Lat:       resp.Lat,
		Lon:       resp.Lon,
		Hourly:    make([]weather.Sample, 0, len(resp.Hourly)),
		FetchedAt: fetchedAt,
	}
	if resp.Current != nil {
		report.Current = toSample(resp.Current)
	} else {
		report.Current = weather.Sample{Condition: weather.ConditionUnknown}
	}

	for i := range resp.Hourly {
		report.Hourly = append(report.Hourly, toSample(&resp.Hourly[i]))
	}
	return report
}

func toSample(p *pointData) weather.Sample {
	s := weather.Sample{
		TempC:       p.Temp,
		WindMS:      p.WindSpeed,
		PressureHPa: p.Pressure,
		Humidity:    p.Humidity,
		Condition:   weather.ConditionUnknown,
	}
	if p.Dt > 0 {
		s.Time = time.Unix(p.Dt, 0).UTC()
	}
	if len(p.Weather) > 0 {
		s.Condition = mapCondition(p.Weather[0].Main)
	}
	return s
}

// mapCondition maps OpenWeatherMap condition to domain condition.
func mapCondition(owmCondition string) weather.Condition {
	switch owmCondition {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionClouds
	case "Rain":
		return weather.ConditionRain
	case "Drizzle":
		return weather.ConditionDrizzle
	case "Thunderstorm":
		return weather.ConditionThunderstorm
	case "Snow":
		return weather.ConditionSnow
	case "Mist":
		return weather.ConditionMist
	case "Fog":
		return weather.ConditionFog
	case "Haze", "Smoke", "Dust", "Sand", "Ash", "Squall", "Tornado":
		return weather.ConditionHaze
	default:
		return weather.ConditionUnknown
	}
}

// OpenWeatherMap API response structures.

type oneCallResponse struct {
	Lat     float64     `json:"lat"`
	Lon     float64     `json:"lon"`
	Current *pointData  `json:"current"`
	Hourly  []pointData `json:"hourly"`
}

type pointData struct {
	Dt        int64    `json:"dt"`
	Temp      *float64 `json:"temp"`
	Pressure  *float64 `json:"pressure"`
	Humidity  *float64 `json:"humidity"`
	WindSpeed *float64 `json:"wind_speed"`
	Weather   []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}
