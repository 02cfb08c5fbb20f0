// Package config defines the process configuration for the aqoutlook API and
// worker. Configuration is loaded once at startup from the environment (with an
// optional .env file) and is immutable thereafter.
package config

import (
	"time"

	"github.com/aqoutlook/aqoutlook/internal/database"
)

// Config is the top-level configuration struct.
// Sub-components receive only the group they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"development" validate:"oneof=development test staging production"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn error"`

	Server    ServerConfig
	OpenAQ    OpenAQConfig
	Weather   WeatherConfig
	Geocode   GeocodeConfig
	Cache     CacheConfig
	Database  database.Config
	Telemetry TelemetryConfig
	Worker    WorkerConfig

	// CitiesJSON optionally replaces the built-in city registry.
	// Format: {"almaty":{"display":"Almaty","lat":43.23,"lon":76.88,"timezone":"Asia/Almaty"}}
	CitiesJSON string `envconfig:"CITIES_JSON"`
	// DefaultCity is used when a request names no city or an unknown one.
	DefaultCity string `envconfig:"DEFAULT_CITY" default:"almaty" validate:"required"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `envconfig:"APP_PORT" default:"8080" validate:"required,numeric"`
	ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	// RateLimit is the number of requests allowed per IP per minute.
	RateLimit int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120" validate:"min=1"`
	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool `envconfig:"REQUIRE_TLS" default:"false"`
}

// OpenAQConfig configures the sensor-network client.
type OpenAQConfig struct {
	BaseURL string `envconfig:"OPENAQ_BASE_URL" default:"https://api.openaq.org" validate:"required,url"`
	// APIKey may be empty at startup. Requests then fail with a configuration error.
	APIKey       string        `envconfig:"OPENAQ_API_KEY"`
	RadiusMeters int           `envconfig:"OPENAQ_RADIUS_M" default:"9000" validate:"min=1,max=25000"`
	MaxLocations int           `envconfig:"OPENAQ_MAX_LOCATIONS" default:"25" validate:"min=1,max=1000"`
	MaxChecks    int           `envconfig:"OPENAQ_MAX_CHECKS" default:"10" validate:"min=1"`
	Timeout      time.Duration `envconfig:"OPENAQ_TIMEOUT" default:"25s"`
	MaxRetries   uint64        `envconfig:"OPENAQ_MAX_RETRIES" default:"2" validate:"max=5"`
}

// WeatherConfig configures the optional weather collaborator.
type WeatherConfig struct {
	BaseURL string `envconfig:"OPENWEATHER_BASE_URL" default:"https://api.openweathermap.org" validate:"required,url"`
	// APIKey empty disables weather; scores fall back to neutral defaults.
	APIKey  string        `envconfig:"OPENWEATHER_API_KEY"`
	Timeout time.Duration `envconfig:"OPENWEATHER_TIMEOUT" default:"20s"`
}

// Enabled reports whether the weather collaborator is configured.
func (c WeatherConfig) Enabled() bool {
	return c.APIKey != ""
}

// GeocodeConfig configures the Nominatim client.
type GeocodeConfig struct {
	BaseURL   string        `envconfig:"NOMINATIM_BASE_URL" default:"https://nominatim.openstreetmap.org" validate:"required,url"`
	UserAgent string        `envconfig:"NOMINATIM_USER_AGENT" default:"aqoutlook/1.0" validate:"required"`
	Timeout   time.Duration `envconfig:"NOMINATIM_TIMEOUT" default:"15s"`
}

// Cache backends.
const (
	CacheBackendMemory   = "memory"
	CacheBackendPostgres = "postgres"
)

// CacheConfig selects the snapshot cache backend.
type CacheConfig struct {
	Backend string        `envconfig:"CACHE_BACKEND" default:"memory" validate:"oneof=memory postgres"`
	TTL     time.Duration `envconfig:"CACHE_TTL" default:"10m"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled        bool          `envconfig:"OTEL_ENABLED" default:"false"`
	OTLPEndpoint   string        `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	Insecure       bool          `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	SampleRatio    float64       `envconfig:"OTEL_TRACES_SAMPLE_RATIO" default:"1" validate:"gt=0,lte=1"`
	ExportInterval time.Duration `envconfig:"OTEL_METRIC_EXPORT_INTERVAL" default:"15s"`
}

// WorkerConfig configures the cache warmer.
type WorkerConfig struct {
	Interval      time.Duration `envconfig:"WORKER_INTERVAL" default:"5m"`
	Concurrency   int           `envconfig:"WORKER_CONCURRENCY" default:"3" validate:"min=1,max=32"`
	TargetTimeout time.Duration `envconfig:"WORKER_TARGET_TIMEOUT" default:"45s"`
	// PubSub trigger is enabled when both values are set.
	PubSubProject      string `envconfig:"PUBSUB_PROJECT_ID"`
	PubSubSubscription string `envconfig:"PUBSUB_SUBSCRIPTION"`
}

// PubSubEnabled reports whether the Pub/Sub trigger is configured.
func (c WorkerConfig) PubSubEnabled() bool {
	return c.PubSubProject != "" && c.PubSubSubscription != ""
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrParsing indicates an environment value could not be parsed into its field type.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
)
