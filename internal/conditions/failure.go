package conditions

import (
	"errors"

	"github.com/aqoutlook/aqoutlook/internal/airquality"
	"github.com/aqoutlook/aqoutlook/internal/geocode"
)

// Kind classifies a failure for callers that map it to a status.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindUpstream      Kind = "upstream_unavailable"
	KindNoData        Kind = "no_data"
	KindInvalidInput  Kind = "invalid_input"
)

// Remediation hints.
const (
	HintMissingKey = "OPENAQ_API_KEY is missing. Add your OpenAQ v3 API key into .env as OPENAQ_API_KEY=..."
	HintCheckKey   = "Check OPENAQ_API_KEY (.env) and that you're using OpenAQ v3 endpoints."
	HintNoData     = "No nearby station reported PM2.5 recently. Try another location or a wider radius."
)

// Failure is the structured error returned to API consumers.
type Failure struct {
	Kind   Kind   `json:"-"`
	Error  string `json:"error"`
	Detail string `json:"detail"`
	Hint   string `json:"hint,omitempty"`
}

// Describe turns a pipeline error into a Failure.
func Describe(err error) Failure {
	if err == nil {
		return Failure{}
	}
	detail := err.Error()

	switch {
	case errors.Is(err, airquality.ErrMissingAPIKey):
		return Failure{Kind: KindConfiguration, Error: "OpenAQ unavailable", Detail: detail, Hint: HintMissingKey}
	case errors.Is(err, airquality.ErrInvalidAPIKey):
		return Failure{Kind: KindConfiguration, Error: "OpenAQ unavailable", Detail: detail, Hint: HintCheckKey}
	case errors.Is(err, airquality.ErrNoDataFound):
		return Failure{Kind: KindNoData, Error: "No PM2.5 data", Detail: detail, Hint: HintNoData}
	case errors.Is(err, airquality.ErrInvalidCoordinate):
		return Failure{Kind: KindInvalidInput, Error: "Invalid coordinate", Detail: detail}
	case errors.Is(err, ErrGeocodingDisabled):
		return Failure{Kind: KindConfiguration, Error: "Geocoding unavailable", Detail: detail}
	case errors.Is(err, geocode.ErrProviderUnavailable):
		return Failure{Kind: KindUpstream, Error: "Geocoding unavailable", Detail: detail}
	default:
		return Failure{Kind: KindUpstream, Error: "OpenAQ unavailable", Detail: detail, Hint: HintCheckKey}
	}
}
