package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/aqoutlook/aqoutlook/internal/api/models"
)

// RateLimitConfig is a fixed-window limit applied per client IP.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

var (
	// GeocodeRateLimit stays within Nominatim's usage policy of roughly one
	// request per second across all clients.
	GeocodeRateLimit = PerMinute(30)

	// ExpensiveRateLimit covers outlook and school-decision, which fan out
	// to both the sensor and forecast upstreams.
	ExpensiveRateLimit = PerMinute(30)

	// StandardRateLimit covers cheap lookups and cached snapshots.
	StandardRateLimit = PerMinute(100)
)

// PerMinute returns a one-minute window allowing n requests.
func PerMinute(n int) RateLimitConfig {
	return RateLimitConfig{RequestLimit: n, WindowLength: time.Minute}
}

// retryAfter is the whole number of seconds a limited client should wait.
// httprate does not expose the window reset, so the full window is used.
func (c RateLimitConfig) retryAfter() string {
	return strconv.Itoa(int(math.Ceil(c.WindowLength.Seconds())))
}

// RateLimitByIP limits requests per client IP. Behind a proxy, chi's RealIP
// middleware must run first so the forwarded address is used.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			problem := models.ProblemFor(models.ProblemTypeTooManyRequests, GetRequestID(r.Context())).
				WithDetail(fmt.Sprintf("Rate limit exceeded: %d requests per %s. Please try again later.",
					cfg.RequestLimit, cfg.WindowLength)).
				WithInstance(r.URL.Path)

			w.Header().Set("Retry-After", cfg.retryAfter())
			problem.Write(w)
		}),
	)
}
