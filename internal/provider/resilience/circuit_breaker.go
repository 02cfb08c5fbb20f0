// Package resilience wraps upstream HTTP calls with a circuit breaker,
// bounded retries and per-call timeouts, and tracks provider health for the
// ops status endpoint.
package resilience

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// TripPolicy decides when a closed breaker opens. A breaker trips on either
// a sustained failure ratio or a run of consecutive failures.
type TripPolicy struct {
	// MinRequests is the sample size required before FailureRatio applies.
	MinRequests uint32

	// FailureRatio in (0,1] over the current counting window.
	FailureRatio float64

	// ConsecutiveFailures trips immediately after this many failures in a
	// row. Zero disables the rule.
	ConsecutiveFailures uint32
}

// DefaultTripPolicy trips at 50% failures over 5+ requests, or after 5
// failures in a row.
var DefaultTripPolicy = TripPolicy{
	MinRequests:         5,
	FailureRatio:        0.5,
	ConsecutiveFailures: 5,
}

// ReadyToTrip adapts the policy to gobreaker.
func (p TripPolicy) ReadyToTrip(counts gobreaker.Counts) bool {
	if p.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= p.ConsecutiveFailures {
		return true
	}
	if counts.Requests == 0 || counts.Requests < p.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= p.FailureRatio
}

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the breaker in logs and the provider registry.
	Name string

	// MaxRequests allowed through while half-open. Default: 1
	MaxRequests uint32

	// Interval clears counts periodically while closed. Default: 0 (never)
	Interval time.Duration

	// Timeout is how long the breaker stays open. Default: 60s
	Timeout time.Duration

	// ReadyToTrip overrides Policy when set.
	ReadyToTrip func(counts gobreaker.Counts) bool

	Policy TripPolicy

	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultCircuitBreakerConfig returns the configuration shared by every
// upstream provider.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		Policy:      DefaultTripPolicy,
	}
}

// DefaultReadyToTrip applies DefaultTripPolicy.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	return DefaultTripPolicy.ReadyToTrip(counts)
}

// NewCircuitBreaker builds a gobreaker breaker from cfg, filling zero values
// with the defaults.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	readyToTrip := cfg.ReadyToTrip
	if readyToTrip == nil {
		policy := cfg.Policy
		if policy == (TripPolicy{}) {
			policy = DefaultTripPolicy
		}
		readyToTrip = policy.ReadyToTrip
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   readyToTrip,
		OnStateChange: cfg.OnStateChange,
	})
}
