package models

// Health is the body of the liveness and readiness probes.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus is the body of GET /v1/ops/status.
type SystemStatus struct {
	Status  HealthStatus `json:"status"`
	Time    Timestamp    `json:"time"`
	Version string       `json:"version,omitempty"`

	Subsystems []SubsystemStatus `json:"subsystems"`
	Providers  []ProviderStatus  `json:"providers"`

	// ActiveDegradationFlags name each reason Status is not OK, e.g.
	// WEATHER_DISABLED or OPENAQ_CIRCUIT_OPEN.
	ActiveDegradationFlags []string `json:"activeDegradationFlags,omitempty"`
}

// SubsystemStatus describes an internal dependency such as the snapshot cache.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// ProviderStatus describes one upstream API and its circuit breaker.
type ProviderStatus struct {
	Provider     string       `json:"provider"`
	Status       HealthStatus `json:"status"`
	CircuitState string       `json:"circuitState"`

	// Requests and failures in the breaker's current counting window.
	Requests            uint32 `json:"requests"`
	ConsecutiveFailures uint32 `json:"consecutiveFailures"`

	LastSuccessAt     *Timestamp `json:"lastSuccessAt,omitempty"`
	LastFailureAt     *Timestamp `json:"lastFailureAt,omitempty"`
	LastStateChangeAt *Timestamp `json:"lastStateChangeAt,omitempty"`
	Message           *string    `json:"message,omitempty"`
}
