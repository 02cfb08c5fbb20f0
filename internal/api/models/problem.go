package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 problem document, written as application/problem+json.
// Hint is an extension member carrying the operator remediation text of a
// pipeline failure.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Hint     string       `json:"hint,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError describes one rejected query parameter.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Problem type URIs.
const (
	ProblemTypeValidation       = "https://aqoutlook.dev/problems/validation-error"
	ProblemTypeNotFound         = "https://aqoutlook.dev/problems/not-found"
	ProblemTypeNoData           = "https://aqoutlook.dev/problems/no-data"
	ProblemTypeTooManyRequests  = "https://aqoutlook.dev/problems/too-many-requests"
	ProblemTypeInternal         = "https://aqoutlook.dev/problems/internal-error"
	ProblemTypeUpstream         = "https://aqoutlook.dev/problems/upstream-unavailable"
	ProblemTypeUnavailable      = "https://aqoutlook.dev/problems/service-unavailable"
	ProblemTypeTLSRequired      = "https://aqoutlook.dev/problems/tls-required"
	ProblemTypeMethodNotAllowed = "https://aqoutlook.dev/problems/method-not-allowed"
)

type problemDefault struct {
	title  string
	status int
}

var problemDefaults = map[string]problemDefault{
	ProblemTypeValidation:       {"Validation error", http.StatusBadRequest},
	ProblemTypeNotFound:         {"Not found", http.StatusNotFound},
	ProblemTypeNoData:           {"No PM2.5 data", http.StatusNotFound},
	ProblemTypeTooManyRequests:  {"Too many requests", http.StatusTooManyRequests},
	ProblemTypeInternal:         {"Internal server error", http.StatusInternalServerError},
	ProblemTypeUpstream:         {"Upstream unavailable", http.StatusBadGateway},
	ProblemTypeUnavailable:      {"Service unavailable", http.StatusServiceUnavailable},
	ProblemTypeTLSRequired:      {"HTTPS required", http.StatusForbidden},
	ProblemTypeMethodNotAllowed: {"Method not allowed", http.StatusMethodNotAllowed},
}

// NewProblem creates a Problem with an explicit title and status.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		TraceID: traceID,
	}
}

// ProblemFor creates a Problem of one of the known types with its default
// title and status. Unknown types become internal errors.
func ProblemFor(problemType, traceID string) *Problem {
	d, ok := problemDefaults[problemType]
	if !ok {
		problemType = ProblemTypeInternal
		d = problemDefaults[ProblemTypeInternal]
	}
	return NewProblem(problemType, d.title, d.status, traceID)
}

// WithTitle replaces the default title, e.g. with the failing provider name.
func (p *Problem) WithTitle(title string) *Problem {
	if title != "" {
		p.Title = title
	}
	return p
}

func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

func (p *Problem) WithHint(hint string) *Problem {
	p.Hint = hint
	return p
}

func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write sends the Problem with its status. The trace id doubles as the
// request id header so clients can quote either.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("X-Request-Id", p.TraceID)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 validation problem listing the rejected fields.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	return ProblemFor(ProblemTypeValidation, traceID).WithDetail(detail).WithErrors(errors)
}

// NewInternalError creates a 500 problem.
func NewInternalError(traceID, detail string) *Problem {
	return ProblemFor(ProblemTypeInternal, traceID).WithDetail(detail)
}
