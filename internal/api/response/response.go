// Package response writes JSON bodies and RFC 7807 problems for the API
// handlers, keyed to the request ID assigned by the middleware.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/aqoutlook/aqoutlook/internal/api/middleware"
	"github.com/aqoutlook/aqoutlook/internal/api/models"
	"github.com/aqoutlook/aqoutlook/internal/conditions"
)

// JSON writes data as a JSON body with status. A nil data writes headers only.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set(middleware.HeaderRequestID, requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error writes problem with the request path as its instance.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

func traceID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}

// BadRequest writes a 400 listing the offending query parameters.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(traceID(r), detail, errors))
}

// NotFound writes a 404 for an unknown route.
func NotFound(w http.ResponseWriter, r *http.Request) {
	Error(w, r, models.ProblemFor(models.ProblemTypeNotFound, traceID(r)).
		WithDetail("no route for "+r.Method+" "+r.URL.Path))
}

// MethodNotAllowed writes a 405. Every API route is GET.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodGet)
	Error(w, r, models.ProblemFor(models.ProblemTypeMethodNotAllowed, traceID(r)).
		WithDetail(r.Method+" is not supported on "+r.URL.Path))
}

// ServiceUnavailable writes a 503.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.ProblemFor(models.ProblemTypeUnavailable, traceID(r)).WithDetail(detail))
}

// Failure writes a pipeline failure as a problem document. Configuration
// failures are 503, missing data 404, invalid input 400 and upstream
// failures 502.
func Failure(w http.ResponseWriter, r *http.Request, f conditions.Failure) {
	id := traceID(r)

	problemType := models.ProblemTypeUpstream
	switch f.Kind {
	case conditions.KindConfiguration:
		problemType = models.ProblemTypeUnavailable
	case conditions.KindNoData:
		problemType = models.ProblemTypeNoData
	case conditions.KindInvalidInput:
		problemType = models.ProblemTypeValidation
	}

	Error(w, r, models.ProblemFor(problemType, id).
		WithTitle(f.Error).
		WithDetail(f.Detail).
		WithHint(f.Hint))
}
