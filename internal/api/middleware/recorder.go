package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HeaderSnapshotStale is set by handlers that answered from the snapshot
// cache after a failed upstream fetch.
const HeaderSnapshotStale = "X-Snapshot-Stale"

// statusRecorder captures the status code and body size of a response.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

func (rw *statusRecorder) stale() bool {
	return rw.Header().Get(HeaderSnapshotStale) == "true"
}

// routePattern returns the matched chi route, or the raw path outside a
// chi router. Only meaningful once the request has been routed.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
