package middleware

import "net/http"

const (
	contentTypeJSON = "application/json"
	cacheControlAPI = "no-cache"
)

// ContentTypeJSON defaults responses to JSON and no-cache. Handlers that set
// either header themselves keep their value.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if h.Get("Content-Type") == "" {
			h.Set("Content-Type", contentTypeJSON)
		}
		if h.Get("Cache-Control") == "" {
			h.Set("Cache-Control", cacheControlAPI)
		}
		next.ServeHTTP(w, r)
	})
}
