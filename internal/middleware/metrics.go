package middleware

import (
	"net/http"
	"time"

	"github.com/letterbox/letterbox/internal/metrics"
)

// unmatchedRoute labels requests no route matched, keeping label
// cardinality bounded.
const unmatchedRoute = "unmatched"

// Metrics records the duration and status of every request by route pattern.
func Metrics(recorder metrics.Recorder) func(http.Handler) http.Handler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			route := routePattern(r)
			if route == "" {
				route = unmatchedRoute
			}
			recorder.ObserveHTTPRequest(route, r.Method, wrapped.status, time.Since(start))
		})
	}
}
