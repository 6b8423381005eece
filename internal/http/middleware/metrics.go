package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tork-crm/tork-api/internal/metrics"
)

// Metrics records request count, latency and in-flight requests. Requests
// are labelled with the chi route pattern so ids do not explode cardinality.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		done := metrics.TrackInFlight()
		defer done()

		rw := wrapResponseWriter(w)
		next.ServeHTTP(rw, r)

		metrics.ObserveHTTP(r.Method, routePattern(r), rw.statusCode, time.Since(start))
	})
}

func routePattern(r *http.Request) string {
	routeCtx := chi.RouteContext(r.Context())
	if routeCtx == nil {
		return "unmatched"
	}
	if pattern := routeCtx.RoutePattern(); pattern != "" {
		return pattern
	}
	return "unmatched"
}
