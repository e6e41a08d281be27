package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/hongminglow/portfolio-be/internal/observability"
)

// Logging writes one structured line per request and records request metrics.
// Routes are labelled by their chi pattern to keep metric cardinality bounded.
func Logging(log logrus.FieldLogger, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			route := routePattern(r)
			metrics.ObserveRequest(r.Method, route, status, elapsed)

			entry := log.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"duration_ms": elapsed.Milliseconds(),
				"request_id":  chimw.GetReqID(r.Context()),
				"remote":      r.RemoteAddr,
			})
			switch {
			case status >= http.StatusInternalServerError:
				entry.Error("request")
			case status >= http.StatusBadRequest:
				entry.Warn("request")
			default:
				entry.Info("request")
			}
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
