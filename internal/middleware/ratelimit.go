package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hongminglow/portfolio-be/internal/http/respond"
	"github.com/hongminglow/portfolio-be/internal/observability"
	"github.com/hongminglow/portfolio-be/internal/ratelimit"
)

// RateLimit refuses requests over the limiter's cap per client IP with 429.
// Limiter errors let the request through.
func RateLimit(name string, limiter ratelimit.Limiter, log logrus.FieldLogger, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), name+":"+clientIP(r))
			if err != nil {
				log.WithError(err).WithField("limiter", name).Error("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				retry := int(math.Ceil(time.Until(res.ResetAt).Seconds()))
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				metrics.RateLimited(name)
				respond.Error(w, http.StatusTooManyRequests, "Too many requests, please try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is the socket peer unless RealIP rewrote RemoteAddr for a trusted
// proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
