package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the auth layer and HTTP surface.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	LoginAttemptsTotal   *prometheus.CounterVec
	AuthRejectionsTotal  *prometheus.CounterVec
	SessionsExpiredTotal prometheus.Counter
	SessionsKilledTotal  *prometheus.CounterVec
	RateLimitedTotal     *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portfolio_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_login_attempts_total",
				Help: "Login attempts by outcome",
			},
			[]string{"result"},
		),
		AuthRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_auth_rejections_total",
				Help: "Requests rejected by the auth layer",
			},
			[]string{"reason"},
		),
		SessionsExpiredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "portfolio_sessions_expired_total",
				Help: "Sessions deleted lazily after expiry",
			},
		),
		SessionsKilledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_sessions_killed_total",
				Help: "Sessions explicitly invalidated",
			},
			[]string{"by"},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_rate_limited_total",
				Help: "Requests refused by a rate limiter",
			},
			[]string{"limiter"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginAttemptsTotal,
		m.AuthRejectionsTotal,
		m.SessionsExpiredTotal,
		m.SessionsKilledTotal,
		m.RateLimitedTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) LoginAttempt(result string) {
	if m == nil {
		return
	}
	m.LoginAttemptsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) AuthRejected(reason string) {
	if m == nil {
		return
	}
	m.AuthRejectionsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) SessionExpired() {
	if m == nil {
		return
	}
	m.SessionsExpiredTotal.Inc()
}

func (m *Metrics) SessionKilled(by string) {
	if m == nil {
		return
	}
	m.SessionsKilledTotal.WithLabelValues(by).Inc()
}

func (m *Metrics) RateLimited(limiter string) {
	if m == nil {
		return
	}
	m.RateLimitedTotal.WithLabelValues(limiter).Inc()
}
