// Package obs exposes Prometheus metrics for the HTTP boundary, the
// lifecycle operations and the rate limiter.
package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its collectors and the registry they live in, so several
// instances can coexist in tests.
type Metrics struct {
	reg *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	authOps           *prometheus.CounterVec
	rateLimitRejected prometheus.Counter
	rateLimitErrors   prometheus.Counter
	buildInfo         *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		authOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_operations_total",
			Help: "Credential exchanges by operation and outcome code.",
		}, []string{"op", "outcome"}),
		rateLimitRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Requests rejected by admission control.",
		}),
		rateLimitErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rate_limit_backend_errors_total",
			Help: "Limiter backend failures; the request was let through.",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Auth session engine build information.",
		}, []string{"version", "commit"}),
	}
	m.reg.MustRegister(
		m.httpInFlight, m.httpRequestsTotal, m.httpRequestDuration,
		m.authOps, m.rateLimitRejected, m.rateLimitErrors, m.buildInfo,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// SetBuildInfo sets build_info{version,commit} to 1.
func (m *Metrics) SetBuildInfo(version, commit string) {
	m.buildInfo.WithLabelValues(version, commit).Set(1)
}

// AuthOutcome counts one lifecycle operation.  outcome is "ok" or the
// stable error code.
func (m *Metrics) AuthOutcome(op, outcome string) {
	m.authOps.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) RateLimited()       { m.rateLimitRejected.Inc() }
func (m *Metrics) RateLimiterFailed() { m.rateLimitErrors.Inc() }

// Instrument records in-flight requests, counts and latency.  The path
// label is the matched route template, so ids do not explode cardinality.
func (m *Metrics) Instrument() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.httpInFlight.Inc()
			defer m.httpInFlight.Dec()
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if !c.Response().Committed {
					status = http.StatusInternalServerError
				}
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			labels := []string{c.Request().Method, path, strconv.Itoa(status)}
			m.httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			m.httpRequestsTotal.WithLabelValues(labels...).Inc()
			return err
		}
	}
}
