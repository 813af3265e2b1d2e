package middleware

// HTTP instrumentation under the "recipes_http" prefix. Label values stay
// bounded: method, route (the registered gin pattern such as
// /api/recipes/:id/favorite/, or "unmatched"), status, and viewer
// ("anonymous" or "authenticated").

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "recipes"
	metricsSubsystem = "http"
	unmatchedPath    = "unmatched"

	viewerAnonymous     = "anonymous"
	viewerAuthenticated = "authenticated"
)

// payloadBuckets spans small JSON bodies up to the 10 MB image cap (as base64).
var payloadBuckets = []float64{
	256, 1 << 10, 4 << 10, 16 << 10, 64 << 10,
	256 << 10, 1 << 20, 4 << 20, 16 << 20,
}

// httpMetrics groups the HTTP collectors so tests can build them against a
// private registry.
type httpMetrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	inFlight  prometheus.Gauge
	reqBytes  *prometheus.HistogramVec
	respBytes *prometheus.HistogramVec
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	m := &httpMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "requests_total",
			Help:      "HTTP requests by route, status and viewer kind.",
		}, []string{"method", "route", "status", "viewer"}),
		// Image uploads decode and store several MB, hence the long tail.
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "requests_in_flight",
			Help:      "Requests currently being served.",
		}),
		reqBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "request_size_bytes",
			Help:      "Declared request body sizes.",
			Buckets:   payloadBuckets,
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "response_size_bytes",
			Help:      "Response body sizes.",
			Buckets:   payloadBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.requests, m.duration, m.inFlight, m.reqBytes, m.respBytes)
	return m
}

var defaultHTTPMetrics = newHTTPMetrics(prometheus.DefaultRegisterer)

// Metrics returns a Gin middleware that instruments requests with Prometheus.
// Mount it before Authenticate: the viewer label is read after the rest of
// the chain has run.
//
//	r.Use(middleware.Metrics())
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
func Metrics() gin.HandlerFunc {
	return defaultHTTPMetrics.handler()
}

func (m *httpMetrics) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedPath
		}
		method := c.Request.Method
		viewer := viewerAnonymous
		if UserID(c) != 0 {
			viewer = viewerAuthenticated
		}

		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status()), viewer).Inc()
		m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		if n := c.Request.ContentLength; n > 0 {
			m.reqBytes.WithLabelValues(method, route).Observe(float64(n))
		}
		// Size is -1 when nothing was written.
		if n := c.Writer.Size(); n >= 0 {
			m.respBytes.WithLabelValues(method, route).Observe(float64(n))
		}
	}
}
