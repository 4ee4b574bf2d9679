// Package metrics exposes Prometheus collectors for the HTTP layer and the
// document cache.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one server instance. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	activeRequests      prometheus.Gauge
	activeSessions      prometheus.Gauge
	uploadedFiles       *prometheus.CounterVec
	extractions         *prometheus.CounterVec
	contentCacheHits    *prometheus.CounterVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		activeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Number of active HTTP requests",
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fileupload_active_sessions",
			Help: "Number of live browser sessions",
		}),
		uploadedFiles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileupload_uploaded_files_total",
				Help: "Files accepted by the upload widgets",
			},
			[]string{"widget"},
		),
		extractions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileupload_extractions_total",
				Help: "Document extractions that actually ran, by kind and outcome",
			},
			[]string{"kind", "status"},
		),
		contentCacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileupload_content_cache_hits_total",
				Help: "Content requests answered from the session cache",
			},
			[]string{"kind"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveContent records one content request.
func (m *Metrics) ObserveContent(kind, status string, fresh bool) {
	if m == nil {
		return
	}
	if fresh {
		m.extractions.WithLabelValues(kind, status).Inc()
		return
	}
	m.contentCacheHits.WithLabelValues(kind).Inc()
}

// ObserveUpload records files accepted by a widget.
func (m *Metrics) ObserveUpload(widget string, files int) {
	if m == nil {
		return
	}
	m.uploadedFiles.WithLabelValues(widget).Add(float64(files))
}

// SetActiveSessions publishes the live session count.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// Middleware records request counts and latencies by route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}

			start := time.Now()
			m.activeRequests.Inc()
			defer m.activeRequests.Dec()

			err := next(c)
			if err != nil {
				// Commit the error response so the recorded status is final.
				// Outer middleware still sees err; the error handler skips
				// committed responses.
				c.Error(err)
			}

			// Route pattern, not the raw path
			route := c.Path()
			if route == "" {
				route = "unknown"
			}
			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)

			m.httpRequestsTotal.WithLabelValues(method, route, status).Inc()
			m.httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
