// Package metrics exposes Prometheus instrumentation for the HTTP surface,
// the content oracle and the learning counters.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. Each collector
// owns its registry, so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Oracle metrics
	OracleRequests *prometheus.CounterVec
	OracleDuration *prometheus.HistogramVec
	BreakerOpen    prometheus.Gauge

	// Learning metrics
	QuizzesCompleted   prometheus.Counter
	ModulesCompleted   prometheus.Counter
	ReactionsApplied   prometheus.Counter
	MoleculesGenerated prometheus.Counter
}

// NewCollector creates a collector whose metric names are prefixed by namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		OracleRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "oracle_requests_total",
				Help:      "Total number of content oracle requests by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		OracleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "oracle_request_duration_seconds",
				Help:      "Content oracle request duration in seconds, retries included",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
			},
			[]string{"operation"},
		),
		BreakerOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "oracle_breaker_open",
			Help:      "1 while the oracle circuit breaker is open, 0 otherwise",
		}),
		QuizzesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quizzes_completed_total",
			Help:      "Total number of completed quiz attempts",
		}),
		ModulesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modules_completed_total",
			Help:      "Total number of module unlock events applied",
		}),
		ReactionsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reactions_applied_total",
			Help:      "Total number of successful reactions",
		}),
		MoleculesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "molecules_generated_total",
			Help:      "Total number of structures generated by search",
		}),
	}

	c.registry.MustRegister(
		c.HTTPRequests, c.HTTPDuration,
		c.OracleRequests, c.OracleDuration, c.BreakerOpen,
		c.QuizzesCompleted, c.ModulesCompleted, c.ReactionsApplied, c.MoleculesGenerated,
	)

	return c
}

// Registry returns the registry the collector's metrics are registered in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordOracleCall records one oracle operation. outcome is a short label
// such as "ok", "unavailable", "invalid" or "blocked".
func (c *Collector) RecordOracleCall(operation, outcome string, elapsed time.Duration) {
	c.OracleRequests.WithLabelValues(operation, outcome).Inc()
	c.OracleDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// SetBreakerOpen reflects the breaker state in the gauge.
func (c *Collector) SetBreakerOpen(open bool) {
	if open {
		c.BreakerOpen.Set(1)
		return
	}
	c.BreakerOpen.Set(0)
}

// Middleware records request counts and latencies labelled by the matched
// chi route pattern, which keeps path parameters out of label values.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
