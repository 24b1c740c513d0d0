// Package metrics exposes Prometheus instrumentation for the scoring service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for calculator runs, the result cache and
// the record store. A nil *Metrics is a valid no-op.
type Metrics struct {
	// Compute outcomes by calculator and severity tier
	Computations *prometheus.CounterVec

	// Compute latency by calculator
	ComputeLatency *prometheus.HistogramVec

	// Result cache lookups by outcome ("hit", "miss")
	CacheLookups *prometheus.CounterVec

	// Record store failures by operation
	StoreErrors *prometheus.CounterVec

	// HTTP requests by route and status code
	Requests *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates a Metrics instance registered with reg. When reg is nil a
// private registry is used, so tests can build as many instances as they need.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	m := &Metrics{
		Computations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scoring_computations_total",
			Help: "Total calculator runs by calculator and severity",
		}, []string{"calculator", "severity"}),

		ComputeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scoring_compute_duration_seconds",
			Help:    "Duration of calculator runs including cache lookup and persistence",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}, []string{"calculator"}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scoring_cache_lookups_total",
			Help: "Result cache lookups by outcome",
		}, []string{"outcome"}),

		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scoring_store_errors_total",
			Help: "Record store failures by operation",
		}, []string{"operation"}),

		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scoring_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "status"}),
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

// ObserveCompute records one calculator run.
func (m *Metrics) ObserveCompute(calculatorID, severity string, d time.Duration) {
	if m == nil {
		return
	}
	if severity == "" {
		severity = "none"
	}
	m.Computations.WithLabelValues(calculatorID, severity).Inc()
	m.ComputeLatency.WithLabelValues(calculatorID).Observe(d.Seconds())
}

// CacheHit records a result cache hit.
func (m *Metrics) CacheHit() {
	if m != nil {
		m.CacheLookups.WithLabelValues("hit").Inc()
	}
}

// CacheMiss records a result cache miss.
func (m *Metrics) CacheMiss() {
	if m != nil {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}

// StoreError records a failed store operation.
func (m *Metrics) StoreError(operation string) {
	if m != nil {
		m.StoreErrors.WithLabelValues(operation).Inc()
	}
}

// ObserveRequest records a served HTTP request.
func (m *Metrics) ObserveRequest(route string, status int) {
	if m != nil {
		m.Requests.WithLabelValues(route, http.StatusText(status)).Inc()
	}
}

// Handler serves the registry this instance was registered with.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
