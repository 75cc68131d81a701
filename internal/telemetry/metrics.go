// Package telemetry exports the engine's observable state: Prometheus
// metrics for the Compilation Cache and per-cycle/per-sensor durations
// (§4.2 `stats()`, §4.8 orchestrator protocol), and OpenTelemetry tracing
// spans for the same boundaries. Grounded on 99souls-ariadne's
// engine/telemetry/metrics package and engine/monitoring's
// OpenTelemetryTracer.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LegoTypes/synthformula/internal/classify"
	"github.com/LegoTypes/synthformula/internal/compilecache"
)

// Metrics holds every Prometheus collector the engine updates. A caller
// registers these against its own *prometheus.Registry (or the default
// one) and mounts Handler() wherever it exposes a /metrics endpoint.
type Metrics struct {
	registry *prometheus.Registry

	cacheEntries prometheus.Gauge
	cacheHits    prometheus.Gauge
	cacheMisses  prometheus.Gauge
	cacheHitRate prometheus.Gauge
	cacheCap     prometheus.Gauge

	cycleDuration  prometheus.Histogram
	sensorDuration *prometheus.HistogramVec
	breakerTrips   *prometheus.CounterVec
}

// New creates a Metrics bound to a fresh registry, unless reg is supplied
// (pass nil to get a private, non-default registry — the teacher's own
// PrometheusProvider defaults the same way).
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: reg,
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "synthformula_compile_cache_entries",
			Help: "Current number of formula entries held in the compilation cache.",
		}),
		cacheHits: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "synthformula_compile_cache_hits_total",
			Help: "Cumulative compilation cache hits.",
		}),
		cacheMisses: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "synthformula_compile_cache_misses_total",
			Help: "Cumulative compilation cache misses.",
		}),
		cacheHitRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "synthformula_compile_cache_hit_rate",
			Help: "Compilation cache hit rate in [0,1] (§8 'monotonically non-decreasing across cycles that evaluate only previously-seen formulas').",
		}),
		cacheCap: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "synthformula_compile_cache_capacity",
			Help: "Configured compilation cache capacity (0 means unbounded).",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "synthformula_cycle_duration_seconds",
			Help:    "Wall-clock duration of one begin_cycle..end_cycle pass over a sensor set.",
			Buckets: prometheus.DefBuckets,
		}),
		sensorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "synthformula_sensor_evaluation_duration_seconds",
			Help:    "Wall-clock duration of evaluating one sensor's main formula plus attributes.",
			Buckets: prometheus.DefBuckets,
		}, []string{"sensor"}),
		breakerTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "synthformula_breaker_trips_total",
			Help: "Circuit breaker trips, by sensor and error category.",
		}, []string{"sensor", "category"}),
	}

	reg.MustRegister(
		m.cacheEntries, m.cacheHits, m.cacheMisses, m.cacheHitRate, m.cacheCap,
		m.cycleDuration, m.sensorDuration, m.breakerTrips,
	)
	return m
}

// Handler exposes the metrics in Prometheus exposition format, for
// mounting at e.g. /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCacheStats updates the cache gauges from a compilation cache
// snapshot (§4.2 stats()).
func (m *Metrics) ObserveCacheStats(stats compilecache.Stats) {
	m.cacheEntries.Set(float64(stats.Entries))
	m.cacheHits.Set(float64(stats.Hits))
	m.cacheMisses.Set(float64(stats.Misses))
	m.cacheHitRate.Set(stats.HitRate)
	m.cacheCap.Set(float64(stats.Capacity))
}

// ObserveCycleDuration records one full cycle's wall-clock duration in
// seconds.
func (m *Metrics) ObserveCycleDuration(seconds float64) {
	m.cycleDuration.Observe(seconds)
}

// ObserveSensorDuration records one sensor's evaluation duration.
func (m *Metrics) ObserveSensorDuration(sensorKey string, seconds float64) {
	m.sensorDuration.WithLabelValues(sensorKey).Observe(seconds)
}

// RecordBreakerTrip increments the trip counter for a sensor/category pair
// (§4.12, §7 "trigger the circuit breaker for that sensor").
func (m *Metrics) RecordBreakerTrip(sensorKey string, category classify.Category) {
	m.breakerTrips.WithLabelValues(sensorKey, string(category)).Inc()
}
