// Package metrics records upstream, cache and compute metrics with Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder satisfies the observer interfaces of the edgar, provider and
// cache packages. Each recorder owns its registry so tests can create many.
type Recorder struct {
	registry *prometheus.Registry

	requestsTotal *prometheus.CounterVec
	upstreamTime  *prometheus.HistogramVec
	cacheTotal    *prometheus.CounterVec
	computeTime   *prometheus.HistogramVec
}

// New creates a recorder on a fresh registry with the Go and process collectors
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "truthline_upstream_requests_total",
				Help: "Upstream HTTP requests by upstream and outcome",
			},
			[]string{"upstream", "outcome"},
		),
		upstreamTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "truthline_upstream_request_duration_seconds",
				Help:    "Upstream HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"upstream"},
		),
		cacheTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "truthline_cache_lookups_total",
				Help: "Cache lookups by cache name and result",
			},
			[]string{"cache", "result"},
		),
		computeTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "truthline_operation_duration_seconds",
				Help:    "Duration of report and relative strength operations in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation", "status"},
		),
	}
}

// ObserveRequest records one upstream call
func (r *Recorder) ObserveRequest(upstream, outcome string, elapsed time.Duration) {
	r.requestsTotal.WithLabelValues(upstream, outcome).Inc()
	r.upstreamTime.WithLabelValues(upstream).Observe(elapsed.Seconds())
}

// CacheHit records a cache hit
func (r *Recorder) CacheHit(name string) {
	r.cacheTotal.WithLabelValues(name, "hit").Inc()
}

// CacheMiss records a cache miss
func (r *Recorder) CacheMiss(name string) {
	r.cacheTotal.WithLabelValues(name, "miss").Inc()
}

// ObserveOperation records the duration of a top-level operation
func (r *Recorder) ObserveOperation(op string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.computeTime.WithLabelValues(op, status).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
