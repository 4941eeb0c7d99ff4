package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the mux service.
type Metrics struct {
	registry           *prometheus.Registry
	requestsTotal      prometheus.Counter
	muxJobsTotal       prometheus.Counter
	muxFailuresTotal   prometheus.Counter
	resolveCacheHits   prometheus.Counter
	resolveCacheMisses prometheus.Counter
	cachedResolutions  prometheus.Gauge
	errorsTotal        prometheus.Counter
}

// New creates and registers Prometheus metrics for the mux service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mux_requests_total",
		Help: "Total number of HTTP requests received",
	})
	muxJobsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mux_jobs_total",
		Help: "Total number of artifacts muxed and delivered",
	})
	muxFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mux_job_failures_total",
		Help: "Total number of encoder runs that failed",
	})
	resolveCacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mux_resolve_cache_hits_total",
		Help: "Total number of post resolutions served from the cache",
	})
	resolveCacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mux_resolve_cache_misses_total",
		Help: "Total number of post resolutions that required an upstream listing fetch",
	})
	cachedResolutions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mux_cached_resolutions",
		Help: "Number of post-to-manifest mappings currently cached",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mux_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})

	registry.MustRegister(
		requestsTotal,
		muxJobsTotal,
		muxFailuresTotal,
		resolveCacheHits,
		resolveCacheMisses,
		cachedResolutions,
		errorsTotal,
	)

	return &Metrics{
		registry:           registry,
		requestsTotal:      requestsTotal,
		muxJobsTotal:       muxJobsTotal,
		muxFailuresTotal:   muxFailuresTotal,
		resolveCacheHits:   resolveCacheHits,
		resolveCacheMisses: resolveCacheMisses,
		cachedResolutions:  cachedResolutions,
		errorsTotal:        errorsTotal,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncMuxJobs increments the delivered-artifact counter.
func (m *Metrics) IncMuxJobs() {
	m.muxJobsTotal.Inc()
}

// IncMuxFailures increments the failed-encoder-run counter.
func (m *Metrics) IncMuxFailures() {
	m.muxFailuresTotal.Inc()
}

// IncCacheHits increments the resolution cache hit counter.
func (m *Metrics) IncCacheHits() {
	m.resolveCacheHits.Inc()
}

// IncCacheMisses increments the resolution cache miss counter.
func (m *Metrics) IncCacheMisses() {
	m.resolveCacheMisses.Inc()
}

// SetCachedResolutions sets the cached-resolutions gauge.
func (m *Metrics) SetCachedResolutions(n int) {
	m.cachedResolutions.Set(float64(n))
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g.
// the cached-resolutions count).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
