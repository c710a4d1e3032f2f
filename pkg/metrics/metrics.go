// Package metrics defines the Prometheus metric collectors used by the
// corrector and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors and the registry they live in.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	AnalysesTotal        *prometheus.CounterVec
	AnalysisDuration     *prometheus.HistogramVec
	RowsLoadedTotal      prometheus.Counter
	RowsDroppedTotal     prometheus.Counter
	MatchesTotal         prometheus.Counter
	MultiMatchCompounds  prometheus.Gauge
	IndexCollisionsTotal prometheus.Counter
	CorrectionsLoaded    prometheus.Gauge
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	EventsPublishedTotal *prometheus.CounterVec
}

// New creates a private registry holding the corrector collectors plus the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analyses_total",
				Help: "Total analysis runs by source (cli, http) and cache status.",
			},
			[]string{"source", "cache_status"},
		),
		AnalysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "analysis_duration_seconds",
				Help:    "Wall time of index build, matching and aggregation.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"source"},
		),
		RowsLoadedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "compound_rows_loaded_total",
				Help: "Compound rows accepted by the loader.",
			},
		),
		RowsDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "compound_rows_dropped_total",
				Help: "Compound rows dropped as malformed.",
			},
		),
		MatchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "matches_total",
				Help: "Match results produced.",
			},
		),
		MultiMatchCompounds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "last_analysis_multi_match_compounds",
				Help: "Compounds with more than one match in the most recent analysis.",
			},
		),
		IndexCollisionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "index_collisions_total",
				Help: "Compounds shadowed in the formula index by a later duplicate.",
			},
		),
		CorrectionsLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "corrections_loaded",
				Help: "Size of the correction library used by the most recent analysis.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "result_cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "result_cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		EventsPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_published_total",
				Help: "Kafka events published by topic and status.",
			},
			[]string{"topic", "status"},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.AnalysesTotal,
		m.AnalysisDuration,
		m.RowsLoadedTotal,
		m.RowsDroppedTotal,
		m.MatchesTotal,
		m.MultiMatchCompounds,
		m.IndexCollisionsTotal,
		m.CorrectionsLoaded,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.EventsPublishedTotal,
	)

	return m
}

// Handler returns the scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
