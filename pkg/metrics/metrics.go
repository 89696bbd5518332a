// Package metrics defines the Prometheus collectors used by the relevance
// engine and the search service, and exposes an HTTP handler for scraping.
package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CacheCircuitState    prometheus.Gauge
	BuildDuration        *prometheus.HistogramVec
	PageRankIterations   prometheus.Gauge
	PageRankFinalDelta   prometheus.Gauge
	CorpusDocuments      prometheus.Gauge
	CorpusTerms          prometheus.Gauge
	LinkGraphEdges       prometheus.Gauge
}

// New creates every collector and registers it with reg. A nil reg means
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
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
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, miss, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of query cache misses.",
			},
		),
		CacheCircuitState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cache_circuit_state",
				Help: "Query cache circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
		),
		BuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "engine_build_duration_seconds",
				Help:    "Time spent in each relevance engine build phase.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"phase"},
		),
		PageRankIterations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pagerank_iterations",
				Help: "Power iterations needed by the last PageRank solve.",
			},
		),
		PageRankFinalDelta: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pagerank_final_delta",
				Help: "Largest per-node change in the last PageRank iteration.",
			},
		),
		CorpusDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "corpus_documents",
				Help: "Documents in the loaded corpus.",
			},
		),
		CorpusTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "corpus_terms",
				Help: "Distinct terms in the loaded corpus.",
			},
		),
		LinkGraphEdges: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "link_graph_edges",
				Help: "In-corpus edges in the link graph.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheCircuitState,
		m.BuildDuration,
		m.PageRankIterations,
		m.PageRankFinalDelta,
		m.CorpusDocuments,
		m.CorpusTerms,
		m.LinkGraphEdges,
	)
	return m
}

// ObservePhase records how long one engine build phase took.
func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	m.BuildDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (m *Metrics) ObservePageRank(iterations int, delta float64) {
	m.PageRankIterations.Set(float64(iterations))
	m.PageRankFinalDelta.Set(delta)
}

func (m *Metrics) ObserveCorpus(documents, terms, edges int) {
	m.CorpusDocuments.Set(float64(documents))
	m.CorpusTerms.Set(float64(terms))
	m.LinkGraphEdges.Set(float64(edges))
}

// HandlerFor returns a scrape handler for g. Collection errors are logged
// and the metrics that could be gathered are still served.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{
		ErrorLog:      slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
		ErrorHandling: promhttp.ContinueOnError,
	})
}
