// Package metrics holds the Prometheus collectors for the search and indexer
// services. All recording methods are safe on a nil *Metrics so that
// components can run without instrumentation in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	CacheLookupsTotal    *prometheus.CounterVec
	PostingsIndexedTotal *prometheus.CounterVec
	ReindexDuration      prometheus.Histogram
	VectorSearchesTotal  *prometheus.CounterVec
	EmbeddingLatency     prometheus.Histogram
	CircuitBreakerState  *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg. A nil reg registers
// on a fresh private registry, which keeps repeated construction in tests
// from colliding.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by method, route, and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		HTTPRequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),
		SearchQueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "search_queries_total",
			Help: "Total keyword searches by outcome (results, empty, error).",
		}, []string{"outcome"}),
		SearchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "search_latency_seconds",
			Help:    "Keyword search latency in seconds by cache status.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"cache"}),
		SearchResultsCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "search_results_count",
			Help:    "Number of results returned per search.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		}),
		CacheLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "search_cache_lookups_total",
			Help: "Search cache lookups by result (hit, miss).",
		}, []string{"result"}),
		PostingsIndexedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postings_indexed_total",
			Help: "Posting upserts by status (ok, failed).",
		}, []string{"status"}),
		ReindexDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reindex_duration_seconds",
			Help:    "Wall time of completed reindex runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		VectorSearchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vector_searches_total",
			Help: "Vector searches by outcome (ok, error).",
		}, []string{"outcome"}),
		EmbeddingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "embedding_request_seconds",
			Help:    "Latency of embedding service calls.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
		}, []string{"name"}),
	}
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheLookupsTotal,
		m.PostingsIndexedTotal,
		m.ReindexDuration,
		m.VectorSearchesTotal,
		m.EmbeddingLatency,
		m.CircuitBreakerState,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

func (m *Metrics) ObserveSearch(outcome string, cached bool, results int, elapsed time.Duration) {
	if m == nil {
		return
	}
	cache := "miss"
	if cached {
		cache = "hit"
	}
	m.SearchQueriesTotal.WithLabelValues(outcome).Inc()
	m.SearchLatency.WithLabelValues(cache).Observe(elapsed.Seconds())
	m.SearchResultsCount.Observe(float64(results))
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookupsTotal.WithLabelValues("miss").Inc()
}

func (m *Metrics) PostingUpserted(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.PostingsIndexedTotal.WithLabelValues("ok").Inc()
		return
	}
	m.PostingsIndexedTotal.WithLabelValues("failed").Inc()
}

func (m *Metrics) ReindexCompleted(d time.Duration) {
	if m == nil {
		return
	}
	m.ReindexDuration.Observe(d.Seconds())
}

func (m *Metrics) VectorSearch(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.VectorSearchesTotal.WithLabelValues("error").Inc()
		return
	}
	m.VectorSearchesTotal.WithLabelValues("ok").Inc()
}

func (m *Metrics) EmbeddingCall(d time.Duration) {
	if m == nil {
		return
	}
	m.EmbeddingLatency.Observe(d.Seconds())
}

// BreakerState records a circuit breaker transition; state uses the
// resilience.State numbering.
func (m *Metrics) BreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// Handler serves the registry the metrics were registered on.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
