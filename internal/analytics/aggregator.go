// Package analytics collects search events and aggregates them into
// query statistics.
package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/events"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/kafka"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalSearches     int64                  `json:"total_searches"`
	VectorSearches    int64                  `json:"vector_searches"`
	CacheHits         int64                  `json:"cache_hits"`
	CacheMisses       int64                  `json:"cache_misses"`
	ZeroResultCount   int64                  `json:"zero_result_count"`
	AvgLatencyMs      float64                `json:"avg_latency_ms"`
	P50LatencyMs      int64                  `json:"p50_latency_ms"`
	P95LatencyMs      int64                  `json:"p95_latency_ms"`
	P99LatencyMs      int64                  `json:"p99_latency_ms"`
	TopQueries        []QueryCount           `json:"top_queries"`
	ZeroResultQueries []QueryCount           `json:"zero_result_queries"`
	QueriesPerMinute  float64                `json:"queries_per_minute"`
	IndexRuns         int64                  `json:"index_runs"`
	LastIndexRun      *events.IndexCompleted `json:"last_index_run,omitempty"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     atomic.Int64
	vectorSearches    atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	zeroResults       atomic.Int64
	indexRuns         atomic.Int64
	latencies         []int64
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	lastIndexRun      *events.IndexCompleted
	startTime         time.Time
	logger            *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent decodes search events consumed from Kafka.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return kafka.JSONHandler(func(_ context.Context, event SearchEvent) error {
		agg.Record(event)
		return nil
	})
}

// Publish lets the aggregator stand in for Kafka when a collector feeds it
// in-process.
func (a *Aggregator) Publish(_ context.Context, _ string, value any) error {
	switch ev := value.(type) {
	case SearchEvent:
		a.Record(ev)
	case events.IndexCompleted:
		a.RecordIndexRun(ev)
	default:
		a.logger.Warn("ignoring unknown analytics event", "type", ev)
	}
	return nil
}

func (a *Aggregator) Record(event SearchEvent) {
	a.totalSearches.Add(1)
	if event.Type == EventVectorSearch {
		a.vectorSearches.Add(1)
	}
	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	zero := event.TotalHits == 0
	if zero {
		a.zeroResults.Add(1)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.latencies) == maxLatencySamples {
		copy(a.latencies, a.latencies[1:])
		a.latencies = a.latencies[:maxLatencySamples-1]
	}
	a.latencies = append(a.latencies, event.LatencyMs)
	a.queryCounts[event.Query]++
	if zero {
		a.zeroResultQueries[event.Query]++
	}
}

func (a *Aggregator) RecordIndexRun(ev events.IndexCompleted) {
	a.indexRuns.Add(1)
	a.mu.Lock()
	a.lastIndexRun = &ev
	a.mu.Unlock()
}

// Restore seeds the counters from a persisted snapshot.
func (a *Aggregator) Restore(s AggregatedStats) {
	a.totalSearches.Store(s.TotalSearches)
	a.vectorSearches.Store(s.VectorSearches)
	a.cacheHits.Store(s.CacheHits)
	a.cacheMisses.Store(s.CacheMisses)
	a.zeroResults.Store(s.ZeroResultCount)
	a.indexRuns.Store(s.IndexRuns)

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, q := range s.TopQueries {
		a.queryCounts[q.Query] += q.Count
	}
	for _, q := range s.ZeroResultQueries {
		a.zeroResultQueries[q.Query] += q.Count
	}
	if s.LastIndexRun != nil {
		run := *s.LastIndexRun
		a.lastIndexRun = &run
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches.Load(),
		VectorSearches:  a.vectorSearches.Load(),
		CacheHits:       a.cacheHits.Load(),
		CacheMisses:     a.cacheMisses.Load(),
		ZeroResultCount: a.zeroResults.Load(),
		IndexRuns:       a.indexRuns.Load(),
		LastIndexRun:    a.lastIndexRun,
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
