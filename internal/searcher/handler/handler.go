// Package handler exposes the searcher over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/vector"
	apperrors "github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/logger"
)

type SearchExecutor interface {
	Search(ctx context.Context, query string, opts executor.Options) (*executor.Response, bool, error)
}

type VectorSearcher interface {
	Search(ctx context.Context, vec []float32, threshold float64, limit int) ([]vector.Match, error)
}

type DocumentCounter interface {
	CountDocuments(ctx context.Context) (int, error)
}

type Config struct {
	Defaults        executor.Options
	MaxResults      int
	VectorThreshold float64
}

type Handler struct {
	executor  SearchExecutor
	cache     *cache.QueryCache
	counter   DocumentCounter
	embedder  embedding.Embedder
	vectors   VectorSearcher
	collector *analytics.Collector
	cfg       Config
	logger    *slog.Logger
}

// New builds a handler. queryCache and collector may be nil; vector search
// is enabled by WithVectorSearch.
func New(exec SearchExecutor, queryCache *cache.QueryCache, counter DocumentCounter, collector *analytics.Collector, cfg Config) *Handler {
	return &Handler{
		executor:  exec,
		cache:     queryCache,
		counter:   counter,
		collector: collector,
		cfg:       cfg,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

func (h *Handler) WithVectorSearch(e embedding.Embedder, v VectorSearcher) *Handler {
	h.embedder = e
	h.vectors = v
	return h
}

// Register mounts the search routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/vector-search", h.VectorSearch)
	mux.HandleFunc("GET /api/v1/documents/count", h.DocumentCount)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("DELETE /api/v1/cache", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	req, err := parser.Parse(r.URL.Query(), h.cfg.Defaults, h.cfg.MaxResults)
	if err != nil {
		h.writeAppError(w, err, "search failed")
		return
	}

	resp, cached, err := h.executor.Search(ctx, req.Query, req.Options)
	if err != nil {
		log.Error("search execution failed", "query", req.Query, "error", err)
		h.writeAppError(w, err, "search failed")
		return
	}

	latency := time.Since(start)
	log.Info("search completed",
		"query", req.Query,
		"total_results", resp.Metadata.TotalResults,
		"returned", len(resp.Results),
		"cache_hit", cached,
		"latency_ms", latency.Milliseconds(),
	)
	eventType := analytics.EventSearch
	if len(resp.Results) == 0 {
		eventType = analytics.EventZeroResult
	}
	h.collector.Track(analytics.SearchEvent{
		Type:       eventType,
		Query:      req.Query,
		QueryTerms: resp.Metadata.QueryTerms,
		Fuzzy:      req.Options.FuzzyMatch,
		TotalHits:  resp.Metadata.TotalResults,
		Returned:   len(resp.Results),
		LatencyMs:  latency.Milliseconds(),
		CacheHit:   cached,
		Timestamp:  time.Now().UTC(),
		RequestID:  logger.RequestID(ctx),
	})

	if cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type vectorResult struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	URL         string  `json:"url"`
	Score       float64 `json:"score"`
	InLinks     int     `json:"inLinks"`
	OutLinks    int     `json:"outLinks"`
}

type vectorMetadata struct {
	Query        string   `json:"query"`
	TotalResults int      `json:"totalResults"`
	SearchTime   float64  `json:"searchTime"`
	Terms        []string `json:"terms"`
}

// VectorSearch embeds q and returns its nearest pages. limit defaults to
// 100 and min_score to the configured threshold.
func (h *Handler) VectorSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if h.vectors == nil || h.embedder == nil {
		h.writeError(w, http.StatusServiceUnavailable, "vector search is disabled")
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		h.writeError(w, http.StatusBadRequest, "Query required")
		return
	}
	limit := vector.DefaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, vector.MaxCandidates)
	}
	threshold := h.cfg.VectorThreshold
	if s := r.URL.Query().Get("min_score"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f < 0 || f > 1 {
			h.writeError(w, http.StatusBadRequest, "min_score must be between 0 and 1")
			return
		}
		threshold = f
	}

	vec, err := h.embedder.Embed(ctx, q)
	if err != nil {
		log.Error("query embedding failed", "error", err)
		h.writeAppError(w, err, "vector search failed")
		return
	}
	searchStart := time.Now()
	matches, err := h.vectors.Search(ctx, vec, threshold, limit)
	if err != nil {
		log.Error("vector search failed", "error", err)
		h.writeAppError(w, err, "vector search failed")
		return
	}

	results := make([]vectorResult, len(matches))
	for i, m := range matches {
		results[i] = vectorResult{
			ID:          m.ID,
			Title:       m.Payload.Title,
			Description: m.Payload.Description,
			URL:         m.Payload.URL,
			Score:       m.Score,
			InLinks:     m.Payload.InLinks,
			OutLinks:    m.Payload.OutLinks,
		}
	}
	h.collector.Track(analytics.SearchEvent{
		Type:      analytics.EventVectorSearch,
		Query:     q,
		TotalHits: len(results),
		Returned:  len(results),
		LatencyMs: time.Since(start).Milliseconds(),
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestID(ctx),
	})
	h.writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"metadata": vectorMetadata{
			Query:        q,
			TotalResults: len(results),
			SearchTime:   float64(time.Since(searchStart).Microseconds()) / 1000,
			Terms:        []string{},
		},
	})
}

func (h *Handler) DocumentCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.counter.CountDocuments(r.Context())
	if err != nil {
		h.logger.Error("counting documents failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to count documents")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// writeAppError uses the error's own message for client errors and
// fallback for everything else.
func (h *Handler) writeAppError(w http.ResponseWriter, err error, fallback string) {
	status := apperrors.HTTPStatusCode(err)
	msg := fallback
	if status < http.StatusInternalServerError {
		if m, ok := apperrors.Message(err); ok {
			msg = m
		}
	}
	h.writeError(w, status, msg)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
