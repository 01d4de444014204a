package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/vector"
	apperrors "github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	query string
	opts  executor.Options
	resp  *executor.Response
	err   error
}

func (f *fakeExecutor) Search(_ context.Context, query string, opts executor.Options) (*executor.Response, bool, error) {
	f.query, f.opts = query, opts
	return f.resp, false, f.err
}

type fakeCounter struct{ n int }

func (f fakeCounter) CountDocuments(context.Context) (int, error) { return f.n, nil }

type fakeEmbedder struct{ err error }

func (f fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2}, f.err
}

type fakeVectors struct {
	threshold float64
	limit     int
}

func (f *fakeVectors) Search(_ context.Context, _ []float32, threshold float64, limit int) ([]vector.Match, error) {
	f.threshold, f.limit = threshold, limit
	return []vector.Match{
		{ID: "p1", Score: 0.9, Payload: vector.Payload{URL: "https://a.example", Title: "A", InLinks: 3}},
	}, nil
}

func newMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func defaultConfig() Config {
	return Config{Defaults: executor.DefaultOptions(), MaxResults: 50, VectorThreshold: 0.2}
}

func do(mux http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestSearchParsesOptionsAndTracks(t *testing.T) {
	exec := &fakeExecutor{resp: &executor.Response{
		Results:  []executor.Result{{ID: 1, Title: "D1", Score: 0.9}},
		Metadata: executor.Metadata{Query: "fast search", TotalResults: 1, QueryTerms: []string{"fast", "search"}},
	}}
	agg := analytics.NewAggregator()
	collector := analytics.NewCollector(agg, 8)
	collector.Start(context.Background())

	mux := newMux(New(exec, nil, fakeCounter{}, collector, defaultConfig()))
	rec := do(mux, http.MethodGet, "/api/v1/search?q=fast+search&limit=500&fuzzy=true")
	collector.Close()

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "fast search", exec.query)
	assert.Equal(t, 50, exec.opts.Limit)
	assert.True(t, exec.opts.FuzzyMatch)

	var body executor.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, []string{"fast", "search"}, body.Metadata.QueryTerms)
	assert.Equal(t, int64(1), agg.Stats().TotalSearches)
}

func TestSearchErrors(t *testing.T) {
	mux := newMux(New(&fakeExecutor{}, nil, fakeCounter{}, nil, defaultConfig()))
	rec := do(mux, http.MethodGet, "/api/v1/search")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"query parameter 'q' is required"}`, rec.Body.String())

	failing := &fakeExecutor{err: errors.New("connection refused")}
	mux = newMux(New(failing, nil, fakeCounter{}, nil, defaultConfig()))
	rec = do(mux, http.MethodGet, "/api/v1/search?q=go")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"search failed"}`, rec.Body.String())
}

func TestVectorSearch(t *testing.T) {
	vecs := &fakeVectors{}
	h := New(&fakeExecutor{}, nil, fakeCounter{}, nil, defaultConfig()).WithVectorSearch(fakeEmbedder{}, vecs)
	mux := newMux(h)

	rec := do(mux, http.MethodGet, "/api/v1/vector-search?q=golang")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, vector.DefaultLimit, vecs.limit)
	assert.Equal(t, 0.2, vecs.threshold)

	var body struct {
		Results  []vectorResult `json:"results"`
		Metadata vectorMetadata `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "https://a.example", body.Results[0].URL)
	assert.Equal(t, 3, body.Results[0].InLinks)
	assert.Equal(t, 1, body.Metadata.TotalResults)

	rec = do(mux, http.MethodGet, "/api/v1/vector-search?q=golang&limit=3&min_score=0.5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, vecs.limit)
	assert.Equal(t, 0.5, vecs.threshold)

	rec = do(mux, http.MethodGet, "/api/v1/vector-search?q=golang&min_score=0")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, vecs.threshold)

	rec = do(mux, http.MethodGet, "/api/v1/vector-search")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Query required"}`, rec.Body.String())
}

func TestVectorSearchFailures(t *testing.T) {
	mux := newMux(New(&fakeExecutor{}, nil, fakeCounter{}, nil, defaultConfig()))
	assert.Equal(t, http.StatusServiceUnavailable, do(mux, http.MethodGet, "/api/v1/vector-search?q=x").Code)

	upstream := fmt.Errorf("%w: embedding: %w", apperrors.ErrUpstream, errors.New("503 from model"))
	h := New(&fakeExecutor{}, nil, fakeCounter{}, nil, defaultConfig()).WithVectorSearch(fakeEmbedder{err: upstream}, &fakeVectors{})
	rec := do(newMux(h), http.MethodGet, "/api/v1/vector-search?q=x")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"vector search failed"}`, rec.Body.String())
}

func TestDocumentCountAndCacheRoutes(t *testing.T) {
	qc := cache.New(cache.NewMemoryStore(nil), time.Minute, nil)
	qc.Set(context.Background(), "k", []byte("v"))
	mux := newMux(New(&fakeExecutor{}, qc, fakeCounter{n: 42}, nil, defaultConfig()))

	rec := do(mux, http.MethodGet, "/api/v1/documents/count")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":42}`, rec.Body.String())

	rec = do(mux, http.MethodGet, "/api/v1/cache/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hits":0`)

	rec = do(mux, http.MethodDelete, "/api/v1/cache")
	require.Equal(t, http.StatusOK, rec.Code)
	_, ok := qc.Get(context.Background(), "k")
	assert.False(t, ok)

	noCache := newMux(New(&fakeExecutor{}, nil, fakeCounter{}, nil, defaultConfig()))
	assert.Equal(t, http.StatusServiceUnavailable, do(noCache, http.MethodDelete, "/api/v1/cache").Code)
	assert.JSONEq(t, `{"status":"disabled"}`, do(noCache, http.MethodGet, "/api/v1/cache/stats").Body.String())
}
