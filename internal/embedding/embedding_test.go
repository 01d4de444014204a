package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeService(t *testing.T, dims int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
			return
		case "/embed":
		default:
			http.NotFound(w, r)
			return
		}
		if calls != nil {
			calls.Add(1)
		}
		var req embedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Text == "" {
			http.Error(w, `{"detail":"Text cannot be empty"}`, http.StatusBadRequest)
			return
		}
		vec := make([]float32, dims)
		vec[0] = float32(len(req.Text))
		json.NewEncoder(w).Encode(embedResponse{Embedding: vec, Dims: dims, ElapsedMS: 1.5})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClientEmbed(t *testing.T) {
	srv := fakeService(t, 4, nil)
	c := NewHTTPClient(config.EmbeddingConfig{URL: srv.URL + "/", Timeout: time.Second}, 4, nil)

	vec, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 0, 0, 0}, vec)
	require.NoError(t, c.Ping(context.Background()))
}

func TestHTTPClientRejectsEmptyText(t *testing.T) {
	c := NewHTTPClient(config.EmbeddingConfig{URL: "http://127.0.0.1:1"}, 4, nil)
	_, err := c.Embed(context.Background(), "   ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestHTTPClientDimensionMismatch(t *testing.T) {
	srv := fakeService(t, 3, nil)
	c := NewHTTPClient(config.EmbeddingConfig{URL: srv.URL}, 4, nil)
	_, err := c.Embed(context.Background(), "hello")
	require.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.Contains(t, err.Error(), "3 dimensions")
}

func TestHTTPClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()
	c := NewHTTPClient(config.EmbeddingConfig{URL: srv.URL}, 0, nil)
	_, err := c.Embed(context.Background(), "hello")
	require.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.Contains(t, err.Error(), "500")
}

func TestCachedAvoidsRepeatCalls(t *testing.T) {
	var calls atomic.Int32
	srv := fakeService(t, 2, &calls)
	c := NewCached(NewHTTPClient(config.EmbeddingConfig{URL: srv.URL}, 2, nil), 8)

	a, err := c.Embed(context.Background(), "same text")
	require.NoError(t, err)
	b, err := c.Embed(context.Background(), "same text")
	require.NoError(t, err)
	_, err = c.Embed(context.Background(), "other")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 2, c.Len())
}
