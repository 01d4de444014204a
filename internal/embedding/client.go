// Package embedding talks to the external text embedding service, which
// answers POST /embed {"text": ...} with a fixed-length vector.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/resilience"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Dims      int       `json:"dims"`
	ElapsedMS float64   `json:"elapsed_ms"`
}

// HTTPClient calls the embedding service. Dims, when positive, is the
// expected vector length; other lengths are rejected.
type HTTPClient struct {
	baseURL string
	dims    int
	http    *http.Client
	breaker *resilience.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewHTTPClient(cfg config.EmbeddingConfig, dims int, m *metrics.Metrics) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &HTTPClient{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		dims:    dims,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     time.Minute,
			},
		},
		breaker: resilience.NewBreaker("embedding", resilience.BreakerConfig{
			FailureThreshold: 5,
			Cooldown:         15 * time.Second,
			OnStateChange: func(name string, _, to resilience.State) {
				m.BreakerState(name, int(to))
			},
		}),
		metrics: m,
		logger:  slog.Default().With("component", "embedding"),
	}
}

func (c *HTTPClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.Invalid("text cannot be empty")
	}
	var out []float32
	err := c.breaker.Execute(func() error {
		vec, err := c.call(ctx, text)
		if err != nil {
			return err
		}
		out = vec
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embedding: %w", apperrors.ErrUpstream, err)
	}
	return out, nil
}

func (c *HTTPClient) call(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling embed request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.EmbeddingCall(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("calling embedding service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	var er embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}
	if len(er.Embedding) == 0 {
		return nil, fmt.Errorf("embedding service returned an empty vector")
	}
	if c.dims > 0 && len(er.Embedding) != c.dims {
		return nil, fmt.Errorf("embedding has %d dimensions, want %d", len(er.Embedding), c.dims)
	}
	c.logger.Debug("text embedded", "dims", len(er.Embedding), "service_ms", er.ElapsedMS, "chars", len(text))
	return er.Embedding, nil
}

// Ping checks the service's /health endpoint.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("embedding health: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding health returned %d", resp.StatusCode)
	}
	return nil
}
