package vector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/resilience"
)

const (
	DefaultThreshold = 0.2
	DefaultLimit     = 100
	MaxCandidates    = 500
	// FetchedStatus is the crawl status matches are restricted to.
	FetchedStatus = 200
)

type Searcher struct {
	store   Store
	breaker *resilience.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewSearcher(s Store, m *metrics.Metrics) *Searcher {
	return &Searcher{
		store: s,
		breaker: resilience.NewBreaker("qdrant", resilience.BreakerConfig{
			FailureThreshold: 5,
			Cooldown:         30 * time.Second,
			OnStateChange: func(name string, _, to resilience.State) {
				m.BreakerState(name, int(to))
			},
		}),
		metrics: m,
		logger:  slog.Default().With("component", "vector-search"),
	}
}

// Search fetches min(2*limit, MaxCandidates) candidates above threshold and
// returns the top limit after the link-authority tie-break. A negative
// threshold or a non-positive limit falls back to the default; a threshold
// of 0 keeps every neighbor.
func (s *Searcher) Search(ctx context.Context, vec []float32, threshold float64, limit int) ([]Match, error) {
	if len(vec) == 0 {
		return nil, apperrors.Invalid("query vector is empty")
	}
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	candidates := min(2*limit, MaxCandidates)

	var matches []Match
	err := s.breaker.Execute(func() error {
		var err error
		matches, err = s.store.NearestNeighbors(ctx, vec, threshold, candidates, FetchedStatus)
		return err
	})
	s.metrics.VectorSearch(err)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %w", apperrors.ErrUpstream, err)
	}
	ranked := Rank(matches, limit)
	s.logger.Debug("vector search", "candidates", len(matches), "returned", len(ranked), "threshold", threshold)
	return ranked, nil
}
