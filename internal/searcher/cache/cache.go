// Package cache memoises serialized search responses for a fixed TTL.
// Entries expire lazily: an expired entry is dropped on the next lookup of
// its key, never by a background sweep.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "search:"

// Store is a byte-valued TTL store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear removes every entry and reports how many were removed.
	Clear(ctx context.Context) (int64, error)
}

type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Total   int64   `json:"total"`
	HitRate float64 `json:"hit_rate"`
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(s Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   s,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// NormalizeQuery lower-cases query and collapses its whitespace. Queries that
// normalize alike share one cache entry.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Key derives the cache key of a query and its options from the normalized
// query.
func Key(query string, options any) (string, error) {
	opts, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("serializing search options: %w", err)
	}
	sum := sha256.Sum256([]byte(NormalizeQuery(query) + "|" + string(opts)))
	return keyPrefix + hex.EncodeToString(sum[:]), nil
}

// Get treats store errors as misses.
func (c *QueryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, ok := c.lookup(ctx, key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	c.metrics.CacheLookup(ok)
	return data, ok
}

func (c *QueryCache) lookup(ctx context.Context, key string) ([]byte, bool) {
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		return nil, false
	}
	return data, ok
}

func (c *QueryCache) Set(ctx context.Context, key string, value []byte) {
	if err := c.store.Set(ctx, key, value, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func (c *QueryCache) Evict(ctx context.Context, key string) error {
	if err := c.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("evicting %s: %w", key, err)
	}
	return nil
}

// GetOrCompute returns the cached value for key or computes and stores it.
// Concurrent misses on one key share a single computation. The boolean
// reports a cache hit.
func (c *QueryCache) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) ([]byte, error)) ([]byte, bool, error) {
	if data, ok := c.Get(ctx, key); ok {
		return data, true, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if data, ok := c.lookup(ctx, key); ok {
			return data, nil
		}
		data, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, data)
		return data, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), false, nil
}

func (c *QueryCache) Invalidate(ctx context.Context) error {
	n, err := c.store.Clear(ctx)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", n)
	return nil
}

func (c *QueryCache) Stats() Stats {
	s := Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	s.Total = s.Hits + s.Misses
	if s.Total > 0 {
		s.HitRate = float64(s.Hits) / float64(s.Total)
	}
	return s
}
