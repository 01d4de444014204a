package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/store"
	"golang.org/x/sync/singleflight"
)

// TermCache resolves term text to ids for the duration of one run. A term
// is looked up first and inserted only if absent; concurrent resolutions of
// the same term share one store round trip.
type TermCache struct {
	store  store.MetadataStore
	mu     sync.RWMutex
	ids    map[string]int64
	group  singleflight.Group
	misses atomic.Int64
}

func NewTermCache(s store.MetadataStore) *TermCache {
	return &TermCache{store: s, ids: make(map[string]int64)}
}

func (c *TermCache) Resolve(ctx context.Context, text string) (int64, error) {
	c.mu.RLock()
	id, ok := c.ids[text]
	c.mu.RUnlock()
	if ok {
		return id, nil
	}

	v, err, _ := c.group.Do(text, func() (any, error) {
		c.misses.Add(1)
		term, err := c.store.FindTermByText(ctx, text)
		switch {
		case err == nil:
			return term.ID, nil
		case errors.Is(err, store.ErrNotFound):
			return c.store.InsertTerm(ctx, text)
		default:
			return int64(0), err
		}
	})
	if err != nil {
		return 0, fmt.Errorf("resolving term %q: %w", text, err)
	}
	id = v.(int64)
	c.mu.Lock()
	c.ids[text] = id
	c.mu.Unlock()
	return id, nil
}

// Misses is the number of store round trips made.
func (c *TermCache) Misses() int64 { return c.misses.Load() }

func (c *TermCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}
