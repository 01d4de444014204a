package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/events"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/store"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/vector"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/config"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"
)

// VectorIndexer embeds every indexable page and upserts it into the vector
// store, keyed by a point id derived from the page URL.
type VectorIndexer struct {
	store     store.MetadataStore
	embedder  embedding.Embedder
	vectors   vector.Store
	cfg       config.VectorConfig
	publisher events.Publisher
	logger    *slog.Logger
}

func NewVectorIndexer(s store.MetadataStore, e embedding.Embedder, v vector.Store, cfg config.VectorConfig, publisher events.Publisher) *VectorIndexer {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &VectorIndexer{
		store:     s,
		embedder:  e,
		vectors:   v,
		cfg:       cfg,
		publisher: publisher,
		logger:    slog.Default().With("component", "vector-indexer"),
	}
}

// IndexVectors processes pages in waves of ParallelBatches pages; embeddings
// within a page are computed on ParallelUpserts workers. A page whose
// embedding fails is skipped; a failed page fetch or vector upsert aborts
// the run.
func (v *VectorIndexer) IndexVectors(ctx context.Context, opts Options) (*RunStats, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	stats := &RunStats{RunID: uuid.NewString(), StartedAt: time.Now()}
	logger := v.logger.With("run_id", stats.RunID)

	if err := v.vectors.EnsureCollection(ctx, v.cfg.Collection, v.cfg.VectorSize, v.cfg.Distance); err != nil {
		return nil, err
	}
	n, err := v.store.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}
	logger.Info("vector indexing started", "documents", n)

	pool, err := ants.NewPool(opts.ParallelUpserts)
	if err != nil {
		return nil, fmt.Errorf("creating embedding pool: %w", err)
	}
	defer pool.Release()

	var indexed, failed atomic.Int64
	wave := opts.BatchSize * opts.ParallelBatches
	for start := 0; start < n; start += wave {
		var offsets []int
		for off := start; off < start+wave && off < n; off += opts.BatchSize {
			offsets = append(offsets, off)
		}
		results := make([][]vector.Point, len(offsets))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.ParallelBatches)
		for i, off := range offsets {
			g.Go(func() error {
				pages, err := v.store.GetLinkedPagesPage(gctx, off, opts.BatchSize)
				if err != nil {
					return fmt.Errorf("fetching pages at offset %d: %w", off, err)
				}
				points, skipped, err := v.embedPages(gctx, pool, pages)
				failed.Add(int64(skipped))
				results[i] = points
				return err
			})
		}
		if err := g.Wait(); err != nil {
			stats.Failed = int(failed.Load())
			stats.Indexed = int(indexed.Load())
			return stats, err
		}

		var all []vector.Point
		for _, pts := range results {
			all = append(all, pts...)
		}
		if len(all) > 0 {
			if err := v.vectors.Upsert(ctx, all); err != nil {
				return stats, err
			}
		}
		indexed.Add(int64(len(all)))
		stats.Documents += len(all)
		logger.Info("vector indexing progress", "indexed", indexed.Load(), "skipped", failed.Load(), "total", n)
		if opts.Progress != nil {
			opts.Progress(min(start+wave, n), n)
		}
	}

	stats.Indexed = int(indexed.Load())
	stats.Failed = int(failed.Load())
	stats.Duration = time.Since(stats.StartedAt)
	logger.Info("vector indexing completed", "indexed", stats.Indexed, "skipped", stats.Failed, "duration", stats.Duration)

	ev := events.IndexCompleted{
		RunID:       stats.RunID,
		Kind:        events.KindVectors,
		Documents:   stats.Documents,
		Indexed:     stats.Indexed,
		Failed:      stats.Failed,
		DurationMS:  stats.Duration.Milliseconds(),
		CompletedAt: time.Now().UTC(),
	}
	if err := v.publisher.Publish(ctx, ev.RunID, ev); err != nil {
		logger.Warn("failed to publish index completion", "error", err)
	}
	return stats, nil
}

func (v *VectorIndexer) embedPages(ctx context.Context, pool *ants.Pool, pages []store.LinkedPage) ([]vector.Point, int, error) {
	points := make([]vector.Point, len(pages))
	ok := make([]bool, len(pages))
	var skipped atomic.Int64
	var wg sync.WaitGroup
	for i, p := range pages {
		text := strings.TrimSpace(p.Title + " " + p.Description + " " + p.Body)
		if text == "" {
			continue
		}
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			vec, err := v.embedder.Embed(ctx, text)
			if err != nil {
				skipped.Add(1)
				v.logger.Warn("embedding failed, page skipped", "page_id", p.ID, "url", p.URL, "error", err)
				return
			}
			points[i] = vector.Point{
				ID:     vector.PointID(p.URL),
				Vector: vec,
				Payload: vector.Payload{
					PageID:      p.ID,
					URL:         p.URL,
					Title:       p.Title,
					Description: p.Description,
					Content:     p.Body,
					Status:      p.StatusCode,
					InLinks:     p.InLinks,
					OutLinks:    p.OutLinks,
				},
			}
			ok[i] = true
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, int(skipped.Load()), fmt.Errorf("scheduling embedding: %w", err)
		}
	}
	wg.Wait()

	out := make([]vector.Point, 0, len(pages))
	for i := range points {
		if ok[i] {
			out = append(out, points[i])
		}
	}
	return out, int(skipped.Load()), ctx.Err()
}
