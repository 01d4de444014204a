// Package indexer rebuilds the TF-IDF postings from the documents in the
// metadata store, and the vector collection from the same pages.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/events"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/store"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/metrics"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	BatchSize        int
	ParallelBatches  int
	ParallelUpserts  int
	ProgressInterval int
	// Fields lists the posting fields to write. "content" postings use the
	// whole document; "title" and "description" use that field alone.
	Fields []string
	// Progress, if set, is called after each persisted chunk.
	Progress func(done, total int)
}

func OptionsFromConfig(cfg config.IndexerConfig) Options {
	return Options{
		BatchSize:        cfg.BatchSize,
		ParallelBatches:  cfg.ParallelBatches,
		ParallelUpserts:  cfg.ParallelUpserts,
		ProgressInterval: cfg.ProgressInterval,
		Fields:           append([]string(nil), cfg.Fields...),
	}
}

func (o Options) validate() error {
	if o.BatchSize <= 0 || o.ParallelBatches <= 0 || o.ParallelUpserts <= 0 {
		return apperrors.Invalid("batch size and parallelism must be positive")
	}
	if len(o.Fields) == 0 {
		return apperrors.Invalid("at least one field must be indexed")
	}
	for _, f := range o.Fields {
		switch f {
		case store.FieldContent, store.FieldTitle, store.FieldDescription:
		default:
			return apperrors.Invalid("unknown index field %q", f)
		}
	}
	return nil
}

// RunStats summarises a run. Indexed counts successful posting upserts.
type RunStats struct {
	RunID     string        `json:"run_id"`
	Documents int           `json:"documents"`
	Terms     int           `json:"terms"`
	Indexed   int           `json:"indexed"`
	Failed    int           `json:"failed"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

type Pipeline struct {
	store     store.MetadataStore
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewPipeline builds a pipeline. publisher and m may be nil.
func NewPipeline(s store.MetadataStore, publisher events.Publisher, m *metrics.Metrics) *Pipeline {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Pipeline{
		store:     s,
		publisher: publisher,
		metrics:   m,
		logger:    slog.Default().With("component", "indexer"),
	}
}

// Reindex recomputes and upserts every posting. Failing to count or fetch
// documents aborts the run; individual upsert failures are logged, counted
// in RunStats.Failed and skipped.
func (p *Pipeline) Reindex(ctx context.Context, opts Options) (*RunStats, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	stats := &RunStats{RunID: uuid.NewString(), StartedAt: time.Now()}
	logger := p.logger.With("run_id", stats.RunID)

	// n is fixed for the whole run; documents added meanwhile do not change
	// the denominator.
	n, err := p.store.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}
	logger.Info("reindex started",
		"documents", n,
		"batch_size", opts.BatchSize,
		"parallel_batches", opts.ParallelBatches,
		"parallel_upserts", opts.ParallelUpserts,
		"fields", opts.Fields,
	)
	if n == 0 {
		stats.Duration = time.Since(stats.StartedAt)
		return stats, nil
	}

	model, err := p.collect(ctx, n, opts)
	if err != nil {
		return nil, err
	}
	stats.Documents = model.Documents()
	stats.Terms = model.Terms()

	postings := model.Score(n)
	logger.Info("term model built", "documents", stats.Documents, "terms", stats.Terms, "postings", len(postings))

	indexed, failed, err := p.persist(ctx, logger, postings, opts)
	stats.Indexed = indexed
	stats.Failed = failed
	stats.Duration = time.Since(stats.StartedAt)
	if err != nil {
		return stats, fmt.Errorf("persisting postings: %w", err)
	}
	p.metrics.ReindexCompleted(stats.Duration)
	logger.Info("reindex completed",
		"indexed", stats.Indexed,
		"failed", stats.Failed,
		"duration", stats.Duration,
	)

	p.publish(ctx, logger, events.IndexCompleted{
		RunID:       stats.RunID,
		Kind:        events.KindTFIDF,
		Documents:   stats.Documents,
		Terms:       stats.Terms,
		Indexed:     stats.Indexed,
		Failed:      stats.Failed,
		DurationMS:  stats.Duration.Milliseconds(),
		CompletedAt: time.Now().UTC(),
	})
	return stats, nil
}

// collect fetches and tokenises documents in waves of ParallelBatches pages.
// Each wave completes before the next starts.
func (p *Pipeline) collect(ctx context.Context, n int, opts Options) (*index.Model, error) {
	model := index.NewModel()
	wave := opts.BatchSize * opts.ParallelBatches
	for start := 0; start < n; start += wave {
		var offsets []int
		for off := start; off < start+wave && off < n; off += opts.BatchSize {
			offsets = append(offsets, off)
		}
		batches := make([]*index.Batch, len(offsets))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.ParallelBatches)
		for i, off := range offsets {
			g.Go(func() error {
				docs, err := p.store.GetDocumentsPage(gctx, off, opts.BatchSize)
				if err != nil {
					return fmt.Errorf("fetching batch at offset %d: %w", off, err)
				}
				batches[i] = tokenizeBatch(docs, opts.Fields)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for _, b := range batches {
			model.Merge(b)
		}
		p.logger.Debug("wave tokenised", "offset", start, "batches", len(offsets), "documents", model.Documents())
	}
	return model, nil
}

func tokenizeBatch(docs []store.Document, fields []string) *index.Batch {
	b := index.NewBatch(len(docs))
	for _, d := range docs {
		all := tokenizer.Tokenize(d.Title + " " + d.Description + " " + d.Body)
		byField := make(map[string][]string, len(fields))
		for _, f := range fields {
			switch f {
			case store.FieldContent:
				byField[f] = all
			case store.FieldTitle:
				byField[f] = tokenizer.Tokenize(d.Title)
			case store.FieldDescription:
				byField[f] = tokenizer.Tokenize(d.Description)
			}
		}
		b.Add(d.ID, all, byField)
	}
	return b
}

// persist upserts postings on a pool of ParallelUpserts workers, dispatching
// at most ParallelUpserts tasks at a time.
func (p *Pipeline) persist(ctx context.Context, logger *slog.Logger, postings []index.ScoredPosting, opts Options) (int, int, error) {
	pool, err := ants.NewPool(opts.ParallelUpserts)
	if err != nil {
		return 0, 0, fmt.Errorf("creating upsert pool: %w", err)
	}
	defer pool.Release()

	terms := NewTermCache(p.store)
	var indexed, failed atomic.Int64
	total := len(postings)
	interval := opts.ProgressInterval
	if interval <= 0 {
		interval = 1000
	}
	nextLog := interval

	for start := 0; start < total; start += opts.ParallelUpserts {
		if err := ctx.Err(); err != nil {
			return int(indexed.Load()), int(failed.Load()), err
		}
		end := min(start+opts.ParallelUpserts, total)

		var wg sync.WaitGroup
		for _, sp := range postings[start:end] {
			wg.Add(1)
			task := func() {
				defer wg.Done()
				if err := p.upsert(ctx, terms, sp); err != nil {
					failed.Add(1)
					p.metrics.PostingUpserted(false)
					logger.Warn("posting upsert failed", "term", sp.Term, "doc_id", sp.DocumentID, "field", sp.Field, "error", err)
					return
				}
				indexed.Add(1)
				p.metrics.PostingUpserted(true)
			}
			if err := pool.Submit(task); err != nil {
				wg.Done()
				failed.Add(1)
				p.metrics.PostingUpserted(false)
				logger.Warn("posting upsert not scheduled", "term", sp.Term, "doc_id", sp.DocumentID, "error", err)
			}
		}
		wg.Wait()

		done := end
		if done >= nextLog || done == total {
			logger.Info("indexing progress",
				"processed", done,
				"total", total,
				"indexed", indexed.Load(),
				"failed", failed.Load(),
				"terms_resolved", terms.Len(),
			)
			for nextLog <= done {
				nextLog += interval
			}
		}
		if opts.Progress != nil {
			opts.Progress(done, total)
		}
	}
	return int(indexed.Load()), int(failed.Load()), nil
}

func (p *Pipeline) upsert(ctx context.Context, terms *TermCache, sp index.ScoredPosting) error {
	termID, err := terms.Resolve(ctx, sp.Term)
	if err != nil {
		return err
	}
	return p.store.UpsertPosting(ctx, store.Posting{
		TermID:     termID,
		DocumentID: sp.DocumentID,
		Field:      sp.Field,
		Frequency:  sp.Frequency,
		TFIDF:      sp.TFIDF,
	})
}

func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, ev events.IndexCompleted) {
	if err := p.publisher.Publish(ctx, ev.RunID, ev); err != nil {
		logger.Warn("failed to publish index completion", "error", err)
	}
}
