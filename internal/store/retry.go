package store

import (
	"context"
	"errors"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/resilience"
)

// RetryingStore retries transient failures of the wrapped store with
// exponential backoff. ErrNotFound is never retried.
type RetryingStore struct {
	next MetadataStore
	cfg  resilience.RetryConfig
}

func NewRetryingStore(next MetadataStore, cfg config.RetryConfig) *RetryingStore {
	return &RetryingStore{
		next: next,
		cfg: resilience.RetryConfig{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: cfg.InitialDelay,
			MaxDelay:     cfg.MaxDelay,
			Retryable: func(err error) bool {
				return !errors.Is(err, ErrNotFound)
			},
		},
	}
}

func call[T any](ctx context.Context, r *RetryingStore, op string, fn func() (T, error)) (T, error) {
	var out T
	err := resilience.Retry(ctx, "store."+op, r.cfg, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (r *RetryingStore) CountDocuments(ctx context.Context) (int, error) {
	return call(ctx, r, "count_documents", func() (int, error) { return r.next.CountDocuments(ctx) })
}

func (r *RetryingStore) GetDocumentsPage(ctx context.Context, offset, limit int) ([]Document, error) {
	return call(ctx, r, "get_documents_page", func() ([]Document, error) {
		return r.next.GetDocumentsPage(ctx, offset, limit)
	})
}

func (r *RetryingStore) FindTermByText(ctx context.Context, text string) (Term, error) {
	t, err := call(ctx, r, "find_term", func() (Term, error) { return r.next.FindTermByText(ctx, text) })
	if errors.Is(err, ErrNotFound) {
		return Term{}, ErrNotFound
	}
	return t, err
}

func (r *RetryingStore) InsertTerm(ctx context.Context, text string) (int64, error) {
	return call(ctx, r, "insert_term", func() (int64, error) { return r.next.InsertTerm(ctx, text) })
}

func (r *RetryingStore) UpsertPosting(ctx context.Context, p Posting) error {
	return resilience.Retry(ctx, "store.upsert_posting", r.cfg, func() error {
		return r.next.UpsertPosting(ctx, p)
	})
}

func (r *RetryingStore) FindTermsByTexts(ctx context.Context, texts []string) ([]Term, error) {
	return call(ctx, r, "find_terms", func() ([]Term, error) { return r.next.FindTermsByTexts(ctx, texts) })
}

func (r *RetryingStore) FindTermsContaining(ctx context.Context, substrings []string) ([]Term, error) {
	return call(ctx, r, "find_terms_containing", func() ([]Term, error) {
		return r.next.FindTermsContaining(ctx, substrings)
	})
}

func (r *RetryingStore) GetPostings(ctx context.Context, termIDs []int64, fields []string) ([]PostingMatch, error) {
	return call(ctx, r, "get_postings", func() ([]PostingMatch, error) {
		return r.next.GetPostings(ctx, termIDs, fields)
	})
}

func (r *RetryingStore) GetDocumentsByIDs(ctx context.Context, ids []int64, withBody bool) ([]Document, error) {
	return call(ctx, r, "get_documents", func() ([]Document, error) {
		return r.next.GetDocumentsByIDs(ctx, ids, withBody)
	})
}

func (r *RetryingStore) GetLinkedPagesPage(ctx context.Context, offset, limit int) ([]LinkedPage, error) {
	return call(ctx, r, "get_linked_pages", func() ([]LinkedPage, error) {
		return r.next.GetLinkedPagesPage(ctx, offset, limit)
	})
}

// Ping is not retried so that health probes report the current state.
func (r *RetryingStore) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}
