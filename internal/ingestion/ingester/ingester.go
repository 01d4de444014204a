// Package ingester validates crawled pages, writes them to the metadata
// store and, after bulk imports, asks the indexer for a fresh run.
package ingester

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/events"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/store"
)

// maxLineBytes bounds one JSON line of an import; escaped content can be
// several times the stored size.
const maxLineBytes = 8 << 20

// PageWriter is satisfied by *store.SQLStore.
type PageWriter interface {
	PutPage(ctx context.Context, p store.Page) (int64, error)
}

type Ingester struct {
	pages     PageWriter
	requests  events.Publisher
	requester string
	logger    *slog.Logger
}

// New builds an Ingester. requests may be nil, in which case imports never
// trigger a reindex.
func New(pages PageWriter, requests events.Publisher, requester string) *Ingester {
	return &Ingester{
		pages:     pages,
		requests:  requests,
		requester: requester,
		logger:    slog.Default().With("component", "ingester"),
	}
}

// Ingest validates and stores a single page, replacing any page with the
// same URL. Validation failures are returned as *validator.ValidationError.
func (i *Ingester) Ingest(ctx context.Context, p store.Page) (*ingestion.IngestResponse, error) {
	if err := validator.ValidatePage(&p); err != nil {
		return nil, err
	}
	id, err := i.pages.PutPage(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("storing page: %w", err)
	}
	return &ingestion.IngestResponse{
		PageID:     id,
		URL:        p.URL,
		Status:     "stored",
		IngestedAt: time.Now().UTC(),
	}, nil
}

// Import reads one page per line from r. Invalid lines are recorded and
// skipped; a store failure stops the import. When at least one page was
// stored and reindex is set, a reindex request is published.
func (i *Ingester) Import(ctx context.Context, r io.Reader, reindex bool) (*ingestion.ImportSummary, error) {
	summary := &ingestion.ImportSummary{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Read++

		var p store.Page
		if err := json.Unmarshal(raw, &p); err != nil {
			summary.Rejected = append(summary.Rejected, ingestion.LineError{Line: line, Error: "invalid JSON: " + err.Error()})
			continue
		}
		if err := validator.ValidatePage(&p); err != nil {
			summary.Rejected = append(summary.Rejected, ingestion.LineError{Line: line, URL: p.URL, Error: err.Error()})
			continue
		}
		if _, err := i.pages.PutPage(ctx, p); err != nil {
			return summary, fmt.Errorf("line %d: storing page: %w", line, err)
		}
		summary.Stored++
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("reading import: %w", err)
	}

	i.logger.Info("import finished",
		"read", summary.Read,
		"stored", summary.Stored,
		"rejected", len(summary.Rejected),
	)

	if reindex && summary.Stored > 0 && i.requests != nil {
		if err := i.RequestReindex(ctx, events.KindTFIDF); err != nil {
			return summary, err
		}
		summary.ReindexRequested = true
	}
	return summary, nil
}

// RequestReindex publishes a ReindexRequested event for kind.
func (i *Ingester) RequestReindex(ctx context.Context, kind string) error {
	if i.requests == nil {
		return nil
	}
	ev := events.ReindexRequested{
		Kind:        kind,
		RequestedBy: i.requester,
		RequestedAt: time.Now().UTC(),
	}
	if err := i.requests.Publish(ctx, kind, ev); err != nil {
		return fmt.Errorf("publishing reindex request: %w", err)
	}
	i.logger.Info("reindex requested", "kind", kind, "requested_by", i.requester)
	return nil
}
