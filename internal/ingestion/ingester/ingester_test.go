package ingester

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/events"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	values []any
}

func (r *recordingPublisher) Publish(_ context.Context, key string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	r.values = append(r.values, value)
	return nil
}

func newStore(t *testing.T) *store.SQLStore {
	t.Helper()
	s, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestIngestStoresPage(t *testing.T) {
	s := newStore(t)
	ing := New(s, nil, "test")

	resp, err := ing.Ingest(context.Background(), store.Page{URL: "https://a.example", Title: "A", Content: "fast cars"})
	require.NoError(t, err)
	assert.Equal(t, "stored", resp.Status)
	assert.NotZero(t, resp.PageID)

	n, err := s.CountDocuments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = ing.Ingest(context.Background(), store.Page{URL: "not a url", Content: "x"})
	var verr *validator.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestImportSkipsBadLinesAndRequestsReindex(t *testing.T) {
	s := newStore(t)
	pub := &recordingPublisher{}
	ing := New(s, pub, "importer")

	input := strings.Join([]string{
		`{"url":"https://a.example","title":"A","content":"fast cars","links":["https://b.example"]}`,
		`{"url":"https://b.example","title":"B","content":"slow cars"}`,
		``,
		`{not json}`,
		`{"url":"","content":"orphan"}`,
		`{"url":"https://c.example","title":"C","content":"gone","status_code":404}`,
	}, "\n")

	summary, err := ing.Import(context.Background(), strings.NewReader(input), true)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Read)
	assert.Equal(t, 3, summary.Stored)
	require.Len(t, summary.Rejected, 2)
	assert.Equal(t, 4, summary.Rejected[0].Line)
	assert.Equal(t, 5, summary.Rejected[1].Line)
	assert.True(t, summary.ReindexRequested)

	n, err := s.CountDocuments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, pub.values, 1)
	assert.Equal(t, events.KindTFIDF, pub.keys[0])
	ev, ok := pub.values[0].(events.ReindexRequested)
	require.True(t, ok)
	assert.Equal(t, "importer", ev.RequestedBy)
}

func TestImportWithoutReindex(t *testing.T) {
	pub := &recordingPublisher{}
	ing := New(newStore(t), pub, "importer")

	summary, err := ing.Import(context.Background(), strings.NewReader(`{"url":"https://a.example","content":"x"}`), false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Stored)
	assert.False(t, summary.ReindexRequested)
	assert.Empty(t, pub.values)
}
