package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seed(t *testing.T, s *SQLStore, pages ...Page) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(pages))
	for _, p := range pages {
		id, err := s.PutPage(context.Background(), p)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestDocumentsOnlyIndexable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ids := seed(t, s,
		Page{URL: "https://a.example", Title: "A", Content: "alpha"},
		Page{URL: "https://b.example", Title: "B", Content: "beta", StatusCode: 404},
		Page{URL: "https://c.example", Title: "C", Content: "gamma"},
	)

	n, err := s.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	page, err := s.GetDocumentsPage(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[0], page[0].ID)
	assert.Equal(t, "gamma", page[1].Body)

	page, err = s.GetDocumentsPage(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[2], page[0].ID)
}

func TestPutPageReplacesByURL(t *testing.T) {
	s := newTestStore(t)
	first := seed(t, s, Page{URL: "https://a.example", Title: "old"})
	second := seed(t, s, Page{URL: "https://a.example", Title: "new"})
	assert.Equal(t, first, second)

	docs, err := s.GetDocumentsByIDs(context.Background(), first, false)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "new", docs[0].Title)
}

func TestInsertTermIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1, err := s.InsertTerm(ctx, "search")
	require.NoError(t, err)
	id2, err := s.InsertTerm(ctx, "search")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	term, err := s.FindTermByText(ctx, "search")
	require.NoError(t, err)
	assert.Equal(t, id1, term.ID)

	_, err = s.FindTermByText(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindTerms(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, text := range []string{"search", "research", "engine", "100%_done"} {
		_, err := s.InsertTerm(ctx, text)
		require.NoError(t, err)
	}

	exact, err := s.FindTermsByTexts(ctx, []string{"search", "nope"})
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, "search", exact[0].Text)

	fuzzy, err := s.FindTermsContaining(ctx, []string{"SEARCH"})
	require.NoError(t, err)
	texts := []string{}
	for _, tm := range fuzzy {
		texts = append(texts, tm.Text)
	}
	assert.ElementsMatch(t, []string{"search", "research"}, texts)

	literal, err := s.FindTermsContaining(ctx, []string{"%_"})
	require.NoError(t, err)
	require.Len(t, literal, 1)
	assert.Equal(t, "100%_done", literal[0].Text)

	empty, err := s.FindTermsByTexts(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPostingsUpsertAndFilterByField(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ids := seed(t, s, Page{URL: "https://a.example", Title: "Search", Content: "search search"})
	termID, err := s.InsertTerm(ctx, "search")
	require.NoError(t, err)

	require.NoError(t, s.UpsertPosting(ctx, Posting{TermID: termID, DocumentID: ids[0], Field: FieldContent, Frequency: 1, TFIDF: 0.1}))
	require.NoError(t, s.UpsertPosting(ctx, Posting{TermID: termID, DocumentID: ids[0], Field: FieldContent, Frequency: 2, TFIDF: 0.2}))
	require.NoError(t, s.UpsertPosting(ctx, Posting{TermID: termID, DocumentID: ids[0], Field: FieldTitle, Frequency: 1, TFIDF: 0.3}))

	content, err := s.GetPostings(ctx, []int64{termID}, []string{FieldContent})
	require.NoError(t, err)
	require.Len(t, content, 1)
	assert.Equal(t, 2, content[0].Frequency)
	assert.InDelta(t, 0.2, content[0].TFIDF, 1e-12)
	assert.Equal(t, "search", content[0].Term)

	both, err := s.GetPostings(ctx, []int64{termID}, []string{FieldContent, FieldTitle})
	require.NoError(t, err)
	assert.Len(t, both, 2)
}

func TestGetDocumentsByIDsWithoutBody(t *testing.T) {
	s := newTestStore(t)
	ids := seed(t, s, Page{URL: "https://a.example", Title: "T", Description: "D", Content: "body text"})

	docs, err := s.GetDocumentsByIDs(context.Background(), ids, false)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Empty(t, docs[0].Body)
	assert.Equal(t, "D", docs[0].Description)

	docs, err = s.GetDocumentsByIDs(context.Background(), ids, true)
	require.NoError(t, err)
	assert.Equal(t, "body text", docs[0].Body)
}

func TestLinkedPagesCountsLinks(t *testing.T) {
	s := newTestStore(t)
	seed(t, s,
		Page{URL: "https://a.example", Links: []string{"https://b.example", "https://c.example"}},
		Page{URL: "https://b.example", Links: []string{"https://a.example"}},
		Page{URL: "https://c.example", Links: []string{"https://a.example", "https://b.example"}},
	)

	pages, err := s.GetLinkedPagesPage(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, pages, 3)

	byURL := map[string]LinkedPage{}
	for _, p := range pages {
		byURL[p.URL] = p
	}
	assert.Equal(t, 2, byURL["https://a.example"].InLinks)
	assert.Equal(t, 2, byURL["https://a.example"].OutLinks)
	assert.Equal(t, 2, byURL["https://b.example"].InLinks)
	assert.Equal(t, 1, byURL["https://b.example"].OutLinks)
	assert.Equal(t, 200, byURL["https://c.example"].StatusCode)
}

func TestRebindDollar(t *testing.T) {
	assert.Equal(t, "a = $1 AND b = ANY($2)", rebindDollar("a = ? AND b = ANY(?)"))
}

type flakyStore struct {
	MetadataStore
	failures int
	calls    int
}

func (f *flakyStore) CountDocuments(ctx context.Context) (int, error) {
	f.calls++
	if f.calls <= f.failures {
		return 0, errors.New("connection reset")
	}
	return 7, nil
}

func (f *flakyStore) FindTermByText(ctx context.Context, text string) (Term, error) {
	f.calls++
	return Term{}, ErrNotFound
}

func TestRetryingStore(t *testing.T) {
	cfg := config.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

	flaky := &flakyStore{failures: 2}
	n, err := NewRetryingStore(flaky, cfg).CountDocuments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, 3, flaky.calls)

	down := &flakyStore{failures: 10}
	_, err = NewRetryingStore(down, cfg).CountDocuments(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 3, down.calls)

	missing := &flakyStore{}
	_, err = NewRetryingStore(missing, cfg).FindTermByText(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, missing.calls)
}

func TestAnalyticsSnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.LatestSnapshot(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveSnapshot(ctx, []byte(`{"total_searches":1}`), base))
	require.NoError(t, s.SaveSnapshot(ctx, []byte(`{"total_searches":2}`), base.Add(time.Minute)))

	latest, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_searches":2}`, string(latest))

	all, err := s.ListSnapshots(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.JSONEq(t, `{"total_searches":1}`, string(all[1]))
}

func TestOpenSQLiteFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = "sqlite"
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "nested", "search.db")

	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.CountDocuments(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	cfg.Store.Driver = "mysql"
	_, err = Open(context.Background(), cfg)
	assert.Error(t, err)
}
