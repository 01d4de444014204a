package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSnapshotStore(t *testing.T) *Store {
	t.Helper()
	db, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return NewStore(db)
}

func TestRestoreWithoutSnapshotIsNoop(t *testing.T) {
	s := newSnapshotStore(t)
	agg := analytics.NewAggregator()
	require.NoError(t, s.Restore(context.Background(), agg))
	assert.Zero(t, agg.Stats().TotalSearches)
}

func TestSaveListAndRestore(t *testing.T) {
	s := newSnapshotStore(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	agg := analytics.NewAggregator()
	agg.Record(analytics.SearchEvent{Type: analytics.EventSearch, Query: "go", TotalHits: 1})
	require.NoError(t, s.SaveSnapshot(ctx, agg.Stats()))
	now = now.Add(time.Minute)
	agg.Record(analytics.SearchEvent{Type: analytics.EventSearch, Query: "go", TotalHits: 1})
	require.NoError(t, s.SaveSnapshot(ctx, agg.Stats()))

	snaps, err := s.ListSnapshots(ctx, 10)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, int64(2), snaps[0].TotalSearches)
	assert.Equal(t, int64(1), snaps[1].TotalSearches)

	fresh := analytics.NewAggregator()
	require.NoError(t, s.Restore(ctx, fresh))
	assert.Equal(t, int64(2), fresh.Stats().TotalSearches)
}

func TestPeriodicSaveWritesFinalSnapshot(t *testing.T) {
	s := newSnapshotStore(t)
	agg := analytics.NewAggregator()
	agg.Record(analytics.SearchEvent{Type: analytics.EventSearch, Query: "final"})

	ctx, cancel := context.WithCancel(context.Background())
	done := s.StartPeriodicSave(ctx, agg, time.Hour)
	cancel()
	<-done

	latest, err := s.LatestSnapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(1), latest.TotalSearches)
}
