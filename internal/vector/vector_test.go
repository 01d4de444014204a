package vector

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/errors"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func match(id string, score float64, in, out int) Match {
	return Match{ID: id, Score: score, Payload: Payload{InLinks: in, OutLinks: out}}
}

func ids(ms []Match) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}

func TestRankTieBreakByLinkAuthority(t *testing.T) {
	// 0.80 vs 0.79: gap 1.25% of 0.80, a tie.
	ranked := Rank([]Match{
		match("a", 0.80, 0, 1),
		match("b", 0.79, 3, 0),
	}, 10)
	assert.Equal(t, []string{"b", "a"}, ids(ranked))
}

func TestRankStrictScoreOutsideThreshold(t *testing.T) {
	// 0.80 vs 0.70: gap 12.5%, score wins regardless of links.
	ranked := Rank([]Match{
		match("a", 0.70, 100, 100),
		match("b", 0.80, 0, 0),
	}, 10)
	assert.Equal(t, []string{"b", "a"}, ids(ranked))
}

func TestRankInLinksWeighDouble(t *testing.T) {
	// authority a = 2*2+0 = 4, b = 2*1+1 = 3.
	ranked := Rank([]Match{
		match("b", 0.5, 1, 1),
		match("a", 0.5, 2, 0),
	}, 10)
	assert.Equal(t, []string{"a", "b"}, ids(ranked))
}

func TestRankTruncatesAndHandlesZeroScores(t *testing.T) {
	ranked := Rank([]Match{
		match("a", 0, 0, 0),
		match("b", 0, 1, 0),
		match("c", 0, 0, 5),
	}, 2)
	assert.Equal(t, []string{"c", "b"}, ids(ranked))
	assert.Empty(t, Rank(nil, 5))
}

func TestPointIDDeterministic(t *testing.T) {
	a := PointID("https://example.com/a")
	assert.Equal(t, a, PointID("https://example.com/a"))
	assert.NotEqual(t, a, PointID("https://example.com/b"))
	assert.Len(t, a, 36)
}

func TestPayloadRoundTripThroughValues(t *testing.T) {
	p := Payload{PageID: 9, URL: "https://x", Title: "T", Description: "D", Status: 200, InLinks: 3, OutLinks: 4}
	got := payloadFromValues(qdrant.NewValueMap(payloadMap(p)))
	assert.Equal(t, p, got)
	assert.Equal(t, "42", pointIDString(qdrant.NewIDNum(42)))
}

func TestParseDistance(t *testing.T) {
	d, err := parseDistance("Cosine")
	require.NoError(t, err)
	assert.Equal(t, qdrant.Distance_Cosine, d)
	_, err = parseDistance("hamming")
	assert.Error(t, err)
}

type fakeStore struct {
	matches   []Match
	err       error
	gotLimit  int
	gotStatus int
	gotThresh float64
}

func (f *fakeStore) EnsureCollection(context.Context, string, int, string) error { return nil }
func (f *fakeStore) Upsert(context.Context, []Point) error                     { return nil }
func (f *fakeStore) Ping(context.Context) error                                { return nil }
func (f *fakeStore) NearestNeighbors(_ context.Context, _ []float32, threshold float64, limit, status int) ([]Match, error) {
	f.gotLimit, f.gotStatus, f.gotThresh = limit, status, threshold
	return f.matches, f.err
}

func TestSearcherCandidateLimit(t *testing.T) {
	tests := []struct {
		limit, want int
	}{
		{10, 20},
		{100, 200},
		{300, 500},
		{0, 200},
	}
	for _, tt := range tests {
		fs := &fakeStore{}
		_, err := NewSearcher(fs, nil).Search(context.Background(), []float32{1}, -1, tt.limit)
		require.NoError(t, err)
		assert.Equal(t, tt.want, fs.gotLimit)
		assert.Equal(t, FetchedStatus, fs.gotStatus)
		assert.Equal(t, DefaultThreshold, fs.gotThresh)
	}
}

func TestSearcherThreshold(t *testing.T) {
	tests := map[string]struct {
		threshold, want float64
	}{
		"zero keeps every neighbor": {0, 0},
		"explicit":                  {0.5, 0.5},
		"negative uses default":     {-1, DefaultThreshold},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			fs := &fakeStore{}
			_, err := NewSearcher(fs, nil).Search(context.Background(), []float32{1}, tt.threshold, 10)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fs.gotThresh)
		})
	}
}

func TestSearcherRanksAndTruncates(t *testing.T) {
	fs := &fakeStore{matches: []Match{
		match("a", 0.9, 0, 0),
		match("b", 0.5, 0, 0),
		match("c", 0.895, 10, 0),
	}}
	got, err := NewSearcher(fs, nil).Search(context.Background(), []float32{1}, 0.3, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, ids(got))
}

func TestSearcherPropagatesUpstreamErrors(t *testing.T) {
	fs := &fakeStore{err: errors.New("unavailable")}
	_, err := NewSearcher(fs, nil).Search(context.Background(), []float32{1}, 0.2, 5)
	require.ErrorIs(t, err, apperrors.ErrUpstream)

	_, err = NewSearcher(fs, nil).Search(context.Background(), nil, 0.2, 5)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
