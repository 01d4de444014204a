package index

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batchOf(docs map[int64][]string) *Batch {
	b := NewBatch(len(docs))
	for id, toks := range docs {
		b.Add(id, toks, map[string][]string{"content": toks})
	}
	return b
}

func TestMergeIsOrderIndependent(t *testing.T) {
	b1 := batchOf(map[int64][]string{1: {"fast", "search", "engine"}})
	b2 := batchOf(map[int64][]string{2: {"fast", "car", "engine"}, 3: {"search", "results"}})

	forward := NewModel()
	forward.Merge(b1)
	forward.Merge(b2)
	backward := NewModel()
	backward.Merge(b2)
	backward.Merge(b1)

	assert.Equal(t, forward.Score(3), backward.Score(3))
	assert.Equal(t, 2, forward.DocFreq("engine"))
	assert.Equal(t, 1, forward.DocFreq("car"))
	assert.Equal(t, 5, forward.Terms())
	assert.Equal(t, 3, forward.Documents())
}

func TestDuplicateDocumentCountedOnce(t *testing.T) {
	m := NewModel()
	m.Merge(batchOf(map[int64][]string{1: {"go"}}))
	m.Merge(batchOf(map[int64][]string{1: {"go"}}))
	assert.Equal(t, 1, m.DocFreq("go"))
}

func TestScoreExactTFIDF(t *testing.T) {
	b := NewBatch(2)
	b.Add(1, []string{"go", "go", "go", "rust"}, map[string][]string{"content": {"go", "go", "go", "rust"}})
	b.Add(2, []string{"rust"}, map[string][]string{"content": {"rust"}})
	m := NewModel()
	m.Merge(b)

	postings := m.Score(4)
	require.Len(t, postings, 3)
	byKey := map[string]ScoredPosting{}
	for _, p := range postings {
		byKey[p.Term+"/"+string(rune('0'+p.DocumentID))] = p
	}
	assert.Equal(t, 3, byKey["go/1"].Frequency)
	assert.Equal(t, 3*math.Log(4.0/1.0), byKey["go/1"].TFIDF)
	assert.Equal(t, 1*math.Log(4.0/2.0), byKey["rust/2"].TFIDF)
}

func TestFieldLocalFrequencyCorpusDF(t *testing.T) {
	b := NewBatch(1)
	all := []string{"search", "search", "engine"}
	b.Add(7, all, map[string][]string{
		"content": all,
		"title":   {"search"},
	})
	m := NewModel()
	m.Merge(b)

	postings := m.Score(2)
	require.Len(t, postings, 3)
	assert.Equal(t, "content", postings[0].Field)
	assert.Equal(t, "title", postings[2].Field)
	assert.Equal(t, 1, postings[2].Frequency)
	assert.Equal(t, math.Log(2.0), postings[2].TFIDF)
}

func TestTFIDFGuards(t *testing.T) {
	assert.Zero(t, TFIDF(3, 0, 1))
	assert.Zero(t, TFIDF(3, 10, 0))
	assert.Zero(t, TFIDF(3, 5, 5))
}
