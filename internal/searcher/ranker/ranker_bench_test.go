package ranker

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/store"
)

func benchPostings(numDocs int) []store.PostingMatch {
	terms := []string{"search", "engine", "searching"}
	postings := make([]store.PostingMatch, 0, numDocs*len(terms))
	for i := range numDocs {
		for j, term := range terms {
			if (i+j)%3 == 0 {
				continue
			}
			postings = append(postings, store.PostingMatch{
				Posting: store.Posting{
					TermID:     int64(j + 1),
					DocumentID: int64(i + 1),
					Field:      "content",
					Frequency:  i%10 + 1,
					TFIDF:      float64(i%97) / 10,
				},
				Term: term,
			})
		}
	}
	return postings
}

func BenchmarkAggregateAndRank(b *testing.B) {
	query := []string{"search", "engine"}
	for _, numDocs := range []int{100, 1000, 10000} {
		postings := benchPostings(numDocs)
		for _, fuzzy := range []bool{false, true} {
			b.Run(fmt.Sprintf("docs_%d/fuzzy_%t", numDocs, fuzzy), func(b *testing.B) {
				b.ReportAllocs()
				for b.Loop() {
					scores := Aggregate(postings, query, DefaultBoosts(), fuzzy)
					_, _ = Rank(scores, 0.1, 10)
				}
			})
		}
	}
}

// BenchmarkRankTopKVersusSort compares the bounded heap with a full sort.
func BenchmarkRankTopKVersusSort(b *testing.B) {
	scores := Aggregate(benchPostings(10000), []string{"search", "engine"}, DefaultBoosts(), false)
	b.Run("limit_10", func(b *testing.B) {
		for b.Loop() {
			_, _ = Rank(scores, 0, 10)
		}
	})
	b.Run("unbounded", func(b *testing.B) {
		for b.Loop() {
			_, _ = Rank(scores, 0, 0)
		}
	})
}
