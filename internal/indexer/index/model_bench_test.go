package index

import (
	"fmt"
	"strings"
	"testing"
)

func benchBatch(start, n int) *Batch {
	b := NewBatch(n)
	for i := range n {
		toks := strings.Fields(fmt.Sprintf("page%d crawl index rank term%d search engine results query", i%50, i%500))
		b.Add(int64(start+i), toks, map[string][]string{"content": toks, "title": toks[:2]})
	}
	return b
}

func BenchmarkModelMerge(b *testing.B) {
	batch := benchBatch(0, 500)
	b.ReportAllocs()
	for b.Loop() {
		m := NewModel()
		m.Merge(batch)
	}
}

func BenchmarkModelScore(b *testing.B) {
	for _, docs := range []int{1000, 10000} {
		m := NewModel()
		for start := 0; start < docs; start += 500 {
			m.Merge(benchBatch(start, 500))
		}
		b.Run(fmt.Sprintf("docs_%d", docs), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				_ = m.Score(docs)
			}
		})
	}
}
