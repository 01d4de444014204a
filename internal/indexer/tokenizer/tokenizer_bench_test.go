package tokenizer

import (
	"fmt"
	"strings"
	"testing"
)

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `Search engines crawl the web, store each page and build an index of
        the words it contains. A query is tokenized the same way, matched against the
        stored terms and ranked by how rare and how frequent each term is in a page.
        Pages that match more of the query words rank above pages that match few.`,
	"long": strings.Repeat(`Information retrieval systems normalize text into searchable
        terms by lowercasing, stripping punctuation and dropping stop words. Every term
        is weighted with TF-IDF so that words common to the whole corpus count for less
        than the distinctive ones. Caching layers keep repeated queries cheap. `, 20),
	"mixed": "Go の検索エンジン محرك البحث поисковая система 搜索引擎",
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for b.Loop() {
				_ = Tokenize(text)
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = Tokenize(text)
		}
	})
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	baseWord := "crawled pages indexed and ranked "
	for _, size := range []int{10, 100, 1000, 10000} {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for b.Loop() {
				_ = Tokenize(text)
			}
		})
	}
}
