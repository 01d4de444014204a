// Package index holds the in-memory term model of one reindex run: term
// frequencies per document and field, and corpus-wide document frequencies.
package index

import (
	"math"
	"sort"
)

// DocTerms is the term frequencies of one document, per field.
type DocTerms struct {
	DocID  int64
	Fields map[string]map[string]int
}

// Batch is the output of tokenising one page of documents. A Batch is
// built by a single goroutine.
type Batch struct {
	Docs    []DocTerms
	DocFreq map[string]map[int64]struct{}
}

func NewBatch(capacity int) *Batch {
	return &Batch{
		Docs:    make([]DocTerms, 0, capacity),
		DocFreq: make(map[string]map[int64]struct{}),
	}
}

// Add records a document. all is the token stream of the whole document and
// drives document frequency; fields maps each indexed field to its tokens.
func (b *Batch) Add(docID int64, all []string, fields map[string][]string) {
	dt := DocTerms{DocID: docID, Fields: make(map[string]map[string]int, len(fields))}
	for field, tokens := range fields {
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		if len(tf) > 0 {
			dt.Fields[field] = tf
		}
	}
	for _, tok := range all {
		docs, ok := b.DocFreq[tok]
		if !ok {
			docs = make(map[int64]struct{})
			b.DocFreq[tok] = docs
		}
		docs[docID] = struct{}{}
	}
	b.Docs = append(b.Docs, dt)
}

// Model is the merged view of all batches of a run. Merge is a set union, so
// the order batches are merged in does not change the result.
type Model struct {
	docs    map[int64]DocTerms
	docFreq map[string]map[int64]struct{}
}

func NewModel() *Model {
	return &Model{
		docs:    make(map[int64]DocTerms),
		docFreq: make(map[string]map[int64]struct{}),
	}
}

func (m *Model) Merge(b *Batch) {
	for _, d := range b.Docs {
		m.docs[d.DocID] = d
	}
	for term, docs := range b.DocFreq {
		dst, ok := m.docFreq[term]
		if !ok {
			dst = make(map[int64]struct{}, len(docs))
			m.docFreq[term] = dst
		}
		for id := range docs {
			dst[id] = struct{}{}
		}
	}
}

func (m *Model) DocFreq(term string) int {
	return len(m.docFreq[term])
}

func (m *Model) Documents() int { return len(m.docs) }

func (m *Model) Terms() int { return len(m.docFreq) }

// ScoredPosting is a posting ready to persist, keyed by term text.
type ScoredPosting struct {
	Term       string
	DocumentID int64
	Field      string
	Frequency  int
	TFIDF      float64
}

// TFIDF is f * ln(n/df).
func TFIDF(f, n, df int) float64 {
	if df <= 0 || n <= 0 {
		return 0
	}
	return float64(f) * math.Log(float64(n)/float64(df))
}

// Score computes every posting against a fixed corpus size n. The result is
// ordered by document, field and term.
func (m *Model) Score(n int) []ScoredPosting {
	ids := make([]int64, 0, len(m.docs))
	total := 0
	for id, d := range m.docs {
		ids = append(ids, id)
		for _, tf := range d.Fields {
			total += len(tf)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]ScoredPosting, 0, total)
	for _, id := range ids {
		d := m.docs[id]
		fields := make([]string, 0, len(d.Fields))
		for f := range d.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, field := range fields {
			tf := d.Fields[field]
			terms := make([]string, 0, len(tf))
			for t := range tf {
				terms = append(terms, t)
			}
			sort.Strings(terms)
			for _, term := range terms {
				f := tf[term]
				out = append(out, ScoredPosting{
					Term:       term,
					DocumentID: id,
					Field:      field,
					Frequency:  f,
					TFIDF:      TFIDF(f, n, m.DocFreq(term)),
				})
			}
		}
	}
	return out
}
