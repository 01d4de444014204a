// Package ranker aggregates TF-IDF postings into per-document scores and
// orders them. The final score is the average boosted posting score plus a
// bonus proportional to how many distinct query terms the document matched.
package ranker

import (
	"slices"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/store"
)

// CoverageBonusWeight scales term coverage in the final score.
const CoverageBonusWeight = 0.5

// Boosts holds one multiplier per indexed field. A zero multiplier means
// unset and counts as 1.
type Boosts struct {
	Title       float64 `json:"title"`
	Description float64 `json:"description"`
	Content     float64 `json:"content"`
}

func DefaultBoosts() Boosts {
	return Boosts{Title: 1, Description: 1, Content: 1}
}

func (b Boosts) For(field string) float64 {
	var v float64
	switch field {
	case store.FieldTitle:
		v = b.Title
	case store.FieldDescription:
		v = b.Description
	case store.FieldContent:
		v = b.Content
	}
	if v == 0 {
		return 1
	}
	return v
}

// TermDetail is the contribution of one stored term to a document.
type TermDetail struct {
	Frequency int      `json:"frequency"`
	Score     float64  `json:"score"`
	Fields    []string `json:"fields"`
}

type DocScore struct {
	DocumentID int64
	TotalScore float64
	// TermCount is the number of postings aggregated.
	TermCount int
	MaxScore  float64
	AvgScore  float64
	// Coverage is the share of distinct query terms the document matched.
	Coverage     float64
	Score        float64
	MatchedTerms []string
	TermDetails  map[string]*TermDetail
}

// Aggregate folds postings into one DocScore per document. queryTerms must
// be distinct. With fuzzy set, a stored term matches every query term it
// contains; otherwise it matches only the identical query term. Results are
// in document id order.
func Aggregate(postings []store.PostingMatch, queryTerms []string, boosts Boosts, fuzzy bool) []*DocScore {
	docs := make(map[int64]*DocScore)
	matched := make(map[int64]map[string]struct{})
	termMatches := make(map[string][]string)

	for _, p := range postings {
		d, ok := docs[p.DocumentID]
		if !ok {
			d = &DocScore{DocumentID: p.DocumentID, TermDetails: make(map[string]*TermDetail)}
			docs[p.DocumentID] = d
			matched[p.DocumentID] = make(map[string]struct{})
		}
		score := p.TFIDF * boosts.For(p.Field)
		d.TotalScore += score
		d.TermCount++
		if d.TermCount == 1 || score > d.MaxScore {
			d.MaxScore = score
		}

		td, ok := d.TermDetails[p.Term]
		if !ok {
			td = &TermDetail{}
			d.TermDetails[p.Term] = td
		}
		td.Frequency += p.Frequency
		td.Score += score
		if !slices.Contains(td.Fields, p.Field) {
			td.Fields = append(td.Fields, p.Field)
		}

		qs, ok := termMatches[p.Term]
		if !ok {
			qs = matchQueryTerms(p.Term, queryTerms, fuzzy)
			termMatches[p.Term] = qs
		}
		for _, q := range qs {
			matched[p.DocumentID][q] = struct{}{}
		}
	}

	out := make([]*DocScore, 0, len(docs))
	for id, d := range docs {
		for q := range matched[id] {
			d.MatchedTerms = append(d.MatchedTerms, q)
		}
		sort.Strings(d.MatchedTerms)
		for _, td := range d.TermDetails {
			sort.Strings(td.Fields)
		}
		if len(queryTerms) > 0 {
			d.Coverage = float64(len(d.MatchedTerms)) / float64(len(queryTerms))
		}
		if d.TermCount > 0 {
			d.AvgScore = d.TotalScore / float64(d.TermCount)
		}
		d.Score = FinalScore(d.AvgScore, d.Coverage)
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out
}

func FinalScore(avg, coverage float64) float64 {
	return avg + CoverageBonusWeight*coverage
}

// Rank drops documents scoring below minScore, sorts the rest by score
// descending then document id ascending, and truncates to limit. It
// returns the number of documents that passed the filter.
func Rank(scores []*DocScore, minScore float64, limit int) ([]*DocScore, int) {
	kept := make([]*DocScore, 0, len(scores))
	for _, d := range scores {
		if d.Score >= minScore {
			kept = append(kept, d)
		}
	}
	total := len(kept)
	if limit > 0 && total > limit {
		return topK(kept, limit), total
	}
	sort.Slice(kept, func(i, j int) bool { return better(kept[i], kept[j]) })
	return kept, total
}

func matchQueryTerms(term string, queryTerms []string, fuzzy bool) []string {
	var out []string
	lower := strings.ToLower(term)
	for _, q := range queryTerms {
		if q == term || (fuzzy && strings.Contains(lower, strings.ToLower(q))) {
			out = append(out, q)
		}
	}
	return out
}
