// Package executor runs keyword searches: tokenise the query, resolve terms,
// fetch and aggregate postings, rank, then decorate the top documents with
// display fields and snippets. Whole responses are cached per query and
// options.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/snippet"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/store"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/metrics"
)

// Messages attached to empty responses.
const (
	MsgNoQueryTerms = "query contains no searchable terms"
	MsgNoTerms      = "no indexed terms match the query"
	MsgNoPostings   = "no documents contain the matched terms in the requested fields"
	MsgBelowMin     = "no documents scored at or above minScore"
)

type Options struct {
	Limit           int           `json:"limit"`
	MinScore        float64       `json:"minScore"`
	FuzzyMatch      bool          `json:"fuzzyMatch"`
	Fields          []string      `json:"fields"`
	IncludeSnippets bool          `json:"includeSnippets"`
	Boost           ranker.Boosts `json:"boost"`
}

func DefaultOptions() Options {
	return Options{
		Limit:           10,
		Fields:          []string{store.FieldContent},
		IncludeSnippets: true,
		Boost:           ranker.DefaultBoosts(),
	}
}

type Debugging struct {
	RawScore        float64                       `json:"rawScore"`
	AvgScore        float64                       `json:"avgScore"`
	MaxScore        float64                       `json:"maxScore"`
	TermCount       int                           `json:"termCount"`
	TermFrequencies map[string]int                `json:"termFrequencies"`
	TermDetails     map[string]*ranker.TermDetail `json:"termDetails"`
}

type Result struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	URL          string    `json:"url"`
	Score        float64   `json:"score"`
	MatchedTerms []string  `json:"matchedTerms"`
	TermCoverage float64   `json:"termCoverage"`
	Snippet      string    `json:"snippet,omitempty"`
	Debugging    Debugging `json:"debugging"`
}

type Metadata struct {
	Query        string `json:"query"`
	TotalResults int    `json:"totalResults"`
	TotalMatches int    `json:"totalMatches"`
	// SearchTime is in milliseconds. Cached responses keep the time of the
	// search that produced them.
	SearchTime float64  `json:"searchTime"`
	Terms      []string `json:"terms"`
	QueryTerms []string `json:"queryTerms"`
	Options    Options  `json:"options"`
	Message    string   `json:"message,omitempty"`
}

type Response struct {
	Results  []Result `json:"results"`
	Metadata Metadata `json:"metadata"`
}

type Executor struct {
	store   store.MetadataStore
	cache   *cache.QueryCache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New builds an executor. queryCache and m may be nil.
func New(s store.MetadataStore, queryCache *cache.QueryCache, m *metrics.Metrics) *Executor {
	return &Executor{
		store:   s,
		cache:   queryCache,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// Search answers query. The boolean reports whether the response came from
// the cache. Empty outcomes are successful responses carrying a Message.
func (e *Executor) Search(ctx context.Context, query string, opts Options) (*Response, bool, error) {
	start := time.Now()
	if e.cache == nil {
		resp, err := e.execute(ctx, query, opts)
		e.observe(resp, false, err, start)
		return resp, false, err
	}

	key, err := cache.Key(query, opts)
	if err != nil {
		return nil, false, err
	}
	data, hit, err := e.cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]byte, error) {
		resp, err := e.execute(ctx, query, opts)
		if err != nil {
			return nil, err
		}
		return json.Marshal(resp)
	})
	if err != nil {
		e.observe(nil, false, err, start)
		return nil, false, err
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false, fmt.Errorf("decoding cached response: %w", err)
	}
	e.observe(&resp, hit, nil, start)
	return &resp, hit, nil
}

// InvalidateCache drops every cached response.
func (e *Executor) InvalidateCache(ctx context.Context) error {
	if e.cache == nil {
		return nil
	}
	return e.cache.Invalidate(ctx)
}

func (e *Executor) execute(ctx context.Context, query string, opts Options) (*Response, error) {
	start := time.Now()
	log := logger.FromContext(ctx)
	queryTerms := distinct(tokenizer.Tokenize(query))
	resp := &Response{
		Results: []Result{},
		Metadata: Metadata{
			Query:      cache.NormalizeQuery(query),
			Terms:      []string{},
			QueryTerms: queryTerms,
			Options:    opts,
		},
	}
	finish := func(msg string) *Response {
		resp.Metadata.Message = msg
		resp.Metadata.SearchTime = float64(time.Since(start).Microseconds()) / 1000
		return resp
	}
	if len(queryTerms) == 0 {
		return finish(MsgNoQueryTerms), nil
	}

	var terms []store.Term
	var err error
	if opts.FuzzyMatch {
		terms, err = e.store.FindTermsContaining(ctx, queryTerms)
	} else {
		terms, err = e.store.FindTermsByTexts(ctx, queryTerms)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving query terms: %w", err)
	}
	if len(terms) == 0 {
		return finish(MsgNoTerms), nil
	}
	ids := make([]int64, len(terms))
	for i, t := range terms {
		ids[i] = t.ID
		resp.Metadata.Terms = append(resp.Metadata.Terms, t.Text)
	}
	sort.Strings(resp.Metadata.Terms)

	postings, err := e.store.GetPostings(ctx, ids, opts.Fields)
	if err != nil {
		return nil, fmt.Errorf("fetching postings: %w", err)
	}
	if len(postings) == 0 {
		return finish(MsgNoPostings), nil
	}

	scores := ranker.Aggregate(postings, queryTerms, opts.Boost, opts.FuzzyMatch)
	ranked, total := ranker.Rank(scores, opts.MinScore, opts.Limit)
	resp.Metadata.TotalMatches = len(scores)
	resp.Metadata.TotalResults = total
	if len(ranked) == 0 {
		return finish(MsgBelowMin), nil
	}

	docIDs := make([]int64, len(ranked))
	for i, d := range ranked {
		docIDs[i] = d.DocumentID
	}
	docs, err := e.store.GetDocumentsByIDs(ctx, docIDs, opts.IncludeSnippets)
	if err != nil {
		return nil, fmt.Errorf("fetching result documents: %w", err)
	}
	byID := make(map[int64]store.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}

	for _, d := range ranked {
		doc, ok := byID[d.DocumentID]
		if !ok {
			log.Warn("ranked document missing from store", "doc_id", d.DocumentID)
		}
		r := Result{
			ID:           d.DocumentID,
			Title:        doc.Title,
			Description:  doc.Description,
			URL:          doc.URL,
			Score:        d.Score,
			MatchedTerms: d.MatchedTerms,
			TermCoverage: d.Coverage,
			Debugging:    debugging(d),
		}
		if r.MatchedTerms == nil {
			r.MatchedTerms = []string{}
		}
		if opts.IncludeSnippets {
			r.Snippet = snippet.Generate(snippetSource(doc), storedTerms(d), snippet.DefaultMaxLength)
		}
		resp.Results = append(resp.Results, r)
	}

	finish("")
	log.Info("query executed",
		"query", query,
		"query_terms", queryTerms,
		"resolved_terms", len(terms),
		"postings", len(postings),
		"matches", resp.Metadata.TotalMatches,
		"results", len(resp.Results),
		"search_time_ms", resp.Metadata.SearchTime,
	)
	return resp, nil
}

func (e *Executor) observe(resp *Response, cached bool, err error, start time.Time) {
	outcome, n := "error", 0
	if err == nil {
		n = len(resp.Results)
		outcome = "hit"
		if n == 0 {
			outcome = "empty"
		}
	}
	e.metrics.ObserveSearch(outcome, cached, n, time.Since(start))
}

func debugging(d *ranker.DocScore) Debugging {
	freqs := make(map[string]int, len(d.TermDetails))
	for term, td := range d.TermDetails {
		freqs[term] = td.Frequency
	}
	return Debugging{
		RawScore:        d.TotalScore,
		AvgScore:        d.AvgScore,
		MaxScore:        d.MaxScore,
		TermCount:       d.TermCount,
		TermFrequencies: freqs,
		TermDetails:     d.TermDetails,
	}
}

func snippetSource(d store.Document) string {
	if d.Body != "" {
		return d.Body
	}
	return d.Description
}

func storedTerms(d *ranker.DocScore) []string {
	out := make([]string, 0, len(d.TermDetails))
	for t := range d.TermDetails {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func distinct(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
