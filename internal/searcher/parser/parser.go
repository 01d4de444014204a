// Package parser turns HTTP query parameters into search options.
package parser

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/errors"
)

// Request is a parsed search request.
type Request struct {
	Query   string
	Options executor.Options
}

// Parse reads q, limit, min_score, fuzzy, fields, snippets and
// boost.<field>. Camel-case aliases (minScore, fuzzyMatch,
// includeSnippets) are accepted. limit is capped at maxResults.
func Parse(values url.Values, defaults executor.Options, maxResults int) (*Request, error) {
	query := strings.TrimSpace(values.Get("q"))
	if query == "" {
		return nil, apperrors.Invalid("query parameter 'q' is required")
	}
	opts := defaults
	opts.Fields = append([]string(nil), defaults.Fields...)

	if s := values.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return nil, apperrors.Invalid("limit must be a positive integer")
		}
		opts.Limit = n
	}
	if maxResults > 0 && opts.Limit > maxResults {
		opts.Limit = maxResults
	}

	if s := first(values, "min_score", "minScore"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f < 0 {
			return nil, apperrors.Invalid("min_score must be a non-negative number")
		}
		opts.MinScore = f
	}

	var err error
	if opts.FuzzyMatch, err = parseBool(values, opts.FuzzyMatch, "fuzzy", "fuzzyMatch"); err != nil {
		return nil, err
	}
	if opts.IncludeSnippets, err = parseBool(values, opts.IncludeSnippets, "snippets", "includeSnippets"); err != nil {
		return nil, err
	}

	if s := values.Get("fields"); s != "" {
		fields, err := parseFields(s)
		if err != nil {
			return nil, err
		}
		opts.Fields = fields
	}

	for field, dst := range map[string]*float64{
		store.FieldTitle:       &opts.Boost.Title,
		store.FieldDescription: &opts.Boost.Description,
		store.FieldContent:     &opts.Boost.Content,
	} {
		s := values.Get("boost." + field)
		if s == "" {
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f <= 0 {
			return nil, apperrors.Invalid("boost.%s must be a positive number", field)
		}
		*dst = f
	}

	return &Request{Query: query, Options: opts}, nil
}

func parseFields(s string) ([]string, error) {
	var fields []string
	seen := make(map[string]bool)
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		switch f {
		case store.FieldContent, store.FieldTitle, store.FieldDescription:
		default:
			return nil, apperrors.Invalid("unknown field %q", f)
		}
		seen[f] = true
		fields = append(fields, f)
	}
	if len(fields) == 0 {
		return nil, apperrors.Invalid("fields must name at least one field")
	}
	return fields, nil
}

func parseBool(values url.Values, def bool, keys ...string) (bool, error) {
	s := first(values, keys...)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, apperrors.Invalid("%s must be a boolean", keys[0])
	}
	return b, nil
}

func first(values url.Values, keys ...string) string {
	for _, k := range keys {
		if v := values.Get(k); v != "" {
			return v
		}
	}
	return ""
}
