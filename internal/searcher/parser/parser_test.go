package parser

import (
	"net/url"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	req, err := Parse(url.Values{"q": {" fast search "}}, executor.DefaultOptions(), 100)
	require.NoError(t, err)
	assert.Equal(t, "fast search", req.Query)
	assert.Equal(t, executor.DefaultOptions(), req.Options)
}

func TestParseAllOptions(t *testing.T) {
	v := url.Values{
		"q":             {"engine"},
		"limit":         {"25"},
		"minScore":      {"0.4"},
		"fuzzy":         {"true"},
		"fields":        {"content, Title,content"},
		"snippets":      {"false"},
		"boost.title":   {"2.5"},
		"boost.content": {"0.5"},
	}
	req, err := Parse(v, executor.DefaultOptions(), 100)
	require.NoError(t, err)
	o := req.Options
	assert.Equal(t, 25, o.Limit)
	assert.Equal(t, 0.4, o.MinScore)
	assert.True(t, o.FuzzyMatch)
	assert.False(t, o.IncludeSnippets)
	assert.Equal(t, []string{store.FieldContent, store.FieldTitle}, o.Fields)
	assert.Equal(t, 2.5, o.Boost.Title)
	assert.Equal(t, 0.5, o.Boost.Content)
	assert.Equal(t, 1.0, o.Boost.Description)
}

func TestParseCapsLimit(t *testing.T) {
	req, err := Parse(url.Values{"q": {"x"}, "limit": {"5000"}}, executor.DefaultOptions(), 100)
	require.NoError(t, err)
	assert.Equal(t, 100, req.Options.Limit)
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := map[string]url.Values{
		"missing q":      {},
		"blank q":        {"q": {"   "}},
		"zero limit":     {"q": {"x"}, "limit": {"0"}},
		"text limit":     {"q": {"x"}, "limit": {"ten"}},
		"negative score": {"q": {"x"}, "min_score": {"-1"}},
		"bad bool":       {"q": {"x"}, "fuzzy": {"maybe"}},
		"unknown field":  {"q": {"x"}, "fields": {"body"}},
		"empty fields":   {"q": {"x"}, "fields": {" , "}},
		"zero boost":     {"q": {"x"}, "boost.title": {"0"}},
	}
	for name, v := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(v, executor.DefaultOptions(), 100)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}
