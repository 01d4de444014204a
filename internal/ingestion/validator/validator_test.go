package validator

import (
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePageTrims(t *testing.T) {
	p := store.Page{URL: "  https://go.dev/doc  ", Title: " Docs ", Content: "body"}
	require.NoError(t, ValidatePage(&p))
	assert.Equal(t, "https://go.dev/doc", p.URL)
	assert.Equal(t, "Docs", p.Title)
}

func TestValidatePageReportsEveryField(t *testing.T) {
	p := store.Page{
		URL:        "ftp://example.com/file",
		Title:      strings.Repeat("t", maxTitleLength+1),
		StatusCode: 42,
	}
	err := ValidatePage(&p)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "url")
	assert.Contains(t, verr.Fields, "title")
	assert.Contains(t, verr.Fields, "status_code")
	assert.NotContains(t, verr.Fields, "content")
}

func TestValidatePageRequiresText(t *testing.T) {
	p := store.Page{URL: "https://example.com"}
	var verr *ValidationError
	require.ErrorAs(t, ValidatePage(&p), &verr)
	assert.Equal(t, map[string]string{"content": "one of title, description or content is required"}, verr.Fields)
}

func TestValidatePageMissingURL(t *testing.T) {
	p := store.Page{Title: "x"}
	err := ValidatePage(&p)
	require.Error(t, err)
	assert.Equal(t, "url: url is required", err.Error())
}
