// Package validator checks crawled pages before they are stored and returns
// per-field error details.
package validator

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/store"
)

const (
	maxURLLength         = 2048
	maxTitleLength       = 1024
	maxDescriptionLength = 4096
	maxContentLength     = 1 << 20
	maxLinks             = 10000
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidatePage trims p in place and reports every field that breaks a
// limit. A zero status code is allowed and stored as 200.
func ValidatePage(p *store.Page) error {
	errs := make(map[string]string)

	p.URL = strings.TrimSpace(p.URL)
	switch {
	case p.URL == "":
		errs["url"] = "url is required"
	case len(p.URL) > maxURLLength:
		errs["url"] = fmt.Sprintf("url must be at most %d characters", maxURLLength)
	default:
		u, err := url.Parse(p.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs["url"] = "url must be an absolute http(s) URL"
		}
	}

	p.Title = strings.TrimSpace(p.Title)
	if len(p.Title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLength)
	}
	p.Description = strings.TrimSpace(p.Description)
	if len(p.Description) > maxDescriptionLength {
		errs["description"] = fmt.Sprintf("description must be at most %d characters", maxDescriptionLength)
	}
	if len(p.Content) > maxContentLength {
		errs["content"] = fmt.Sprintf("content must be at most %d bytes", maxContentLength)
	}
	if p.Title == "" && p.Description == "" && strings.TrimSpace(p.Content) == "" {
		errs["content"] = "one of title, description or content is required"
	}
	if p.StatusCode != 0 && (p.StatusCode < 100 || p.StatusCode > 599) {
		errs["status_code"] = "status_code must be a valid HTTP status"
	}
	if len(p.Links) > maxLinks {
		errs["links"] = fmt.Sprintf("at most %d links are allowed", maxLinks)
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
