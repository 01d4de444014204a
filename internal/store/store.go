// Package store is the metadata store shared by the indexer and the searcher:
// crawled pages, the term dictionary and TF-IDF postings.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("store: not found")

// Posting fields. Documents are indexed under FieldContent by default; title
// and description postings are optional.
const (
	FieldContent     = "content"
	FieldTitle       = "title"
	FieldDescription = "description"
)

// IndexableStatus is the crawl status a page must have to be indexed.
const IndexableStatus = 200

type Document struct {
	ID          int64  `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Body        string `json:"body,omitempty"`
}

type Term struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// Posting is unique per (TermID, DocumentID, Field).
type Posting struct {
	TermID     int64
	DocumentID int64
	Field      string
	Frequency  int
	TFIDF      float64
}

// PostingMatch is a posting joined with its term text.
type PostingMatch struct {
	Posting
	Term string
}

// LinkedPage is a document with its crawl status and link counts.
type LinkedPage struct {
	Document
	StatusCode int
	InLinks    int
	OutLinks   int
}

// Page is a crawled page as written by the crawler or the import command.
type Page struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	StatusCode  int      `json:"status_code"`
	Links       []string `json:"links,omitempty"`
}

type MetadataStore interface {
	// CountDocuments counts indexable documents.
	CountDocuments(ctx context.Context) (int, error)
	// GetDocumentsPage returns indexable documents ordered by id.
	GetDocumentsPage(ctx context.Context, offset, limit int) ([]Document, error)
	FindTermByText(ctx context.Context, text string) (Term, error)
	// InsertTerm returns the id of text, creating the term if absent.
	InsertTerm(ctx context.Context, text string) (int64, error)
	UpsertPosting(ctx context.Context, p Posting) error
	FindTermsByTexts(ctx context.Context, texts []string) ([]Term, error)
	// FindTermsContaining matches terms containing any of the substrings,
	// case-insensitively.
	FindTermsContaining(ctx context.Context, substrings []string) ([]Term, error)
	GetPostings(ctx context.Context, termIDs []int64, fields []string) ([]PostingMatch, error)
	GetDocumentsByIDs(ctx context.Context, ids []int64, withBody bool) ([]Document, error)
	GetLinkedPagesPage(ctx context.Context, offset, limit int) ([]LinkedPage, error)
	Ping(ctx context.Context) error
}
