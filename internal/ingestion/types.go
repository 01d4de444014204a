// Package ingestion accepts crawled pages into the metadata store, one at a
// time over HTTP or in bulk from a JSON-lines export.
package ingestion

import "time"

// IngestResponse is returned after a page is stored.
type IngestResponse struct {
	PageID     int64     `json:"page_id"`
	URL        string    `json:"url"`
	Status     string    `json:"status"`
	IngestedAt time.Time `json:"ingested_at"`
}

// LineError reports a rejected line of an import.
type LineError struct {
	Line  int    `json:"line"`
	URL   string `json:"url,omitempty"`
	Error string `json:"error"`
}

// ImportSummary describes a finished bulk import.
type ImportSummary struct {
	Read     int         `json:"read"`
	Stored   int         `json:"stored"`
	Rejected []LineError `json:"rejected,omitempty"`
	// ReindexRequested is set when a reindex request was published
	// afterwards.
	ReindexRequested bool `json:"reindex_requested"`
}
