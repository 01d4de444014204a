package analytics

import "time"

type EventType string

const (
	EventSearch       EventType = "search"
	EventVectorSearch EventType = "vector_search"
	EventZeroResult   EventType = "zero_result"
)

// SearchEvent describes one answered search request.
type SearchEvent struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	QueryTerms []string  `json:"query_terms,omitempty"`
	Fuzzy      bool      `json:"fuzzy,omitempty"`
	TotalHits  int       `json:"total_hits"`
	Returned   int       `json:"returned"`
	LatencyMs  int64     `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}
