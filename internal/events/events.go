// Package events defines the messages exchanged between the indexer and the
// searcher over Kafka.
package events

import (
	"context"
	"time"
)

const (
	KindTFIDF   = "tfidf"
	KindVectors = "vectors"
)

// IndexCompleted is published after every successful indexing run. The
// searcher drops its result cache when it sees one.
type IndexCompleted struct {
	RunID       string    `json:"run_id"`
	Kind        string    `json:"kind"`
	Documents   int       `json:"documents"`
	Terms       int       `json:"terms,omitempty"`
	Indexed     int       `json:"indexed"`
	Failed      int       `json:"failed"`
	DurationMS  int64     `json:"duration_ms"`
	CompletedAt time.Time `json:"completed_at"`
}

// ReindexRequested asks the indexer service to start a run, typically sent
// by the crawler after a crawl finishes.
type ReindexRequested struct {
	Kind        string    `json:"kind"`
	RequestedBy string    `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

type Publisher interface {
	Publish(ctx context.Context, key string, value any) error
}

// Nop discards events; it is used when Kafka is disabled.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
