// Package consumer reads reindex requests from Kafka and starts the
// matching indexing run through the tracker, so runs triggered by the
// crawler obey the same one-at-a-time rule as runs started over HTTP.
package consumer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/events"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/kafka"
)

// Starter is satisfied by *indexer.Tracker.
type Starter interface {
	Start(kind string, fn indexer.RunFunc) error
}

// IndexConsumer wraps a Kafka consumer to drive the indexing runs.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Run(ctx)
}

// HandleReindexRequest returns a handler that starts jobs[event.Kind]. An
// empty kind means a TF-IDF run. Requests arriving while a run is active
// are dropped, as are requests for kinds with no job.
func HandleReindexRequest(tracker Starter, jobs map[string]indexer.RunFunc) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return kafka.JSONHandler(func(ctx context.Context, ev events.ReindexRequested) error {
		kind := ev.Kind
		if kind == "" {
			kind = events.KindTFIDF
		}
		job, ok := jobs[kind]
		if !ok {
			logger.Warn("reindex request for unknown kind dropped", "kind", kind, "requested_by", ev.RequestedBy)
			return nil
		}

		err := tracker.Start(kind, job)
		switch {
		case err == nil:
			logger.Info("reindex started from request", "kind", kind, "requested_by", ev.RequestedBy)
			return nil
		case errors.Is(err, apperrors.ErrRunInProgress):
			logger.Info("reindex request skipped, run in progress", "kind", kind, "requested_by", ev.RequestedBy)
			return nil
		default:
			return err
		}
	})
}
