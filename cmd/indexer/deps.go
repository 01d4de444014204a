package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/events"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/store"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/vector"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// deps holds everything the subcommands share. close releases it in reverse
// order of acquisition.
type deps struct {
	cfg      *config.Config
	metrics  *metrics.Metrics
	sqlStore *store.SQLStore
	store    store.MetadataStore
	events   events.Publisher
	pipeline *indexer.Pipeline
	vectors  *indexer.VectorIndexer
	checker  *health.Checker
	closers  []func() error
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

func buildDeps(ctx context.Context, configPath string) (*deps, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	d := &deps{
		cfg:     cfg,
		metrics: metrics.New(prometheus.DefaultRegisterer),
		events:  events.Nop{},
		checker: health.NewChecker(),
	}

	d.sqlStore, err = store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, d.sqlStore.Close)
	d.store = store.NewRetryingStore(d.sqlStore, cfg.Retry)
	d.checker.Register("store", true, d.store.Ping)

	if cfg.Kafka.Enabled {
		p := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete, false)
		d.closers = append(d.closers, p.Close)
		d.events = p
		slog.Info("publishing index completions", "topic", cfg.Kafka.Topics.IndexComplete)
	}

	d.pipeline = indexer.NewPipeline(d.store, d.events, d.metrics)

	if cfg.Vector.Enabled {
		qdrantStore, err := vector.NewQdrantStore(cfg.Vector)
		if err != nil {
			d.close()
			return nil, err
		}
		d.closers = append(d.closers, qdrantStore.Close)
		embedClient := embedding.NewHTTPClient(cfg.Embedding, cfg.Vector.VectorSize, d.metrics)
		d.vectors = indexer.NewVectorIndexer(d.store, embedClient, qdrantStore, cfg.Vector, d.events)
		d.checker.Register("qdrant", false, qdrantStore.Ping)
		d.checker.Register("embedding", false, embedClient.Ping)
	}
	return d, nil
}

// jobs returns the runnable kinds; vectors is absent when disabled.
func (d *deps) jobs() map[string]indexer.RunFunc {
	opts := indexer.OptionsFromConfig(d.cfg.Indexer)
	jobs := map[string]indexer.RunFunc{
		events.KindTFIDF: d.pipeline.Job(opts),
	}
	if d.vectors != nil {
		jobs[events.KindVectors] = d.vectors.Job(opts)
	}
	return jobs
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
}
