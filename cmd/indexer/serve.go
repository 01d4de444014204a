package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/handler"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/ingestion/ingester"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/middleware"
	"github.com/spf13/cobra"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the indexer control plane",
		Long: `serve exposes POST /api/v1/index, POST /api/v1/index/vectors,
GET /api/v1/index/status and POST /api/v1/pages, and starts runs requested
on the reindex Kafka topic.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), *configPath)
		},
	}
}

func serve(ctx context.Context, configPath string) error {
	d, err := buildDeps(ctx, configPath)
	if err != nil {
		return err
	}
	defer d.close()
	cfg := d.cfg
	slog.Info("starting indexer service", "port", cfg.IndexerServer.Port, "store", cfg.Store.Driver)

	tracker := indexer.NewTracker(ctx)
	jobs := d.jobs()

	if cfg.Kafka.Enabled {
		kc := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ReindexRequests,
			cfg.Kafka.ConsumerGroup+"-indexer", consumer.HandleReindexRequest(tracker, jobs))
		ic := consumer.New(kc)
		go func() {
			if err := ic.Start(ctx); err != nil {
				slog.Error("reindex consumer stopped", "error", err)
			}
		}()
	}

	mux := http.NewServeMux()
	handler.New(tracker, jobs).Register(mux)
	pages := ingesthandler.New(ingester.New(d.sqlStore, nil, "indexer-api"))
	mux.HandleFunc("POST /api/v1/pages", pages.Ingest)
	mux.HandleFunc("GET /health/live", d.checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", d.checker.ReadyHandler())

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.AccessLog,
		middleware.Metrics(d.metrics),
		middleware.APIKey(cfg.Auth.APIKey),
	)
	if cfg.Auth.APIKey == "" {
		slog.Warn("indexer API key not set, control plane is unauthenticated")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.IndexerServer.Port),
		Handler:      chain,
		ReadTimeout:  cfg.IndexerServer.ReadTimeout,
		WriteTimeout: cfg.IndexerServer.WriteTimeout,
	}

	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port, d.metrics)
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.IndexerServer.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if shutdownMetrics != nil {
			shutdownMetrics(shutdownCtx)
		}
	}()

	slog.Info("indexer service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("indexer server: %w", err)
	}

	// A cancelled run stops at its next store call; wait briefly for it.
	select {
	case <-tracker.Done():
	case <-time.After(cfg.IndexerServer.ShutdownTimeout):
		slog.Warn("indexing run still active at shutdown")
	}
	slog.Info("indexer service stopped")
	return nil
}
