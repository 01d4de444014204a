package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/events"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/store"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/vector"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/redis"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "store", cfg.Store.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	sqlStore, err := store.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open metadata store", "error", err)
		os.Exit(1)
	}
	defer sqlStore.Close()
	metadata := store.NewRetryingStore(sqlStore, cfg.Retry)

	checker := health.NewChecker()
	checker.Register("store", true, metadata.Ping)

	var redisClient *pkgredis.Client
	var cacheStore cache.Store
	switch cfg.Search.CacheBackend {
	case "redis":
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, falling back to in-memory cache", "error", err)
			cacheStore = cache.NewMemoryStore(nil)
			break
		}
		defer redisClient.Close()
		cacheStore = cache.NewRedisStore(redisClient)
		checker.Register("redis", false, redisClient.Ping)
	case "memory":
		cacheStore = cache.NewMemoryStore(nil)
	}
	var queryCache *cache.QueryCache
	if cacheStore != nil {
		queryCache = cache.New(cacheStore, cfg.Search.CacheTTL, m)
		slog.Info("search cache enabled", "backend", cfg.Search.CacheBackend, "ttl", cfg.Search.CacheTTL)
	} else {
		slog.Info("search cache disabled")
	}

	exec := executor.New(metadata, queryCache, m)

	var producers []*kafka.Producer
	defer func() {
		for _, p := range producers {
			p.Close()
		}
	}()

	agg := analytics.NewAggregator()
	var collector *analytics.Collector
	var history analytics.SnapshotLister
	var snapshotsDone <-chan struct{}
	if cfg.Analytics.Enabled {
		var publisher events.Publisher = agg
		if cfg.Kafka.Enabled {
			p := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, true)
			producers = append(producers, p)
			publisher = p

			analyticsConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents,
				cfg.Kafka.ConsumerGroup+"-analytics", analytics.HandleEvent(agg))
			go func() {
				if err := analyticsConsumer.Run(ctx); err != nil {
					slog.Error("analytics consumer stopped", "error", err)
				}
			}()
		}
		collector = analytics.NewCollector(publisher, cfg.Analytics.BufferSize)
		collector.Start(ctx)
		defer collector.Close()

		if cfg.Analytics.SnapshotInterval > 0 {
			snapshots := aggregator.NewStore(sqlStore)
			if err := snapshots.Restore(ctx, agg); err != nil {
				slog.Warn("analytics restore failed", "error", err)
			}
			snapshotsDone = snapshots.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
			history = snapshots
		}
	}

	// Every replica consumes completions under its own group so each one
	// drops its cache.
	if cfg.Kafka.Enabled {
		group := fmt.Sprintf("%s-searcher-%s", cfg.Kafka.ConsumerGroup, uuid.NewString())
		indexConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete, group,
			kafka.JSONHandler(func(ctx context.Context, ev events.IndexCompleted) error {
				agg.RecordIndexRun(ev)
				if ev.Kind != events.KindTFIDF {
					return nil
				}
				if err := exec.InvalidateCache(ctx); err != nil {
					return fmt.Errorf("invalidating cache after run %s: %w", ev.RunID, err)
				}
				slog.Info("search cache invalidated", "run_id", ev.RunID, "indexed", ev.Indexed)
				return nil
			}))
		go func() {
			if err := indexConsumer.Run(ctx); err != nil {
				slog.Error("index completion consumer stopped", "error", err)
			}
		}()
	}

	defaults := executor.DefaultOptions()
	defaults.Limit = cfg.Search.DefaultLimit
	h := handler.New(exec, queryCache, metadata, collector, handler.Config{
		Defaults:        defaults,
		MaxResults:      cfg.Search.MaxResults,
		VectorThreshold: cfg.Vector.MinScore,
	})

	if cfg.Vector.Enabled {
		qdrantStore, err := vector.NewQdrantStore(cfg.Vector)
		if err != nil {
			slog.Error("failed to create qdrant client", "error", err)
			os.Exit(1)
		}
		defer qdrantStore.Close()
		embedClient := embedding.NewHTTPClient(cfg.Embedding, cfg.Vector.VectorSize, m)
		h.WithVectorSearch(embedding.NewCached(embedClient, cfg.Embedding.CacheSize), vector.NewSearcher(qdrantStore, m))
		checker.Register("qdrant", false, qdrantStore.Ping)
		checker.Register("embedding", false, embedClient.Ping)
		slog.Info("vector search enabled", "collection", cfg.Vector.Collection)
	}

	analyticsH := analytics.NewHandler(agg, history)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /api/v1/analytics/history", analyticsH.History)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var limiter *ratelimit.Limiter
	if cfg.API.RateLimit > 0 {
		limiter = ratelimit.New(cfg.API.RateLimit, cfg.API.RateWindow)
		defer limiter.Close()
	}

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.AccessLog,
		middleware.Metrics(m),
		middleware.CORS(middleware.DefaultCORSConfig(cfg.API.AllowOrigins)),
		middleware.RateLimit(limiter),
		middleware.Timeout(cfg.Server.WriteTimeout),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port, m)
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if shutdownMetrics != nil {
			shutdownMetrics(shutdownCtx)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	if snapshotsDone != nil {
		<-snapshotsDone
	}
	slog.Info("search service stopped")
}
