// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Store, Redis, Kafka, Indexer, Search, Vector, etc.).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig    `yaml:"server"`
	IndexerServer ServerConfig    `yaml:"indexerServer"`
	Store         StoreConfig     `yaml:"store"`
	Postgres      PostgresConfig  `yaml:"postgres"`
	SQLite        SQLiteConfig    `yaml:"sqlite"`
	Redis         RedisConfig     `yaml:"redis"`
	Kafka         KafkaConfig     `yaml:"kafka"`
	Indexer       IndexerConfig   `yaml:"indexer"`
	Search        SearchConfig    `yaml:"search"`
	Vector        VectorConfig    `yaml:"vector"`
	Embedding     EmbeddingConfig `yaml:"embedding"`
	Retry         RetryConfig     `yaml:"retry"`
	Logging       LoggingConfig   `yaml:"logging"`
	Metrics       MetricsConfig   `yaml:"metrics"`
	Auth          AuthConfig      `yaml:"auth"`
	Analytics     AnalyticsConfig `yaml:"analytics"`
	API           APIConfig       `yaml:"api"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// StoreConfig selects the metadata store backend.
type StoreConfig struct {
	// Driver is either "postgres" or "sqlite".
	Driver string `yaml:"driver"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `yaml:"connMaxIdleTime"`
	ConnectTimeout  time.Duration `yaml:"connectTimeout"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
	if p.ConnectTimeout > 0 {
		secs := int(p.ConnectTimeout.Seconds())
		if secs < 1 {
			secs = 1
		}
		dsn += fmt.Sprintf(" connect_timeout=%d", secs)
	}
	return dsn
}

// SQLiteConfig holds the embedded store location. An empty Path opens an
// in-memory database.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexComplete   string `yaml:"indexComplete"`
	ReindexRequests string `yaml:"reindexRequests"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// IndexerConfig controls the reindex pipeline's batch sizes and concurrency.
type IndexerConfig struct {
	BatchSize        int      `yaml:"batchSize"`
	ParallelBatches  int      `yaml:"parallelBatches"`
	ParallelUpserts  int      `yaml:"parallelUpserts"`
	ProgressInterval int      `yaml:"progressInterval"`
	Fields           []string `yaml:"fields"`
}

// SearchConfig controls query limits and result caching.
type SearchConfig struct {
	DefaultLimit int           `yaml:"defaultLimit"`
	MaxResults   int           `yaml:"maxResults"`
	CacheTTL     time.Duration `yaml:"cacheTTL"`
	// CacheBackend is "memory", "redis" or "none".
	CacheBackend string `yaml:"cacheBackend"`
}

// VectorConfig holds the Qdrant connection and collection settings.
type VectorConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Host       string  `yaml:"host"`
	Port       int     `yaml:"port"`
	APIKey     string  `yaml:"apiKey"`
	UseTLS     bool    `yaml:"useTLS"`
	Collection string  `yaml:"collection"`
	VectorSize int     `yaml:"vectorSize"`
	Distance   string  `yaml:"distance"`
	MinScore   float64 `yaml:"minScore"`
}

// EmbeddingConfig points at the external embedding service.
type EmbeddingConfig struct {
	URL       string        `yaml:"url"`
	Timeout   time.Duration `yaml:"timeout"`
	CacheSize int           `yaml:"cacheSize"`
}

// RetryConfig controls retries against the metadata store.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"maxAttempts"`
	InitialDelay time.Duration `yaml:"initialDelay"`
	MaxDelay     time.Duration `yaml:"maxDelay"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// AuthConfig guards the indexer control plane. An empty APIKey disables the
// check.
type AuthConfig struct {
	APIKey string `yaml:"apiKey"`
}

// AnalyticsConfig controls search analytics in the searcher. A zero
// SnapshotInterval disables snapshot persistence.
type AnalyticsConfig struct {
	Enabled          bool          `yaml:"enabled"`
	BufferSize       int           `yaml:"bufferSize"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// APIConfig shapes the public search API. An empty AllowOrigins disables
// CORS and a zero RateLimit disables rate limiting.
type APIConfig struct {
	AllowOrigins []string      `yaml:"allowOrigins"`
	RateLimit    int           `yaml:"rateLimit"`
	RateWindow   time.Duration `yaml:"rateWindow"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with defaults suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		IndexerServer: ServerConfig{
			Port:            8081,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Store: StoreConfig{Driver: "postgres"},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "froxy",
			User:            "froxy",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 30 * time.Second,
			ConnectTimeout:  time.Second,
		},
		SQLite: SQLiteConfig{Path: "data/search.db"},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "tfidf-search",
			Topics: KafkaTopics{
				IndexComplete:   "index.complete",
				ReindexRequests: "index.requests",
				AnalyticsEvents: "analytics-events",
			},
		},
		Indexer: IndexerConfig{
			BatchSize:        500,
			ParallelBatches:  2,
			ParallelUpserts:  50,
			ProgressInterval: 1000,
			Fields:           []string{"content"},
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			MaxResults:   100,
			CacheTTL:     5 * time.Minute,
			CacheBackend: "memory",
		},
		Vector: VectorConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "page_content_embeddings",
			VectorSize: 768,
			Distance:   "cosine",
			MinScore:   0.2,
		},
		Embedding: EmbeddingConfig{
			URL:       "http://localhost:5050",
			Timeout:   time.Minute,
			CacheSize: 1000,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		Analytics: AnalyticsConfig{
			Enabled:          true,
			BufferSize:       10000,
			SnapshotInterval: 5 * time.Minute,
		},
		API: APIConfig{
			AllowOrigins: []string{"*"},
			RateLimit:    120,
			RateWindow:   time.Minute,
		},
	}
}

// Validate reports configuration values that would make a service unusable.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("store.driver must be postgres or sqlite, got %q", c.Store.Driver))
	}
	if c.Indexer.BatchSize <= 0 {
		errs = append(errs, errors.New("indexer.batchSize must be positive"))
	}
	if c.Indexer.ParallelBatches <= 0 {
		errs = append(errs, errors.New("indexer.parallelBatches must be positive"))
	}
	if c.Indexer.ParallelUpserts <= 0 {
		errs = append(errs, errors.New("indexer.parallelUpserts must be positive"))
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxResults < c.Search.DefaultLimit {
		errs = append(errs, errors.New("search.defaultLimit must be positive and not exceed search.maxResults"))
	}
	switch c.Search.CacheBackend {
	case "memory", "redis", "none":
	default:
		errs = append(errs, fmt.Errorf("search.cacheBackend must be memory, redis or none, got %q", c.Search.CacheBackend))
	}
	if c.API.RateLimit > 0 && c.API.RateWindow <= 0 {
		errs = append(errs, errors.New("api.rateWindow must be positive when api.rateLimit is set"))
	}
	if c.Vector.Enabled && c.Vector.VectorSize <= 0 {
		errs = append(errs, errors.New("vector.vectorSize must be positive"))
	}
	return errors.Join(errs...)
}

// applyEnvOverrides reads TS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	setInt("TS_SERVER_PORT", &cfg.Server.Port)
	setInt("TS_INDEXER_PORT", &cfg.IndexerServer.Port)
	setInt("TS_METRICS_PORT", &cfg.Metrics.Port)
	setString("TS_STORE_DRIVER", &cfg.Store.Driver)
	setString("TS_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("TS_POSTGRES_PORT", &cfg.Postgres.Port)
	setString("TS_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setString("TS_POSTGRES_USER", &cfg.Postgres.User)
	setString("TS_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setString("TS_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	setString("TS_SQLITE_PATH", &cfg.SQLite.Path)
	setString("TS_REDIS_ADDR", &cfg.Redis.Addr)
	setString("TS_REDIS_PASSWORD", &cfg.Redis.Password)
	if v := os.Getenv("TS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	setInt("TS_INDEXER_BATCH_SIZE", &cfg.Indexer.BatchSize)
	setInt("TS_INDEXER_PARALLEL_BATCHES", &cfg.Indexer.ParallelBatches)
	setInt("TS_INDEXER_PARALLEL_UPSERTS", &cfg.Indexer.ParallelUpserts)
	setString("TS_SEARCH_CACHE_BACKEND", &cfg.Search.CacheBackend)
	if v := os.Getenv("TS_SEARCH_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Search.CacheTTL = d
		}
	}
	if v := os.Getenv("TS_QDRANT_HOST"); v != "" {
		cfg.Vector.Host = v
		cfg.Vector.Enabled = true
	}
	setString("TS_QDRANT_API_KEY", &cfg.Vector.APIKey)
	setString("TS_EMBEDDING_URL", &cfg.Embedding.URL)
	setString("TS_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("TS_LOGGING_FORMAT", &cfg.Logging.Format)
	setString("TS_API_KEY", &cfg.Auth.APIKey)
	setInt("TS_API_RATE_LIMIT", &cfg.API.RateLimit)
	if v := os.Getenv("TS_API_ALLOW_ORIGINS"); v != "" {
		cfg.API.AllowOrigins = strings.Split(v, ",")
	}
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
