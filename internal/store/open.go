package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/postgres"
)

// Open connects to the backend named by cfg.Store.Driver and applies the
// schema.
func Open(ctx context.Context, cfg *config.Config) (*SQLStore, error) {
	var (
		s   *SQLStore
		err error
	)
	switch cfg.Store.Driver {
	case "postgres":
		var client *postgres.Client
		client, err = postgres.New(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		s = NewPostgres(client)
	case "sqlite":
		s, err = OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrating %s store: %w", cfg.Store.Driver, err)
	}
	slog.Info("metadata store ready", "driver", cfg.Store.Driver)
	return s, nil
}
