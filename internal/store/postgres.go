package store

import (
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/postgres"
	"github.com/lib/pq"
)

type postgresDialect struct{}

// NewPostgres wraps an open pool; connection acquisition is bounded by the
// pool's connect timeout.
func NewPostgres(client *postgres.Client) *SQLStore {
	return &SQLStore{db: client.DB, dialect: postgresDialect{}}
}

func (postgresDialect) name() string { return "postgres" }

func (postgresDialect) rebind(q string) string { return rebindDollar(q) }

func (postgresDialect) inInt64(column string, values []int64) (string, []any) {
	return column + " = ANY(?)", []any{pq.Array(values)}
}

func (postgresDialect) inString(column string, values []string) (string, []any) {
	return column + " = ANY(?)", []any{pq.Array(values)}
}

func (postgresDialect) containsAny(column string, patterns []string) (string, []any) {
	return column + " ILIKE ANY(?)", []any{pq.Array(patterns)}
}

func (postgresDialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS pages (
			id BIGSERIAL PRIMARY KEY,
			url TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL DEFAULT '',
			meta_description TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			status_code INTEGER NOT NULL DEFAULT 200,
			crawled_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS pages_status_idx ON pages (status_code, id)`,
		`CREATE TABLE IF NOT EXISTS links (
			id BIGSERIAL PRIMARY KEY,
			from_page_id BIGINT NOT NULL REFERENCES pages (id) ON DELETE CASCADE,
			to_url TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS links_from_idx ON links (from_page_id)`,
		`CREATE INDEX IF NOT EXISTS links_to_idx ON links (to_url)`,
		`CREATE TABLE IF NOT EXISTS terms (
			id BIGSERIAL PRIMARY KEY,
			term TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS postings (
			term_id BIGINT NOT NULL REFERENCES terms (id) ON DELETE CASCADE,
			page_id BIGINT NOT NULL REFERENCES pages (id) ON DELETE CASCADE,
			field TEXT NOT NULL,
			frequency INTEGER NOT NULL,
			tf_idf DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (term_id, page_id, field)
		)`,
		`CREATE INDEX IF NOT EXISTS postings_page_idx ON postings (page_id)`,
		`CREATE TABLE IF NOT EXISTS analytics_snapshots (
			id BIGSERIAL PRIMARY KEY,
			data JSONB NOT NULL,
			captured_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
}
