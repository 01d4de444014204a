package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type sqliteDialect struct{}

// OpenSQLite opens the embedded store at path. An empty path or ":memory:"
// gives a private in-memory database.
func OpenSQLite(path string) (*SQLStore, error) {
	dsn := path
	if path == "" || path == ":memory:" {
		dsn = ":memory:"
	} else if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", dsn, err)
	}
	// Single connection: one writer, and an in-memory database lives and dies
	// with its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting %q: %w", pragma, err)
		}
	}
	return &SQLStore{db: db, dialect: sqliteDialect{}}, nil
}

func (sqliteDialect) name() string { return "sqlite" }

func (sqliteDialect) rebind(q string) string { return q }

func (sqliteDialect) inInt64(column string, values []int64) (string, []any) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return column + " IN (" + placeholders(len(values)) + ")", args
}

func (sqliteDialect) inString(column string, values []string) (string, []any) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return column + " IN (" + placeholders(len(values)) + ")", args
}

// containsAny relies on SQLite's LIKE, which is case-insensitive for ASCII
// only; terms are stored case-folded so this covers stored text.
func (sqliteDialect) containsAny(column string, patterns []string) (string, []any) {
	cond := "("
	args := make([]any, len(patterns))
	for i, p := range patterns {
		if i > 0 {
			cond += " OR "
		}
		cond += column + ` LIKE ? ESCAPE '\'`
		args[i] = p
	}
	return cond + ")", args
}

func (sqliteDialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS pages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL DEFAULT '',
			meta_description TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			status_code INTEGER NOT NULL DEFAULT 200,
			crawled_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS pages_status_idx ON pages (status_code, id)`,
		`CREATE TABLE IF NOT EXISTS links (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			from_page_id INTEGER NOT NULL REFERENCES pages (id) ON DELETE CASCADE,
			to_url TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS links_from_idx ON links (from_page_id)`,
		`CREATE INDEX IF NOT EXISTS links_to_idx ON links (to_url)`,
		`CREATE TABLE IF NOT EXISTS terms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			term TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS postings (
			term_id INTEGER NOT NULL REFERENCES terms (id) ON DELETE CASCADE,
			page_id INTEGER NOT NULL REFERENCES pages (id) ON DELETE CASCADE,
			field TEXT NOT NULL,
			frequency INTEGER NOT NULL,
			tf_idf REAL NOT NULL,
			PRIMARY KEY (term_id, page_id, field)
		)`,
		`CREATE INDEX IF NOT EXISTS postings_page_idx ON postings (page_id)`,
		`CREATE TABLE IF NOT EXISTS analytics_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			data TEXT NOT NULL,
			captured_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}
}
