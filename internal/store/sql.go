package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dialect isolates the placeholder and array differences between PostgreSQL
// and SQLite. Queries are written with "?" placeholders.
type dialect interface {
	name() string
	rebind(query string) string
	// inInt64 and inString render "column matches any of values".
	inInt64(column string, values []int64) (string, []any)
	inString(column string, values []string) (string, []any)
	// containsAny renders a case-insensitive substring match against any of
	// the escaped LIKE patterns.
	containsAny(column string, patterns []string) (string, []any)
	schema() []string
}

// SQLStore implements MetadataStore over database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging %s: %w", s.dialect.name(), err)
	}
	return nil
}

// Migrate creates the pages, links, terms, postings and analytics_snapshots
// tables if absent.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating %s schema: %w", s.dialect.name(), err)
		}
	}
	return nil
}

func (s *SQLStore) CountDocuments(ctx context.Context) (int, error) {
	var n int
	q := s.dialect.rebind(`SELECT COUNT(*) FROM pages WHERE status_code = ?`)
	if err := s.db.QueryRowContext(ctx, q, IndexableStatus).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

func (s *SQLStore) GetDocumentsPage(ctx context.Context, offset, limit int) ([]Document, error) {
	q := s.dialect.rebind(`
		SELECT id, url, title, meta_description, content
		FROM pages
		WHERE status_code = ?
		ORDER BY id
		LIMIT ? OFFSET ?`)
	rows, err := s.db.QueryContext(ctx, q, IndexableStatus, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fetching documents page offset=%d: %w", offset, err)
	}
	defer rows.Close()
	docs := make([]Document, 0, limit)
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.URL, &d.Title, &d.Description, &d.Body); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *SQLStore) FindTermByText(ctx context.Context, text string) (Term, error) {
	t := Term{Text: text}
	q := s.dialect.rebind(`SELECT id FROM terms WHERE term = ?`)
	err := s.db.QueryRowContext(ctx, q, text).Scan(&t.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return Term{}, ErrNotFound
	}
	if err != nil {
		return Term{}, fmt.Errorf("finding term %q: %w", text, err)
	}
	return t, nil
}

func (s *SQLStore) InsertTerm(ctx context.Context, text string) (int64, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	q := s.dialect.rebind(`
		INSERT INTO terms (term) VALUES (?)
		ON CONFLICT (term) DO UPDATE SET term = excluded.term
		RETURNING id`)
	var id int64
	if err := s.db.QueryRowContext(ctx, q, text).Scan(&id); err != nil {
		return 0, fmt.Errorf("inserting term %q: %w", text, err)
	}
	return id, nil
}

func (s *SQLStore) UpsertPosting(ctx context.Context, p Posting) error {
	q := s.dialect.rebind(`
		INSERT INTO postings (term_id, page_id, field, frequency, tf_idf)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (term_id, page_id, field)
		DO UPDATE SET frequency = excluded.frequency, tf_idf = excluded.tf_idf`)
	if _, err := s.db.ExecContext(ctx, q, p.TermID, p.DocumentID, p.Field, p.Frequency, p.TFIDF); err != nil {
		return fmt.Errorf("upserting posting term=%d doc=%d field=%s: %w", p.TermID, p.DocumentID, p.Field, err)
	}
	return nil
}

func (s *SQLStore) FindTermsByTexts(ctx context.Context, texts []string) ([]Term, error) {
	if len(texts) == 0 {
		return []Term{}, nil
	}
	cond, args := s.dialect.inString("term", texts)
	return s.queryTerms(ctx, `SELECT id, term FROM terms WHERE `+cond+` ORDER BY id`, args)
}

func (s *SQLStore) FindTermsContaining(ctx context.Context, substrings []string) ([]Term, error) {
	patterns := make([]string, 0, len(substrings))
	for _, sub := range substrings {
		if sub == "" {
			continue
		}
		patterns = append(patterns, "%"+escapeLike(sub)+"%")
	}
	if len(patterns) == 0 {
		return []Term{}, nil
	}
	cond, args := s.dialect.containsAny("term", patterns)
	return s.queryTerms(ctx, `SELECT id, term FROM terms WHERE `+cond+` ORDER BY id`, args)
}

func (s *SQLStore) queryTerms(ctx context.Context, query string, args []any) ([]Term, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying terms: %w", err)
	}
	defer rows.Close()
	terms := []Term{}
	for rows.Next() {
		var t Term
		if err := rows.Scan(&t.ID, &t.Text); err != nil {
			return nil, fmt.Errorf("scanning term: %w", err)
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

func (s *SQLStore) GetPostings(ctx context.Context, termIDs []int64, fields []string) ([]PostingMatch, error) {
	if len(termIDs) == 0 || len(fields) == 0 {
		return []PostingMatch{}, nil
	}
	termCond, termArgs := s.dialect.inInt64("p.term_id", termIDs)
	fieldCond, fieldArgs := s.dialect.inString("p.field", fields)
	q := s.dialect.rebind(`
		SELECT p.term_id, t.term, p.page_id, p.field, p.frequency, p.tf_idf
		FROM postings p
		JOIN terms t ON t.id = p.term_id
		WHERE ` + termCond + ` AND ` + fieldCond + `
		ORDER BY p.page_id, p.term_id, p.field`)
	rows, err := s.db.QueryContext(ctx, q, append(termArgs, fieldArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("fetching postings: %w", err)
	}
	defer rows.Close()
	out := []PostingMatch{}
	for rows.Next() {
		var m PostingMatch
		if err := rows.Scan(&m.TermID, &m.Term, &m.DocumentID, &m.Field, &m.Frequency, &m.TFIDF); err != nil {
			return nil, fmt.Errorf("scanning posting: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetDocumentsByIDs(ctx context.Context, ids []int64, withBody bool) ([]Document, error) {
	if len(ids) == 0 {
		return []Document{}, nil
	}
	body := `''`
	if withBody {
		body = `content`
	}
	cond, args := s.dialect.inInt64("id", ids)
	q := s.dialect.rebind(`SELECT id, url, title, meta_description, ` + body + ` FROM pages WHERE ` + cond)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching documents by id: %w", err)
	}
	defer rows.Close()
	docs := make([]Document, 0, len(ids))
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.URL, &d.Title, &d.Description, &d.Body); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *SQLStore) GetLinkedPagesPage(ctx context.Context, offset, limit int) ([]LinkedPage, error) {
	q := s.dialect.rebind(`
		SELECT p.id, p.url, p.title, p.meta_description, p.content, p.status_code,
			(SELECT COUNT(*) FROM links l WHERE l.to_url = p.url) AS in_links,
			(SELECT COUNT(*) FROM links l WHERE l.from_page_id = p.id) AS out_links
		FROM pages p
		WHERE p.status_code = ?
		ORDER BY p.id
		LIMIT ? OFFSET ?`)
	rows, err := s.db.QueryContext(ctx, q, IndexableStatus, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fetching linked pages offset=%d: %w", offset, err)
	}
	defer rows.Close()
	pages := make([]LinkedPage, 0, limit)
	for rows.Next() {
		var p LinkedPage
		if err := rows.Scan(&p.ID, &p.URL, &p.Title, &p.Description, &p.Body, &p.StatusCode, &p.InLinks, &p.OutLinks); err != nil {
			return nil, fmt.Errorf("scanning linked page: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// PutPage inserts or replaces a page by URL together with its outbound links
// and returns the page id.
func (s *SQLStore) PutPage(ctx context.Context, p Page) (int64, error) {
	if p.StatusCode == 0 {
		p.StatusCode = IndexableStatus
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning page transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	q := s.dialect.rebind(`
		INSERT INTO pages (url, title, meta_description, content, status_code, crawled_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET
			title = excluded.title,
			meta_description = excluded.meta_description,
			content = excluded.content,
			status_code = excluded.status_code,
			crawled_at = excluded.crawled_at
		RETURNING id`)
	err = tx.QueryRowContext(ctx, q, p.URL, p.Title, p.Description, p.Content, p.StatusCode, time.Now().UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting page %s: %w", p.URL, err)
	}
	if _, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM links WHERE from_page_id = ?`), id); err != nil {
		return 0, fmt.Errorf("clearing links of %s: %w", p.URL, err)
	}
	ins := s.dialect.rebind(`INSERT INTO links (from_page_id, to_url) VALUES (?, ?)`)
	for _, to := range p.Links {
		if _, err := tx.ExecContext(ctx, ins, id, to); err != nil {
			return 0, fmt.Errorf("inserting link %s -> %s: %w", p.URL, to, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing page %s: %w", p.URL, err)
	}
	return id, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// rebindDollar rewrites "?" placeholders as $1, $2, ...
func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
