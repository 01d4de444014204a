package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveSnapshot stores one JSON-encoded analytics snapshot.
func (s *SQLStore) SaveSnapshot(ctx context.Context, data []byte, capturedAt time.Time) error {
	q := s.dialect.rebind(`INSERT INTO analytics_snapshots (data, captured_at) VALUES (?, ?)`)
	if _, err := s.db.ExecContext(ctx, q, string(data), capturedAt.UTC()); err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns up to limit snapshots, newest first.
func (s *SQLStore) ListSnapshots(ctx context.Context, limit int) ([][]byte, error) {
	q := s.dialect.rebind(`SELECT data FROM analytics_snapshots ORDER BY captured_at DESC, id DESC LIMIT ?`)
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("listing analytics snapshots: %w", err)
	}
	defer rows.Close()
	var out [][]byte
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning analytics snapshot: %w", err)
		}
		out = append(out, data)
	}
	return out, rows.Err()
}

// LatestSnapshot returns ErrNotFound when nothing has been saved.
func (s *SQLStore) LatestSnapshot(ctx context.Context) ([]byte, error) {
	var data []byte
	q := `SELECT data FROM analytics_snapshots ORDER BY captured_at DESC, id DESC LIMIT 1`
	err := s.db.QueryRowContext(ctx, q).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading latest analytics snapshot: %w", err)
	}
	return data, nil
}
