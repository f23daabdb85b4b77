package assessment

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS assessments (
	id            TEXT PRIMARY KEY,
	target        TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	quality_score REAL NOT NULL,
	approved      INTEGER NOT NULL,
	payload       TEXT NOT NULL,
	UNIQUE (target, created_at)
);

CREATE INDEX IF NOT EXISTS idx_assessments_target_time
	ON assessments (target, created_at);
`

// SQLiteStore persists assessments in a local SQLite database. Records
// are append-only; the store exposes no update path by construction.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database, enables WAL, and runs the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrPersistence, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: pragma: %v", ErrPersistence, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", ErrPersistence, err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save appends one assessment. The full record is stored as JSON next to
// the indexed columns used by range queries.
func (s *SQLiteStore) Save(ctx context.Context, a *Assessment) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrPersistence, err)
	}

	approved := 0
	if a.Decision.Approved {
		approved = 1
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO assessments (id, target, created_at, quality_score, approved, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Target, a.Timestamp.UTC().Format(time.RFC3339Nano), a.QualityScore, approved, string(payload),
	)
	if err != nil {
		return fmt.Errorf("%w: insert: %w", ErrPersistence, err)
	}
	return nil
}

// Query returns assessments for the target inside the range, oldest
// first.
func (s *SQLiteStore) Query(ctx context.Context, target string, tr TimeRange) ([]*Assessment, error) {
	query := `SELECT payload FROM assessments WHERE 1=1`
	args := []any{}
	if target != "" {
		query += ` AND target = ?`
		args = append(args, target)
	}
	if !tr.From.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, tr.From.UTC().Format(time.RFC3339Nano))
	}
	if !tr.To.IsZero() {
		query += ` AND created_at <= ?`
		args = append(args, tr.To.UTC().Format(time.RFC3339Nano))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", ErrPersistence, err)
	}
	defer rows.Close()

	var out []*Assessment
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrPersistence, err)
		}
		var a Assessment
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, fmt.Errorf("%w: unmarshal: %v", ErrPersistence, err)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %w", ErrPersistence, err)
	}
	return out, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
