package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS evaluations (
	id TEXT PRIMARY KEY,
	file_name TEXT NOT NULL DEFAULT '',
	markdown TEXT NOT NULL,
	score TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_evaluations_user ON evaluations(user_id, created_at);
`

// timeLayout is fixed width so that created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps records in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the database at path. The special path
// ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save inserts or replaces rec.
func (s *SQLiteStore) Save(ctx context.Context, rec EvaluationRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO evaluations (id, file_name, markdown, score, user_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.FileName, rec.Markdown, rec.Score, rec.UserID, rec.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("save evaluation %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the record with id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (EvaluationRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, file_name, markdown, score, user_id, created_at FROM evaluations WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return EvaluationRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return EvaluationRecord{}, fmt.Errorf("get evaluation %s: %w", id, err)
	}
	return rec, nil
}

// List returns the records of userID, newest first.
func (s *SQLiteStore) List(ctx context.Context, userID string) ([]EvaluationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_name, markdown, score, user_id, created_at FROM evaluations
		 WHERE ? = '' OR user_id = ?
		 ORDER BY created_at DESC, id ASC`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer rows.Close()

	out := []EvaluationRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list evaluations: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	return out, nil
}

// Delete removes the record with id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM evaluations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete evaluation %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete evaluation %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (EvaluationRecord, error) {
	var (
		rec     EvaluationRecord
		created string
	)
	if err := sc.Scan(&rec.ID, &rec.FileName, &rec.Markdown, &rec.Score, &rec.UserID, &created); err != nil {
		return EvaluationRecord{}, err
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return EvaluationRecord{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	rec.CreatedAt = t
	return rec, nil
}
