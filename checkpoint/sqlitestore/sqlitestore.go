// Package sqlitestore is a SQLite-backed checkpoint.Store, grounded on
// the teacher's graph/store/sqlite.go (WAL mode, busy_timeout, single
// writer connection). Checkpoints are stored whole as JSON blobs, since a
// Checkpoint carries the dynamic message.Message rather than a
// user-defined schema.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/spicegraph/spicegraph/checkpoint"
	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed checkpoint.Store. Safe for concurrent use; the
// underlying driver serializes writes through a single connection, as
// SQLite supports one writer at a time.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// Open creates or opens a SQLite-backed Store at path (use ":memory:" for
// an ephemeral in-process database). Enables WAL mode for concurrent
// reads and a busy timeout so contending writers block briefly instead of
// failing immediately.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlitestore: %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createTables(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS checkpoints (
			id TEXT NOT NULL PRIMARY KEY,
			run_id TEXT NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			payload TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_checkpoints_run_id ON checkpoints(run_id);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlitestore: create schema: %w", err)
	}
	return nil
}

// Save persists cp, replacing any existing row with the same ID.
func (s *Store) Save(ctx context.Context, cp checkpoint.Checkpoint) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("sqlitestore: marshal checkpoint: %w", err)
	}

	const query = `
		INSERT INTO checkpoints (id, run_id, timestamp, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			run_id = excluded.run_id,
			timestamp = excluded.timestamp,
			payload = excluded.payload
	`
	if _, err := s.db.ExecContext(ctx, query, cp.ID, cp.RunID, cp.Timestamp, payload); err != nil {
		return fmt.Errorf("sqlitestore: save: %w", err)
	}
	return nil
}

// Get retrieves a checkpoint by ID.
func (s *Store) Get(ctx context.Context, id string) (checkpoint.Checkpoint, error) {
	if err := s.checkOpen(); err != nil {
		return checkpoint.Checkpoint{}, err
	}

	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM checkpoints WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return checkpoint.Checkpoint{}, checkpoint.ErrNotFound
	}
	if err != nil {
		return checkpoint.Checkpoint{}, fmt.Errorf("sqlitestore: get: %w", err)
	}

	var cp checkpoint.Checkpoint
	if err := json.Unmarshal([]byte(payload), &cp); err != nil {
		return checkpoint.Checkpoint{}, fmt.Errorf("sqlitestore: unmarshal checkpoint: %w", err)
	}
	return cp, nil
}

// ListByRun returns every checkpoint saved for runID.
func (s *Store) ListByRun(ctx context.Context, runID string) ([]checkpoint.Checkpoint, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM checkpoints WHERE run_id = ? ORDER BY timestamp ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []checkpoint.Checkpoint
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan: %w", err)
		}
		var cp checkpoint.Checkpoint
		if err := json.Unmarshal([]byte(payload), &cp); err != nil {
			return nil, fmt.Errorf("sqlitestore: unmarshal checkpoint: %w", err)
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

// DeleteByRun removes every checkpoint saved for runID.
func (s *Store) DeleteByRun(ctx context.Context, runID string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("sqlitestore: delete: %w", err)
	}
	return nil
}

// Close closes the underlying database connection. Safe to call more than
// once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("sqlitestore: store is closed")
	}
	return nil
}
