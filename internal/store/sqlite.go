package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStorageUnavailable means the database could not be opened at all;
	// there is no further fallback tier, so callers surface this one.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrNotFound           = errors.New("record not found")
	ErrUnknownContainer   = errors.New("unknown container")
)

// Container names, matching the object stores of the SautAlQuranDB schema.
const (
	PendingRecordings = "pendingRecordings"
	PendingMarkers    = "pendingMarkers"
	CachedRecitations = "cachedRecitations"
	CachedComments    = "cachedComments"
)

// SchemaVersion is the current schema version, tracked via PRAGMA
// user_version. Opening with a higher version creates missing tables
// without touching existing ones.
const SchemaVersion = 1

var tables = map[string]string{
	PendingRecordings: "pending_recordings",
	PendingMarkers:    "pending_markers",
	CachedRecitations: "cached_recitations",
	CachedComments:    "cached_comments",
}

// EnsureSchema idempotently creates all containers at the target version.
func EnsureSchema(db *sql.DB) error {
	schema := `
PRAGMA journal_mode=WAL;
CREATE TABLE IF NOT EXISTS pending_recordings (
  id TEXT PRIMARY KEY,
  body BLOB NOT NULL,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS pending_markers (
  id TEXT PRIMARY KEY,
  body BLOB NOT NULL,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS cached_recitations (
  id TEXT PRIMARY KEY,
  body BLOB NOT NULL,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS cached_comments (
  id TEXT PRIMARY KEY,
  body BLOB NOT NULL,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return err
	}
	if version < SchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
			return err
		}
	}
	return nil
}

// Store is the durable pending-item store shared by the page-facing gateway
// and the background sync worker. All synchronization is delegated to the
// engine's per-transaction atomicity; there are no application-level locks.
type Store struct{ db *sql.DB }

func New(db *sql.DB) *Store { return &Store{db: db} }

// Open opens (or creates) the database file and ensures the schema. Failure
// to open or ping maps to ErrStorageUnavailable.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	db.SetMaxOpenConns(1) // SQLite single writer
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func tableFor(container string) (string, error) {
	t, ok := tables[container]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownContainer, container)
	}
	return t, nil
}

// Add inserts a record and fails with ErrDuplicateKey if the key exists.
func (s *Store) Add(ctx context.Context, container, id string, body []byte) error {
	table, err := tableFor(container)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, body) VALUES (?, ?)", table), id, body)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateKey, container, id)
		}
		return fmt.Errorf("failed to add record: %w", err)
	}
	return nil
}

// Put inserts or unconditionally replaces a record.
func (s *Store) Put(ctx context.Context, container, id string, body []byte) error {
	table, err := tableFor(container)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (id, body) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET body = excluded.body`, table), id, body)
	if err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}
	return nil
}

// Get returns a single record body or ErrNotFound.
func (s *Store) Get(ctx context.Context, container, id string) ([]byte, error) {
	table, err := tableFor(container)
	if err != nil {
		return nil, err
	}
	var body []byte
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT body FROM %s WHERE id = ?", table), id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, container, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return body, nil
}

// GetAll returns every record body in the container, oldest first.
func (s *Store) GetAll(ctx context.Context, container string) ([][]byte, error) {
	table, err := tableFor(container)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT body FROM %s ORDER BY created_at, id", table))
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var bodies [][]byte
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		bodies = append(bodies, body)
	}
	return bodies, rows.Err()
}

// Delete removes a record; deleting an absent key is a no-op, not an error.
func (s *Store) Delete(ctx context.Context, container, id string) error {
	table, err := tableFor(container)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// Clear removes every record in the container. Used only by the
// cache-replace path, never on the pending-item containers.
func (s *Store) Clear(ctx context.Context, container string) error {
	table, err := tableFor(container)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
		return fmt.Errorf("failed to clear container: %w", err)
	}
	return nil
}

// Record is one keyed entry for bulk writes.
type Record struct {
	ID   string
	Body []byte
}

// ReplaceAll atomically clears the container and inserts the given records.
// A partially-cleared state is never observable.
func (s *Store) ReplaceAll(ctx context.Context, container string, recs []Record) error {
	table, err := tableFor(container)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
		return fmt.Errorf("failed to clear container: %w", err)
	}
	for _, rec := range recs {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (id, body) VALUES (?, ?)", table), rec.ID, rec.Body); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of records in the container.
func (s *Store) Count(ctx context.Context, container string) (int, error) {
	table, err := tableFor(container)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

func marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return b, nil
}
