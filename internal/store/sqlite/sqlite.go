// Package sqlite keeps persisted blobs in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"netventure.org/internal/persist"
)

const schema = `CREATE TABLE IF NOT EXISTS nv_blobs (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
)`

// Store is a persist.Store backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

var (
	_ persist.Store  = (*Store)(nil)
	_ persist.Pinger = (*Store)(nil)
)

// Open creates or opens the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serialises writers anyway; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", persist.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, key persist.Key) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM nv_blobs WHERE key = ?`, string(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persist.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", persist.ErrStorageUnavailable, key, err)
	}
	return value, nil
}

func (s *Store) Save(ctx context.Context, key persist.Key, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO nv_blobs (key, value, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		string(key), data)
	if err != nil {
		return fmt.Errorf("%w: save %s: %v", persist.ErrStorageUnavailable, key, err)
	}
	return nil
}
