package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"netventure.org/internal/persist"
)

// DefaultHistoryDepth is how many past revisions of each key are retained.
const DefaultHistoryDepth = 20

type Store struct {
	db           *sql.DB
	historyDepth int
}

var (
	_ persist.Store  = (*Store)(nil)
	_ persist.Pinger = (*Store)(nil)
)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Writes are a handful of blobs; keep the pool small.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return New(db), nil
}

// New wraps an existing handle. The nv_blobs schema must already exist.
func New(db *sql.DB) *Store {
	return &Store{db: db, historyDepth: DefaultHistoryDepth}
}

// WithHistoryDepth sets how many revisions per key are kept. Zero disables
// history.
func (s *Store) WithHistoryDepth(n int) *Store {
	if n >= 0 {
		s.historyDepth = n
	}
	return s
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", persist.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, key persist.Key) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `select value from nv_blobs where key=$1`, string(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persist.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", persist.ErrStorageUnavailable, key, err)
	}
	return value, nil
}

func (s *Store) Save(ctx context.Context, key persist.Key, data []byte) error {
	if err := s.save(ctx, key, data); err != nil {
		return fmt.Errorf("%w: save %s: %v", persist.ErrStorageUnavailable, key, err)
	}
	return nil
}

func (s *Store) save(ctx context.Context, key persist.Key, data []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		insert into nv_blobs(key, value, updated_at)
		values ($1, $2, now())
		on conflict (key) do update
		set value = excluded.value, updated_at = excluded.updated_at
	`, string(key), data); err != nil {
		return err
	}
	if s.historyDepth > 0 {
		if _, err := tx.ExecContext(ctx, `insert into nv_blob_history(key, value) values ($1, $2)`, string(key), data); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			delete from nv_blob_history
			where key = $1 and id not in (
				select id from nv_blob_history where key = $1 order by id desc limit $2
			)
		`, string(key), s.historyDepth); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Revision is a past value of a key.
type Revision struct {
	ID      int64
	Value   []byte
	SavedAt time.Time
}

// Revisions returns retained revisions of key, newest first.
func (s *Store) Revisions(ctx context.Context, key persist.Key) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, value, saved_at from nv_blob_history
		where key = $1 order by id desc
	`, string(key))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Revision
	for rows.Next() {
		var r Revision
		if err := rows.Scan(&r.ID, &r.Value, &r.SavedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Rollback restores key to the given revision.
func (s *Store) Rollback(ctx context.Context, key persist.Key, revisionID int64) error {
	var value []byte
	err := s.db.QueryRowContext(ctx, `select value from nv_blob_history where key=$1 and id=$2`, string(key), revisionID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return persist.ErrNotFound
	}
	if err != nil {
		return err
	}
	return s.Save(ctx, key, value)
}
