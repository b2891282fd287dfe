// Package file keeps each persisted key in its own file under a directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"netventure.org/internal/persist"
)

// Store writes <dir>/<key>.json with an atomic rename.
type Store struct {
	dir string
}

var (
	_ persist.Store  = (*Store)(nil)
	_ persist.Pinger = (*Store)(nil)
)

// Open ensures dir exists.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key persist.Key) string {
	return filepath.Join(s.dir, string(key)+".json")
}

func (s *Store) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("%w: %v", persist.ErrStorageUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", persist.ErrStorageUnavailable, s.dir)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, key persist.Key) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persist.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", persist.ErrStorageUnavailable, key, err)
	}
	return data, nil
}

func (s *Store) Save(ctx context.Context, key persist.Key, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeAtomic(s.path(key), data); err != nil {
		return fmt.Errorf("%w: save %s: %v", persist.ErrStorageUnavailable, key, err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer func() { _ = os.Remove(name) }()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(name, path)
}
