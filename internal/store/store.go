// Package store opens the persistence backend named in configuration.
package store

import (
	"context"
	"fmt"

	"netventure.org/internal/config"
	"netventure.org/internal/persist"
	"netventure.org/internal/store/file"
	"netventure.org/internal/store/objstore"
	"netventure.org/internal/store/pg"
	"netventure.org/internal/store/sqlite"
)

// Backend is an opened store with its release function.
type Backend struct {
	persist.Store
	Name  string
	close func() error
}

// Close releases backend resources.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Ping reports backend health. Backends without a health probe are always
// healthy.
func (b *Backend) Ping(ctx context.Context) error {
	if p, ok := b.Store.(persist.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Open builds the backend described by cfg.
func Open(ctx context.Context, cfg config.Storage) (*Backend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return &Backend{Store: persist.NewMemory(), Name: cfg.Backend}, nil
	case config.BackendFile:
		s, err := file.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return &Backend{Store: s, Name: cfg.Backend}, nil
	case config.BackendSQLite:
		s, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return &Backend{Store: s, Name: cfg.Backend, close: s.Close}, nil
	case config.BackendPostgres:
		s, err := pg.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return &Backend{Store: s, Name: cfg.Backend, close: s.Close}, nil
	case config.BackendS3:
		s, err := objstore.Open(ctx, objstoreOptions(cfg.S3))
		if err != nil {
			return nil, err
		}
		return &Backend{Store: s, Name: cfg.Backend}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// OpenBucket opens the configured S3 bucket regardless of the primary
// backend; backups use it as their sink.
func OpenBucket(ctx context.Context, cfg config.S3) (*objstore.Store, error) {
	return objstore.Open(ctx, objstoreOptions(cfg))
}

func objstoreOptions(cfg config.S3) objstore.Options {
	return objstore.Options{
		Bucket:          cfg.Bucket,
		Prefix:          cfg.Prefix,
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	}
}
