package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netventure.org/internal/config"
	"netventure.org/internal/persist"
)

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cases := []config.Storage{
		{Backend: config.BackendMemory},
		{Backend: config.BackendFile, Path: filepath.Join(dir, "files")},
		{Backend: config.BackendSQLite, Path: filepath.Join(dir, "nv.db")},
	}
	for _, cfg := range cases {
		t.Run(cfg.Backend, func(t *testing.T) {
			b, err := Open(ctx, cfg)
			require.NoError(t, err)
			defer b.Close()

			assert.Equal(t, cfg.Backend, b.Name)
			require.NoError(t, b.Ping(ctx))
			require.NoError(t, b.Save(ctx, persist.KeyLedger, []byte(`[]`)))
			got, err := b.Load(ctx, persist.KeyLedger)
			require.NoError(t, err)
			assert.Equal(t, "[]", string(got))
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.Storage{Backend: "tape"})
	assert.Error(t, err)
}
