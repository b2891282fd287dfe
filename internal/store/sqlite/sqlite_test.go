package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netventure.org/internal/persist"
)

func TestRoundTripAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "nv.db")

	s, err := Open(path)
	require.NoError(t, err)

	_, err = s.Load(ctx, persist.KeyRoster)
	assert.ErrorIs(t, err, persist.ErrNotFound)

	require.NoError(t, s.Save(ctx, persist.KeyRoster, []byte(`[{"id":"a"}]`)))
	require.NoError(t, s.Save(ctx, persist.KeyRoster, []byte(`[{"id":"b"}]`)))
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load(ctx, persist.KeyRoster)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"b"}]`, string(got))
	assert.Equal(t, path, s.Path())
}

func TestClosedStoreReportsUnavailable(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "nv.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Save(context.Background(), persist.KeyLedger, []byte(`[]`))
	assert.ErrorIs(t, err, persist.ErrStorageUnavailable)
}
