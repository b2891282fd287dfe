package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netventure.org/internal/validate"
)

func TestDefaults(t *testing.T) {
	c, err := FromViper(New())
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, BackendSQLite, c.Storage.Backend)
	assert.Equal(t, "netventure.db", c.Storage.Path)
	assert.Equal(t, 2*time.Second, c.Storage.FlushInterval)
	assert.Equal(t, 30*time.Minute, c.TokenTTL)
	assert.Empty(t, c.CORSOrigins)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("NV_HTTP_ADDR", ":9999")
	t.Setenv("NV_STORAGE_BACKEND", "postgres")
	t.Setenv("NV_STORAGE_DSN", "postgres://localhost/nv")
	t.Setenv("NV_STORAGE_FLUSH_INTERVAL", "500ms")
	t.Setenv("NV_HTTP_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("NV_LOG_LEVEL", "DEBUG")

	c, err := FromViper(New())
	require.NoError(t, err)
	assert.Equal(t, ":9999", c.HTTPAddr)
	assert.Equal(t, BackendPostgres, c.Storage.Backend)
	assert.Equal(t, 500*time.Millisecond, c.Storage.FlushInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSOrigins)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestValidationErrors(t *testing.T) {
	t.Setenv("NV_STORAGE_BACKEND", "floppy")
	_, err := FromViper(New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, validate.ErrInvalid))

	t.Setenv("NV_STORAGE_BACKEND", "postgres")
	_, err = FromViper(New())
	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "storage.dsn", verr.Fields[0].Field)

	t.Setenv("NV_STORAGE_BACKEND", "memory")
	t.Setenv("NV_BACKUP_ENABLED", "true")
	_, err = FromViper(New())
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "storage.s3.bucket", verr.Fields[0].Field)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("NV_GRPC_ADDR=:7070\n"), 0o600))
	t.Setenv("NV_GRPC_ADDR", "")
	require.NoError(t, os.Unsetenv("NV_GRPC_ADDR"))

	c, err := Load(path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, ":7070", c.GRPCAddr)
}
