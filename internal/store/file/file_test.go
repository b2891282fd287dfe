package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"netventure.org/internal/persist"
)

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "data"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := s.Load(ctx, persist.KeyCatalog); !errors.Is(err, persist.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Save(ctx, persist.KeyCatalog, []byte(`[1]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, persist.KeyCatalog, []byte(`[2]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx, persist.KeyCatalog)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != "[2]" {
		t.Fatalf("unexpected value %q", got)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "data"))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "nv_school_vault.json" {
		t.Fatalf("unexpected files %v", entries)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestSaveHonoursCancelledContext(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Save(ctx, persist.KeyRoster, []byte(`[]`)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPingMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone")
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(context.Background()); !errors.Is(err, persist.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}
