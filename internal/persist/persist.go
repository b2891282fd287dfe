// Package persist defines the key-value capability the engine saves its
// state through, and the codec used to encode values at rest.
package persist

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// Key names a persisted value.
type Key string

// The three logical stores. Names match the blobs written by the browser app.
const (
	KeyRoster  Key = "nv_children"
	KeyLedger  Key = "nv_completions"
	KeyCatalog Key = "nv_school_vault"
)

// Keys lists every key.
func Keys() []Key { return []Key{KeyRoster, KeyLedger, KeyCatalog} }

var (
	// ErrNotFound is returned by Load for an absent key.
	ErrNotFound = errors.New("persist: key not found")
	// ErrStorageUnavailable wraps backend failures.
	ErrStorageUnavailable = errors.New("persist: storage unavailable")
)

// Store loads and saves opaque values by key.
type Store interface {
	Load(ctx context.Context, key Key) ([]byte, error)
	Save(ctx context.Context, key Key, data []byte) error
}

// Pinger is implemented by stores that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	data map[Key][]byte
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{data: make(map[Key][]byte)}
}

func (m *Memory) Load(ctx context.Context, key Key) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Save(ctx context.Context, key Key, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

// Stored returns the keys currently held, sorted.
func (m *Memory) Stored() []Key {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Key, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
