// Package memory provides an in-process storage backend.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/xenking/lester-loyalty/internal/storage"
)

var _ storage.KV = (*KV)(nil)

// KV is a mutex-guarded map. Values are copied on the way in and out.
type KV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New returns an empty KV.
func New() *KV {
	return &KV{data: make(map[string][]byte)}
}

func (m *KV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return slices.Clone(v), nil
}

func (m *KV) Put(_ context.Context, entries ...storage.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		m.data[e.Key] = slices.Clone(e.Value)
	}
	return nil
}

func (m *KV) Ping(context.Context) error { return nil }
