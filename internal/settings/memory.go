package settings

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory implementation of the Store interface.
// Useful for tests; nothing survives a restart. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	values  map[string]string
	sources map[string]bool
	routes  map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:  make(map[string]string),
		sources: make(map[string]bool),
		routes:  make(map[string]string),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key], nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) SourceChannels(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.sources))
	for id := range m.sources {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) AddSourceChannel(_ context.Context, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[channelID] = true
	return nil
}

func (m *MemoryStore) RemoveSourceChannel(_ context.Context, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sources, channelID)
	return nil
}

func (m *MemoryStore) SetReviewChannel(_ context.Context, sourceChannelID, reviewChannelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[sourceChannelID] = reviewChannelID
	return nil
}

func (m *MemoryStore) ReviewChannelFor(_ context.Context, sourceChannelID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.routes[sourceChannelID], nil
}

func (m *MemoryStore) Routes(_ context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.routes))
	for k, v := range m.routes {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

// Compile-time check that MemoryStore implements the Store interface.
var _ Store = (*MemoryStore)(nil)
