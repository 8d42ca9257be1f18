package settings

import (
	"context"
	"sync"
)

// MemoryStore keeps the settings in process memory.
type MemoryStore struct {
	items sync.Map
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Read(_ context.Context, key string) (string, bool, error) {
	if err := validKey(key); err != nil {
		return "", false, err
	}

	value, ok := m.items.Load(key)
	if !ok {
		return "", false, nil
	}
	s, ok := value.(string)
	return s, ok, nil
}

func (m *MemoryStore) Write(_ context.Context, key, value string) error {
	if err := validKey(key); err != nil {
		return err
	}
	m.items.Store(key, value)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
