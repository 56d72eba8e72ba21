package store

import (
	"context"
	"sync"
)

// MemoryRepository keeps items in a map. It is safe for concurrent use.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Item
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]Item)}
}

func (repository *MemoryRepository) GetItem(_ context.Context, key string) (*Item, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	item, ok := repository.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (repository *MemoryRepository) PutItem(_ context.Context, key, value string, ttl int64) (*Item, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	item := Item{Key: key, Value: value, TTL: ttl}

	repository.mu.Lock()
	repository.items[key] = item
	repository.mu.Unlock()

	return &item, nil
}

func (repository *MemoryRepository) DeleteItem(_ context.Context, key string) error {
	repository.mu.Lock()
	delete(repository.items, key)
	repository.mu.Unlock()
	return nil
}

// Len returns the number of stored items, expired ones included.
func (repository *MemoryRepository) Len() int {
	repository.mu.RLock()
	defer repository.mu.RUnlock()
	return len(repository.items)
}

func (repository *MemoryRepository) Close() error {
	return nil
}
