package datastore

import (
	"bytes"
	"context"
	"sync/atomic"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/visitprep/internal/errors"
)

// MemoryStore implements Storage in process memory. Nothing expires and nothing survives Close.
type MemoryStore struct {
	cache  *cache.Cache
	closed atomic.Bool
}

var errStoreClosed = errors.NewStd("storage is closed")

// NewMemoryStore returns an empty store. No janitor goroutine is started.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: cache.New(cache.NoExpiration, 0)}
}

func (m *MemoryStore) check(ctx context.Context, operation, key string) error {
	if err := ctx.Err(); err != nil {
		return storageError(err, operation, key)
	}
	if m.closed.Load() {
		return storageError(errStoreClosed, operation, key)
	}
	return nil
}

// Get implements Storage. The returned slice is a copy.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := m.check(ctx, "get", key); err != nil {
		return nil, err
	}
	v, ok := m.cache.Get(key)
	if !ok {
		return nil, ErrKeyNotFound
	}
	return bytes.Clone(v.([]byte)), nil
}

// Set implements Storage.
func (m *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	if err := m.check(ctx, "set", key); err != nil {
		return err
	}
	m.cache.Set(key, bytes.Clone(value), cache.NoExpiration)
	return nil
}

// Delete implements Storage.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := m.check(ctx, "delete", key); err != nil {
		return err
	}
	m.cache.Delete(key)
	return nil
}

// Close drops all entries.
func (m *MemoryStore) Close() error {
	m.closed.Store(true)
	m.cache.Flush()
	return nil
}
