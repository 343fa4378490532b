// SPDX-License-Identifier: MIT

// Package storage persists the runtime's buckets as opaque JSON documents
// keyed by stable string keys. Backends are interchangeable behind the Store
// interface; the schema migration runs uniformly on top of it.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// Stable bucket keys. These are a contract with the persistence layer and
// must not change across versions.
const (
	ProfileKey       = "profile"
	LibraryRecentKey = "library_recent"
	LibraryKey       = "library"

	schemaVersionKey = "schemaVersion"
)

// Store is a key-value bucket store. Get reports absence via ok=false
// rather than an error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Config selects and parameterizes a backend.
type Config struct {
	Backend       string // "memory", "file", "badger", "sqlite" or "redis"
	Path          string // data path for file/badger/sqlite backends
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open creates a Store for the configured backend. An empty backend falls
// back to memory.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.Path)
	case "badger":
		return OpenBadgerStore(cfg.Path)
	case "sqlite":
		return OpenSQLiteStore(cfg.Path)
	case "redis":
		return NewRedisStore(RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}

// GetJSON loads and decodes the document at key; nil without error when the
// key is absent.
func GetJSON[T any](ctx context.Context, store Store, key string) (*T, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("decode %q: %w", key, err)
	}
	return &value, nil
}

// PutJSON encodes and stores the document at key.
func PutJSON[T any](ctx context.Context, store Store, key string, value *T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	if err := store.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}
