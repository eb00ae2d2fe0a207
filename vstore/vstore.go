// Package vstore provides the Redis-backed store.DataSource a
// VirtualCollection uses: a whole-collection JSON row map stored under
// one Redis key per collection.
package vstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Config configures a connection to the Redis (or DragonflyDB,
// Redis-protocol compatible) instance backing one or more virtual
// collections.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string // defaults to "docstore:virtual:"
}

// Store implements store.DataSource over one *redis.Client, storing each
// collection's full row map as one JSON value under
// "{KeyPrefix}{collectionName}".
type Store struct {
	client *redis.Client
	prefix string
}

// New builds a Store from cfg. The client is created eagerly but the
// connection itself is established lazily by go-redis on first command,
// so New itself never blocks.
func New(cfg Config) *Store {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "docstore:virtual:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Store{client: client, prefix: prefix}
}

// NewFromClient wraps an already-constructed client, letting callers
// (and tests, via miniredis) supply their own redis.Client.
func NewFromClient(client *redis.Client, keyPrefix string) *Store {
	if keyPrefix == "" {
		keyPrefix = "docstore:virtual:"
	}
	return &Store{client: client, prefix: keyPrefix}
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

// GetData implements store.DataSource.
func (s *Store) GetData(ctx context.Context, name string) (map[string]interface{}, error) {
	raw, err := s.client.Get(ctx, s.key(name)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return map[string]interface{}{}, nil
		}
		return nil, fmt.Errorf("vstore: get %q: %w", name, err)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("vstore: decode %q: %w", name, err)
	}
	return data, nil
}

// SetData implements store.DataSource.
func (s *Store) SetData(ctx context.Context, name string, data map[string]interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("vstore: encode %q: %w", name, err)
	}
	if err := s.client.Set(ctx, s.key(name), raw, 0).Err(); err != nil {
		return fmt.Errorf("vstore: set %q: %w", name, err)
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
