package store

import "context"

// DataSource is the backing store for a VirtualCollection: an
// in-memory {id → row} map persisted somewhere other than the primary
// document store. The Redis-backed implementation lives in the sibling
// vstore package.
type DataSource interface {
	// GetData loads the full row map for collection name.
	GetData(ctx context.Context, name string) (map[string]interface{}, error)
	// SetData persists the full row map for collection name, replacing
	// whatever was there before.
	SetData(ctx context.Context, name string, data map[string]interface{}) error
}
