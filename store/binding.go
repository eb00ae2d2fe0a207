// Package store defines the seam between the connector core and the
// underlying document store: a small Binding interface of collection/doc
// accessors, a transaction runner, batched reads, and native queries,
// plus the FieldOp sentinel set (delete/increment/arrayUnion/
// arrayRemove) every binding must be able to replay. The
// couchdb subpackage provides the concrete kivik-backed implementation;
// the vstore subpackage provides the Redis-backed DataSource consumed by
// VirtualCollection.
package store

import (
	"context"

	"eve.evalgo.org/docstore"
)

// DocHandle is the store-facing handle for a single document location,
// analogous to a Firestore DocumentReference or a CouchDB "{db}/{id}"
// address.
type DocHandle interface {
	Path() string
}

// Tx is the transactional view of the store a Binding hands to the
// callback passed to RunTransaction. Every method suspends the calling
// goroutine at an I/O boundary.
type Tx interface {
	// GetAll performs a transactional batch read. When fieldMask is
	// non-empty only those top-level keys are populated in the returned
	// snapshots (the Deep-ref field-mask optimisation).
	GetAll(ctx context.Context, refs []docstore.Ref, fieldMask []string) ([]docstore.Snapshot, error)
	// Query performs a transactional native query against collection.
	Query(ctx context.Context, collection string, sel docstore.NativeFilter, order []docstore.OrderClause, limit, offset int) ([]docstore.Snapshot, error)
	// Create writes data as a brand new document; it is the caller's
	// responsibility to have checked non-existence first.
	Create(ctx context.Context, ref docstore.Ref, data map[string]interface{}) error
	// Update applies a partial merge write to an existing document.
	Update(ctx context.Context, ref docstore.Ref, data map[string]interface{}) error
	// Delete removes a document.
	Delete(ctx context.Context, ref docstore.Ref) error
}

// Binding is the full seam a concrete document store implements.
// CouchDB's kivik-backed implementation lives in the sibling couchdb
// package; any other document store adapter only needs to satisfy this
// interface to plug into the CORE unchanged.
type Binding interface {
	// Collection returns an accessor for a top-level collection by name.
	Collection(name string) docstore.CollectionRef
	// Doc returns a handle for a single document path.
	Doc(path string) DocHandle

	// RunTransaction invokes fn with a Tx bound to one underlying store
	// transaction attempt; contention is signalled by returning a
	// *docstore.TransactionContention from fn or from RunTransaction
	// itself, and the caller is expected to retry.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// GetAll performs a non-transactional batch read.
	GetAll(ctx context.Context, refs []docstore.Ref, fieldMask []string) ([]docstore.Snapshot, error)
	// Query performs a non-transactional native query.
	Query(ctx context.Context, collection string, sel docstore.NativeFilter, order []docstore.OrderClause, limit, offset int) ([]docstore.Snapshot, error)

	// NewID asks the store to mint a fresh, currently-unused document id
	// for collection.
	NewID(ctx context.Context, collection string) (string, error)

	// IsEmulator reports whether the binding is talking to a local/test
	// instance of the store, gating the contention back-off jitter.
	IsEmulator() bool
}
