package docstore

import "context"

// GetOpts tunes a single read. IsSingleRequest enables the field-mask
// optimisation for Deep refs: when true and every requested ref is a Deep
// ref into the same flat document, the batched fetch is issued with a
// field mask naming exactly the needed ids, and the result is not
// cached, since it is partial.
type GetOpts struct {
	IsSingleRequest bool
}

// WriteOpts tunes a write routed through the lifecycle. UpdateRelations
// and RunOnChangeHook are pointers so "not set" (nil) is distinguishable
// from "explicitly false"; RunOnChangeHook defaults to tracking
// UpdateRelations when left nil (see DESIGN.md for the rationale).
type WriteOpts struct {
	UpdateRelations *bool
	RunOnChangeHook *bool
}

// ResolvedUpdateRelations returns the effective UpdateRelations value,
// defaulting to true.
func (o WriteOpts) ResolvedUpdateRelations() bool {
	if o.UpdateRelations == nil {
		return true
	}
	return *o.UpdateRelations
}

// ResolvedRunOnChangeHook returns the effective RunOnChangeHook value,
// defaulting to ResolvedUpdateRelations() when unset.
func (o WriteOpts) ResolvedRunOnChangeHook() bool {
	if o.RunOnChangeHook == nil {
		return o.ResolvedUpdateRelations()
	}
	return *o.RunOnChangeHook
}

// Transaction is the shared contract both transaction variants implement.
// ReadOnlyTransaction rejects every atomic read and every native write,
// and rejects writes to non-Virtual refs; ReadWriteTransaction supports
// everything. Collection, relation and lifecycle code is written against
// this interface so it never needs to know which variant it has.
type Transaction interface {
	// GetAtomic performs a transactional (locking) read of one ref.
	// ReadOnlyTransaction always returns UnsupportedOperationError.
	GetAtomic(ctx context.Context, ref Ref, opts GetOpts) (Snapshot, error)
	// GetAtomicRefs performs a transactional batch read.
	GetAtomicRefs(ctx context.Context, refs []Ref, opts GetOpts) ([]Snapshot, error)
	// GetAtomicQuery performs a transactional query read.
	GetAtomicQuery(ctx context.Context, q Queryable) (*QuerySnapshot, error)
	// GetNonAtomic performs a non-transactional read, backed by (but not
	// visible to) the atomic read cache.
	GetNonAtomic(ctx context.Context, ref Ref, opts GetOpts) (Snapshot, error)
	GetNonAtomicRefs(ctx context.Context, refs []Ref, opts GetOpts) ([]Snapshot, error)
	GetNonAtomicQuery(ctx context.Context, q Queryable) (*QuerySnapshot, error)

	// Create, Update and Delete queue a document write through
	// MergeWriteInternal using the corresponding EditMode.
	Create(ref Ref, data map[string]interface{}) error
	Update(ref Ref, data map[string]interface{}) error
	Delete(ref Ref) error

	// MergeWriteInternal coalesces data into the per-document WriteOp for
	// ref, applying the write-coalescing merge rules (last-writer-wins by
	// field, except delete always wins).
	MergeWriteInternal(ref Ref, data map[string]interface{}, mode EditMode) error

	// AddNativeWrite queues a callback to run against the underlying
	// store transaction during commit. ReadOnlyTransaction always
	// returns UnsupportedOperationError.
	AddNativeWrite(cb func(ctx context.Context) error) error

	// AddSuccessHook registers a callback to run strictly after a
	// successful commit, in registration order.
	AddSuccessHook(cb func())

	// Commit flushes every queued write through the store binding.
	Commit(ctx context.Context) error

	// IsReadOnly reports which variant this is.
	IsReadOnly() bool
}
