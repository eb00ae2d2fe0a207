package txn

import (
	"context"
	"fmt"

	"eve.evalgo.org/docstore"
	"eve.evalgo.org/docstore/collection"
	"eve.evalgo.org/docstore/store"
)

// Collections resolves a collection name to its bound collection, the
// narrow slice of collection.Binder that commit needs to dispatch
// WriteInternal calls.
type Collections interface {
	Get(name string) (collection.Bound, bool)
}

// ReadWriteTransaction is the docstore.Transaction used whenever no
// participating collection is Virtual and the caller has not asked for a
// read-only transaction. Reads are cached
// per attempt through a pair of ReadRepositorys; writes are coalesced
// in a writeLog and only reach the store at Commit.
type ReadWriteTransaction struct {
	storeTx     store.Tx
	collections Collections
	atomic      *ReadRepository
	nonAtomic   *ReadRepository
	writes      *writeLog
	native      []func(ctx context.Context) error
	hooks       []func()
}

// NewReadWriteTransaction builds a ReadWriteTransaction bound to one
// store.Tx attempt.
func NewReadWriteTransaction(storeTx store.Tx, collections Collections) *ReadWriteTransaction {
	fetch := func(ctx context.Context, refs []docstore.Ref, fieldMask []string) ([]docstore.Snapshot, error) {
		return storeTx.GetAll(ctx, refs, fieldMask)
	}
	atomic := NewReadRepository(fetch, nil)
	nonAtomic := NewReadRepository(fetch, atomic)
	return &ReadWriteTransaction{
		storeTx:     storeTx,
		collections: collections,
		atomic:      atomic,
		nonAtomic:   nonAtomic,
		writes:      newWriteLog(),
	}
}

func (t *ReadWriteTransaction) GetAtomic(ctx context.Context, ref docstore.Ref, opts docstore.GetOpts) (docstore.Snapshot, error) {
	return t.atomic.Get(ctx, ref)
}

func (t *ReadWriteTransaction) GetAtomicRefs(ctx context.Context, refs []docstore.Ref, opts docstore.GetOpts) ([]docstore.Snapshot, error) {
	return t.atomic.GetAll(ctx, refs, opts)
}

func (t *ReadWriteTransaction) GetAtomicQuery(ctx context.Context, q docstore.Queryable) (*docstore.QuerySnapshot, error) {
	return q.Get(ctx, t.atomic)
}

func (t *ReadWriteTransaction) GetNonAtomic(ctx context.Context, ref docstore.Ref, opts docstore.GetOpts) (docstore.Snapshot, error) {
	return t.nonAtomic.Get(ctx, ref)
}

func (t *ReadWriteTransaction) GetNonAtomicRefs(ctx context.Context, refs []docstore.Ref, opts docstore.GetOpts) ([]docstore.Snapshot, error) {
	return t.nonAtomic.GetAll(ctx, refs, opts)
}

func (t *ReadWriteTransaction) GetNonAtomicQuery(ctx context.Context, q docstore.Queryable) (*docstore.QuerySnapshot, error) {
	return q.Get(ctx, t.nonAtomic)
}

func (t *ReadWriteTransaction) Create(ref docstore.Ref, data map[string]interface{}) error {
	t.writes.merge(ref, data, docstore.EditModeCreate)
	return nil
}

func (t *ReadWriteTransaction) Update(ref docstore.Ref, data map[string]interface{}) error {
	t.writes.merge(ref, data, docstore.EditModeUpdate)
	return nil
}

func (t *ReadWriteTransaction) Delete(ref docstore.Ref) error {
	t.writes.merge(ref, nil, docstore.EditModeDelete)
	return nil
}

func (t *ReadWriteTransaction) MergeWriteInternal(ref docstore.Ref, data map[string]interface{}, mode docstore.EditMode) error {
	t.writes.merge(ref, data, mode)
	return nil
}

func (t *ReadWriteTransaction) AddNativeWrite(cb func(ctx context.Context) error) error {
	t.native = append(t.native, cb)
	return nil
}

func (t *ReadWriteTransaction) AddSuccessHook(cb func()) {
	t.hooks = append(t.hooks, cb)
}

func (t *ReadWriteTransaction) IsReadOnly() bool { return false }

// Stats reports (writes, totalReads, atomicReads) for the runner's
// commit-time observability log.
func (t *ReadWriteTransaction) Stats() (writes, totalReads, atomicReads int) {
	return len(t.writes.order), t.atomic.Reads() + t.nonAtomic.Reads(), t.atomic.Reads()
}

// Commit runs every queued native write, then flushes the coalesced
// writeLog through each ref's bound collection, merging partial field
// updates onto the last-known document state before calling
// WriteInternal — CouchDB's Update replaces the whole document body
// rather than merging fields server-side, so the merge has to happen
// here rather than in the store binding.
func (t *ReadWriteTransaction) Commit(ctx context.Context) error {
	for _, cb := range t.native {
		if err := cb(ctx); err != nil {
			return err
		}
	}

	for _, op := range t.writes.ops() {
		coll, ok := t.collections.Get(op.Ref.Parent().Name())
		if !ok {
			return fmt.Errorf("txn: no bound collection for %q", op.Ref.Parent().Name())
		}
		if err := coll.EnsureDocument(ctx, t.storeTx); err != nil {
			return err
		}

		resolved, mode, err := t.resolve(ctx, coll, op)
		if err != nil {
			return err
		}
		if err := coll.WriteInternal(ctx, t.storeTx, op.Ref, resolved, mode); err != nil {
			return err
		}
	}

	for _, hook := range t.hooks {
		hook()
	}
	return nil
}

// resolve computes the final data/mode WriteInternal should receive for
// one WriteOp, applying the base-document merge a create/set skips and a
// plain update/setMerge requires.
func (t *ReadWriteTransaction) resolve(ctx context.Context, coll collection.Bound, op *WriteOp) (map[string]interface{}, docstore.EditMode, error) {
	if op.deleted {
		return nil, docstore.EditModeDelete, nil
	}

	base := map[string]interface{}{}
	if op.Mode == docstore.EditModeUpdate || op.Mode == docstore.EditModeSetMerge {
		current, err := t.atomic.Get(ctx, op.Ref)
		if err != nil {
			return nil, op.Mode, err
		}
		if current.Exists() {
			base = copyMap(current.Data())
		}
	}
	return resolveFieldOps(base, op.Data), op.Mode, nil
}

func resolveFieldOps(base, data map[string]interface{}) map[string]interface{} {
	out := copyMap(base)
	for k, v := range data {
		if op, ok := store.IsFieldOp(v); ok {
			op.Apply(out, k)
		} else {
			out[k] = v
		}
	}
	return out
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

var _ docstore.Transaction = (*ReadWriteTransaction)(nil)
