package txn

import (
	"context"

	"eve.evalgo.org/docstore"
	"eve.evalgo.org/docstore/collection"
	"eve.evalgo.org/docstore/store"
)

// ReadOnlyTransaction is used when any participating collection is
// Virtual, or when the caller asks for one: reads go straight through the
// binding (no store.Tx) and writes are only permitted against Virtual
// refs, which never touch the store's own transaction anyway.
type ReadOnlyTransaction struct {
	binding     store.Binding
	collections Collections
	atomic      *ReadRepository
	nonAtomic   *ReadRepository
	writes      *writeLog
	native      []func(ctx context.Context) error
	hooks       []func()
}

// NewReadOnlyTransaction builds a ReadOnlyTransaction backed directly by
// binding rather than a store.Tx.
func NewReadOnlyTransaction(binding store.Binding, collections Collections) *ReadOnlyTransaction {
	fetch := func(ctx context.Context, refs []docstore.Ref, fieldMask []string) ([]docstore.Snapshot, error) {
		return binding.GetAll(ctx, refs, fieldMask)
	}
	atomic := NewReadRepository(fetch, nil)
	nonAtomic := NewReadRepository(fetch, atomic)
	return &ReadOnlyTransaction{
		binding:     binding,
		collections: collections,
		atomic:      atomic,
		nonAtomic:   nonAtomic,
		writes:      newWriteLog(),
	}
}

// GetAtomic, GetAtomicRefs and GetAtomicQuery are rejected outright: a
// ReadOnlyTransaction has no store-level transaction to read atomically
// against.
func (t *ReadOnlyTransaction) GetAtomic(ctx context.Context, ref docstore.Ref, opts docstore.GetOpts) (docstore.Snapshot, error) {
	return docstore.Snapshot{}, errReadOnlyAtomic("getAtomic")
}

func (t *ReadOnlyTransaction) GetAtomicRefs(ctx context.Context, refs []docstore.Ref, opts docstore.GetOpts) ([]docstore.Snapshot, error) {
	return nil, errReadOnlyAtomic("getAtomicRefs")
}

func (t *ReadOnlyTransaction) GetAtomicQuery(ctx context.Context, q docstore.Queryable) (*docstore.QuerySnapshot, error) {
	return nil, errReadOnlyAtomic("getAtomicQuery")
}

func errReadOnlyAtomic(op string) error {
	return &docstore.UnsupportedOperationError{Operation: op, Reason: "a read-only transaction has no atomic store transaction to read against"}
}

func (t *ReadOnlyTransaction) GetNonAtomic(ctx context.Context, ref docstore.Ref, opts docstore.GetOpts) (docstore.Snapshot, error) {
	return t.nonAtomic.Get(ctx, ref)
}

func (t *ReadOnlyTransaction) GetNonAtomicRefs(ctx context.Context, refs []docstore.Ref, opts docstore.GetOpts) ([]docstore.Snapshot, error) {
	return t.nonAtomic.GetAll(ctx, refs, opts)
}

func (t *ReadOnlyTransaction) GetNonAtomicQuery(ctx context.Context, q docstore.Queryable) (*docstore.QuerySnapshot, error) {
	return q.Get(ctx, t.nonAtomic)
}

func (t *ReadOnlyTransaction) Create(ref docstore.Ref, data map[string]interface{}) error {
	if err := t.rejectNonVirtual("create", ref); err != nil {
		return err
	}
	t.writes.merge(ref, data, docstore.EditModeCreate)
	return nil
}

func (t *ReadOnlyTransaction) Update(ref docstore.Ref, data map[string]interface{}) error {
	if err := t.rejectNonVirtual("update", ref); err != nil {
		return err
	}
	t.writes.merge(ref, data, docstore.EditModeUpdate)
	return nil
}

func (t *ReadOnlyTransaction) Delete(ref docstore.Ref) error {
	if err := t.rejectNonVirtual("delete", ref); err != nil {
		return err
	}
	t.writes.merge(ref, nil, docstore.EditModeDelete)
	return nil
}

func (t *ReadOnlyTransaction) MergeWriteInternal(ref docstore.Ref, data map[string]interface{}, mode docstore.EditMode) error {
	if err := t.rejectNonVirtual(mode.String(), ref); err != nil {
		return err
	}
	t.writes.merge(ref, data, mode)
	return nil
}

func (t *ReadOnlyTransaction) rejectNonVirtual(op string, ref docstore.Ref) error {
	if ref.Kind() == docstore.KindVirtual {
		return nil
	}
	if ref.IsMorph() && ref.Inner().Kind() == docstore.KindVirtual {
		return nil
	}
	return &docstore.UnsupportedOperationError{
		Operation: op,
		Reason:    "a read-only transaction can only write Virtual references",
	}
}

// AddNativeWrite is rejected: native writes only make sense joined to a
// real store transaction.
func (t *ReadOnlyTransaction) AddNativeWrite(cb func(ctx context.Context) error) error {
	return &docstore.UnsupportedOperationError{Operation: "addNativeWrite", Reason: "a read-only transaction cannot register native writes"}
}

func (t *ReadOnlyTransaction) AddSuccessHook(cb func()) {
	t.hooks = append(t.hooks, cb)
}

func (t *ReadOnlyTransaction) IsReadOnly() bool { return true }

// Stats reports (writes, totalReads, atomicReads); atomicReads is always
// zero since a ReadOnlyTransaction never opens an atomic read.
func (t *ReadOnlyTransaction) Stats() (writes, totalReads, atomicReads int) {
	return len(t.writes.order), t.nonAtomic.Reads(), 0
}

// Commit flushes the (Virtual-only) writeLog. There is no store.Tx to
// hand WriteInternal; VirtualCollection and ComponentCollection never
// touch the store.Tx argument, so nil is safe here.
func (t *ReadOnlyTransaction) Commit(ctx context.Context) error {
	for _, cb := range t.native {
		if err := cb(ctx); err != nil {
			return err
		}
	}

	for _, op := range t.writes.ops() {
		coll, ok := t.collections.Get(op.Ref.Parent().Name())
		if !ok {
			return &docstore.UnsupportedOperationError{Operation: "commit", Reason: "no bound collection for " + op.Ref.Parent().Name()}
		}

		data := op.Data
		mode := op.Mode
		if op.deleted {
			data, mode = nil, docstore.EditModeDelete
		}
		if err := coll.WriteInternal(ctx, nil, op.Ref, data, mode); err != nil {
			return err
		}
	}

	for _, hook := range t.hooks {
		hook()
	}
	return nil
}

var _ docstore.Transaction = (*ReadOnlyTransaction)(nil)
var _ collection.Bound // keep the collection import meaningful for godoc cross-reference
