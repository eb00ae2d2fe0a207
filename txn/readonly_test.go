package txn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eve.evalgo.org/docstore"
	"eve.evalgo.org/docstore/collection"
	"eve.evalgo.org/docstore/model"
	"eve.evalgo.org/docstore/store"
)

// fakeVirtualBound is a minimal collection.Bound standing in for
// VirtualCollection: like the real thing, WriteInternal never touches its
// store.Tx argument, since a ReadOnlyTransaction's Commit always passes nil
// for it.
type fakeVirtualBound struct {
	name string
	rows map[string]map[string]interface{}
}

func (c *fakeVirtualBound) Name() string { return c.name }
func (c *fakeVirtualBound) Path() string { return c.name }
func (c *fakeVirtualBound) Where(docstore.Filter) docstore.Queryable              { return nil }
func (c *fakeVirtualBound) OrderBy(string, docstore.SortDir) docstore.Queryable   { return nil }
func (c *fakeVirtualBound) Limit(int) docstore.Queryable                         { return nil }
func (c *fakeVirtualBound) Offset(int) docstore.Queryable                        { return nil }
func (c *fakeVirtualBound) Get(ctx context.Context, repo docstore.Reader) (*docstore.QuerySnapshot, error) {
	return nil, nil
}
func (c *fakeVirtualBound) AutoID(ctx context.Context) (string, error) { return "auto", nil }
func (c *fakeVirtualBound) Converter() model.Converter                { return model.Converter{} }
func (c *fakeVirtualBound) EnsureDocument(ctx context.Context, tx store.Tx) error { return nil }
func (c *fakeVirtualBound) WriteInternal(ctx context.Context, tx store.Tx, ref docstore.Ref, data map[string]interface{}, mode docstore.EditMode) error {
	if mode == docstore.EditModeDelete {
		delete(c.rows, ref.ID())
		return nil
	}
	c.rows[ref.ID()] = data
	return nil
}

var _ collection.Bound = (*fakeVirtualBound)(nil)

// fakeROBinding is a minimal store.Binding for ReadOnlyTransaction, which
// only ever calls GetAll on it; the rest of the interface is never
// exercised and exists solely to satisfy store.Binding.
type fakeROBinding struct {
	docs map[string]map[string]interface{}
}

func (b *fakeROBinding) GetAll(ctx context.Context, refs []docstore.Ref, fieldMask []string) ([]docstore.Snapshot, error) {
	out := make([]docstore.Snapshot, len(refs))
	for i, ref := range refs {
		if data, ok := b.docs[ref.Path()]; ok {
			out[i] = docstore.NewSnapshot(ref, data)
		} else {
			out[i] = docstore.NewMissingSnapshot(ref)
		}
	}
	return out, nil
}

func (b *fakeROBinding) Collection(name string) docstore.CollectionRef { return fakeCollRef{name: name} }
func (b *fakeROBinding) Doc(path string) store.DocHandle                { panic("unused in this test") }
func (b *fakeROBinding) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	panic("unused in this test")
}
func (b *fakeROBinding) Query(ctx context.Context, collName string, sel docstore.NativeFilter, order []docstore.OrderClause, limit, offset int) ([]docstore.Snapshot, error) {
	return nil, nil
}
func (b *fakeROBinding) NewID(ctx context.Context, collName string) (string, error) { return "auto", nil }
func (b *fakeROBinding) IsEmulator() bool                                           { return false }

var _ store.Binding = (*fakeROBinding)(nil)

// TestReadOnlyTransactionRejectsAtomicReads checks that a
// ReadOnlyTransaction has no store-level transaction to read atomically
// against.
func TestReadOnlyTransactionRejectsAtomicReads(t *testing.T) {
	binding := &fakeROBinding{docs: map[string]map[string]interface{}{}}
	tx := NewReadOnlyTransaction(binding, &fakeCollections{byName: nil})

	_, err := tx.GetAtomic(context.Background(), docstore.NewNormalRef(fakeCollRef{name: "session"}, "s1"), docstore.GetOpts{})
	require.Error(t, err)
	assert.True(t, tx.IsReadOnly())
}

// TestReadOnlyTransactionRejectsWritesToNonVirtualRefs verifies a write
// against a Normal ref is refused outright.
func TestReadOnlyTransactionRejectsWritesToNonVirtualRefs(t *testing.T) {
	binding := &fakeROBinding{docs: map[string]map[string]interface{}{}}
	tx := NewReadOnlyTransaction(binding, &fakeCollections{byName: nil})

	ref := docstore.NewNormalRef(fakeCollRef{name: "article"}, "a1")
	err := tx.Create(ref, map[string]interface{}{"x": 1.0})
	require.Error(t, err)
}

// TestReadOnlyTransactionCommitsVirtualWritesThroughCollection verifies a
// write against a Virtual ref is accepted, coalesced, and flushed through
// the bound collection's WriteInternal on Commit.
func TestReadOnlyTransactionCommitsVirtualWritesThroughCollection(t *testing.T) {
	binding := &fakeROBinding{docs: map[string]map[string]interface{}{}}
	sessionColl := &fakeVirtualBound{name: "session", rows: map[string]map[string]interface{}{}}
	colls := &fakeCollections{byName: map[string]collection.Bound{"session": sessionColl}}

	tx := NewReadOnlyTransaction(binding, colls)

	ref := docstore.NewVirtualRef(fakeCollRef{name: "session"}, "s1")
	require.NoError(t, tx.Create(ref, map[string]interface{}{"active": true}))
	require.NoError(t, tx.Commit(context.Background()))

	assert.Equal(t, map[string]interface{}{"active": true}, sessionColl.rows["s1"])
}

// TestReadOnlyTransactionRejectsNativeWrites verifies a ReadOnlyTransaction
// never lets a caller register a native write callback, since there is no
// store-level transaction for it to run against.
func TestReadOnlyTransactionRejectsNativeWrites(t *testing.T) {
	binding := &fakeROBinding{docs: map[string]map[string]interface{}{}}
	tx := NewReadOnlyTransaction(binding, &fakeCollections{byName: nil})

	err := tx.AddNativeWrite(func(ctx context.Context) error { return nil })
	require.Error(t, err)
}
