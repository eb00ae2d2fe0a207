package relation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eve.evalgo.org/docstore"
	"eve.evalgo.org/docstore/coerce"
	"eve.evalgo.org/docstore/collection"
)

// fakePopulateTransaction is a minimal docstore.Transaction implementing
// only the non-atomic read surface PopulateRelated actually calls.
type fakePopulateTransaction struct {
	docs    map[string]map[string]interface{}
	fetches int
}

func (t *fakePopulateTransaction) GetAtomic(ctx context.Context, ref docstore.Ref, opts docstore.GetOpts) (docstore.Snapshot, error) {
	panic("unused in this test")
}
func (t *fakePopulateTransaction) GetAtomicRefs(ctx context.Context, refs []docstore.Ref, opts docstore.GetOpts) ([]docstore.Snapshot, error) {
	panic("unused in this test")
}
func (t *fakePopulateTransaction) GetAtomicQuery(ctx context.Context, q docstore.Queryable) (*docstore.QuerySnapshot, error) {
	panic("unused in this test")
}

func (t *fakePopulateTransaction) GetNonAtomic(ctx context.Context, ref docstore.Ref, opts docstore.GetOpts) (docstore.Snapshot, error) {
	if data, ok := t.docs[ref.Path()]; ok {
		return docstore.NewSnapshot(ref, data), nil
	}
	return docstore.NewMissingSnapshot(ref), nil
}

func (t *fakePopulateTransaction) GetNonAtomicRefs(ctx context.Context, refs []docstore.Ref, opts docstore.GetOpts) ([]docstore.Snapshot, error) {
	t.fetches++
	out := make([]docstore.Snapshot, len(refs))
	for i, ref := range refs {
		snap, _ := t.GetNonAtomic(ctx, ref, opts)
		out[i] = snap
	}
	return out, nil
}

func (t *fakePopulateTransaction) GetNonAtomicQuery(ctx context.Context, q docstore.Queryable) (*docstore.QuerySnapshot, error) {
	return q.Get(ctx, nil)
}

func (t *fakePopulateTransaction) Create(ref docstore.Ref, data map[string]interface{}) error {
	panic("unused")
}
func (t *fakePopulateTransaction) Update(ref docstore.Ref, data map[string]interface{}) error {
	panic("unused")
}
func (t *fakePopulateTransaction) Delete(ref docstore.Ref) error { panic("unused") }
func (t *fakePopulateTransaction) MergeWriteInternal(ref docstore.Ref, data map[string]interface{}, mode docstore.EditMode) error {
	panic("unused")
}
func (t *fakePopulateTransaction) AddNativeWrite(cb func(ctx context.Context) error) error {
	panic("unused")
}
func (t *fakePopulateTransaction) AddSuccessHook(cb func())         {}
func (t *fakePopulateTransaction) Commit(ctx context.Context) error { return nil }
func (t *fakePopulateTransaction) IsReadOnly() bool                 { return false }

var _ docstore.Transaction = (*fakePopulateTransaction)(nil)

// TestPopulateRelatedDominantFetchesStoredRefsAndDropsDangling covers the
// dominant-end branch of PopulateRelated: a stored array of refs is
// fetched and materialised, and a reference to a document that no
// longer exists is dropped rather than failing the whole populate.
func TestPopulateRelatedDominantFetchesStoredRefsAndDropsDangling(t *testing.T) {
	tagColl := &fakeQueryCollection{name: "tag", docs: map[string]map[string]interface{}{}}
	resolver := &fakeResolver{colls: map[string]collection.Bound{"tag": tagColl}}
	dctx := docstore.NewContext(nil, nil)

	h := &RelationHandler{
		thisEnd: RelationAttrInfo{ModelName: "post", Alias: "tags", IsArray: true, TargetModel: "tag"},
	}

	t1 := docstore.NewNormalRef(tagColl, "t1")
	t2 := docstore.NewNormalRef(tagColl, "t2")
	data := map[string]interface{}{
		"tags": []interface{}{coerce.RefToWire(t1), coerce.RefToWire(t2)},
	}

	tx := &fakePopulateTransaction{docs: map[string]map[string]interface{}{
		t1.Path(): {"label": "go"},
	}}

	postRef := docstore.NewNormalRef(&fakeQueryCollection{name: "post"}, "post1")
	out, err := h.PopulateRelated(context.Background(), dctx, postRef, data, tx, resolver)
	require.NoError(t, err)

	tags, ok := out["tags"].([]interface{})
	require.True(t, ok)
	require.Len(t, tags, 1, "the dangling t2 reference must be dropped")

	row, ok := tags[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"label": "go"}, row["data"])
}

// TestPopulateRelatedNonDominantQueriesOtherSide covers the non-dominant
// branch: nothing is stored locally, so PopulateRelated queries the other
// end's collection for documents referencing ref instead.
func TestPopulateRelatedNonDominantQueriesOtherSide(t *testing.T) {
	commentColl := &fakeQueryCollection{name: "comment", docs: map[string]map[string]interface{}{}}
	resolver := &fakeResolver{colls: map[string]collection.Bound{"comment": commentColl}}
	dctx := docstore.NewContext(nil, nil)

	postColl := &fakeQueryCollection{name: "post", docs: map[string]map[string]interface{}{}}
	postRef := docstore.NewNormalRef(postColl, "p1")

	h := &RelationHandler{
		thisEnd:   RelationAttrInfo{ModelName: "post", Alias: "comments"},
		otherEnds: []RelationAttrInfo{{ModelName: "comment", Alias: "post"}},
		dominant:  false,
	}

	commentColl.docs["c1"] = map[string]interface{}{"post": coerce.RefToWire(postRef), "body": "nice"}

	tx := &fakePopulateTransaction{docs: map[string]map[string]interface{}{}}
	out, err := h.PopulateRelated(context.Background(), dctx, postRef, map[string]interface{}{}, tx, resolver)
	require.NoError(t, err)

	comment, ok := out["comments"].(map[string]interface{})
	require.True(t, ok)
	row, ok := comment["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "nice", row["body"])
}
