package collection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eve.evalgo.org/docstore"
	"eve.evalgo.org/docstore/model"
	"eve.evalgo.org/docstore/store"
)

// fakeDataSource is an in-memory store.DataSource standing in for the
// Redis-backed vstore implementation.
type fakeDataSource struct {
	byName map[string]map[string]interface{}
}

func newFakeDataSource() *fakeDataSource {
	return &fakeDataSource{byName: make(map[string]map[string]interface{})}
}

func (s *fakeDataSource) GetData(ctx context.Context, name string) (map[string]interface{}, error) {
	if data, ok := s.byName[name]; ok {
		return data, nil
	}
	return map[string]interface{}{}, nil
}

func (s *fakeDataSource) SetData(ctx context.Context, name string, data map[string]interface{}) error {
	s.byName[name] = data
	return nil
}

var _ store.DataSource = (*fakeDataSource)(nil)

// TestVirtualCollectionGetFiltersAndSorts verifies Get reads straight from
// the data source rather than the primary document store.
func TestVirtualCollectionGetFiltersAndSorts(t *testing.T) {
	source := newFakeDataSource()
	source.byName["sessions"] = map[string]interface{}{
		"s1": map[string]interface{}{"active": true, "score": 2.0},
		"s2": map[string]interface{}{"active": false, "score": 1.0},
		"s3": map[string]interface{}{"active": true, "score": 1.0},
	}
	m := &model.Model{Name: "session"}
	c := NewVirtualCollection("sessions", source, m)

	q := c.Where(docstore.WhereFilter{Field: "active", Operator: docstore.OpEq, Value: true}).
		OrderBy("score", docstore.Asc)
	snap, err := q.Get(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, snap.Docs, 2)
	assert.Equal(t, "s3", snap.Docs[0].ID())
	assert.Equal(t, "s1", snap.Docs[1].ID())
}

// TestVirtualCollectionWriteInternalCreateRejectsExistingRow verifies a
// Create against an id that already exists in the row map fails rather than
// silently overwriting, matching Writable's create/update distinction for
// virtual rows.
func TestVirtualCollectionWriteInternalCreateRejectsExistingRow(t *testing.T) {
	source := newFakeDataSource()
	source.byName["sessions"] = map[string]interface{}{
		"s1": map[string]interface{}{"active": true},
	}
	m := &model.Model{Name: "session"}
	c := NewVirtualCollection("sessions", source, m)

	ref := docstore.NewVirtualRef(c, "s1")
	err := c.WriteInternal(context.Background(), nil, ref, map[string]interface{}{"active": false}, docstore.EditModeCreate)
	require.Error(t, err)

	var opErr *docstore.UnsupportedOperationError
	assert.ErrorAs(t, err, &opErr)
}

// TestVirtualCollectionWriteInternalUpdateRejectsMissingRow mirrors the
// create case: updating a row id that does not exist fails instead of
// inserting it.
func TestVirtualCollectionWriteInternalUpdateRejectsMissingRow(t *testing.T) {
	source := newFakeDataSource()
	m := &model.Model{Name: "session"}
	c := NewVirtualCollection("sessions", source, m)

	ref := docstore.NewVirtualRef(c, "missing")
	err := c.WriteInternal(context.Background(), nil, ref, map[string]interface{}{"active": false}, docstore.EditModeUpdate)
	require.Error(t, err)

	var opErr *docstore.UnsupportedOperationError
	assert.ErrorAs(t, err, &opErr)
}

// TestVirtualCollectionWriteInternalPersistsRowBackToSource verifies a
// successful create and a following delete each persist the row map back to
// the source, as seen through GetData.
func TestVirtualCollectionWriteInternalPersistsRowBackToSource(t *testing.T) {
	source := newFakeDataSource()
	m := &model.Model{Name: "session"}
	c := NewVirtualCollection("sessions", source, m)

	ref := docstore.NewVirtualRef(c, "s1")
	require.NoError(t, c.WriteInternal(context.Background(), nil, ref, map[string]interface{}{"active": true}, docstore.EditModeCreate))

	data, err := c.GetData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"active": true}, data["s1"])

	require.NoError(t, c.WriteInternal(context.Background(), nil, ref, nil, docstore.EditModeDelete))
	data, err = c.GetData(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, data, "s1")
}
