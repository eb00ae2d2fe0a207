package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCollection struct {
	name string
	path string
}

func (f fakeCollection) Name() string { return f.name }
func (f fakeCollection) Path() string { return f.path }

func TestRefIsEqualReflexive(t *testing.T) {
	parent := fakeCollection{name: "article", path: "article"}
	r := NewNormalRef(parent, "a1")
	assert.True(t, r.IsEqual(r))
}

func TestRefIsEqualSymmetricAcrossDistinctParentValues(t *testing.T) {
	p1 := fakeCollection{name: "article", path: "article"}
	p2 := fakeCollection{name: "article", path: "article"}
	a := NewNormalRef(p1, "a1")
	b := NewNormalRef(p2, "a1")

	assert.True(t, a.IsEqual(b))
	assert.True(t, b.IsEqual(a))
}

func TestRefIsEqualDiffersByKindIDOrParentPath(t *testing.T) {
	article := fakeCollection{name: "article", path: "article"}
	page := fakeCollection{name: "page", path: "page"}

	normal := NewNormalRef(article, "a1")
	deep := NewDeepRef(article, "a1")
	otherID := NewNormalRef(article, "a2")
	otherParent := NewNormalRef(page, "a1")

	assert.False(t, normal.IsEqual(deep))
	assert.False(t, normal.IsEqual(otherID))
	assert.False(t, normal.IsEqual(otherParent))
}

func TestRefMorphIsEqualComparesFilterAndInner(t *testing.T) {
	parent := fakeCollection{name: "comment", path: "comment"}
	inner := NewNormalRef(parent, "c1")

	m1 := NewMorphRef(inner, "author")
	m2 := NewMorphRef(inner, "author")
	m3 := NewMorphRef(inner, "editor")

	assert.True(t, m1.IsEqual(m2))
	assert.False(t, m1.IsEqual(m3))
}

func TestRefMorphForwardsIDParentAndPath(t *testing.T) {
	parent := fakeCollection{name: "comment", path: "comment"}
	inner := NewNormalRef(parent, "c1")
	m := NewMorphRef(inner, "author")

	assert.True(t, m.IsMorph())
	assert.Equal(t, "c1", m.ID())
	assert.Equal(t, parent, m.Parent())
	assert.Equal(t, "comment/c1", m.Path())
	assert.Equal(t, inner, m.Inner())
}

func TestRefPathJoinsParentPathAndID(t *testing.T) {
	parent := fakeCollection{name: "article", path: "article"}
	r := NewNormalRef(parent, "a1")
	assert.Equal(t, "article/a1", r.Path())
}

func TestRefSetAddDeduplicatesByIsEqual(t *testing.T) {
	parent := fakeCollection{name: "article", path: "article"}
	s := NewRefSet(NewNormalRef(parent, "a1"), NewNormalRef(parent, "a1"), NewNormalRef(parent, "a2"))
	require.Len(t, s.Items(), 2)
}

func TestRefSetDiffComputesAddedAndRemoved(t *testing.T) {
	parent := fakeCollection{name: "article", path: "article"}
	before := NewRefSet(NewNormalRef(parent, "a1"), NewNormalRef(parent, "a2"))
	after := NewRefSet(NewNormalRef(parent, "a2"), NewNormalRef(parent, "a3"))

	added, removed := before.Diff(after)

	require.Len(t, added, 1)
	assert.Equal(t, "a3", added[0].ID())
	require.Len(t, removed, 1)
	assert.Equal(t, "a1", removed[0].ID())
}
