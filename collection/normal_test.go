package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"eve.evalgo.org/docstore"
	"eve.evalgo.org/docstore/model"
)

// TestNormalCollectionBuilderMethodsReturnCopies verifies builder purity:
// Where/OrderBy/Limit/Offset each return a new Queryable value, leaving
// the receiver's own accumulated state untouched.
func TestNormalCollectionBuilderMethodsReturnCopies(t *testing.T) {
	base := NewNormalCollection("article", nil, &model.Model{Name: "article"})

	filtered := base.Where(docstore.WhereFilter{Field: "status", Operator: docstore.OpEq, Value: "published"})
	ordered := filtered.OrderBy("score", docstore.Desc)
	limited := ordered.Limit(5)
	paged := limited.Offset(2)

	assert.Empty(t, base.filters)
	assert.Empty(t, base.order)
	assert.Equal(t, 0, base.limit)
	assert.Equal(t, 0, base.offset)

	nc, ok := paged.(*NormalCollection)
	assert.True(t, ok)
	assert.Len(t, nc.filters, 1)
	assert.Len(t, nc.order, 1)
	assert.Equal(t, 5, nc.limit)
	assert.Equal(t, 2, nc.offset)

	// The intermediate values must also be distinct from each other and
	// from paged, not all aliasing the same backing slice.
	fc := filtered.(*NormalCollection)
	assert.Empty(t, fc.order)
	assert.Equal(t, 0, fc.limit)
}

func TestNormalCollectionNameAndPath(t *testing.T) {
	c := NewNormalCollection("article", nil, &model.Model{Name: "article"})
	assert.Equal(t, "article", c.Name())
	assert.Equal(t, "article", c.Path())
}
