package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eve.evalgo.org/docstore"
)

func TestTranslateSingleWhereClauseGoesNative(t *testing.T) {
	filters := []docstore.Filter{
		docstore.WhereFilter{Field: "status", Operator: docstore.OpEq, Value: "published"},
	}
	tr, err := Translate(docstore.PreferNative, filters)
	require.NoError(t, err)
	assert.Empty(t, tr.Manual)
	assert.Equal(t, docstore.NativeFilter{"status": map[string]interface{}{"$eq": "published"}}, tr.Native)
}

func TestTranslateManualOnlyModeForcesEveryFilterManual(t *testing.T) {
	filters := []docstore.Filter{
		docstore.WhereFilter{Field: "status", Operator: docstore.OpEq, Value: "published"},
	}
	tr, err := Translate(docstore.ManualOnly, filters)
	require.NoError(t, err)
	assert.Nil(t, tr.Native)
	require.Len(t, tr.Manual, 1)
	assert.Equal(t, "status", tr.Manual[0].Predicate.Field)
}

func TestTranslateContainsAlwaysManualRegardlessOfMode(t *testing.T) {
	filters := []docstore.Filter{
		docstore.WhereFilter{Field: "title", Operator: docstore.OpContains, Value: "hello"},
	}
	tr, err := Translate(docstore.PreferNative, filters)
	require.NoError(t, err)
	assert.Nil(t, tr.Native)
	require.Len(t, tr.Manual, 1)
	assert.Equal(t, docstore.OpContains, tr.Manual[0].Predicate.Operator)
}

func TestTranslateContainsUnderNativeOnlyErrors(t *testing.T) {
	filters := []docstore.Filter{
		docstore.WhereFilter{Field: "title", Operator: docstore.OpContains, Value: "hello"},
	}
	_, err := Translate(docstore.NativeOnly, filters)
	require.Error(t, err)
	var nn *docstore.NativeNotSupportedError
	require.ErrorAs(t, err, &nn)
}

func TestTranslateEqAgainstArrayRewritesToIn(t *testing.T) {
	filters := []docstore.Filter{
		docstore.WhereFilter{Field: "status", Operator: docstore.OpEq, Value: []interface{}{"draft", "published"}},
	}
	tr, err := Translate(docstore.PreferNative, filters)
	require.NoError(t, err)
	assert.Equal(t, docstore.NativeFilter{"status": map[string]interface{}{"$in": []interface{}{"draft", "published"}}}, tr.Native)
}

func TestTranslateInAgainstEmptyListIsEmptyQueryError(t *testing.T) {
	filters := []docstore.Filter{
		docstore.WhereFilter{Field: "status", Operator: docstore.OpIn, Value: []interface{}{}},
	}
	_, err := Translate(docstore.PreferNative, filters)
	require.Error(t, err)
	assert.True(t, docstore.IsEmptyQueryError(err))
}

func TestTranslateNotInAgainstEmptyListIsUnconstrained(t *testing.T) {
	filters := []docstore.Filter{
		docstore.WhereFilter{Field: "status", Operator: docstore.OpNotIn, Value: []interface{}{}},
	}
	tr, err := Translate(docstore.PreferNative, filters)
	require.NoError(t, err)
	assert.Nil(t, tr.Native)
	assert.Empty(t, tr.Manual)
}

func TestTranslateInAboveNativeThresholdFallsBackToManual(t *testing.T) {
	big := make([]interface{}, inNativeMax+1)
	for i := range big {
		big[i] = i
	}
	filters := []docstore.Filter{
		docstore.WhereFilter{Field: "rank", Operator: docstore.OpIn, Value: big},
	}
	tr, err := Translate(docstore.PreferNative, filters)
	require.NoError(t, err)
	assert.Nil(t, tr.Native)
	require.Len(t, tr.Manual, 1)
	assert.Equal(t, docstore.OpIn, tr.Manual[0].Predicate.Operator)
}

func TestTranslateLtAgainstArrayReducesToMaxBound(t *testing.T) {
	filters := []docstore.Filter{
		docstore.WhereFilter{Field: "score", Operator: docstore.OpLt, Value: []interface{}{3.0, 7.0, 1.0}},
	}
	tr, err := Translate(docstore.PreferNative, filters)
	require.NoError(t, err)
	assert.Equal(t, docstore.NativeFilter{"score": map[string]interface{}{"$lt": 7.0}}, tr.Native)
}

func TestTranslateGtAgainstArrayReducesToMinBound(t *testing.T) {
	filters := []docstore.Filter{
		docstore.WhereFilter{Field: "score", Operator: docstore.OpGt, Value: []interface{}{3.0, 7.0, 1.0}},
	}
	tr, err := Translate(docstore.PreferNative, filters)
	require.NoError(t, err)
	assert.Equal(t, docstore.NativeFilter{"score": map[string]interface{}{"$gt": 1.0}}, tr.Native)
}

func TestTranslateNullTrueRewritesToEqNil(t *testing.T) {
	filters := []docstore.Filter{
		docstore.WhereFilter{Field: "deletedAt", Operator: docstore.OpNull, Value: true},
	}
	tr, err := Translate(docstore.PreferNative, filters)
	require.NoError(t, err)
	assert.Equal(t, docstore.NativeFilter{"deletedAt": map[string]interface{}{"$eq": nil}}, tr.Native)
}

// TestTranslateOrConsolidatesToNativeIn checks that an OrFilter of
// same-field/same-op equality clauses collapses to one native $in,
// instead of a $or of single-field $eq clauses.
func TestTranslateOrConsolidatesToNativeIn(t *testing.T) {
	filters := []docstore.Filter{
		docstore.OrFilter{Groups: []docstore.AndGroup{
			{{Field: "status", Operator: docstore.OpEq, Value: "draft"}},
			{{Field: "status", Operator: docstore.OpEq, Value: "published"}},
		}},
	}
	tr, err := Translate(docstore.PreferNative, filters)
	require.NoError(t, err)
	assert.Empty(t, tr.Manual)
	assert.Equal(t, docstore.NativeFilter{"status": map[string]interface{}{"$in": []interface{}{"draft", "published"}}}, tr.Native)
}

func TestTranslateOrWithMultiPredicateGroupsGoesNativeOr(t *testing.T) {
	filters := []docstore.Filter{
		docstore.OrFilter{Groups: []docstore.AndGroup{
			{
				{Field: "status", Operator: docstore.OpEq, Value: "draft"},
				{Field: "author", Operator: docstore.OpEq, Value: "alice"},
			},
			{
				{Field: "status", Operator: docstore.OpEq, Value: "published"},
			},
		}},
	}
	tr, err := Translate(docstore.PreferNative, filters)
	require.NoError(t, err)
	assert.Empty(t, tr.Manual)
	native := tr.Native
	require.NotNil(t, native)
	_, hasOr := native["$or"]
	assert.True(t, hasOr)
}

func TestTranslateOrFallsBackToManualWhenGroupHasAlwaysManualOperator(t *testing.T) {
	filters := []docstore.Filter{
		docstore.OrFilter{Groups: []docstore.AndGroup{
			{{Field: "title", Operator: docstore.OpContains, Value: "hello"}},
			{{Field: "status", Operator: docstore.OpEq, Value: "published"}},
		}},
	}
	tr, err := Translate(docstore.PreferNative, filters)
	require.NoError(t, err)
	assert.Nil(t, tr.Native)
	require.Len(t, tr.Manual, 1)
	require.Len(t, tr.Manual[0].OrGroups, 2)
}

func TestTranslateMultipleNativeClausesCombineWithAnd(t *testing.T) {
	filters := []docstore.Filter{
		docstore.WhereFilter{Field: "status", Operator: docstore.OpEq, Value: "published"},
		docstore.WhereFilter{Field: "author", Operator: docstore.OpEq, Value: "alice"},
	}
	tr, err := Translate(docstore.PreferNative, filters)
	require.NoError(t, err)
	native := tr.Native
	require.NotNil(t, native)
	and, ok := native["$and"].([]interface{})
	require.True(t, ok)
	assert.Len(t, and, 2)
}

func TestTranslateNativeFilterPassesThroughVerbatim(t *testing.T) {
	nf := docstore.NativeFilter{"score": map[string]interface{}{"$gt": 10}}
	tr, err := Translate(docstore.PreferNative, []docstore.Filter{nf})
	require.NoError(t, err)
	assert.Equal(t, nf, tr.Native)
}
