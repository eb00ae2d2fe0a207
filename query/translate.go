// Package query translates the connector's operator-based Filter values
// (docstore.WhereFilter/AndGroup/OrFilter/NativeFilter) into a CouchDB
// Mango selector where possible, and provides the in-memory predicate
// evaluator the CORE falls back to for operators Mango cannot express.
// The full Operator vocabulary is supported under three modes:
// PreferNative, ManualOnly, and NativeOnly.
package query

import "eve.evalgo.org/docstore"

// inNativeMax is the largest `in`/`not-in` value list Mango's $in/$nin is
// asked to carry before the translator routes it to an in-memory
// membership test instead.
const inNativeMax = 10

// Predicate is one field/operator/value test the manual evaluator can run
// against an in-memory document map.
type Predicate struct {
	Field    string
	Operator docstore.Operator
	Value    interface{}
}

// ManualClause is one item of the in-memory fallback list Translate
// builds: either a single Predicate (a top-level WhereFilter that
// couldn't run natively) or a disjunction of conjunctions (an OrFilter
// that couldn't be consolidated into one native clause). Every
// ManualClause in a Translation is ANDed together; within an OrGroups
// clause, a document matches if ANY group's predicates ALL match.
type ManualClause struct {
	Predicate *Predicate
	OrGroups  [][]Predicate
}

// Translation is the result of translating a list of filters: a Mango
// selector fragment (nil if nothing could run natively), plus any
// predicates that must be evaluated in memory.
type Translation struct {
	Native docstore.NativeFilter
	Manual []ManualClause
}

// mangoOps maps the operator vocabulary onto the Mango operators that
// express it exactly: $eq, $ne, $gt, $gte, $lt, $lte, $in, $nin.
var mangoOps = map[docstore.Operator]string{
	docstore.OpEq:    "$eq",
	docstore.OpNe:    "$ne",
	docstore.OpLt:    "$lt",
	docstore.OpLte:   "$lte",
	docstore.OpGt:    "$gt",
	docstore.OpGte:   "$gte",
	docstore.OpIn:    "$in",
	docstore.OpNotIn: "$nin",
}

// alwaysManual is the set of operators that must always run as an
// in-memory filter, regardless of QueryMode.
var alwaysManual = map[docstore.Operator]bool{
	docstore.OpContains:   true,
	docstore.OpNContains:  true,
	docstore.OpContainsS:  true,
	docstore.OpNContainsS: true,
}

// Translate converts filters into a Translation honoring mode. Every
// WhereFilter is first normalized per the operator-mapping table — eq/ne
// against an array rewrites to in/not-in, an ordered comparison against
// an array reduces to a scalar bound, null rewrites to an eq/ne-nil test
// — before the native/manual decision is made.
func Translate(mode docstore.QueryMode, filters []docstore.Filter) (Translation, error) {
	var t Translation
	nativeClauses := []map[string]interface{}{}

	for _, f := range filters {
		switch v := f.(type) {
		case docstore.NativeFilter:
			nativeClauses = append(nativeClauses, map[string]interface{}(v))

		case docstore.WhereFilter:
			op, val, skip, err := normalize(v.Operator, v.Value)
			if err != nil {
				return Translation{}, err
			}
			if skip {
				continue
			}

			if alwaysManual[op] {
				if mode == docstore.NativeOnly {
					return Translation{}, &docstore.NativeNotSupportedError{Operator: string(op), Field: v.Field}
				}
				t.Manual = append(t.Manual, ManualClause{Predicate: &Predicate{Field: v.Field, Operator: op, Value: val}})
				continue
			}

			if mode == docstore.ManualOnly {
				t.Manual = append(t.Manual, ManualClause{Predicate: &Predicate{Field: v.Field, Operator: op, Value: val}})
				continue
			}
			clause, ok := whereClause(docstore.WhereFilter{Field: v.Field, Operator: op, Value: val})
			if ok {
				nativeClauses = append(nativeClauses, clause)
				continue
			}
			if mode == docstore.NativeOnly {
				return Translation{}, &docstore.NativeNotSupportedError{Operator: string(op), Field: v.Field}
			}
			t.Manual = append(t.Manual, ManualClause{Predicate: &Predicate{Field: v.Field, Operator: op, Value: val}})

		case docstore.OrFilter:
			if consolidated, ok := consolidate(v.Groups); ok {
				if mode == docstore.ManualOnly {
					t.Manual = append(t.Manual, ManualClause{OrGroups: flattenGroups(v.Groups)})
					continue
				}
				nativeClauses = append(nativeClauses, consolidated)
				continue
			}

			orClause, manual, ok := nativeOr(v)
			if mode == docstore.ManualOnly {
				t.Manual = append(t.Manual, ManualClause{OrGroups: flattenGroups(v.Groups)})
				continue
			}
			if ok {
				nativeClauses = append(nativeClauses, orClause)
				continue
			}
			if mode == docstore.NativeOnly {
				return Translation{}, &docstore.NativeNotSupportedError{Operator: "or", Field: ""}
			}
			t.Manual = append(t.Manual, ManualClause{OrGroups: manual})

		default:
			return Translation{}, &docstore.UnsupportedOperationError{Operation: "query.translate", Reason: "unrecognized filter type"}
		}
	}

	switch len(nativeClauses) {
	case 0:
		t.Native = nil
	case 1:
		t.Native = docstore.NativeFilter(nativeClauses[0])
	default:
		and := make([]interface{}, len(nativeClauses))
		for i, c := range nativeClauses {
			and[i] = c
		}
		t.Native = docstore.NativeFilter{"$and": and}
	}
	return t, nil
}

// normalize applies the operator-mapping table ahead of the
// native/manual decision: eq/ne against an array rewrites to in/not-in;
// an ordered comparison against an array reduces to the relevant scalar
// bound; null rewrites to an eq/ne-nil test. skip reports that the
// filter contributes nothing (a not-in against an empty list leaves the
// collection unconstrained); the returned error is a
// *docstore.EmptyQueryError when the filter is now provably
// unsatisfiable (an in against an empty list).
func normalize(op docstore.Operator, val interface{}) (docstore.Operator, interface{}, bool, error) {
	if op == docstore.OpNull {
		truthy, _ := val.(bool)
		if truthy {
			return docstore.OpEq, nil, false, nil
		}
		return docstore.OpNe, nil, false, nil
	}

	if op == docstore.OpEq {
		if list, ok := asInterfaceSlice(val); ok {
			op, val = docstore.OpIn, list
		}
	}
	if op == docstore.OpNe {
		if list, ok := asInterfaceSlice(val); ok {
			op, val = docstore.OpNotIn, list
		}
	}

	switch op {
	case docstore.OpLt, docstore.OpLte:
		if list, ok := asInterfaceSlice(val); ok {
			val = reduce(list, false)
		}
	case docstore.OpGt, docstore.OpGte:
		if list, ok := asInterfaceSlice(val); ok {
			val = reduce(list, true)
		}
	case docstore.OpIn:
		if list, ok := asInterfaceSlice(val); ok && len(list) == 0 {
			return op, val, false, &docstore.EmptyQueryError{Reason: "in filter against an empty value list matches no documents"}
		}
	case docstore.OpNotIn:
		if list, ok := asInterfaceSlice(val); ok && len(list) == 0 {
			return op, val, true, nil
		}
	}
	return op, val, false, nil
}

// reduce folds an array value down to the single bound an ordered
// comparison needs: the minimum when min is true (for >, >=, so a value
// passes when it exceeds at least one candidate), the maximum otherwise
// (for <, <=, so a value passes when it is below at least one candidate).
func reduce(list []interface{}, min bool) interface{} {
	if len(list) == 0 {
		return nil
	}
	best := list[0]
	for _, v := range list[1:] {
		c := compareOrdered(v, best)
		if (min && c < 0) || (!min && c > 0) {
			best = v
		}
	}
	return best
}

// whereClause renders one WhereFilter as a Mango clause, reporting
// ok=false when the operator has no Mango equivalent or (for in/not-in)
// the value list exceeds the native size threshold.
func whereClause(w docstore.WhereFilter) (map[string]interface{}, bool) {
	if w.Operator == docstore.OpIn || w.Operator == docstore.OpNotIn {
		if list, ok := asInterfaceSlice(w.Value); ok && len(list) > inNativeMax {
			return nil, false
		}
	}
	mop, ok := mangoOps[w.Operator]
	if !ok {
		return nil, false
	}
	return map[string]interface{}{w.Field: map[string]interface{}{mop: w.Value}}, true
}

// consolidate implements the OR-to-in rewrite: when every group is a
// single WhereFilter on the same field with the same eq/ne operator and
// a scalar value, the whole OrFilter collapses into one native
// in/not-in clause instead of a $or of single-field $eq clauses.
func consolidate(groups []docstore.AndGroup) (map[string]interface{}, bool) {
	if len(groups) == 0 {
		return nil, false
	}
	var field string
	var op docstore.Operator
	values := make([]interface{}, 0, len(groups))

	for i, group := range groups {
		if len(group) != 1 {
			return nil, false
		}
		w := group[0]
		if w.Operator != docstore.OpEq && w.Operator != docstore.OpNe {
			return nil, false
		}
		if _, isArray := asInterfaceSlice(w.Value); isArray {
			return nil, false
		}
		if i == 0 {
			field, op = w.Field, w.Operator
		} else if w.Field != field || w.Operator != op {
			return nil, false
		}
		values = append(values, w.Value)
	}

	mop := "$in"
	if op == docstore.OpNe {
		mop = "$nin"
	}
	return map[string]interface{}{field: map[string]interface{}{mop: values}}, true
}

// nativeOr renders an OrFilter as a Mango $or of $and groups. It only
// returns ok=true if every group's every clause translated natively;
// otherwise the whole OrFilter (all of its groups) falls back to a single
// ManualClause OR-of-AND evaluation, since a partially-native disjunction
// would require re-merging manual and native result sets.
func nativeOr(f docstore.OrFilter) (clause map[string]interface{}, manual [][]Predicate, ok bool) {
	groups := make([]interface{}, 0, len(f.Groups))
	for _, group := range f.Groups {
		and := make([]interface{}, 0, len(group))
		for _, w := range group {
			op, val, skip, err := normalize(w.Operator, w.Value)
			if err != nil || skip || alwaysManual[op] {
				return nil, flattenGroups(f.Groups), false
			}
			clause, ok := whereClause(docstore.WhereFilter{Field: w.Field, Operator: op, Value: val})
			if !ok {
				return nil, flattenGroups(f.Groups), false
			}
			and = append(and, clause)
		}
		groups = append(groups, map[string]interface{}{"$and": and})
	}
	return map[string]interface{}{"$or": groups}, nil, true
}

func flattenGroups(groups []docstore.AndGroup) [][]Predicate {
	out := make([][]Predicate, len(groups))
	for i, group := range groups {
		preds := make([]Predicate, len(group))
		for j, w := range group {
			preds[j] = Predicate{Field: w.Field, Operator: w.Operator, Value: w.Value}
		}
		out[i] = preds
	}
	return out
}
