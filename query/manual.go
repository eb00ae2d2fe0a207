package query

import (
	"fmt"
	"sort"
	"strings"

	"eve.evalgo.org/docstore"
)

// Eval reports whether doc satisfies every ManualClause in clauses,
// conjoined (AND across clauses); a clause carrying OrGroups matches if
// ANY one of its AndGroups has every predicate match (OR of ANDs).
func Eval(doc map[string]interface{}, clauses []ManualClause) bool {
	for _, c := range clauses {
		if c.Predicate != nil {
			if !evalOne(doc[c.Predicate.Field], c.Predicate.Operator, c.Predicate.Value) {
				return false
			}
			continue
		}
		if !evalOrGroups(doc, c.OrGroups) {
			return false
		}
	}
	return true
}

func evalOrGroups(doc map[string]interface{}, groups [][]Predicate) bool {
	for _, group := range groups {
		matched := true
		for _, p := range group {
			if !evalOne(doc[p.Field], p.Operator, p.Value) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

func evalOne(field interface{}, op docstore.Operator, value interface{}) bool {
	switch op {
	case docstore.OpEq:
		return compareEqual(field, value)
	case docstore.OpNe:
		return !compareEqual(field, value)
	case docstore.OpLt:
		return compareOrdered(field, value) < 0
	case docstore.OpLte:
		return compareOrdered(field, value) <= 0
	case docstore.OpGt:
		return compareOrdered(field, value) > 0
	case docstore.OpGte:
		return compareOrdered(field, value) >= 0
	case docstore.OpIn:
		return membership(field, value)
	case docstore.OpNotIn:
		return !membership(field, value)
	case docstore.OpContains:
		return stringContains(field, value, false)
	case docstore.OpNContains:
		return !stringContains(field, value, false)
	case docstore.OpContainsS:
		return stringContains(field, value, true)
	case docstore.OpNContainsS:
		return !stringContains(field, value, true)
	case docstore.OpNull:
		want, _ := value.(bool)
		return (field == nil) == want
	default:
		return false
	}
}

// compareEqual implements reference-aware equality: a pair of
// docstore.Ref values compares via IsEqual so two distinct Ref instances
// for the same document are equal, falling back to string-form
// comparison for every other value shape (wire-form references, which
// are maps/strings by the time they reach a stored document, compare
// structurally equal already).
func compareEqual(a, b interface{}) bool {
	if ra, ok := a.(docstore.Ref); ok {
		if rb, ok := b.(docstore.Ref); ok {
			return ra.IsEqual(rb)
		}
		return false
	}
	return fmt.Sprint(a) == fmt.Sprint(b) && (a == nil) == (b == nil)
}

// compareOrdered compares two values as float64 when both are numeric,
// otherwise lexically by their string form. It returns -1/0/1 the way
// strings.Compare does.
func compareOrdered(a, b interface{}) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func membership(field, value interface{}) bool {
	list, ok := asInterfaceSlice(value)
	if !ok {
		return false
	}
	for _, item := range list {
		if compareEqual(field, item) {
			return true
		}
	}
	return false
}

// stringContains implements the contains/ncontains/containss/ncontainss
// family: value may be a single needle or an array of needles (OR over
// the array — field matches if it contains ANY of them). A string field
// is searched for each needle as a substring, case-insensitively unless
// caseSensitive is set; an array field matches when one of its elements
// equals a needle (compareEqual), which is how the relation manager finds
// array ends holding a reference. Any other field never matches.
func stringContains(field, value interface{}, caseSensitive bool) bool {
	if arr, ok := field.([]interface{}); ok {
		for _, item := range arr {
			if membership(item, needles(value)) {
				return true
			}
		}
		return false
	}
	s, ok := field.(string)
	if !ok {
		return false
	}
	if !caseSensitive {
		s = strings.ToLower(s)
	}
	for _, needle := range needles(value) {
		n := fmt.Sprint(needle)
		if !caseSensitive {
			n = strings.ToLower(n)
		}
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func needles(value interface{}) []interface{} {
	if list, ok := asInterfaceSlice(value); ok {
		return list
	}
	return []interface{}{value}
}

func asInterfaceSlice(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case []interface{}:
		return s, true
	case []string:
		out := make([]interface{}, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, true
	}
	return nil, false
}

// Sort orders docs in place by order, applying Go's stable sort so ties
// preserve the underlying store's original order, keeping paging
// deterministic.
func Sort(docs []map[string]interface{}, order []docstore.OrderClause) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, o := range order {
			c := compareOrdered(docs[i][o.Field], docs[j][o.Field])
			if c == 0 {
				continue
			}
			if o.Dir == docstore.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// Page applies offset/limit to docs, matching the semantics of a native
// skip+limit so manual and native paths paginate identically.
func Page(docs []map[string]interface{}, offset, limit int) []map[string]interface{} {
	if offset > 0 {
		if offset >= len(docs) {
			return nil
		}
		docs = docs[offset:]
	}
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}
