package store

import "reflect"

// FieldOpKind enumerates the field-level write sentinels every binding
// must understand: delete, increment, arrayUnion, and arrayRemove.
type FieldOpKind int

const (
	FieldOpDelete FieldOpKind = iota
	FieldOpIncrement
	FieldOpArrayUnion
	FieldOpArrayRemove
)

// FieldOp is a sentinel value a caller places at some key of the data map
// passed to Tx.Update in place of a literal value. Bindings that coalesce
// writes per document (the simulated-transaction model in txn) must merge
// a later FieldOp onto an earlier one or onto a literal using Apply rather
// than overwriting it outright.
type FieldOp struct {
	Kind  FieldOpKind
	Value interface{}
}

// Delete returns a sentinel that removes key from the document entirely.
func Delete() FieldOp { return FieldOp{Kind: FieldOpDelete} }

// Increment returns a sentinel that adds by to the field's current
// numeric value (treating a missing field as zero).
func Increment(by float64) FieldOp { return FieldOp{Kind: FieldOpIncrement, Value: by} }

// ArrayUnion returns a sentinel that appends v to the field's array value
// if v is not already present, creating the array if the field is unset.
func ArrayUnion(v interface{}) FieldOp { return FieldOp{Kind: FieldOpArrayUnion, Value: v} }

// ArrayRemove returns a sentinel that removes every occurrence of v from
// the field's array value.
func ArrayRemove(v interface{}) FieldOp { return FieldOp{Kind: FieldOpArrayRemove, Value: v} }

// Apply replays op onto obj[key] in place, resolving the sentinel against
// whatever value (literal or absent) currently occupies that key. It is
// used by txn's ReadWriteTransaction commit, which replays queued
// sentinels onto the merged document before flushing, and by the relation
// manager's meta-block updates. vstore and VirtualCollection.WriteInternal
// do not call it: they store the row values they are given as is.
func (op FieldOp) Apply(obj map[string]interface{}, key string) {
	switch op.Kind {
	case FieldOpDelete:
		delete(obj, key)
	case FieldOpIncrement:
		cur, _ := obj[key].(float64)
		delta, _ := op.Value.(float64)
		obj[key] = cur + delta
	case FieldOpArrayUnion:
		arr := asSlice(obj[key])
		if !containsValue(arr, op.Value) {
			arr = append(arr, op.Value)
		}
		obj[key] = arr
	case FieldOpArrayRemove:
		arr := asSlice(obj[key])
		out := make([]interface{}, 0, len(arr))
		for _, v := range arr {
			if !equalValue(v, op.Value) {
				out = append(out, v)
			}
		}
		obj[key] = out
	}
}

func asSlice(v interface{}) []interface{} {
	if v == nil {
		return nil
	}
	if s, ok := v.([]interface{}); ok {
		return s
	}
	return nil
}

func containsValue(arr []interface{}, v interface{}) bool {
	for _, item := range arr {
		if equalValue(item, v) {
			return true
		}
	}
	return false
}

// equalValue compares via reflect.DeepEqual rather than ==, since array
// relation fields hold Deep/Morph reference wire shapes (map[string]
// interface{}), an uncomparable type that would panic under ==.
func equalValue(a, b interface{}) bool {
	return reflect.DeepEqual(a, b)
}

// IsFieldOp reports whether v is a field-op sentinel, letting a binding
// distinguish a literal write value from one it must resolve via Apply.
func IsFieldOp(v interface{}) (FieldOp, bool) {
	op, ok := v.(FieldOp)
	return op, ok
}
