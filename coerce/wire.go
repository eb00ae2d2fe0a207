package coerce

import (
	"fmt"

	"eve.evalgo.org/docstore"
)

// RefToWire converts a resolved docstore.Ref back into the JSON-safe wire
// shape CoerceDocument stores on a reference attribute — the mirror of
// ResolveRef. A live docstore.Ref cannot be marshaled directly (its fields
// are unexported by design, being a value-typed tagged reference), so
// every reference leaving coercion is rendered to one of the shapes
// ResolveRef already knows how to parse back.
func RefToWire(ref docstore.Ref) interface{} {
	if ref.IsMorph() {
		inner := ref.Inner()
		m := refToWireMap(inner)
		m["filter"] = ref.Filter()
		return m
	}
	switch ref.Kind() {
	case docstore.KindDeep:
		return refToWireMap(ref)
	default:
		return refToWireString(ref)
	}
}

func refToWireMap(ref docstore.Ref) map[string]interface{} {
	if ref.Kind() == docstore.KindDeep {
		// The shared flat document's own ref ("/{collection}/{singleId}").
		return map[string]interface{}{"ref": "/" + ref.Parent().Path(), "id": ref.ID()}
	}
	return map[string]interface{}{"ref": refToWireString(ref)}
}

func refToWireString(ref docstore.Ref) string {
	return fmt.Sprintf("/%s/%s", ref.Parent().Name(), ref.ID())
}

// RefsToWire applies RefToWire across a slice, for IsArray reference
// attributes.
func RefsToWire(refs []docstore.Ref) []interface{} {
	out := make([]interface{}, len(refs))
	for i, ref := range refs {
		out[i] = RefToWire(ref)
	}
	return out
}
