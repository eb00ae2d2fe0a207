package relation

import (
	"context"

	"eve.evalgo.org/docstore"
	"eve.evalgo.org/docstore/coerce"
	"eve.evalgo.org/docstore/store"
)

// Update propagates a dominant-side write onto the other end(s), or
// cascades a non-dominant row's deletion away from dangling references.
// prev and next are the document's field maps in their coerced,
// wire-shape form (the same maps CoerceDocument produced).
func (h *RelationHandler) Update(ctx context.Context, dctx *docstore.Context, ref docstore.Ref, prev, next map[string]interface{}, editMode docstore.EditMode, tx docstore.Transaction, resolver Resolver) error {
	if !h.dominant {
		if editMode == docstore.EditModeDelete {
			return h.cascadeDelete(ctx, ref, tx, resolver)
		}
		return nil
	}

	if editMode == docstore.EditModeUpdate {
		if _, exists := next[h.thisEnd.Alias]; !exists {
			return nil
		}
	}

	prevRefs, err := h.parseRefs(prev[h.thisEnd.Alias], resolver)
	if err != nil {
		return err
	}
	newRefs, err := h.parseRefs(next[h.thisEnd.Alias], resolver)
	if err != nil {
		return err
	}

	if h.thisEnd.IsArray {
		next[h.thisEnd.Alias] = coerce.RefsToWire(newRefs)
	} else if len(newRefs) > 0 {
		next[h.thisEnd.Alias] = coerce.RefToWire(newRefs[0])
	} else {
		next[h.thisEnd.Alias] = nil
	}

	prevSet := docstore.NewRefSet(prevRefs...)
	newSet := docstore.NewRefSet(newRefs...)
	added, removed := prevSet.Diff(newSet)

	for _, other := range h.otherEnds {
		for _, target := range added {
			if err := h.propagate(ctx, other, target, ref, true, tx); err != nil {
				return err
			}
		}
		for _, target := range removed {
			if err := h.propagate(ctx, other, target, ref, false, tx); err != nil {
				return err
			}
		}
	}
	return nil
}

// propagate writes (or clears) the other end's alias on target, wrapping
// ref in Morph with thisEnd's alias as filter when other is polymorphic.
func (h *RelationHandler) propagate(ctx context.Context, other RelationAttrInfo, target, ref docstore.Ref, add bool, tx docstore.Transaction) error {
	wrapped := ref
	if other.IsMorph && !wrapped.IsMorph() {
		wrapped = docstore.NewMorphRef(wrapped, h.thisEnd.Alias)
	}
	return writeOtherAlias(ctx, other, target, coerce.RefToWire(wrapped), add, tx)
}

// cascadeDelete removes every dangling reference to ref from the other
// end's collection after a non-dominant row is deleted.
func (h *RelationHandler) cascadeDelete(ctx context.Context, ref docstore.Ref, tx docstore.Transaction, resolver Resolver) error {
	for _, other := range h.otherEnds {
		otherColl, err := resolver.ResolveBound(other.ModelName, "")
		if err != nil {
			return err
		}

		wrapped := ref
		if other.IsMorph {
			wrapped = docstore.NewMorphRef(ref, h.thisEnd.Alias)
		}
		wireVal := coerce.RefToWire(wrapped)

		op := docstore.OpEq
		if other.IsArray || other.IsMeta {
			op = docstore.OpContains
		}
		q := otherColl.Where(docstore.WhereFilter{Field: other.Alias, Operator: op, Value: wireVal}).
			Limit(maxQuerySizeOr(h.maxQuerySize))

		snap, err := tx.GetNonAtomicQuery(ctx, q)
		if err != nil {
			return err
		}
		for _, doc := range snap.Docs {
			if err := writeOtherAlias(ctx, other, doc.Ref, wireVal, false, tx); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeOtherAlias applies one add/remove onto other's alias at docRef,
// handling the plain, array, and meta/index-map shapes.
func writeOtherAlias(ctx context.Context, other RelationAttrInfo, docRef docstore.Ref, wireVal interface{}, add bool, tx docstore.Transaction) error {
	if other.IsMeta {
		return applyMeta(ctx, other, docRef, wireVal, add, tx)
	}
	if other.IsArray {
		op := arrayOp(add, wireVal)
		return tx.MergeWriteInternal(docRef, map[string]interface{}{other.Alias: op}, docstore.EditModeUpdate)
	}
	var val interface{}
	if add {
		val = wireVal
	}
	return tx.MergeWriteInternal(docRef, map[string]interface{}{other.Alias: val}, docstore.EditModeUpdate)
}

// applyMeta atomically reads the document holding the repeatable
// component, walks parentAlias[*].componentAlias, and applies the
// union/remove element-wise before writing the whole document back.
func applyMeta(ctx context.Context, other RelationAttrInfo, docRef docstore.Ref, wireVal interface{}, add bool, tx docstore.Transaction) error {
	snap, err := tx.GetAtomic(ctx, docRef, docstore.GetOpts{})
	if err != nil {
		return err
	}
	data := map[string]interface{}{}
	if snap.Exists() {
		data = copyMap(snap.Data())
	}

	rows, _ := data[other.ParentAlias].([]interface{})
	op := arrayOp(add, wireVal)
	for i, item := range rows {
		row, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		op.Apply(row, other.ActualAlias)
		rows[i] = row
	}
	data[other.ParentAlias] = rows
	return tx.MergeWriteInternal(docRef, data, docstore.EditModeUpdate)
}

func arrayOp(add bool, v interface{}) store.FieldOp {
	if add {
		return store.ArrayUnion(v)
	}
	return store.ArrayRemove(v)
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// parseRefs resolves a relation attribute's stored wire value (nil, a
// single wire shape, or an array of them) back into Refs.
func (h *RelationHandler) parseRefs(val interface{}, resolver Resolver) ([]docstore.Ref, error) {
	if val == nil {
		return nil, nil
	}
	resolve := asResolver(resolver)

	if h.thisEnd.IsArray {
		items, ok := val.([]interface{})
		if !ok {
			return nil, &docstore.ReferenceShapeError{Value: val, TargetModel: h.thisEnd.TargetModel, Reason: "expected an array of references"}
		}
		refs := make([]docstore.Ref, 0, len(items))
		for _, item := range items {
			ref, err := coerce.ResolveRef(resolve, item, h.thisEnd.TargetModel, h.thisEnd.Plugin, "")
			if err != nil {
				return nil, err
			}
			refs = append(refs, ref)
		}
		return refs, nil
	}

	ref, err := coerce.ResolveRef(resolve, val, h.thisEnd.TargetModel, h.thisEnd.Plugin, "")
	if err != nil {
		return nil, err
	}
	return []docstore.Ref{ref}, nil
}
