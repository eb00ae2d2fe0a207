package relation

import (
	"context"

	"eve.evalgo.org/docstore"
	"eve.evalgo.org/docstore/coerce"
)

// PopulateRelated resolves thisEnd's related document(s) and returns data
// with the relation attribute replaced by its materialised form. Dominant
// ends fetch by the refs already stored on data; non-dominant ends query
// the other side instead, since nothing is stored locally. A dangling
// reference is dropped and logged rather than failing the whole populate.
func (h *RelationHandler) PopulateRelated(ctx context.Context, dctx *docstore.Context, ref docstore.Ref, data map[string]interface{}, tx docstore.Transaction, resolver Resolver) (map[string]interface{}, error) {
	if h.dominant {
		return h.populateFromStoredRefs(ctx, dctx, data, tx, resolver)
	}
	return h.populateFromQuery(ctx, dctx, ref, data, tx, resolver)
}

func (h *RelationHandler) populateFromStoredRefs(ctx context.Context, dctx *docstore.Context, data map[string]interface{}, tx docstore.Transaction, resolver Resolver) (map[string]interface{}, error) {
	refs, err := h.parseRefs(data[h.thisEnd.Alias], resolver)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return data, nil
	}

	snaps, err := tx.GetNonAtomicRefs(ctx, refs, docstore.GetOpts{})
	if err != nil {
		return nil, err
	}

	populated := make([]interface{}, 0, len(snaps))
	for _, snap := range snaps {
		if !snap.Exists() {
			warnDangling(dctx, snap.Ref, "referenced document no longer exists")
			continue
		}
		populated = append(populated, populatedValue(snap.Ref, snap.Data()))
	}

	out := copyMap(data)
	if h.thisEnd.IsArray {
		out[h.thisEnd.Alias] = populated
	} else if len(populated) > 0 {
		out[h.thisEnd.Alias] = populated[0]
	} else {
		out[h.thisEnd.Alias] = nil
	}
	return out, nil
}

func (h *RelationHandler) populateFromQuery(ctx context.Context, dctx *docstore.Context, ref docstore.Ref, data map[string]interface{}, tx docstore.Transaction, resolver Resolver) (map[string]interface{}, error) {
	out := copyMap(data)
	if len(h.otherEnds) == 0 {
		return out, nil
	}
	other := h.otherEnds[0]

	otherColl, err := resolver.ResolveBound(other.ModelName, "")
	if err != nil {
		return nil, err
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
		return nil, err
	}

	populated := make([]interface{}, 0, len(snap.Docs))
	for _, doc := range snap.Docs {
		if !doc.Exists() {
			warnDangling(dctx, doc.Ref, "referenced document no longer exists")
			continue
		}
		populated = append(populated, populatedValue(doc.Ref, doc.Data()))
	}

	if h.thisEnd.IsArray {
		out[h.thisEnd.Alias] = populated
	} else if len(populated) > 0 {
		out[h.thisEnd.Alias] = populated[0]
	} else {
		out[h.thisEnd.Alias] = nil
	}
	return out, nil
}

// populatedValue attaches the fetched document body onto the reference's
// wire shape under "data", so a populated value still round-trips through
// coerce.ResolveRef (which only reads the "ref"/"id"/"filter" keys) while
// also carrying the materialised document.
func populatedValue(ref docstore.Ref, data map[string]interface{}) interface{} {
	wire := coerce.RefToWire(ref)
	switch v := wire.(type) {
	case map[string]interface{}:
		v["data"] = data
		return v
	default:
		return map[string]interface{}{"ref": v, "data": data}
	}
}

func warnDangling(dctx *docstore.Context, ref docstore.Ref, reason string) {
	w := &docstore.DanglingReferenceWarning{Ref: ref, Reason: reason}
	if dctx != nil && dctx.Logger != nil {
		dctx.Logger.Warn(w.Error())
	}
}
