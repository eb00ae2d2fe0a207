package coerce

import (
	"strings"

	"eve.evalgo.org/docstore"
	"eve.evalgo.org/docstore/model"
)

// coerceToReference resolves an attribute's raw value to a Ref. It
// accepts a docstore.Ref already, one of the wire-shape maps (Deep,
// Morph(Normal)/Morph(Deep), or the JSON-only Morph descriptor), or a
// string (bare id when attr.Model is known, or a "/collection/id" /
// "/collection/singleId/id" qualified path), resolves it to a Ref
// through opts.ResolveCollection, and returns that Ref's wire shape
// (RefToWire).
func coerceToReference(ctx *docstore.Context, attr model.Attribute, val interface{}, opts Options) (interface{}, error) {
	if val == nil {
		return nil, nil
	}
	if opts.ResolveCollection == nil {
		return nil, &docstore.UnsupportedOperationError{Operation: "coerceToReference", Reason: "no collection resolver configured"}
	}

	ref, err := ResolveRef(opts.ResolveCollection, val, attr.Model, attr.Plugin, attr.Collection)
	if err != nil {
		if opts.Strict {
			return nil, err
		}
		if ctx != nil && ctx.Logger != nil {
			ctx.Logger.WithError(err).Warn("lenient reference resolution failed, storing null")
		}
		return nil, nil
	}

	if !checkTarget(ref, attr.Model) && !opts.IgnoreMismatchedReferences {
		return nil, &docstore.ReferenceShapeError{Value: val, TargetModel: attr.Model, ActualModel: ref.Parent().Name()}
	}

	if attr.IsMorph && !ref.IsMorph() {
		ref = docstore.NewMorphRef(ref, attr.Name)
	}
	return RefToWire(ref), nil
}

func checkTarget(ref docstore.Ref, targetModel string) bool {
	if targetModel == "" {
		return true
	}
	actual := ref.Parent()
	if ref.IsMorph() {
		actual = ref.Inner().Parent()
	}
	return actual == nil || actual.Name() == targetModel
}

// ResolveRef resolves val to a Ref without applying the Morph-wrapping or
// target-model-mismatch policy a schema attribute governs; it is exported so the
// relation manager can reuse it for wire values that are not attached to
// a schema attribute.
func ResolveRef(resolve CollectionResolver, val interface{}, targetModel, plugin, collectionPath string) (docstore.Ref, error) {
	switch v := val.(type) {
	case docstore.Ref:
		return v, nil

	case map[string]interface{}:
		return resolveRefMap(resolve, v, targetModel, plugin)

	case string:
		return resolveRefString(resolve, v, targetModel, plugin)
	}
	return docstore.Ref{}, &docstore.ReferenceShapeError{Value: val, TargetModel: targetModel, Reason: "unrecognized reference shape"}
}

func resolveRefMap(resolve CollectionResolver, m map[string]interface{}, targetModel, plugin string) (docstore.Ref, error) {
	// JSON-only Morph descriptor: {ref: modelName, kind: globalId, source: plugin, refId: id, field: filter}.
	if refID, ok := m["refId"]; ok {
		modelName, _ := m["ref"].(string)
		source, _ := m["source"].(string)
		id, _ := refID.(string)
		coll, err := resolve(modelName, source)
		if err != nil {
			return docstore.Ref{}, &docstore.ReferenceShapeError{Value: m, TargetModel: modelName, Reason: err.Error()}
		}
		inner := docstore.NewNormalRef(coll, id)
		if filter, _ := m["field"].(string); filter != "" {
			return docstore.NewMorphRef(inner, filter), nil
		}
		return inner, nil
	}

	pathVal, hasRef := m["ref"].(string)
	if !hasRef {
		return docstore.Ref{}, &docstore.ReferenceShapeError{Value: m, TargetModel: targetModel, Reason: "missing ref field"}
	}

	coll, err := resolve(targetModel, plugin)
	if err != nil {
		return docstore.Ref{}, &docstore.ReferenceShapeError{Value: m, TargetModel: targetModel, Reason: err.Error()}
	}

	var inner docstore.Ref
	if idVal, ok := m["id"]; ok {
		// Deep wire shape: {ref: DocRef(flatDoc), id}.
		id, _ := idVal.(string)
		inner = docstore.NewDeepRef(coll, id)
	} else {
		// Morph(Normal) wire shape: {ref: DocRef(target), filter}.
		id := lastSegment(pathVal)
		inner = docstore.NewNormalRef(coll, id)
	}

	if filter, _ := m["filter"].(string); filter != "" {
		return docstore.NewMorphRef(inner, filter), nil
	}
	return inner, nil
}

func resolveRefString(resolve CollectionResolver, s, targetModel, plugin string) (docstore.Ref, error) {
	if strings.HasPrefix(s, "/") {
		parts := strings.Split(strings.Trim(s, "/"), "/")
		switch len(parts) {
		case 2:
			coll, err := resolve(parts[0], plugin)
			if err != nil {
				return docstore.Ref{}, &docstore.ReferenceShapeError{Value: s, TargetModel: parts[0], Reason: err.Error()}
			}
			return docstore.NewNormalRef(coll, parts[1]), nil
		case 3:
			// Legacy Deep string form: "/collection/singleId/id".
			coll, err := resolve(parts[0], plugin)
			if err != nil {
				return docstore.Ref{}, &docstore.ReferenceShapeError{Value: s, TargetModel: parts[0], Reason: err.Error()}
			}
			return docstore.NewDeepRef(coll, parts[2]), nil
		}
		return docstore.Ref{}, &docstore.ReferenceShapeError{Value: s, TargetModel: targetModel, Reason: "unrecognized qualified reference path"}
	}

	if targetModel == "" {
		return docstore.Ref{}, &docstore.ReferenceShapeError{Value: s, Reason: "bare id requires a known target model"}
	}
	coll, err := resolve(targetModel, plugin)
	if err != nil {
		return docstore.Ref{}, &docstore.ReferenceShapeError{Value: s, TargetModel: targetModel, Reason: err.Error()}
	}
	return docstore.NewNormalRef(coll, s), nil
}

func lastSegment(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}
