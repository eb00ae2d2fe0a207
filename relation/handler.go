// Package relation implements the bidirectional/polymorphic relation
// manager: propagating a dominant-side write onto the non-dominant other
// end, cascading deletes away from dangling references, and
// materialising related documents on read.
package relation

import (
	"fmt"

	"eve.evalgo.org/docstore"
	"eve.evalgo.org/docstore/coerce"
	"eve.evalgo.org/docstore/collection"
	"eve.evalgo.org/docstore/model"
)

// RelationAttrInfo carries the shape of one relation attribute, on
// either end of the relation.
type RelationAttrInfo struct {
	ModelName   string
	Alias       string
	IsArray     bool
	IsMorph     bool
	IsMeta      bool
	ActualAlias string
	ParentAlias string
	TargetModel string
	Plugin      string
}

// RelationHandler pairs thisEnd (the attribute being written) with its
// otherEnds (the back-reference attribute(s) on the target model),
// derived from model.Attribute.Via.
type RelationHandler struct {
	thisEnd      RelationAttrInfo
	otherEnds    []RelationAttrInfo
	dominant     bool
	maxQuerySize int
}

// NewRelationHandler builds a RelationHandler for the relation attribute
// alias on owner, resolving the other end (if any) via attr.Via against
// the target model.
func NewRelationHandler(dctx *docstore.Context, owner *model.Model, alias string) (*RelationHandler, error) {
	attr, ok := owner.Attribute(alias)
	if !ok || attr.Kind() != model.KindReference {
		return nil, fmt.Errorf("relation: %q is not a reference attribute on %q", alias, owner.Name)
	}

	h := &RelationHandler{
		thisEnd: RelationAttrInfo{
			ModelName:   owner.Name,
			Alias:       alias,
			IsArray:     attr.IsArray,
			IsMorph:     attr.IsMorph,
			IsMeta:      attr.IsMeta,
			ActualAlias: attr.ActualAlias,
			ParentAlias: attr.ParentAlias,
			TargetModel: attr.Model,
			Plugin:      attr.Plugin,
		},
		dominant:     attr.Dominant,
		maxQuerySize: owner.Options.MaxQuerySize,
	}

	if attr.Via != "" && attr.Model != "" {
		target, err := dctx.Registry.GetModel(attr.Model, attr.Plugin)
		if err == nil {
			if viaAttr, ok := target.Attribute(attr.Via); ok {
				h.otherEnds = append(h.otherEnds, RelationAttrInfo{
					ModelName:   target.Name,
					Alias:       attr.Via,
					IsArray:     viaAttr.IsArray,
					IsMorph:     viaAttr.IsMorph,
					IsMeta:      viaAttr.IsMeta,
					ActualAlias: viaAttr.ActualAlias,
					ParentAlias: viaAttr.ParentAlias,
					TargetModel: owner.Name,
				})
			}
		}
	}
	return h, nil
}

// Resolver looks a model name up to its bound collection, the surface
// relation needs to query the other end and to resolve reference wire
// values back into docstore.Ref. *collection.Binder implements this
// directly via ResolveBound.
type Resolver interface {
	ResolveBound(modelName, plugin string) (collection.Bound, error)
}

func asResolver(r Resolver) coerce.CollectionResolver {
	return func(modelName, plugin string) (docstore.CollectionRef, error) {
		return r.ResolveBound(modelName, plugin)
	}
}

func maxQuerySizeOr(n int) int {
	if n <= 0 {
		return 1000
	}
	return n
}
