// Package model reifies the host content model as a plain value: Model,
// Attribute, and the process-wide Registry used to look models up by
// name or by collection path. Nothing here depends on the docstore
// package; it is pure schema data plus a lookup contract.
package model

import "fmt"

// AttrType enumerates the primitive attribute types the coercion layer
// knows how to convert.
type AttrType string

const (
	TypeInteger     AttrType = "integer"
	TypeFloat       AttrType = "float"
	TypeDecimal     AttrType = "decimal"
	TypeBigInteger  AttrType = "biginteger"
	TypeString      AttrType = "string"
	TypeText        AttrType = "text"
	TypeEmail       AttrType = "email"
	TypePassword    AttrType = "password"
	TypeUID         AttrType = "uid"
	TypeJSON        AttrType = "json"
	TypeDate        AttrType = "date"
	TypeTime        AttrType = "time"
	TypeDateTime    AttrType = "datetime"
	TypeTimestamp   AttrType = "timestamp"
	TypeBoolean     AttrType = "boolean"
	TypeEnumeration AttrType = "enumeration"
)

// Attribute describes one field of a Model. Exactly one of Type,
// Component, Components, Model+Collection (a reference) may be set —
// callers should use Kind() rather than inspecting fields directly.
type Attribute struct {
	Name string

	// Primitive attribute.
	Type AttrType
	// Enumeration values, only meaningful when Type == TypeEnumeration.
	Enum []string

	// Single-component attribute: the component's own Model name.
	Component string
	// Dynamic-zone attribute: allowed component Model names.
	Components []string

	// Reference attribute.
	Model      string // target model name
	Collection string // target model's plugin-qualified collection, if any
	Plugin     string

	// Via names the relation attribute on the other side, for
	// non-dominant ends.
	Via string
	// Dominant marks this end as the source of truth for a relation.
	Dominant bool
	// IsArray marks a has-many / many-to-many end.
	IsArray bool
	// IsMorph marks a polymorphic relation end; values are wrapped in a
	// Morph ref using the local alias as filter.
	IsMorph bool
	// IsMeta marks an attribute that is stored inside each element of a
	// repeatable component rather than at the document's top level (the
	// "meta/index map" case). ActualAlias is the field name inside each
	// component element; ParentAlias (set on the RelationAttrInfo built
	// from this Attribute) is the repeatable component's own alias.
	IsMeta      bool
	ActualAlias string
	ParentAlias string
}

// Kind classifies an Attribute for dispatch.
type Kind int

const (
	KindPrimitive Kind = iota
	KindComponent
	KindDynamicZone
	KindReference
)

// Kind reports which of the four attribute shapes a is, enforcing the
// "type XOR (component|components|model|collection)" invariant by
// construction: exactly one branch below can be true for a well-formed
// Attribute.
func (a Attribute) Kind() Kind {
	switch {
	case a.Component != "":
		return KindComponent
	case len(a.Components) > 0:
		return KindDynamicZone
	case a.Model != "" || a.Collection != "":
		return KindReference
	default:
		return KindPrimitive
	}
}

// Options carries the per-model configuration a host exposes under
// model.options.
type Options struct {
	Flatten                   bool
	SingleID                  string
	VirtualDataSource         string
	Timestamps                bool
	MaxQuerySize              int
	IgnoreMismatchedReferences bool
	EnsureComponentIDs        bool
	OnChange                  OnChangeHook
	Converter                 Converter
}

// Converter holds the optional to/from-store hooks a model can supply,
// applied in addition to (not instead of) the coercion layer's own
// type-directed conversion.
type Converter struct {
	ToStore   func(map[string]interface{}) map[string]interface{}
	FromStore func(map[string]interface{}) map[string]interface{}
}

// OnChangeHook is invoked by the lifecycle between coercion and relation
// propagation on an update. Its parameters are passed as interface{} to
// keep this leaf package free of a dependency on docstore/txn; the
// lifecycle package passes prev and next as the documents'
// map[string]interface{} data, tx as a docstore.Transaction and ref as a
// docstore.Ref. It may
// return a non-nil success-hook callback, which the lifecycle registers
// via tx.AddSuccessHook.
type OnChangeHook func(prev, next interface{}, tx interface{}, ref interface{}) (func(), error)

// Model is the external, host-owned description of a content type.
// Exactly one Collection is bound to a Model for the life of the process.
type Model struct {
	Name          string
	PrimaryKey    string
	Attributes    map[string]Attribute
	Associations  []string
	ComponentKeys []string
	IsComponent   bool
	Options       Options
}

// Attribute looks up an attribute by alias, reporting whether it exists.
func (m *Model) Attribute(alias string) (Attribute, bool) {
	a, ok := m.Attributes[alias]
	return a, ok
}

// Registry is the process-wide model lookup surface. It is an explicit
// value threaded through Collection and coerceToReference, rather than a
// package-level global.
type Registry interface {
	GetModel(name, plugin string) (*Model, error)
	GetModelByCollectionName(path string) (*Model, error)
}

// ErrModelNotFound is returned by a Registry when no model matches.
type ErrModelNotFound struct {
	Name, Plugin string
}

func (e *ErrModelNotFound) Error() string {
	if e.Plugin != "" {
		return fmt.Sprintf("model %q (plugin %q) not found", e.Name, e.Plugin)
	}
	return fmt.Sprintf("model %q not found", e.Name)
}
