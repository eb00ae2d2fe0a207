// Package collection provides the four Queryable implementations a bound
// content model can use — NormalCollection, FlatCollection,
// VirtualCollection, ComponentCollection — plus the Binder that ties a
// model.Model to its one bound Collection and doubles as the
// coerce.CollectionResolver used to resolve reference attributes. Each
// model gets exactly one collection, dispatched by model.Options, in
// place of a single fixed connection to one database.
package collection

import (
	"context"
	"fmt"
	"sync"

	"eve.evalgo.org/docstore"
	"eve.evalgo.org/docstore/model"
	"eve.evalgo.org/docstore/store"
)

// Writable is the low-level write surface every concrete collection
// offers the transaction commit path: WriteInternal bypasses coercion
// and lifecycle hooks entirely and is the path a transaction's commit
// step uses once data has already been coerced and merged.
type Writable interface {
	AutoID(ctx context.Context) (string, error)
	WriteInternal(ctx context.Context, tx store.Tx, ref docstore.Ref, data map[string]interface{}, mode docstore.EditMode) error
	Converter() model.Converter

	// EnsureDocument guarantees whatever backing document a write needs
	// already exists before the write is attempted. Only FlatCollection
	// does real work here; every other collection is a no-op.
	EnsureDocument(ctx context.Context, tx store.Tx) error
}

// Bound is the full surface a transaction, lifecycle, or relation
// manager needs from a collection bound to a model.
type Bound interface {
	docstore.CollectionRef
	docstore.Queryable
	Writable
}

// dbRef is the minimal docstore.CollectionRef for a top-level database
// name, used internally to address whole documents (e.g. a Flat
// collection's shared document) independent of row-level semantics.
type dbRef struct{ name string }

func (d dbRef) Name() string { return d.name }
func (d dbRef) Path() string { return d.name }

// Binder binds each model.Model to exactly one Bound collection,
// dispatched by model.Options, and registers the binding with the
// model.Registry so coerce.ResolveRef / lifecycle lookups can find it.
type Binder struct {
	binding  store.Binding
	virtual  store.DataSource
	registry model.Registry

	mu      sync.RWMutex
	byModel map[string]Bound
}

// NewBinder builds a Binder. virtual may be nil if no model in the
// registry declares a virtualDataSource.
func NewBinder(binding store.Binding, virtual store.DataSource, registry model.Registry) *Binder {
	return &Binder{binding: binding, virtual: virtual, registry: registry, byModel: make(map[string]Bound)}
}

// Bind creates (or returns the previously created) Bound collection for
// m, registering it with the model registry under its collection path.
func (b *Binder) Bind(m *model.Model) (Bound, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.byModel[m.Name]; ok {
		return existing, nil
	}

	var c Bound
	switch {
	case m.IsComponent:
		c = NewComponentCollection(m.Name, b.binding)
	case m.Options.Flatten:
		if m.Options.SingleID == "" {
			return nil, fmt.Errorf("collection: model %q is flattened but has no singleId configured", m.Name)
		}
		c = NewFlatCollection(m.Name, m.Options.SingleID, b.binding, m)
	case m.Options.VirtualDataSource != "":
		if b.virtual == nil {
			return nil, fmt.Errorf("collection: model %q requires a virtual data source, none configured", m.Name)
		}
		c = NewVirtualCollection(m.Options.VirtualDataSource, b.virtual, m)
	default:
		c = NewNormalCollection(m.Name, b.binding, m)
	}

	b.byModel[m.Name] = c
	if reg, ok := b.registry.(*model.MapRegistry); ok {
		reg.Register(m, c.Path())
	}
	return c, nil
}

// Resolve implements coerce.CollectionResolver: it returns the collection
// already bound under modelName (plugin plays no part in that lookup,
// since Bind keys by model name alone); otherwise it looks the model up in
// the registry by name and plugin and binds it.
func (b *Binder) Resolve(modelName, plugin string) (docstore.CollectionRef, error) {
	if c, ok := b.Get(modelName); ok {
		return c, nil
	}
	m, err := b.registry.GetModel(modelName, plugin)
	if err != nil {
		return nil, err
	}
	return b.Bind(m)
}

// Get looks up the already-bound collection for modelName without
// binding it, for callers (relation manager, lifecycle) that expect the
// model to already be registered.
func (b *Binder) Get(modelName string) (Bound, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.byModel[modelName]
	return c, ok
}

// ResolveBound is Resolve's counterpart for callers that need the full
// Bound surface (Where/Limit/WriteInternal) rather than the narrower
// docstore.CollectionRef coerce.CollectionResolver expects — the relation
// manager queries and writes the other end of a relation through this.
func (b *Binder) ResolveBound(modelName, plugin string) (Bound, error) {
	if c, ok := b.Get(modelName); ok {
		return c, nil
	}
	m, err := b.registry.GetModel(modelName, plugin)
	if err != nil {
		return nil, err
	}
	return b.Bind(m)
}
