package collection

import (
	"context"

	"eve.evalgo.org/docstore"
	"eve.evalgo.org/docstore/model"
	"eve.evalgo.org/docstore/store"
)

// ComponentCollection is a placeholder: components are embedded inside
// whatever document references them and are never stored independently,
// so every operation but AutoID refuses.
type ComponentCollection struct {
	name    string
	binding store.Binding
}

// NewComponentCollection builds a ComponentCollection named name.
func NewComponentCollection(name string, binding store.Binding) *ComponentCollection {
	return &ComponentCollection{name: name, binding: binding}
}

func (c *ComponentCollection) Name() string { return c.name }
func (c *ComponentCollection) Path() string { return c.name }

func (c *ComponentCollection) Where(docstore.Filter) docstore.Queryable       { return c }
func (c *ComponentCollection) OrderBy(string, docstore.SortDir) docstore.Queryable { return c }
func (c *ComponentCollection) Limit(int) docstore.Queryable                  { return c }
func (c *ComponentCollection) Offset(int) docstore.Queryable                 { return c }

func (c *ComponentCollection) Get(ctx context.Context, repo docstore.Reader) (*docstore.QuerySnapshot, error) {
	return nil, &docstore.UnsupportedOperationError{Operation: "get", Reason: "components are embedded and cannot be queried independently"}
}

func (c *ComponentCollection) AutoID(ctx context.Context) (string, error) {
	return c.binding.NewID(ctx, c.name)
}

func (c *ComponentCollection) Converter() model.Converter { return model.Converter{} }

func (c *ComponentCollection) EnsureDocument(ctx context.Context, tx store.Tx) error { return nil }

func (c *ComponentCollection) WriteInternal(ctx context.Context, tx store.Tx, ref docstore.Ref, data map[string]interface{}, mode docstore.EditMode) error {
	return &docstore.UnsupportedOperationError{Operation: string(mode), Reason: "components are embedded and cannot be written independently"}
}
