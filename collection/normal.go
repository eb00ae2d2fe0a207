package collection

import (
	"context"

	"eve.evalgo.org/docstore"
	"eve.evalgo.org/docstore/model"
	"eve.evalgo.org/docstore/query"
	"eve.evalgo.org/docstore/store"
)

// NormalCollection addresses one document per row in its own database,
// delegating queries to the store binding.
type NormalCollection struct {
	name    string
	binding store.Binding
	model   *model.Model

	filters []docstore.Filter
	order   []docstore.OrderClause
	limit   int
	offset  int
}

// NewNormalCollection builds a NormalCollection bound to m.
func NewNormalCollection(name string, binding store.Binding, m *model.Model) *NormalCollection {
	return &NormalCollection{name: name, binding: binding, model: m}
}

func (c *NormalCollection) Name() string { return c.name }
func (c *NormalCollection) Path() string { return c.name }

func (c *NormalCollection) clone() *NormalCollection {
	cp := *c
	cp.filters = append([]docstore.Filter(nil), c.filters...)
	cp.order = append([]docstore.OrderClause(nil), c.order...)
	return &cp
}

func (c *NormalCollection) Where(f docstore.Filter) docstore.Queryable {
	cp := c.clone()
	cp.filters = append(cp.filters, f)
	return cp
}

func (c *NormalCollection) OrderBy(field string, dir docstore.SortDir) docstore.Queryable {
	cp := c.clone()
	cp.order = append(cp.order, docstore.OrderClause{Field: field, Dir: dir})
	return cp
}

func (c *NormalCollection) Limit(n int) docstore.Queryable {
	cp := c.clone()
	cp.limit = n
	return cp
}

func (c *NormalCollection) Offset(n int) docstore.Queryable {
	cp := c.clone()
	cp.offset = n
	return cp
}

// Get translates the accumulated filters and fetches matching documents,
// preferring a native Mango query but always applying sort/paging in
// memory so native and manual predicates compose uniformly.
func (c *NormalCollection) Get(ctx context.Context, repo docstore.Reader) (*docstore.QuerySnapshot, error) {
	translation, err := query.Translate(docstore.PreferNative, c.filters)
	if err != nil {
		if docstore.IsEmptyQueryError(err) {
			return docstore.Empty(), nil
		}
		return nil, err
	}

	rows, err := c.binding.Query(ctx, c.name, translation.Native, nil, 0, 0)
	if err != nil {
		return nil, err
	}

	docs := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		if !query.Eval(row.Data(), translation.Manual) {
			continue
		}
		docs = append(docs, row.Data())
	}

	query.Sort(docs, c.order)
	docs = query.Page(docs, c.offset, c.limit)

	snaps := make([]docstore.Snapshot, len(docs))
	for i, d := range docs {
		id, _ := d["_id"].(string)
		snaps[i] = docstore.NewSnapshot(docstore.NewNormalRef(c, id), d)
	}
	return docstore.NewQuerySnapshot(snaps), nil
}

func (c *NormalCollection) AutoID(ctx context.Context) (string, error) {
	return c.binding.NewID(ctx, c.name)
}

func (c *NormalCollection) Converter() model.Converter { return c.model.Options.Converter }

// EnsureDocument is a no-op: a Normal ref's document is created on demand
// by WriteInternal's own Create/Update dispatch.
func (c *NormalCollection) EnsureDocument(ctx context.Context, tx store.Tx) error { return nil }

func (c *NormalCollection) WriteInternal(ctx context.Context, tx store.Tx, ref docstore.Ref, data map[string]interface{}, mode docstore.EditMode) error {
	switch mode {
	case docstore.EditModeDelete:
		return tx.Delete(ctx, ref)
	case docstore.EditModeCreate:
		return tx.Create(ctx, ref, data)
	default:
		return tx.Update(ctx, ref, data)
	}
}
