package collection

import (
	"context"

	"github.com/google/uuid"

	"eve.evalgo.org/docstore"
	"eve.evalgo.org/docstore/model"
	"eve.evalgo.org/docstore/query"
	"eve.evalgo.org/docstore/store"
)

// VirtualCollection holds an in-memory {id → row} map lazily fetched from
// a store.DataSource rather than the primary document store. Writes to it
// do not require the underlying store's transaction to participate, which
// is why a ReadOnlyTransaction is still allowed to write Virtual refs.
type VirtualCollection struct {
	name   string
	source store.DataSource
	model  *model.Model

	filters []docstore.Filter
	order   []docstore.OrderClause
	limit   int
	offset  int
}

// NewVirtualCollection builds a VirtualCollection named name, backed by
// source.
func NewVirtualCollection(name string, source store.DataSource, m *model.Model) *VirtualCollection {
	return &VirtualCollection{name: name, source: source, model: m}
}

func (c *VirtualCollection) Name() string { return c.name }
func (c *VirtualCollection) Path() string { return c.name }

func (c *VirtualCollection) clone() *VirtualCollection {
	cp := *c
	cp.filters = append([]docstore.Filter(nil), c.filters...)
	cp.order = append([]docstore.OrderClause(nil), c.order...)
	return &cp
}

func (c *VirtualCollection) Where(f docstore.Filter) docstore.Queryable {
	cp := c.clone()
	cp.filters = append(cp.filters, f)
	return cp
}

func (c *VirtualCollection) OrderBy(field string, dir docstore.SortDir) docstore.Queryable {
	cp := c.clone()
	cp.order = append(cp.order, docstore.OrderClause{Field: field, Dir: dir})
	return cp
}

func (c *VirtualCollection) Limit(n int) docstore.Queryable {
	cp := c.clone()
	cp.limit = n
	return cp
}

func (c *VirtualCollection) Offset(n int) docstore.Queryable {
	cp := c.clone()
	cp.offset = n
	return cp
}

// GetData fetches the backing row map directly, for callers (the
// relation manager's meta-map handling, tests) that need the raw map
// rather than a filtered/sorted QuerySnapshot.
func (c *VirtualCollection) GetData(ctx context.Context) (map[string]interface{}, error) {
	return c.source.GetData(ctx, c.name)
}

// UpdateData persists data back to the source wholesale, replacing
// whatever row map the source currently holds for this collection.
func (c *VirtualCollection) UpdateData(ctx context.Context, data map[string]interface{}) error {
	return c.source.SetData(ctx, c.name, data)
}

func (c *VirtualCollection) Get(ctx context.Context, repo docstore.Reader) (*docstore.QuerySnapshot, error) {
	whole, err := c.source.GetData(ctx, c.name)
	if err != nil {
		return nil, err
	}

	translation, err := query.Translate(docstore.ManualOnly, c.filters)
	if err != nil {
		if docstore.IsEmptyQueryError(err) {
			return docstore.Empty(), nil
		}
		return nil, err
	}

	var docs []map[string]interface{}
	var ids []string
	for id, raw := range whole {
		row, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if !query.Eval(row, translation.Manual) {
			continue
		}
		docs = append(docs, row)
		ids = append(ids, id)
	}

	const idKey = "\x00id"
	for i, row := range docs {
		row[idKey] = ids[i]
	}
	query.Sort(docs, withIDFallback(c.order, idKey))
	docs = query.Page(docs, c.offset, c.limit)

	snaps := make([]docstore.Snapshot, len(docs))
	for i, row := range docs {
		id, _ := row[idKey].(string)
		delete(row, idKey)
		snaps[i] = docstore.NewSnapshot(docstore.NewVirtualRef(c, id), row)
	}
	return docstore.NewQuerySnapshot(snaps), nil
}

// AutoID mints a row id for a virtual collection, which has no store
// allocator of its own to delegate to.
func (c *VirtualCollection) AutoID(ctx context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (c *VirtualCollection) Converter() model.Converter { return c.model.Options.Converter }

// EnsureDocument is a no-op: a virtual row map is created lazily by
// store.DataSource.GetData returning an empty map when absent.
func (c *VirtualCollection) EnsureDocument(ctx context.Context, tx store.Tx) error { return nil }

// WriteInternal loads the whole row map, applies the single-row change,
// and writes it back via UpdateData.
func (c *VirtualCollection) WriteInternal(ctx context.Context, tx store.Tx, ref docstore.Ref, data map[string]interface{}, mode docstore.EditMode) error {
	whole, err := c.source.GetData(ctx, c.name)
	if err != nil {
		return err
	}
	if whole == nil {
		whole = map[string]interface{}{}
	}

	switch mode {
	case docstore.EditModeCreate:
		if _, exists := whole[ref.ID()]; exists {
			return &docstore.UnsupportedOperationError{Operation: "create", Reason: "virtual row already exists"}
		}
		whole[ref.ID()] = data
	case docstore.EditModeDelete:
		delete(whole, ref.ID())
	default:
		if _, exists := whole[ref.ID()]; !exists {
			return &docstore.UnsupportedOperationError{Operation: string(mode), Reason: "virtual row does not exist"}
		}
		whole[ref.ID()] = data
	}
	return c.source.SetData(ctx, c.name, whole)
}
