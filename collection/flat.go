package collection

import (
	"context"
	"fmt"
	"sync"

	"eve.evalgo.org/docstore"
	"eve.evalgo.org/docstore/model"
	"eve.evalgo.org/docstore/query"
	"eve.evalgo.org/docstore/store"
)

// FlatCollection holds every row of a model as fields of one shared
// document at "{collectionName}/{singleId}". Reads and writes always go
// through the whole document; EnsureDocument memoises a best-effort
// merge-write of {} so later reads/writes never race document creation.
type FlatCollection struct {
	name     string
	singleID string
	binding  store.Binding
	model    *model.Model

	filters []docstore.Filter
	order   []docstore.OrderClause
	limit   int
	offset  int

	ensureMu   sync.Mutex
	ensureDone bool
}

// NewFlatCollection builds a FlatCollection bound to m, sharing document
// "name/singleID".
func NewFlatCollection(name, singleID string, binding store.Binding, m *model.Model) *FlatCollection {
	return &FlatCollection{name: name, singleID: singleID, binding: binding, model: m}
}

func (c *FlatCollection) Name() string { return c.name }
func (c *FlatCollection) Path() string { return fmt.Sprintf("%s/%s", c.name, c.singleID) }

// docRef addresses the shared flat document itself (not a row inside it).
func (c *FlatCollection) docRef() docstore.Ref {
	return docstore.NewNormalRef(dbRef{name: c.name}, c.singleID)
}

func (c *FlatCollection) clone() *FlatCollection {
	cp := *c
	cp.filters = append([]docstore.Filter(nil), c.filters...)
	cp.order = append([]docstore.OrderClause(nil), c.order...)
	return &cp
}

func (c *FlatCollection) Where(f docstore.Filter) docstore.Queryable {
	cp := c.clone()
	cp.filters = append(cp.filters, f)
	return cp
}

func (c *FlatCollection) OrderBy(field string, dir docstore.SortDir) docstore.Queryable {
	cp := c.clone()
	cp.order = append(cp.order, docstore.OrderClause{Field: field, Dir: dir})
	return cp
}

func (c *FlatCollection) Limit(n int) docstore.Queryable {
	cp := c.clone()
	cp.limit = n
	return cp
}

func (c *FlatCollection) Offset(n int) docstore.Queryable {
	cp := c.clone()
	cp.offset = n
	return cp
}

// Get fetches the whole flat document, materialises one snapshot per
// row, then applies the filter/sort/page pipeline entirely in memory —
// there is no native query to push down against a single shared document.
func (c *FlatCollection) Get(ctx context.Context, repo docstore.Reader) (*docstore.QuerySnapshot, error) {
	var whole docstore.Snapshot
	var err error
	if repo != nil {
		whole, err = repo.Get(ctx, c.docRef())
	} else {
		var snaps []docstore.Snapshot
		snaps, err = c.binding.GetAll(ctx, []docstore.Ref{c.docRef()}, nil)
		if err == nil {
			whole = snaps[0]
		}
	}
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
	for id, raw := range whole.Data() {
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

	// Sort needs the row id available for primaryKey-path ordering; we
	// fold it into each row under a synthetic key and strip it after.
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
		snaps[i] = docstore.NewSnapshot(docstore.NewDeepRef(c, id), row)
	}
	return docstore.NewQuerySnapshot(snaps), nil
}

func withIDFallback(order []docstore.OrderClause, idKey string) []docstore.OrderClause {
	out := append([]docstore.OrderClause(nil), order...)
	out = append(out, docstore.OrderClause{Field: idKey, Dir: docstore.Asc})
	return out
}

func (c *FlatCollection) AutoID(ctx context.Context) (string, error) {
	return c.binding.NewID(ctx, c.name)
}

func (c *FlatCollection) Converter() model.Converter { return c.model.Options.Converter }

// EnsureDocument guarantees the shared flat document exists, memoising
// success so later calls in the process are free; on failure the memo is
// cleared so a subsequent call retries.
func (c *FlatCollection) EnsureDocument(ctx context.Context, tx store.Tx) error {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	if c.ensureDone {
		return nil
	}

	snaps, err := tx.GetAll(ctx, []docstore.Ref{c.docRef()}, nil)
	if err != nil {
		return err
	}
	if snaps[0].Exists() {
		c.ensureDone = true
		return nil
	}
	if err := tx.Create(ctx, c.docRef(), map[string]interface{}{}); err != nil {
		return err
	}
	c.ensureDone = true
	return nil
}

// ResetEnsure clears the memo so a retried transaction re-attempts
// document creation instead of trusting a write that never committed.
func (c *FlatCollection) ResetEnsure() {
	c.ensureMu.Lock()
	c.ensureDone = false
	c.ensureMu.Unlock()
}

// WriteInternal reads the shared document, applies the row-level change,
// and writes the whole document back — the flattened-field update a Deep
// reference's write resolves to.
func (c *FlatCollection) WriteInternal(ctx context.Context, tx store.Tx, ref docstore.Ref, data map[string]interface{}, mode docstore.EditMode) error {
	if err := c.EnsureDocument(ctx, tx); err != nil {
		return err
	}

	snaps, err := tx.GetAll(ctx, []docstore.Ref{c.docRef()}, nil)
	if err != nil {
		return err
	}
	whole := snaps[0].Data()
	if whole == nil {
		whole = map[string]interface{}{}
	}

	if mode == docstore.EditModeDelete {
		delete(whole, ref.ID())
	} else {
		whole[ref.ID()] = data
	}
	return tx.Update(ctx, c.docRef(), whole)
}
