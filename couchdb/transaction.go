package couchdb

import (
	"context"
	"fmt"

	kivik "github.com/go-kivik/kivik/v4"

	"eve.evalgo.org/docstore"
	"eve.evalgo.org/docstore/store"
)

// writeEntry is one buffered document write, keyed by ref path; it can
// carry either a document body or a delete marker.
type writeEntry struct {
	ref     docstore.Ref
	data    map[string]interface{}
	deleted bool
}

// tx buffers every write issued inside one RunTransaction callback and
// leaves reads to pass straight through to the Binding, since CouchDB has
// no native multi-document transaction to join — this is a simulated
// transaction. The write-coalescing and conflict-retry behavior callers
// actually depend on lives one layer up, in the txn package's
// ReadWriteTransaction; this tx only guarantees that every buffered write
// reaches one BulkDocs call per collection.
type tx struct {
	b       *Binding
	writes  map[string]*writeEntry
	order   []string
}

func newTx(b *Binding) *tx {
	return &tx{b: b, writes: make(map[string]*writeEntry)}
}

func (t *tx) GetAll(ctx context.Context, refs []docstore.Ref, fieldMask []string) ([]docstore.Snapshot, error) {
	return t.b.GetAll(ctx, refs, fieldMask)
}

func (t *tx) Query(ctx context.Context, collection string, sel docstore.NativeFilter, order []docstore.OrderClause, limit, offset int) ([]docstore.Snapshot, error) {
	return t.b.Query(ctx, collection, sel, order, limit, offset)
}

func (t *tx) Create(ctx context.Context, ref docstore.Ref, data map[string]interface{}) error {
	t.stage(ref, data, false)
	return nil
}

func (t *tx) Update(ctx context.Context, ref docstore.Ref, data map[string]interface{}) error {
	t.stage(ref, data, false)
	return nil
}

func (t *tx) Delete(ctx context.Context, ref docstore.Ref) error {
	t.stage(ref, nil, true)
	return nil
}

func (t *tx) stage(ref docstore.Ref, data map[string]interface{}, deleted bool) {
	path := ref.Path()
	if _, ok := t.writes[path]; !ok {
		t.order = append(t.order, path)
	}
	t.writes[path] = &writeEntry{ref: ref, data: data, deleted: deleted}
}

// flush groups buffered writes by collection and issues one BulkDocs call
// per collection, the same batching BulkSaveDocuments/BulkDeleteDocuments
// use (db/couchdb_bulk.go). A per-document conflict comes back from
// kivik as a row-level error inside the BulkDocs response rather than a
// request-level error; flush surfaces the first one it finds as
// *docstore.TransactionContention so the caller retries the whole
// attempt.
func (t *tx) flush(ctx context.Context) error {
	byCollection := make(map[string][]string)
	for _, path := range t.order {
		name := t.writes[path].ref.Parent().Name()
		byCollection[name] = append(byCollection[name], path)
	}

	for collection, paths := range byCollection {
		database, err := t.b.db(ctx, collection)
		if err != nil {
			return err
		}

		docs := make([]interface{}, 0, len(paths))
		for _, path := range paths {
			entry := t.writes[path]
			doc, err := t.prepareDoc(ctx, database, entry)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}

		results, err := database.BulkDocs(ctx, docs)
		if err != nil {
			return wrapErr("bulk-flush", "", err)
		}
		for _, res := range results {
			if res.Error != nil {
				return wrapErr("bulk-flush", res.ID, res.Error)
			}
		}
	}
	return nil
}

// prepareDoc resolves the current revision for an update or delete (a
// fresh Get right before the flush, since the simulated transaction does
// not hold a store-level lock between read and write) and shapes the
// bulk-docs entry accordingly.
func (t *tx) prepareDoc(ctx context.Context, database *kivik.DB, entry *writeEntry) (map[string]interface{}, error) {
	id := entry.ref.ID()

	if entry.deleted {
		rev, err := currentRev(ctx, database, id)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"_id": id, "_rev": rev, "_deleted": true}, nil
	}

	doc := make(map[string]interface{}, len(entry.data)+2)
	for k, v := range entry.data {
		doc[k] = v
	}
	doc["_id"] = id

	if rev, err := currentRev(ctx, database, id); err == nil {
		doc["_rev"] = rev
	}
	return doc, nil
}

func currentRev(ctx context.Context, database *kivik.DB, id string) (string, error) {
	rev, err := database.GetRev(ctx, id)
	if err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return "", fmt.Errorf("couchdb: document %q does not exist", id)
		}
		return "", wrapErr("get-rev", id, err)
	}
	return rev, nil
}

func (b *Binding) RunTransaction(ctx context.Context, fn func(ctx context.Context, t store.Tx) error) error {
	attempt := newTx(b)
	if err := fn(ctx, attempt); err != nil {
		return err
	}
	return attempt.flush(ctx)
}
