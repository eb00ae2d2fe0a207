package couchdb

import (
	"context"
	"sync"

	"github.com/google/uuid"
	kivik "github.com/go-kivik/kivik/v4"

	"eve.evalgo.org/docstore"
	"eve.evalgo.org/docstore/store"
)

// collectionHandle is the CouchDB database-level CollectionRef: a Normal
// collection maps one-to-one onto one database.
type collectionHandle struct{ name string }

func (c collectionHandle) Name() string { return c.name }
func (c collectionHandle) Path() string { return c.name }

// docHandle is a store.DocHandle for one document path.
type docHandle struct{ path string }

func (d docHandle) Path() string { return d.path }

// Binding is the store.Binding implementation over one Kivik client.
// Instead of one fixed database the Binding opens one *kivik.DB per
// collection name on demand, since the connector serves many content
// types from one CouchDB server.
type Binding struct {
	client *kivik.Client
	cfg    Config

	mu  sync.RWMutex
	dbs map[string]*kivik.DB
}

// NewBinding wraps an already-connected client. Use Connect to obtain one.
func NewBinding(client *kivik.Client, cfg Config) *Binding {
	return &Binding{client: client, cfg: cfg, dbs: make(map[string]*kivik.DB)}
}

// db returns (creating if necessary) the *kivik.DB for name.
func (b *Binding) db(ctx context.Context, name string) (*kivik.DB, error) {
	b.mu.RLock()
	if db, ok := b.dbs[name]; ok {
		b.mu.RUnlock()
		return db, nil
	}
	b.mu.RUnlock()

	if err := EnsureDB(ctx, b.client, b.cfg, name); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if db, ok := b.dbs[name]; ok {
		return db, nil
	}
	db := b.client.DB(name)
	b.dbs[name] = db
	return db, nil
}

func (b *Binding) Collection(name string) docstore.CollectionRef {
	return collectionHandle{name: name}
}

func (b *Binding) Doc(path string) store.DocHandle {
	return docHandle{path: path}
}

func (b *Binding) IsEmulator() bool { return b.cfg.Emulator }

// NewID mints a fresh document id. CouchDB allocates its own UUIDs on
// CreateDoc, but the CORE sometimes needs an id before the document is
// written (e.g. to build a reference ahead of a bulk write), so this
// falls back to a locally generated UUIDv4.
func (b *Binding) NewID(ctx context.Context, collection string) (string, error) {
	return uuid.NewString(), nil
}

func (b *Binding) GetAll(ctx context.Context, refs []docstore.Ref, fieldMask []string) ([]docstore.Snapshot, error) {
	out := make([]docstore.Snapshot, len(refs))
	for i, ref := range refs {
		snap, err := b.getOne(ctx, ref, fieldMask)
		if err != nil {
			return nil, err
		}
		out[i] = snap
	}
	return out, nil
}

func (b *Binding) getOne(ctx context.Context, ref docstore.Ref, fieldMask []string) (docstore.Snapshot, error) {
	database, err := b.db(ctx, ref.Parent().Name())
	if err != nil {
		return docstore.Snapshot{}, err
	}

	var opts []kivik.Option
	if len(fieldMask) > 0 {
		opts = append(opts, kivik.Param("fields", withMeta(fieldMask)))
	}

	row := database.Get(ctx, ref.ID(), opts...)
	var data map[string]interface{}
	if err := row.ScanDoc(&data); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return docstore.NewMissingSnapshot(ref), nil
		}
		return docstore.Snapshot{}, wrapErr("get", ref.ID(), err)
	}
	return docstore.NewSnapshot(ref, data), nil
}

// withMeta ensures _id/_rev ride along with a projected field list so the
// binding can always recover identity and revision metadata.
func withMeta(fields []string) []string {
	out := append([]string{"_id", "_rev"}, fields...)
	return out
}

func (b *Binding) Query(ctx context.Context, collection string, sel docstore.NativeFilter, order []docstore.OrderClause, limit, offset int) ([]docstore.Snapshot, error) {
	database, err := b.db(ctx, collection)
	if err != nil {
		return nil, err
	}

	params := map[string]interface{}{}
	if len(order) > 0 {
		sort := make([]map[string]string, len(order))
		for i, o := range order {
			dir := "asc"
			if o.Dir == docstore.Desc {
				dir = "desc"
			}
			sort[i] = map[string]string{o.Field: dir}
		}
		params["sort"] = sort
	}
	if limit > 0 {
		params["limit"] = limit
	}
	if offset > 0 {
		params["skip"] = offset
	}

	selector := map[string]interface{}(sel)
	if selector == nil {
		selector = map[string]interface{}{}
	}

	rows := database.Find(ctx, selector, kivik.Params(params))
	defer rows.Close()

	parent := collectionHandle{name: collection}
	var snaps []docstore.Snapshot
	for rows.Next() {
		var data map[string]interface{}
		if err := rows.ScanDoc(&data); err != nil {
			return nil, wrapErr("query-scan", "", err)
		}
		id, _ := data["_id"].(string)
		snaps = append(snaps, docstore.NewSnapshot(docstore.NewNormalRef(parent, id), data))
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("query", "", err)
	}
	return snaps, nil
}
