// Package txn implements the two docstore.Transaction variants
// (ReadWriteTransaction, ReadOnlyTransaction), the per-transaction
// ReadRepository cache, and the transaction runner that chooses between
// them and retries on contention. It turns a batch of reads and writes
// against a store with no native multi-document ACID support into a
// multi-step simulated transaction with a read-through cache and
// per-document write coalescing.
package txn

import (
	"context"
	"fmt"

	"eve.evalgo.org/docstore"
	"eve.evalgo.org/docstore/store"
)

// fetchFunc performs the actual batched read a ReadRepository falls back
// to on a cache miss: store.Tx.GetAll for both repos of a
// ReadWriteTransaction (its non-atomic reads also go through the store
// transaction), store.Binding.GetAll for both repos of a
// ReadOnlyTransaction.
type fetchFunc func(ctx context.Context, refs []docstore.Ref, fieldMask []string) ([]docstore.Snapshot, error)

// ReadRepository is a per-transaction read-through cache keyed by ref
// path. The non-atomic repo is backed by
// the atomic repo: a path already resolved atomically is served from
// there without a second store fetch, but the reverse never happens —
// non-atomic reads are invisible to atomic ones.
type ReadRepository struct {
	fetch    fetchFunc
	delegate *ReadRepository
	cache    map[string]docstore.Snapshot
	reads    int
}

// Reads reports how many refs have been resolved through this repo
// (cache hits and misses alike), for the commit-time observability log.
func (r *ReadRepository) Reads() int { return r.reads }

// NewReadRepository builds a ReadRepository backed by fetch, optionally
// delegating cache hits to backing.
func NewReadRepository(fetch fetchFunc, backing *ReadRepository) *ReadRepository {
	return &ReadRepository{fetch: fetch, delegate: backing, cache: make(map[string]docstore.Snapshot)}
}

// peek returns a cached snapshot without triggering a fetch, used by a
// dependent repo to check its delegate.
func (r *ReadRepository) peek(path string) (docstore.Snapshot, bool) {
	snap, ok := r.cache[path]
	return snap, ok
}

// Get implements docstore.Reader: a single-ref read-through.
func (r *ReadRepository) Get(ctx context.Context, ref docstore.Ref) (docstore.Snapshot, error) {
	snaps, err := r.GetAll(ctx, []docstore.Ref{ref}, docstore.GetOpts{})
	if err != nil {
		return docstore.Snapshot{}, err
	}
	return snaps[0], nil
}

// GetAll resolves every ref from cache (checking the delegate first),
// fetching only the misses in one batched call. When opts.IsSingleRequest
// is set and every ref is a Deep ref into the same flat document, the
// fetch is issued once with a field mask naming exactly the needed row
// ids and the result is never cached, since it is partial.
func (r *ReadRepository) GetAll(ctx context.Context, refs []docstore.Ref, opts docstore.GetOpts) ([]docstore.Snapshot, error) {
	r.reads += len(refs)
	if opts.IsSingleRequest {
		if parent, ids, ok := sameDeepParent(refs); ok {
			return r.fetchDeepFieldMasked(ctx, parent, ids, refs)
		}
	}

	out := make([]docstore.Snapshot, len(refs))
	var missIdx []int
	var missRefs []docstore.Ref

	for i, ref := range refs {
		path := ref.Path()
		if snap, ok := r.cache[path]; ok {
			out[i] = snap
			continue
		}
		if r.delegate != nil {
			if snap, ok := r.delegate.peek(path); ok {
				r.cache[path] = snap
				out[i] = snap
				continue
			}
		}
		missIdx = append(missIdx, i)
		missRefs = append(missRefs, ref)
	}

	if len(missRefs) == 0 {
		return out, nil
	}

	fetched, err := r.fetch(ctx, missRefs, nil)
	if err != nil {
		return nil, err
	}
	if len(fetched) != len(missRefs) {
		return nil, fmt.Errorf("txn: fetch returned %d snapshots for %d refs", len(fetched), len(missRefs))
	}
	for j, idx := range missIdx {
		r.cache[missRefs[j].Path()] = fetched[j]
		out[idx] = fetched[j]
	}
	return out, nil
}

func (r *ReadRepository) fetchDeepFieldMasked(ctx context.Context, parent docstore.Ref, ids []string, refs []docstore.Ref) ([]docstore.Snapshot, error) {
	docs, err := r.fetch(ctx, []docstore.Ref{parent}, ids)
	if err != nil {
		return nil, err
	}
	whole := docs[0].Data()
	out := make([]docstore.Snapshot, len(refs))
	for i, ref := range refs {
		row, ok := whole[ref.ID()]
		if !ok {
			out[i] = docstore.NewMissingSnapshot(ref)
			continue
		}
		rowMap, _ := row.(map[string]interface{})
		out[i] = docstore.NewSnapshot(ref, rowMap)
	}
	return out, nil
}

// sameDeepParent reports whether every ref is a Deep ref addressing the
// same flat document, returning a Normal-shaped ref for that document and
// the row ids requested.
func sameDeepParent(refs []docstore.Ref) (docstore.Ref, []string, bool) {
	if len(refs) == 0 {
		return docstore.Ref{}, nil, false
	}
	for _, ref := range refs {
		if ref.Kind() != docstore.KindDeep {
			return docstore.Ref{}, nil, false
		}
	}
	parentPath := refs[0].Parent().Path()
	ids := make([]string, len(refs))
	for i, ref := range refs {
		if ref.Parent().Path() != parentPath {
			return docstore.Ref{}, nil, false
		}
		ids[i] = ref.ID()
	}
	return docstore.NewNormalRef(refs[0].Parent(), flatDocID(refs[0].Parent())), ids, true
}

// flatDocID recovers the shared document's own id from its parent's Path
// ("{collection}/{singleId}"), the last path segment.
func flatDocID(parent docstore.CollectionRef) string {
	path := parent.Path()
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

var _ store.Tx // keep the store import meaningful for godoc cross-reference
