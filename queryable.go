package docstore

import "context"

// Reader is the minimal read surface a Queryable.Get needs from a
// per-transaction cache. txn.ReadRepository implements this interface;
// collection implementations also accept a nil Reader and then read
// straight from their backing store (the store binding, or a
// VirtualCollection's data source).
type Reader interface {
	Get(ctx context.Context, ref Ref) (Snapshot, error)
}

// Queryable is the builder contract every collection kind implements:
// Where/OrderBy/Limit/Offset each return a new Queryable value with a
// copied filter list, leaving the receiver unchanged (builder purity).
// EditMode-specific writes are not part of this interface; they live on
// the concrete collection/reference types.
type Queryable interface {
	Where(f Filter) Queryable
	OrderBy(field string, dir SortDir) Queryable
	Limit(n int) Queryable
	Offset(n int) Queryable
	Get(ctx context.Context, repo Reader) (*QuerySnapshot, error)
}

// EditMode names the five low-level write operations a reference can be
// committed with. Delete always uses EditModeDelete explicitly, never
// EditModeUpdate with nil data.
type EditMode int

const (
	EditModeCreate EditMode = iota
	EditModeUpdate
	EditModeSet
	EditModeSetMerge
	EditModeDelete
)

func (m EditMode) String() string {
	switch m {
	case EditModeCreate:
		return "create"
	case EditModeUpdate:
		return "update"
	case EditModeSet:
		return "set"
	case EditModeSetMerge:
		return "setMerge"
	case EditModeDelete:
		return "delete"
	default:
		return "unknown"
	}
}
