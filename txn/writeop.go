package txn

import (
	"eve.evalgo.org/docstore"
	"eve.evalgo.org/docstore/store"
)

// WriteOp is the coalesced state of every write issued against one ref
// inside a transaction. Later calls merge onto earlier ones: a create
// seeds a fresh object, an update/set assigns its fields onto whatever
// is already queued, and a delete wins forever — no write issued after
// a delete for the same ref can revive it.
type WriteOp struct {
	Ref     docstore.Ref
	Mode    docstore.EditMode
	Data    map[string]interface{} // nil means "delete"
	deleted bool
}

// writeLog accumulates WriteOps keyed by ref path, preserving first-seen
// order so flush issues writes in a stable, deterministic sequence.
type writeLog struct {
	byPath map[string]*WriteOp
	order  []string
}

func newWriteLog() *writeLog {
	return &writeLog{byPath: make(map[string]*WriteOp)}
}

// merge folds one MergeWriteInternal call into the log.
func (l *writeLog) merge(ref docstore.Ref, data map[string]interface{}, mode docstore.EditMode) {
	path := ref.Path()
	op, ok := l.byPath[path]
	if !ok {
		op = &WriteOp{Ref: ref, Mode: mode}
		l.byPath[path] = op
		l.order = append(l.order, path)
	}

	if op.deleted {
		// Delete wins forever: ignore anything queued after it.
		return
	}

	if mode == docstore.EditModeDelete {
		op.deleted = true
		op.Data = nil
		op.Mode = docstore.EditModeDelete
		return
	}

	if mode == docstore.EditModeCreate || op.Data == nil {
		op.Data = make(map[string]interface{}, len(data))
	}
	for k, v := range data {
		op.Data[k] = v
	}
	// A later non-create mode never downgrades an earlier create back to
	// a plain update — the document still needs to be created on flush.
	if op.Mode != docstore.EditModeCreate {
		op.Mode = mode
	}
}

// ops returns every queued WriteOp in first-seen order.
func (l *writeLog) ops() []*WriteOp {
	out := make([]*WriteOp, 0, len(l.order))
	for _, path := range l.order {
		out = append(out, l.byPath[path])
	}
	return out
}

func (l *writeLog) empty() bool { return len(l.order) == 0 }

var _ store.FieldOp // keep the store import meaningful for godoc cross-reference
