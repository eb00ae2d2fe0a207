package docstore

// Snapshot is the uniform read result for a single document, row, or
// flattened field. exists is always data() != nil; Data returns nil for
// a document that does not exist rather than an error, so callers can
// distinguish "not found" from a read failure.
type Snapshot struct {
	Ref    Ref
	id     string
	data   map[string]interface{}
	exists bool
}

// NewSnapshot builds an existing snapshot carrying data.
func NewSnapshot(ref Ref, data map[string]interface{}) Snapshot {
	return Snapshot{Ref: ref, id: ref.ID(), data: data, exists: data != nil}
}

// NewMissingSnapshot builds a snapshot for a document that does not exist.
func NewMissingSnapshot(ref Ref) Snapshot {
	return Snapshot{Ref: ref, id: ref.ID(), exists: false}
}

// ID returns the document identifier.
func (s Snapshot) ID() string { return s.id }

// Exists reports whether the underlying document was found.
func (s Snapshot) Exists() bool { return s.exists }

// Data returns the document's field map, or nil if it does not exist.
// The returned map is owned by the snapshot; callers that mutate it must
// copy first.
func (s Snapshot) Data() map[string]interface{} {
	if !s.exists {
		return nil
	}
	return s.data
}

// QuerySnapshot is the uniform read result for a collection query: an
// ordered list of document snapshots plus the ids actually selected,
// matching the order a consumer would see from a native store query.
type QuerySnapshot struct {
	Docs []Snapshot
}

// NewQuerySnapshot wraps docs into a QuerySnapshot.
func NewQuerySnapshot(docs []Snapshot) *QuerySnapshot {
	return &QuerySnapshot{Docs: docs}
}

// Empty returns a QuerySnapshot with no documents — used by callers that
// short-circuit on EmptyQueryError.
func Empty() *QuerySnapshot {
	return &QuerySnapshot{Docs: nil}
}

// IDs returns the ids of all selected documents in order.
func (q *QuerySnapshot) IDs() []string {
	ids := make([]string, len(q.Docs))
	for i, d := range q.Docs {
		ids[i] = d.ID()
	}
	return ids
}
