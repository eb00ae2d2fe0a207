package docstore

// Operator names the predicate operators the query translator understands.
// Names match the host model's operator vocabulary directly rather than
// CouchDB's Mango `$`-prefixed spellings; the query package maps each
// Operator onto its Mango equivalent (or an in-memory predicate) at
// translation time.
type Operator string

const (
	OpEq          Operator = "eq"
	OpNe          Operator = "ne"
	OpLt          Operator = "lt"
	OpLte         Operator = "lte"
	OpGt          Operator = "gt"
	OpGte         Operator = "gte"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not-in"
	OpContains    Operator = "contains"
	OpNContains   Operator = "ncontains"
	OpContainsS   Operator = "containss"
	OpNContainsS  Operator = "ncontainss"
	OpNull        Operator = "null"
)

// Filter is the sum type of the three predicate shapes the translator
// accepts: a single WhereFilter, an OrFilter, or an already-native
// NativeFilter.
type Filter interface {
	isFilter()
}

// WhereFilter is a single field/operator/value predicate.
type WhereFilter struct {
	Field    string
	Operator Operator
	Value    interface{}
}

func (WhereFilter) isFilter() {}

// AndGroup is a conjunction of WhereFilters; it is the unit OrFilter
// disjoins over.
type AndGroup []WhereFilter

// OrFilter disjoins a list of AndGroups: value ∈ {A ∧ B, C ∧ D, ...}.
type OrFilter struct {
	Groups []AndGroup
}

func (OrFilter) isFilter() {}

// NativeFilter is a predicate already expressed in the store's native
// query form — a CouchDB Mango selector fragment, keyed by field name
// with operator keys like "$eq"/"$in"/"$gt". Passing a NativeFilter to
// Where skips translation entirely.
type NativeFilter map[string]interface{}

func (NativeFilter) isFilter() {}

// SortDir is ascending or descending order for OrderBy.
type SortDir int

const (
	Asc SortDir = iota
	Desc
)

// OrderClause is one field/direction pair in a query's sort order.
type OrderClause struct {
	Field string
	Dir   SortDir
}

// QueryMode controls how the translator is allowed to satisfy a
// predicate.
type QueryMode int

const (
	// PreferNative tries a native filter first and falls back to an
	// in-memory predicate when the operator cannot run natively.
	PreferNative QueryMode = iota
	// ManualOnly forces every predicate to run as an in-memory filter.
	ManualOnly
	// NativeOnly raises NativeNotSupportedError rather than falling back.
	NativeOnly
)
