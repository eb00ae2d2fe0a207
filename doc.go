// Package docstore provides a document-store connector core for a
// document-oriented CMS data model. It maps a host content model onto an
// external document store whose native query language only supports a
// restricted set of predicates, and glues together four concerns: a
// transaction engine that batches reads and coalesces writes, a
// polymorphic reference system spanning three collection kinds, a query
// translator that falls back to in-memory filtering when a predicate
// cannot run natively, and a relation manager that keeps bidirectional
// links consistent.
//
// The package only defines the value types and interfaces that are
// shared across the connector: references (Ref), read results
// (Snapshot, QuerySnapshot), the query-builder contract (Queryable), and
// the error taxonomy. Collection implementations live in the sibling
// collection package, the CouchDB binding lives in couchdb, and document
// lifecycle orchestration lives in lifecycle.
package docstore
