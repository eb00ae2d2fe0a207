package couchdb

import (
	"fmt"
	"net/http"

	kivik "github.com/go-kivik/kivik/v4"

	"eve.evalgo.org/docstore"
)

// StoreError reports a CouchDB-specific failure with its HTTP status,
// kept distinct from docstore's own error taxonomy since it carries a
// transport detail (StatusCode) the CORE doesn't otherwise need.
type StoreError struct {
	StatusCode int
	Op         string
	Reason     string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("couchdb: %s: %d %s", e.Op, e.StatusCode, e.Reason)
}

func (e *StoreError) IsConflict() bool     { return e.StatusCode == http.StatusConflict }
func (e *StoreError) IsNotFound() bool     { return e.StatusCode == http.StatusNotFound }
func (e *StoreError) IsUnauthorized() bool { return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden }

// wrapErr classifies err from a Kivik call, translating a 409 into
// *docstore.TransactionContention (so the txn runner can recognize it
// without importing this package) and anything else into *StoreError.
func wrapErr(op, docID string, err error) error {
	if err == nil {
		return nil
	}
	status := kivik.HTTPStatus(err)
	if status == http.StatusConflict {
		return &docstore.TransactionContention{DocID: docID, Cause: err}
	}
	return &StoreError{StatusCode: status, Op: op, Reason: err.Error()}
}
