package docstore

import (
	"errors"
	"fmt"
)

// CoercionError reports that a value could not be coerced to an
// attribute's declared type. It is a 4xx-class, caller-fault error.
type CoercionError struct {
	Attribute string
	Value     interface{}
	Reason    string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot coerce value %v for attribute %q: %s", e.Value, e.Attribute, e.Reason)
}

// StatusCode reports the HTTP-status-flavored code this 4xx-class error
// should be surfaced as by any API layer above the connector, without
// this package depending on net/http itself.
func (e *CoercionError) StatusCode() int { return 400 }

// ReferenceShapeError reports that a value is not a resolvable reference,
// or that it resolves to a document in a different model than the one
// declared. It is a 4xx-class error.
type ReferenceShapeError struct {
	Value       interface{}
	TargetModel string
	ActualModel string
	Reason      string
}

func (e *ReferenceShapeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("value %v is not a valid reference to %q: %s", e.Value, e.TargetModel, e.Reason)
	}
	return fmt.Sprintf("value %v resolves to model %q, expected %q", e.Value, e.ActualModel, e.TargetModel)
}

func (e *ReferenceShapeError) StatusCode() int { return 400 }

// UnknownReferenceKindError is an internal assertion failure: a Ref value
// did not match any of the known Kind variants. Seeing this means a bug
// in this package, not a caller error.
type UnknownReferenceKindError struct {
	Kind Kind
}

func (e *UnknownReferenceKindError) Error() string {
	return fmt.Sprintf("docstore: internal error: unknown reference kind %v", e.Kind)
}

// UnsupportedOperationError reports an operation invoked somewhere it is
// never valid: ComponentCollection operations, writes on a ReadOnly
// transaction against a non-Virtual ref, create on an existing document,
// or update on a non-existent one.
type UnsupportedOperationError struct {
	Operation string
	Reason    string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported operation %q: %s", e.Operation, e.Reason)
}

func (e *UnsupportedOperationError) StatusCode() int { return 400 }

// EmptyQueryError is internal control flow: a filter has been proven
// trivially false (e.g. an `in` filter with an empty value list). Callers
// must catch this and return an empty QuerySnapshot rather than treating
// it as a failure.
type EmptyQueryError struct {
	Reason string
}

func (e *EmptyQueryError) Error() string {
	return fmt.Sprintf("query proven empty: %s", e.Reason)
}

// IsEmptyQueryError reports whether err is (or wraps) an EmptyQueryError.
func IsEmptyQueryError(err error) bool {
	var eq *EmptyQueryError
	return errors.As(err, &eq)
}

// NativeNotSupportedError reports that the caller requested nativeOnly
// query mode but the operator requires in-memory evaluation. 4xx-class,
// and carries the hint needed to unblock the caller.
type NativeNotSupportedError struct {
	Operator string
	Field    string
}

func (e *NativeNotSupportedError) Error() string {
	return fmt.Sprintf("operator %q on field %q cannot run natively; enable manual filters to allow in-memory evaluation", e.Operator, e.Field)
}

func (e *NativeNotSupportedError) StatusCode() int { return 400 }

// DanglingReferenceWarning is logged, never returned as a hard error: a
// referenced document no longer exists during population. Non-fatal.
type DanglingReferenceWarning struct {
	Ref    Ref
	Reason string
}

func (e *DanglingReferenceWarning) Error() string {
	return fmt.Sprintf("dangling reference %s: %s", e.Ref, e.Reason)
}

// TransactionContention reports a transient conflict from the underlying
// store (CouchDB document update conflict); the transaction runner
// retries on this error class.
type TransactionContention struct {
	DocID string
	Cause error
}

func (e *TransactionContention) Error() string {
	return fmt.Sprintf("transaction contention on document %q: %v", e.DocID, e.Cause)
}

func (e *TransactionContention) Unwrap() error { return e.Cause }
