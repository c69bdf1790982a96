// Package runtime provides the store contract, the SQLite adapter, error
// classification, and problem-response rendering for the ORM.
package runtime

import (
	"errors"
	"fmt"

	"github.com/marshallshelly/shale-orm/pkg/schema"
)

var (
	// ErrTransactionClosed is returned when operating on a finished transaction.
	ErrTransactionClosed = errors.New("transaction already closed")

	// ErrNoStore is returned when an operation runs without a store handle.
	ErrNoStore = errors.New("no store handle bound")
)

// ValidationError is the pre-I/O field validation error. It is declared in
// pkg/schema, where validation runs; the alias keeps the whole error taxonomy
// reachable from this package.
type ValidationError = schema.ValidationError

// UniqueViolationError reports a write rejected by a unique constraint.
// Field is the logical field resolved through the registry; it is empty when
// the constraint could not be resolved.
type UniqueViolationError struct {
	Table      string
	Field      string
	Constraint string
	Err        error
}

// Error implements the error interface.
func (e *UniqueViolationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("unique constraint violated on %s.%s", e.Table, e.Field)
	}
	return fmt.Sprintf("unique constraint violated on %s", e.Table)
}

// Unwrap returns the original store error.
func (e *UniqueViolationError) Unwrap() error { return e.Err }

// ForeignKeyViolationError reports a write rejected by a foreign key
// constraint.
type ForeignKeyViolationError struct {
	Table      string
	Field      string
	Constraint string
	Err        error
}

// Error implements the error interface.
func (e *ForeignKeyViolationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("foreign key constraint violated on %s.%s", e.Table, e.Field)
	}
	return fmt.Sprintf("foreign key constraint violated on %s", e.Table)
}

// Unwrap returns the original store error.
func (e *ForeignKeyViolationError) Unwrap() error { return e.Err }

// NotNullViolationError reports a write rejected by a not-null constraint
// that was not caught by field validation, for example a raw statement.
type NotNullViolationError struct {
	Table      string
	Field      string
	Constraint string
	Err        error
}

// Error implements the error interface.
func (e *NotNullViolationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("not-null constraint violated on %s.%s", e.Table, e.Field)
	}
	return fmt.Sprintf("not-null constraint violated on %s", e.Table)
}

// Unwrap returns the original store error.
func (e *NotNullViolationError) Unwrap() error { return e.Err }

// CheckViolationError reports a write rejected by a table-level check
// constraint.
type CheckViolationError struct {
	Table      string
	Constraint string
	Err        error
}

// Error implements the error interface.
func (e *CheckViolationError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("check constraint %s violated on %s", e.Constraint, e.Table)
	}
	return fmt.Sprintf("check constraint violated on %s", e.Table)
}

// Unwrap returns the original store error.
func (e *CheckViolationError) Unwrap() error { return e.Err }

// DoesNotExistError reports a strict single-row read that matched nothing.
type DoesNotExistError struct {
	Model  string
	Lookup string
}

// Error implements the error interface.
func (e *DoesNotExistError) Error() string {
	if e.Lookup != "" {
		return fmt.Sprintf("%s matching %s does not exist", e.Model, e.Lookup)
	}
	return fmt.Sprintf("%s does not exist", e.Model)
}

// AmbiguousResultError reports a strict single-row read that matched more
// than one row.
type AmbiguousResultError struct {
	Model  string
	Lookup string
}

// Error implements the error interface.
func (e *AmbiguousResultError) Error() string {
	return fmt.Sprintf("%s lookup %s matched more than one row", e.Model, e.Lookup)
}

// QueryError represents a query execution error. The SQL text is preserved;
// bound values are not.
type QueryError struct {
	Query string
	Err   error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v (query: %s)", e.Err, e.Query)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error { return e.Err }

// StoreError wraps a store failure that classification could not resolve
// into anything more specific. The original error is always preserved.
type StoreError struct {
	Table string
	Err   error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("unclassified store error on %s: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("unclassified store error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error { return e.Err }

// MigrationError represents a per-model migration failure.
type MigrationError struct {
	Model string
	Err   error
}

// Error implements the error interface.
func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration failed for %s: %v", e.Model, e.Err)
}

// Unwrap returns the underlying error.
func (e *MigrationError) Unwrap() error { return e.Err }
