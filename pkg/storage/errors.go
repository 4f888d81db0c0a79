package storage

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrNotFound           = errors.New("not found")
	ErrStoreClosed        = errors.New("store is closed")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidID          = errors.New("invalid ID")
	ErrMarshalFailed      = errors.New("marshal failed")
)

// StoreError provides structured error information for store operations.
type StoreError struct {
	Op      string // Operation that failed (e.g., "AppendAttempt", "NodesInScope")
	Entity  string // Entity type (e.g., "run", "path", "node")
	ID      string // Entity ID (if applicable)
	Field   string // Field name (for column-level failures)
	Cause   error  // Underlying error
	Context string // Additional context
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.ID != "" {
		if e.Field != "" {
			return fmt.Sprintf("%s %s %s (field %s): %v", e.Op, e.Entity, e.ID, e.Field, e.Cause)
		}
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.ID, e.Cause)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s %s (field %s): %v", e.Op, e.Entity, e.Field, e.Cause)
	}
	if e.Context != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error's cause.
func (e *StoreError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ErrorBuilder provides a fluent interface for building StoreErrors.
type ErrorBuilder struct {
	err StoreError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: StoreError{Op: op}}
}

// Run sets the entity to "run" with the given run id.
func (b *ErrorBuilder) Run(id string) *ErrorBuilder {
	b.err.Entity = "run"
	b.err.ID = id
	return b
}

// Path sets the entity to "path" with the given path hash or id.
func (b *ErrorBuilder) Path(ref string) *ErrorBuilder {
	b.err.Entity = "path"
	b.err.ID = ref
	return b
}

// Entity sets an arbitrary entity name and numeric id.
func (b *ErrorBuilder) Entity(entity string, id int64) *ErrorBuilder {
	b.err.Entity = entity
	if id != 0 {
		b.err.ID = fmt.Sprintf("%d", id)
	}
	return b
}

// Field sets the field name.
func (b *ErrorBuilder) Field(name string) *ErrorBuilder {
	b.err.Field = name
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed StoreError.
func (b *ErrorBuilder) Build() *StoreError {
	return &b.err
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// NotFoundError creates a not found error for the given entity.
func NotFoundError(entity string, id int64) error {
	return NewError("get").Entity(entity, id).Cause(ErrNotFound).Err()
}

// UnavailableError wraps a driver failure so callers can test for
// ErrStorageUnavailable while the original cause stays in the chain.
func UnavailableError(op string, cause error) error {
	return NewError(op).Entity("store", 0).Context("backend").Cause(fmt.Errorf("%w: %w", ErrStorageUnavailable, cause)).Err()
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClosed returns true if the error indicates the store is closed.
func IsClosed(err error) bool {
	return errors.Is(err, ErrStoreClosed)
}
