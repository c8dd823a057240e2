package shared

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Storage errors. Typed errors below match these with errors.Is.
	ErrConstraint = fmt.Errorf("constraint violation")
	ErrSchema     = fmt.Errorf("schema mismatch")
	ErrStorage    = fmt.Errorf("storage failure")
	ErrClosed     = fmt.Errorf("store closed")

	// Domain errors
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// ConstraintError reports a foreign-key, not-null or uniqueness violation.
// It reflects a caller logic error and is never retried.
type ConstraintError struct {
	Op  string
	Err error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrConstraint, e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

func (e *ConstraintError) Is(target error) bool { return target == ErrConstraint }

// SchemaError reports an on-disk schema that does not match the expected shape.
type SchemaError struct {
	Table    string
	Expected string
	Found    string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%v: %s\n expected: %s\n found: %s", ErrSchema, e.Table, e.Expected, e.Found)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// StorageError wraps any other engine failure with its diagnostic preserved.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrStorage, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// ClassifyError converts a raw driver error into a [ConstraintError] or [StorageError].
//
// Context cancellation, already-classified errors and nil pass through untouched.
func ClassifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var (
		ce *ConstraintError
		se *SchemaError
		st *StorageError
	)
	if errors.As(err, &ce) || errors.As(err, &se) || errors.As(err, &st) {
		return err
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return &ConstraintError{Op: op, Err: err}
	}
	return &StorageError{Op: op, Err: err}
}

// IsConstraint reports whether err is a constraint violation.
func IsConstraint(err error) bool {
	return errors.Is(err, ErrConstraint)
}
