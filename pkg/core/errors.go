package core

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the editing store and bridge.
var (
	// ErrNoActiveSession is returned when committing with no open session.
	ErrNoActiveSession = errors.New("no active edit session")
	// ErrReadonly is returned when a session is requested for a read-only column.
	ErrReadonly = errors.New("column is read-only")
)

// ValidationError reports a value rejected by a field pipeline.
// It is recoverable: the edit session stays open.
type ValidationError struct {
	Column string
	Type   FieldType
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("invalid %s value %q: %s", e.Type, e.Input, e.Reason)
	}
	return fmt.Sprintf("invalid %s value %q for column %q: %s", e.Type, e.Input, e.Column, e.Reason)
}

// SchemaMismatchError reports a column the schema does not describe.
// Callers fall back to a Text column and never surface it to end users.
type SchemaMismatchError struct {
	Table  string
	Column string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("column %q not found in schema for table %q", e.Column, e.Table)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
