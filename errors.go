package potatosync

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an object does not exist
	ErrNotFound = errors.New("not found")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidName is returned when a client-supplied object name is rejected
	ErrInvalidName = fmt.Errorf("%w: invalid filename", ErrInvalidInput)
	// ErrExceededLimit is returned when an upload would exceed the object quota
	ErrExceededLimit = errors.New("exceeded limit")
	// ErrPartialDelete is matched by PartialDeleteError
	ErrPartialDelete = errors.New("partial bulk delete")
)

// PartialDeleteError reports a bulk delete that stopped after a failure.
// Objects deleted before the failure stay deleted.
type PartialDeleteError struct {
	Prefix  string
	Deleted int
	Key     string
	Err     error
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("delete all %s: stopped at %s after %d deleted: %v", e.Prefix, e.Key, e.Deleted, e.Err)
}

func (e *PartialDeleteError) Unwrap() []error {
	return []error{ErrPartialDelete, e.Err}
}
