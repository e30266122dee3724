package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("graph: element not found")
	// ErrTxDone is returned when a finished transaction is used for writes.
	ErrTxDone = errors.New("graph: transaction already committed or rolled back")
)

// NotFoundError reports a lookup of a missing vertex or edge.
type NotFoundError struct {
	Kind string // "vertex" or "edge"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidPropertyError reports a rejected property key or value.
type InvalidPropertyError struct {
	Key    string
	Value  any
	Reason string
}

func (e *InvalidPropertyError) Error() string {
	return fmt.Sprintf("graph: invalid property %q: %s", e.Key, e.Reason)
}

// CommitError wraps a failure of the commit hook. The transaction is rolled
// back when it is returned.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string { return "graph: commit: " + e.Err.Error() }
func (e *CommitError) Unwrap() error { return e.Err }
