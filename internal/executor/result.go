package executor

import (
	"errors"

	"github.com/hanpama/graphscript/internal/canonical"
	"github.com/hanpama/graphscript/internal/graph"
	"github.com/hanpama/graphscript/internal/script"
	"github.com/hanpama/graphscript/internal/wire"
)

// FailureKind classifies a failed execution.
type FailureKind string

const (
	EvaluationError            FailureKind = "EvaluationError"
	NotFoundError              FailureKind = "NotFoundError"
	UnrepresentableResultError FailureKind = "UnrepresentableResultError"
	TransactionError           FailureKind = "TransactionError"
)

// Failure describes why an execution produced no value.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (f *Failure) Error() string { return string(f.Kind) + ": " + f.Message }
func (f *Failure) Unwrap() error { return f.Err }

// ExecutionResult holds either a value or a failure, never both.
type ExecutionResult struct {
	Value   canonical.Value
	Failure *Failure
	State   State
}

func (r *ExecutionResult) OK() bool { return r.Failure == nil }

// Representation returns the wire form of the result.
func (r *ExecutionResult) Representation() wire.Renderer {
	if r.Failure != nil {
		return wire.FailureRepresentation{Kind: string(r.Failure.Kind), Message: r.Failure.Message}
	}
	return wire.Representation{Value: r.Value}
}

func classify(err error) FailureKind {
	var (
		ee *script.EvaluationError
		ue *canonical.UnrepresentableResultError
		ce *graph.CommitError
	)
	switch {
	case errors.As(err, &ue):
		return UnrepresentableResultError
	case errors.As(err, &ce), errors.Is(err, graph.ErrTxDone):
		return TransactionError
	case errors.Is(err, graph.ErrNotFound) && !errors.As(err, &ee):
		return NotFoundError
	}
	return EvaluationError
}
