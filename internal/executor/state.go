package executor

import "fmt"

// State is a step of an execution's lifecycle.
type State int

const (
	Idle State = iota
	Bound
	Evaluating
	Normalizing
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Bound:
		return "Bound"
	case Evaluating:
		return "Evaluating"
	case Normalizing:
		return "Normalizing"
	case Done:
		return "Done"
	case Failed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var next = map[State]State{
	Idle:        Bound,
	Bound:       Evaluating,
	Evaluating:  Normalizing,
	Normalizing: Done,
}

type execution struct {
	state State
}

func canMove(from, to State) bool {
	if to == Failed {
		return from != Done && from != Failed
	}
	n, ok := next[from]
	return ok && n == to
}

func (e *execution) to(s State) {
	if !canMove(e.state, s) {
		panic(fmt.Sprintf("executor: invalid transition %s -> %s", e.state, s))
	}
	e.state = s
}

func (e *execution) fail(kind FailureKind, err error) *ExecutionResult {
	e.to(Failed)
	return &ExecutionResult{
		Failure: &Failure{Kind: kind, Message: err.Error(), Err: err},
		State:   e.state,
	}
}
