// Package script evaluates Gremlin-flavoured graph traversal scripts against
// a graph handle.
//
// A script is a sequence of statements; the value of the last one is the
// result. Results leave the package as Raw values and carry no references to
// interpreter state other than graph elements.
package script

import (
	"context"
	"errors"
	"fmt"

	"github.com/hanpama/graphscript/internal/graph"
	"github.com/hanpama/graphscript/internal/language"
)

// Bindings are the named values visible to a script. The graph is
// conventionally bound as "g"; a graph.Writer binding makes it writable.
type Bindings map[string]any

// EvaluationError is a script that failed to parse or run.
type EvaluationError struct {
	Message string
	Line    int
	Column  int
	Err     error
}

func (e *EvaluationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
	}
	return e.Message
}

func (e *EvaluationError) Unwrap() error { return e.Err }

type Option func(*Evaluator)

// WithCache shares a parse cache between evaluators.
func WithCache(c *language.Cache) Option {
	return func(e *Evaluator) { e.cache = c }
}

// Evaluator runs scripts. It holds no per-evaluation state and is safe for
// concurrent use.
type Evaluator struct {
	cache *language.Cache
}

func New(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, o := range opts {
		o(e)
	}
	if e.cache == nil {
		e.cache = language.NewCache(0)
	}
	return e
}

// Evaluate parses and runs src. Failures are *EvaluationError, except a
// step applied to an absent element, which returns *graph.NotFoundError.
func (e *Evaluator) Evaluate(ctx context.Context, src string, bindings Bindings) (Raw, error) {
	prog, err := e.cache.Parse(src)
	if err != nil {
		var se *language.SyntaxError
		if errors.As(err, &se) {
			return nil, &EvaluationError{Message: se.Message, Line: se.Line, Column: se.Column, Err: err}
		}
		return nil, &EvaluationError{Message: err.Error(), Err: err}
	}

	in := &interp{ctx: ctx}
	sc := newScope(nil)
	for name, v := range bindings {
		v = fromGo(v)
		sc.vars[name] = v
		if gv, ok := v.(*graphValue); ok && (in.g == nil || name == "g") {
			in.g = gv
		}
	}

	v, err := in.execStmts(prog.Stmts, sc)
	if err != nil {
		return nil, wrap(err)
	}
	raw, err := in.toRaw(v)
	if err != nil {
		return nil, wrap(err)
	}
	return raw, nil
}

func wrap(err error) error {
	var ee *EvaluationError
	switch {
	case errors.As(err, &ee), errors.Is(err, graph.ErrNotFound):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &EvaluationError{Message: "script interrupted: " + err.Error(), Err: err}
	}
	return &EvaluationError{Message: err.Error(), Err: err}
}
