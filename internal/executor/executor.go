package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hanpama/graphscript/internal/canonical"
	"github.com/hanpama/graphscript/internal/eventbus"
	"github.com/hanpama/graphscript/internal/events"
	"github.com/hanpama/graphscript/internal/graph"
	"github.com/hanpama/graphscript/internal/script"
)

// GraphBinding is the name the graph is bound to in every script.
const GraphBinding = "g"

// Database opens transactions on a graph. *graph.Store implements it.
type Database interface {
	Name() string
	Begin() *graph.Tx
}

// Request is one script submission.
type Request struct {
	Script string
	// Bindings are extra variables for the script. A binding named "g" is
	// shadowed by the graph.
	Bindings map[string]any
}

type Options struct {
	Evaluator *script.Evaluator
	Linker    canonical.Linker
}

type Option func(*Options)

func WithEvaluator(e *script.Evaluator) Option { return func(o *Options) { o.Evaluator = e } }
func WithLinker(l canonical.Linker) Option     { return func(o *Options) { o.Linker = l } }

// Coordinator runs scripts. It is safe for concurrent use.
type Coordinator struct {
	eval *script.Evaluator
	norm *canonical.Normalizer
}

func New(opts ...Option) *Coordinator {
	var o Options
	for _, f := range opts {
		f(&o)
	}
	if o.Evaluator == nil {
		o.Evaluator = script.New()
	}
	return &Coordinator{eval: o.Evaluator, norm: canonical.New(o.Linker)}
}

// ExecuteScript runs src with no extra bindings.
func (c *Coordinator) ExecuteScript(ctx context.Context, db Database, src string) *ExecutionResult {
	return c.Execute(ctx, db, Request{Script: src})
}

// Execute runs req against db, or against the transaction carried by ctx.
// It always returns a result; failures are reported on it.
func (c *Coordinator) Execute(ctx context.Context, db Database, req Request) *ExecutionResult {
	tx, joined := graph.TxFromContext(ctx)
	ex := &execution{state: Idle}
	start := time.Now()
	eventbus.Publish(ctx, events.ScriptStart{Script: req.Script, Joined: joined})

	res := c.run(ctx, ex, db, tx, joined, req)

	fin := events.ScriptFinish{Script: req.Script, Joined: joined, Duration: time.Since(start)}
	if res.Failure != nil {
		fin.FailureKind = string(res.Failure.Kind)
		fin.Err = res.Failure.Err
	}
	eventbus.Publish(ctx, fin)
	return res
}

func (c *Coordinator) run(ctx context.Context, ex *execution, db Database, tx *graph.Tx, joined bool, req Request) (res *ExecutionResult) {
	committing := false
	defer func() {
		if r := recover(); r != nil {
			res = recovered(ex, committing, r)
		}
	}()
	if strings.TrimSpace(req.Script) == "" {
		return ex.fail(EvaluationError, errors.New("script is empty"))
	}
	if !joined {
		if db == nil {
			return ex.fail(TransactionError, errors.New("no database to execute against"))
		}
		tx = db.Begin()
		ctx = graph.NewContext(ctx, tx)
		// no-op once committed
		defer tx.Rollback()
	}

	bindings := make(script.Bindings, len(req.Bindings)+1)
	for k, v := range req.Bindings {
		bindings[k] = v
	}
	bindings[GraphBinding] = tx
	ex.to(Bound)

	ex.to(Evaluating)
	raw, err := c.eval.Evaluate(ctx, req.Script, bindings)
	if err != nil {
		return ex.fail(classify(err), err)
	}

	ex.to(Normalizing)
	val, err := c.norm.Normalize(raw)
	if err != nil {
		return ex.fail(UnrepresentableResultError, err)
	}

	if !joined {
		committing = true
		start := time.Now()
		err := tx.Commit()
		eventbus.Publish(ctx, events.GraphCommit{Graph: db.Name(), Err: err, Duration: time.Since(start)})
		if err != nil {
			return ex.fail(TransactionError, err)
		}
	}
	ex.to(Done)
	return &ExecutionResult{Value: val, State: ex.state}
}

// recovered turns a panic raised while running a script into a failure.
// The kind follows the phase that panicked.
func recovered(ex *execution, committing bool, r any) *ExecutionResult {
	kind, phase := EvaluationError, "script"
	switch {
	case committing:
		kind, phase = TransactionError, "commit"
	case ex.state == Normalizing:
		kind, phase = UnrepresentableResultError, "normalization"
	}
	ex.state = Failed
	err := fmt.Errorf("%s panicked: %v", phase, r)
	return &ExecutionResult{
		Failure: &Failure{Kind: kind, Message: err.Error(), Err: err},
		State:   ex.state,
	}
}
