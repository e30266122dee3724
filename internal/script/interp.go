package script

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hanpama/graphscript/internal/graph"
	"github.com/hanpama/graphscript/internal/language"
)

type scope struct {
	vars   map[string]any
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{vars: map[string]any{}, parent: parent}
}

func (s *scope) lookup(name string) (any, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// assign updates the nearest binding of name, or creates it at script level.
func (s *scope) assign(name string, v any) {
	root := s
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.vars[name]; ok {
			sc.vars[name] = v
			return
		}
		root = sc
	}
	root.vars[name] = v
}

type interp struct {
	ctx context.Context
	g   *graphValue
}

// fail builds an evaluation error located at n.
func fail(n language.Node, format string, args ...any) error {
	pos := n.Pos()
	return &EvaluationError{Message: fmt.Sprintf(format, args...), Line: pos.Line, Column: pos.Column}
}

// located attaches n's position to a plain error. Not-found and
// cancellation errors pass through.
func located(n language.Node, err error) error {
	var ee *EvaluationError
	if err == nil || errors.As(err, &ee) || errors.Is(err, graph.ErrNotFound) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	pos := n.Pos()
	return &EvaluationError{Message: err.Error(), Line: pos.Line, Column: pos.Column, Err: err}
}

func (in *interp) execStmts(stmts []language.Stmt, sc *scope) (any, error) {
	var last any
	for _, st := range stmts {
		if err := in.ctx.Err(); err != nil {
			return nil, err
		}
		v, err := in.execStmt(st, sc)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

func (in *interp) execStmt(st language.Stmt, sc *scope) (any, error) {
	switch s := st.(type) {
	case *language.ExprStmt:
		return in.eval(s.X, sc)
	case *language.AssignStmt:
		v, err := in.eval(s.Value, sc)
		if err != nil {
			return nil, err
		}
		switch t := s.Target.(type) {
		case *language.Ident:
			if s.Def {
				sc.vars[t.Name] = v
			} else {
				sc.assign(t.Name, v)
			}
			return v, nil
		case *language.Member:
			x, err := in.eval(t.X, sc)
			if err != nil {
				return nil, err
			}
			if err := in.setMember(x, t.Name, v); err != nil {
				return nil, located(t, err)
			}
			return v, nil
		}
		return nil, fail(s, "invalid assignment target")
	case *language.ForStmt:
		iter, err := in.eval(s.Iter, sc)
		if err != nil {
			return nil, err
		}
		err = in.each(iter, func(item any) error {
			if err := in.ctx.Err(); err != nil {
				return err
			}
			body := newScope(sc)
			body.vars[s.Var] = item
			_, err := in.execStmts(s.Body.Stmts, body)
			return err
		})
		return nil, located(s, err)
	case *language.IfStmt:
		cond, err := in.eval(s.Cond, sc)
		if err != nil {
			return nil, err
		}
		if truthy(cond) {
			return in.execStmts(s.Then.Stmts, newScope(sc))
		}
		if s.Else != nil {
			return in.execStmt(s.Else, sc)
		}
		return nil, nil
	case *language.Block:
		return in.execStmts(s.Stmts, newScope(sc))
	}
	return nil, fail(st, "unsupported statement %T", st)
}

func (in *interp) eval(e language.Expr, sc *scope) (any, error) {
	switch x := e.(type) {
	case *language.IntLit:
		return x.Value, nil
	case *language.FloatLit:
		if x.Single {
			return float32(x.Value), nil
		}
		return x.Value, nil
	case *language.StringLit:
		return x.Value, nil
	case *language.BoolLit:
		return x.Value, nil
	case *language.NullLit:
		return nil, nil
	case *language.Ident:
		if v, ok := sc.lookup(x.Name); ok {
			return v, nil
		}
		if x.Name == "GraphMLReader" {
			return graphMLReader{}, nil
		}
		return nil, fail(x, "no such property: %s", x.Name)
	case *language.ListLit:
		out := make([]any, len(x.Elems))
		for i, el := range x.Elems {
			v, err := in.eval(el, sc)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *language.MapLit:
		out := make(map[string]any, len(x.Entries))
		for _, ent := range x.Entries {
			v, err := in.eval(ent.Value, sc)
			if err != nil {
				return nil, err
			}
			out[ent.Key] = v
		}
		return out, nil
	case *language.RangeExpr:
		from, err := in.eval(x.From, sc)
		if err != nil {
			return nil, err
		}
		to, err := in.eval(x.To, sc)
		if err != nil {
			return nil, err
		}
		f, ok1 := asInt(from)
		t, ok2 := asInt(to)
		if !ok1 || !ok2 {
			return nil, fail(x, "range bounds must be integers, got %s..%s", typeName(from), typeName(to))
		}
		return rangeVal{from: f, to: t}, nil
	case *language.Unary:
		v, err := in.eval(x.X, sc)
		if err != nil {
			return nil, err
		}
		if x.Op == language.Not {
			return !truthy(v), nil
		}
		v, err = negate(v)
		return v, located(x, err)
	case *language.Binary:
		return in.evalBinary(x, sc)
	case *language.Member:
		recv, err := in.eval(x.X, sc)
		if err != nil {
			return nil, err
		}
		v, err := in.member(recv, x.Name)
		return v, located(x, err)
	case *language.Call:
		return in.evalCall(x, sc)
	case *language.Index:
		recv, err := in.eval(x.X, sc)
		if err != nil {
			return nil, err
		}
		idx, err := in.eval(x.Index, sc)
		if err != nil {
			return nil, err
		}
		v, err := in.index(recv, idx)
		return v, located(x, err)
	case *language.ClosureLit:
		return &closure{params: x.Params, body: x.Body, env: sc}, nil
	case *language.NewExpr:
		args, err := in.evalArgs(x.Args, sc)
		if err != nil {
			return nil, err
		}
		if x.Type == "URL" && len(args) == 1 {
			if s, ok := args[0].(string); ok {
				return urlValue{location: s}, nil
			}
		}
		return nil, fail(x, "cannot instantiate %s", x.Type)
	}
	return nil, fail(e, "unsupported expression %T", e)
}

func (in *interp) evalArgs(exprs []language.Expr, sc *scope) ([]any, error) {
	args := make([]any, len(exprs))
	for i, a := range exprs {
		v, err := in.eval(a, sc)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (in *interp) evalCall(x *language.Call, sc *scope) (any, error) {
	args, err := in.evalArgs(x.Args, sc)
	if err != nil {
		return nil, err
	}
	if x.Recv == nil {
		fn, ok := sc.lookup(x.Name)
		if !ok {
			return nil, fail(x, "no such method: %s()", x.Name)
		}
		c, ok := fn.(*closure)
		if !ok {
			return nil, fail(x, "%s is not callable", x.Name)
		}
		v, err := in.invoke(c, args...)
		return v, located(x, err)
	}
	recv, err := in.eval(x.Recv, sc)
	if err != nil {
		return nil, err
	}
	v, err := in.call(recv, x.Name, args)
	if err == nil && x.Name == "add" {
		in.storeBack(x.Recv, recv, v, sc)
	}
	return v, located(x, err)
}

// storeBack rebinds a list variable after an appending operation so that
// "xs << v" and "xs.add(v)" update xs in place.
func (in *interp) storeBack(target language.Expr, before, after any, sc *scope) {
	id, ok := target.(*language.Ident)
	if !ok {
		return
	}
	if _, ok := before.([]any); !ok {
		return
	}
	if _, ok := after.([]any); ok {
		sc.assign(id.Name, after)
	}
}

func (in *interp) evalBinary(x *language.Binary, sc *scope) (any, error) {
	a, err := in.eval(x.X, sc)
	if err != nil {
		return nil, err
	}
	switch x.Op {
	case language.And:
		if !truthy(a) {
			return false, nil
		}
		b, err := in.eval(x.Y, sc)
		if err != nil {
			return nil, err
		}
		return truthy(b), nil
	case language.Or:
		if truthy(a) {
			return true, nil
		}
		b, err := in.eval(x.Y, sc)
		if err != nil {
			return nil, err
		}
		return truthy(b), nil
	}
	b, err := in.eval(x.Y, sc)
	if err != nil {
		return nil, err
	}
	var v any
	switch x.Op {
	case language.Eq:
		return valuesEqual(a, b), nil
	case language.Ne:
		return !valuesEqual(a, b), nil
	case language.Lt, language.Le, language.Gt, language.Ge:
		c, cerr := compareValues(a, b)
		if cerr != nil {
			return nil, located(x, cerr)
		}
		switch x.Op {
		case language.Lt:
			return c < 0, nil
		case language.Le:
			return c <= 0, nil
		case language.Gt:
			return c > 0, nil
		}
		return c >= 0, nil
	case language.Shr:
		v, err = in.emit(a, b)
	case language.Shl:
		v, err = in.appendOrShift(a, b)
		if err == nil {
			in.storeBack(x.X, a, v, sc)
		}
	default:
		v, err = arith(x.Op, a, b)
	}
	return v, located(x, err)
}

// emit implements "pipeline >> n": n == 1 yields the next object or null,
// larger n a list of at most n objects. On integers it is a right shift.
func (in *interp) emit(a, b any) (any, error) {
	if isInteger(a) {
		x, _ := asInt(a)
		n, ok := asInt(b)
		if !ok || !isInteger(b) {
			return nil, fmt.Errorf("cannot shift by %s", typeName(b))
		}
		return x >> uint64(n&63), nil
	}
	if m, ok := a.(missing); ok {
		return nil, m.err()
	}
	n, ok := asInt(b)
	if !ok || !isInteger(b) {
		return nil, fmt.Errorf("cannot emit %s objects", typeName(b))
	}
	items, err := in.items(a)
	if err != nil {
		return nil, err
	}
	if n == 1 {
		if len(items) == 0 {
			return nil, nil
		}
		return items[0], nil
	}
	if n < 1 {
		return []any{}, nil
	}
	if int64(len(items)) > n {
		items = items[:n]
	}
	return items, nil
}

func (in *interp) appendOrShift(a, b any) (any, error) {
	if l, ok := a.([]any); ok {
		return append(append([]any(nil), l...), b), nil
	}
	x, ok1 := asInt(a)
	n, ok2 := asInt(b)
	if !ok1 || !ok2 || !isInteger(a) || !isInteger(b) {
		return nil, fmt.Errorf("cannot apply << to %s and %s", typeName(a), typeName(b))
	}
	return x << uint64(n&63), nil
}

func (in *interp) invoke(c *closure, args ...any) (any, error) {
	sc := newScope(c.env)
	if len(c.params) == 0 {
		var it any
		if len(args) > 0 {
			it = args[0]
		}
		sc.vars["it"] = it
	} else {
		for i, p := range c.params {
			var v any
			if i < len(args) {
				v = args[i]
			}
			sc.vars[p] = v
		}
	}
	return in.execStmts(c.body.Stmts, sc)
}

// each calls fn for every object of an iterable value.
func (in *interp) each(v any, fn func(any) error) error {
	if r, ok := v.(rangeVal); ok {
		for i := int64(0); i < r.size(); i++ {
			if err := fn(r.at(i)); err != nil {
				return err
			}
		}
		return nil
	}
	items, err := in.items(v)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := fn(item); err != nil {
			return err
		}
	}
	return nil
}

// items materializes an iterable value. Scalars and elements iterate as a
// single object, null as none.
func (in *interp) items(v any) ([]any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case missing:
		return nil, x.err()
	case []any:
		return x, nil
	case pathVal:
		return []any(x), nil
	case *pipe:
		out := make([]any, len(x.items))
		for i, t := range x.items {
			out[i] = t.obj
		}
		return out, nil
	case rangeVal:
		if x.size() > maxMaterialized {
			return nil, fmt.Errorf("range %d..%d is too large", x.from, x.to)
		}
		out := make([]any, x.size())
		for i := range out {
			out[i] = x.at(int64(i))
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = map[string]any{"key": k, "value": x[k]}
		}
		return out, nil
	default:
		return []any{v}, nil
	}
}

func (in *interp) writer() (graph.Writer, error) {
	if in.g == nil || in.g.w == nil {
		return nil, errors.New("graph is read-only")
	}
	return in.g.w, nil
}

func (in *interp) refreshVertex(v *graph.Vertex) *graph.Vertex {
	if in.g == nil {
		return v
	}
	if cur, err := in.g.h.Vertex(v.ID()); err == nil {
		return cur
	}
	return v
}

func (in *interp) refreshEdge(e *graph.Edge) *graph.Edge {
	if in.g == nil {
		return e
	}
	if cur, err := in.g.h.Edge(e.ID()); err == nil {
		return cur
	}
	return e
}
