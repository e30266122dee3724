package script

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hanpama/graphscript/internal/graph"
)

// errNoSuchElement is returned by next() on an exhausted pipeline.
var errNoSuchElement = errors.New("no such element: pipeline is exhausted")

var stepNames = map[string]bool{
	"outE": true, "inE": true, "bothE": true,
	"out": true, "in": true, "both": true,
	"outV": true, "inV": true, "bothV": true,
	"has": true, "hasNot": true, "interval": true,
	"filter": true, "transform": true, "sideEffect": true,
	"property": true, "id": true, "label": true, "map": true,
	"path": true, "paths": true, "count": true, "next": true, "toList": true,
	"dedup": true, "range": true, "iterate": true, "_": true,
	"simplePath": true, "except": true, "retain": true, "order": true,
}

func isStep(name string) bool { return stepNames[name] }

func startPipe(objs ...any) *pipe {
	p := &pipe{items: make([]traverser, len(objs))}
	for i, o := range objs {
		p.items[i] = traverser{obj: o, path: []any{o}}
	}
	return p
}

// asPipe starts a traversal from v. Lists and ranges start one traverser per
// object.
func (in *interp) asPipe(v any) (*pipe, error) {
	switch x := v.(type) {
	case *pipe:
		return x, nil
	case missing:
		return nil, x.err()
	case *graph.Vertex, *graph.Edge:
		return startPipe(x), nil
	}
	items, err := in.items(v)
	if err != nil {
		return nil, err
	}
	return startPipe(items...), nil
}

// extend appends obj to t's path.
func extend(t traverser, obj any) traverser {
	path := make([]any, len(t.path), len(t.path)+1)
	copy(path, t.path)
	return traverser{obj: obj, path: append(path, obj)}
}

func stringArgs(step string, args []any) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		s, ok := a.(string)
		if !ok {
			return nil, fmt.Errorf("%s() expects string labels, got %s", step, typeName(a))
		}
		out[i] = s
	}
	return out, nil
}

func closureArg(step string, args []any) (*closure, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%s expects a closure", step)
	}
	c, ok := args[0].(*closure)
	if !ok {
		return nil, fmt.Errorf("%s expects a closure, got %s", step, typeName(args[0]))
	}
	return c, nil
}

// step applies a pipeline step to p.
func (in *interp) step(p *pipe, name string, args []any) (any, error) {
	switch name {
	case "outE", "inE", "bothE", "out", "in", "both", "outV", "inV", "bothV":
		if in.g == nil {
			return nil, fmt.Errorf("%s requires a bound graph", name)
		}
	}
	switch name {
	case "outE", "inE", "bothE", "out", "in", "both":
		labels, err := stringArgs(name, args)
		if err != nil {
			return nil, err
		}
		return in.expand(p, name, func(t traverser) ([]any, error) {
			v, ok := t.obj.(*graph.Vertex)
			if !ok {
				return nil, fmt.Errorf("%s cannot be applied to %s", name, typeName(t.obj))
			}
			var edges []any
			if name != "inE" && name != "in" {
				for _, e := range in.g.h.OutEdges(v, labels...) {
					if name == "out" || name == "both" {
						edges = append(edges, in.vertexOrNil(e.InID()))
					} else {
						edges = append(edges, e)
					}
				}
			}
			if name != "outE" && name != "out" {
				for _, e := range in.g.h.InEdges(v, labels...) {
					if name == "in" || name == "both" {
						edges = append(edges, in.vertexOrNil(e.OutID()))
					} else {
						edges = append(edges, e)
					}
				}
			}
			return edges, nil
		})
	case "outV", "inV", "bothV":
		return in.expand(p, name, func(t traverser) ([]any, error) {
			e, ok := t.obj.(*graph.Edge)
			if !ok {
				return nil, fmt.Errorf("%s cannot be applied to %s", name, typeName(t.obj))
			}
			switch name {
			case "outV":
				return []any{in.vertexOrNil(e.OutID())}, nil
			case "inV":
				return []any{in.vertexOrNil(e.InID())}, nil
			}
			return []any{in.vertexOrNil(e.OutID()), in.vertexOrNil(e.InID())}, nil
		})
	case "has", "hasNot":
		if len(args) < 1 || len(args) > 2 {
			return nil, fmt.Errorf("%s expects a key and an optional value", name)
		}
		key, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("%s expects a string key", name)
		}
		return in.filter(p, func(t traverser) (bool, error) {
			val, present := in.lookupProperty(t.obj, key)
			match := present
			if len(args) == 2 {
				match = present && valuesEqual(val, args[1])
			}
			return match == (name == "has"), nil
		})
	case "interval":
		if len(args) != 3 {
			return nil, errors.New("interval expects a key, a start and an end")
		}
		key, _ := args[0].(string)
		return in.filter(p, func(t traverser) (bool, error) {
			val, ok := in.lookupProperty(t.obj, key)
			if !ok {
				return false, nil
			}
			lo, err := compareValues(val, args[1])
			if err != nil {
				return false, nil
			}
			hi, err := compareValues(val, args[2])
			if err != nil {
				return false, nil
			}
			return lo >= 0 && hi < 0, nil
		})
	case "filter":
		c, err := closureArg(name, args)
		if err != nil {
			return nil, err
		}
		return in.filter(p, func(t traverser) (bool, error) {
			v, err := in.invoke(c, t.obj)
			return truthy(v), err
		})
	case "transform":
		c, err := closureArg(name, args)
		if err != nil {
			return nil, err
		}
		return in.expand(p, name, func(t traverser) ([]any, error) {
			v, err := in.invoke(c, t.obj)
			return []any{v}, err
		})
	case "sideEffect":
		c, err := closureArg(name, args)
		if err != nil {
			return nil, err
		}
		return in.filter(p, func(t traverser) (bool, error) {
			_, err := in.invoke(c, t.obj)
			return true, err
		})
	case "property":
		if len(args) != 1 {
			return nil, errors.New("property expects a key")
		}
		key, ok := args[0].(string)
		if !ok {
			return nil, errors.New("property expects a string key")
		}
		return in.project(p, key)
	case "id", "label", "map":
		return in.expand(p, name, func(t traverser) ([]any, error) {
			v, err := in.elementAccessor(t.obj, name)
			return []any{v}, err
		})
	case "path", "paths":
		out := &pipe{items: make([]traverser, len(p.items))}
		for i, t := range p.items {
			path := make(pathVal, len(t.path))
			for j, o := range t.path {
				if len(args) == 0 {
					path[j] = o
					continue
				}
				c, ok := args[j%len(args)].(*closure)
				if !ok {
					return nil, fmt.Errorf("%s expects closures", name)
				}
				v, err := in.invoke(c, o)
				if err != nil {
					return nil, err
				}
				path[j] = v
			}
			out.items[i] = extend(t, path)
		}
		return out, nil
	case "count":
		return int64(len(p.items)), nil
	case "next":
		if len(args) == 0 {
			if len(p.items) == 0 {
				return nil, errNoSuchElement
			}
			return p.items[0].obj, nil
		}
		n, ok := asInt(args[0])
		if !ok {
			return nil, errors.New("next expects a count")
		}
		return in.emit(p, n)
	case "toList":
		return in.items(p)
	case "iterate":
		return nil, nil
	case "_":
		return p, nil
	case "dedup":
		seen := map[string]bool{}
		return in.filter(p, func(t traverser) (bool, error) {
			k := dedupKey(t.obj)
			if seen[k] {
				return false, nil
			}
			seen[k] = true
			return true, nil
		})
	case "range":
		if len(args) != 2 {
			return nil, errors.New("range expects a low and a high index")
		}
		lo, ok1 := asInt(args[0])
		hi, ok2 := asInt(args[1])
		if !ok1 || !ok2 {
			return nil, errors.New("range expects integer indexes")
		}
		return rangeOf(p, lo, hi), nil
	case "simplePath":
		return in.filter(p, func(t traverser) (bool, error) {
			seen := map[string]bool{}
			for _, o := range t.path {
				k := dedupKey(o)
				if seen[k] {
					return false, nil
				}
				seen[k] = true
			}
			return true, nil
		})
	case "except", "retain":
		if len(args) != 1 {
			return nil, fmt.Errorf("%s expects a collection", name)
		}
		others, err := in.items(args[0])
		if err != nil {
			return nil, err
		}
		return in.filter(p, func(t traverser) (bool, error) {
			found := false
			for _, o := range others {
				found = found || valuesEqual(t.obj, o)
			}
			return found == (name == "retain"), nil
		})
	case "order":
		out := &pipe{items: append([]traverser(nil), p.items...)}
		var sortErr error
		sort.SliceStable(out.items, func(i, j int) bool {
			a, b := out.items[i].obj, out.items[j].obj
			if len(args) == 1 {
				c, ok := args[0].(*closure)
				if !ok {
					sortErr = errors.New("order expects a comparator closure")
					return false
				}
				v, err := in.invoke(c, a, b)
				if err != nil {
					sortErr = err
					return false
				}
				n, _ := asInt(v)
				return n < 0
			}
			n, err := compareValues(a, b)
			if err != nil {
				sortErr = err
			}
			return n < 0
		})
		if sortErr != nil {
			return nil, sortErr
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown step %s", name)
}

func rangeOf(p *pipe, lo, hi int64) *pipe {
	out := &pipe{}
	for i, t := range p.items {
		if int64(i) >= lo && (hi < 0 || int64(i) <= hi) {
			out.items = append(out.items, t)
		}
	}
	return out
}

func (in *interp) expand(p *pipe, step string, fn func(traverser) ([]any, error)) (*pipe, error) {
	out := &pipe{}
	for _, t := range p.items {
		if err := in.ctx.Err(); err != nil {
			return nil, err
		}
		objs, err := fn(t)
		if err != nil {
			return nil, err
		}
		for _, o := range objs {
			out.items = append(out.items, extend(t, o))
		}
	}
	return out, nil
}

func (in *interp) filter(p *pipe, keep func(traverser) (bool, error)) (*pipe, error) {
	out := &pipe{}
	for _, t := range p.items {
		if err := in.ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := keep(t)
		if err != nil {
			return nil, err
		}
		if ok {
			out.items = append(out.items, t)
		}
	}
	return out, nil
}

// project maps every object to its key property. Absent properties project
// to null.
func (in *interp) project(p *pipe, key string) (*pipe, error) {
	return in.expand(p, key, func(t traverser) ([]any, error) {
		switch t.obj.(type) {
		case *graph.Vertex, *graph.Edge, map[string]any:
			v, _ := in.lookupProperty(t.obj, key)
			return []any{v}, nil
		}
		return nil, fmt.Errorf("no such property: %s for class: %s", key, typeName(t.obj))
	})
}

// lookupProperty reads key from an element or map. id and label are
// reserved on elements.
func (in *interp) lookupProperty(obj any, key string) (any, bool) {
	switch x := obj.(type) {
	case *graph.Vertex:
		if key == "id" {
			return x.ID(), true
		}
		return in.refreshVertex(x).Property(key)
	case *graph.Edge:
		switch key {
		case "id":
			return x.ID(), true
		case "label":
			return x.Label(), true
		}
		return in.refreshEdge(x).Property(key)
	case map[string]any:
		v, ok := x[key]
		return v, ok
	}
	return nil, false
}

func (in *interp) elementAccessor(obj any, name string) (any, error) {
	switch x := obj.(type) {
	case *graph.Vertex:
		switch name {
		case "id":
			return x.ID(), nil
		case "map":
			return in.refreshVertex(x).Properties(), nil
		case "label":
			return nil, nil
		}
	case *graph.Edge:
		switch name {
		case "id":
			return x.ID(), nil
		case "label":
			return x.Label(), nil
		case "map":
			return in.refreshEdge(x).Properties(), nil
		}
	}
	return nil, fmt.Errorf("%s cannot be applied to %s", name, typeName(obj))
}

// vertexOrNil resolves an endpoint; vertices removed earlier in the script
// read as null.
func (in *interp) vertexOrNil(id string) any {
	v, err := in.g.h.Vertex(id)
	if err != nil {
		return nil
	}
	return v
}

// filterByMap keeps the objects whose properties match every entry of m,
// as in g.V[[name:'marko']].
func (in *interp) filterByMap(p *pipe, m map[string]any) (*pipe, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return in.filter(p, func(t traverser) (bool, error) {
		for _, k := range keys {
			v, ok := in.lookupProperty(t.obj, k)
			if !ok || !valuesEqual(v, m[k]) {
				return false, nil
			}
		}
		return true, nil
	})
}
