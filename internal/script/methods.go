package script

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/hanpama/graphscript/internal/graph"
	"github.com/hanpama/graphscript/internal/graph/graphml"
	"github.com/hanpama/graphscript/internal/language"
)

// member evaluates "recv.name" without parentheses.
func (in *interp) member(recv any, name string) (any, error) {
	switch x := recv.(type) {
	case missing:
		return nil, x.err()
	case nil:
		return nil, fmt.Errorf("cannot get property '%s' on null object", name)
	case *graphValue:
		return in.call(x, name, nil)
	case *pipe:
		if isStep(name) {
			return in.step(x, name, nil)
		}
		return in.project(x, name)
	case *graph.Vertex, *graph.Edge:
		if isStep(name) && name != "id" && name != "label" && name != "map" {
			return in.step(startPipe(x), name, nil)
		}
		switch name {
		case "id", "label", "map":
			return in.elementAccessor(x, name)
		case "keys", "propertyKeys":
			return in.call(x, "getPropertyKeys", nil)
		}
		v, _ := in.lookupProperty(x, name)
		return v, nil
	case map[string]any:
		return x[name], nil
	case []any, pathVal, rangeVal:
		if isStep(name) {
			p, err := in.asPipe(x)
			if err != nil {
				return nil, err
			}
			return in.step(p, name, nil)
		}
		items, err := in.items(x)
		if err != nil {
			return nil, err
		}
		// property access spreads over lists
		out := make([]any, len(items))
		for i, it := range items {
			v, err := in.member(it, name)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	return in.call(recv, name, nil)
}

// setMember evaluates "recv.name = v".
func (in *interp) setMember(recv any, name string, v any) error {
	switch x := recv.(type) {
	case missing:
		return x.err()
	case *graph.Vertex, *graph.Edge:
		_, err := in.call(x, "setProperty", []any{name, v})
		return err
	case map[string]any:
		if holds(v, x) {
			return errCyclic
		}
		x[name] = v
		return nil
	}
	return fmt.Errorf("cannot set property '%s' on %s", name, typeName(recv))
}

// holds reports whether v is m or contains m at any depth. Values built by
// scripts are acyclic, so the walk ends.
func holds(v any, m map[string]any) bool {
	switch x := v.(type) {
	case map[string]any:
		if reflect.ValueOf(x).Pointer() == reflect.ValueOf(m).Pointer() {
			return true
		}
		for _, e := range x {
			if holds(e, m) {
				return true
			}
		}
	case []any:
		for _, e := range x {
			if holds(e, m) {
				return true
			}
		}
	case pathVal:
		for _, e := range x {
			if holds(e, m) {
				return true
			}
		}
	}
	return false
}

// call evaluates "recv.name(args)".
func (in *interp) call(recv any, name string, args []any) (any, error) {
	switch x := recv.(type) {
	case missing:
		return nil, x.err()
	case nil:
		return nil, fmt.Errorf("cannot invoke method %s() on null object", name)
	case *graphValue:
		return in.graphMethod(x, name, args)
	case graphMLReader:
		if name == "inputGraph" {
			return in.inputGraph(args)
		}
	case urlValue:
		switch name {
		case "openStream":
			return streamValue{location: x.location}, nil
		case "toString":
			return x.location, nil
		}
	case *closure:
		if name == "call" {
			return in.invoke(x, args...)
		}
	case *pipe:
		if isStep(name) {
			return in.step(x, name, args)
		}
		items, err := in.items(x)
		if err != nil {
			return nil, err
		}
		return in.listMethod(items, name, args)
	case *graph.Vertex, *graph.Edge:
		if v, ok, err := in.elementMethod(x, name, args); ok {
			return v, err
		}
		if isStep(name) {
			return in.step(startPipe(x), name, args)
		}
	case []any:
		if v, ok, err := in.listOrStep(x, name, args); ok {
			return v, err
		}
	case pathVal:
		if v, ok, err := in.listOrStep([]any(x), name, args); ok {
			return v, err
		}
	case rangeVal:
		if v, ok, err := in.listOrStep(x, name, args); ok {
			return v, err
		}
	case map[string]any:
		if v, ok, err := in.mapMethod(x, name, args); ok {
			return v, err
		}
	case string:
		if v, ok, err := stringMethod(x, name, args); ok {
			return v, err
		}
	case int64, int32, float64, float32:
		if v, ok := numberMethod(x, name); ok {
			return v, nil
		}
	}
	switch name {
	case "toString":
		return stringify(recv), nil
	case "equals":
		if len(args) == 1 {
			return valuesEqual(recv, args[0]), nil
		}
	}
	return nil, fmt.Errorf("no signature of method: %s.%s() is applicable", typeName(recv), name)
}

func (in *interp) listOrStep(v any, name string, args []any) (any, bool, error) {
	items, err := in.items(v)
	if err != nil {
		return nil, true, err
	}
	if _, ok := listMethods[name]; ok {
		res, err := in.listMethod(items, name, args)
		return res, true, err
	}
	if isStep(name) {
		res, err := in.step(startPipe(items...), name, args)
		return res, true, err
	}
	return nil, false, nil
}

func (in *interp) index(recv any, idx any) (any, error) {
	switch x := recv.(type) {
	case missing:
		return nil, x.err()
	case *pipe:
		switch i := idx.(type) {
		case rangeVal:
			if i.from > i.to {
				return rangeOf(x, i.to, i.from), nil
			}
			return rangeOf(x, i.from, i.to), nil
		case map[string]any:
			return in.filterByMap(x, i)
		}
		if n, ok := asInt(idx); ok && isInteger(idx) {
			return rangeOf(x, n, n), nil
		}
	case *graph.Vertex, *graph.Edge:
		if k, ok := idx.(string); ok {
			v, _ := in.lookupProperty(x, k)
			return v, nil
		}
	case map[string]any:
		return x[stringify(idx)], nil
	case string:
		r := []rune(x)
		if n, ok := asInt(idx); ok && isInteger(idx) {
			if n < 0 {
				n += int64(len(r))
			}
			if n < 0 || n >= int64(len(r)) {
				return nil, fmt.Errorf("string index out of range: %d", n)
			}
			return string(r[n]), nil
		}
	case []any, pathVal, rangeVal:
		items, err := in.items(x)
		if err != nil {
			return nil, err
		}
		if rv, ok := idx.(rangeVal); ok {
			return sublist(items, rv)
		}
		if n, ok := asInt(idx); ok && isInteger(idx) {
			if n < 0 {
				n += int64(len(items))
			}
			if n < 0 || n >= int64(len(items)) {
				return nil, nil
			}
			return items[n], nil
		}
	}
	return nil, fmt.Errorf("cannot index %s with %s", typeName(recv), typeName(idx))
}

func sublist(items []any, r rangeVal) ([]any, error) {
	lo, hi := r.from, r.to
	n := int64(len(items))
	if lo < 0 {
		lo += n
	}
	if hi < 0 {
		hi += n
	}
	rev := lo > hi
	if rev {
		lo, hi = hi, lo
	}
	if lo < 0 || hi >= n {
		return nil, fmt.Errorf("index range %d..%d out of bounds for size %d", r.from, r.to, n)
	}
	out := append([]any(nil), items[lo:hi+1]...)
	if rev {
		reverse(out)
	}
	return out, nil
}

func reverse(xs []any) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}

func (in *interp) graphMethod(g *graphValue, name string, args []any) (any, error) {
	switch name {
	case "V", "getVertices":
		vs := g.h.Vertices()
		objs := make([]any, len(vs))
		for i, v := range vs {
			objs[i] = v
		}
		return in.startFiltered(objs, name, args)
	case "E", "getEdges":
		es := g.h.Edges()
		objs := make([]any, len(es))
		for i, e := range es {
			objs[i] = e
		}
		return in.startFiltered(objs, name, args)
	case "v", "e":
		kind := "vertex"
		if name == "e" {
			kind = "edge"
		}
		if len(args) == 0 {
			return nil, fmt.Errorf("%s() expects at least one id", name)
		}
		if len(args) == 1 {
			if _, ok := args[0].([]any); !ok {
				return in.lookupElement(g, kind, args[0]), nil
			}
		}
		ids := args
		if len(args) == 1 {
			ids = args[0].([]any)
		}
		out := make([]any, len(ids))
		for i, id := range ids {
			el := in.lookupElement(g, kind, id)
			if _, ok := el.(missing); ok {
				el = nil
			}
			out[i] = el
		}
		return out, nil
	case "getVertex", "getEdge":
		if len(args) != 1 {
			return nil, fmt.Errorf("%s() expects one id", name)
		}
		kind := "vertex"
		if name == "getEdge" {
			kind = "edge"
		}
		el := in.lookupElement(g, kind, args[0])
		if _, ok := el.(missing); ok {
			return nil, nil
		}
		return el, nil
	case "addVertex":
		w, err := in.writer()
		if err != nil {
			return nil, err
		}
		var props map[string]any
		for _, a := range args {
			if m, ok := a.(map[string]any); ok {
				props = m
			}
		}
		return w.AddVertex(props)
	case "addEdge":
		w, err := in.writer()
		if err != nil {
			return nil, err
		}
		// an explicit leading id is accepted and ignored
		if len(args) >= 4 {
			if _, ok := args[0].(*graph.Vertex); !ok {
				args = args[1:]
			}
		}
		if len(args) < 3 || len(args) > 4 {
			return nil, errors.New("addEdge expects an out vertex, an in vertex and a label")
		}
		out, ok1 := args[0].(*graph.Vertex)
		inV, ok2 := args[1].(*graph.Vertex)
		label, ok3 := args[2].(string)
		if !ok1 || !ok2 || !ok3 {
			return nil, fmt.Errorf("addEdge expects (Vertex, Vertex, String), got (%s, %s, %s)",
				typeName(args[0]), typeName(args[1]), typeName(args[2]))
		}
		var props map[string]any
		if len(args) == 4 {
			m, ok := args[3].(map[string]any)
			if !ok {
				return nil, errors.New("addEdge expects a property map")
			}
			props = m
		}
		return w.AddEdge(out, inV, label, props)
	case "removeVertex", "removeEdge":
		w, err := in.writer()
		if err != nil {
			return nil, err
		}
		if len(args) != 1 {
			return nil, fmt.Errorf("%s() expects one element", name)
		}
		switch el := args[0].(type) {
		case *graph.Vertex:
			if name == "removeVertex" {
				return nil, w.RemoveVertex(el)
			}
		case *graph.Edge:
			if name == "removeEdge" {
				return nil, w.RemoveEdge(el)
			}
		case missing:
			return nil, el.err()
		}
		return nil, fmt.Errorf("%s() cannot remove %s", name, typeName(args[0]))
	case "loadGraphML":
		if len(args) != 1 {
			return nil, errors.New("loadGraphML expects a location")
		}
		return in.inputGraph([]any{g, args[0]})
	case "toString", "getName", "name":
		return g.h.Name(), nil
	}
	return nil, fmt.Errorf("no signature of method: Graph.%s() is applicable", name)
}

func (in *interp) startFiltered(objs []any, name string, args []any) (any, error) {
	p := startPipe(objs...)
	switch len(args) {
	case 0:
		return p, nil
	case 2:
		key, ok := args[0].(string)
		if ok {
			return in.filterByMap(p, map[string]any{key: args[1]})
		}
	}
	return nil, fmt.Errorf("%s() expects no arguments or a key and a value", name)
}

// lookupElement resolves an id given as a number or a string. Absent ids
// yield the missing marker.
func (in *interp) lookupElement(g *graphValue, kind string, id any) any {
	key := stringify(id)
	if n, ok := asInt(id); ok {
		key = strconv.FormatInt(n, 10)
	}
	var (
		el  any
		err error
	)
	if kind == "vertex" {
		el, err = g.h.Vertex(key)
	} else {
		el, err = g.h.Edge(key)
	}
	if err != nil {
		return missing{kind: kind, id: key}
	}
	return el
}

// inputGraph loads GraphML from a location, URL or stream into a graph.
func (in *interp) inputGraph(args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.New("inputGraph expects a graph and a source")
	}
	gv, ok := args[0].(*graphValue)
	if !ok {
		return nil, fmt.Errorf("inputGraph expects a graph, got %s", typeName(args[0]))
	}
	if gv.w == nil {
		return nil, errors.New("graph is read-only")
	}
	var location string
	switch src := args[1].(type) {
	case string:
		location = src
	case urlValue:
		location = src.location
	case streamValue:
		location = src.location
	default:
		return nil, fmt.Errorf("inputGraph cannot read from %s", typeName(args[1]))
	}
	if _, err := graphml.Load(in.ctx, gv.w, location); err != nil {
		return nil, err
	}
	return nil, nil
}

// elementMethod handles the property and identity methods of vertices and
// edges. ok is false when name is not one of them.
func (in *interp) elementMethod(el any, name string, args []any) (any, bool, error) {
	switch name {
	case "getProperty":
		if len(args) != 1 {
			return nil, true, errors.New("getProperty expects a key")
		}
		v, _ := in.lookupProperty(el, stringify(args[0]))
		return v, true, nil
	case "setProperty":
		if len(args) != 2 {
			return nil, true, errors.New("setProperty expects a key and a value")
		}
		w, err := in.writer()
		if err != nil {
			return nil, true, err
		}
		key := stringify(args[0])
		switch x := el.(type) {
		case *graph.Vertex:
			_, err = w.SetVertexProperty(x, key, args[1])
		case *graph.Edge:
			_, err = w.SetEdgeProperty(x, key, args[1])
		}
		return nil, true, err
	case "removeProperty":
		if len(args) != 1 {
			return nil, true, errors.New("removeProperty expects a key")
		}
		w, err := in.writer()
		if err != nil {
			return nil, true, err
		}
		key := stringify(args[0])
		old, _ := in.lookupProperty(el, key)
		switch x := el.(type) {
		case *graph.Vertex:
			_, err = w.RemoveVertexProperty(x, key)
		case *graph.Edge:
			_, err = w.RemoveEdgeProperty(x, key)
		}
		return old, true, err
	case "getPropertyKeys", "keys":
		var keys []string
		switch x := el.(type) {
		case *graph.Vertex:
			keys = in.refreshVertex(x).Keys()
		case *graph.Edge:
			keys = in.refreshEdge(x).Keys()
		}
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = k
		}
		return out, true, nil
	case "getId", "id":
		v, err := in.elementAccessor(el, "id")
		return v, true, err
	case "getLabel", "label":
		v, err := in.elementAccessor(el, "label")
		return v, true, err
	case "map":
		v, err := in.elementAccessor(el, "map")
		return v, true, err
	case "getOutVertex", "getInVertex":
		e, ok := el.(*graph.Edge)
		if !ok || in.g == nil {
			return nil, false, nil
		}
		id := e.OutID()
		if name == "getInVertex" {
			id = e.InID()
		}
		return in.vertexOrNil(id), true, nil
	}
	return nil, false, nil
}

var listMethods = map[string]struct{}{
	"size": {}, "isEmpty": {}, "each": {}, "eachWithIndex": {}, "collect": {},
	"findAll": {}, "find": {}, "any": {}, "every": {}, "sum": {}, "max": {},
	"min": {}, "contains": {}, "get": {}, "getAt": {}, "first": {}, "last": {},
	"reverse": {}, "sort": {}, "unique": {}, "join": {}, "flatten": {},
	"count": {}, "add": {}, "plus": {}, "minus": {}, "asList": {}, "toList": {},
	"getClass": {},
}

func (in *interp) listMethod(items []any, name string, args []any) (any, error) {
	one := func() (*closure, error) {
		return closureArg(name, args)
	}
	switch name {
	case "size":
		return int64(len(items)), nil
	case "count":
		if len(args) == 0 {
			return int64(len(items)), nil
		}
		var n int64
		for _, it := range items {
			if c, ok := args[0].(*closure); ok {
				v, err := in.invoke(c, it)
				if err != nil {
					return nil, err
				}
				if truthy(v) {
					n++
				}
			} else if valuesEqual(it, args[0]) {
				n++
			}
		}
		return n, nil
	case "isEmpty":
		return len(items) == 0, nil
	case "asList", "toList":
		return items, nil
	case "each", "eachWithIndex":
		c, err := one()
		if err != nil {
			return nil, err
		}
		for i, it := range items {
			if err := in.ctx.Err(); err != nil {
				return nil, err
			}
			if name == "each" {
				_, err = in.invoke(c, it)
			} else {
				_, err = in.invoke(c, it, int64(i))
			}
			if err != nil {
				return nil, err
			}
		}
		return items, nil
	case "collect":
		c, err := one()
		if err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, it := range items {
			if out[i], err = in.invoke(c, it); err != nil {
				return nil, err
			}
		}
		return out, nil
	case "findAll", "find", "any", "every":
		c, err := one()
		if err != nil {
			return nil, err
		}
		out := []any{}
		for _, it := range items {
			v, err := in.invoke(c, it)
			if err != nil {
				return nil, err
			}
			switch {
			case name == "find" && truthy(v):
				return it, nil
			case name == "any" && truthy(v):
				return true, nil
			case name == "every" && !truthy(v):
				return false, nil
			case truthy(v):
				out = append(out, it)
			}
		}
		switch name {
		case "find":
			return nil, nil
		case "any":
			return false, nil
		case "every":
			return true, nil
		}
		return out, nil
	case "sum":
		if len(items) == 0 {
			return nil, nil
		}
		acc := items[0]
		for _, it := range items[1:] {
			v, err := arith(language.Plus, acc, it)
			if err != nil {
				return nil, err
			}
			acc = v
		}
		return acc, nil
	case "max", "min":
		if len(items) == 0 {
			return nil, nil
		}
		best := items[0]
		for _, it := range items[1:] {
			c, err := compareValues(it, best)
			if err != nil {
				return nil, err
			}
			if (name == "max" && c > 0) || (name == "min" && c < 0) {
				best = it
			}
		}
		return best, nil
	case "contains":
		if len(args) != 1 {
			return nil, errors.New("contains expects a value")
		}
		for _, it := range items {
			if valuesEqual(it, args[0]) {
				return true, nil
			}
		}
		return false, nil
	case "get", "getAt":
		if len(args) != 1 {
			return nil, fmt.Errorf("%s expects an index", name)
		}
		return in.index(items, args[0])
	case "first", "last":
		if len(items) == 0 {
			return nil, errNoSuchElement
		}
		if name == "first" {
			return items[0], nil
		}
		return items[len(items)-1], nil
	case "reverse":
		out := append([]any(nil), items...)
		reverse(out)
		return out, nil
	case "sort":
		return in.sortItems(items, args)
	case "unique":
		seen := map[string]bool{}
		out := []any{}
		for _, it := range items {
			k := dedupKey(it)
			if !seen[k] {
				seen[k] = true
				out = append(out, it)
			}
		}
		return out, nil
	case "join":
		sep := ""
		if len(args) == 1 {
			sep = stringify(args[0])
		}
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = stringify(it)
		}
		return strings.Join(parts, sep), nil
	case "flatten":
		out := []any{}
		var walk func([]any)
		walk = func(xs []any) {
			for _, x := range xs {
				if l, ok := x.([]any); ok {
					walk(l)
				} else {
					out = append(out, x)
				}
			}
		}
		walk(items)
		return out, nil
	case "add", "plus":
		if len(args) != 1 {
			return nil, fmt.Errorf("%s expects a value", name)
		}
		return arith(language.Plus, items, args[0])
	case "minus":
		if len(args) != 1 {
			return nil, errors.New("minus expects a value")
		}
		return arith(language.Minus, items, args[0])
	case "getClass":
		return "java.util.ArrayList", nil
	}
	return nil, fmt.Errorf("no signature of method: List.%s() is applicable", name)
}

func (in *interp) sortItems(items []any, args []any) ([]any, error) {
	out := append([]any(nil), items...)
	var c *closure
	if len(args) == 1 {
		var ok bool
		if c, ok = args[0].(*closure); !ok {
			return nil, errors.New("sort expects a closure")
		}
	}
	var sortErr error
	less := func(a, b any) bool {
		if c != nil && len(c.params) == 2 {
			v, err := in.invoke(c, a, b)
			if err != nil {
				sortErr = err
				return false
			}
			n, _ := asInt(v)
			return n < 0
		}
		if c != nil {
			ka, err := in.invoke(c, a)
			if err != nil {
				sortErr = err
				return false
			}
			kb, err := in.invoke(c, b)
			if err != nil {
				sortErr = err
				return false
			}
			a, b = ka, kb
		}
		n, err := compareValues(a, b)
		if err != nil {
			sortErr = err
		}
		return n < 0
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, sortErr
}

func (in *interp) mapMethod(m map[string]any, name string, args []any) (any, bool, error) {
	switch name {
	case "size":
		return int64(len(m)), true, nil
	case "isEmpty":
		return len(m) == 0, true, nil
	case "containsKey":
		if len(args) != 1 {
			return nil, true, errors.New("containsKey expects a key")
		}
		_, ok := m[stringify(args[0])]
		return ok, true, nil
	case "get":
		if len(args) != 1 {
			return nil, true, errors.New("get expects a key")
		}
		return m[stringify(args[0])], true, nil
	case "put":
		if len(args) != 2 {
			return nil, true, errors.New("put expects a key and a value")
		}
		if holds(args[1], m) {
			return nil, true, errCyclic
		}
		k := stringify(args[0])
		old := m[k]
		m[k] = args[1]
		return old, true, nil
	case "remove":
		if len(args) != 1 {
			return nil, true, errors.New("remove expects a key")
		}
		k := stringify(args[0])
		old := m[k]
		delete(m, k)
		return old, true, nil
	case "keySet", "values":
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]any, len(keys))
		for i, k := range keys {
			if name == "keySet" {
				out[i] = k
			} else {
				out[i] = m[k]
			}
		}
		return out, true, nil
	case "each":
		c, err := closureArg(name, args)
		if err != nil {
			return nil, true, err
		}
		entries, _ := in.items(m)
		for _, e := range entries {
			ent := e.(map[string]any)
			if len(c.params) == 2 {
				_, err = in.invoke(c, ent["key"], ent["value"])
			} else {
				_, err = in.invoke(c, ent)
			}
			if err != nil {
				return nil, true, err
			}
		}
		return m, true, nil
	}
	return nil, false, nil
}

func stringMethod(s string, name string, args []any) (any, bool, error) {
	strArg := func() (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("%s expects one argument", name)
		}
		return stringify(args[0]), nil
	}
	switch name {
	case "size", "length":
		return int64(len([]rune(s))), true, nil
	case "toUpperCase":
		return strings.ToUpper(s), true, nil
	case "toLowerCase":
		return strings.ToLower(s), true, nil
	case "trim":
		return strings.TrimSpace(s), true, nil
	case "isEmpty":
		return s == "", true, nil
	case "startsWith", "endsWith", "contains", "split":
		a, err := strArg()
		if err != nil {
			return nil, true, err
		}
		switch name {
		case "startsWith":
			return strings.HasPrefix(s, a), true, nil
		case "endsWith":
			return strings.HasSuffix(s, a), true, nil
		case "contains":
			return strings.Contains(s, a), true, nil
		}
		parts := strings.Split(s, a)
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, true, nil
	case "replace":
		if len(args) != 2 {
			return nil, true, errors.New("replace expects two arguments")
		}
		return strings.ReplaceAll(s, stringify(args[0]), stringify(args[1])), true, nil
	case "substring":
		r := []rune(s)
		if len(args) < 1 || len(args) > 2 {
			return nil, true, errors.New("substring expects a start and an optional end")
		}
		lo, _ := asInt(args[0])
		hi := int64(len(r))
		if len(args) == 2 {
			hi, _ = asInt(args[1])
		}
		if lo < 0 || hi > int64(len(r)) || lo > hi {
			return nil, true, fmt.Errorf("substring bounds %d..%d out of range", lo, hi)
		}
		return string(r[lo:hi]), true, nil
	case "toInteger", "toLong":
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, true, fmt.Errorf("cannot convert %q to an integer", s)
		}
		return n, true, nil
	case "toDouble":
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, true, fmt.Errorf("cannot convert %q to a double", s)
		}
		return f, true, nil
	}
	return nil, false, nil
}

func numberMethod(v any, name string) (any, bool) {
	switch name {
	case "intValue", "longValue":
		if n, ok := asInt(v); ok {
			return n, true
		}
		f, _ := asFloat(v)
		return int64(f), true
	case "doubleValue":
		f, _ := asFloat(v)
		return f, true
	case "floatValue":
		f, _ := asFloat(v)
		return float32(f), true
	case "abs":
		if n, ok := v.(int64); ok && n < 0 {
			return -n, true
		}
		f, _ := asFloat(v)
		if f < 0 {
			r, _ := negate(v)
			return r, true
		}
		return v, true
	}
	return nil, false
}
