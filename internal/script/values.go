package script

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/hanpama/graphscript/internal/graph"
	"github.com/hanpama/graphscript/internal/language"
)

// Runtime values are plain Go values (nil, bool, int64, int32, float64,
// float32, string, []any, map[string]any, *graph.Vertex, *graph.Edge) plus
// the types below.

// graphValue is the graph bound as g. w is nil for read-only handles.
type graphValue struct {
	h graph.Handle
	w graph.Writer
}

// missing is the result of looking up an absent element by id. It reads as
// null but any step applied to it fails.
type missing struct {
	kind string
	id   string
}

func (m missing) err() error { return &graph.NotFoundError{Kind: m.kind, ID: m.id} }

// pathVal is the history of one traverser.
type pathVal []any

type traverser struct {
	obj  any
	path []any
}

// pipe is an evaluated traversal. Steps produce new pipes.
type pipe struct {
	items []traverser
}

type closure struct {
	params []string
	body   *language.Block
	env    *scope
}

// rangeVal is an inclusive integer range; From > To counts down.
type rangeVal struct {
	from, to int64
}

func (r rangeVal) size() int64 {
	if r.from <= r.to {
		return r.to - r.from + 1
	}
	return r.from - r.to + 1
}

func (r rangeVal) at(i int64) int64 {
	if r.from <= r.to {
		return r.from + i
	}
	return r.from - i
}

type urlValue struct{ location string }
type streamValue struct{ location string }

// graphMLReader is the GraphMLReader namespace.
type graphMLReader struct{}

// maxMaterialized bounds ranges converted into lists.
const maxMaterialized = 1 << 20

func typeName(v any) string {
	switch v.(type) {
	case nil, missing:
		return "null"
	case bool:
		return "Boolean"
	case int64, int32:
		return "Integer"
	case float64:
		return "Double"
	case float32:
		return "Float"
	case string:
		return "String"
	case []any:
		return "List"
	case map[string]any:
		return "Map"
	case *graph.Vertex:
		return "Vertex"
	case *graph.Edge:
		return "Edge"
	case *graphValue:
		return "Graph"
	case *pipe:
		return "Pipeline"
	case pathVal:
		return "Path"
	case *closure:
		return "Closure"
	case rangeVal:
		return "Range"
	case urlValue:
		return "URL"
	case streamValue:
		return "InputStream"
	case graphMLReader:
		return "GraphMLReader"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// fromGo converts a host value passed as a binding.
func fromGo(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return float64(x)
	case graph.Writer:
		return &graphValue{h: x, w: x}
	case graph.Handle:
		return &graphValue{h: x}
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = fromGo(e)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = fromGo(e)
		}
		return out
	default:
		return v
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil, missing:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case int32:
		return x != 0
	case float64:
		return x != 0
	case float32:
		return x != 0
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	case *pipe:
		return len(x.items) > 0
	case pathVal:
		return len(x) > 0
	default:
		return true
	}
}

func isNull(v any) bool {
	switch v.(type) {
	case nil, missing:
		return true
	}
	return false
}

// asInt returns v as int64 when it is an integer or an integral float.
func asInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return int64(x), true
		}
	case float32:
		f := float64(x)
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			return int64(f), true
		}
	}
	return 0, false
}

func isInteger(v any) bool {
	switch v.(type) {
	case int64, int32:
		return true
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	return 0, false
}

func isNumber(v any) bool {
	_, ok := asFloat(v)
	return ok
}

// valuesEqual implements ==. A float32 operand is compared at single
// precision so that weight == 0.4 matches a stored 0.4f.
func valuesEqual(a, b any) bool {
	if isNull(a) || isNull(b) {
		return isNull(a) && isNull(b)
	}
	if isNumber(a) && isNumber(b) {
		if isInteger(a) && isInteger(b) {
			x, _ := asInt(a)
			y, _ := asInt(b)
			return x == y
		}
		x, _ := asFloat(a)
		y, _ := asFloat(b)
		_, af := a.(float32)
		_, bf := b.(float32)
		if af || bf {
			return float32(x) == float32(y)
		}
		return x == y
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case *graph.Vertex:
		y, ok := b.(*graph.Vertex)
		return ok && x.NativeID() == y.NativeID()
	case *graph.Edge:
		y, ok := b.(*graph.Edge)
		return ok && x.NativeID() == y.NativeID()
	case *graphValue:
		y, ok := b.(*graphValue)
		return ok && x.h == y.h
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !valuesEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	case pathVal:
		y, ok := b.(pathVal)
		return ok && valuesEqual([]any(x), []any(y))
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !valuesEqual(xv, yv) {
				return false
			}
		}
		return true
	case rangeVal:
		y, ok := b.(rangeVal)
		return ok && x == y
	}
	return a == b
}

// compareValues orders numbers and strings. Null sorts before everything.
func compareValues(a, b any) (int, error) {
	switch {
	case isNull(a) && isNull(b):
		return 0, nil
	case isNull(a):
		return -1, nil
	case isNull(b):
		return 1, nil
	}
	if isNumber(a) && isNumber(b) {
		if isInteger(a) && isInteger(b) {
			x, _ := asInt(a)
			y, _ := asInt(b)
			return cmpOrdered(x, y), nil
		}
		x, _ := asFloat(a)
		y, _ := asFloat(b)
		return cmpOrdered(x, y), nil
	}
	if x, ok := a.(string); ok {
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
	}
	return 0, fmt.Errorf("cannot compare %s with %s", typeName(a), typeName(b))
}

func cmpOrdered[T int64 | float64](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

// dedupKey identifies a value for dedup().
func dedupKey(v any) string {
	switch x := v.(type) {
	case *graph.Vertex:
		return "v" + x.ID()
	case *graph.Edge:
		return "e" + x.ID()
	case string:
		return "s" + x
	}
	return typeName(v) + ":" + stringify(v)
}

func formatFloat(f float64, bits int) string {
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// stringify renders v the way string concatenation and toString() see it.
func stringify(v any) string {
	switch x := v.(type) {
	case nil, missing:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case float64:
		return formatFloat(x, 64)
	case float32:
		return formatFloat(float64(x), 32)
	case *graph.Vertex:
		return "v[" + x.ID() + "]"
	case *graph.Edge:
		return fmt.Sprintf("e[%s][%s-%s->%s]", x.ID(), x.OutID(), x.Label(), x.InID())
	case *graphValue:
		return x.h.Name()
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = stringify(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case pathVal:
		return stringify([]any(x))
	case map[string]any:
		if len(x) == 0 {
			return "[:]"
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ":" + stringify(x[k])
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case rangeVal:
		return fmt.Sprintf("%d..%d", x.from, x.to)
	case *pipe:
		objs := make([]any, len(x.items))
		for i, t := range x.items {
			objs[i] = t.obj
		}
		return stringify(objs)
	case urlValue:
		return x.location
	default:
		return typeName(v)
	}
}

func arith(op language.Kind, a, b any) (any, error) {
	if op == language.Plus {
		if s, ok := a.(string); ok {
			return s + stringify(b), nil
		}
		if l, ok := a.([]any); ok {
			out := append([]any(nil), l...)
			if r, ok := b.([]any); ok {
				return append(out, r...), nil
			}
			return append(out, b), nil
		}
		if m, ok := a.(map[string]any); ok {
			if r, ok := b.(map[string]any); ok {
				out := make(map[string]any, len(m)+len(r))
				for k, v := range m {
					out[k] = v
				}
				for k, v := range r {
					out[k] = v
				}
				return out, nil
			}
		}
		if s, ok := b.(string); ok {
			return stringify(a) + s, nil
		}
	}
	if op == language.Minus {
		if l, ok := a.([]any); ok {
			var out []any
			for _, x := range l {
				drop := false
				if r, ok := b.([]any); ok {
					for _, y := range r {
						drop = drop || valuesEqual(x, y)
					}
				} else {
					drop = valuesEqual(x, b)
				}
				if !drop {
					out = append(out, x)
				}
			}
			if out == nil {
				out = []any{}
			}
			return out, nil
		}
	}
	if op == language.Star {
		if s, ok := a.(string); ok {
			if n, ok := asInt(b); ok && isInteger(b) && n >= 0 {
				return strings.Repeat(s, int(n)), nil
			}
		}
	}

	if !isNumber(a) || !isNumber(b) {
		return nil, fmt.Errorf("cannot apply %s to %s and %s", op, typeName(a), typeName(b))
	}
	// integers are 64-bit and wrap on overflow
	if isInteger(a) && isInteger(b) {
		x, _ := asInt(a)
		y, _ := asInt(b)
		switch op {
		case language.Plus:
			return x + y, nil
		case language.Minus:
			return x - y, nil
		case language.Star:
			return x * y, nil
		case language.Slash:
			if y == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			if x%y == 0 {
				return x / y, nil
			}
			return float64(x) / float64(y), nil
		case language.Percent:
			if y == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return x % y, nil
		}
	}
	x, _ := asFloat(a)
	y, _ := asFloat(b)
	switch op {
	case language.Plus:
		return x + y, nil
	case language.Minus:
		return x - y, nil
	case language.Star:
		return x * y, nil
	case language.Slash:
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return x / y, nil
	case language.Percent:
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return math.Mod(x, y), nil
	}
	return nil, fmt.Errorf("unsupported operator %s", op)
}

func negate(v any) (any, error) {
	switch x := v.(type) {
	case int64:
		return -x, nil
	case int32:
		return -int64(x), nil
	case float64:
		return -x, nil
	case float32:
		return -x, nil
	}
	return nil, fmt.Errorf("cannot negate %s", typeName(v))
}
