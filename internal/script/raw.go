package script

import (
	"errors"
	"reflect"

	"github.com/hanpama/graphscript/internal/graph"
)

// errCyclic reports a container that holds itself.
var errCyclic = errors.New("cyclic value: a list or map contains itself")

// Raw is the closed set of shapes an evaluation can produce. Consumers
// switch over the concrete types below; no other implementations exist.
type Raw interface {
	raw()
}

type (
	RawNull   struct{}
	RawBool   bool
	RawInt    int64
	RawString string

	// RawFloat keeps the width of the source value; Bits is 32 or 64.
	RawFloat struct {
		Value float64
		Bits  int
	}

	RawList []Raw
	RawMap  map[string]Raw

	RawVertex struct{ Vertex *graph.Vertex }
	RawEdge   struct{ Edge *graph.Edge }

	// RawGraph is the graph handle itself.
	RawGraph struct{ Name string }

	// RawPath is the sequence of objects a traverser visited: vertices,
	// edges or scalars.
	RawPath []Raw

	// RawOpaque is a value with no data representation, such as a closure
	// or a stream.
	RawOpaque struct{ Type string }
)

func (RawNull) raw()   {}
func (RawBool) raw()   {}
func (RawInt) raw()    {}
func (RawString) raw() {}
func (RawFloat) raw()  {}
func (RawList) raw()   {}
func (RawMap) raw()    {}
func (RawVertex) raw() {}
func (RawEdge) raw()   {}
func (RawGraph) raw()  {}
func (RawPath) raw()   {}
func (RawOpaque) raw() {}

// toRaw converts a runtime value. Elements are re-read through the graph so
// that property changes made by the script are visible.
func (in *interp) toRaw(v any) (Raw, error) {
	return in.convert(v, map[uintptr]struct{}{})
}

// convert does the work of toRaw. open holds the containers on the current
// path; meeting one of them again means the value is cyclic.
func (in *interp) convert(v any, open map[uintptr]struct{}) (Raw, error) {
	switch v.(type) {
	case map[string]any, []any:
		p := reflect.ValueOf(v).Pointer()
		if p != 0 {
			if _, ok := open[p]; ok {
				return nil, errCyclic
			}
			open[p] = struct{}{}
			defer delete(open, p)
		}
	}
	switch x := v.(type) {
	case nil, missing:
		return RawNull{}, nil
	case bool:
		return RawBool(x), nil
	case int64:
		return RawInt(x), nil
	case int32:
		return RawInt(x), nil
	case float64:
		return RawFloat{Value: x, Bits: 64}, nil
	case float32:
		return RawFloat{Value: float64(x), Bits: 32}, nil
	case string:
		return RawString(x), nil
	case *graph.Vertex:
		return RawVertex{Vertex: in.refreshVertex(x)}, nil
	case *graph.Edge:
		return RawEdge{Edge: in.refreshEdge(x)}, nil
	case *graphValue:
		return RawGraph{Name: x.h.Name()}, nil
	case pathVal:
		out := make(RawPath, len(x))
		for i, e := range x {
			r, err := in.convert(e, open)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case map[string]any:
		out := make(RawMap, len(x))
		for k, e := range x {
			r, err := in.convert(e, open)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any, *pipe, rangeVal:
		items, err := in.items(x)
		if err != nil {
			return nil, err
		}
		out := make(RawList, len(items))
		for i, e := range items {
			r, err := in.convert(e, open)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return RawOpaque{Type: typeName(v)}, nil
	}
}
