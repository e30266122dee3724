package canonical

import (
	"fmt"
	"math"
	"strings"

	"github.com/hanpama/graphscript/internal/graph"
	"github.com/hanpama/graphscript/internal/script"
)

// DefaultBase is the link base used when none is configured.
const DefaultBase = "http://localhost:7474/db/data/"

// Linker produces self links for graph elements.
type Linker interface {
	VertexURI(id string) string
	EdgeURI(id string) string
}

// URILinker links elements below Base as "node/<id>" and
// "relationship/<id>".
type URILinker struct {
	Base string
}

func (l URILinker) base() string {
	if l.Base == "" {
		return DefaultBase
	}
	if !strings.HasSuffix(l.Base, "/") {
		return l.Base + "/"
	}
	return l.Base
}

func (l URILinker) VertexURI(id string) string { return l.base() + "node/" + id }
func (l URILinker) EdgeURI(id string) string   { return l.base() + "relationship/" + id }

// UnrepresentableResultError reports a raw result with no canonical form.
type UnrepresentableResultError struct {
	Type   string
	Reason string
}

func (e *UnrepresentableResultError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot represent result of type %s: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("cannot represent result of type %s", e.Type)
}

// Normalizer converts script results into canonical values. It is stateless
// apart from its linker and safe for concurrent use.
type Normalizer struct {
	linker Linker
}

// New returns a normalizer linking elements with l, or with
// URILinker{Base: DefaultBase} when l is nil.
func New(l Linker) *Normalizer {
	if l == nil {
		l = URILinker{Base: DefaultBase}
	}
	return &Normalizer{linker: l}
}

// Normalize maps raw to exactly one canonical value.
func (n *Normalizer) Normalize(raw script.Raw) (Value, error) {
	switch x := raw.(type) {
	case nil, script.RawNull:
		return Null{}, nil
	case script.RawVertex:
		return n.vertex(x.Vertex)
	case script.RawEdge:
		return n.edge(x.Edge)
	case script.RawList:
		out := make(List, len(x))
		for i, e := range x {
			v, err := n.Normalize(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case script.RawGraph:
		return String(x.Name), nil
	case script.RawBool:
		return Bool(x), nil
	case script.RawInt:
		return Int(x), nil
	case script.RawString:
		return String(x), nil
	case script.RawFloat:
		return float(x.Value, x.Bits)
	case script.RawMap:
		out := make(Map, len(x))
		for k, e := range x {
			v, err := n.Normalize(e)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case script.RawPath:
		out := make(PathRef, len(x))
		for i, hop := range x {
			v, err := n.hop(hop)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case script.RawOpaque:
		return nil, &UnrepresentableResultError{Type: x.Type}
	}
	return nil, &UnrepresentableResultError{Type: fmt.Sprintf("%T", raw)}
}

func (n *Normalizer) hop(r script.Raw) (Value, error) {
	switch x := r.(type) {
	case script.RawVertex:
		return String("v[" + x.Vertex.ID() + "]"), nil
	case script.RawEdge:
		e := x.Edge
		return String(fmt.Sprintf("e[%s][%s-%s->%s]", e.ID(), e.OutID(), e.Label(), e.InID())), nil
	}
	return n.Normalize(r)
}

func (n *Normalizer) vertex(v *graph.Vertex) (Value, error) {
	data, err := properties(v.Properties())
	if err != nil {
		return nil, err
	}
	return VertexRef{ID: v.ID(), Self: n.linker.VertexURI(v.ID()), Data: data}, nil
}

func (n *Normalizer) edge(e *graph.Edge) (Value, error) {
	data, err := properties(e.Properties())
	if err != nil {
		return nil, err
	}
	return EdgeRef{
		ID:    e.ID(),
		Self:  n.linker.EdgeURI(e.ID()),
		Start: n.linker.VertexURI(e.OutID()),
		End:   n.linker.VertexURI(e.InID()),
		Label: e.Label(),
		Data:  data,
	}, nil
}

func properties(props map[string]any) (Map, error) {
	out := make(Map, len(props))
	for k, v := range props {
		cv, err := scalar(v)
		if err != nil {
			return nil, err
		}
		out[k] = cv
	}
	return out, nil
}

// scalar converts a stored property value.
func scalar(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(x), nil
	case int32:
		return Int(x), nil
	case int64:
		return Int(x), nil
	case float32:
		return float(float64(x), 32)
	case float64:
		return float(x, 64)
	case string:
		return String(x), nil
	}
	return nil, &UnrepresentableResultError{Type: fmt.Sprintf("%T", v), Reason: "unsupported property value"}
}

func float(f float64, bits int) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &UnrepresentableResultError{Type: "Float", Reason: fmt.Sprintf("non-finite value %v", f)}
	}
	if bits != 32 {
		bits = 64
	}
	return Float{Value: f, Bits: bits}, nil
}
