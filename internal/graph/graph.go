package graph

import (
	"sort"
	"strconv"
)

// Handle is a read view over a property graph. Identities are always
// presented as strings regardless of the native id representation.
//
// Implementations must be safe for concurrent reads. A Handle never has side
// effects; mutations go through Writer.
type Handle interface {
	// Name returns the display identity, e.g. "MemoryGraph [memory]".
	Name() string

	// Vertex returns the vertex with the given id or a *NotFoundError.
	Vertex(id string) (*Vertex, error)
	// Edge returns the edge with the given id or a *NotFoundError.
	Edge(id string) (*Edge, error)

	// Vertices returns every vertex in insertion order.
	Vertices() []*Vertex
	// Edges returns every edge in insertion order.
	Edges() []*Edge

	// OutEdges returns the edges leaving v, optionally restricted to labels.
	OutEdges(v *Vertex, labels ...string) []*Edge
	// InEdges returns the edges entering v, optionally restricted to labels.
	InEdges(v *Vertex, labels ...string) []*Edge
}

// Writer is a Handle that accepts mutations. *Tx implements it.
type Writer interface {
	Handle

	AddVertex(props map[string]any) (*Vertex, error)
	AddEdge(out, in *Vertex, label string, props map[string]any) (*Edge, error)
	SetVertexProperty(v *Vertex, key string, value any) (*Vertex, error)
	SetEdgeProperty(e *Edge, key string, value any) (*Edge, error)
	RemoveVertexProperty(v *Vertex, key string) (*Vertex, error)
	RemoveEdgeProperty(e *Edge, key string) (*Edge, error)
	RemoveVertex(v *Vertex) error
	RemoveEdge(e *Edge) error
}

// Vertex is an immutable vertex value. Mutations through a Writer produce a
// new *Vertex with the same identity.
type Vertex struct {
	id    uint64
	props map[string]any
}

// ID returns the vertex identity as a decimal string.
func (v *Vertex) ID() string { return strconv.FormatUint(v.id, 10) }

// NativeID returns the store-assigned numeric identity.
func (v *Vertex) NativeID() uint64 { return v.id }

// Property returns the value stored under key.
func (v *Vertex) Property(key string) (any, bool) {
	val, ok := v.props[key]
	return val, ok
}

// Keys returns the property keys in lexical order.
func (v *Vertex) Keys() []string { return sortedKeys(v.props) }

// Properties returns a copy of the property map.
func (v *Vertex) Properties() map[string]any { return copyProps(v.props) }

// Edge is an immutable directed, labeled edge value.
type Edge struct {
	id    uint64
	out   uint64
	in    uint64
	label string
	props map[string]any
}

func (e *Edge) ID() string       { return strconv.FormatUint(e.id, 10) }
func (e *Edge) NativeID() uint64 { return e.id }
func (e *Edge) Label() string    { return e.label }

// OutID is the identity of the tail vertex.
func (e *Edge) OutID() string { return strconv.FormatUint(e.out, 10) }

// InID is the identity of the head vertex.
func (e *Edge) InID() string { return strconv.FormatUint(e.in, 10) }

func (e *Edge) Property(key string) (any, bool) {
	val, ok := e.props[key]
	return val, ok
}

func (e *Edge) Keys() []string             { return sortedKeys(e.props) }
func (e *Edge) Properties() map[string]any { return copyProps(e.props) }

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyProps(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func parseID(kind, id string) (uint64, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return 0, &NotFoundError{Kind: kind, ID: id}
	}
	return n, nil
}

func matchLabel(label string, labels []string) bool {
	if len(labels) == 0 {
		return true
	}
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}
