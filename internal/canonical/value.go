// Package canonical defines the serialization-ready value tree produced from
// script results, and the normalizer that builds it.
package canonical

// Kind tags a canonical value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
	KindVertex
	KindEdge
	KindPath
)

var kindNames = [...]string{
	KindNull: "Null", KindBool: "Boolean", KindInt: "Integer", KindFloat: "Float",
	KindString: "String", KindList: "List", KindMap: "Map", KindVertex: "VertexRef",
	KindEdge: "EdgeRef", KindPath: "PathRef",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(?)"
}

// Value is one node of a canonical tree. The set of implementations is
// closed.
type Value interface {
	Kind() Kind
}

type (
	Null   struct{}
	Bool   bool
	Int    int64
	String string

	// Float is a finite floating-point number. Bits is 32 for values that
	// were stored single precision; they render at that precision.
	Float struct {
		Value float64
		Bits  int
	}

	List []Value
	Map  map[string]Value

	// VertexRef addresses a vertex and carries its properties.
	VertexRef struct {
		ID   string
		Self string
		Data Map
	}

	// EdgeRef addresses an edge. Start and End are the self links of its
	// endpoints.
	EdgeRef struct {
		ID    string
		Self  string
		Start string
		End   string
		Label string
		Data  Map
	}

	// PathRef is a traversal history. Elements are rendered as hop strings
	// ("v[1]", "e[7][1-knows->2]"); other objects keep their value.
	PathRef []Value
)

func (Null) Kind() Kind      { return KindNull }
func (Bool) Kind() Kind      { return KindBool }
func (Int) Kind() Kind       { return KindInt }
func (String) Kind() Kind    { return KindString }
func (Float) Kind() Kind     { return KindFloat }
func (List) Kind() Kind      { return KindList }
func (Map) Kind() Kind       { return KindMap }
func (VertexRef) Kind() Kind { return KindVertex }
func (EdgeRef) Kind() Kind   { return KindEdge }
func (PathRef) Kind() Kind   { return KindPath }
