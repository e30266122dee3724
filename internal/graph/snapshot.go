package graph

import "slices"

// Snapshot is an immutable committed state of a Store. It is safe for
// concurrent use without locking.
type Snapshot struct {
	name     string
	vertices map[uint64]*Vertex
	edges    map[uint64]*Edge
	vorder   []uint64
	eorder   []uint64
	out      map[uint64][]uint64
	in       map[uint64][]uint64
	nextV    uint64
	nextE    uint64
}

var _ Handle = (*Snapshot)(nil)

func emptySnapshot(name string) *Snapshot {
	return &Snapshot{
		name:     name,
		vertices: map[uint64]*Vertex{},
		edges:    map[uint64]*Edge{},
		out:      map[uint64][]uint64{},
		in:       map[uint64][]uint64{},
		nextV:    1,
		nextE:    1,
	}
}

func (s *Snapshot) Name() string { return s.name }

// VertexCount and EdgeCount report the size of the snapshot.
func (s *Snapshot) VertexCount() int { return len(s.vorder) }
func (s *Snapshot) EdgeCount() int   { return len(s.eorder) }

func (s *Snapshot) Vertex(id string) (*Vertex, error) {
	n, err := parseID("vertex", id)
	if err != nil {
		return nil, err
	}
	v, ok := s.vertices[n]
	if !ok {
		return nil, &NotFoundError{Kind: "vertex", ID: id}
	}
	return v, nil
}

func (s *Snapshot) Edge(id string) (*Edge, error) {
	n, err := parseID("edge", id)
	if err != nil {
		return nil, err
	}
	e, ok := s.edges[n]
	if !ok {
		return nil, &NotFoundError{Kind: "edge", ID: id}
	}
	return e, nil
}

func (s *Snapshot) Vertices() []*Vertex {
	out := make([]*Vertex, len(s.vorder))
	for i, id := range s.vorder {
		out[i] = s.vertices[id]
	}
	return out
}

func (s *Snapshot) Edges() []*Edge {
	out := make([]*Edge, len(s.eorder))
	for i, id := range s.eorder {
		out[i] = s.edges[id]
	}
	return out
}

func (s *Snapshot) OutEdges(v *Vertex, labels ...string) []*Edge {
	return s.adjacent(s.out[v.id], labels)
}

func (s *Snapshot) InEdges(v *Vertex, labels ...string) []*Edge {
	return s.adjacent(s.in[v.id], labels)
}

func (s *Snapshot) adjacent(ids []uint64, labels []string) []*Edge {
	out := make([]*Edge, 0, len(ids))
	for _, id := range ids {
		e := s.edges[id]
		if matchLabel(e.label, labels) {
			out = append(out, e)
		}
	}
	return out
}

// clone returns a writable copy. Element values are shared; every mutation
// replaces them instead of changing them in place.
func (s *Snapshot) clone() *Snapshot {
	c := &Snapshot{
		name:     s.name,
		vertices: make(map[uint64]*Vertex, len(s.vertices)),
		edges:    make(map[uint64]*Edge, len(s.edges)),
		vorder:   slices.Clip(s.vorder),
		eorder:   slices.Clip(s.eorder),
		out:      make(map[uint64][]uint64, len(s.out)),
		in:       make(map[uint64][]uint64, len(s.in)),
		nextV:    s.nextV,
		nextE:    s.nextE,
	}
	for k, v := range s.vertices {
		c.vertices[k] = v
	}
	for k, e := range s.edges {
		c.edges[k] = e
	}
	// Clipped slices force append to reallocate, leaving the parent intact.
	for k, ids := range s.out {
		c.out[k] = slices.Clip(ids)
	}
	for k, ids := range s.in {
		c.in[k] = slices.Clip(ids)
	}
	return c
}

func (s *Snapshot) addVertex(props map[string]any) *Vertex {
	v := &Vertex{id: s.nextV, props: props}
	s.nextV++
	s.vertices[v.id] = v
	s.vorder = append(s.vorder, v.id)
	return v
}

func (s *Snapshot) addEdge(out, in uint64, label string, props map[string]any) *Edge {
	e := &Edge{id: s.nextE, out: out, in: in, label: label, props: props}
	s.nextE++
	s.edges[e.id] = e
	s.eorder = append(s.eorder, e.id)
	s.out[out] = append(s.out[out], e.id)
	s.in[in] = append(s.in[in], e.id)
	return e
}

func (s *Snapshot) removeEdge(id uint64) {
	e, ok := s.edges[id]
	if !ok {
		return
	}
	delete(s.edges, id)
	s.eorder = without(s.eorder, id)
	s.out[e.out] = without(s.out[e.out], id)
	s.in[e.in] = without(s.in[e.in], id)
}

func (s *Snapshot) removeVertex(id uint64) {
	incident := append(slices.Clone(s.out[id]), s.in[id]...)
	for _, eid := range incident {
		s.removeEdge(eid)
	}
	delete(s.vertices, id)
	delete(s.out, id)
	delete(s.in, id)
	s.vorder = without(s.vorder, id)
}

// without returns a fresh slice; the input may be shared with a parent
// snapshot.
func without(ids []uint64, id uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
