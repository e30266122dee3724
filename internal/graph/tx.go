package graph

import (
	"context"
	"fmt"
	"sync"
)

// Tx is a graph transaction. It reads committed state until its first
// mutation, then works on a private copy of the latest committed snapshot
// while holding the store's writer lock. Commit publishes the copy;
// Rollback drops it.
//
// A Tx is safe for concurrent use, but a goroutine must not write through
// two transactions of the same store at once.
type Tx struct {
	store *Store

	mu      sync.Mutex
	view    *Snapshot
	writing bool
	done    bool
}

var _ Writer = (*Tx)(nil)

func (t *Tx) snapshot() *Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view
}

// writable must be called with t.mu held.
func (t *Tx) writable() (*Snapshot, error) {
	if t.done {
		return nil, ErrTxDone
	}
	if !t.writing {
		t.store.writeMu.Lock()
		t.view = t.store.current.Load().clone()
		t.writing = true
	}
	return t.view, nil
}

// Writing reports whether the transaction holds uncommitted mutations.
func (t *Tx) Writing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writing
}

// Commit publishes the transaction's mutations. It is a no-op for
// read-only transactions and for finished ones.
func (t *Tx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	if !t.writing {
		return nil
	}
	defer t.store.writeMu.Unlock()
	t.writing = false
	if h := t.store.opts.CommitHook; h != nil {
		if err := h(t.view); err != nil {
			t.view = t.store.current.Load()
			return &CommitError{Err: err}
		}
	}
	t.store.current.Store(t.view)
	return nil
}

// Rollback discards the transaction's mutations. It is safe to call after
// Commit.
func (t *Tx) Rollback() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	if t.writing {
		t.writing = false
		t.view = t.store.current.Load()
		t.store.writeMu.Unlock()
	}
}

func (t *Tx) Name() string                      { return t.snapshot().Name() }
func (t *Tx) Vertex(id string) (*Vertex, error) { return t.snapshot().Vertex(id) }
func (t *Tx) Edge(id string) (*Edge, error)     { return t.snapshot().Edge(id) }
func (t *Tx) Vertices() []*Vertex               { return t.snapshot().Vertices() }
func (t *Tx) Edges() []*Edge                    { return t.snapshot().Edges() }
func (t *Tx) OutEdges(v *Vertex, labels ...string) []*Edge {
	return t.snapshot().OutEdges(v, labels...)
}
func (t *Tx) InEdges(v *Vertex, labels ...string) []*Edge {
	return t.snapshot().InEdges(v, labels...)
}

func (t *Tx) AddVertex(props map[string]any) (*Vertex, error) {
	p, err := normalizeProps(props)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.writable()
	if err != nil {
		return nil, err
	}
	return s.addVertex(p), nil
}

func (t *Tx) AddEdge(out, in *Vertex, label string, props map[string]any) (*Edge, error) {
	if label == "" {
		return nil, fmt.Errorf("graph: edge label must not be empty")
	}
	p, err := normalizeProps(props)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.writable()
	if err != nil {
		return nil, err
	}
	if _, ok := s.vertices[out.id]; !ok {
		return nil, &NotFoundError{Kind: "vertex", ID: out.ID()}
	}
	if _, ok := s.vertices[in.id]; !ok {
		return nil, &NotFoundError{Kind: "vertex", ID: in.ID()}
	}
	return s.addEdge(out.id, in.id, label, p), nil
}

func (t *Tx) SetVertexProperty(v *Vertex, key string, value any) (*Vertex, error) {
	nv, err := normalizeValue(key, value)
	if err != nil {
		return nil, err
	}
	return t.updateVertex(v, func(p map[string]any) { p[key] = nv })
}

func (t *Tx) RemoveVertexProperty(v *Vertex, key string) (*Vertex, error) {
	return t.updateVertex(v, func(p map[string]any) { delete(p, key) })
}

func (t *Tx) SetEdgeProperty(e *Edge, key string, value any) (*Edge, error) {
	nv, err := normalizeValue(key, value)
	if err != nil {
		return nil, err
	}
	return t.updateEdge(e, func(p map[string]any) { p[key] = nv })
}

func (t *Tx) RemoveEdgeProperty(e *Edge, key string) (*Edge, error) {
	return t.updateEdge(e, func(p map[string]any) { delete(p, key) })
}

func (t *Tx) updateVertex(v *Vertex, fn func(map[string]any)) (*Vertex, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.writable()
	if err != nil {
		return nil, err
	}
	cur, ok := s.vertices[v.id]
	if !ok {
		return nil, &NotFoundError{Kind: "vertex", ID: v.ID()}
	}
	p := copyProps(cur.props)
	fn(p)
	nv := &Vertex{id: cur.id, props: p}
	s.vertices[nv.id] = nv
	return nv, nil
}

func (t *Tx) updateEdge(e *Edge, fn func(map[string]any)) (*Edge, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.writable()
	if err != nil {
		return nil, err
	}
	cur, ok := s.edges[e.id]
	if !ok {
		return nil, &NotFoundError{Kind: "edge", ID: e.ID()}
	}
	p := copyProps(cur.props)
	fn(p)
	ne := &Edge{id: cur.id, out: cur.out, in: cur.in, label: cur.label, props: p}
	s.edges[ne.id] = ne
	return ne, nil
}

func (t *Tx) RemoveVertex(v *Vertex) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.writable()
	if err != nil {
		return err
	}
	if _, ok := s.vertices[v.id]; !ok {
		return &NotFoundError{Kind: "vertex", ID: v.ID()}
	}
	s.removeVertex(v.id)
	return nil
}

func (t *Tx) RemoveEdge(e *Edge) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.writable()
	if err != nil {
		return err
	}
	if _, ok := s.edges[e.id]; !ok {
		return &NotFoundError{Kind: "edge", ID: e.ID()}
	}
	s.removeEdge(e.id)
	return nil
}

type ctxKey struct{}

// NewContext returns a copy of parent carrying tx.
func NewContext(parent context.Context, tx *Tx) context.Context {
	return context.WithValue(parent, ctxKey{}, tx)
}

// TxFromContext extracts the transaction stored by NewContext.
func TxFromContext(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(ctxKey{}).(*Tx)
	return tx, ok
}
