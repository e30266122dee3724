package graph_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hanpama/graphscript/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids[T interface{ ID() string }](xs []T) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = x.ID()
	}
	return out
}

func TestStoreAssignsSequentialIDs(t *testing.T) {
	s := graph.New()
	err := s.Update(func(tx *graph.Tx) error {
		a, err := tx.AddVertex(map[string]any{"name": "a"})
		require.NoError(t, err)
		b, err := tx.AddVertex(nil)
		require.NoError(t, err)
		e, err := tx.AddEdge(a, b, "knows", map[string]any{"weight": float32(0.5)})
		require.NoError(t, err)
		assert.Equal(t, "1", a.ID())
		assert.Equal(t, "2", b.ID())
		assert.Equal(t, "1", e.ID())
		assert.Equal(t, "1", e.OutID())
		assert.Equal(t, "2", e.InID())
		return nil
	})
	require.NoError(t, err)

	snap := s.Snapshot()
	if diff := cmp.Diff([]string{"1", "2"}, ids(snap.Vertices())); diff != "" {
		t.Fatalf("vertices mismatch (-want +got):\n%s", diff)
	}
	e, err := snap.Edge("1")
	require.NoError(t, err)
	w, ok := e.Property("weight")
	require.True(t, ok)
	assert.IsType(t, float32(0), w)
}

func TestNotFound(t *testing.T) {
	snap := graph.New().Snapshot()
	for _, id := range []string{"1", "0", "abc", ""} {
		_, err := snap.Vertex(id)
		require.Error(t, err)
		assert.True(t, errors.Is(err, graph.ErrNotFound), "id %q", id)
		var nf *graph.NotFoundError
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, "vertex", nf.Kind)
	}
	_, err := snap.Edge("3")
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "MemoryGraph [memory]", graph.New().Name())
	s := graph.New(graph.WithName("ImpermanentGraphDatabase"), graph.WithLocation("target/db"))
	assert.Equal(t, "ImpermanentGraphDatabase [target/db]", s.Name())
	assert.Equal(t, s.Name(), s.Begin().Name())
}

func TestRollbackDiscardsWrites(t *testing.T) {
	s := graph.New()
	tx := s.Begin()
	_, err := tx.AddVertex(map[string]any{"name": "x"})
	require.NoError(t, err)
	assert.Len(t, tx.Vertices(), 1)
	assert.Len(t, s.Snapshot().Vertices(), 0, "uncommitted write must not be visible")
	tx.Rollback()
	assert.Len(t, s.Snapshot().Vertices(), 0)

	_, err = tx.AddVertex(nil)
	assert.ErrorIs(t, err, graph.ErrTxDone)

	// the writer lock was released
	require.NoError(t, s.Update(func(tx *graph.Tx) error {
		_, err := tx.AddVertex(nil)
		return err
	}))
	assert.Len(t, s.Snapshot().Vertices(), 1)
}

func TestCommitIsolationFromOpenReaders(t *testing.T) {
	s := graph.New()
	reader := s.Begin()
	require.NoError(t, s.Update(func(tx *graph.Tx) error {
		_, err := tx.AddVertex(nil)
		return err
	}))
	assert.Len(t, reader.Vertices(), 0, "reader keeps its snapshot until it writes")
	_, err := reader.AddVertex(nil)
	require.NoError(t, err)
	assert.Len(t, reader.Vertices(), 2, "first write rebases on the latest commit")
	require.NoError(t, reader.Commit())
	assert.Len(t, s.Snapshot().Vertices(), 2)
}

func TestCommitHookFailureAborts(t *testing.T) {
	var seen int
	s := graph.New(graph.WithCommitHook(func(snap *graph.Snapshot) error {
		seen = snap.VertexCount()
		return errors.New("disk full")
	}))
	err := s.Update(func(tx *graph.Tx) error {
		_, err := tx.AddVertex(nil)
		return err
	})
	var ce *graph.CommitError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, seen)
	assert.Equal(t, 0, s.Snapshot().VertexCount())
}

func TestRemoveVertexDropsIncidentEdges(t *testing.T) {
	s := graph.New()
	require.NoError(t, s.Update(func(tx *graph.Tx) error {
		a, _ := tx.AddVertex(nil)
		b, _ := tx.AddVertex(nil)
		c, _ := tx.AddVertex(nil)
		_, _ = tx.AddEdge(a, b, "knows", nil)
		_, _ = tx.AddEdge(b, c, "knows", nil)
		_, _ = tx.AddEdge(a, c, "created", nil)
		return tx.RemoveVertex(b)
	}))
	snap := s.Snapshot()
	if diff := cmp.Diff([]string{"3"}, ids(snap.Edges())); diff != "" {
		t.Fatalf("edges mismatch (-want +got):\n%s", diff)
	}
	a, err := snap.Vertex("1")
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, ids(snap.OutEdges(a)))
	assert.Empty(t, snap.OutEdges(a, "knows"))
}

func TestPropertyMutationsReplaceElements(t *testing.T) {
	s := graph.New()
	var v *graph.Vertex
	require.NoError(t, s.Update(func(tx *graph.Tx) error {
		var err error
		v, err = tx.AddVertex(map[string]any{"age": 29})
		return err
	}))
	tx := s.Begin()
	nv, err := tx.SetVertexProperty(v, "name", "marko")
	require.NoError(t, err)
	_, ok := v.Property("name")
	assert.False(t, ok, "published vertex values are immutable")
	age, _ := nv.Property("age")
	assert.Equal(t, int64(29), age)
	assert.Equal(t, []string{"age", "name"}, nv.Keys())

	nv, err = tx.RemoveVertexProperty(nv, "age")
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, nv.Keys())
	require.NoError(t, tx.Commit())

	got, err := s.Snapshot().Vertex("1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "marko"}, got.Properties())
}

func TestInvalidProperties(t *testing.T) {
	tx := graph.New().Begin()
	defer tx.Rollback()
	for name, props := range map[string]map[string]any{
		"empty key":   {"": 1},
		"reserved id": {"id": 1},
		"label":       {"label": "x"},
		"nil value":   {"a": nil},
		"struct":      {"a": struct{}{}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tx.AddVertex(props)
			var ip *graph.InvalidPropertyError
			require.ErrorAs(t, err, &ip)
		})
	}
}

func TestAddEdgeRequiresEndpoints(t *testing.T) {
	s := graph.New()
	var stale *graph.Vertex
	require.NoError(t, s.Update(func(tx *graph.Tx) error {
		stale, _ = tx.AddVertex(nil)
		return nil
	}))
	require.NoError(t, s.Update(func(tx *graph.Tx) error { return tx.RemoveVertex(stale) }))

	tx := s.Begin()
	defer tx.Rollback()
	v, err := tx.AddVertex(nil)
	require.NoError(t, err)
	_, err = tx.AddEdge(v, stale, "knows", nil)
	assert.ErrorIs(t, err, graph.ErrNotFound)
	_, err = tx.AddEdge(v, v, "", nil)
	assert.Error(t, err)
}

func TestContextCarriesTx(t *testing.T) {
	tx := graph.New().Begin()
	ctx := graph.NewContext(context.Background(), tx)
	got, ok := graph.TxFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, tx, got)
	_, ok = graph.TxFromContext(context.Background())
	assert.False(t, ok)
}

func TestConcurrentWritersAreSerialized(t *testing.T) {
	s := graph.New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update(func(tx *graph.Tx) error {
				_, err := tx.AddVertex(nil)
				return err
			})
			_ = s.Snapshot().Vertices()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, s.Snapshot().VertexCount())
}
