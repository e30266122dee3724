package canonical_test

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hanpama/graphscript/internal/canonical"
	"github.com/hanpama/graphscript/internal/graph/graphtest"
	"github.com/hanpama/graphscript/internal/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeElements(t *testing.T) {
	snap := graphtest.Classic(t).Snapshot()
	v1, err := snap.Vertex("1")
	require.NoError(t, err)
	e1, err := snap.Edge("1")
	require.NoError(t, err)

	n := canonical.New(canonical.URILinker{Base: "http://h/db/data"})

	got, err := n.Normalize(script.RawVertex{Vertex: v1})
	require.NoError(t, err)
	want := canonical.VertexRef{
		ID:   "1",
		Self: "http://h/db/data/node/1",
		Data: canonical.Map{"name": canonical.String("marko"), "age": canonical.Int(29)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("vertex mismatch (-want +got):\n%s", diff)
	}

	got, err = n.Normalize(script.RawEdge{Edge: e1})
	require.NoError(t, err)
	wantEdge := canonical.EdgeRef{
		ID:    "1",
		Self:  "http://h/db/data/relationship/1",
		Start: "http://h/db/data/node/1",
		End:   "http://h/db/data/node/2",
		Label: "knows",
		Data:  canonical.Map{"weight": canonical.Float{Value: 0.5, Bits: 32}},
	}
	if diff := cmp.Diff(wantEdge, got); diff != "" {
		t.Fatalf("edge mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeScalarsAndCollections(t *testing.T) {
	n := canonical.New(nil)
	tests := []struct {
		name string
		raw  script.Raw
		want canonical.Value
	}{
		{"null", script.RawNull{}, canonical.Null{}},
		{"nil", nil, canonical.Null{}},
		{"integer stays integer", script.RawInt(1), canonical.Int(1)},
		{"bool", script.RawBool(true), canonical.Bool(true)},
		{"double", script.RawFloat{Value: 1.5, Bits: 64}, canonical.Float{Value: 1.5, Bits: 64}},
		{"string", script.RawString("x"), canonical.String("x")},
		{"graph is its name", script.RawGraph{Name: "MemoryGraph [memory]"}, canonical.String("MemoryGraph [memory]")},
		{"scalar list keeps order",
			script.RawList{script.RawInt(1), script.RawInt(2), script.RawInt(5), script.RawInt(6), script.RawInt(8)},
			canonical.List{canonical.Int(1), canonical.Int(2), canonical.Int(5), canonical.Int(6), canonical.Int(8)}},
		{"map", script.RawMap{"a": script.RawNull{}}, canonical.Map{"a": canonical.Null{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(tt.raw)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	snap := graphtest.Classic(t).Snapshot()
	v1, _ := snap.Vertex("1")
	v2, _ := snap.Vertex("2")
	e1, _ := snap.Edge("1")

	got, err := canonical.New(nil).Normalize(script.RawList{script.RawPath{
		script.RawVertex{Vertex: v1},
		script.RawEdge{Edge: e1},
		script.RawVertex{Vertex: v2},
		script.RawString("vadas"),
	}})
	require.NoError(t, err)
	want := canonical.List{canonical.PathRef{
		canonical.String("v[1]"),
		canonical.String("e[1][1-knows->2]"),
		canonical.String("v[2]"),
		canonical.String("vadas"),
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("path mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeUnrepresentable(t *testing.T) {
	n := canonical.New(nil)
	for name, raw := range map[string]script.Raw{
		"opaque":        script.RawOpaque{Type: "Closure"},
		"nested opaque": script.RawList{script.RawInt(1), script.RawOpaque{Type: "InputStream"}},
		"not finite":    script.RawFloat{Value: math.Inf(1), Bits: 64},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := n.Normalize(raw)
			var ue *canonical.UnrepresentableResultError
			require.True(t, errors.As(err, &ue), "got %v", err)
		})
	}
}

func TestURILinker(t *testing.T) {
	assert.Equal(t, "http://localhost:7474/db/data/node/3", canonical.URILinker{}.VertexURI("3"))
	assert.Equal(t, "http://x/relationship/3", canonical.URILinker{Base: "http://x/"}.EdgeURI("3"))
	assert.Equal(t, "EdgeRef", canonical.KindEdge.String())
}
