// Package graphtest provides the six-vertex "classic" property graph used
// across package tests.
package graphtest

import (
	"testing"

	"github.com/hanpama/graphscript/internal/graph"
)

// ClassicGraphML is the classic graph in GraphML form.
const ClassicGraphML = `<?xml version="1.0" encoding="UTF-8"?>
<graphml xmlns="http://graphml.graphdrawing.org/xmlns">
    <key id="weight" for="edge" attr.name="weight" attr.type="float"/>
    <key id="name" for="node" attr.name="name" attr.type="string"/>
    <key id="age" for="node" attr.name="age" attr.type="int"/>
    <key id="lang" for="node" attr.name="lang" attr.type="string"/>
    <graph id="G" edgedefault="directed">
        <node id="1">
            <data key="name">marko</data>
            <data key="age">29</data>
        </node>
        <node id="2">
            <data key="name">vadas</data>
            <data key="age">27</data>
        </node>
        <node id="3">
            <data key="name">lop</data>
            <data key="lang">java</data>
        </node>
        <node id="4">
            <data key="name">josh</data>
            <data key="age">32</data>
        </node>
        <node id="5">
            <data key="name">ripple</data>
            <data key="lang">java</data>
        </node>
        <node id="6">
            <data key="name">peter</data>
            <data key="age">35</data>
        </node>
        <edge id="7" source="1" target="2" label="knows">
            <data key="weight">0.5</data>
        </edge>
        <edge id="8" source="1" target="4" label="knows">
            <data key="weight">1.0</data>
        </edge>
        <edge id="9" source="1" target="3" label="created">
            <data key="weight">0.4</data>
        </edge>
        <edge id="10" source="4" target="5" label="created">
            <data key="weight">1.0</data>
        </edge>
        <edge id="11" source="4" target="3" label="created">
            <data key="weight">0.4</data>
        </edge>
        <edge id="12" source="6" target="3" label="created">
            <data key="weight">0.2</data>
        </edge>
    </graph>
</graphml>
`

type fixtureVertex struct {
	name string
	key  string
	val  any
}

var classicVertices = []fixtureVertex{
	{"marko", "age", int32(29)},
	{"vadas", "age", int32(27)},
	{"lop", "lang", "java"},
	{"josh", "age", int32(32)},
	{"ripple", "lang", "java"},
	{"peter", "age", int32(35)},
}

var classicEdges = []struct {
	out, in int
	label   string
	weight  float32
}{
	{1, 2, "knows", 0.5},
	{1, 4, "knows", 1.0},
	{1, 3, "created", 0.4},
	{4, 5, "created", 1.0},
	{4, 3, "created", 0.4},
	{6, 3, "created", 0.2},
}

// Populate adds the classic graph to w. Into an empty store, vertices get
// ids 1 to 6 and edges ids 1 to 6 in the order listed by ClassicGraphML.
func Populate(w graph.Writer) error {
	vs := make([]*graph.Vertex, 0, len(classicVertices))
	for _, fv := range classicVertices {
		v, err := w.AddVertex(map[string]any{"name": fv.name, fv.key: fv.val})
		if err != nil {
			return err
		}
		vs = append(vs, v)
	}
	for _, e := range classicEdges {
		if _, err := w.AddEdge(vs[e.out-1], vs[e.in-1], e.label, map[string]any{"weight": e.weight}); err != nil {
			return err
		}
	}
	return nil
}

// Classic returns a new store holding the committed classic graph.
func Classic(t testing.TB, opts ...graph.Option) *graph.Store {
	t.Helper()
	s := graph.New(opts...)
	if err := s.Update(func(tx *graph.Tx) error { return Populate(tx) }); err != nil {
		t.Fatalf("populate classic graph: %v", err)
	}
	return s
}
