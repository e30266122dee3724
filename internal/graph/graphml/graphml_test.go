package graphml_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hanpama/graphscript/internal/graph"
	"github.com/hanpama/graphscript/internal/graph/graphml"
	"github.com/hanpama/graphscript/internal/graph/graphtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type edgeRow struct {
	Out, In, Label string
	Weight         any
}

func edgeRows(h graph.Handle) []edgeRow {
	var rows []edgeRow
	for _, e := range h.Edges() {
		w, _ := e.Property("weight")
		rows = append(rows, edgeRow{Out: e.OutID(), In: e.InID(), Label: e.Label(), Weight: w})
	}
	return rows
}

func TestReadClassic(t *testing.T) {
	s := graph.New()
	tx := s.Begin()
	st, err := graphml.Read(tx, strings.NewReader(graphtest.ClassicGraphML))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, 6, st.Vertices)
	assert.Equal(t, 6, st.Edges)
	assert.Equal(t, "4", st.IDs["4"])

	marko, err := s.Snapshot().Vertex("1")
	require.NoError(t, err)
	if diff := cmp.Diff(map[string]any{"name": "marko", "age": int32(29)}, marko.Properties()); diff != "" {
		t.Fatalf("marko mismatch (-want +got):\n%s", diff)
	}

	want := edgeRows(graphtest.Classic(t).Snapshot())
	if diff := cmp.Diff(want, edgeRows(s.Snapshot())); diff != "" {
		t.Fatalf("edges mismatch (-want +got):\n%s", diff)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed xml", `<graphml><graph>`},
		{"bad int", `<graphml><key id="a" for="node" attr.name="a" attr.type="int"/><graph><node id="1"><data key="a">x</data></node></graph></graphml>`},
		{"unknown type", `<graphml><key id="a" for="node" attr.name="a" attr.type="vector"/><graph><node id="1"><data key="a">x</data></node></graph></graphml>`},
		{"dangling edge", `<graphml><graph><node id="1"/><edge source="1" target="9" label="x"/></graph></graphml>`},
		{"missing label", `<graphml><graph><node id="1"/><edge source="1" target="1"/></graph></graphml>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := graph.New().Begin()
			defer tx.Rollback()
			_, err := graphml.Read(tx, strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLabelFromDataKey(t *testing.T) {
	doc := `<graphml>
  <key id="l" for="edge" attr.name="label"/>
  <graph>
    <node id="a"/><node id="b"/>
    <edge source="a" target="b"><data key="l">likes</data></edge>
  </graph>
</graphml>`
	tx := graph.New().Begin()
	defer tx.Rollback()
	_, err := graphml.Read(tx, strings.NewReader(doc))
	require.NoError(t, err)
	edges := tx.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "likes", edges[0].Label())
	assert.Empty(t, edges[0].Keys())
}

func TestWriteRoundTrip(t *testing.T) {
	src := graphtest.Classic(t)
	require.NoError(t, src.Update(func(tx *graph.Tx) error {
		v, err := tx.Vertex("1")
		if err != nil {
			return err
		}
		_, err = tx.SetVertexProperty(v, "active", true)
		return err
	}))

	var buf bytes.Buffer
	require.NoError(t, graphml.Write(&buf, src.Snapshot()))
	assert.Contains(t, buf.String(), `attr.type="float"`)
	assert.Contains(t, buf.String(), `label="created"`)

	dst := graph.New()
	require.NoError(t, dst.Update(func(tx *graph.Tx) error {
		_, err := graphml.Read(tx, &buf)
		return err
	}))
	if diff := cmp.Diff(edgeRows(src.Snapshot()), edgeRows(dst.Snapshot())); diff != "" {
		t.Fatalf("edges mismatch (-want +got):\n%s", diff)
	}
	marko, err := dst.Snapshot().Vertex("1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "marko", "age": int32(29), "active": true}, marko.Properties())
}

func TestOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/graph.xml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(graphtest.ClassicGraphML))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "graph.xml")
	require.NoError(t, os.WriteFile(path, []byte(graphtest.ClassicGraphML), 0o644))

	for _, loc := range []string{srv.URL + "/graph.xml", path, "file://" + path} {
		t.Run(loc, func(t *testing.T) {
			tx := graph.New().Begin()
			defer tx.Rollback()
			st, err := graphml.Load(context.Background(), tx, loc)
			require.NoError(t, err)
			assert.Equal(t, 6, st.Vertices)
		})
	}

	_, err := graphml.Open(context.Background(), srv.URL+"/missing.xml")
	assert.Error(t, err)
	_, err = graphml.Open(context.Background(), filepath.Join(dir, "missing.xml"))
	assert.Error(t, err)
}
