// Package graphml reads and writes property graphs in the GraphML format.
//
// Supported key types are string, int, long, float, double and boolean. An
// edge's label comes from its "label" attribute, or from a data element whose
// key is named "label".
package graphml

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/hanpama/graphscript/internal/graph"
)

const namespace = "http://graphml.graphdrawing.org/xmlns"

type document struct {
	XMLName xml.Name `xml:"graphml"`
	XMLNS   string   `xml:"xmlns,attr,omitempty"`
	Keys    []key    `xml:"key"`
	Graph   body     `xml:"graph"`
}

type key struct {
	ID   string `xml:"id,attr"`
	For  string `xml:"for,attr,omitempty"`
	Name string `xml:"attr.name,attr"`
	Type string `xml:"attr.type,attr,omitempty"`
}

type body struct {
	ID          string `xml:"id,attr,omitempty"`
	EdgeDefault string `xml:"edgedefault,attr,omitempty"`
	Nodes       []node `xml:"node"`
	Edges       []edge `xml:"edge"`
}

type node struct {
	ID   string `xml:"id,attr"`
	Data []data `xml:"data"`
}

type edge struct {
	ID     string `xml:"id,attr,omitempty"`
	Source string `xml:"source,attr"`
	Target string `xml:"target,attr"`
	Label  string `xml:"label,attr,omitempty"`
	Data   []data `xml:"data"`
}

type data struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// Stats reports what Read loaded.
type Stats struct {
	Vertices int
	Edges    int
	// IDs maps document node ids to store vertex ids.
	IDs map[string]string
}

// Read loads the GraphML document from r into w. Document ids are not
// preserved; the store assigns its own.
func Read(w graph.Writer, r io.Reader) (Stats, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return Stats{}, fmt.Errorf("graphml: decode: %w", err)
	}
	keys := make(map[string]key, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Name == "" {
			k.Name = k.ID
		}
		keys[k.ID] = k
	}

	st := Stats{IDs: make(map[string]string, len(doc.Graph.Nodes))}
	vertices := make(map[string]*graph.Vertex, len(doc.Graph.Nodes))
	for _, n := range doc.Graph.Nodes {
		props, _, err := decodeData(keys, n.Data)
		if err != nil {
			return st, fmt.Errorf("graphml: node %q: %w", n.ID, err)
		}
		v, err := w.AddVertex(props)
		if err != nil {
			return st, fmt.Errorf("graphml: node %q: %w", n.ID, err)
		}
		vertices[n.ID] = v
		st.IDs[n.ID] = v.ID()
		st.Vertices++
	}
	for _, e := range doc.Graph.Edges {
		props, label, err := decodeData(keys, e.Data)
		if err != nil {
			return st, fmt.Errorf("graphml: edge %q: %w", e.ID, err)
		}
		if e.Label != "" {
			label = e.Label
		}
		out, ok := vertices[e.Source]
		if !ok {
			return st, fmt.Errorf("graphml: edge %q: unknown source node %q", e.ID, e.Source)
		}
		in, ok := vertices[e.Target]
		if !ok {
			return st, fmt.Errorf("graphml: edge %q: unknown target node %q", e.ID, e.Target)
		}
		if _, err := w.AddEdge(out, in, label, props); err != nil {
			return st, fmt.Errorf("graphml: edge %q: %w", e.ID, err)
		}
		st.Edges++
	}
	return st, nil
}

func decodeData(keys map[string]key, ds []data) (map[string]any, string, error) {
	props := make(map[string]any, len(ds))
	label := ""
	for _, d := range ds {
		k, ok := keys[d.Key]
		if !ok {
			k = key{ID: d.Key, Name: d.Key, Type: "string"}
		}
		if k.Name == "label" {
			label = d.Value
			continue
		}
		v, err := parseValue(k.Type, d.Value)
		if err != nil {
			return nil, "", fmt.Errorf("key %q: %w", k.Name, err)
		}
		props[k.Name] = v
	}
	return props, label, nil
}

func parseValue(typ, s string) (any, error) {
	switch typ {
	case "", "string":
		return s, nil
	case "int":
		n, err := strconv.ParseInt(s, 10, 32)
		return int32(n), err
	case "long":
		return strconv.ParseInt(s, 10, 64)
	case "float":
		f, err := strconv.ParseFloat(s, 32)
		return float32(f), err
	case "double":
		return strconv.ParseFloat(s, 64)
	case "boolean":
		return strconv.ParseBool(s)
	default:
		return nil, fmt.Errorf("unsupported attr.type %q", typ)
	}
}

// Write serializes every vertex and edge of h as a GraphML document.
func Write(w io.Writer, h graph.Handle) error {
	vertices := h.Vertices()
	edges := h.Edges()

	nodeKeys := map[string]string{}
	edgeKeys := map[string]string{}
	doc := document{XMLNS: namespace, Graph: body{ID: "G", EdgeDefault: "directed"}}
	for _, v := range vertices {
		n := node{ID: v.ID()}
		for _, k := range v.Keys() {
			val, _ := v.Property(k)
			n.Data = append(n.Data, data{Key: k, Value: formatValue(val)})
			observe(nodeKeys, k, val)
		}
		doc.Graph.Nodes = append(doc.Graph.Nodes, n)
	}
	for _, e := range edges {
		x := edge{ID: e.ID(), Source: e.OutID(), Target: e.InID(), Label: e.Label()}
		for _, k := range e.Keys() {
			val, _ := e.Property(k)
			x.Data = append(x.Data, data{Key: k, Value: formatValue(val)})
			observe(edgeKeys, k, val)
		}
		doc.Graph.Edges = append(doc.Graph.Edges, x)
	}
	doc.Keys = append(declare("node", nodeKeys), declare("edge", edgeKeys)...)

	// Node and edge keys share one id space in GraphML; qualify on clash.
	for i := range doc.Graph.Edges {
		for j, d := range doc.Graph.Edges[i].Data {
			if _, clash := nodeKeys[d.Key]; clash {
				doc.Graph.Edges[i].Data[j].Key = "edge." + d.Key
			}
		}
	}
	for i, k := range doc.Keys {
		if k.For == "edge" {
			if _, clash := nodeKeys[k.Name]; clash {
				doc.Keys[i].ID = "edge." + k.Name
			}
		}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("graphml: encode: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func observe(types map[string]string, k string, v any) {
	t := typeName(v)
	if prev, ok := types[k]; ok && prev != t {
		switch {
		case widens(prev, t, "int", "long"):
			t = "long"
		case widens(prev, t, "float", "double"):
			t = "double"
		default:
			t = "string"
		}
	}
	types[k] = t
}

func widens(a, b, narrow, wide string) bool {
	return (a == narrow || a == wide) && (b == narrow || b == wide)
}

func declare(kind string, types map[string]string) []key {
	names := make([]string, 0, len(types))
	for k := range types {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]key, len(names))
	for i, n := range names {
		out[i] = key{ID: n, For: kind, Name: n, Type: types[n]}
	}
	return out
}

func typeName(v any) string {
	switch v.(type) {
	case int32:
		return "int"
	case int64:
		return "long"
	case float32:
		return "float"
	case float64:
		return "double"
	case bool:
		return "boolean"
	default:
		return "string"
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
