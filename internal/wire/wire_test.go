package wire_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/hanpama/graphscript/internal/canonical"
	"github.com/hanpama/graphscript/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		v    canonical.Value
		want string
	}{
		{"null is a string", canonical.Null{}, `"null"`},
		{"integer", canonical.Int(1), `1`},
		{"double", canonical.Float{Value: 2, Bits: 64}, `2.0`},
		{"single precision", canonical.Float{Value: float64(float32(0.4)), Bits: 32}, `0.4`},
		{"large float", canonical.Float{Value: 1e21, Bits: 64}, `1e+21`},
		{"bool", canonical.Bool(false), `false`},
		{"string escapes", canonical.String("a\"b<c>"), `"a\"b<c>"`},
		{"list", canonical.List{canonical.Int(1), canonical.Int(2), canonical.Int(5), canonical.Int(6), canonical.Int(8)}, `[ 1, 2, 5, 6, 8 ]`},
		{"empty list", canonical.List{}, `[ ]`},
		{"empty map", canonical.Map{}, `{ }`},
		{"map keys sorted", canonical.Map{"b": canonical.Int(2), "a": canonical.Null{}}, `{ "a" : "null", "b" : 2 }`},
		{"vertex", canonical.VertexRef{
			ID: "1", Self: "http://h/node/1",
			Data: canonical.Map{"name": canonical.String("marko"), "age": canonical.Int(29)},
		}, `{ "data" : { "age" : 29, "name" : "marko" }, "self" : "http://h/node/1" }`},
		{"edge", canonical.EdgeRef{
			ID: "7", Self: "http://h/relationship/7", Start: "http://h/node/1", End: "http://h/node/2",
			Label: "knows", Data: canonical.Map{"weight": canonical.Float{Value: 0.5, Bits: 32}},
		}, `{ "data" : { "weight" : 0.5 }, "end" : "http://h/node/2", "self" : "http://h/relationship/7", "start" : "http://h/node/1", "type" : "knows" }`},
		{"path", canonical.List{canonical.PathRef{canonical.String("v[1]"), canonical.String("e[7][1-knows->2]"), canonical.String("v[2]")}},
			`[ [ "v[1]", "e[7][1-knows->2]", "v[2]" ] ]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wire.Format(tt.v)
			assert.Equal(t, tt.want, got)
			assert.True(t, json.Valid([]byte(got)), "invalid JSON: %s", got)
		})
	}
}

func TestFailureRepresentation(t *testing.T) {
	f := wire.FailureRepresentation{Kind: "EvaluationError", Message: `no such property: "x"`}
	assert.Equal(t, `{ "exception" : "EvaluationError", "message" : "no such property: \"x\"" }`, f.Format())

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(f.Format()), &decoded))
	assert.Equal(t, "EvaluationError", decoded["exception"])
}

func TestEncode(t *testing.T) {
	r := wire.Representation{Value: canonical.List{canonical.Int(1), canonical.Map{"a": canonical.Bool(true)}}}

	var buf bytes.Buffer
	require.NoError(t, wire.Encode(&buf, r, false))
	assert.Equal(t, "[ 1, { \"a\" : true } ]\n", buf.String())

	buf.Reset()
	require.NoError(t, wire.Encode(&buf, r, true))
	assert.Equal(t, "[\n  1,\n  {\n    \"a\": true\n  }\n]\n", buf.String())

	b, err := json.Marshal(map[string]any{"result": r})
	require.NoError(t, err)
	assert.JSONEq(t, `{"result":[1,{"a":true}]}`, string(b))
}
