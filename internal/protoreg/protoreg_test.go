package protoreg_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/hanpama/graphscript/internal/protoreg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/dynamicpb"
)

func TestBuild(t *testing.T) {
	reg, err := protoreg.Build()
	require.NoError(t, err)

	assert.Equal(t, "graphscript.v1", string(reg.File().Package()))
	assert.Equal(t, "graphscript.v1.ScriptService", string(reg.Service().FullName()))
	assert.Equal(t, "/graphscript.v1.ScriptService/Execute", protoreg.FullMethod(reg.Execute()))

	in := reg.Execute().Input().Fields()
	require.Equal(t, 2, in.Len())
	assert.EqualValues(t, 1, in.ByName(protoreg.FieldScript).Number())
	assert.EqualValues(t, 2, in.ByName(protoreg.FieldParamsJSON).Number())

	out := reg.Execute().Output().Fields()
	require.Equal(t, 3, out.Len())
	assert.EqualValues(t, 3, out.ByName(protoreg.FieldErrorMessage).Number())
}

func TestDefaultIsShared(t *testing.T) {
	a, err := protoreg.Default()
	require.NoError(t, err)
	b, err := protoreg.Default()
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestMessagesRoundTripOnTheWire(t *testing.T) {
	reg, err := protoreg.Default()
	require.NoError(t, err)

	want := protoreg.ExecuteRequest{Script: "g.v(1)", ParamsJSON: `{"x":1}`}
	b, err := proto.Marshal(reg.NewRequest(want))
	require.NoError(t, err)

	m := dynamicpb.NewMessage(reg.Execute().Input())
	require.NoError(t, proto.Unmarshal(b, m))
	assert.Equal(t, want, protoreg.ReadRequest(m))

	resp := protoreg.ExecuteResponse{ErrorKind: "NotFoundError", ErrorMessage: "vertex 9 not found"}
	assert.Equal(t, resp, protoreg.ReadResponse(reg.NewResponse(resp)))
}

func TestRender(t *testing.T) {
	reg, err := protoreg.Build()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, reg.Render(&buf))
	src := buf.String()
	assert.Contains(t, src, `syntax = "proto3";`)
	assert.Contains(t, src, "package graphscript.v1;")
	assert.Contains(t, src, "service ScriptService {")
	assert.Regexp(t, `rpc Execute \( ?ExecuteRequest ?\) returns \( ?ExecuteResponse ?\)`, src)
	assert.Contains(t, src, "string params_json = 2;")

	dir := t.TempDir()
	require.NoError(t, reg.RenderDir(dir))
	written, err := os.ReadFile(filepath.Join(dir, "graphscript", "v1", "script.proto"))
	require.NoError(t, err)
	assert.Equal(t, src, string(written))
}
