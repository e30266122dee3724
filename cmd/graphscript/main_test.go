package main

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hanpama/graphscript/internal/executor"
	"github.com/hanpama/graphscript/internal/graph/graphtest"
	"github.com/hanpama/graphscript/internal/grpcsrv"
	"github.com/hanpama/graphscript/internal/grpctp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func runCmd(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := run(args, strings.NewReader(stdin), &out, &errOut)
	return out.String(), errOut.String(), err
}

func classicFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "graph-example-1.xml")
	require.NoError(t, os.WriteFile(p, []byte(graphtest.ClassicGraphML), 0644))
	return p
}

func TestHelp(t *testing.T) {
	out, _, err := runCmd(t, "", "help", "serve")
	require.NoError(t, err)
	require.Contains(t, out, "serve FLAGS")

	out, _, err = runCmd(t, "", "help")
	require.NoError(t, err)
	require.Contains(t, out, "COMMANDS")

	_, _, err = runCmd(t, "", "help", "nope")
	require.Error(t, err)
}

func TestUnknownCommand(t *testing.T) {
	_, stderr, err := runCmd(t, "", "frobnicate")
	require.EqualError(t, err, `unknown command "frobnicate"`)
	assert.Contains(t, stderr, "USAGE")

	_, _, err = runCmd(t, "")
	require.EqualError(t, err, "missing command")
}

func TestProto(t *testing.T) {
	out, _, err := runCmd(t, "", "proto")
	require.NoError(t, err)
	assert.Contains(t, out, "service ScriptService")

	dir := t.TempDir()
	_, _, err = runCmd(t, "", "proto", "-out", dir)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "graphscript", "v1", "script.proto"))
	require.NoError(t, err)
}

func TestExecLocal(t *testing.T) {
	g := classicFile(t)

	out, _, err := runCmd(t, "", "exec", "-graph.graphml", g, "-e", "g.v(1).out('knows').name")
	require.NoError(t, err)
	assert.Equal(t, "[ \"vadas\", \"josh\" ]\n", out)

	out, _, err = runCmd(t, "", "exec", "-graph.graphml", g, "g.V.count()")
	require.NoError(t, err)
	assert.Equal(t, "6\n", out)

	out, _, err = runCmd(t, "g.v(id).name", "exec", "-graph.graphml", g, "-params", `{"id":6}`)
	require.NoError(t, err)
	assert.Equal(t, "\"peter\"\n", out)

	out, _, err = runCmd(t, "", "exec", "-pretty", "-e", "[a: 1]")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}\n", out)

	out, _, err = runCmd(t, "", "exec", "-graph.graphml", g, "-base-uri", "http://db.test/data", "g.v(2)")
	require.NoError(t, err)
	assert.Contains(t, out, `"self" : "http://db.test/data/node/2"`)
}

func TestExecFailure(t *testing.T) {
	out, _, err := runCmd(t, "", "exec", "-e", "g.v(1).name")
	var f *executor.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, executor.NotFoundError, f.Kind)
	assert.Contains(t, out, `"exception" : "NotFoundError"`)

	_, _, err = runCmd(t, "", "exec")
	require.EqualError(t, err, "no script given")

	_, _, err = runCmd(t, "", "exec", "-params", "[1]", "-e", "1")
	require.Error(t, err)
}

func TestExecSave(t *testing.T) {
	saved := filepath.Join(t.TempDir(), "out.xml")
	_, _, err := runCmd(t, "", "exec", "-graph.graphml", classicFile(t), "-graph.save", saved,
		"-e", "g.addVertex([name:'zoe', age:20]); null")
	require.NoError(t, err)

	out, _, err := runCmd(t, "", "exec", "-graph.graphml", saved, "-e", "g.V.name")
	require.NoError(t, err)
	assert.Equal(t, `[ "marko", "vadas", "lop", "josh", "ripple", "peter", "zoe" ]`+"\n", out)
}

func TestExecRemote(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := grpc.NewServer()
	require.NoError(t, grpcsrv.Register(s, executor.New(), graphtest.Classic(t)))
	go func() { _ = s.Serve(lis) }()
	defer s.Stop()

	out, _, err := runCmd(t, "", "exec", "-remote", lis.Addr().String(), "-e", "g.v(4).age")
	require.NoError(t, err)
	assert.Equal(t, "32\n", out)

	out, _, err = runCmd(t, "", "exec", "-remote", lis.Addr().String(), "-e", "boom")
	var re *grpctp.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "EvaluationError", re.Kind)
	assert.Contains(t, out, `"exception" : "EvaluationError"`)

	_, _, err = runCmd(t, "", "exec", "-remote", lis.Addr().String(), "-graph.save", "x.xml", "-e", "1")
	require.Error(t, err)
}

func TestParseServe(t *testing.T) {
	c, err := parseServe(nil)
	require.NoError(t, err)
	assert.Equal(t, ":7474", c.addr)
	assert.Equal(t, "/db/data", c.prefix)
	assert.Equal(t, 10*time.Second, c.timeout)
	assert.Equal(t, "MemoryGraph", c.graphName)

	c, err = parseServe([]string{
		"-graph.name", "ImpermanentGraphDatabase",
		"-server.cors", "http://a", "-server.cors", "http://b",
		"-server.timeout", "2s", "-grpc.addr", ":9090", "-log.format", "json",
	})
	require.NoError(t, err)
	assert.Equal(t, "ImpermanentGraphDatabase", c.graphName)
	assert.Equal(t, []string{"http://a", "http://b"}, []string(c.cors))
	assert.Equal(t, 2*time.Second, c.timeout)
	assert.Equal(t, ":9090", c.grpcAddr)
	assert.Equal(t, "json", c.logFormat)

	_, err = parseServe([]string{"extra"})
	require.Error(t, err)
	_, err = parseServe([]string{"-server.timeout", "soon"})
	require.Error(t, err)
}

func TestServeRejectsBadLogConfig(t *testing.T) {
	_, _, err := runCmd(t, "", "serve", "-log.level", "loud")
	require.Error(t, err)
}
