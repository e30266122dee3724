package grpcsrv_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/hanpama/graphscript/internal/eventbus"
	"github.com/hanpama/graphscript/internal/events"
	"github.com/hanpama/graphscript/internal/executor"
	"github.com/hanpama/graphscript/internal/graph"
	"github.com/hanpama/graphscript/internal/graph/graphtest"
	"github.com/hanpama/graphscript/internal/grpcsrv"
	"github.com/hanpama/graphscript/internal/grpctp"
	"github.com/hanpama/graphscript/internal/protoreg"
	"github.com/hanpama/graphscript/internal/reqid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/dynamicpb"
)

func startServer(t *testing.T, db *graph.Store) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := grpc.NewServer()
	require.NoError(t, grpcsrv.Register(s, executor.New(), db))
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)
	return lis.Addr().String()
}

func newClient(t *testing.T, addr string) *grpctp.Client {
	t.Helper()
	tp := grpctp.New(grpctp.WithProvider(grpctp.NewStaticEndpoints(map[string][]string{"*": {addr}})))
	t.Cleanup(func() { _ = tp.Close() })
	c, err := grpctp.NewClient(tp)
	require.NoError(t, err)
	return c
}

func TestExecuteOverGRPC(t *testing.T) {
	db := graphtest.Classic(t)
	c := newClient(t, startServer(t, db))
	ctx := context.Background()

	out, err := c.Execute(ctx, "g.v(1).out('knows').name", nil)
	require.NoError(t, err)
	assert.Equal(t, `[ "vadas", "josh" ]`, out)

	out, err = c.Execute(ctx, "g.v(id).age + n", map[string]any{"id": 4, "n": 1})
	require.NoError(t, err)
	assert.Equal(t, "33", out)

	out, err = c.Execute(ctx, "g.v(2)", nil)
	require.NoError(t, err)
	var ref map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &ref))
	assert.Equal(t, "http://localhost:7474/db/data/node/2", ref["self"])
}

func TestExecuteFailureOverGRPC(t *testing.T) {
	c := newClient(t, startServer(t, graphtest.Classic(t)))

	_, err := c.Execute(context.Background(), "g.v(42).name", nil)
	var re *grpctp.RemoteError
	require.True(t, errors.As(err, &re), "got %v", err)
	assert.Equal(t, "NotFoundError", re.Kind)
	assert.NotEmpty(t, re.Message)
}

func TestWritesCommitOverGRPC(t *testing.T) {
	db := graphtest.Classic(t)
	c := newClient(t, startServer(t, db))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Execute(context.Background(), "g.addVertex([name:'n']); null", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, db.Snapshot().Vertices(), 16)
}

func TestInvalidParams(t *testing.T) {
	addr := startServer(t, graphtest.Classic(t))
	reg, err := protoreg.Default()
	require.NoError(t, err)

	cc, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer cc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp := dynamicpb.NewMessage(reg.Execute().Output())
	err = cc.Invoke(ctx, protoreg.FullMethod(reg.Execute()),
		reg.NewRequest(protoreg.ExecuteRequest{Script: "1", ParamsJSON: "[1]"}), resp)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestServerEventsCarryRequestID(t *testing.T) {
	bus := eventbus.New()
	eventbus.Use(bus)
	t.Cleanup(func() { eventbus.Use(nil) })

	var (
		mu   sync.Mutex
		rids []string
		fin  []events.GRPCServerFinish
	)
	eventbus.On(bus, func(ctx context.Context, e events.GRPCServerFinish) {
		rid, _ := reqid.FromContext(ctx)
		mu.Lock()
		defer mu.Unlock()
		rids = append(rids, rid)
		fin = append(fin, e)
	})

	c := newClient(t, startServer(t, graphtest.Classic(t)))
	ctx, rid := reqid.NewContext(context.Background())
	_, err := c.Execute(ctx, "1 + 1", nil)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, fin, 1)
	assert.Equal(t, rid, rids[0])
	assert.Equal(t, codes.OK, fin[0].Code)
	assert.Equal(t, "/graphscript.v1.ScriptService/Execute", fin[0].Method)
}

func TestClientSkipsUnavailableEndpoint(t *testing.T) {
	live := startServer(t, graphtest.Classic(t))
	dead, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	deadAddr := dead.Addr().String()
	require.NoError(t, dead.Close())

	eps := grpctp.NewStaticEndpoints(map[string][]string{"*": {deadAddr, live}})
	ctx := context.Background()

	tp := grpctp.New(grpctp.WithProvider(eps))
	t.Cleanup(func() { _ = tp.Close() })
	c, err := grpctp.NewClient(tp)
	require.NoError(t, err)
	for range 4 {
		out, err := c.Execute(ctx, "g.V.count()", nil)
		require.NoError(t, err)
		assert.Equal(t, "6", out)
	}

	// without retries the rotation hits the dead endpoint on one of two calls
	tp = grpctp.New(grpctp.WithProvider(eps), grpctp.WithRetries(-1))
	t.Cleanup(func() { _ = tp.Close() })
	c, err = grpctp.NewClient(tp)
	require.NoError(t, err)
	var failed int
	for range 2 {
		if _, err := c.Execute(ctx, "1", nil); err != nil {
			assert.Equal(t, codes.Unavailable, status.Code(err))
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}
