package grpctp

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hanpama/graphscript/internal/eventbus"
	"github.com/hanpama/graphscript/internal/events"
	"github.com/hanpama/graphscript/internal/reqid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// serviceKey is the outgoing metadata key naming the called service.
const serviceKey = "x-graphscript-service"

// Transport invokes unary methods described by protobuf descriptors on
// endpoints resolved through an EndpointProvider. Connections are kept in a
// small per-endpoint set and shared by concurrent calls.
type Transport struct {
	opts *Options
	next atomic.Uint64

	mu     sync.Mutex
	conns  map[string]*endpointConns
	closed bool
}

func New(opts ...Option) *Transport {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	if o.PoolSize <= 0 {
		o.PoolSize = 1
	}
	if len(o.DialOptions) == 0 {
		o.DialOptions = []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithConnectParams(grpc.ConnectParams{Backoff: backoff.DefaultConfig}),
		}
	}
	return &Transport{opts: o, conns: make(map[string]*endpointConns)}
}

// Call invokes method with request and returns the decoded response. The
// request id in ctx, if any, travels as RequestIDKey metadata.
func (t *Transport) Call(ctx context.Context, method protoreflect.MethodDescriptor, request protoreflect.Message) (protoreflect.Message, error) {
	if t.isClosed() {
		return nil, fmt.Errorf("grpctp: closed")
	}
	if t.opts.Provider == nil {
		return nil, fmt.Errorf("grpctp: provider not configured")
	}
	service := string(method.Parent().FullName())
	fullMethod := "/" + service + "/" + string(method.Name())

	if _, ok := ctx.Deadline(); !ok && t.opts.RPCTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.RPCTimeout)
		defer cancel()
	}
	ctx = metadata.AppendToOutgoingContext(ctx, serviceKey, service)
	if rid, ok := reqid.FromContext(ctx); ok {
		ctx = metadata.AppendToOutgoingContext(ctx, RequestIDKey, rid)
	}

	endpoints, err := t.opts.Provider.Endpoints(ctx, service)
	if err != nil {
		return nil, err
	}
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	attempts := 1 + max(t.opts.Retries, 0)
	attempts = min(attempts, len(endpoints))
	first := int(t.next.Add(1) % uint64(len(endpoints)))
	for i := 0; ; i++ {
		target := endpoints[(first+i)%len(endpoints)]
		resp, err := t.callOnce(ctx, target, service, fullMethod, method, request)
		if err == nil || i+1 >= attempts || status.Code(err) != codes.Unavailable {
			return resp, err
		}
	}
}

func (t *Transport) callOnce(ctx context.Context, target, service, fullMethod string, method protoreflect.MethodDescriptor, request protoreflect.Message) (protoreflect.Message, error) {
	cc, err := t.conn(target)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	eventbus.Publish(ctx, events.GRPCClientStart{Service: service, Method: string(method.Name()), Target: target})
	resp := dynamicpb.NewMessage(method.Output())
	err = cc.Invoke(ctx, fullMethod, request.Interface(), resp)
	eventbus.Publish(ctx, events.GRPCClientFinish{
		Service:  service,
		Method:   string(method.Name()),
		Target:   target,
		Code:     status.Code(err),
		Err:      err,
		Duration: time.Since(start),
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Close releases every connection. Further calls fail.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for _, ec := range t.conns {
		ec.close()
	}
	t.conns = nil
	return nil
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Transport) conn(target string) (*grpc.ClientConn, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, fmt.Errorf("grpctp: closed")
	}
	ec := t.conns[target]
	if ec == nil {
		ec = &endpointConns{target: target, size: t.opts.PoolSize, dial: t.opts.DialOptions}
		t.conns[target] = ec
	}
	t.mu.Unlock()
	return ec.get()
}

// endpointConns rotates calls over up to size connections to one target,
// creating them on first use.
type endpointConns struct {
	target string
	size   int
	dial   []grpc.DialOption

	mu    sync.Mutex
	conns []*grpc.ClientConn
	next  int
}

func (e *endpointConns) get() (*grpc.ClientConn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.conns) < e.size {
		cc, err := grpc.NewClient(e.target, e.dial...)
		if err != nil {
			return nil, fmt.Errorf("grpctp: dial %s: %w", e.target, err)
		}
		e.conns = append(e.conns, cc)
		return cc, nil
	}
	cc := e.conns[e.next%len(e.conns)]
	e.next++
	return cc, nil
}

func (e *endpointConns) close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, cc := range e.conns {
		_ = cc.Close()
	}
	e.conns = nil
}
