// Package grpcsrv serves the script service over gRPC using dynamic
// messages built from protoreg descriptors.
package grpcsrv

import (
	"context"
	"time"

	"github.com/hanpama/graphscript/internal/eventbus"
	"github.com/hanpama/graphscript/internal/events"
	"github.com/hanpama/graphscript/internal/executor"
	"github.com/hanpama/graphscript/internal/protoreg"
	"github.com/hanpama/graphscript/internal/reqid"
	"github.com/hanpama/graphscript/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/dynamicpb"
)

// RequestIDKey is the metadata key carrying the request id.
const RequestIDKey = "x-request-id"

type service struct {
	reg   *protoreg.Registry
	coord *executor.Coordinator
	db    executor.Database
}

// Register adds the script service to s.
func Register(s grpc.ServiceRegistrar, coord *executor.Coordinator, db executor.Database) error {
	reg, err := protoreg.Default()
	if err != nil {
		return err
	}
	svc := &service{reg: reg, coord: coord, db: db}
	s.RegisterService(svc.desc(), svc)
	return nil
}

func (s *service) desc() *grpc.ServiceDesc {
	md := s.reg.Execute()
	return &grpc.ServiceDesc{
		ServiceName: string(s.reg.Service().FullName()),
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: string(md.Name()),
			Handler:    s.handleExecute,
		}},
		Metadata: s.reg.File().Path(),
	}
}

func (s *service) handleExecute(_ any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := dynamicpb.NewMessage(s.reg.Execute().Input())
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return s.execute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: s, FullMethod: protoreg.FullMethod(s.reg.Execute())}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return s.execute(ctx, req.(*dynamicpb.Message))
	})
}

func (s *service) execute(ctx context.Context, in *dynamicpb.Message) (resp any, err error) {
	var id string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(RequestIDKey); len(v) > 0 {
			id = v[0]
		}
	}
	ctx, rid := reqid.WithID(ctx, id)
	_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDKey, rid))

	method := protoreg.FullMethod(s.reg.Execute())
	from := ""
	if p, ok := peer.FromContext(ctx); ok {
		from = p.Addr.String()
	}
	start := time.Now()
	eventbus.Publish(ctx, events.GRPCServerStart{Method: method, Peer: from})
	defer func() {
		eventbus.Publish(ctx, events.GRPCServerFinish{Method: method, Peer: from, Code: status.Code(err), Duration: time.Since(start)})
	}()

	req := protoreg.ReadRequest(in)
	params, err := executor.DecodeParams([]byte(req.ParamsJSON))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "params_json: %v", err)
	}
	res := s.coord.Execute(ctx, s.db, executor.Request{Script: req.Script, Bindings: params})
	if res.Failure != nil {
		return s.reg.NewResponse(protoreg.ExecuteResponse{
			ErrorKind:    string(res.Failure.Kind),
			ErrorMessage: res.Failure.Message,
		}), nil
	}
	return s.reg.NewResponse(protoreg.ExecuteResponse{ResultJSON: wire.Format(res.Value)}), nil
}
