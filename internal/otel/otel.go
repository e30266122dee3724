// Package otel exports traces of HTTP requests, script executions and gRPC
// calls. Spans are driven by event bus subscriptions and correlated by
// request id.
package otel

import (
	"context"
	"sync"

	"github.com/hanpama/graphscript/internal/eventbus"
	"github.com/hanpama/graphscript/internal/events"
	"github.com/hanpama/graphscript/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := Attach(otel.Tracer("graphscript"))
	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

// Attach subscribes span handlers that use tracer on the global bus and
// returns a function removing them.
func Attach(tracer trace.Tracer) (detach func()) {
	s := &subscriber{tracer: tracer}
	return s.register()
}

type subscriber struct {
	tracer      trace.Tracer
	httpSpans   sync.Map // rid -> trace.Span
	scriptSpans sync.Map // rid -> trace.Span
	serverSpans sync.Map // rid -> trace.Span
	clientSpans sync.Map // rid -> trace.Span
}

// parent returns ctx carrying the innermost open span of the request.
func (s *subscriber) parent(ctx context.Context, rid string, maps ...*sync.Map) context.Context {
	for _, m := range maps {
		if v, ok := m.Load(rid); ok {
			return trace.ContextWithSpan(ctx, v.(trace.Span))
		}
	}
	return ctx
}

func end(m *sync.Map, ctx context.Context, fn func(trace.Span)) {
	rid, ok := reqid.FromContext(ctx)
	if !ok {
		return
	}
	v, ok := m.LoadAndDelete(rid)
	if !ok {
		return
	}
	span := v.(trace.Span)
	fn(span)
	span.End()
}

func (s *subscriber) register() func() {
	var unsubs []func()
	unsubs = append(unsubs, eventbus.Subscribe(func(ctx context.Context, e events.HTTPStart) {
		rid, ok := reqid.FromContext(ctx)
		if !ok {
			return
		}
		_, span := s.tracer.Start(ctx, "http.request", trace.WithSpanKind(trace.SpanKindServer))
		span.SetAttributes(
			semconv.HTTPMethodKey.String(e.Request.Method),
			attribute.String("http.target", e.Request.URL.Path),
		)
		s.httpSpans.Store(rid, span)
	}))

	unsubs = append(unsubs, eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
		end(&s.httpSpans, ctx, func(span trace.Span) {
			span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
			if e.FailureKind != "" {
				span.SetAttributes(attribute.String("graphscript.failure", e.FailureKind))
			}
			if e.Status >= 500 {
				span.SetStatus(codes.Error, e.FailureKind)
			}
		})
	}))

	unsubs = append(unsubs, eventbus.Subscribe(func(ctx context.Context, e events.GRPCServerStart) {
		rid, ok := reqid.FromContext(ctx)
		if !ok {
			return
		}
		_, span := s.tracer.Start(ctx, "grpc.server", trace.WithSpanKind(trace.SpanKindServer))
		span.SetAttributes(
			semconv.RPCSystemGRPC,
			semconv.RPCMethodKey.String(e.Method),
			attribute.String("net.peer.name", e.Peer),
		)
		s.serverSpans.Store(rid, span)
	}))

	unsubs = append(unsubs, eventbus.Subscribe(func(ctx context.Context, e events.GRPCServerFinish) {
		end(&s.serverSpans, ctx, func(span trace.Span) {
			span.SetAttributes(attribute.String("grpc.code", e.Code.String()))
		})
	}))

	unsubs = append(unsubs, eventbus.Subscribe(func(ctx context.Context, e events.ScriptStart) {
		rid, ok := reqid.FromContext(ctx)
		if !ok {
			return
		}
		_, span := s.tracer.Start(s.parent(ctx, rid, &s.httpSpans, &s.serverSpans), "script.execute")
		span.SetAttributes(
			attribute.Int("graphscript.script.length", len(e.Script)),
			attribute.Bool("graphscript.tx.joined", e.Joined),
		)
		s.scriptSpans.Store(rid, span)
	}))

	unsubs = append(unsubs, eventbus.Subscribe(func(ctx context.Context, e events.ScriptFinish) {
		end(&s.scriptSpans, ctx, func(span trace.Span) {
			if e.FailureKind == "" {
				return
			}
			span.SetAttributes(attribute.String("graphscript.failure", e.FailureKind))
			if e.Err != nil {
				span.RecordError(e.Err)
			}
			span.SetStatus(codes.Error, e.FailureKind)
		})
	}))

	unsubs = append(unsubs, eventbus.Subscribe(func(ctx context.Context, e events.GRPCClientStart) {
		rid, ok := reqid.FromContext(ctx)
		if !ok {
			return
		}
		_, span := s.tracer.Start(s.parent(ctx, rid, &s.scriptSpans, &s.httpSpans), "grpc.client", trace.WithSpanKind(trace.SpanKindClient))
		span.SetAttributes(
			semconv.RPCServiceKey.String(e.Service),
			semconv.RPCMethodKey.String(e.Method),
			attribute.String("net.peer.name", e.Target),
		)
		s.clientSpans.Store(rid, span)
	}))

	unsubs = append(unsubs, eventbus.Subscribe(func(ctx context.Context, e events.GRPCClientFinish) {
		end(&s.clientSpans, ctx, func(span trace.Span) {
			span.SetAttributes(attribute.String("grpc.code", e.Code.String()))
			if e.Err != nil {
				span.RecordError(e.Err)
				span.SetStatus(codes.Error, e.Err.Error())
			}
		})
	}))

	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
