// Package logging writes structured request and execution logs from event
// bus events.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hanpama/graphscript/internal/eventbus"
	"github.com/hanpama/graphscript/internal/events"
	"github.com/hanpama/graphscript/internal/reqid"
)

// New builds a logger writing to w. format is "text" or "json"; level is
// one of debug, info, warn, error.
func New(w io.Writer, format, level string) (*slog.Logger, error) {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lv}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q", format)
}

// Attach subscribes l to the global bus and returns a function removing
// the subscriptions.
func Attach(l *slog.Logger) (detach func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			level := slog.LevelInfo
			if e.Status >= 500 {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", e.Request.Method),
				slog.String("path", e.Request.URL.Path),
				slog.Int("status", e.Status),
				slog.Duration("duration", e.Duration),
			}
			if e.FailureKind != "" {
				attrs = append(attrs, slog.String("failure", e.FailureKind))
			}
			l.LogAttrs(ctx, level, "http request", withRequestID(ctx, attrs)...)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.ScriptFinish) {
			attrs := []slog.Attr{
				slog.Int("script_len", len(e.Script)),
				slog.Bool("joined", e.Joined),
				slog.Duration("duration", e.Duration),
			}
			if e.FailureKind == "" {
				l.LogAttrs(ctx, slog.LevelDebug, "script executed", withRequestID(ctx, attrs)...)
				return
			}
			attrs = append(attrs, slog.String("failure", e.FailureKind))
			if e.Err != nil {
				attrs = append(attrs, slog.String("error", e.Err.Error()))
			}
			l.LogAttrs(ctx, slog.LevelWarn, "script failed", withRequestID(ctx, attrs)...)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GraphCommit) {
			attrs := []slog.Attr{
				slog.String("graph", e.Graph),
				slog.Duration("duration", e.Duration),
			}
			if e.Err != nil {
				attrs = append(attrs, slog.String("error", e.Err.Error()))
				l.LogAttrs(ctx, slog.LevelError, "commit failed", withRequestID(ctx, attrs)...)
				return
			}
			l.LogAttrs(ctx, slog.LevelDebug, "commit", withRequestID(ctx, attrs)...)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GRPCServerFinish) {
			attrs := []slog.Attr{
				slog.String("method", e.Method),
				slog.String("peer", e.Peer),
				slog.String("code", e.Code.String()),
				slog.Duration("duration", e.Duration),
			}
			l.LogAttrs(ctx, slog.LevelInfo, "grpc call", withRequestID(ctx, attrs)...)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func withRequestID(ctx context.Context, attrs []slog.Attr) []slog.Attr {
	if rid, ok := reqid.FromContext(ctx); ok {
		return append([]slog.Attr{slog.String("request_id", rid)}, attrs...)
	}
	return attrs
}
