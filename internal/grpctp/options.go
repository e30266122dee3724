package grpctp

import (
	"time"

	"google.golang.org/grpc"
)

// Options configures a Transport. Zero values fall back to:
//
//	PoolSize:   2 connections per endpoint
//	RPCTimeout: 5s, applied only when the caller's context has no deadline
//	Retries:    1 extra attempt on another endpoint when one is unavailable
//	Dial:       insecure credentials with the default connect backoff
//
// Calls fail until a Provider is set.
type Options struct {
	Provider EndpointProvider

	PoolSize   int
	RPCTimeout time.Duration
	Retries    int

	DialOptions []grpc.DialOption
}

type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		PoolSize:   2,
		RPCTimeout: 5 * time.Second,
		Retries:    1,
	}
}

func WithProvider(p EndpointProvider) Option { return func(o *Options) { o.Provider = p } }
func WithPoolSize(n int) Option              { return func(o *Options) { o.PoolSize = n } }
func WithRPCTimeout(d time.Duration) Option  { return func(o *Options) { o.RPCTimeout = d } }

// WithRetries sets how many other endpoints are tried after one answers
// codes.Unavailable. Negative values disable retrying.
func WithRetries(n int) Option { return func(o *Options) { o.Retries = n } }

func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *Options) { o.DialOptions = opts }
}
