package grpctp

import (
	"context"
	"slices"
)

// EndpointProvider resolves a fully-qualified service name such as
// "graphscript.v1.ScriptService" to host:port endpoints. It must be safe for
// concurrent use.
type EndpointProvider interface {
	Endpoints(ctx context.Context, service string) ([]string, error)
}

// StaticEndpoints is a fixed service table. The key "*" answers for
// services without an entry of their own.
type StaticEndpoints struct {
	data map[string][]string
}

func NewStaticEndpoints(m map[string][]string) *StaticEndpoints {
	data := make(map[string][]string, len(m))
	for k, v := range m {
		data[k] = slices.Clone(v)
	}
	return &StaticEndpoints{data: data}
}

func (s *StaticEndpoints) Endpoints(_ context.Context, service string) ([]string, error) {
	eps, ok := s.data[service]
	if !ok || len(eps) == 0 {
		eps = s.data["*"]
	}
	if len(eps) == 0 {
		return nil, ErrNoEndpoints
	}
	return slices.Clone(eps), nil
}
