package grpctp

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEndpoints indicates the provider returned no endpoints for a service.
	ErrNoEndpoints = errors.New("grpctp: no endpoints available")
)

// RemoteError is a script failure reported by the server.
type RemoteError struct {
	Kind    string
	Message string
}

func (e *RemoteError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }
