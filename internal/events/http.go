// Package events declares the events published on the in-process bus by the
// HTTP, gRPC and execution layers.
package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted when a script request is received.
// Context carries the request context.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the handler has written its response.
// FailureKind names the execution failure, if any.
type HTTPFinish struct {
	Request     *http.Request
	Status      int
	FailureKind string
	Duration    time.Duration
}
