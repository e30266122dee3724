package grpctp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hanpama/graphscript/internal/protoreg"
)

// RequestIDKey is the outgoing metadata key carrying the request id.
const RequestIDKey = "x-request-id"

// Client executes scripts on a remote script service.
type Client struct {
	t   *Transport
	reg *protoreg.Registry
}

// NewClient wraps t. The transport's provider must resolve the
// graphscript.v1.ScriptService service.
func NewClient(t *Transport) (*Client, error) {
	reg, err := protoreg.Default()
	if err != nil {
		return nil, err
	}
	return &Client{t: t, reg: reg}, nil
}

// Execute runs script remotely and returns the compact JSON representation
// of its result. Script failures are returned as *RemoteError.
func (c *Client) Execute(ctx context.Context, script string, params map[string]any) (string, error) {
	req := protoreg.ExecuteRequest{Script: script}
	if len(params) > 0 {
		b, err := json.Marshal(params)
		if err != nil {
			return "", fmt.Errorf("grpctp: encode params: %w", err)
		}
		req.ParamsJSON = string(b)
	}
	resp, err := c.t.Call(ctx, c.reg.Execute(), c.reg.NewRequest(req))
	if err != nil {
		return "", err
	}
	out := protoreg.ReadResponse(resp)
	if out.ErrorKind != "" {
		return "", &RemoteError{Kind: out.ErrorKind, Message: out.ErrorMessage}
	}
	return out.ResultJSON, nil
}
