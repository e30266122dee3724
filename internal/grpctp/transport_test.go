package grpctp

import (
	"context"
	"errors"
	"testing"

	"github.com/hanpama/graphscript/internal/protoreg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEndpoints(t *testing.T) {
	src := map[string][]string{
		"graphscript.v1.ScriptService": {"a:1", "b:2"},
		"*":                            {"fallback:3"},
	}
	p := NewStaticEndpoints(src)
	src["graphscript.v1.ScriptService"][0] = "mutated"

	eps, err := p.Endpoints(context.Background(), "graphscript.v1.ScriptService")
	require.NoError(t, err)
	assert.Equal(t, []string{"a:1", "b:2"}, eps)

	eps, err = p.Endpoints(context.Background(), "other.Service")
	require.NoError(t, err)
	assert.Equal(t, []string{"fallback:3"}, eps)

	_, err = NewStaticEndpoints(nil).Endpoints(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoEndpoints)
}

func TestCallErrors(t *testing.T) {
	reg, err := protoreg.Default()
	require.NoError(t, err)
	req := reg.NewRequest(protoreg.ExecuteRequest{Script: "1"})

	_, err = New().Call(context.Background(), reg.Execute(), req)
	assert.EqualError(t, err, "grpctp: provider not configured")

	tp := New(WithProvider(NewStaticEndpoints(nil)))
	_, err = tp.Call(context.Background(), reg.Execute(), req)
	assert.True(t, errors.Is(err, ErrNoEndpoints))

	require.NoError(t, tp.Close())
	require.NoError(t, tp.Close())
	_, err = tp.Call(context.Background(), reg.Execute(), req)
	assert.EqualError(t, err, "grpctp: closed")
}

func TestRemoteError(t *testing.T) {
	err := &RemoteError{Kind: "EvaluationError", Message: "no such property: foo"}
	assert.Equal(t, "EvaluationError: no such property: foo", err.Error())
}
