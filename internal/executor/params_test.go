package executor_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hanpama/graphscript/internal/executor"
	"github.com/stretchr/testify/require"
)

func TestDecodeParams(t *testing.T) {
	got, err := executor.DecodeParams([]byte(`{"id": 2, "w": 0.5, "names": ["a", 3], "m": {"n": 10}, "ok": true, "nil": null}`))
	require.NoError(t, err)
	want := map[string]any{
		"id":    int64(2),
		"w":     0.5,
		"names": []any{"a", int64(3)},
		"m":     map[string]any{"n": int64(10)},
		"ok":    true,
		"nil":   nil,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}

	got, err = executor.DecodeParams([]byte("  "))
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = executor.DecodeParams([]byte(`[1, 2]`))
	require.ErrorIs(t, err, executor.ErrParamsNotObject)
	_, err = executor.DecodeParams([]byte(`null`))
	require.ErrorIs(t, err, executor.ErrParamsNotObject)
	_, err = executor.DecodeParams([]byte(`{`))
	require.Error(t, err)
}
