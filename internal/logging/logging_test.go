package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hanpama/graphscript/internal/eventbus"
	"github.com/hanpama/graphscript/internal/events"
	"github.com/hanpama/graphscript/internal/reqid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "xml", "info")
	require.Error(t, err)
	_, err = New(&bytes.Buffer{}, "text", "loud")
	require.Error(t, err)
}

func TestAttachLogsEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	var buf bytes.Buffer
	l, err := New(&buf, "json", "info")
	require.NoError(t, err)
	detach := Attach(l)

	ctx, rid := reqid.NewContext(context.Background())
	req := httptest.NewRequest("POST", "/db/data/ext/GremlinPlugin/graphdb/execute_script", nil)
	eventbus.Publish(ctx, events.ScriptFinish{Script: "g.V"}) // debug, filtered
	eventbus.Publish(ctx, events.ScriptFinish{Script: "foo", FailureKind: "EvaluationError", Err: errors.New("no such property: foo")})
	eventbus.Publish(ctx, events.GraphCommit{Graph: "MemoryGraph [memory]", Err: errors.New("disk full")})
	eventbus.Publish(ctx, events.GRPCServerFinish{Method: "/graphscript.v1.ScriptService/Execute", Code: codes.OK, Duration: time.Millisecond})
	eventbus.Publish(ctx, events.HTTPFinish{Request: req, Status: 400, FailureKind: "EvaluationError"})

	detach()
	eventbus.Publish(ctx, events.HTTPFinish{Request: req, Status: 200})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)

	var recs []map[string]any
	for _, line := range lines {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		assert.Equal(t, rid, m["request_id"])
		recs = append(recs, m)
	}
	assert.Equal(t, "script failed", recs[0]["msg"])
	assert.Equal(t, "WARN", recs[0]["level"])
	assert.Equal(t, "no such property: foo", recs[0]["error"])
	assert.Equal(t, "commit failed", recs[1]["msg"])
	assert.Equal(t, "ERROR", recs[1]["level"])
	assert.Equal(t, "grpc call", recs[2]["msg"])
	assert.Equal(t, "OK", recs[2]["code"])
	assert.Equal(t, "http request", recs[3]["msg"])
	assert.Equal(t, float64(400), recs[3]["status"])
}
