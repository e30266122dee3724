package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hanpama/graphscript/internal/eventbus"
	"github.com/hanpama/graphscript/internal/events"
	"github.com/hanpama/graphscript/internal/graph"
	"github.com/hanpama/graphscript/internal/graph/graphtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const endpoint = "/db/data/ext/GremlinPlugin/graphdb/execute_script"

func postJSON(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, endpoint, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}

func TestExecuteScript_Vertex(t *testing.T) {
	h := New(graphtest.Classic(t), WithBaseURI("http://localhost:7474/db/data/"))
	rr := postJSON(t, h, `{"script":"g.v(1)"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))

	want := `{ "data" : { "age" : 29, "name" : "marko" }, "self" : "http://localhost:7474/db/data/node/1" }` + "\n"
	if diff := cmp.Diff(want, rr.Body.String()); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteScript_LinksFollowHost(t *testing.T) {
	h := New(graphtest.Classic(t))
	req := httptest.NewRequest(http.MethodPost, "http://example.test:8080"+endpoint, strings.NewReader(`{"script":"g.e(2)"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	got := decode(t, rr).(map[string]any)
	assert.Equal(t, "http://example.test:8080/db/data/relationship/2", got["self"])
	assert.Equal(t, "http://example.test:8080/db/data/node/1", got["start"])
	assert.Equal(t, "http://example.test:8080/db/data/node/4", got["end"])
	assert.Equal(t, "knows", got["type"])
}

func TestExecuteScript_Scalars(t *testing.T) {
	h := New(graphtest.Classic(t))
	cases := []struct {
		script string
		want   string
	}{
		{"g.v(1).outE.count()", "3"},
		{"g.e(1).weight", "0.5"},
		{"g.v(1).out.name", `[ "vadas", "josh", "lop" ]`},
		{"null", `"null"`},
		{"[]", "[ ]"},
		{"1.0d", "1.0"},
	}
	for _, tc := range cases {
		t.Run(tc.script, func(t *testing.T) {
			b, _ := json.Marshal(ScriptRequest{Script: tc.script})
			rr := postJSON(t, h, string(b))
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			assert.Equal(t, tc.want+"\n", rr.Body.String())
		})
	}
}

func TestExecuteScript_Params(t *testing.T) {
	h := New(graphtest.Classic(t))
	rr := postJSON(t, h, `{"script":"g.v(id).name + suffix","params":{"id":2,"suffix":"!"}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "\"vadas!\"\n", rr.Body.String())

	// integral numbers bind as integers
	rr = postJSON(t, h, `{"script":"x * 2","params":{"x":21}}`)
	assert.Equal(t, "42\n", rr.Body.String())
	rr = postJSON(t, h, `{"script":"x * 2","params":{"x":1.25}}`)
	assert.Equal(t, "2.5\n", rr.Body.String())
}

func TestExecuteScript_FormAndQuery(t *testing.T) {
	h := New(graphtest.Classic(t))

	form := url.Values{"script": {"g.v(4).name"}}
	req := httptest.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "\"josh\"\n", rr.Body.String())

	q := url.Values{"script": {"g.v(n).name"}, "params": {`{"n":6}`}}
	req = httptest.NewRequest(http.MethodGet, endpoint+"?"+q.Encode(), nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "\"peter\"\n", rr.Body.String())
}

func TestExecuteScript_Failures(t *testing.T) {
	h := New(graphtest.Classic(t))
	cases := []struct {
		name   string
		script string
		status int
		kind   string
	}{
		{"syntax", "g.v(1", http.StatusBadRequest, "EvaluationError"},
		{"unknown variable", "foo", http.StatusBadRequest, "EvaluationError"},
		{"missing vertex", "g.v(99).name", http.StatusBadRequest, "NotFoundError"},
		{"unrepresentable", "new URL('http://localhost/')", http.StatusBadRequest, "UnrepresentableResultError"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, _ := json.Marshal(ScriptRequest{Script: tc.script})
			rr := postJSON(t, h, string(b))
			require.Equal(t, tc.status, rr.Code, rr.Body.String())
			got := decode(t, rr).(map[string]any)
			assert.Equal(t, tc.kind, got["exception"])
			assert.NotEmpty(t, got["message"])
		})
	}
}

func TestExecuteScript_CommitFailure(t *testing.T) {
	var fail atomic.Bool
	db := graphtest.Classic(t, graph.WithCommitHook(func(*graph.Snapshot) error {
		if fail.Load() {
			return errors.New("disk full")
		}
		return nil
	}))
	fail.Store(true)

	h := New(db)
	rr := postJSON(t, h, `{"script":"g.addVertex([name:'x'])"}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code, rr.Body.String())
	got := decode(t, rr).(map[string]any)
	assert.Equal(t, "TransactionError", got["exception"])
	assert.Len(t, db.Snapshot().Vertices(), 6)
}

func TestExecuteScript_Writes(t *testing.T) {
	db := graphtest.Classic(t)
	h := New(db)
	rr := postJSON(t, h, `{"script":"v = g.addVertex([name:'zed']); g.addEdge(g.v(1), v, 'knows', [weight:0.1f]); v.name"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = postJSON(t, h, `{"script":"g.v(1).out('knows').name"}`)
	assert.Equal(t, `[ "vadas", "josh", "zed" ]`+"\n", rr.Body.String())
}

func TestPrettyResponse(t *testing.T) {
	h := New(graphtest.Classic(t), WithPretty())
	rr := postJSON(t, h, `{"script":"[1, 2]"}`)
	assert.Equal(t, "[\n  1,\n  2\n]\n", rr.Body.String())
}

func TestBadRequests(t *testing.T) {
	h := New(graphtest.Classic(t), WithMaxBodyBytes(64))

	t.Run("invalid json", func(t *testing.T) {
		rr := postJSON(t, h, `{"script":`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, BadInput, decode(t, rr).(map[string]any)["exception"])
	})
	t.Run("missing script", func(t *testing.T) {
		rr := postJSON(t, h, `{"params":{}}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
	t.Run("params not an object", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, endpoint+"?script=1&params=%5B1%5D", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
	t.Run("too large", func(t *testing.T) {
		rr := postJSON(t, h, `{"script":"`+strings.Repeat("1", 100)+`"}`)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	})
	t.Run("content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, endpoint, strings.NewReader("g.V"))
		req.Header.Set("Content-Type", "text/plain")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
	})
	t.Run("method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, endpoint, nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
		assert.Equal(t, "GET, POST, OPTIONS", rr.Header().Get("Allow"))
	})
	t.Run("unknown path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/db/data/ext/Other", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestPluginDescription(t *testing.T) {
	h := New(graphtest.Classic(t), WithPrefix("/api/"))
	req := httptest.NewRequest(http.MethodGet, "/api/ext/GremlinPlugin", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{ "graphdb" : [ "execute_script" ] }`+"\n", rr.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	h := New(graphtest.Classic(t), WithCORS("http://example.com"))
	req := httptest.NewRequest(http.MethodOptions, endpoint, nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://example.com", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "content-type", rr.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "GET,POST,OPTIONS", rr.Header().Get("Access-Control-Allow-Methods"))

	req = httptest.NewRequest(http.MethodOptions, endpoint, nil)
	req.Header.Set("Origin", "http://evil.com")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestTimeoutInterruptsScript(t *testing.T) {
	h := New(graphtest.Classic(t), WithTimeout(20*time.Millisecond))
	rr := postJSON(t, h, `{"script":"x = 0; for (i in 0..2000000000) { x = x + 1 }; x"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
	got := decode(t, rr).(map[string]any)
	assert.Equal(t, "EvaluationError", got["exception"])
	assert.Contains(t, got["message"], "interrupted")
}

func TestRequestIDAndEvents(t *testing.T) {
	bus := eventbus.New()
	var finished []events.HTTPFinish
	eventbus.On(bus, func(_ context.Context, e events.HTTPFinish) { finished = append(finished, e) })
	eventbus.Use(bus)
	t.Cleanup(func() { eventbus.Use(eventbus.New()) })

	h := New(graphtest.Classic(t))
	const rid = "1b4e28ba-2fa1-11d2-883f-0016d3cca427"
	req := httptest.NewRequest(http.MethodPost, endpoint, strings.NewReader(`{"script":"g.v(99)"}`))
	req.Header.Set(RequestIDHeader, rid)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, rid, rr.Header().Get(RequestIDHeader))

	rr = postJSON(t, h, `{"script":"g.v(99).name"}`)
	assert.NotEmpty(t, rr.Header().Get(RequestIDHeader))

	require.Len(t, finished, 2)
	assert.Equal(t, http.StatusOK, finished[0].Status)
	assert.Equal(t, "", finished[0].FailureKind)
	assert.Equal(t, http.StatusBadRequest, finished[1].Status)
	assert.Equal(t, "NotFoundError", finished[1].FailureKind)
}
