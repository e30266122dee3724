package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/hanpama/graphscript/internal/canonical"
	"github.com/hanpama/graphscript/internal/eventbus"
	"github.com/hanpama/graphscript/internal/events"
	"github.com/hanpama/graphscript/internal/executor"
	"github.com/hanpama/graphscript/internal/reqid"
	"github.com/hanpama/graphscript/internal/script"
	"github.com/hanpama/graphscript/internal/wire"
)

const (
	// DefaultPrefix is the mount point of the data API.
	DefaultPrefix = "/db/data"

	pluginPath = "/ext/GremlinPlugin"
	scriptPath = pluginPath + "/graphdb/execute_script"

	// RequestIDHeader carries the request id in both directions.
	RequestIDHeader = "X-Request-Id"

	// BadInput is the exception name used for malformed requests.
	BadInput = "BadInputException"
)

// Handler is an http.Handler that serves the script execution endpoint.
// It parses requests, runs the coordinator, and renders representations.
type Handler struct {
	db   executor.Database
	eval *script.Evaluator
	opt  Options

	// coord is set when links do not depend on the request host.
	coord *executor.Coordinator
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// Prefix is the path the data API is mounted at.
	Prefix string

	// BaseURI is the base of element self links. When empty it is derived
	// from the request host and Prefix.
	BaseURI string

	// Evaluator is shared by all requests; a new one is created if nil.
	Evaluator *script.Evaluator
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithPrefix(p string) Option               { return func(o *Options) { o.Prefix = p } }
func WithBaseURI(u string) Option              { return func(o *Options) { o.BaseURI = u } }
func WithEvaluator(e *script.Evaluator) Option { return func(o *Options) { o.Evaluator = e } }

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a handler executing scripts against db.
func New(db executor.Database, opts ...Option) *Handler {
	op := Options{Timeout: 10 * time.Second, Prefix: DefaultPrefix}
	for _, f := range opts {
		f(&op)
	}
	op.Prefix = "/" + strings.Trim(op.Prefix, "/")
	if op.Prefix == "/" {
		op.Prefix = ""
	}
	if op.Evaluator == nil {
		op.Evaluator = script.New()
	}
	h := &Handler{db: db, eval: op.Evaluator, opt: op}
	if op.BaseURI != "" {
		h.coord = executor.New(executor.WithEvaluator(op.Evaluator), executor.WithLinker(canonical.URILinker{Base: op.BaseURI}))
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.WithID(ctx, r.Header.Get(RequestIDHeader))
	w.Header().Set(RequestIDHeader, rid)
	status := http.StatusOK
	failure := ""
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, FailureKind: failure, Duration: time.Since(start)})
	}()

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch path {
	case h.opt.Prefix + pluginPath:
		if r.Method != http.MethodGet {
			status, failure = h.methodNotAllowed(w, "GET")
			return
		}
		h.write(w, status, wire.Representation{Value: canonical.Map{
			"graphdb": canonical.List{canonical.String("execute_script")},
		}})
		return
	case h.opt.Prefix + scriptPath:
	default:
		status, failure = http.StatusNotFound, BadInput
		h.write(w, status, wire.FailureRepresentation{Kind: failure, Message: "no such resource: " + r.URL.Path})
		return
	}

	if r.Method == http.MethodOptions {
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status, failure = h.methodNotAllowed(w, "GET, POST, OPTIONS")
		return
	}

	req, rerr := parseRequest(r, h.opt.MaxBodyBytes)
	if rerr != nil {
		status, failure = rerr.status, BadInput
		h.write(w, status, wire.FailureRepresentation{Kind: failure, Message: rerr.message})
		return
	}

	res := h.coordinator(r).Execute(ctx, h.db, req)
	if res.Failure != nil {
		failure = string(res.Failure.Kind)
		status = statusFor(res.Failure.Kind)
	}
	h.write(w, status, res.Representation())
}

func (h *Handler) coordinator(r *http.Request) *executor.Coordinator {
	if h.coord != nil {
		return h.coord
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	base := scheme + "://" + r.Host + h.opt.Prefix + "/"
	return executor.New(executor.WithEvaluator(h.eval), executor.WithLinker(canonical.URILinker{Base: base}))
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, allow string) (int, string) {
	w.Header().Set("Allow", allow)
	h.write(w, http.StatusMethodNotAllowed, wire.FailureRepresentation{Kind: BadInput, Message: "method not allowed"})
	return http.StatusMethodNotAllowed, BadInput
}

func (h *Handler) write(w http.ResponseWriter, status int, v wire.Renderer) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = wire.Encode(w, v, h.opt.Pretty)
}

// statusFor maps failures caused by the script to 400 and storage failures
// to 500.
func statusFor(kind executor.FailureKind) int {
	if kind == executor.TransactionError {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// ------------------ Request parsing ------------------

// ScriptRequest is the JSON body of a script submission.
type ScriptRequest struct {
	Script string         `json:"script"`
	Params map[string]any `json:"params,omitempty"`
}

type requestError struct {
	status  int
	message string
}

func badRequest(msg string) *requestError {
	return &requestError{status: http.StatusBadRequest, message: msg}
}

func parseRequest(r *http.Request, maxBody int64) (executor.Request, *requestError) {
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		return buildRequest(q.Get("script"), q.Get("params"))
	}

	ct := r.Header.Get("Content-Type")
	mt := "application/json"
	if ct != "" {
		var err error
		if mt, _, err = mime.ParseMediaType(ct); err != nil {
			return executor.Request{}, &requestError{status: http.StatusUnsupportedMediaType, message: "invalid Content-Type"}
		}
	}

	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	defer r.Body.Close()
	if err != nil {
		return executor.Request{}, badRequest("failed to read body")
	}
	if maxBody > 0 && int64(len(body)) > maxBody {
		return executor.Request{}, &requestError{status: http.StatusRequestEntityTooLarge, message: errBodyTooLargeMessage}
	}

	switch mt {
	case "application/json":
		var sr ScriptRequest
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&sr); err != nil {
			return executor.Request{}, badRequest("invalid JSON")
		}
		if strings.TrimSpace(sr.Script) == "" {
			return executor.Request{}, badRequest("missing 'script'")
		}
		return executor.Request{Script: sr.Script, Bindings: executor.ParamBindings(sr.Params)}, nil
	case "application/x-www-form-urlencoded":
		r.Body = io.NopCloser(bytes.NewReader(body))
		if err := r.ParseForm(); err != nil {
			return executor.Request{}, badRequest("invalid form body")
		}
		return buildRequest(r.PostForm.Get("script"), r.PostForm.Get("params"))
	}
	return executor.Request{}, &requestError{status: http.StatusUnsupportedMediaType, message: "unsupported Content-Type"}
}

func buildRequest(src, params string) (executor.Request, *requestError) {
	if strings.TrimSpace(src) == "" {
		return executor.Request{}, badRequest("missing 'script'")
	}
	req := executor.Request{Script: src}
	if params != "" {
		p, err := executor.DecodeParams([]byte(params))
		if err != nil {
			return executor.Request{}, badRequest("invalid 'params' JSON")
		}
		req.Bindings = p
	}
	return req, nil
}

const errBodyTooLargeMessage = "body too large"

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
