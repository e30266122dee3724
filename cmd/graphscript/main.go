package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hanpama/graphscript/internal/canonical"
	"github.com/hanpama/graphscript/internal/eventbus"
	"github.com/hanpama/graphscript/internal/executor"
	"github.com/hanpama/graphscript/internal/graph"
	"github.com/hanpama/graphscript/internal/graph/graphml"
	"github.com/hanpama/graphscript/internal/grpcsrv"
	"github.com/hanpama/graphscript/internal/grpctp"
	"github.com/hanpama/graphscript/internal/logging"
	"github.com/hanpama/graphscript/internal/otel"
	"github.com/hanpama/graphscript/internal/pgstore"
	"github.com/hanpama/graphscript/internal/protoreg"
	"github.com/hanpama/graphscript/internal/script"
	"github.com/hanpama/graphscript/internal/server"
	"github.com/hanpama/graphscript/internal/wire"
	"google.golang.org/grpc"
)

const rootUsage = `graphscript — graph traversal script engine

USAGE:
  graphscript <command> [flags]

COMMANDS:
  serve            Serve the script endpoint over HTTP (and optionally gRPC)
  exec             Execute one script locally or against a remote server
  proto            Print the gRPC service definition
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -graph.name <kind>                  Graph kind shown in its display name (default: MemoryGraph)
  -graph.graphml <path|url>           Seed the graph from a GraphML document
  -graph.postgres <url>               Persist every commit to PostgreSQL and load on start
  -graph.id <id>                      Graph id used in PostgreSQL (default: default)
  -server.addr <addr>                 HTTP listen address (default: :7474)
  -server.prefix <path>               Data API mount point (default: /db/data)
  -server.base-uri <uri>              Base of element self links (default: derived from Host)
  -server.pretty                      Pretty-print JSON responses
  -server.timeout <duration>          Per-request timeout, e.g. 10s (default: 10s)
  -server.max-body <bytes>            Max request body size (default: 1048576)
  -server.cors <origin>               Allowed CORS origin. Repeatable
  -grpc.addr <addr>                   gRPC listen address (disabled when empty)
  -otel.endpoint <addr>               OTLP collector endpoint
  -otel.service <name>                OpenTelemetry service name (default: graphscript)
  -log.level <level>                  debug, info, warn or error (default: info)
  -log.format <format>                text or json (default: text)
`

const execUsage = `exec FLAGS:
  -e <script>               Script source (default: first argument, else stdin)
  -params <json>            JSON object bound as script variables
  -graph.graphml <path|url> Load the graph from a GraphML document first
  -graph.save <file>        Write the graph as GraphML after a successful run
  -remote <host:port>       Execute on a remote gRPC server instead
  -base-uri <uri>           Base of element self links (default: http://localhost:7474/db/data/)
  -pretty                   Pretty-print the result
`

const protoUsage = `proto FLAGS:
  -out <dir>   Write the .proto file under dir instead of printing it
`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("graphscript", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs, stderr)
	case "exec":
		return cmdExec(cmdArgs, stdin, stdout, stderr)
	case "proto":
		return cmdProto(cmdArgs, stdout, stderr)
	case "help":
		return cmdHelp(cmdArgs, stdout)
	default:
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Fprint(stdout, serveUsage)
	case "exec":
		fmt.Fprint(stdout, execUsage)
	case "proto":
		fmt.Fprint(stdout, protoUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return strings.Join(*s, ",") }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type serveConfig struct {
	graphName    string
	graphML      string
	postgres     string
	graphID      string
	addr         string
	prefix       string
	baseURI      string
	pretty       bool
	timeout      time.Duration
	maxBody      int64
	cors         stringListFlag
	grpcAddr     string
	otelEndpoint string
	otelService  string
	logLevel     string
	logFormat    string
}

func parseServe(args []string) (*serveConfig, error) {
	c := &serveConfig{
		graphName:   "MemoryGraph",
		graphID:     "default",
		addr:        ":7474",
		prefix:      server.DefaultPrefix,
		timeout:     10 * time.Second,
		maxBody:     1 << 20,
		otelService: "graphscript",
		logLevel:    "info",
		logFormat:   "text",
	}
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&c.graphName, "graph.name", c.graphName, "Graph kind")
	fs.StringVar(&c.graphML, "graph.graphml", c.graphML, "GraphML seed document")
	fs.StringVar(&c.postgres, "graph.postgres", c.postgres, "PostgreSQL URL")
	fs.StringVar(&c.graphID, "graph.id", c.graphID, "Graph id in PostgreSQL")
	fs.StringVar(&c.addr, "server.addr", c.addr, "HTTP listen address")
	fs.StringVar(&c.prefix, "server.prefix", c.prefix, "Data API mount point")
	fs.StringVar(&c.baseURI, "server.base-uri", c.baseURI, "Base of element self links")
	fs.BoolVar(&c.pretty, "server.pretty", c.pretty, "Pretty-print JSON responses")
	fs.DurationVar(&c.timeout, "server.timeout", c.timeout, "Per-request timeout")
	fs.Int64Var(&c.maxBody, "server.max-body", c.maxBody, "Max request body size")
	fs.Var(&c.cors, "server.cors", "Allowed CORS origin")
	fs.StringVar(&c.grpcAddr, "grpc.addr", c.grpcAddr, "gRPC listen address")
	fs.StringVar(&c.otelEndpoint, "otel.endpoint", c.otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&c.otelService, "otel.service", c.otelService, "OpenTelemetry service name")
	fs.StringVar(&c.logLevel, "log.level", c.logLevel, "Log level")
	fs.StringVar(&c.logFormat, "log.format", c.logFormat, "Log format")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return c, nil
}

func cmdServe(args []string, stderr io.Writer) error {
	c, err := parseServe(args)
	if err != nil {
		fmt.Fprint(stderr, serveUsage)
		return err
	}

	logger, err := logging.New(stderr, c.logFormat, c.logLevel)
	if err != nil {
		return err
	}
	eventbus.Use(eventbus.New())
	defer logging.Attach(logger)()
	shutdown, err := otel.Setup(c.otelEndpoint, c.otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, c, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	ev := script.New()
	sopts := []server.Option{
		server.WithPrefix(c.prefix),
		server.WithEvaluator(ev),
		server.WithMaxBodyBytes(c.maxBody),
	}
	if c.pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if c.timeout > 0 {
		sopts = append(sopts, server.WithTimeout(c.timeout))
	}
	if c.baseURI != "" {
		sopts = append(sopts, server.WithBaseURI(c.baseURI))
	}
	if len(c.cors) > 0 {
		sopts = append(sopts, server.WithCORS(c.cors...))
	}
	h := server.New(store, sopts...)

	if c.grpcAddr != "" {
		lis, err := net.Listen("tcp", c.grpcAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		var copts []executor.Option
		copts = append(copts, executor.WithEvaluator(ev))
		if c.baseURI != "" {
			copts = append(copts, executor.WithLinker(canonical.URILinker{Base: c.baseURI}))
		}
		gs := grpc.NewServer()
		if err := grpcsrv.Register(gs, executor.New(copts...), store); err != nil {
			return fmt.Errorf("grpc register: %w", err)
		}
		go func() {
			if err := gs.Serve(lis); err != nil {
				logger.Error("grpc server stopped", "error", err)
			}
		}()
		defer gs.GracefulStop()
		logger.Info("gRPC server listening", "addr", lis.Addr().String())
	}

	mux := http.NewServeMux()
	mux.Handle("/", h)

	logger.Info("script server listening", "addr", c.addr, "graph", store.Name())
	return http.ListenAndServe(c.addr, mux)
}

// openStore builds the graph store, loading it from PostgreSQL and then
// from GraphML when it is still empty.
func openStore(ctx context.Context, c *serveConfig, logger *slog.Logger) (*graph.Store, func(), error) {
	location := "memory"
	if c.graphML != "" {
		location = c.graphML
	}
	if c.postgres != "" {
		location = "postgres:" + c.graphID
	}

	var (
		pg      *pgstore.Store
		persist func(*graph.Snapshot) error
	)
	closeStore := func() {}
	opts := []graph.Option{graph.WithName(c.graphName), graph.WithLocation(location)}
	if c.postgres != "" {
		var err error
		pg, err = pgstore.Open(ctx, c.postgres)
		if err != nil {
			return nil, nil, err
		}
		closeStore = pg.Close
		if err := pg.CreateSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, fmt.Errorf("create schema: %w", err)
		}
		// persist is installed once the initial load is done
		opts = append(opts, graph.WithCommitHook(func(s *graph.Snapshot) error {
			if persist == nil {
				return nil
			}
			return persist(s)
		}))
	}
	store := graph.New(opts...)

	if pg != nil {
		err := store.Update(func(tx *graph.Tx) error {
			ids, err := pg.Load(ctx, c.graphID, tx)
			if err == nil {
				logger.Info("graph loaded from postgres", "graph_id", c.graphID, "vertices", len(ids))
			}
			return err
		})
		if err != nil {
			closeStore()
			return nil, nil, err
		}
	}
	if c.graphML != "" && store.Snapshot().VertexCount() == 0 {
		err := store.Update(func(tx *graph.Tx) error {
			st, err := graphml.Load(ctx, tx, c.graphML)
			if err == nil {
				logger.Info("graph loaded from graphml", "location", c.graphML, "vertices", st.Vertices, "edges", st.Edges)
			}
			return err
		})
		if err != nil {
			closeStore()
			return nil, nil, err
		}
	}
	if pg != nil {
		persist = pg.CommitHook(c.graphID, 30*time.Second)
		if store.Snapshot().VertexCount() > 0 {
			if _, err := pg.Save(ctx, c.graphID, store.Snapshot()); err != nil {
				closeStore()
				return nil, nil, err
			}
		}
	}
	return store, closeStore, nil
}

type execConfig struct {
	src     string
	params  string
	graphML string
	save    string
	remote  string
	baseURI string
	pretty  bool
}

func cmdExec(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	c := execConfig{baseURI: canonical.DefaultBase}
	fs := flag.NewFlagSet("exec", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&c.src, "e", c.src, "Script source")
	fs.StringVar(&c.params, "params", c.params, "Script parameters as JSON")
	fs.StringVar(&c.graphML, "graph.graphml", c.graphML, "GraphML document")
	fs.StringVar(&c.save, "graph.save", c.save, "Write the graph as GraphML")
	fs.StringVar(&c.remote, "remote", c.remote, "Remote gRPC server")
	fs.StringVar(&c.baseURI, "base-uri", c.baseURI, "Base of element self links")
	fs.BoolVar(&c.pretty, "pretty", c.pretty, "Pretty-print the result")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, execUsage)
		return err
	}
	if c.src == "" && fs.NArg() > 0 {
		c.src = fs.Arg(0)
	}
	if c.src == "" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		c.src = string(b)
	}
	if strings.TrimSpace(c.src) == "" {
		fmt.Fprint(stderr, execUsage)
		return fmt.Errorf("no script given")
	}
	params, err := executor.DecodeParams([]byte(c.params))
	if err != nil {
		return fmt.Errorf("-params: %w", err)
	}

	ctx := context.Background()
	if c.remote != "" {
		return execRemote(ctx, c, params, stdout)
	}

	store := graph.New(graph.WithLocation(locationOf(c.graphML)))
	if c.graphML != "" {
		if err := store.Update(func(tx *graph.Tx) error {
			_, err := graphml.Load(ctx, tx, c.graphML)
			return err
		}); err != nil {
			return err
		}
	}

	coord := executor.New(executor.WithLinker(canonical.URILinker{Base: c.baseURI}))
	res := coord.Execute(ctx, store, executor.Request{Script: c.src, Bindings: params})
	if err := wire.Encode(stdout, res.Representation(), c.pretty); err != nil {
		return err
	}
	if res.Failure != nil {
		return res.Failure
	}
	if c.save != "" {
		f, err := os.Create(c.save)
		if err != nil {
			return err
		}
		if err := graphml.Write(f, store.Snapshot()); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return nil
}

func locationOf(graphML string) string {
	if graphML == "" {
		return "memory"
	}
	return graphML
}

func execRemote(ctx context.Context, c execConfig, params map[string]any, stdout io.Writer) error {
	if c.graphML != "" || c.save != "" {
		return fmt.Errorf("-graph.graphml and -graph.save cannot be used with -remote")
	}
	reg, err := protoreg.Default()
	if err != nil {
		return err
	}
	tp := grpctp.New(grpctp.WithProvider(grpctp.NewStaticEndpoints(map[string][]string{
		string(reg.Service().FullName()): {c.remote},
	})))
	defer tp.Close()
	client, err := grpctp.NewClient(tp)
	if err != nil {
		return err
	}
	out, err := client.Execute(ctx, c.src, params)
	var re *grpctp.RemoteError
	if errors.As(err, &re) {
		if werr := wire.Encode(stdout, wire.FailureRepresentation{Kind: re.Kind, Message: re.Message}, c.pretty); werr != nil {
			return werr
		}
		return err
	}
	if err != nil {
		return err
	}
	if c.pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(out), "", "  "); err != nil {
			return err
		}
		out = buf.String()
	}
	_, err = fmt.Fprintln(stdout, out)
	return err
}

func cmdProto(args []string, stdout, stderr io.Writer) error {
	outDir := ""
	fs := flag.NewFlagSet("proto", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&outDir, "out", outDir, "Output directory for the .proto file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, protoUsage)
		return err
	}
	reg, err := protoreg.Default()
	if err != nil {
		return fmt.Errorf("protoreg build: %w", err)
	}
	if outDir != "" {
		if err := reg.RenderDir(outDir); err != nil {
			return fmt.Errorf("render proto: %w", err)
		}
		return nil
	}
	return reg.Render(stdout)
}
