package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/hanpama/contentgraph/internal/eventbus"
	"github.com/hanpama/contentgraph/internal/hostctx"
	"github.com/hanpama/contentgraph/internal/otel"
	"github.com/hanpama/contentgraph/internal/pipeline"
	"github.com/hanpama/contentgraph/internal/server"
	"github.com/hanpama/contentgraph/internal/source"
)

const rootUsage = `contentgraph — dual-store content resolution pipeline

USAGE:
  contentgraph <command> [flags]

COMMANDS:
  resolve          Run one resolution cycle and print the unified result
  serve            Expose the pipeline over HTTP
  help             Show help for any command
`

const resolveUsage = `resolve FLAGS:
  -authoring.endpoint <url>   Authoring (master) GraphQL endpoint (required)
  -authoring.token <token>    Bearer token for the authoring endpoint
  -authoring.database <name>  Authoring database (default: master)
  -live.endpoint <url>        Live (published) GraphQL endpoint; omit to run
                              authoring-only
  -live.token <token>         Bearer token for the live endpoint
  -lang <tag>                 Language for explicit-id cycles (default: en)
  -id <identifier>            Resolve an explicit identifier instead of the
                              page context. Repeatable
  -page.context <file>        JSON file with the host page context
  -app.context <file>         JSON file with the host application context
  -pretty                     Pretty-print the JSON result
  -otel.endpoint <addr>       OTLP collector endpoint
  -otel.service <name>        OpenTelemetry service name (default: contentgraph)
`

const serveUsage = `serve FLAGS:
  (all resolve flags, plus)
  -server.addr <addr>         HTTP listen address (default: :8080)
  -server.pretty              Pretty-print JSON responses
  -server.timeout <duration>  Per-request timeout, e.g. 30s (default: 30s)
  -server.cors <origin>       Allowed CORS origin. Repeatable
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}
	cmd, cmdArgs := args[0], args[1:]
	switch cmd {
	case "resolve":
		return cmdResolve(cmdArgs)
	case "serve":
		return cmdServe(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "resolve":
		fmt.Print(resolveUsage)
	case "serve":
		fmt.Print(serveUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type commonFlags struct {
	authoringEndpoint string
	authoringToken    string
	authoringDatabase string
	liveEndpoint      string
	liveToken         string
	lang              string
	ids               stringListFlag
	pageContextFile   string
	appContextFile    string
	otelEndpoint      string
	otelService       string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.authoringEndpoint, "authoring.endpoint", "", "Authoring GraphQL endpoint")
	fs.StringVar(&c.authoringToken, "authoring.token", "", "Authoring bearer token")
	fs.StringVar(&c.authoringDatabase, "authoring.database", "master", "Authoring database")
	fs.StringVar(&c.liveEndpoint, "live.endpoint", "", "Live GraphQL endpoint")
	fs.StringVar(&c.liveToken, "live.token", "", "Live bearer token")
	fs.StringVar(&c.lang, "lang", "en", "Language for explicit-id cycles")
	fs.Var(&c.ids, "id", "Explicit identifier, repeatable")
	fs.StringVar(&c.pageContextFile, "page.context", "", "JSON file with the host page context")
	fs.StringVar(&c.appContextFile, "app.context", "", "JSON file with the host application context")
	fs.StringVar(&c.otelEndpoint, "otel.endpoint", "", "OTLP collector endpoint")
	fs.StringVar(&c.otelService, "otel.service", "contentgraph", "OpenTelemetry service name")
}

func (c *commonFlags) buildService() (*pipeline.Service, error) {
	if c.authoringEndpoint == "" {
		return nil, fmt.Errorf("-authoring.endpoint is required")
	}
	exec := &httpExecutor{endpoint: c.authoringEndpoint, token: c.authoringToken}
	authoring, err := source.NewAuthoring(exec, c.authoringDatabase)
	if err != nil {
		return nil, err
	}
	var live *source.Live
	if c.liveEndpoint != "" {
		live, err = source.NewLive(source.LiveConfig{Endpoint: c.liveEndpoint, Token: c.liveToken}, nil)
		if err != nil {
			return nil, err
		}
	}
	fp, err := newFileProvider(c.pageContextFile, c.appContextFile)
	if err != nil {
		return nil, err
	}
	// A typed nil provider must stay a nil interface, or the pipeline
	// would try to use it.
	var provider hostctx.Provider
	if fp != nil {
		provider = fp
	}
	return pipeline.New(provider, authoring, live, pipeline.WithDefaultLanguage(c.lang))
}

func (c *commonFlags) setupTelemetry() (func(context.Context) error, error) {
	eventbus.Use(eventbus.New())
	return otel.Setup(c.otelEndpoint, c.otelService)
}

func cmdResolve(args []string) error {
	var cf commonFlags
	pretty := false
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	cf.register(fs)
	fs.BoolVar(&pretty, "pretty", pretty, "Pretty-print the JSON result")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, resolveUsage)
		return err
	}

	svc, err := cf.buildService()
	if err != nil {
		fmt.Fprint(os.Stderr, resolveUsage)
		return err
	}
	shutdown, err := cf.setupTelemetry()
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	ctx := context.Background()
	var sum *pipeline.Summary
	if len(cf.ids) > 0 {
		sum, err = svc.RunForIdentifiers(ctx, cf.ids)
	} else {
		sum, err = svc.RunFullCycle(ctx)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(sum)
}

func cmdServe(args []string) error {
	var cf commonFlags
	addr := ":8080"
	pretty := false
	timeout := 30 * time.Second
	var cors stringListFlag

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	cf.register(fs)
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.BoolVar(&pretty, "server.pretty", pretty, "Pretty-print JSON responses")
	fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request timeout")
	fs.Var(&cors, "server.cors", "Allowed CORS origin")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}

	svc, err := cf.buildService()
	if err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}
	shutdown, err := cf.setupTelemetry()
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	sopts := []server.Option{server.WithTimeout(timeout)}
	if pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if len(cors) > 0 {
		sopts = append(sopts, server.WithCORS(cors...))
	}
	h, err := server.New(svc, sopts...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	log.Printf("contentgraph listening on %s", addr)
	return http.ListenAndServe(addr, h)
}

// httpExecutor is the CLI's authoring channel: a plain GraphQL-over-HTTP
// client. Embedded hosts inject their own executor instead.
type httpExecutor struct {
	endpoint string
	token    string
}

func (e *httpExecutor) ExecuteQuery(ctx context.Context, document string) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]string{"query": document})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("authoring endpoint: status %d", resp.StatusCode)
	}
	var env struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		if len(env.Errors) > 0 {
			return nil, fmt.Errorf("authoring endpoint: %s", env.Errors[0].Message)
		}
		return nil, fmt.Errorf("authoring endpoint: empty response")
	}
	return env.Data, nil
}

// fileProvider serves host contexts from JSON files, standing in for a real
// host when the pipeline runs from the command line. Missing files yield nil
// providers or empty contexts so explicit-id cycles still work.
type fileProvider struct {
	page map[string]any
	app  map[string]any
}

func newFileProvider(pageFile, appFile string) (*fileProvider, error) {
	if pageFile == "" && appFile == "" {
		return nil, nil
	}
	p := &fileProvider{}
	var err error
	if p.page, err = readJSONFile(pageFile); err != nil {
		return nil, err
	}
	if p.app, err = readJSONFile(appFile); err != nil {
		return nil, err
	}
	return p, nil
}

func readJSONFile(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var blob map[string]any
	if err := json.Unmarshal(raw, &blob); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return blob, nil
}

func (p *fileProvider) PageContext(context.Context) (map[string]any, error) {
	return p.page, nil
}

func (p *fileProvider) AppContext(context.Context) (map[string]any, error) {
	return p.app, nil
}
