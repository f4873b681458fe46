// Package server exposes the pipeline over HTTP: POST /resolve runs a cycle
// and GET /result returns the current snapshot. It is a thin transport; all
// semantics live in the pipeline.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/hanpama/contentgraph/internal/cycleid"
	"github.com/hanpama/contentgraph/internal/eventbus"
	"github.com/hanpama/contentgraph/internal/events"
	"github.com/hanpama/contentgraph/internal/hostctx"
	"github.com/hanpama/contentgraph/internal/pipeline"
)

// Handler is an http.Handler over a pipeline service.
type Handler struct {
	svc *pipeline.Service
	opt Options
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
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates the HTTP handler for svc.
func New(svc *pipeline.Service, opts ...Option) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("server: nil service")
	}
	op := Options{Timeout: 30 * time.Second}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{svc: svc, opt: op}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}
	ctx, _ = cycleid.NewContext(ctx)

	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: time.Since(start)})
	}()

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}
	if r.Method == http.MethodOptions {
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/resolve":
		status = h.handleResolve(ctx, w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/result":
		status = h.handleResult(w)
	default:
		status = http.StatusNotFound
		h.writeError(w, status, "not found")
	}
}

type resolveRequest struct {
	// IDs bypasses context discovery when non-empty.
	IDs []string `json:"ids,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type resultResponse struct {
	Result   *pipeline.Summary `json:"result"`
	Error    string            `json:"error,omitempty"`
	InFlight bool              `json:"inFlight"`
}

func (h *Handler) handleResolve(ctx context.Context, w http.ResponseWriter, r *http.Request) int {
	reader := io.Reader(r.Body)
	if h.opt.MaxBodyBytes > 0 {
		reader = io.LimitReader(r.Body, h.opt.MaxBodyBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to read body")
		return http.StatusBadRequest
	}
	defer r.Body.Close()
	if h.opt.MaxBodyBytes > 0 && int64(len(body)) > h.opt.MaxBodyBytes {
		h.writeError(w, http.StatusRequestEntityTooLarge, "body too large")
		return http.StatusRequestEntityTooLarge
	}

	var req resolveRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid JSON")
			return http.StatusBadRequest
		}
	}

	var sum *pipeline.Summary
	if len(req.IDs) > 0 {
		sum, err = h.svc.RunForIdentifiers(ctx, req.IDs)
	} else {
		sum, err = h.svc.RunFullCycle(ctx)
	}
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, hostctx.ErrNoIdentifiers) || errors.Is(err, hostctx.ErrContextUnavailable) {
			status = http.StatusUnprocessableEntity
		}
		h.writeError(w, status, err.Error())
		return status
	}
	writeJSON(w, http.StatusOK, sum, h.opt.Pretty)
	return http.StatusOK
}

func (h *Handler) handleResult(w http.ResponseWriter) int {
	snap := h.svc.Current()
	res := resultResponse{Result: snap.Result, InFlight: snap.InFlight}
	if snap.Err != nil {
		res.Error = snap.Err.Error()
	}
	writeJSON(w, http.StatusOK, res, h.opt.Pretty)
	return http.StatusOK
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg}, h.opt.Pretty)
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	wildcard := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" {
			allowed, wildcard = true, true
			break
		}
		if o == origin {
			allowed = true
		}
	}
	if !allowed {
		return
	}
	if wildcard {
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
