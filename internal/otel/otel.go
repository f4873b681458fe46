// Package otel exports pipeline events as OTLP traces. It subscribes to the
// event bus and correlates the events of one cycle through the cycle id, so
// the pipeline itself stays free of tracing concerns.
package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"

	"github.com/hanpama/contentgraph/internal/cycleid"
	"github.com/hanpama/contentgraph/internal/eventbus"
	"github.com/hanpama/contentgraph/internal/events"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithInsecure()))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	sub := &subscriber{tracer: otel.Tracer("contentgraph")}
	sub.register()

	return tp.Shutdown, nil
}

type spanKey struct {
	cycle int64
	kind  string
}

type subscriber struct {
	tracer trace.Tracer
	spans  sync.Map // spanKey -> trace.Span
}

func (s *subscriber) start(ctx context.Context, kind, name string, attrs ...attribute.KeyValue) {
	rid, _ := cycleid.FromContext(ctx)
	parent := ctx
	// Cycles nest under the HTTP request span when one is open; everything
	// else nests under the cycle span.
	parents := []string{"cycle", "http"}
	if kind == "cycle" {
		parents = []string{"http"}
	}
	for _, pk := range parents {
		if v, ok := s.spans.Load(spanKey{cycle: rid, kind: pk}); ok {
			parent = trace.ContextWithSpan(ctx, v.(trace.Span))
			break
		}
	}
	_, span := s.tracer.Start(parent, name)
	span.SetAttributes(attrs...)
	s.spans.Store(spanKey{cycle: rid, kind: kind}, span)
}

func (s *subscriber) finish(ctx context.Context, kind string, err error, attrs ...attribute.KeyValue) {
	rid, _ := cycleid.FromContext(ctx)
	v, ok := s.spans.LoadAndDelete(spanKey{cycle: rid, kind: kind})
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

func (s *subscriber) register() {
	eventbus.Subscribe(func(ctx context.Context, e events.CycleStart) {
		s.start(ctx, "cycle", "pipeline.cycle",
			attribute.String("cycle.trigger", e.Trigger),
			attribute.Int("cycle.override_ids", e.IDs),
		)
	})
	eventbus.Subscribe(func(ctx context.Context, e events.CycleFinish) {
		s.finish(ctx, "cycle", e.Err,
			attribute.Int("cycle.records", e.Records),
			attribute.Int("cycle.nested", e.Nested),
		)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.SourceQueryStart) {
		s.start(ctx, "source."+e.Source, "source.query",
			attribute.String("source.name", e.Source),
			attribute.Int("source.items", e.Items),
		)
	})
	eventbus.Subscribe(func(ctx context.Context, e events.SourceQueryFinish) {
		s.finish(ctx, "source."+e.Source, e.Err,
			attribute.Int("source.returned", e.Items),
		)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.PathResolveStart) {
		s.start(ctx, "resolve", "resolve.paths",
			attribute.Int("resolve.paths", e.Paths),
		)
	})
	eventbus.Subscribe(func(ctx context.Context, e events.PathResolveFinish) {
		s.finish(ctx, "resolve", nil,
			attribute.Int("resolve.resolved", e.Resolved),
			attribute.Int("resolve.unresolved", e.Unresolved),
		)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.HTTPStart) {
		s.start(ctx, "http", "http.request",
			semconv.HTTPMethodKey.String(e.Request.Method),
			attribute.String("http.target", e.Request.URL.Path),
		)
	})
	eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
		s.finish(ctx, "http", nil,
			semconv.HTTPStatusCodeKey.Int(e.Status),
		)
	})
}
