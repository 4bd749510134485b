package otel

import (
	"context"
	"sync"

	eventbus "github.com/ModernAnimal/graphql-core/internal/eventbus"
	events "github.com/ModernAnimal/graphql-core/internal/events"
	reqid "github.com/ModernAnimal/graphql-core/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
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

	sub := &subscriber{tracer: otel.Tracer("graphql-core")}
	sub.register()

	return tp.Shutdown, nil
}

type subscriber struct {
	tracer    trace.Tracer
	execSpans sync.Map // rid -> trace.Span
}

func (s *subscriber) register() {
	eventbus.Subscribe(func(ctx context.Context, e events.ExecutionStart) {
		rid, _ := reqid.FromContext(ctx)
		_, span := s.tracer.Start(ctx, "graphql.execute")
		span.SetAttributes(
			attribute.String("graphql.operation.name", e.OperationName),
			attribute.String("graphql.operation.type", e.OperationType),
		)
		s.execSpans.Store(rid, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.ExecutionFinish) {
		rid, _ := reqid.FromContext(ctx)
		v, ok := s.execSpans.LoadAndDelete(rid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(attribute.Int("graphql.error_count", e.ErrorCount))
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.PatchDelivered) {
		rid, _ := reqid.FromContext(ctx)
		parent := ctx
		if v, ok := s.execSpans.Load(rid); ok {
			parent = trace.ContextWithSpan(ctx, v.(trace.Span))
		}
		_, span := s.tracer.Start(parent, "graphql.patch")
		span.SetAttributes(
			attribute.String("graphql.patch.label", e.Label),
			attribute.String("graphql.patch.path", e.Path),
			attribute.Bool("graphql.patch.has_next", e.HasNext),
		)
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.SubscriptionEvent) {
		_, span := s.tracer.Start(ctx, "graphql.subscription.event")
		span.SetAttributes(
			attribute.String("graphql.operation.name", e.OperationName),
			attribute.Int("graphql.error_count", e.ErrorCount),
		)
		span.End()
	})
}
