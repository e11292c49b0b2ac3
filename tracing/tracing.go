// Package tracing wraps revcache providers so every recomputation is an
// OpenTelemetry span. Cached reads never reach the provider and so produce no
// spans.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/unkn0wn-root/revcache"
)

const instrumentation = "github.com/unkn0wn-root/revcache/tracing"

// Config selects the tracer. A nil *Config disables tracing.
type Config struct {
	// TracerProvider supplies the Tracer. When nil the global
	// otel.GetTracerProvider() is used.
	TracerProvider trace.TracerProvider
	// KeyAttribute renders the parameter of keyed providers as the
	// "revcache.key" attribute. Nil omits keys, which may be sensitive.
	KeyAttribute func(key any) string
}

func (c *Config) tracer() trace.Tracer {
	tp := c.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(instrumentation)
}

// Provider traces p under name.
func Provider[T any](cfg *Config, name string, p revcache.Provider[T]) revcache.Provider[T] {
	if cfg == nil {
		return p
	}
	return revcache.ProviderFunc[T](func(ctx context.Context) (revcache.Result[T], error) {
		ctx, span := start(ctx, cfg, name, nil, false)
		defer span.End()
		res, err := p.Compute(ctx)
		finish(span, len(res.Deps), err)
		return res, err
	})
}

// ParamProvider traces p under name.
func ParamProvider[P comparable, T any](cfg *Config, name string, p revcache.ParamProvider[P, T]) revcache.ParamProvider[P, T] {
	if cfg == nil {
		return p
	}
	return revcache.ParamProviderFunc[P, T](func(ctx context.Context, param P) (revcache.Result[T], error) {
		ctx, span := start(ctx, cfg, name, param, true)
		defer span.End()
		res, err := p.Compute(ctx, param)
		finish(span, len(res.Deps), err)
		return res, err
	})
}

func start(ctx context.Context, cfg *Config, name string, key any, keyed bool) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("revcache.name", name)}
	if keyed && cfg.KeyAttribute != nil {
		attrs = append(attrs, attribute.String("revcache.key", cfg.KeyAttribute(key)))
	}
	return cfg.tracer().Start(ctx, fmt.Sprintf("revcache.compute %s", name),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...))
}

func finish(span trace.Span, deps int, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(attribute.Int("revcache.deps", deps))
	span.SetStatus(codes.Ok, "")
}
