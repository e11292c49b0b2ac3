package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/unkn0wn-root/revcache"
)

func newTestConfig(t *testing.T) (*Config, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return &Config{TracerProvider: tp, KeyAttribute: func(k any) string { return k.(string) }}, rec
}

func attr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestOnlyRecomputationsAreTraced(t *testing.T) {
	cfg, rec := newTestConfig(t)
	f, err := revcache.NewFactory(revcache.NewLocalTracker(), revcache.Options{})
	if err != nil {
		t.Fatal(err)
	}
	var ctr revcache.Counter
	p := Provider[int](cfg, "answer", revcache.ProviderFunc[int](func(context.Context) (revcache.Result[int], error) {
		return revcache.NewResult(42, &ctr), nil
	}))
	v, err := revcache.NewValue[int](f, p, true)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if got, err := v.Get(ctx); err != nil || got != 42 {
			t.Fatalf("Get=%d err=%v", got, err)
		}
	}
	ctr.Inc()
	if _, err := v.Get(ctx); err != nil {
		t.Fatal(err)
	}

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("spans=%d want 2", len(spans))
	}
	s := spans[0]
	if s.Name() != "revcache.compute answer" || s.Status().Code != codes.Ok {
		t.Fatalf("span %q status %v", s.Name(), s.Status())
	}
	if d, ok := attr(s.Attributes(), "revcache.deps"); !ok || d.AsInt64() != 1 {
		t.Fatalf("deps attribute=%v ok=%v", d, ok)
	}
}

func TestParamProviderRecordsKeyAndError(t *testing.T) {
	cfg, rec := newTestConfig(t)
	boom := errors.New("boom")
	p := ParamProvider[string, int](cfg, "lookup", revcache.ParamProviderFunc[string, int](func(context.Context, string) (revcache.Result[int], error) {
		return revcache.Result[int]{}, boom
	}))

	if _, err := p.Compute(context.Background(), "k1"); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans=%d want 1", len(spans))
	}
	s := spans[0]
	if s.Status().Code != codes.Error {
		t.Fatalf("status=%v", s.Status())
	}
	if k, ok := attr(s.Attributes(), "revcache.key"); !ok || k.AsString() != "k1" {
		t.Fatalf("key attribute=%v ok=%v", k, ok)
	}
	if len(s.Events()) == 0 {
		t.Fatalf("expected recorded error event")
	}
}

func TestNilConfigIsPassthrough(t *testing.T) {
	inner := revcache.ProviderFunc[int](func(context.Context) (revcache.Result[int], error) {
		return revcache.NewResult(1), nil
	})
	p := Provider[int](nil, "x", inner)
	if _, ok := p.(revcache.ProviderFunc[int]); !ok {
		t.Fatalf("expected the inner provider back")
	}
}
