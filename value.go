package revcache

import "context"

// Value is a memoized unparameterized value. Safe for concurrent use.
type Value[T any] struct {
	eng      *engine
	provider Provider[T]
	slot     slot[T]
}

// NewValue creates a Value computed by p.
//
// trackValue selects what a result with no dependencies means: true, the
// value is recomputed on every read; false, it is cached for the lifetime of
// the Value. With trackValue, a computed value that is itself a Signal also
// becomes a dependency.
func NewValue[T any](f *Factory, p Provider[T], trackValue bool, opts ...Option) (*Value[T], error) {
	if f == nil {
		return nil, invalidConfig("factory is required")
	}
	if p == nil {
		return nil, invalidConfig("provider is required")
	}
	cfg, err := buildConfig(defaultValueName, trackValue, opts)
	if err != nil {
		return nil, err
	}
	return &Value[T]{
		eng:      f.engine(cfg.name, trackValue, cfg.requireDeps),
		provider: p,
	}, nil
}

// Get returns the cached value, recomputing it if any dependency changed.
// Provider errors are returned as *ProviderError and leave the cache as it was.
//
// A provider that reads v must do so through the ctx it was given. Reentry is
// tracked on the context, so a read on an unrelated context blocks forever
// instead of failing with *ReentrantError.
func (v *Value[T]) Get(ctx context.Context) (T, error) {
	return get(ctx, v.eng, &v.slot, nil, v.provider.Compute)
}

// Peek returns the cached value only if it is up to date. It never computes.
func (v *Value[T]) Peek(ctx context.Context) (T, bool) {
	return peek(ctx, v.eng, &v.slot)
}

// HasUpToDateValue reports whether Get would return without computing.
func (v *Value[T]) HasUpToDateValue(ctx context.Context) bool {
	_, ok := v.Peek(ctx)
	return ok
}

// Drop forgets the cached value. The next Get computes.
func (v *Value[T]) Drop() {
	v.slot.cur.Store(nil)
}
