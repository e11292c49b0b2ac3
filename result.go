package revcache

import "context"

// Result is a computed value bound to the signals that should invalidate it.
type Result[T any] struct {
	Value T
	Deps  []Signal
}

// NewResult binds v to deps.
func NewResult[T any](v T, deps ...Signal) Result[T] {
	return Result[T]{Value: v, Deps: deps}
}

// Provider computes an unparameterized value.
type Provider[T any] interface {
	Compute(ctx context.Context) (Result[T], error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc[T any] func(ctx context.Context) (Result[T], error)

func (f ProviderFunc[T]) Compute(ctx context.Context) (Result[T], error) { return f(ctx) }

// ParamProvider computes a value for one parameter.
type ParamProvider[P comparable, T any] interface {
	Compute(ctx context.Context, param P) (Result[T], error)
}

// ParamProviderFunc adapts a function to ParamProvider.
type ParamProviderFunc[P comparable, T any] func(ctx context.Context, param P) (Result[T], error)

func (f ParamProviderFunc[P, T]) Compute(ctx context.Context, p P) (Result[T], error) {
	return f(ctx, p)
}
