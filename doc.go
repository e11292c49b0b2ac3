// Package revcache implements dependency-tracked memoized values. A value is
// computed lazily by a Provider, stored together with the stamps of the
// modification signals it declared, and recomputed only when one of those
// stamps has moved. Reads of an up-to-date value never block; recomputation is
// single-flight per slot.
//
// Components:
//   - Signal: a source of monotonically non-decreasing uint64 stamps
//     (Counter, Tracker signals backed by a genstore.GenStore, Never, Always, All).
//   - Provider / ParamProvider: user code returning a Result (value + deps).
//   - Value / Parameterized: read-through engines over one slot or a keyed table.
//   - Factory: binds engines to one Tracker (the invalidation context).
//
// Usage:
//
//	tr := revcache.NewLocalTracker()
//	f, _ := revcache.NewFactory(tr, revcache.Options{})
//	names, _ := revcache.NewValue(f, revcache.ProviderFunc[[]string](func(ctx context.Context) (revcache.Result[[]string], error) {
//	    obs, err := tr.Observe(ctx, "users") // before reading the source
//	    if err != nil {
//	        return revcache.Result[[]string]{}, err
//	    }
//	    v, err := loadNames(ctx)
//	    return revcache.NewResult(v, obs), err
//	}), true)
//	v, err := names.Get(ctx)       // computes
//	v, err = names.Get(ctx)        // cached
//	_ = tr.Bump(ctx, "users")      // invalidates
//
// Providers must pass the context they receive to nested Get calls; that is how
// a provider reading its own slot is detected and reported as
// ErrReentrantComputation instead of deadlocking.
package revcache
