package revcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// engine holds what Value and Parameterized share: configuration and the
// read-through protocol over a slot.
type engine struct {
	name        string
	track       bool
	requireDeps bool
	log         Logger
	hooks       Hooks
}

type reading struct {
	sig   Signal
	stamp uint64
}

// snapshot is immutable once published.
// always: never valid. No readings and !always: valid forever.
type snapshot[T any] struct {
	value    T
	readings []reading
	always   bool
}

// slot is one cached value. cur is read without locking; mu serializes
// recomputation, so publishes to cur happen one at a time.
type slot[T any] struct {
	cur atomic.Pointer[snapshot[T]]
	mu  sync.Mutex

	// retired is set under mu once a table dropped the slot. A retired slot
	// never computes; its key has moved to a fresh slot.
	retired bool
}

// errRetired tells a keyed caller to look its slot up again.
var errRetired = errors.New("revcache: slot retired")

// frame marks a context as belonging to the computation of one slot.
type frame struct {
	slot   any
	parent *frame
}

type frameKey struct{}

func computing(ctx context.Context, s any) bool {
	f, _ := ctx.Value(frameKey{}).(*frame)
	for ; f != nil; f = f.parent {
		if f.slot == s {
			return true
		}
	}
	return false
}

func enter(ctx context.Context, s any) context.Context {
	parent, _ := ctx.Value(frameKey{}).(*frame)
	return context.WithValue(ctx, frameKey{}, &frame{slot: s, parent: parent})
}

func (e *engine) fields(key any) Fields {
	f := Fields{"name": e.name}
	if key != nil {
		f = f.with("key", key)
	}
	return f
}

func valid[T any](ctx context.Context, e *engine, snap *snapshot[T]) bool {
	if snap == nil || snap.always {
		return false
	}
	for _, r := range snap.readings {
		st, err := r.sig.Stamp(ctx)
		if err != nil {
			// unknown state: recompute rather than risk a stale value
			e.hooks.StampError(e.name, err)
			e.log.Warn("dependency stamp read failed; treating as changed", Fields{"name": e.name, "err": err})
			return false
		}
		if st != r.stamp {
			return false
		}
	}
	return true
}

// get is the read-through protocol shared by Value and Parameterized.
// Reentry is recognized only through the context handed to the provider; a
// nested read on an unrelated context waits on s.mu forever.
func get[T any](ctx context.Context, e *engine, s *slot[T], key any, compute func(context.Context) (Result[T], error)) (T, error) {
	var zero T

	if snap := s.cur.Load(); valid(ctx, e, snap) {
		e.hooks.Hit(e.name)
		return snap.value, nil
	}

	if computing(ctx, s) {
		e.hooks.Reentrant(e.name, key)
		e.log.Error("provider requested the value it is computing", e.fields(key))
		return zero, &ReentrantError{Name: e.name, Key: key}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retired {
		return zero, errRetired
	}

	// someone else may have published while we waited
	if snap := s.cur.Load(); valid(ctx, e, snap) {
		e.hooks.Hit(e.name)
		return snap.value, nil
	}

	start := time.Now()
	res, err := compute(enter(ctx, s))
	if err != nil {
		e.hooks.ProviderFailed(e.name, key, err)
		e.log.Debug("provider failed; slot unchanged", e.fields(key).with("err", err))
		return zero, &ProviderError{Name: e.name, Key: key, Err: err}
	}

	snap, err := capture(ctx, e, res)
	if err != nil {
		if errors.Is(err, ErrInvalidConfiguration) {
			return zero, err
		}
		// value is fine but cannot be validated later: hand it out uncached
		s.cur.Store(nil)
		e.hooks.StampError(e.name, err)
		e.log.Warn("dependency stamp capture failed; value not cached", e.fields(key).with("err", err))
		return res.Value, nil
	}

	s.cur.Store(snap)
	e.hooks.Recomputed(e.name, key, len(snap.readings), time.Since(start))
	return snap.value, nil
}

// capture reads stamps for res's dependencies. It runs after the provider
// returned, so the readings are never older than the value.
func capture[T any](ctx context.Context, e *engine, res Result[T]) (*snapshot[T], error) {
	deps := res.Deps
	if e.track {
		if sig, ok := any(res.Value).(Signal); ok {
			deps = append(deps[:len(deps):len(deps)], sig)
		}
	}

	snap := &snapshot[T]{value: res.Value}
	if len(deps) == 0 {
		if e.requireDeps {
			return nil, invalidConfig("%s: provider declared no dependencies", e.name)
		}
		snap.always = e.track
		return snap, nil
	}
	if err := collect(ctx, deps, snap); err != nil {
		return nil, err
	}
	if snap.always {
		snap.readings = nil
	}
	return snap, nil
}

func collect[T any](ctx context.Context, deps []Signal, snap *snapshot[T]) error {
	for _, d := range deps {
		if snap.always {
			return nil
		}
		switch s := d.(type) {
		case nil, neverChanges:
		case alwaysChanged:
			snap.always = true
		case *Composite:
			if s == nil {
				continue
			}
			if err := collect(ctx, s.members, snap); err != nil {
				return err
			}
		case Pinned:
			if s.Signal != nil {
				snap.readings = append(snap.readings, reading{sig: s.Signal, stamp: s.Observed})
			}
		case *Pinned:
			if s != nil && s.Signal != nil {
				snap.readings = append(snap.readings, reading{sig: s.Signal, stamp: s.Observed})
			}
		default:
			st, err := s.Stamp(ctx)
			if err != nil {
				return err
			}
			snap.readings = append(snap.readings, reading{sig: s, stamp: st})
		}
	}
	return nil
}

func peek[T any](ctx context.Context, e *engine, s *slot[T]) (T, bool) {
	if snap := s.cur.Load(); valid(ctx, e, snap) {
		return snap.value, true
	}
	var zero T
	return zero, false
}
