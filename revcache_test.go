package revcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/revcache/genstore"
)

type recHooks struct {
	NopHooks
	mu          sync.Mutex
	hits        int
	recomputes  int
	failures    int
	reentrant   int
	stampErrors int
	evicted     []any
}

func (h *recHooks) Hit(string) { h.mu.Lock(); h.hits++; h.mu.Unlock() }
func (h *recHooks) Recomputed(string, any, int, time.Duration) {
	h.mu.Lock()
	h.recomputes++
	h.mu.Unlock()
}
func (h *recHooks) ProviderFailed(string, any, error) { h.mu.Lock(); h.failures++; h.mu.Unlock() }
func (h *recHooks) Reentrant(string, any)             { h.mu.Lock(); h.reentrant++; h.mu.Unlock() }
func (h *recHooks) StampError(string, error)          { h.mu.Lock(); h.stampErrors++; h.mu.Unlock() }
func (h *recHooks) Evicted(_ string, k any)           { h.mu.Lock(); h.evicted = append(h.evicted, k); h.mu.Unlock() }

func newTestFactory(t *testing.T, hooks Hooks) (*Factory, *Tracker) {
	t.Helper()
	tr := NewLocalTracker()
	t.Cleanup(func() { _ = tr.Close(context.Background()) })
	f, err := NewFactory(tr, Options{Hooks: hooks})
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}
	return f, tr
}

func mustValue[T any](t *testing.T, f *Factory, fn ProviderFunc[T], track bool, opts ...Option) *Value[T] {
	t.Helper()
	v, err := NewValue[T](f, fn, track, opts...)
	if err != nil {
		t.Fatalf("NewValue: %v", err)
	}
	return v
}

// ==============================
// Validity / invalidation
// ==============================

func TestValueCachedUntilDependencyChanges(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFactory(t, nil)

	var dep Counter
	var calls atomic.Int32
	v := mustValue(t, f, func(context.Context) (Result[[]int], error) {
		n := calls.Add(1)
		return NewResult([]int{int(n)}, &dep), nil
	}, true)

	first, err := v.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	for i := 0; i < 5; i++ {
		got, err := v.Get(ctx)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if &got[0] != &first[0] {
			t.Fatalf("read %d returned a different value", i)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("provider called %d times, want 1", n)
	}

	dep.Inc()
	got, err := v.Get(ctx)
	if err != nil {
		t.Fatalf("Get after change: %v", err)
	}
	if got[0] != 2 || calls.Load() != 2 {
		t.Fatalf("expected recompute after change, got=%v calls=%d", got, calls.Load())
	}
}

func TestTrackedZeroDepsRecomputesEveryRead(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFactory(t, nil)

	var calls atomic.Int32
	v := mustValue(t, f, func(context.Context) (Result[int32], error) {
		return NewResult(calls.Add(1)), nil
	}, true)

	for i := int32(1); i <= 4; i++ {
		got, err := v.Get(ctx)
		if err != nil || got != i {
			t.Fatalf("read %d: got=%d err=%v", i, got, err)
		}
	}
	if v.HasUpToDateValue(ctx) {
		t.Fatalf("zero-dependency tracked value must never be up to date")
	}
}

func TestUntrackedZeroDepsCachedForever(t *testing.T) {
	ctx := context.Background()
	f, tr := newTestFactory(t, nil)

	var calls atomic.Int32
	v := mustValue(t, f, func(context.Context) (Result[string], error) {
		calls.Add(1)
		return NewResult("static"), nil
	}, false)

	for i := 0; i < 3; i++ {
		if _, err := v.Get(ctx); err != nil {
			t.Fatalf("Get: %v", err)
		}
		if err := tr.Bump(ctx, "anything"); err != nil {
			t.Fatalf("Bump: %v", err)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("provider called %d times, want 1", n)
	}
}

func TestNeverAndAlwaysSignals(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFactory(t, nil)

	var never, always atomic.Int32
	nv := mustValue(t, f, func(context.Context) (Result[int], error) {
		never.Add(1)
		return NewResult(1, Never), nil
	}, true)
	av := mustValue(t, f, func(context.Context) (Result[int], error) {
		always.Add(1)
		return NewResult(1, Never, Always), nil
	}, false)

	for i := 0; i < 3; i++ {
		_, _ = nv.Get(ctx)
		_, _ = av.Get(ctx)
	}
	if never.Load() != 1 {
		t.Fatalf("Never: provider called %d times, want 1", never.Load())
	}
	if always.Load() != 3 {
		t.Fatalf("Always: provider called %d times, want 3", always.Load())
	}
}

func TestCompositeInvalidatesWhenAnyMemberChanges(t *testing.T) {
	ctx := context.Background()
	f, tr := newTestFactory(t, nil)

	var local Counter
	var calls atomic.Int32
	v := mustValue(t, f, func(context.Context) (Result[int32], error) {
		return NewResult(calls.Add(1), All(&local, tr.Signal("file"))), nil
	}, true)

	_, _ = v.Get(ctx)
	_, _ = v.Get(ctx)
	if calls.Load() != 1 {
		t.Fatalf("calls=%d want 1", calls.Load())
	}

	if err := tr.Bump(ctx, "file"); err != nil {
		t.Fatal(err)
	}
	_, _ = v.Get(ctx)
	local.Inc()
	_, _ = v.Get(ctx)
	if calls.Load() != 3 {
		t.Fatalf("calls=%d want 3", calls.Load())
	}
}

func TestNilPinnedAndCompositeDepsAreSkipped(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFactory(t, nil)

	var calls atomic.Int32
	v := mustValue(t, f, func(context.Context) (Result[int32], error) {
		return NewResult(calls.Add(1), (*Pinned)(nil), (*Composite)(nil), Pinned{}), nil
	}, false)

	for i := 0; i < 2; i++ {
		if _, err := v.Get(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("calls=%d want 1", calls.Load())
	}
}

func TestPrunedSignalStillInvalidates(t *testing.T) {
	ctx := context.Background()
	store := genstore.NewLocalGenStore(0, 0)
	tr, err := NewTracker(store)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tr.Close(ctx) })
	f, err := NewFactory(tr, Options{})
	if err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	v := mustValue(t, f, func(context.Context) (Result[int32], error) {
		return NewResult(calls.Add(1), tr.Signal("users")), nil
	}, true)

	// captured before "users" ever moved
	_, _ = v.Get(ctx)
	if err := tr.Bump(ctx, "users"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	store.Cleanup(time.Millisecond)

	got, _ := v.Get(ctx)
	if got != 2 || calls.Load() != 2 {
		t.Fatalf("after bump and prune got=%d calls=%d want 2", got, calls.Load())
	}
	_, _ = v.Get(ctx)
	if calls.Load() != 2 {
		t.Fatalf("calls=%d want 2 once pruned state is stable", calls.Load())
	}
}

func TestRevisionMovesWithEveryBump(t *testing.T) {
	ctx := context.Background()
	f, tr := newTestFactory(t, nil)

	var calls atomic.Int32
	v := mustValue(t, f, func(context.Context) (Result[int32], error) {
		return NewResult(calls.Add(1), f.Revision()), nil
	}, true)

	_, _ = v.Get(ctx)
	_, _ = v.Get(ctx)
	for _, k := range []string{"a", "b"} {
		if err := tr.Bump(ctx, k); err != nil {
			t.Fatal(err)
		}
		_, _ = v.Get(ctx)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls=%d want 3", calls.Load())
	}
}

func TestTrackValueAddsSignalValueAsDependency(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFactory(t, nil)

	c := &Counter{}
	var calls atomic.Int32
	v := mustValue(t, f, func(context.Context) (Result[*Counter], error) {
		calls.Add(1)
		return NewResult(c), nil
	}, true)

	_, _ = v.Get(ctx)
	_, _ = v.Get(ctx)
	if calls.Load() != 1 {
		t.Fatalf("calls=%d want 1", calls.Load())
	}
	c.Inc()
	_, _ = v.Get(ctx)
	if calls.Load() != 2 {
		t.Fatalf("calls=%d want 2", calls.Load())
	}
}

func TestPinnedStampCatchesChangeDuringCompute(t *testing.T) {
	ctx := context.Background()
	f, tr := newTestFactory(t, nil)

	var calls atomic.Int32
	v := mustValue(t, f, func(ctx context.Context) (Result[int32], error) {
		obs, err := tr.Observe(ctx, "row")
		if err != nil {
			return Result[int32]{}, err
		}
		n := calls.Add(1)
		if n == 1 {
			// a writer lands between our read and the stamp capture
			if err := tr.Bump(ctx, "row"); err != nil {
				return Result[int32]{}, err
			}
		}
		return NewResult(n, obs), nil
	}, true)

	_, _ = v.Get(ctx)
	got, _ := v.Get(ctx)
	if got != 2 {
		t.Fatalf("got=%d want recompute after concurrent bump", got)
	}
	got, _ = v.Get(ctx)
	if got != 2 || calls.Load() != 2 {
		t.Fatalf("got=%d calls=%d want cached 2", got, calls.Load())
	}
}

// ==============================
// Concurrency
// ==============================

func TestSingleFlightOnEmptySlot(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFactory(t, nil)

	var calls atomic.Int32
	v := mustValue(t, f, func(context.Context) (Result[*int], error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		n := 42
		return NewResult(&n, Never), nil
	}, true)

	const n = 32
	results := make([]*int, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			p, err := v.Get(ctx)
			results[i] = p
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if c := calls.Load(); c != 1 {
		t.Fatalf("provider called %d times, want 1", c)
	}
	for i, p := range results {
		if p != results[0] {
			t.Fatalf("caller %d got a different value", i)
		}
	}
}

func TestMonotonicVisibilityUnderInvalidation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	f, _ := newTestFactory(t, nil)

	var dep Counter
	v := mustValue(t, f, func(ctx context.Context) (Result[uint64], error) {
		s, _ := dep.Stamp(ctx)
		return NewResult(s, &dep), nil
	}, true)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for gctx.Err() == nil {
			dep.Inc()
			time.Sleep(time.Millisecond)
		}
		return nil
	})
	for r := 0; r < 8; r++ {
		g.Go(func() error {
			var last uint64
			for gctx.Err() == nil {
				got, err := v.Get(context.Background())
				if err != nil {
					return err
				}
				if got < last {
					return fmt.Errorf("observed %d after %d", got, last)
				}
				last = got
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}

// ==============================
// Keyed
// ==============================

func TestParameterizedKeyIsolation(t *testing.T) {
	ctx := context.Background()
	f, tr := newTestFactory(t, nil)

	var mu sync.Mutex
	calls := map[string]int{}
	p, err := NewParameterized[string, string](f, ParamProviderFunc[string, string](func(_ context.Context, k string) (Result[string], error) {
		mu.Lock()
		calls[k]++
		n := calls[k]
		mu.Unlock()
		return NewResult(fmt.Sprintf("%s#%d", k, n), tr.Signal(k)), nil
	}), true)
	if err != nil {
		t.Fatalf("NewParameterized: %v", err)
	}

	for _, k := range []string{"x", "y"} {
		if _, err := p.Get(ctx, k); err != nil {
			t.Fatalf("Get %s: %v", k, err)
		}
	}
	if err := tr.Bump(ctx, "x"); err != nil {
		t.Fatal(err)
	}

	y, _ := p.Get(ctx, "y")
	x, _ := p.Get(ctx, "x")
	if y != "y#1" || calls["y"] != 1 {
		t.Fatalf("y recomputed: y=%q calls=%d", y, calls["y"])
	}
	if x != "x#2" || calls["x"] != 2 {
		t.Fatalf("x not recomputed exactly once: x=%q calls=%d", x, calls["x"])
	}
}

func TestParameterizedLockIsPerKey(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFactory(t, nil)

	release := make(chan struct{})
	p, err := NewParameterized[string, string](f, ParamProviderFunc[string, string](func(_ context.Context, k string) (Result[string], error) {
		if k == "slow" {
			<-release
		}
		return NewResult(k, Never), nil
	}), true)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.Get(ctx, "slow")
	}()

	fast := make(chan string, 1)
	go func() {
		v, _ := p.Get(ctx, "fast")
		fast <- v
	}()
	select {
	case v := <-fast:
		if v != "fast" {
			t.Fatalf("got %q", v)
		}
	case <-time.After(time.Second):
		t.Fatalf("computing one key blocked another")
	}
	close(release)
	<-done
}

func TestParameterizedBoundEvictsOldest(t *testing.T) {
	ctx := context.Background()
	hooks := &recHooks{}
	f, _ := newTestFactory(t, hooks)

	var calls atomic.Int32
	p, err := NewParameterized[int, int](f, ParamProviderFunc[int, int](func(_ context.Context, k int) (Result[int], error) {
		calls.Add(1)
		return NewResult(k*10, Never), nil
	}), true, WithMaxEntries(2), WithName("squares"))
	if err != nil {
		t.Fatal(err)
	}

	for _, k := range []int{1, 2, 3} {
		_, _ = p.Get(ctx, k)
	}
	if p.Len() != 2 {
		t.Fatalf("Len=%d want 2", p.Len())
	}
	if len(hooks.evicted) != 1 || hooks.evicted[0] != 1 {
		t.Fatalf("evicted=%v want [1]", hooks.evicted)
	}
	if p.HasUpToDateValue(ctx, 1) {
		t.Fatalf("evicted key must read as never computed")
	}
	got, _ := p.Get(ctx, 1)
	if got != 10 || calls.Load() != 4 {
		t.Fatalf("got=%d calls=%d", got, calls.Load())
	}

	if !p.Evict(3) || p.Evict(3) {
		t.Fatalf("Evict should report presence once")
	}
	p.Clear()
	if p.Len() != 0 {
		t.Fatalf("Len after Clear=%d", p.Len())
	}
}

func TestParameterizedEvictionKeepsInFlightKey(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFactory(t, &recHooks{})

	started := make(chan struct{})
	gate := make(chan struct{})
	var running, maxRunning, xCalls atomic.Int32
	p, err := NewParameterized[string, string](f, ParamProviderFunc[string, string](func(_ context.Context, k string) (Result[string], error) {
		if k == "x" {
			n := running.Add(1)
			for {
				m := maxRunning.Load()
				if n <= m || maxRunning.CompareAndSwap(m, n) {
					break
				}
			}
			if xCalls.Add(1) == 1 {
				close(started)
			}
			<-gate
			running.Add(-1)
		}
		return NewResult(k, Never), nil
	}), true, WithMaxEntries(1))
	if err != nil {
		t.Fatal(err)
	}

	var g errgroup.Group
	g.Go(func() error { _, err := p.Get(ctx, "x"); return err })
	<-started

	// y overflows the bound while x is still computing
	if _, err := p.Get(ctx, "y"); err != nil {
		t.Fatal(err)
	}
	if p.Evict("x") {
		t.Fatalf("Evict dropped a key that is being computed")
	}
	p.Clear()
	if p.Len() != 1 {
		t.Fatalf("Len=%d want only the in-flight key", p.Len())
	}

	g.Go(func() error { _, err := p.Get(ctx, "x"); return err })
	time.Sleep(20 * time.Millisecond)
	close(gate)
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if maxRunning.Load() != 1 || xCalls.Load() != 1 {
		t.Fatalf("x computed %d times, %d at once; want 1", xCalls.Load(), maxRunning.Load())
	}

	// idle again, so the next insert reclaims it
	_, _ = p.Get(ctx, "z")
	if p.Len() != 1 || p.HasUpToDateValue(ctx, "x") {
		t.Fatalf("Len=%d, x should be evicted once idle", p.Len())
	}
}

// ==============================
// Errors
// ==============================

func TestProviderFailureLeavesSlotUntouched(t *testing.T) {
	ctx := context.Background()
	hooks := &recHooks{}
	f, _ := newTestFactory(t, hooks)

	var stamp atomic.Uint64
	stamp.Store(1)
	dep := SignalFunc(func(context.Context) (uint64, error) { return stamp.Load(), nil })

	boom := errors.New("backend down")
	var fail atomic.Bool
	var calls atomic.Int32
	v := mustValue(t, f, func(context.Context) (Result[string], error) {
		n := calls.Add(1)
		if fail.Load() {
			return Result[string]{}, boom
		}
		return NewResult(fmt.Sprintf("v%d", n), dep), nil
	}, true)

	if got, _ := v.Get(ctx); got != "v1" {
		t.Fatalf("seed: got %q", got)
	}

	// step 1: dependency moved, provider fails -> error, slot untouched
	stamp.Store(2)
	fail.Store(true)
	_, err := v.Get(ctx)
	if !errors.Is(err, ErrProviderFailure) || !errors.Is(err, boom) {
		t.Fatalf("want provider failure wrapping cause, got %v", err)
	}
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Name != defaultValueName {
		t.Fatalf("want *ProviderError, got %T", err)
	}
	if v.HasUpToDateValue(ctx) {
		t.Fatalf("stale pre-failure value must not be served while dependency is changed")
	}

	// step 2a: dependency still changed -> next read recomputes
	fail.Store(false)
	if got, _ := v.Get(ctx); got != "v3" {
		t.Fatalf("recompute after failure: got %q", got)
	}

	// step 2b: failure while changed, then dependency reverts -> last good value
	stamp.Store(3)
	fail.Store(true)
	if _, err := v.Get(ctx); err == nil {
		t.Fatalf("expected failure")
	}
	stamp.Store(2)
	before := calls.Load()
	if got, err := v.Get(ctx); err != nil || got != "v3" {
		t.Fatalf("want last good value v3, got %q err=%v", got, err)
	}
	if calls.Load() != before {
		t.Fatalf("provider ran although the slot was valid")
	}
	if hooks.failures != 2 {
		t.Fatalf("failures hook=%d want 2", hooks.failures)
	}
}

func TestReentrantComputationIsReported(t *testing.T) {
	ctx := context.Background()
	hooks := &recHooks{}
	f, _ := newTestFactory(t, hooks)

	var v *Value[int]
	v = mustValue(t, f, func(ctx context.Context) (Result[int], error) {
		n, err := v.Get(ctx)
		return NewResult(n+1, Never), err
	}, true, WithName("self"))

	done := make(chan error, 1)
	go func() {
		_, err := v.Get(ctx)
		done <- err
	}()
	select {
	case err := <-done:
		if !errors.Is(err, ErrReentrantComputation) {
			t.Fatalf("want ErrReentrantComputation, got %v", err)
		}
		var re *ReentrantError
		if !errors.As(err, &re) || re.Name != "self" {
			t.Fatalf("want *ReentrantError for self, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("reentrant read deadlocked")
	}
	if hooks.reentrant != 1 {
		t.Fatalf("reentrant hook=%d want 1", hooks.reentrant)
	}
}

func TestParameterizedNestedKeysAreNotReentry(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFactory(t, nil)

	var fib *Parameterized[int, int]
	fib, err := NewParameterized[int, int](f, ParamProviderFunc[int, int](func(ctx context.Context, n int) (Result[int], error) {
		if n < 2 {
			return NewResult(n, Never), nil
		}
		a, err := fib.Get(ctx, n-1)
		if err != nil {
			return Result[int]{}, err
		}
		b, err := fib.Get(ctx, n-2)
		return NewResult(a+b, Never), err
	}), true)
	if err != nil {
		t.Fatal(err)
	}
	got, err := fib.Get(ctx, 20)
	if err != nil || got != 6765 {
		t.Fatalf("fib(20)=%d err=%v", got, err)
	}
}

func TestStampErrorTreatedAsChanged(t *testing.T) {
	ctx := context.Background()
	hooks := &recHooks{}
	f, _ := newTestFactory(t, hooks)

	var broken atomic.Bool
	dep := SignalFunc(func(context.Context) (uint64, error) {
		if broken.Load() {
			return 0, errors.New("redis unreachable")
		}
		return 7, nil
	})
	var calls atomic.Int32
	v := mustValue(t, f, func(context.Context) (Result[int32], error) {
		return NewResult(calls.Add(1), dep), nil
	}, true)

	_, _ = v.Get(ctx)
	broken.Store(true)
	got, err := v.Get(ctx)
	if err != nil {
		t.Fatalf("stamp failure must not fail the read: %v", err)
	}
	if got != 2 {
		t.Fatalf("got=%d want uncached recompute", got)
	}
	if v.HasUpToDateValue(ctx) {
		t.Fatalf("value whose stamps could not be captured must not be cached")
	}
	if hooks.stampErrors == 0 {
		t.Fatalf("stamp errors not reported")
	}
}

func TestInvalidConfiguration(t *testing.T) {
	f, _ := newTestFactory(t, nil)
	p := ProviderFunc[int](func(context.Context) (Result[int], error) { return NewResult(1), nil })

	if _, err := NewFactory(nil, Options{}); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("nil tracker: %v", err)
	}
	if _, err := NewTracker(nil); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("nil store: %v", err)
	}
	if _, err := NewValue[int](nil, p, true); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("nil factory: %v", err)
	}
	if _, err := NewValue[int](f, nil, true); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("nil provider: %v", err)
	}
	if _, err := NewValue[int](f, p, false, RequireDependencies()); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("require deps without tracking: %v", err)
	}
	if _, err := NewParameterized[int, int](f, nil, true); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("nil param provider: %v", err)
	}
	pp := ParamProviderFunc[int, int](func(context.Context, int) (Result[int], error) { return NewResult(1), nil })
	if _, err := NewParameterized[int, int](f, pp, true, WithMaxEntries(-1)); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("negative bound: %v", err)
	}

	v, err := NewValue[int](f, p, true, RequireDependencies())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Get(context.Background()); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("zero deps under RequireDependencies: %v", err)
	}
}

func TestPeekAndDrop(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFactory(t, nil)

	var calls atomic.Int32
	v := mustValue(t, f, func(context.Context) (Result[int32], error) {
		return NewResult(calls.Add(1), Never), nil
	}, true)

	if _, ok := v.Peek(ctx); ok {
		t.Fatalf("Peek on empty slot")
	}
	_, _ = v.Get(ctx)
	if got, ok := v.Peek(ctx); !ok || got != 1 {
		t.Fatalf("Peek=%d,%v", got, ok)
	}
	v.Drop()
	if got, _ := v.Get(ctx); got != 2 {
		t.Fatalf("Get after Drop=%d want 2", got)
	}
}
