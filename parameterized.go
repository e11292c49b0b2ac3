package revcache

import (
	"container/list"
	"context"
	"errors"
	"sync"
)

// table maps parameters to private slots. Lookups are lock-free; mu is only
// taken to insert into a bounded table or to evict.
type table[P comparable, T any] struct {
	m   sync.Map // P -> *slot[T]
	max int

	mu    sync.Mutex
	fifo  *list.List // insertion order of keys, bounded tables only
	order map[P]*list.Element
}

func newTable[P comparable, T any](max int) *table[P, T] {
	t := &table[P, T]{max: max}
	if max > 0 {
		t.fifo = list.New()
		t.order = make(map[P]*list.Element)
	}
	return t
}

func (t *table[P, T]) load(p P) (*slot[T], bool) {
	v, ok := t.m.Load(p)
	if !ok {
		return nil, false
	}
	return v.(*slot[T]), true
}

// slotFor returns p's slot, creating it if needed, and the keys evicted to
// make room. Keys whose value is being computed are passed over, so a bounded
// table may run over max until they finish.
func (t *table[P, T]) slotFor(p P) (*slot[T], []P) {
	if s, ok := t.load(p); ok {
		return s, nil
	}
	if t.max <= 0 {
		v, _ := t.m.LoadOrStore(p, &slot[T]{})
		return v.(*slot[T]), nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.load(p); ok {
		return s, nil
	}
	s := &slot[T]{}
	t.m.Store(p, s)
	t.order[p] = t.fifo.PushBack(p)

	var evicted []P
	for el := t.fifo.Front(); el != nil && t.fifo.Len() > t.max; {
		next := el.Next()
		if k := el.Value.(P); k != p && t.retire(k) {
			t.fifo.Remove(el)
			delete(t.order, k)
			evicted = append(evicted, k)
		}
		el = next
	}
	return s, evicted
}

// retire drops p's slot unless a computation holds it. Callers already
// waiting on the dropped slot see retired and look p up again.
func (t *table[P, T]) retire(p P) bool {
	s, ok := t.load(p)
	if !ok || !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()
	if s.retired {
		return false
	}
	s.retired = true
	t.m.CompareAndDelete(p, s)
	return true
}

func (t *table[P, T]) evict(p P) bool {
	if t.max <= 0 {
		return t.retire(p)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.retire(p) {
		return false
	}
	if el, ok := t.order[p]; ok {
		t.fifo.Remove(el)
		delete(t.order, p)
	}
	return true
}

func (t *table[P, T]) clear() {
	if t.max > 0 {
		t.mu.Lock()
		defer t.mu.Unlock()
	}
	t.m.Range(func(k, _ any) bool {
		p := k.(P)
		if t.retire(p) && t.max > 0 {
			if el, ok := t.order[p]; ok {
				t.fifo.Remove(el)
				delete(t.order, p)
			}
		}
		return true
	})
}

func (t *table[P, T]) len() int {
	n := 0
	t.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Parameterized is a memoized value per parameter. Each parameter has its own
// slot, dependencies and single-flight lock; computing one key never blocks
// another. Safe for concurrent use.
type Parameterized[P comparable, T any] struct {
	eng      *engine
	provider ParamProvider[P, T]
	tab      *table[P, T]
}

// NewParameterized creates a Parameterized computed by p. trackValue has the
// same meaning as in NewValue, applied per key.
func NewParameterized[P comparable, T any](f *Factory, p ParamProvider[P, T], trackValue bool, opts ...Option) (*Parameterized[P, T], error) {
	if f == nil {
		return nil, invalidConfig("factory is required")
	}
	if p == nil {
		return nil, invalidConfig("provider is required")
	}
	cfg, err := buildConfig(defaultParameterizedName, trackValue, opts)
	if err != nil {
		return nil, err
	}
	return &Parameterized[P, T]{
		eng:      f.engine(cfg.name, trackValue, cfg.requireDeps),
		provider: p,
		tab:      newTable[P, T](cfg.maxEntries),
	}, nil
}

// Get returns the cached value for param, recomputing it if any of its
// dependencies changed. At most one provider call per key runs at a time.
//
// A provider that reads its own key must do so through the ctx it was given;
// a read on an unrelated context is not recognized as reentry and blocks
// forever.
func (c *Parameterized[P, T]) Get(ctx context.Context, param P) (T, error) {
	compute := func(ctx context.Context) (Result[T], error) {
		return c.provider.Compute(ctx, param)
	}
	for {
		s, evicted := c.tab.slotFor(param)
		for _, k := range evicted {
			c.eng.hooks.Evicted(c.eng.name, k)
		}
		v, err := get(ctx, c.eng, s, param, compute)
		if !errors.Is(err, errRetired) {
			return v, err
		}
	}
}

// Peek returns param's cached value only if it is up to date.
func (c *Parameterized[P, T]) Peek(ctx context.Context, param P) (T, bool) {
	s, ok := c.tab.load(param)
	if !ok {
		var zero T
		return zero, false
	}
	return peek(ctx, c.eng, s)
}

// HasUpToDateValue reports whether Get(param) would return without computing.
func (c *Parameterized[P, T]) HasUpToDateValue(ctx context.Context, param P) bool {
	_, ok := c.Peek(ctx, param)
	return ok
}

// Evict forgets param's slot. It reports whether the key was dropped; a key
// whose value is being computed stays.
func (c *Parameterized[P, T]) Evict(param P) bool { return c.tab.evict(param) }

// Clear forgets every key not being computed, e.g. under memory pressure.
func (c *Parameterized[P, T]) Clear() { c.tab.clear() }

// Len returns the number of keys with a slot.
func (c *Parameterized[P, T]) Len() int { return c.tab.len() }
