// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/revcache"
//	asynchook "github.com/unkn0wn-root/revcache/hooks/async"
//	"github.com/unkn0wn-root/revcache/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    RecomputeEvery: 10, // sample logs: ~every 10th recompute
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	f, _ := revcache.NewFactory(tracker, revcache.Options{Hooks: hooks})
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/revcache"
)

// Hooks moves event delivery off the read path. Events are dropped when the
// queue is full; Dropped counts them.
type Hooks struct {
	inner   revcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	closed  atomic.Bool
	dropped atomic.Uint64
}

var _ revcache.Hooks = (*Hooks)(nil)

func New(inner revcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events raised after
// Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.closed.Store(true)
		close(h.q)
		h.wg.Wait()
	})
}

// Dropped returns the number of events lost to a full or closed queue.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	if h.closed.Load() {
		h.dropped.Add(1)
		return
	}
	defer func() {
		// lost a race with Close: send on closed channel
		if recover() != nil {
			h.dropped.Add(1)
		}
	}()
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) Hit(name string)                    { h.try(func() { h.inner.Hit(name) }) }
func (h *Hooks) Reentrant(name string, key any)     { h.try(func() { h.inner.Reentrant(name, key) }) }
func (h *Hooks) StampError(name string, err error)  { h.try(func() { h.inner.StampError(name, err) }) }
func (h *Hooks) Evicted(name string, key any)       { h.try(func() { h.inner.Evicted(name, key) }) }
func (h *Hooks) ProviderFailed(name string, key any, err error) {
	h.try(func() { h.inner.ProviderFailed(name, key, err) })
}
func (h *Hooks) Recomputed(name string, key any, deps int, took time.Duration) {
	h.try(func() { h.inner.Recomputed(name, key, deps, took) })
}
