package revcache

import (
	"context"
	"sync/atomic"
)

// Signal is a modification signal: a source of stamps that never decrease.
// Two readings of the same signal are equal iff nothing changed in between.
// Readings of different signals are never compared.
type Signal interface {
	Stamp(ctx context.Context) (uint64, error)
}

// SignalFunc adapts a function to Signal.
type SignalFunc func(ctx context.Context) (uint64, error)

func (f SignalFunc) Stamp(ctx context.Context) (uint64, error) { return f(ctx) }

type neverChanges struct{}

func (neverChanges) Stamp(context.Context) (uint64, error) { return 0, nil }

type alwaysChanged struct{}

// Stamp is never consulted by the engine; Always is recognized by identity.
func (alwaysChanged) Stamp(context.Context) (uint64, error) { return 0, nil }

var (
	// Never makes a dependent value permanently valid once computed.
	Never Signal = neverChanges{}
	// Always forces recomputation on every read of a dependent value.
	Always Signal = alwaysChanged{}
)

// Counter is an in-process modification counter. The zero value is ready to use.
type Counter struct {
	n atomic.Uint64
}

var _ Signal = (*Counter)(nil)

// Inc records a modification and returns the new stamp.
func (c *Counter) Inc() uint64 { return c.n.Add(1) }

func (c *Counter) Stamp(context.Context) (uint64, error) { return c.n.Load(), nil }

// Composite is a set of signals that is unchanged only while every member is
// unchanged. Adding a member can only make dependents invalidate more often.
type Composite struct {
	members []Signal
}

// All combines signals with AND semantics. Nil members are dropped.
func All(signals ...Signal) *Composite {
	c := &Composite{members: make([]Signal, 0, len(signals))}
	for _, s := range signals {
		if s != nil {
			c.members = append(c.members, s)
		}
	}
	return c
}

// Members returns the member signals.
func (c *Composite) Members() []Signal { return append([]Signal(nil), c.members...) }

// Stamp sums member stamps. Members never decrease, so the sum moves iff some
// member moved. A composite holding Always has no meaningful stamp; the engine
// flattens composites and never calls this.
func (c *Composite) Stamp(ctx context.Context) (uint64, error) {
	var sum uint64
	for _, m := range c.members {
		s, err := m.Stamp(ctx)
		if err != nil {
			return 0, err
		}
		sum += s
	}
	return sum, nil
}

// Pinned is a signal whose captured reading was taken before the provider
// computed its value. If the source moves while the value is being computed,
// the slot is stale on its very next read.
type Pinned struct {
	Signal
	Observed uint64
}

// Pin observes sig now and returns it pinned to that stamp.
func Pin(ctx context.Context, sig Signal) (Pinned, error) {
	s, err := sig.Stamp(ctx)
	if err != nil {
		return Pinned{}, err
	}
	return Pinned{Signal: sig, Observed: s}, nil
}
