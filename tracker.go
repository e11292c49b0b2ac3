package revcache

import (
	"context"

	gen "github.com/unkn0wn-root/revcache/genstore"
)

// revisionKey names the generation bumped alongside every Tracker.Bump.
const revisionKey = "\x00revision"

// Tracker is an invalidation context: named modification signals backed by a
// generation store, plus one global revision that moves whenever any of them
// is bumped.
type Tracker struct {
	store gen.GenStore
}

// NewTracker binds a tracker to store.
func NewTracker(store gen.GenStore) (*Tracker, error) {
	if store == nil {
		return nil, invalidConfig("gen store is required")
	}
	return &Tracker{store: store}, nil
}

// NewLocalTracker returns a tracker over an in-process store without cleanup.
func NewLocalTracker() *Tracker {
	return &Tracker{store: gen.NewLocalGenStore(0, 0)}
}

type keySignal struct {
	store gen.GenStore
	key   string
}

func (s keySignal) Stamp(ctx context.Context) (uint64, error) {
	return s.store.Snapshot(ctx, s.key)
}

// Signal returns the modification signal for key.
func (t *Tracker) Signal(key string) Signal { return keySignal{store: t.store, key: key} }

// Observe pins key's signal to its current generation. Call it before reading
// the data key guards.
func (t *Tracker) Observe(ctx context.Context, key string) (Pinned, error) {
	return Pin(ctx, t.Signal(key))
}

// Revision returns the signal that changes on every Bump.
func (t *Tracker) Revision() Signal { return keySignal{store: t.store, key: revisionKey} }

// Bump marks keys as modified. The global revision moves with them in the
// same store call.
func (t *Tracker) Bump(ctx context.Context, keys ...string) error {
	all := make([]string, 0, len(keys)+1)
	all = append(all, keys...)
	all = append(all, revisionKey)
	_, err := t.store.BumpMany(ctx, all)
	return err
}

// Close releases the underlying store.
func (t *Tracker) Close(ctx context.Context) error { return t.store.Close(ctx) }
