package genstore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type localGen struct {
	gen       atomic.Uint64
	updatedAt atomic.Int64 // unix nanos of the last bump
}

// LocalGenStore keeps generations in-process.
// Snapshots are lock-free; a key's counter is allocated on its first bump.
// Optional cleanup loop prunes long-inactive entries.
type LocalGenStore struct {
	gens sync.Map // string -> *localGen

	// floor is at least the highest generation ever pruned. Counters created
	// after a prune start from it, so a pruned key never repeats a stamp.
	floor atomic.Uint64

	bumpMu sync.Mutex // serializes BumpMany against Cleanup
	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

var _ GenStore = (*LocalGenStore)(nil)

func NewLocalGenStore(cleanupInterval, retention time.Duration) *LocalGenStore {
	s := &LocalGenStore{}
	if cleanupInterval > 0 && retention > 0 {
		s.ticker = time.NewTicker(cleanupInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.Cleanup(retention)
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

// Snapshot returns k's generation. A key without a counter reads as floor, so
// a stamp taken before a prune can only match again if nothing was bumped.
func (s *LocalGenStore) Snapshot(_ context.Context, k string) (uint64, error) {
	v, ok := s.gens.Load(k)
	if !ok {
		// Cleanup raises floor before deleting, so this load sees it
		return s.floor.Load(), nil
	}
	return v.(*localGen).gen.Load(), nil
}

func (s *LocalGenStore) SnapshotMany(ctx context.Context, ks []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(ks))
	for _, k := range ks {
		out[k], _ = s.Snapshot(ctx, k)
	}
	return out, nil
}

func (s *LocalGenStore) Bump(_ context.Context, k string) (uint64, error) {
	s.bumpMu.Lock()
	defer s.bumpMu.Unlock()
	return s.bump(k, time.Now().UnixNano()), nil
}

// BumpMany bumps keys in order under one lock so Cleanup never observes a
// half-applied batch.
func (s *LocalGenStore) BumpMany(_ context.Context, ks []string) (map[string]uint64, error) {
	now := time.Now().UnixNano()
	out := make(map[string]uint64, len(ks))
	s.bumpMu.Lock()
	for _, k := range ks {
		out[k] = s.bump(k, now)
	}
	s.bumpMu.Unlock()
	return out, nil
}

func (s *LocalGenStore) bump(k string, now int64) uint64 {
	v, ok := s.gens.Load(k)
	if !ok {
		fresh := &localGen{}
		fresh.gen.Store(s.floor.Load())
		v, _ = s.gens.LoadOrStore(k, fresh)
	}
	e := v.(*localGen)
	e.updatedAt.Store(now)
	return e.gen.Add(1)
}

// Cleanup drops counters not bumped within retention. A dropped key reads as
// floor until its next bump, which then continues above it.
func (s *LocalGenStore) Cleanup(retention time.Duration) {
	if retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-retention).UnixNano()

	s.bumpMu.Lock()
	s.gens.Range(func(k, v any) bool {
		e := v.(*localGen)
		if e.updatedAt.Load() < cutoff {
			if g := e.gen.Load(); g > s.floor.Load() {
				s.floor.Store(g)
			}
			s.gens.Delete(k)
		}
		return true
	})
	s.bumpMu.Unlock()
}

func (s *LocalGenStore) Close(_ context.Context) error {
	s.once.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			if s.ticker != nil {
				s.ticker.Stop() // stop ticker before waiting
			}
			s.wg.Wait()
		}
	})
	return nil
}
