package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/revcache"
	"github.com/unkn0wn-root/revcache/codec"
	"github.com/unkn0wn-root/revcache/internal/wire"
	"github.com/unkn0wn-root/revcache/provider"
)

var (
	ErrNoProviders   = errors.New("tasks: store needs at least one provider")
	ErrWriteRejected = errors.New("tasks: provider rejected state write")
)

// CodecMismatchError reports a stored record written by a different codec.
type CodecMismatchError struct {
	Stored, Want string
}

func (e *CodecMismatchError) Error() string {
	return fmt.Sprintf("tasks: stored state uses codec %q, store is configured for %q", e.Stored, e.Want)
}

type StoreOptions struct {
	Key    string        // default "tasks/state"
	TTL    time.Duration // <= 0: no expiry
	Logger revcache.Logger
}

// Store persists State to one or more byte providers. Providers are ordered:
// Load prefers the first one that holds a valid record.
type Store struct {
	providers []provider.Provider
	codec     codec.Codec[State]
	key       string
	ttl       time.Duration
	log       revcache.Logger
}

func NewStore(c codec.Codec[State], opts StoreOptions, providers ...provider.Provider) (*Store, error) {
	if c == nil {
		return nil, errors.New("tasks: nil codec")
	}
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	s := &Store{
		providers: providers,
		codec:     c,
		key:       coalesce(opts.Key, "tasks/state"),
		ttl:       opts.TTL,
		log:       opts.Logger,
	}
	if s.log == nil {
		s.log = revcache.NopLogger{}
	}
	return s, nil
}

// Save writes st tagged with rev to every provider concurrently.
func (s *Store) Save(ctx context.Context, rev uint64, st State) error {
	payload, err := s.codec.Encode(st)
	if err != nil {
		return fmt.Errorf("tasks: encode state: %w", err)
	}
	rec := wire.Encode(rev, s.codec.Name(), payload)

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range s.providers {
		g.Go(func() error {
			ok, err := p.Set(gctx, s.key, rec, int64(len(rec)), s.ttl)
			if err != nil {
				return fmt.Errorf("tasks: provider %d: %w", i, err)
			}
			if !ok {
				return fmt.Errorf("tasks: provider %d: %w", i, ErrWriteRejected)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.log.Debug("task state saved", revcache.Fields{"rev": rev, "bytes": len(rec), "codec": s.codec.Name()})
	return nil
}

// Load returns the first valid record. Corrupt records are deleted and the
// next provider is tried. ok is false when no provider holds a record.
func (s *Store) Load(ctx context.Context) (st State, rev uint64, ok bool, err error) {
	for i, p := range s.providers {
		raw, hit, gerr := p.Get(ctx, s.key)
		if gerr != nil {
			s.log.Warn("task state read failed", revcache.Fields{"provider": i, "err": gerr})
			err = errors.Join(err, gerr)
			continue
		}
		if !hit {
			continue
		}
		env, derr := wire.Decode(raw)
		if derr != nil {
			s.log.Warn("dropping corrupt task state", revcache.Fields{"provider": i, "err": derr})
			_ = p.Del(ctx, s.key)
			continue
		}
		if env.Codec != s.codec.Name() {
			return State{}, 0, false, &CodecMismatchError{Stored: env.Codec, Want: s.codec.Name()}
		}
		st, derr = s.codec.Decode(env.Payload)
		if derr != nil {
			s.log.Warn("dropping undecodable task state", revcache.Fields{"provider": i, "err": derr})
			_ = p.Del(ctx, s.key)
			continue
		}
		return st, env.Revision, true, nil
	}
	return State{}, 0, false, err
}

// Delete removes the record from every provider.
func (s *Store) Delete(ctx context.Context) error {
	var errs []error
	for _, p := range s.providers {
		if err := p.Del(ctx, s.key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SaveTo persists the current task set along with the revision it was read at.
func (m *Manager) SaveTo(ctx context.Context, s *Store) error {
	st, rev := m.snapshot()
	return s.Save(ctx, rev, st)
}

// RestoreFrom loads the stored task set, if any, and reports whether one was found.
func (m *Manager) RestoreFrom(ctx context.Context, s *Store) (bool, error) {
	st, _, ok, err := s.Load(ctx)
	if err != nil || !ok {
		return false, err
	}
	m.LoadState(st)
	return true, nil
}

func coalesce(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
