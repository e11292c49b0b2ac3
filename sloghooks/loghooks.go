// Package sloghooks reports revcache events through log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/unkn0wn-root/revcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	RecomputeEvery uint64
	// Hits are only logged when set; they fire on every cached read.
	LogHits bool
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
	// WarnsPerSecond caps provider-failure and stamp-error lines, which come
	// in bursts when a shared generation store is down. 0 = unlimited.
	WarnsPerSecond float64
	WarnBurst      int // default 1
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	recomputeCtr atomic.Uint64
	warns        *rate.Limiter
	suppressed   atomic.Uint64
}

var _ revcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	h := &Hooks{l: l, opts: opts}
	if opts.WarnsPerSecond > 0 {
		h.warns = rate.NewLimiter(rate.Limit(opts.WarnsPerSecond), max(opts.WarnBurst, 1))
	}
	return h
}

// Suppressed is the number of warnings dropped by the rate limit.
func (h *Hooks) Suppressed() uint64 { return h.suppressed.Load() }

func (h *Hooks) allowWarn() bool {
	if h.warns == nil || h.warns.Allow() {
		return true
	}
	h.suppressed.Add(1)
	return false
}

func (h *Hooks) redact(k any) string {
	if k == nil {
		return ""
	}
	s := fmt.Sprint(k)
	if h.opts.Redact != nil {
		return h.opts.Redact(s)
	}
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Hit(name string) {
	if h.l == nil || !h.opts.LogHits {
		return
	}
	h.l.Debug("revcache.hit", "name", name)
}

func (h *Hooks) Recomputed(name string, key any, deps int, took time.Duration) {
	if h.l == nil || !sample(h.opts.RecomputeEvery, &h.recomputeCtr) {
		return
	}
	h.l.Debug("revcache.recomputed",
		"name", name,
		"key", h.redact(key),
		"deps", deps,
		"took", took)
}

func (h *Hooks) ProviderFailed(name string, key any, err error) {
	if h.l == nil || !h.allowWarn() {
		return
	}
	h.l.Warn("revcache.provider_failed",
		"name", name,
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) Reentrant(name string, key any) {
	if h.l == nil {
		return
	}
	h.l.Error("revcache.reentrant_computation",
		"name", name,
		"key", h.redact(key))
}

func (h *Hooks) StampError(name string, err error) {
	if h.l == nil || !h.allowWarn() {
		return
	}
	h.l.Warn("revcache.stamp_error",
		"name", name,
		"err", err)
}

func (h *Hooks) Evicted(name string, key any) {
	if h.l == nil {
		return
	}
	h.l.Debug("revcache.evicted",
		"name", name,
		"key", h.redact(key))
}
