package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestRecomputedIsSampled(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := New(l, Options{RecomputeEvery: 3})

	for i := 0; i < 6; i++ {
		h.Recomputed("users", "u:1", 1, time.Millisecond)
	}
	if n := strings.Count(buf.String(), "revcache.recomputed"); n != 2 {
		t.Fatalf("logged %d recomputes, want 2", n)
	}
}

func TestKeysAreRedacted(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	h := New(l, Options{})

	h.ProviderFailed("users", "alice@example.com", errors.New("boom"))
	out := buf.String()
	if strings.Contains(out, "alice@example.com") {
		t.Fatalf("key leaked: %s", out)
	}
	if !strings.Contains(out, "revcache.provider_failed") || !strings.Contains(out, "boom") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestHitsOffByDefault(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	New(l, Options{}).Hit("users")
	if buf.Len() != 0 {
		t.Fatalf("hit logged without LogHits: %s", buf.String())
	}
}

func TestWarningsAreRateLimited(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	h := New(l, Options{WarnsPerSecond: 0.001, WarnBurst: 2})

	for i := 0; i < 5; i++ {
		h.StampError("users", errors.New("redis down"))
	}
	if n := strings.Count(buf.String(), "revcache.stamp_error"); n != 2 {
		t.Fatalf("logged %d stamp errors, want 2", n)
	}
	if h.Suppressed() != 3 {
		t.Fatalf("Suppressed=%d want 3", h.Suppressed())
	}
}
