package ristretto

import (
	"context"
	"testing"
)

func TestProviderRoundTripAndDelete(t *testing.T) {
	ctx := context.Background()
	p, err := New(Config{NumCounters: 1000, MaxCost: 100, BufferItems: 64})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = p.Close(ctx) })

	in := []byte("state")
	if ok, err := p.Set(ctx, "k", in, 1, 0); err != nil || !ok {
		t.Fatalf("Set ok=%v err=%v", ok, err)
	}
	in[0] = 'X' // caller mutation must not leak into the store

	got, ok, err := p.Get(ctx, "k")
	if err != nil || !ok || string(got) != "state" {
		t.Fatalf("Get=%q ok=%v err=%v", got, ok, err)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after Del")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for zero config")
	}
}
