package genstore

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// newRedisStore needs a live server at REDIS_ADDR; without one the test is skipped.
func newRedisStore(t *testing.T) *RedisGenStore {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}
	ns := "test-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	s := NewRedisGenStoreWithTTL(rdb, ns, time.Minute)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestRedisBumpManyIsAtomicPerCall(t *testing.T) {
	ctx := context.Background()
	s := newRedisStore(t)

	if g, err := s.Snapshot(ctx, "a"); err != nil || g != 0 {
		t.Fatalf("fresh key: gen=%d err=%v", g, err)
	}
	got, err := s.BumpMany(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if got["a"] != 1 || got["b"] != 1 {
		t.Fatalf("BumpMany=%v", got)
	}
	if g, _ := s.Bump(ctx, "a"); g != 2 {
		t.Fatalf("Bump=%d want 2", g)
	}
	snap, err := s.SnapshotMany(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if snap["a"] != 2 || snap["b"] != 1 || snap["c"] != 0 {
		t.Fatalf("SnapshotMany=%v", snap)
	}
}
