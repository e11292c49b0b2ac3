package genstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGenStore shares generations across processes and survives restarts,
// so a bump in one replica invalidates dependents in all of them.
// Optionally, a TTL can be applied to generation keys to prevent unbounded growth.
// An expired key reads as 0, which never equals a stamp captured after a bump.
type RedisGenStore struct {
	rdb redis.UniversalClient
	ns  string        // logical namespace; keeps trackers of different apps apart
	ttl time.Duration // optional TTL for generation keys; 0 disables expiry
}

var _ GenStore = (*RedisGenStore)(nil)

// NewRedisGenStore creates a Redis-backed generation store without TTL.
func NewRedisGenStore(client redis.UniversalClient, namespace string) *RedisGenStore {
	return &RedisGenStore{rdb: client, ns: namespace}
}

// NewRedisGenStoreWithTTL creates a Redis-backed generation store with TTL.
// If ttl <= 0, keys do not expire.
func NewRedisGenStoreWithTTL(client redis.UniversalClient, namespace string, ttl time.Duration) *RedisGenStore {
	return &RedisGenStore{rdb: client, ns: namespace, ttl: ttl}
}

func (s *RedisGenStore) key(k string) string { return "rev:" + s.ns + ":" + k }

// Snapshot returns the current generation.
// Missing keys are treated as generation 0.
func (s *RedisGenStore) Snapshot(ctx context.Context, key string) (uint64, error) {
	res, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	u, err := strconv.ParseUint(res, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis gen parse: %w", err)
	}
	return u, nil
}

// SnapshotMany returns generations for multiple keys in one MGET.
// Missing keys map to 0.
func (s *RedisGenStore) SnapshotMany(ctx context.Context, keys []string) (map[string]uint64, error) {
	if len(keys) == 0 {
		return map[string]uint64{}, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	vals, err := s.rdb.MGet(ctx, full...).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]uint64, len(keys))
	for i, v := range vals {
		u, err := parseGen(v)
		if err != nil {
			return nil, fmt.Errorf("redis gen parse at %s: %w", keys[i], err)
		}
		out[keys[i]] = u
	}
	return out, nil
}

func parseGen(v any) (uint64, error) {
	switch vv := v.(type) {
	case nil:
		return 0, nil
	case string:
		return strconv.ParseUint(vv, 10, 64)
	case []byte:
		return strconv.ParseUint(string(vv), 10, 64)
	default:
		return strconv.ParseUint(fmt.Sprint(vv), 10, 64)
	}
}

// Bump atomically increments the generation and (optionally) refreshes TTL.
func (s *RedisGenStore) Bump(ctx context.Context, key string) (uint64, error) {
	m, err := s.BumpMany(ctx, []string{key})
	if err != nil {
		return 0, err
	}
	return m[key], nil
}

// BumpMany increments all keys inside one MULTI/EXEC so readers never see
// a partially applied batch. When ttl > 0 every INCR is followed by EXPIRE
// in the same transaction.
func (s *RedisGenStore) BumpMany(ctx context.Context, keys []string) (map[string]uint64, error) {
	if len(keys) == 0 {
		return map[string]uint64{}, nil
	}
	incrs := make([]*redis.IntCmd, len(keys))
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for i, k := range keys {
			full := s.key(k)
			incrs[i] = p.Incr(ctx, full)
			if s.ttl > 0 {
				p.Expire(ctx, full, s.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]uint64, len(keys))
	for i, k := range keys {
		out[k] = uint64(incrs[i].Val())
	}
	return out, nil
}

// Cleanup is not applicable for RedisGenStore (Redis handles expiry if TTL is set).
func (s *RedisGenStore) Cleanup(time.Duration) {}

// Close closes the underlying Redis client.
func (s *RedisGenStore) Close(context.Context) error { return s.rdb.Close() }
