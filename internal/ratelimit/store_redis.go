package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis, for deployments running more than
// one gateway process against the same ceiling. Each (key, window) pair maps
// to one Redis counter; INCR is atomic server-side, and the key carries a
// TTL slightly longer than the window so Redis reclaims it on its own.
//
// Window boundaries are aligned to multiples of the window duration so
// every process agrees on the current window for a key.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithPrefix overrides the default "ratelimit" key prefix.
func WithPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) { s.prefix = strings.Trim(prefix, ":") }
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(rdb *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{rdb: rdb, prefix: "ratelimit"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Incr implements Store.
func (s *RedisStore) Incr(ctx context.Context, key string, dur time.Duration, now time.Time) (int64, time.Time, error) {
	windowStart := now.Truncate(dur)
	resetAt := windowStart.Add(dur)
	redisKey := fmt.Sprintf("%s:%s:%d", s.prefix, key, windowStart.Unix())

	pipe := s.rdb.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, dur+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, resetAt, err
	}
	return incr.Val(), resetAt, nil
}
