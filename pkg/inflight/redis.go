// Package inflight serializes fulfillment attempts per order id. The redis
// implementation backs multi-instance deployments; the memory implementation
// backs single-process use and tests.
package inflight

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLocker takes a per-order lease via SET NX. The TTL bounds how long a
// crashed attempt can block its order.
type RedisLocker struct {
	log *slog.Logger
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLocker(log *slog.Logger, rdb *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{log: log, rdb: rdb, ttl: ttl}
}

func key(orderID string) string {
	return fmt.Sprintf("fulfill:inflight:%s", orderID)
}

func (l *RedisLocker) Acquire(ctx context.Context, orderID string) (bool, error) {
	return l.rdb.SetNX(ctx, key(orderID), "1", l.ttl).Result()
}

func (l *RedisLocker) Release(ctx context.Context, orderID string) {
	if err := l.rdb.Del(ctx, key(orderID)).Err(); err != nil {
		l.log.Warn("inflight lock release failed", "order_id", orderID, "err", err)
	}
}
