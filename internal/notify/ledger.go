package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLedger keeps "already notified" markers in Redis with SET NX.
type RedisLedger struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisLedger returns nil when rdb is nil so callers can pass the result
// straight to NewDispatcher.
func NewRedisLedger(rdb *redis.Client, ttl time.Duration) Ledger {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisLedger{rdb: rdb, ttl: ttl, prefix: "notified"}
}

func (l *RedisLedger) key(requestID uint64, email string) string {
	return fmt.Sprintf("%s:%d:%s", l.prefix, requestID, normalizeEmail(email))
}

// Claim implements Ledger.
func (l *RedisLedger) Claim(ctx context.Context, requestID uint64, email string) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.key(requestID, email), time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("ledger claim: %w", err)
	}
	return ok, nil
}

// Release implements Ledger.
func (l *RedisLedger) Release(ctx context.Context, requestID uint64, email string) error {
	if err := l.rdb.Del(ctx, l.key(requestID, email)).Err(); err != nil {
		return fmt.Errorf("ledger release: %w", err)
	}
	return nil
}
