package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"escrow-ledger/internal/infrastructure/logging"
)

// OpenRedis connects and pings; the client backs the idempotency store.
func OpenRedis(addr string, db int, log *logging.Logger) (*redis.Client, error) {
	r := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		_ = r.Close()
		return nil, err
	}
	logging.OrNop(log).Info("redis: connected", zap.String("addr", addr), zap.Int("db", db))
	return r, nil
}
