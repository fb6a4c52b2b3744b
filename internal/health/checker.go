package health

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// PoolChecker probes the Postgres pool and Redis client the API runs on.
type PoolChecker struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
}

func (c PoolChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.Pool == nil {
		return errors.New("database not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Pool.Ping(ctx)
}

func (c PoolChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.Redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Redis.Ping(ctx).Err()
}
