package redis

import (
	"context"
	"fmt"
	"time"

	"restoPlay/pkg/config"

	"github.com/redis/go-redis/v9"
)

const (
	defaultLockTTL  = 5 * time.Second
	defaultLockWait = 3 * time.Second

	// a single SET NX or release round trip must finish well inside the lock ttl
	commandTimeout = time.Second
)

// Options builds client options sized for short lock commands rather than bulk reads.
func Options(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  commandTimeout,
		WriteTimeout: commandTimeout,
		PoolSize:     10,
		MinIdleConns: 1,
	}
}

// LockTiming returns the registration lock ttl and wait budget. Non-positive values fall
// back to the defaults, and the ttl never drops below two command timeouts so a holder
// can still release its own key.
func LockTiming(cfg config.RedisConfig) (ttl, wait time.Duration) {
	ttl, wait = cfg.LockTTL, cfg.LockWait
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if wait <= 0 {
		wait = defaultLockWait
	}
	if ttl < 2*commandTimeout {
		ttl = 2 * commandTimeout
	}

	return ttl, wait
}

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(Options(cfg))

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", client.Options().Addr, err)
	}

	return client, nil
}

// CloseRedisClient closes the Redis connection
func CloseRedisClient(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}

	return nil
}
