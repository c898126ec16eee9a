package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restoPlay/business/registration"
	"restoPlay/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds our value.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var ErrLockTimeout = errors.New("timed out waiting for registration lock")

type RegistrationLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

var _ registration.Locker = (*RegistrationLocker)(nil)

func NewRegistrationLocker(client *redis.Client, ttl, wait time.Duration) *RegistrationLocker {
	return &RegistrationLocker{
		client: client,
		ttl:    ttl,
		wait:   wait,
		retry:  25 * time.Millisecond,
	}
}

// Lock blocks until the key is acquired, the wait budget runs out or ctx is done.
func (l *RegistrationLocker) Lock(ctx context.Context, key string) (func(), error) {
	// key format: "lock:register:{partition}:{phone}"
	lockKey := fmt.Sprintf("lock:register:%s", key)
	value := uuid.NewString()

	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, lockKey, value, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock in Redis: %w", err)
		}
		if ok {
			break
		}

		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}

	unlock := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := releaseScript.Run(releaseCtx, l.client, []string{lockKey}, value).Err(); err != nil {
			logger.Warn("Failed to release registration lock", "key", lockKey, "error", err)
		}
	}

	return unlock, nil
}
