package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a lease based distributed lock. A holder that crashes releases
// the key when its lease runs out.
type Locker struct {
	client *Client
	lease  time.Duration
	retry  time.Duration
	logger *slog.Logger
}

func NewLocker(client *Client, lease time.Duration, logger *slog.Logger) *Locker {
	return &Locker{client: client, lease: lease, retry: 25 * time.Millisecond, logger: logger}
}

func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := l.client.key("lock", key)
	token := uuid.NewString()

	for {
		err := l.client.SetArgs(ctx, lockKey, token, redis.SetArgs{Mode: "NX", TTL: l.lease}).Err()
		if err == nil {
			return l.unlocker(lockKey, token), nil
		}
		if !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

func (l *Locker) unlocker(lockKey, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{lockKey}, token).Err(); err != nil {
			l.logger.Warn("failed to release redis lock", "key", lockKey, "error", err)
		}
	}
}
