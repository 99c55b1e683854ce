package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventhub/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix     = "event_lock:"
	defaultLockTTL    = 10 * time.Second
	defaultRetryDelay = 25 * time.Millisecond
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// ErrLockTimeout is returned when the lock could not be acquired before the context ended.
var ErrLockTimeout = errors.New("timed out waiting for event lock")

// RedisLocker is an EventLocker shared by every API instance using the same Redis.
type RedisLocker struct {
	Client     *redis.Client
	TTL        time.Duration
	RetryDelay time.Duration
}

// NewRedisLocker returns a RedisLocker with default expiry and polling delay.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{Client: client, TTL: defaultLockTTL, RetryDelay: defaultRetryDelay}
}

var _ domain.EventLocker = (*RedisLocker)(nil)

// Lock takes the lock with SET NX and a TTL, polling until it is free or ctx is done.
// The returned func releases the lock if it is still ours.
func (l *RedisLocker) Lock(ctx context.Context, eventID string) (func(), error) {
	key := lockKeyPrefix + eventID
	token := uuid.NewString()

	for {
		ok, err := l.Client.SetNX(ctx, key, token, l.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrLockTimeout, eventID, ctx.Err())
		case <-time.After(l.RetryDelay):
		}
	}

	return func() {
		// Release on a fresh context so a cancelled request still frees the key.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.Client, []string{key}, token).Err()
	}, nil
}
