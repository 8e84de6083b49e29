package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 30 * time.Second

// releaseScript deletes the key only while it still carries our token, so an
// expired lock taken over by another holder is left alone.
var releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)

// Locker provides Redis-backed locks shared by every API replica. Keys are
// namespaced with Prefix.
type Locker struct {
	R            *redis.Client
	RetryBackoff time.Duration
	Prefix       string
}

func (l Locker) validate(fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	return nil
}

func (l Locker) key(name string) string {
	return l.Prefix + name
}

// WithLock polls until key is free, runs fn and releases the key, whatever fn
// returns. It gives up with ctx.Err() when ctx ends first.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if err := l.validate(fn); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	key = l.key(key)
	token := uuid.NewString()
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}

	for {
		ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			defer l.release(context.Background(), key, token)
			return fn(ctx)
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// HoldFor takes key for ttl without ever releasing it, so within one ttl window
// only the first caller across all replicas gets true.
func (l Locker) HoldFor(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if l.R == nil {
		return false, errors.New("lock: redis client not configured")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return l.R.SetNX(ctx, l.key(key), uuid.NewString(), ttl).Result()
}

func (l Locker) release(ctx context.Context, key, token string) {
	_ = releaseScript.Run(ctx, l.R, []string{key}, token).Err()
}
