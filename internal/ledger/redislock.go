package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still carries our token, so an
// expired holder can never release a lock that someone else now owns.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every instance talking to the same
// Redis.  The key expires after TTL so a crashed holder cannot wedge a pool.
type RedisLocker struct {
	rdb     *redis.Client
	prefix  string
	ttl     time.Duration
	timeout time.Duration
	retry   time.Duration
}

// RedisLockerOption customises a RedisLocker.
type RedisLockerOption func(*RedisLocker)

// WithLockTTL sets how long an unreleased lock survives.  It must exceed
// the longest Reserve/Cancel transaction.
func WithLockTTL(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) { l.ttl = d }
}

// WithRetryInterval sets the pause between acquisition attempts.
func WithRetryInterval(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) { l.retry = d }
}

func NewRedisLocker(rdb *redis.Client, timeout time.Duration, opts ...RedisLockerOption) *RedisLocker {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	l := &RedisLocker{
		rdb:     rdb,
		prefix:  "ledger:lock",
		ttl:     10 * time.Second,
		timeout: timeout,
		retry:   25 * time.Millisecond,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	k := l.prefix + ":" + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.timeout)

	for {
		ok, err := l.rdb.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("ledger: acquire %s: %w", key, err)
		}
		if ok {
			released := false
			return func() {
				if released {
					return
				}
				released = true
				rctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseScript.Run(rctx, l.rdb, []string{k}, token).Err()
			}, nil
		}
		if time.Now().Add(l.retry).After(deadline) {
			return nil, ErrContention
		}
		select {
		case <-time.After(l.retry):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
