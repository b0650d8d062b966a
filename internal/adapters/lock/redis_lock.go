package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"surplus-redistribution-service/internal/platform/obs"
	"surplus-redistribution-service/internal/ports"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisRunLock is a single-instance Redis lock (SET NX PX) shared by every
// process working on the same dataset.
type RedisRunLock struct {
	Client redis.Cmdable
	Prefix string
}

func NewRedisRunLock(client redis.Cmdable, prefix string) *RedisRunLock {
	return &RedisRunLock{Client: client, Prefix: prefix}
}

func (l *RedisRunLock) Acquire(
	ctx context.Context,
	name string,
	ttl time.Duration,
) (_ func(context.Context) error, err error) {
	defer obs.Time(ctx, "lock.redis.Acquire")(&err)

	if l.Client == nil {
		return nil, errors.New("acquire run lock: redis client is nil")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("acquire run lock: ttl must be positive, got %s", ttl)
	}

	key := l.Prefix + name
	token := uuid.NewString()

	ok, err := l.Client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: set %q: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("acquire run lock %q: %w", key, ports.ErrRunInProgress)
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.Client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("release run lock: %q: %w", key, err)
		}
		return nil
	}
	return release, nil
}
