package locksvc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
)

const (
	keyPrefix      = "academia:lock:"
	defaultTTL     = 30 * time.Second
	releaseTimeout = 2 * time.Second
)

// deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a best-effort lock shared by every API instance.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger core.Logger
}

var _ enrollment.Locker = (*RedisLocker)(nil)

func NewRedisLocker(client redis.UniversalClient, logger core.Logger) *RedisLocker {
	return &RedisLocker{client: client, ttl: defaultTTL, logger: logger}
}

// Connect opens and pings a redis client.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "pinging redis at %s", addr)
	}
	return client, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	key = keyPrefix + key
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, "acquiring lock")
	}
	if !ok {
		return nil, enrollment.ErrLocked
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			l.logger.Warn("releasing lock", err, map[string]interface{}{"key": key})
		}
	}
	return release, nil
}
