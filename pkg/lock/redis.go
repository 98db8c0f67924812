package lock

import (
	"context"
	"sync"
	"time"

	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/logging"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "dopkg:lock:"

// release deletes the key only while it still holds our token, so an
// expired lock re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker for stores shared between hosts. Locks expire after ttl
// so a crashed holder cannot block a name forever.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis connects to the server at url (redis://host:port/db)
func NewRedis(url string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigValid, "invalid redis URL")
	}
	return NewRedisWithClient(redis.NewClient(opt), ttl), nil
}

// NewRedisWithClient wraps an existing client
func NewRedisWithClient(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Redis{client: client, ttl: ttl}
}

// Lock implements Locker
func (r *Redis) Lock(ctx context.Context, name string) (UnlockFunc, error) {
	logger := logging.GetLogger("lock").With().Str("name", name).Str("backend", "redis").Logger()
	key := keyPrefix + name
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			if cerr := errors.FromContext(ctx, "waiting for lock"); cerr != nil {
				return nil, cerr
			}
			return nil, errors.Wrap(err, errors.ErrLock, "redis lock failed").
				WithDetail("key", key)
		}
		if ok {
			break
		}
		if err := wait(ctx, pollInterval); err != nil {
			return nil, err
		}
	}
	logger.Trace().Msg("lock acquired")

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled; releasing must still happen.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
				logger.Warn().Err(err).Msg("failed to release lock, it will expire")
				return
			}
			logger.Trace().Msg("lock released")
		})
	}, nil
}
