package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	dErrors "scholarops/pkg/domain-errors"
)

const (
	// Redis key prefix for calendar locks
	redisKeyPrefix = "lock:interview:"

	defaultLeaseTTL   = 15 * time.Second
	defaultRetryDelay = 25 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lease re-acquired by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every instance pointed at the same Redis.
// Each key is a SET NX PX lease carrying a random token.
type Redis struct {
	client     *redis.Client
	timeout    time.Duration
	leaseTTL   time.Duration
	retryDelay time.Duration
}

type RedisOption func(*Redis)

func WithLeaseTTL(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.leaseTTL = d
		}
	}
}

func WithRedisTimeout(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithRetryDelay(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.retryDelay = d
		}
	}
}

// NewRedis constructs a Redis-backed Locker. The client lifecycle is managed by the caller.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client:     client,
		timeout:    DefaultTimeout,
		leaseTTL:   defaultLeaseTTL,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Redis) Lock(ctx context.Context, keys ...string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "lock aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	token := uuid.NewString()
	var held []string
	release := func() {
		// Release must run even when the acquiring context is done.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			_ = releaseScript.Run(releaseCtx, r.client, []string{held[i]}, token).Err()
		}
	}

	for _, k := range normalize(keys) {
		key := redisKeyPrefix + k
		if err := r.acquire(ctx, key, token); err != nil {
			release()
			return nil, err
		}
		held = append(held, key)
	}
	return release, nil
}

func (r *Redis) acquire(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(r.retryDelay)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.leaseTTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "timed out waiting for interviewer calendar lock")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to acquire calendar lock")
		}
		if ok {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "timed out waiting for interviewer calendar lock")
		}
	}
}
