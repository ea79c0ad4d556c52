package engagement

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dcyfr/dcyfr-labs-sub013/internal/domain"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/logger"
)

// decrClampScript decrements a counter without letting it go below zero.
// The read and decrement execute as one server-side step, so concurrent
// decrements on a zero counter all observe zero.
var decrClampScript = redis.NewScript(`
local v = tonumber(redis.call('GET', KEYS[1]) or '0')
if v <= 0 then
  return 0
end
return redis.call('DECR', KEYS[1])
`)

// RedisCounter implements Counter on a Redis client.
type RedisCounter struct {
	client redis.UniversalClient
	keys   *Keys
	logger logger.Logger
}

// NewRedisCounter creates a counter using the given client and key prefix.
func NewRedisCounter(client redis.UniversalClient, keyPrefix string, log logger.Logger) *RedisCounter {
	return &RedisCounter{
		client: client,
		keys:   NewKeys(keyPrefix),
		logger: log,
	}
}

// Increment atomically adds one via INCR.
func (c *RedisCounter) Increment(ctx context.Context, ct domain.ContentType, slug string) (int64, error) {
	if err := validateKey(ct, slug); err != nil {
		return 0, err
	}

	key := c.keys.Bookmarks(ct, slug)

	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, c.unavailable("increment", key, err)
	}

	return count, nil
}

// Decrement atomically subtracts one, clamped at zero.
func (c *RedisCounter) Decrement(ctx context.Context, ct domain.ContentType, slug string) (int64, error) {
	if err := validateKey(ct, slug); err != nil {
		return 0, err
	}

	key := c.keys.Bookmarks(ct, slug)

	result, err := decrClampScript.Run(ctx, c.client, []string{key}).Int64()
	if err != nil {
		return 0, c.unavailable("decrement", key, err)
	}

	return result, nil
}

// Get reads the current count. A missing key reads as zero.
func (c *RedisCounter) Get(ctx context.Context, ct domain.ContentType, slug string) (int64, error) {
	if err := validateKey(ct, slug); err != nil {
		return 0, err
	}

	key := c.keys.Bookmarks(ct, slug)

	count, err := c.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, c.unavailable("get", key, err)
	}

	return count, nil
}

// unavailable logs the underlying transport error and returns the
// ErrUnavailable sentinel the handlers act on.
func (c *RedisCounter) unavailable(op, key string, err error) error {
	c.logger.Warn("Bookmark counter operation failed",
		logger.String("op", op),
		logger.String("redis_key", key),
		logger.Error(err),
	)
	return fmt.Errorf("%s bookmark counter: %w", op, ErrUnavailable)
}
