package cache

import (
	"context"
	"strconv"
	"time"

	"tripchat/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "tripchat:unread:"

// UnreadCache stores unread totals in Redis with a short TTL. All operations
// are best effort; a Redis outage degrades to direct store queries.
type UnreadCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// New returns a cache backed by the Redis at addr, or nil when addr is empty.
// Callers treat a nil cache as disabled.
func New(addr string, ttl time.Duration, logger *logrus.Logger) *UnreadCache {
	if addr == "" {
		return nil
	}
	return &UnreadCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
		logger: logger,
	}
}

func key(caller models.Caller) string {
	return keyPrefix + string(caller.Role) + ":" + caller.ID
}

func (c *UnreadCache) Get(ctx context.Context, caller models.Caller) (int, bool) {
	val, err := c.client.Get(ctx, key(caller)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Debug("Unread cache read failed")
		}
		return 0, false
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return count, true
}

func (c *UnreadCache) Set(ctx context.Context, caller models.Caller, count int) {
	if err := c.client.Set(ctx, key(caller), strconv.Itoa(count), c.ttl).Err(); err != nil {
		c.logger.WithError(err).Debug("Unread cache write failed")
	}
}

// Invalidate drops every cached total. Unread counts are cheap to recompute
// and per-key invalidation is not worth tracking which callers a message
// affects.
func (c *UnreadCache) Invalidate(ctx context.Context) {
	keys, err := c.client.Keys(ctx, keyPrefix+"*").Result()
	if err != nil {
		c.logger.WithError(err).Debug("Unread cache scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.WithError(err).Debug("Unread cache invalidation failed")
	}
}

func (c *UnreadCache) Close() error {
	return c.client.Close()
}
