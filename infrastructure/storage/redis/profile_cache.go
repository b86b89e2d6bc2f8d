package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/orderflow/domain/customer"
	"github.com/felixgeelhaar/orderflow/domain/order"
	"github.com/felixgeelhaar/orderflow/infrastructure/logging"
)

// ProfileCache is a read-through cache in front of a ProfileLookup.
// Redis failures fall through to the wrapped lookup; they never fail a
// request on their own.
type ProfileCache struct {
	client kv
	next   customer.ProfileLookup
	prefix string
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// NewProfileCache wraps next with a Redis cache. A zero ttl defaults to
// thirty seconds; KYC changes should call Invalidate.
func NewProfileCache(client *redis.Client, next customer.ProfileLookup, keyPrefix string, ttl time.Duration) *ProfileCache {
	return newProfileCache(client, next, keyPrefix, ttl)
}

func newProfileCache(client kv, next customer.ProfileLookup, keyPrefix string, ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ProfileCache{client: client, next: next, prefix: keyPrefix, ttl: ttl}
}

func (c *ProfileCache) key(ownerID string) string {
	return c.prefix + "profile:" + ownerID
}

// GetProfile returns the cached profile or loads it from the wrapped lookup.
func (c *ProfileCache) GetProfile(ctx context.Context, ownerID string) (*order.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := c.client.Get(ctx, c.key(ownerID)).Bytes()
	switch {
	case err == nil:
		var p order.Profile
		if jsonErr := json.Unmarshal(data, &p); jsonErr == nil {
			c.hits.Add(1)
			return &p, nil
		}
	case !errors.Is(err, redis.Nil):
		logging.Warn().
			Add(logging.Component("profile_cache")).
			Add(logging.ErrorField(err)).
			Msg("profile cache read failed")
	}
	c.misses.Add(1)

	p, err := c.next.GetProfile(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := c.client.Set(ctx, c.key(ownerID), data, c.ttl).Err(); err != nil {
			logging.Warn().
				Add(logging.Component("profile_cache")).
				Add(logging.ErrorField(err)).
				Msg("profile cache write failed")
		}
	}
	return p, nil
}

// Invalidate drops the cached profile of ownerID.
func (c *ProfileCache) Invalidate(ctx context.Context, ownerID string) error {
	return c.client.Del(ctx, c.key(ownerID)).Err()
}

// Stats returns hit and miss counts.
func (c *ProfileCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

var _ customer.ProfileLookup = (*ProfileCache)(nil)
