package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/orderflow/domain/notification"
)

// Deduper claims notification event IDs with SETNX so replicas sharing a
// Redis instance dispatch each event once.
type Deduper struct {
	client kv
	prefix string
	ttl    time.Duration
}

// NewDeduper creates a Redis-backed deduper. Claims expire after ttl;
// zero defaults to 24 hours.
func NewDeduper(client *redis.Client, keyPrefix string, ttl time.Duration) *Deduper {
	return newDeduper(client, keyPrefix, ttl)
}

func newDeduper(client kv, keyPrefix string, ttl time.Duration) *Deduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Deduper{client: client, prefix: keyPrefix, ttl: ttl}
}

// Claim reports whether the caller is the first to claim id.
func (d *Deduper) Claim(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := d.client.SetNX(ctx, d.prefix+"notified:"+id, time.Now().Unix(), d.ttl).Result()
	if err != nil {
		return false, wrapError(err)
	}
	return ok, nil
}

// ErrOperationTimeout is returned when a Redis call times out.
var ErrOperationTimeout = errors.New("redis: operation timeout")

// wrapError wraps Redis errors with package errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrOperationTimeout, err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Join(ErrOperationTimeout, err)
	}
	return err
}

var _ notification.Deduper = (*Deduper)(nil)
