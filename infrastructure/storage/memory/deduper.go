package memory

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/orderflow/domain/notification"
)

// claim records when an event ID was first seen.
type claim struct {
	claimedAt time.Time
	expiresAt time.Time
}

func (c *claim) isExpired(now time.Time) bool {
	return !c.expiresAt.IsZero() && now.After(c.expiresAt)
}

// Deduper is an in-memory implementation of notification.Deduper.
// Claims expire after the TTL; the oldest claim is evicted at capacity.
type Deduper struct {
	claims  map[string]*claim
	maxSize int
	ttl     time.Duration
	mu      sync.Mutex
}

// DeduperOption configures the deduper.
type DeduperOption func(*Deduper)

// WithMaxClaims sets the maximum number of remembered claims.
func WithMaxClaims(size int) DeduperOption {
	return func(d *Deduper) {
		d.maxSize = size
	}
}

// WithClaimTTL sets how long a claim is remembered. Zero keeps claims
// until evicted.
func WithClaimTTL(ttl time.Duration) DeduperOption {
	return func(d *Deduper) {
		d.ttl = ttl
	}
}

// NewDeduper creates a new in-memory deduper.
func NewDeduper(opts ...DeduperOption) *Deduper {
	d := &Deduper{
		claims:  make(map[string]*claim),
		maxSize: 10000,
		ttl:     24 * time.Hour,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Claim reports whether the caller is the first to claim id.
func (d *Deduper) Claim(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.claims[id]; ok && !c.isExpired(now) {
		return false, nil
	}

	if len(d.claims) >= d.maxSize {
		d.evictOldest(now)
	}

	c := &claim{claimedAt: now}
	if d.ttl > 0 {
		c.expiresAt = now.Add(d.ttl)
	}
	d.claims[id] = c
	return true, nil
}

// evictOldest drops expired claims, or the oldest one when none expired.
// Must be called with lock held.
func (d *Deduper) evictOldest(now time.Time) {
	var oldestID string
	var oldest time.Time
	for id, c := range d.claims {
		if c.isExpired(now) {
			delete(d.claims, id)
			continue
		}
		if oldestID == "" || c.claimedAt.Before(oldest) {
			oldestID = id
			oldest = c.claimedAt
		}
	}
	if len(d.claims) >= d.maxSize && oldestID != "" {
		delete(d.claims, oldestID)
	}
}

// Size returns the number of remembered claims.
func (d *Deduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.claims)
}

// Ensure interface compliance.
var _ notification.Deduper = (*Deduper)(nil)
