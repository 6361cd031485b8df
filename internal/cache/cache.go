// Package cache provides the TTL cache abstraction backing the filter
// registry and filter-value pages. Population races are tolerated: callers
// recompute and overwrite rather than locking around misses, so a stale read
// for up to one TTL window is accepted.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/prospectio/prospect/internal/domain"
)

// Cache stores opaque byte values with per-entry TTL.
type Cache interface {
	// Get returns the live value for key, or domain.ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete is the manual invalidation hook.
	Delete(ctx context.Context, key string) error
}

// GetOrPopulate returns the cached value for key, computing and storing it on
// a miss. A failed Set is not fatal: the computed value is still returned.
func GetOrPopulate(ctx context.Context, c Cache, key string, ttl time.Duration, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	if data, err := c.Get(ctx, key); err == nil {
		return data, nil
	} else if !errors.Is(err, domain.ErrCacheMiss) {
		return nil, err
	}

	data, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	_ = c.Set(ctx, key, data, ttl)
	return data, nil
}
