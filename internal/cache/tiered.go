package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"nion/internal/logging"
)

// Tiered chains the primary networked store and the in-process fallback
// store behind a single get-or-compute entry point. Primary failures degrade
// to the fallback tier and are never surfaced to callers.
type Tiered struct {
	primary  Store // may be nil: degraded, fallback-only operation
	fallback Store
	group    singleflight.Group
	logger   logging.Logger
}

// NewTiered builds a tiered cache. primary may be nil when no networked
// backend is configured; fallback must not be.
func NewTiered(primary, fallback Store, logger logging.Logger) *Tiered {
	return &Tiered{
		primary:  primary,
		fallback: fallback,
		logger:   logging.OrNop(logger),
	}
}

// GetOrCompute returns the cached value for key, consulting the primary tier
// first and the fallback tier second. On a full miss it invokes compute once
// (concurrent identical misses are collapsed) and writes the result through
// to both tiers with the requested TTL. Backend errors on either tier are
// logged and treated as misses or dropped writes; only compute itself can
// fail the call.
func (t *Tiered) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) (string, error)) (string, error) {
	if value, ok := t.lookup(ctx, key); ok {
		return value, nil
	}

	result, err, _ := t.group.Do(key, func() (any, error) {
		// Re-check under the flight lock: a concurrent caller may have
		// populated the tiers while this one was queued.
		if value, ok := t.lookup(ctx, key); ok {
			return value, nil
		}

		value, err := compute(ctx)
		if err != nil {
			return "", err
		}

		if t.primary != nil {
			if err := t.primary.Set(ctx, key, value, ttl); err != nil {
				t.logger.Warn("primary cache write failed for %s: %v", key, err)
			}
		}
		if err := t.fallback.Set(ctx, key, value, ttl); err != nil {
			t.logger.Warn("fallback cache write failed for %s: %v", key, err)
		}
		return value, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (t *Tiered) lookup(ctx context.Context, key string) (string, bool) {
	if t.primary != nil {
		value, ok, err := t.primary.Get(ctx, key)
		if err != nil {
			t.logger.Warn("primary cache read failed for %s: %v", key, err)
		} else if ok {
			t.logger.Debug("cache hit (primary): %s", key)
			return value, true
		}
	}

	value, ok, err := t.fallback.Get(ctx, key)
	if err != nil {
		t.logger.Warn("fallback cache read failed for %s: %v", key, err)
		return "", false
	}
	if ok {
		t.logger.Debug("cache hit (fallback): %s", key)
		return value, true
	}
	return "", false
}
