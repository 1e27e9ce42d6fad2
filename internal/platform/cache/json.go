package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/sports-tracker/internal/platform/resilience"
)

// GetJSON decodes the cached value into T. Undecodable entries count as misses.
func GetJSON[T any](ctx context.Context, store Store, key string) (T, bool) {
	var out T
	raw, ok := store.Get(ctx, key)
	if !ok {
		return out, false
	}
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return out, false
	}
	return out, true
}

// SetJSON encodes value and stores it. A nil value deletes key.
func SetJSON(ctx context.Context, store Store, key string, value any, ttl time.Duration) bool {
	if value == nil {
		return store.Delete(ctx, key)
	}
	raw, err := sonic.Marshal(value)
	if err != nil {
		return false
	}
	return store.Set(ctx, key, raw, ttl)
}

// GetOrLoadJSON returns the cached value or runs loader once per key across
// concurrent callers, caching a successful result for ttl. The shared load
// ignores the first caller's cancellation so other waiters and the cache
// still get its result.
func GetOrLoadJSON[T any](
	ctx context.Context,
	store Store,
	flight *resilience.SingleFlight,
	key string,
	ttl time.Duration,
	loader func(context.Context) (T, error),
) (T, error) {
	if loader == nil {
		var zero T
		return zero, fmt.Errorf("loader is required")
	}
	if key == "" {
		return loader(ctx)
	}
	if cached, ok := GetJSON[T](ctx, store, key); ok {
		return cached, nil
	}

	value, _, err := resilience.Do(flight, key, func() (T, error) {
		loadCtx := context.WithoutCancel(ctx)
		if cached, ok := GetJSON[T](loadCtx, store, key); ok {
			return cached, nil
		}
		loaded, loadErr := loader(loadCtx)
		if loadErr != nil {
			return loaded, loadErr
		}
		SetJSON(loadCtx, store, key, loaded, ttl)
		return loaded, nil
	})
	return value, err
}
