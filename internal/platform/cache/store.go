package cache

import (
	"context"
	"strings"
	"time"
)

// KeyPrefix namespaces every key this service writes.
const KeyPrefix = "sports_tracker"

// Store is a byte-oriented key/value cache with per-key TTL.
//
// Implementations never surface connectivity errors: a degraded store behaves
// like an always-empty cache and reports failed writes through the bool result.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores value for ttl. A nil value or non-positive ttl deletes key.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool
	Delete(ctx context.Context, keys ...string) bool
	GetMultiple(ctx context.Context, keys []string) map[string][]byte
	Keys(ctx context.Context, pattern string) []string
	DeletePattern(ctx context.Context, pattern string) int
	// Incr bumps a counter and starts its ttl on first increment.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, bool)
	Healthy(ctx context.Context) bool
	Close() error
}

// Sweeper is implemented by stores that need explicit expiry passes.
type Sweeper interface {
	Sweep(ctx context.Context) int
}

// Key joins the namespace, kind, and id parts with ':' skipping empty parts.
func Key(kind string, parts ...string) string {
	segments := make([]string, 0, len(parts)+2)
	segments = append(segments, KeyPrefix)
	if kind != "" {
		segments = append(segments, kind)
	}
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return strings.Join(segments, ":")
}
