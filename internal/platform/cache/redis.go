package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/sports-tracker/internal/platform/logging"
)

const (
	scanBatchSize      = 200
	errorLogInterval   = 60 * time.Second
	defaultDialTimeout = 3 * time.Second
	defaultOpTimeout   = 2 * time.Second
)

// RedisStore is the shared Store backed by redis. When redis is unreachable
// every read is a miss and every write reports false.
type RedisStore struct {
	client    *redis.Client
	logger    *logging.Logger
	connected atomic.Bool
	lastLog   atomic.Int64
}

// NewRedisStore parses url and pings once. A bad url or failed ping is logged
// and the store starts degraded; go-redis keeps reconnecting in the background.
func NewRedisStore(ctx context.Context, url string, logger *logging.Logger) *RedisStore {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.With("component", "redis_cache")

	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Error("invalid redis url, cache disabled", "error", err)
		return &RedisStore{logger: logger}
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = defaultOpTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = defaultOpTimeout
	}

	store := NewRedisStoreFromClient(redis.NewClient(opts), logger)
	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := store.client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable at startup, running without shared cache", "addr", opts.Addr, "error", err)
		store.connected.Store(false)
		return store
	}
	logger.Info("redis connected", "addr", opts.Addr)
	return store
}

func NewRedisStoreFromClient(client *redis.Client, logger *logging.Logger) *RedisStore {
	if logger == nil {
		logger = logging.Default()
	}
	store := &RedisStore{client: client, logger: logger}
	store.connected.Store(client != nil)
	return store
}

// Client exposes the underlying client for health probes.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) Connected() bool {
	return s.client != nil && s.connected.Load()
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	if s.client == nil || key == "" {
		return nil, false
	}
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		s.markUp()
		return nil, false
	}
	if err != nil {
		s.markDown(ctx, "get", key, err)
		return nil, false
	}
	s.markUp()
	return value, true
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	if s.client == nil || key == "" {
		return false
	}
	if value == nil || ttl <= 0 {
		return s.Delete(ctx, key)
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.markDown(ctx, "set", key, err)
		return false
	}
	s.markUp()
	return true
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) bool {
	if s.client == nil {
		return false
	}
	if len(keys) == 0 {
		return true
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.markDown(ctx, "del", keys[0], err)
		return false
	}
	s.markUp()
	return true
}

func (s *RedisStore) GetMultiple(ctx context.Context, keys []string) map[string][]byte {
	out := make(map[string][]byte, len(keys))
	if s.client == nil || len(keys) == 0 {
		return out
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		s.markDown(ctx, "mget", keys[0], err)
		return out
	}
	s.markUp()
	for i, value := range values {
		if str, ok := value.(string); ok {
			out[keys[i]] = []byte(str)
		}
	}
	return out
}

// Keys walks the keyspace with SCAN so large keyspaces do not block redis.
func (s *RedisStore) Keys(ctx context.Context, pattern string) []string {
	out := make([]string, 0)
	if s.client == nil {
		return out
	}
	iter := s.client.Scan(ctx, 0, pattern, scanBatchSize).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.markDown(ctx, "scan", pattern, err)
		return out
	}
	s.markUp()
	return out
}

func (s *RedisStore) DeletePattern(ctx context.Context, pattern string) int {
	keys := s.Keys(ctx, pattern)
	if len(keys) == 0 {
		return 0
	}

	deleted := 0
	for start := 0; start < len(keys); start += scanBatchSize {
		end := min(start+scanBatchSize, len(keys))
		n, err := s.client.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			s.markDown(ctx, "del_pattern", pattern, err)
			return deleted
		}
		deleted += int(n)
	}
	return deleted
}

func (s *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, bool) {
	if s.client == nil || key == "" {
		return 0, false
	}
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		s.markDown(ctx, "incr", key, err)
		return 0, false
	}
	if count == 1 && ttl > 0 {
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			s.markDown(ctx, "expire", key, err)
		}
	}
	s.markUp()
	return count, true
}

func (s *RedisStore) Healthy(ctx context.Context) bool {
	if s.client == nil {
		return false
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.markDown(ctx, "ping", "", err)
		return false
	}
	s.markUp()
	return true
}

func (s *RedisStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) markUp() {
	if !s.connected.Swap(true) {
		s.logger.Info("redis connection restored")
	}
}

// markDown logs at most once per errorLogInterval to keep outages quiet.
func (s *RedisStore) markDown(ctx context.Context, op, key string, err error) {
	s.connected.Store(false)

	now := time.Now().UnixNano()
	last := s.lastLog.Load()
	if now-last < int64(errorLogInterval) || !s.lastLog.CompareAndSwap(last, now) {
		return
	}
	s.logger.WarnContext(ctx, "redis operation failed, serving without cache", "op", op, "key", key, "error", err)
}
