package cache

import (
	"context"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is the in-process Store used in tests and when REDIS_URL is unset.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	if key == "" {
		return nil, false
	}

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.expired(e) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	if key == "" {
		return false
	}
	if value == nil || ttl <= 0 {
		return s.Delete(ctx, key)
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	s.entries[key] = entry{value: stored, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return true
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) bool {
	s.mu.Lock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return true
}

func (s *MemoryStore) GetMultiple(ctx context.Context, keys []string) map[string][]byte {
	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if value, ok := s.Get(ctx, key); ok {
			out[key] = value
		}
	}
	return out
}

// Keys matches glob patterns the way redis KEYS does for '*', '?' and '[...]'.
func (s *MemoryStore) Keys(_ context.Context, pattern string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0)
	for key, e := range s.entries {
		if s.expired(e) {
			continue
		}
		if matched, err := path.Match(pattern, key); err == nil && matched {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

func (s *MemoryStore) DeletePattern(ctx context.Context, pattern string) int {
	keys := s.Keys(ctx, pattern)
	s.Delete(ctx, keys...)
	return len(keys)
}

func (s *MemoryStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	var count int64
	if ok && !s.expired(e) {
		count, _ = strconv.ParseInt(string(e.value), 10, 64)
	} else {
		e = entry{expiresAt: now.Add(ttl)}
	}
	count++
	e.value = []byte(strconv.FormatInt(count, 10))
	s.entries[key] = e
	return count, true
}

func (s *MemoryStore) Healthy(context.Context) bool {
	return true
}

func (s *MemoryStore) Close() error {
	return nil
}

// Sweep drops expired entries and reports how many were removed.
func (s *MemoryStore) Sweep(context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) expired(e entry) bool {
	return !e.expiresAt.After(s.now())
}
