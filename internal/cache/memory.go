package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryCache implements Cache with an in-process map.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]*cacheItem
	done chan struct{}
	once sync.Once
}

type cacheItem struct {
	value      []byte
	expiration time.Time
}

// NewMemoryCache creates a memory cache and starts its expiry sweep.
func NewMemoryCache() *MemoryCache {
	mc := &MemoryCache{
		data: make(map[string]*cacheItem),
		done: make(chan struct{}),
	}
	go mc.cleanup()
	return mc
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.data[key]
	if !ok || item.expired(time.Now()) {
		return nil, ErrCacheMiss
	}
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := &cacheItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiration = time.Now().Add(ttl)
	}
	m.data[key] = item
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.data[key]
	return ok && !item.expired(time.Now()), nil
}

// Clear removes all keys matching pattern. Only a trailing '*' wildcard is supported.
func (m *MemoryCache) Clear(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.data {
		if matchPattern(key, pattern) {
			delete(m.data, key)
		}
	}
	return nil
}

func (m *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

// Close stops the expiry sweep.
func (m *MemoryCache) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

func (m *MemoryCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for key, item := range m.data {
				if item.expired(now) {
					delete(m.data, key)
				}
			}
			m.mu.Unlock()
		case <-m.done:
			return
		}
	}
}

func (i *cacheItem) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

func matchPattern(s, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(s, strings.TrimSuffix(pattern, "*"))
	}
	return s == pattern
}
