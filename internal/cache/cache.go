package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache is the key/value store behind sessions, booking drafts and directory listings.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context, pattern string) error
	Ping(ctx context.Context) error
}

// Key joins key segments with ':'.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// GetJSON loads key and decodes it into dst.
func GetJSON(ctx context.Context, c Cache, key string, dst interface{}) error {
	b, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, v interface{}, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, b, ttl)
}
