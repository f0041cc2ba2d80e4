// Package kv abstracts the small key/value surface the cache and quota layers
// need, so they run against Redis in production and an in-memory store in
// tests or when no Redis URL is configured.
package kv

import (
	"context"
	"time"
)

// Store is the minimal key/value contract. Get returns ("", nil) for a
// missing key; callers treat any error as "storage unavailable" and degrade
// per their own policy.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
