package repository

import (
	"context"
	"time"
)

// CacheRepository is a string key-value cache with expiry.
// A zero ttl keeps the value until it is evicted.
type CacheRepository interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}
