package providers

import (
	"context"
)

// CacheProvider defines the interface for caching operations
type CacheProvider interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration
	Set(ctx context.Context, key string, value []byte, expirationSeconds int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// DeletePattern removes every key matching a glob pattern
	DeletePattern(ctx context.Context, pattern string) error

	// Exists checks if a key exists in cache
	Exists(ctx context.Context, key string) (bool, error)
}

// HTTPCacheKeyPrefix namespaces cached HTTP responses
const HTTPCacheKeyPrefix = "http:cache:"

// HTTPCacheKey builds the key of a cached response. The path stays readable
// so a whole route prefix can be invalidated with one pattern.
func HTTPCacheKey(path, variant string) string {
	return HTTPCacheKeyPrefix + path + "#" + variant
}

// HTTPCachePattern matches every cached response under a route prefix
func HTTPCachePattern(pathPrefix string) string {
	return HTTPCacheKeyPrefix + pathPrefix + "*"
}
