package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// CacheService is the response-cache boundary. Implementations marshal
// values as JSON.
type CacheService interface {
	// Get retrieves a value from the cache into the dest pointer.
	Get(ctx context.Context, key string, dest interface{}) error

	// Set stores a value in the cache with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error
}

// Key builds a cache key from a namespace and the request's identity
// parts (content, model, prompt version, parameters). The parts are
// hashed so arbitrary content stays within key-size limits.
func Key(namespace string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return "ai:" + namespace + ":" + hex.EncodeToString(sum[:])
}
