package cache

import (
	"context"
	"time"
)

// Cache is the key-value contract used by services. Implementations must be
// safe for concurrent use.
type Cache interface {
	// Get returns ErrMiss when the key does not exist.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key. A non-positive TTL means no expiration.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del removes keys and returns how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// ErrMiss signals a cache miss, as opposed to a transport error.
var ErrMiss = errMiss{}

type errMiss struct{}

func (e errMiss) Error() string { return "cache: miss" }

// ActiveLocationsKey is the cache key for a group's active-location page
func ActiveLocationsKey(groupID string) string {
	return "locations:active:" + groupID
}

// RevokedTokenKey is the cache key marking a signed-out token id
func RevokedTokenKey(jti string) string {
	return "auth:revoked:" + jti
}
