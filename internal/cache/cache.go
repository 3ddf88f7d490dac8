// Package cache provides a small key-value cache abstraction with
// multi-backend support.
//
// Backends:
//   - Memory (in-process, for development/testing)
//   - Redis (shared, for production)
//
// All values are strings with a per-key TTL. GetDel is the atomic
// read-and-delete used for single-use tokens.
package cache

import (
	"context"
	"time"
)

// Client defines the cache operations.
type Client interface {
	// Get returns a value. Returns ErrNotFound if the key does not exist
	// or has expired.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value with a TTL. A ttl of 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// GetDel atomically reads and deletes a key. Returns ErrNotFound if
	// the key does not exist. Two concurrent GetDel calls for the same key
	// can never both succeed.
	GetDel(ctx context.Context, key string) (string, error)

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// Config selects and configures a cache backend.
type Config struct {
	Driver   string // "memory" | "redis"
	Addr     string // redis host:port
	Password string
	DB       int
	Prefix   string // prefix applied to every key
}

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "cache: key not found" }

// IsNotFound reports whether err means the key was absent.
func IsNotFound(err error) bool {
	_, ok := err.(errNotFound)
	return ok
}

// New creates a cache client for the configured driver.
func New(cfg Config) (Client, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(cfg)
	default:
		return NewMemory(cfg.Prefix), nil
	}
}
