package services

import (
	"context"
	"time"
)

// Cache defines the interface for the TTL key-value store games live in
type Cache interface {
	// Ping tests the cache connection
	Ping(ctx context.Context) error

	// Set stores a key-value pair with optional expiration
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// SetNX stores the value only when the key is absent and reports whether it did
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)

	// Get retrieves a value by key. A missing key yields "" and no error.
	Get(ctx context.Context, key string) (string, error)

	// Del deletes one or more keys
	Del(ctx context.Context, keys ...string) error

	// Exists checks if keys exist
	Exists(ctx context.Context, keys ...string) (bool, error)

	// Close closes the cache connection
	Close() error

	// WaitForConnection waits for cache to be available with retries
	WaitForConnection(ctx context.Context) error
}
