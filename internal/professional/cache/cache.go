// Package cache provides the directory listing cache and the invalidation
// coordinator that keeps it coherent with lifecycle transitions.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Cache is the minimal capability the professional directory needs from a
// cache backend. Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached payload and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores the payload under key with the given TTL.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	// Remove deletes the keys. Missing keys are not an error.
	Remove(ctx context.Context, keys ...string) error
}

// Key builders. Every reader and the invalidator must agree on these.

// KeyProfessional is the per-profile cache key.
func KeyProfessional(id uuid.UUID) string {
	return "professional:" + id.String()
}

// KeyActiveListing is the full public directory listing.
const KeyActiveListing = "professionals:active"

// KeySpecialtyListing is the public listing filtered to one specialty.
func KeySpecialtyListing(specialty string) string {
	return fmt.Sprintf("professionals:specialty:%s", specialty)
}
