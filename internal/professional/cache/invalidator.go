package cache

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Invalidator drops the cache entries a lifecycle transition makes stale.
// It runs after the transition has committed, so failures are absorbed and
// logged: a stale listing expires on its own TTL, the store stays correct.
type Invalidator struct {
	cache  Cache
	logger *slog.Logger
}

// NewInvalidator builds an Invalidator over the given backend. A nil cache
// yields a no-op invalidator.
func NewInvalidator(c Cache, logger *slog.Logger) *Invalidator {
	return &Invalidator{cache: c, logger: logger}
}

// OnProfileChanged invalidates the per-profile entry plus every listing the
// professional can appear in.
func (i *Invalidator) OnProfileChanged(ctx context.Context, id uuid.UUID, specialty string) {
	if i == nil || i.cache == nil {
		return
	}
	keys := []string{
		KeyProfessional(id),
		KeyActiveListing,
	}
	if specialty != "" {
		keys = append(keys, KeySpecialtyListing(specialty))
	}
	if err := i.cache.Remove(ctx, keys...); err != nil {
		i.logger.Warn("cache invalidation failed",
			"professional_id", id,
			"keys", keys,
			"error", err,
		)
	}
}
