package services

import (
	"context"
	"time"

	"github.com/krafta/backend/internal/domain/providers"
	"github.com/krafta/backend/internal/infrastructure/observability"
)

// Route prefixes whose cached responses go stale after a write
const (
	PathCustomer     = "/api/customer"
	PathProfessional = "/api/professional"
	PathAdmin        = "/api/admin"
	PathTechnicians  = "/api/technicians"
)

// Revalidator drops cached responses under the given route prefixes
type Revalidator interface {
	Revalidate(ctx context.Context, paths ...string)
}

// CacheInvalidationService deletes cached HTTP responses by route prefix
type CacheInvalidationService struct {
	cache   providers.CacheProvider
	timeout time.Duration
}

// NewCacheInvalidationService creates a new cache invalidation service. A nil
// cache makes every call a no-op.
func NewCacheInvalidationService(cache providers.CacheProvider) *CacheInvalidationService {
	return &CacheInvalidationService{
		cache:   cache,
		timeout: 2 * time.Second,
	}
}

// Revalidate deletes every cached response under each path. Failures are
// logged; the write that triggered them has already succeeded.
func (s *CacheInvalidationService) Revalidate(ctx context.Context, paths ...string) {
	if s == nil || s.cache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	logger := observability.LoggerFromContext(ctx)
	for _, path := range paths {
		pattern := providers.HTTPCachePattern(path)
		if err := s.cache.DeletePattern(ctx, pattern); err != nil {
			logger.Warn().Err(err).Str("pattern", pattern).Msg("Failed to invalidate cache")
			continue
		}
		logger.Debug().Str("pattern", pattern).Msg("Invalidated cache")
	}
}

// InvalidateAll drops every cached response
func (s *CacheInvalidationService) InvalidateAll(ctx context.Context) error {
	if s == nil || s.cache == nil {
		return nil
	}
	return s.cache.DeletePattern(ctx, providers.HTTPCacheKeyPrefix+"*")
}
