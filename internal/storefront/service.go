package storefront

import (
	"context"
	"time"

	"go.uber.org/zap"

	"catalog-builder-service/internal/cache"
	"catalog-builder-service/internal/domain"
	"catalog-builder-service/internal/metrics"
)

// CatalogReader loads the public read model of a catalog.
type CatalogReader interface {
	GetPublicCatalog(ctx context.Context, slug string) (*domain.PublicCatalog, error)
}

// Service serves storefront pages through the page cache.
type Service struct {
	store   CatalogReader
	cache   cache.PageCache
	metrics *metrics.Metrics
	ttl     time.Duration
	baseURL string
}

func NewService(store CatalogReader, pages cache.PageCache, m *metrics.Metrics, ttl time.Duration, baseURL string) *Service {
	if pages == nil {
		pages = cache.Noop{}
	}
	return &Service{store: store, cache: pages, metrics: m, ttl: ttl, baseURL: baseURL}
}

// Page returns the storefront of the active catalog with slug. Store errors,
// including the catalog's NotFound, are returned unchanged. Cache failures
// only cost a rebuild.
func (s *Service) Page(ctx context.Context, slug string) (*Page, error) {
	path := cache.PublicPath(slug)

	var cached Page
	hit, err := s.cache.GetJSON(ctx, path, &cached)
	if err != nil {
		zap.S().Warnf("storefront: cache read %s failed: %v", path, err)
		s.metrics.Error("page_cache")
	}
	s.metrics.CacheLookup(hit)
	if hit {
		return &cached, nil
	}

	pc, err := s.store.GetPublicCatalog(ctx, slug)
	if err != nil {
		return nil, err
	}
	page := Build(*pc, s.baseURL)

	if err := s.cache.SetJSON(ctx, path, page, s.ttl); err != nil {
		zap.S().Warnf("storefront: cache write %s failed: %v", path, err)
		s.metrics.Error("page_cache")
	}
	return &page, nil
}
