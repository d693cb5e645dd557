package catalog

import (
	"context"
	"time"

	"github.com/vango-dev/catalog/pkg/cache"
)

// TTLs holds the revalidation period of each Source operation.
type TTLs struct {
	Catalog    time.Duration // List and ListByCategory
	Product    time.Duration // Get
	Categories time.Duration // Categories
}

// CachedSource fronts a Source with one cache per operation.
type CachedSource struct {
	src        Source
	lists      *cache.Cache[[]Product]
	products   *cache.Cache[Product]
	categories *cache.Cache[[]string]
}

// allKey is the lists cache key of the full catalog; category lists use
// "category:" + name.
const allKey = "all"

// NewCachedSource wraps src. opts apply to every underlying cache.
func NewCachedSource(src Source, ttls TTLs, opts ...cache.Option) *CachedSource {
	return &CachedSource{
		src:        src,
		lists:      cache.New[[]Product]("catalog", ttls.Catalog, opts...),
		products:   cache.New[Product]("product", ttls.Product, opts...),
		categories: cache.New[[]string]("categories", ttls.Categories, opts...),
	}
}

// List returns every product.
func (s *CachedSource) List(ctx context.Context) ([]Product, error) {
	return s.lists.Load(ctx, allKey, s.src.List)
}

// Get returns one product. Misses are not cached, so an item that appears
// upstream later becomes visible on the next request.
func (s *CachedSource) Get(ctx context.Context, id string) (Product, error) {
	return s.products.Load(ctx, id, func(ctx context.Context) (Product, error) {
		return s.src.Get(ctx, id)
	})
}

// ListByCategory returns the products of one category.
func (s *CachedSource) ListByCategory(ctx context.Context, category string) ([]Product, error) {
	return s.lists.Load(ctx, "category:"+category, func(ctx context.Context) ([]Product, error) {
		return s.src.ListByCategory(ctx, category)
	})
}

// Categories returns the category names.
func (s *CachedSource) Categories(ctx context.Context) ([]string, error) {
	return s.categories.Load(ctx, allKey, s.src.Categories)
}

// Prime stores products as individual entries, so detail lookups after a
// catalog fetch skip the upstream call.
func (s *CachedSource) Prime(products []Product) {
	for _, p := range products {
		s.products.Set(p.Key(), p)
	}
}

// Wait blocks until background revalidations have finished.
func (s *CachedSource) Wait() {
	s.lists.Wait()
	s.products.Wait()
	s.categories.Wait()
}

var _ Source = (*CachedSource)(nil)
