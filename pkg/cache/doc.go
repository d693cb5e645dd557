// Package cache provides the time-based caches behind the catalog.
//
// Each Cache holds one key class (product lists, single products, category
// names, rendered pages) with a fixed revalidation period. Entries older than
// the period are revalidated on the next read: by default the caller waits
// for the refill, and with StaleWhileRevalidate the stale entry is returned
// immediately while a single background refill runs. Concurrent misses for
// the same key share one fill through a singleflight group.
//
// A failed refill never evicts a stale entry: the stale value is served and
// the error is logged, so an upstream outage degrades to stale content
// instead of an error page.
//
// Warm pre-materializes a set of known keys at startup.
//
//	products := cache.New[[]catalog.Product]("catalog", time.Hour)
//	list, err := products.Load(ctx, "all", func(ctx context.Context) ([]catalog.Product, error) {
//	    return src.List(ctx)
//	})
package cache
