// Package resource classifies data-fetch results into the outcomes a page
// renders differently.
//
// A fetch ends in one of three states:
//
//   - Ready: the data is available.
//   - NotFound: the upstream has no such item. Terminal, never retried.
//   - Failed: any other failure. The page offers a retry that re-issues
//     the same fetch.
//
// Basic Usage:
//
//	out := resource.Fetch(ctx, func(ctx context.Context) (catalog.Product, error) {
//	    return src.Get(ctx, id)
//	})
//
//	return resource.Match(out,
//	    resource.OnReady(func(p catalog.Product) string { return detail(p) }),
//	    resource.OnNotFound[catalog.Product](func() string { return notFound() }),
//	    resource.OnFailed[catalog.Product](func(err error) string { return errorPage(err) }),
//	)
package resource
