// Package urlparam keeps query parameters and the address bar in step.
//
// Three layers live here:
//
//   - Params is an ordered query parameter set with a lossless
//     encode/parse round trip.
//   - Navigator is the platform primitive: read the current parameters,
//     push a URL, report whether a navigation is in flight. History is the
//     in-process implementation used by live sessions.
//   - Controller composes target URLs from a base route, upserts and
//     deletions, and pushes them through a Navigator.
//
// Example:
//
//	nav := urlparam.NewHistory(urlparam.HistoryConfig[string]{
//	    URL:        "/products?category=electronics",
//	    Dispatcher: loop,
//	    Render:     renderResults,
//	})
//	ctrl := urlparam.NewController(nav, "/products")
//	ctrl.Navigate(map[string]string{"search": "shirt"})
//	// nav.URL() == "/products?category=electronics&search=shirt"
//
// History and Controller are not safe for concurrent use. They belong to a
// single page view and are driven from its event loop.
package urlparam
