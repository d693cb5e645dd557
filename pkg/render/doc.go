// Package render decides how each catalog page is produced and renders it
// to HTML.
//
// # Render Modes
//
// The list page has two delivery strategies. A request without search or
// category parameters is served from a snapshot cached under the route and
// revalidated every hour; an expired snapshot is served while a background
// refresh runs. A request carrying either parameter bypasses the snapshot
// and runs the filter pipeline against fresh data.
//
//	sel := render.NewSelector(render.Config{Source: src})
//	page, err := sel.List(ctx, catalog.Query{Search: "shirt"})
//	// page.Mode == render.Fresh
//
// Detail pages are cached per identifier for a day and can be populated
// ahead of traffic with Warm. An unknown identifier settles as a NotFound
// outcome rather than an error.
//
// # Views
//
// Views renders pages with html/template. Page chrome, metadata and the
// results fragment pushed to live sessions all come from the templates
// embedded in this package.
package render
