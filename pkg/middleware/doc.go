// Package middleware provides the catalog's net/http instrumentation.
//
// # OpenTelemetry Middleware
//
// OpenTelemetry starts a server span per request, named after the matched
// chi route pattern so /products/1 and /products/2 share a span name:
//
//	r := chi.NewRouter()
//	r.Use(middleware.OpenTelemetry(
//	    middleware.WithTracerName("catalog"),
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	))
//
// The span travels in the request context, so upstream calls made with
// r.Context() become its children.
//
// # Prometheus Metrics
//
// Prometheus records, per route pattern:
//   - catalog_http_requests_total: requests by route, method and status
//   - catalog_http_request_duration_seconds: latency histogram
//   - catalog_http_requests_in_flight: requests being served
//
//	reg := prometheus.NewRegistry()
//	r.Use(middleware.Prometheus(middleware.WithRegistry(reg)))
//	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package middleware
