// Package features groups the page-view controllers of the catalog.
//
// Each subsystem is in its own sub-package:
//
//   - search: debounced, URL-backed search box
//   - filter: allow-listed query filters such as the category filter
//   - resource: the outcome of loading a single resource (ready, not found,
//     failed) and exhaustive matching over it
//
// The controllers are built on urlparam and are driven by one session loop
// per page view; see package session.
package features
