// Package catalog defines the product data model and the read-only data
// source contract the rest of the catalog consumes.
//
// A Source has four operations: list all items, get one item, list the items
// of a category and list the category names. Get distinguishes a missing item
// (ErrNotFound) from a failed request (*TransportError); every consumer maps
// the two to different presentations.
//
// NewCachedSource wraps any Source with per-operation revalidation periods.
// Search runs the list page's filter pipeline on top of a Source.
package catalog
