package catalog

import (
	"context"
	"strings"
)

// Query is the list page's search/filter input.
type Query struct {
	Search   string
	Category string
}

// IsZero reports whether neither parameter is set.
func (q Query) IsZero() bool {
	return q.Search == "" && q.Category == ""
}

// Search runs the filter pipeline: the category list is fetched when a
// category is given (narrower upstream query), otherwise the full catalog;
// a search term then keeps the products whose title contains it,
// ignoring case.
func Search(ctx context.Context, src Source, q Query) ([]Product, error) {
	var (
		products []Product
		err      error
	)
	if q.Category != "" {
		products, err = src.ListByCategory(ctx, q.Category)
	} else {
		products, err = src.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	return FilterByTitle(products, q.Search), nil
}

// FilterByTitle keeps the products whose title contains term as a
// case-insensitive substring. An empty term keeps everything. The input
// slice is not modified.
func FilterByTitle(products []Product, term string) []Product {
	if term == "" {
		return products
	}
	needle := strings.ToLower(term)

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Title), needle) {
			out = append(out, p)
		}
	}
	return out
}
