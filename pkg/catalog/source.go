package catalog

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Source.Get when the item does not exist.
var ErrNotFound = errors.New("catalog: product not found")

// Source is the remote product data source.
type Source interface {
	// List returns every product.
	List(ctx context.Context) ([]Product, error)

	// Get returns one product. A missing product yields ErrNotFound.
	Get(ctx context.Context, id string) (Product, error)

	// ListByCategory returns the products of one category.
	ListByCategory(ctx context.Context, category string) ([]Product, error)

	// Categories returns the category names.
	Categories(ctx context.Context) ([]string, error)
}

// TransportError describes a failed request that is not a missing item.
type TransportError struct {
	Op     string // Operation that failed (list, get, category, categories)
	Status int    // HTTP status, 0 when no response was received
	Err    error  // Underlying error
}

// Error returns the error message with operation context.
func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("catalog: %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("catalog: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err marks a missing item.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
