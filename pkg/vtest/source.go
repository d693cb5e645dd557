package vtest

import (
	"context"
	"sync"

	"github.com/vango-dev/catalog/pkg/catalog"
)

// Source is an in-memory catalog.Source.
type Source struct {
	mu       sync.Mutex
	products []catalog.Product
	calls    map[string]int
	err      error
}

// NewSource creates a source serving products.
func NewSource(products ...catalog.Product) *Source {
	return &Source{products: products, calls: make(map[string]int)}
}

// Products returns a small fixed catalog spanning three categories.
func Products() []catalog.Product {
	return []catalog.Product{
		{ID: 1, Title: "Fjallraven Foldsack Backpack", Price: 109.95, Category: "men's clothing",
			Description: "Your perfect pack for everyday use and walks in the forest.",
			Rating:      catalog.Rating{Rate: 3.9, Count: 120}},
		{ID: 2, Title: "Mens Casual Premium Slim Fit T-Shirts", Price: 22.3, Category: "men's clothing",
			Description: "Slim-fitting style, contrast raglan long sleeve.",
			Rating:      catalog.Rating{Rate: 4.1, Count: 259}},
		{ID: 9, Title: "WD 2TB Elements Portable External Hard Drive", Price: 64, Category: "electronics",
			Description: "USB 3.0 and USB 2.0 compatibility.",
			Rating:      catalog.Rating{Rate: 3.3, Count: 203}},
		{ID: 19, Title: "Opna Women's Short Sleeve Moisture Shirt", Price: 7.95, Category: "women's clothing",
			Description: "100% Polyester, machine wash.",
			Rating:      catalog.Rating{Rate: 4.5, Count: 146}},
	}
}

// Fail makes every later call return err. Nil restores normal service.
func (s *Source) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Calls returns how often op ("list", "get", "category", "categories") was
// called.
func (s *Source) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Source) begin(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	return s.err
}

// List implements catalog.Source.
func (s *Source) List(ctx context.Context) ([]catalog.Product, error) {
	if err := s.begin("list"); err != nil {
		return nil, err
	}
	return append([]catalog.Product(nil), s.products...), nil
}

// Get implements catalog.Source.
func (s *Source) Get(ctx context.Context, id string) (catalog.Product, error) {
	if err := s.begin("get"); err != nil {
		return catalog.Product{}, err
	}
	for _, p := range s.products {
		if p.Key() == id {
			return p, nil
		}
	}
	return catalog.Product{}, catalog.ErrNotFound
}

// ListByCategory implements catalog.Source.
func (s *Source) ListByCategory(ctx context.Context, category string) ([]catalog.Product, error) {
	if err := s.begin("category"); err != nil {
		return nil, err
	}
	var out []catalog.Product
	for _, p := range s.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

// Categories implements catalog.Source.
func (s *Source) Categories(ctx context.Context) ([]string, error) {
	if err := s.begin("categories"); err != nil {
		return nil, err
	}
	var out []string
	seen := make(map[string]bool)
	for _, p := range s.products {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out, nil
}

var _ catalog.Source = (*Source)(nil)
