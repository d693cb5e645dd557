package catalog

import (
	"strconv"
	"strings"
	"unicode"
)

// Rating is the aggregated review score of a product.
type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Product is one catalog item as served by the product API.
type Product struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	Rating      Rating  `json:"rating"`
}

// Key returns the identifier as used in detail routes.
func (p Product) Key() string {
	return strconv.Itoa(p.ID)
}

// FormatLabel turns a category name into a display label:
// "men's clothing" becomes "Men's Clothing".
func FormatLabel(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
