package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/catalog/pkg/catalog"
)

var sample = catalog.Product{
	ID:          7,
	Title:       "White Gold Plated Princess",
	Price:       9.99,
	Category:    "jewelery",
	Image:       "https://fakestoreapi.com/img/71YaJDq7zUL._AC_UL640_QL65_ML3_.jpg",
	Description: strings.Repeat("Classic Created Wedding Engagement Solitaire Diamond Promise Ring. ", 4),
	Rating:      catalog.Rating{Rate: 3, Count: 400},
}

func render(t *testing.T, fn func(*bytes.Buffer) error) string {
	t.Helper()
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		t.Fatalf("render error: %v", err)
	}
	return buf.String()
}

func expectContains(t *testing.T, html string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(html, w) {
			t.Errorf("output missing %q", w)
		}
	}
}

func TestProductMeta(t *testing.T) {
	m := ProductMeta(&sample)
	if m.Title != "White Gold Plated Princess | Product Catalog" {
		t.Errorf("Title = %q", m.Title)
	}
	if got := len([]rune(m.Description)); got != 160 {
		t.Errorf("description length = %d, want 160", got)
	}
	if !strings.HasPrefix(sample.Description, m.Description) {
		t.Error("description should be a prefix of the product description")
	}

	short := catalog.Product{Title: "x", Description: "short"}
	if got := ProductMeta(&short).Description; got != "short" {
		t.Errorf("short description = %q", got)
	}
	if got := ProductMeta(nil).Title; got != "Product Not Found" {
		t.Errorf("missing product title = %q", got)
	}
}

func TestViewsList(t *testing.T) {
	v := MustViews(ViewConfig{Live: true})
	page := ListPage{
		Mode:       Fresh,
		Products:   []catalog.Product{sample},
		Categories: []string{"electronics", "jewelery", "men's clothing"},
		Query:      catalog.Query{Search: "<princess>", Category: "jewelery"},
		Applied:    catalog.Query{Search: "<princess>", Category: "jewelery"},
		RenderedAt: time.Now(),
	}

	html := render(t, func(b *bytes.Buffer) error { return v.List(b, page) })
	expectContains(t, html,
		"<title>Products | Product Catalog</title>",
		`value="&lt;princess&gt;"`,
		`<option value="jewelery" selected>Jewelery</option>`,
		"Men&#39;s Clothing",
		`href="/products/7"`,
		"$9.99",
		`/_catalog/live.js`,
		`id="clear-all"`,
		"1 product",
	)
	if strings.Contains(html, "<princess>") {
		t.Error("search term was not escaped")
	}
	if strings.Contains(html, `id="clear-all" href="/products" hidden`) {
		t.Error("clear all hidden while filters are active")
	}
}

func TestViewsListNamesLiveKeys(t *testing.T) {
	v := MustViews(ViewConfig{SearchKey: "q", CategoryKey: "dept", Live: true})
	html := render(t, func(b *bytes.Buffer) error { return v.List(b, ListPage{Categories: []string{"electronics"}}) })

	expectContains(t, html,
		`data-search-key="q"`,
		`data-filter-key="dept"`,
		`<input type="search" name="q"`,
		`<select name="dept"`,
	)
}

func TestViewsListWithoutParams(t *testing.T) {
	v := MustViews(ViewConfig{})
	html := render(t, func(b *bytes.Buffer) error { return v.List(b, ListPage{Categories: []string{"electronics"}}) })

	expectContains(t, html, "No products found.", `hidden`)
	if strings.Contains(html, "live.js") {
		t.Error("live script included without Live")
	}
}

func TestViewsDetailAndNotFound(t *testing.T) {
	v := MustViews(ViewConfig{})

	detail := render(t, func(b *bytes.Buffer) error { return v.Detail(b, DetailPage{Product: sample}) })
	expectContains(t, detail,
		"<title>White Gold Plated Princess | Product Catalog</title>",
		`<meta name="description"`,
		"3.0 / 5 (400 reviews)",
		"Jewelery",
	)

	product := render(t, func(b *bytes.Buffer) error { return v.NotFound(b, ProductNotFound) })
	expectContains(t, product, "<title>Product Not Found</title>", "<h1>Product Not Found</h1>")

	page := render(t, func(b *bytes.Buffer) error { return v.NotFound(b, PageNotFound) })
	expectContains(t, page, "<h1>Page Not Found</h1>")
}

func TestViewsError(t *testing.T) {
	v := MustViews(ViewConfig{})

	html := render(t, func(b *bytes.Buffer) error { return v.Error(b, "/products?search=bag") })
	expectContains(t, html, "Something went wrong!", "Try Again", `href="/products?search=bag"`)

	frag := render(t, func(b *bytes.Buffer) error { return v.ResultsError(b, "/products?search=bag") })
	expectContains(t, frag, "Something went wrong!", "data-retry")
	if strings.Contains(frag, "<html") {
		t.Error("fragment should not include the layout")
	}
}

func TestViewsHome(t *testing.T) {
	v := MustViews(ViewConfig{BaseRoute: "/shop"})
	html := render(t, func(b *bytes.Buffer) error { return v.Home(b) })
	expectContains(t, html, "<title>Product Catalog</title>", `href="/shop"`)
}
