package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/vango-dev/catalog/pkg/catalog"
)

//go:embed templates/*.html
var templateFS embed.FS

// SiteName is appended to page titles.
const SiteName = "Product Catalog"

// descriptionLimit bounds meta descriptions, in characters.
const descriptionLimit = 160

// Meta is the document head metadata of a page.
type Meta struct {
	Title       string
	Description string
}

// ProductMeta returns the detail page metadata for p, or the not-found
// title when p is nil.
func ProductMeta(p *catalog.Product) Meta {
	if p == nil {
		return Meta{Title: "Product Not Found"}
	}
	return Meta{
		Title:       p.Title + " | " + SiteName,
		Description: truncate(p.Description, descriptionLimit),
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// NotFoundKind selects the not-found page variant.
type NotFoundKind int

const (
	PageNotFound NotFoundKind = iota
	ProductNotFound
)

// ViewConfig configures Views.
type ViewConfig struct {
	BaseRoute       string
	SearchKey       string
	CategoryKey     string
	MaxSearchLength int

	// Live adds the live client script to list pages.
	Live bool
}

// Views renders pages and fragments.
type Views struct {
	cfg     ViewConfig
	pages   map[string]*template.Template
	results *template.Template
}

// Chrome is the layout data embedded in every page.
type Chrome struct {
	Meta      Meta
	BaseRoute string
	Live      bool
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

type resultsData struct {
	Products []catalog.Product
	Query    catalog.Query
	Failed   bool
	RetryURL string
}

type listData struct {
	Chrome
	SearchKey   string
	CategoryKey string
	Search      string
	MaxLength   int
	Options     []option
	HasActive   bool
	Results     resultsData
}

type detailData struct {
	Chrome
	Product catalog.Product
}

type notFoundData struct {
	Chrome
	Heading string
	Message string
}

type errorData struct {
	Chrome
	RetryURL string
}

// NewViews parses the embedded templates.
func NewViews(cfg ViewConfig) (*Views, error) {
	if cfg.BaseRoute == "" {
		cfg.BaseRoute = "/products"
	}
	if cfg.SearchKey == "" {
		cfg.SearchKey = "search"
	}
	if cfg.CategoryKey == "" {
		cfg.CategoryKey = "category"
	}
	if cfg.MaxSearchLength <= 0 {
		cfg.MaxSearchLength = 100
	}

	funcs := template.FuncMap{
		"label": catalog.FormatLabel,
		"price": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
		"productURL": func(p catalog.Product) string {
			return strings.TrimRight(cfg.BaseRoute, "/") + "/" + p.Key()
		},
	}

	base, err := template.New("base").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/results.html")
	if err != nil {
		return nil, fmt.Errorf("render: parse layout: %w", err)
	}

	v := &Views{cfg: cfg, pages: make(map[string]*template.Template)}
	v.results = base.Lookup("results")

	for _, name := range []string{"home", "list", "detail", "notfound", "error"} {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("render: clone layout: %w", err)
		}
		page, err := clone.ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("render: parse %s: %w", name, err)
		}
		v.pages[name] = page
	}
	return v, nil
}

// MustViews is like NewViews but panics on error.
func MustViews(cfg ViewConfig) *Views {
	v, err := NewViews(cfg)
	if err != nil {
		panic(err)
	}
	return v
}

func (v *Views) frame(meta Meta, live bool) Chrome {
	return Chrome{Meta: meta, BaseRoute: v.cfg.BaseRoute, Live: live}
}

func (v *Views) page(w io.Writer, name string, data any) error {
	return v.pages[name].ExecuteTemplate(w, "layout", data)
}

// Home renders the landing page.
func (v *Views) Home(w io.Writer) error {
	return v.page(w, "home", struct{ Chrome }{v.frame(Meta{
		Title:       SiteName,
		Description: "Browse our product catalog.",
	}, false)})
}

// List renders a full list page.
func (v *Views) List(w io.Writer, page ListPage) error {
	opts := make([]option, 0, len(page.Categories))
	for _, c := range page.Categories {
		opts = append(opts, option{Value: c, Label: catalog.FormatLabel(c), Selected: c == page.Query.Category})
	}
	title := "Products | " + SiteName
	return v.page(w, "list", listData{
		Chrome:      v.frame(Meta{Title: title, Description: "Search and filter the product catalog."}, v.cfg.Live),
		SearchKey:   v.cfg.SearchKey,
		CategoryKey: v.cfg.CategoryKey,
		Search:      page.Query.Search,
		MaxLength:   v.cfg.MaxSearchLength,
		Options:     opts,
		HasActive:   !page.Query.IsZero(),
		Results:     resultsData{Products: page.Products, Query: page.Applied},
	})
}

// Results renders the results fragment of a list page.
func (v *Views) Results(w io.Writer, page ListPage) error {
	return v.results.Execute(w, resultsData{Products: page.Products, Query: page.Applied})
}

// ResultsError renders the results fragment for a failed fetch.
func (v *Views) ResultsError(w io.Writer, retryURL string) error {
	return v.results.Execute(w, resultsData{Failed: true, RetryURL: retryURL})
}

// Detail renders a product page.
func (v *Views) Detail(w io.Writer, page DetailPage) error {
	return v.page(w, "detail", detailData{
		Chrome:  v.frame(ProductMeta(&page.Product), false),
		Product: page.Product,
	})
}

// NotFound renders a not-found page.
func (v *Views) NotFound(w io.Writer, kind NotFoundKind) error {
	data := notFoundData{
		Chrome:  v.frame(Meta{Title: "Page Not Found"}, false),
		Heading: "Page Not Found",
		Message: "The page you are looking for does not exist.",
	}
	if kind == ProductNotFound {
		data.Chrome.Meta = ProductMeta(nil)
		data.Heading = "Product Not Found"
		data.Message = "We couldn't find the product you were looking for."
	}
	return v.page(w, "notfound", data)
}

// Error renders the recoverable failure page. Try Again re-requests
// retryURL.
func (v *Views) Error(w io.Writer, retryURL string) error {
	return v.page(w, "error", errorData{
		Chrome:   v.frame(Meta{Title: "Something went wrong! | " + SiteName}, false),
		RetryURL: retryURL,
	})
}
