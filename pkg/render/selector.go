package render

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/catalog/pkg/cache"
	"github.com/vango-dev/catalog/pkg/catalog"
	"github.com/vango-dev/catalog/pkg/features/resource"
	"github.com/vango-dev/catalog/pkg/urlparam"
)

// Mode is the delivery strategy used for a list page.
type Mode int

const (
	// Cached pages come from the route snapshot.
	Cached Mode = iota
	// Fresh pages were computed for this request.
	Fresh
)

// String returns the mode as sent in the X-Render-Mode header.
func (m Mode) String() string {
	if m == Fresh {
		return "fresh"
	}
	return "cached"
}

// ListPage is the data behind a list page.
type ListPage struct {
	Mode       Mode
	Products   []catalog.Product
	Categories []string

	// Query echoes the request parameters. Applied is what the pipeline
	// used after dropping an unknown category or an over-long search.
	Query   catalog.Query
	Applied catalog.Query

	RenderedAt time.Time
}

// DetailPage is the data behind a detail page.
type DetailPage struct {
	Product    catalog.Product
	RenderedAt time.Time
}

// Config configures a Selector.
type Config struct {
	// Source provides product data, typically a *catalog.CachedSource.
	Source catalog.Source

	// BaseRoute keys the list snapshot. Default: "/products".
	BaseRoute string

	// SearchKey and CategoryKey name the list parameters.
	// Defaults: "search" and "category".
	SearchKey   string
	CategoryKey string

	// MaxSearchLength bounds honoured search terms, in characters.
	// Default: 100.
	MaxSearchLength int

	// ListTTL is the snapshot revalidation period. Default: 1h.
	ListTTL time.Duration

	// DetailTTL is the detail page revalidation period. Default: 24h.
	DetailTTL time.Duration

	// CacheOptions apply to both page caches.
	CacheOptions []cache.Option

	// Clock replaces time.Now for page timestamps and cache expiry.
	Clock func() time.Time

	Logger *slog.Logger
}

// Selector routes page requests to the cached or fresh path.
type Selector struct {
	cfg     Config
	src     catalog.Source
	lists   *cache.Cache[ListPage]
	details *cache.Cache[DetailPage]
	tracer  trace.Tracer
	now     func() time.Time
}

// NewSelector creates a Selector.
func NewSelector(cfg Config) *Selector {
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
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = time.Hour
	}
	if cfg.DetailTTL <= 0 {
		cfg.DetailTTL = 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	base := []cache.Option{cache.WithLogger(cfg.Logger), cache.WithClock(cfg.Clock)}
	listOpts := append(append([]cache.Option{cache.StaleWhileRevalidate()}, base...), cfg.CacheOptions...)
	detailOpts := append(append([]cache.Option(nil), base...), cfg.CacheOptions...)

	return &Selector{
		cfg:     cfg,
		src:     cfg.Source,
		lists:   cache.New[ListPage]("list_page", cfg.ListTTL, listOpts...),
		details: cache.New[DetailPage]("detail_page", cfg.DetailTTL, detailOpts...),
		tracer:  otel.Tracer("catalog/render"),
		now:     cfg.Clock,
	}
}

// BaseRoute returns the list route.
func (s *Selector) BaseRoute() string { return s.cfg.BaseRoute }

// SearchKey returns the search parameter name.
func (s *Selector) SearchKey() string { return s.cfg.SearchKey }

// CategoryKey returns the category parameter name.
func (s *Selector) CategoryKey() string { return s.cfg.CategoryKey }

// MaxSearchLength returns the longest honoured search term.
func (s *Selector) MaxSearchLength() int { return s.cfg.MaxSearchLength }

// QueryFrom reads the list parameters. Empty values count as absent.
func (s *Selector) QueryFrom(p urlparam.Params) catalog.Query {
	return catalog.Query{
		Search:   p.Get(s.cfg.SearchKey),
		Category: p.Get(s.cfg.CategoryKey),
	}
}

// ListURL renders the list page for a path-plus-query address.
func (s *Selector) ListURL(ctx context.Context, url string) (ListPage, error) {
	_, params, err := urlparam.SplitURL(url)
	if err != nil {
		return ListPage{}, fmt.Errorf("render: %w", err)
	}
	return s.List(ctx, s.QueryFrom(params))
}

// List returns the list page for q. Without parameters it is the route
// snapshot; otherwise it is computed fresh.
func (s *Selector) List(ctx context.Context, q catalog.Query) (page ListPage, err error) {
	ctx, span := s.tracer.Start(ctx, "render.list")
	defer func() {
		span.SetAttributes(
			attribute.String("render.mode", page.Mode.String()),
			attribute.Int("render.products", len(page.Products)),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if q.IsZero() {
		page, err = s.lists.Load(ctx, s.cfg.BaseRoute, s.buildSnapshot)
		page.Mode = Cached
		return page, err
	}
	return s.fresh(ctx, q)
}

func (s *Selector) buildSnapshot(ctx context.Context) (ListPage, error) {
	products, err := s.src.List(ctx)
	if err != nil {
		return ListPage{}, err
	}
	categories, err := s.src.Categories(ctx)
	if err != nil {
		return ListPage{}, err
	}
	return ListPage{
		Mode:       Cached,
		Products:   products,
		Categories: categories,
		RenderedAt: s.now(),
	}, nil
}

func (s *Selector) fresh(ctx context.Context, q catalog.Query) (ListPage, error) {
	categories, err := s.src.Categories(ctx)
	if err != nil {
		return ListPage{}, err
	}

	applied := q
	if applied.Category != "" && !slices.Contains(categories, applied.Category) {
		s.cfg.Logger.Debug("ignoring unknown category", "category", applied.Category)
		applied.Category = ""
	}
	if utf8.RuneCountInString(applied.Search) > s.cfg.MaxSearchLength {
		s.cfg.Logger.Debug("ignoring over-long search term", "length", utf8.RuneCountInString(applied.Search))
		applied.Search = ""
	}

	products, err := catalog.Search(ctx, s.src, applied)
	if err != nil {
		return ListPage{}, err
	}
	return ListPage{
		Mode:       Fresh,
		Products:   products,
		Categories: categories,
		Query:      q,
		Applied:    applied,
		RenderedAt: s.now(),
	}, nil
}

// Detail returns the detail page for id.
func (s *Selector) Detail(ctx context.Context, id string) resource.Outcome[DetailPage] {
	ctx, span := s.tracer.Start(ctx, "render.detail", trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	page, err := s.details.Load(ctx, id, func(ctx context.Context) (DetailPage, error) {
		return s.buildDetail(ctx, id)
	})
	out := resource.From(page, err)
	span.SetAttributes(attribute.String("render.outcome", out.State.String()))
	if out.State == resource.Failed {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out
}

func (s *Selector) buildDetail(ctx context.Context, id string) (DetailPage, error) {
	p, err := s.src.Get(ctx, id)
	if err != nil {
		return DetailPage{}, err
	}
	return DetailPage{Product: p, RenderedAt: s.now()}, nil
}

// Warm builds the list snapshot and one detail page per known product.
// Failures are collected; everything that succeeded stays cached.
func (s *Selector) Warm(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "render.warm")
	defer span.End()

	if err := s.lists.Warm(ctx, []string{s.cfg.BaseRoute}, func(ctx context.Context, _ string) (ListPage, error) {
		return s.buildSnapshot(ctx)
	}); err != nil {
		span.RecordError(err)
		return err
	}

	snapshot, _ := s.lists.Get(s.cfg.BaseRoute)
	if primer, ok := s.src.(interface{ Prime([]catalog.Product) }); ok {
		primer.Prime(snapshot.Products)
	}

	ids := make([]string, 0, len(snapshot.Products))
	for _, p := range snapshot.Products {
		ids = append(ids, p.Key())
	}
	err := s.details.Warm(ctx, ids, s.buildDetail)
	if err != nil {
		span.RecordError(err)
	}
	s.cfg.Logger.Info("page cache warmed",
		"list_route", s.cfg.BaseRoute,
		"detail_pages", s.details.Len(),
		"failed", err != nil)
	return err
}

// KnownIDs returns the product identifiers in the list snapshot.
func (s *Selector) KnownIDs(ctx context.Context) ([]string, error) {
	page, err := s.lists.Load(ctx, s.cfg.BaseRoute, s.buildSnapshot)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(page.Products))
	for _, p := range page.Products {
		ids = append(ids, p.Key())
	}
	return ids, nil
}

// Categories returns the category names, which double as the allow-list of
// the category filter.
func (s *Selector) Categories(ctx context.Context) ([]string, error) {
	return s.src.Categories(ctx)
}

// Wait blocks until background snapshot refreshes have finished.
func (s *Selector) Wait() {
	s.lists.Wait()
	s.details.Wait()
}
