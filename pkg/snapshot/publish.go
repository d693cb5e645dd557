package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	catalogerrors "github.com/vango-dev/catalog/internal/errors"
	"github.com/vango-dev/catalog/pkg/features/resource"
	"github.com/vango-dev/catalog/pkg/render"
)

const htmlContentType = "text/html; charset=utf-8"

// Publisher renders the home page, the cached list page and every detail
// page, and puts them into a Store.
type Publisher struct {
	Selector *render.Selector
	Views    *render.Views
	Store    Store

	// Parallelism bounds concurrent renders and uploads. Default: 4.
	Parallelism int

	Logger *slog.Logger
}

// Report summarizes a publish run.
type Report struct {
	Published []string
	Skipped   []string
	Failed    []string
}

type page struct {
	key    string
	render func(ctx context.Context, b *bytes.Buffer) error
}

// Publish uploads every page. It keeps going after individual failures
// and returns a CodePublish error listing them.
func (p *Publisher) Publish(ctx context.Context) (Report, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := p.Parallelism
	if limit <= 0 {
		limit = 4
	}

	ids, err := p.Selector.KnownIDs(ctx)
	if err != nil {
		return Report{}, catalogerrors.New(catalogerrors.CodePublish).
			WithDetail("the list snapshot could not be built").
			Wrap(err)
	}

	base := strings.Trim(p.Selector.BaseRoute(), "/")
	pages := []page{
		{key: "index.html", render: func(_ context.Context, b *bytes.Buffer) error { return p.Views.Home(b) }},
		{key: base + "/index.html", render: p.renderList},
	}
	for _, id := range ids {
		pages = append(pages, page{key: base + "/" + id + "/index.html", render: p.detailRenderer(id)})
	}

	var (
		mu     sync.Mutex
		report Report
		errs   []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, pg := range pages {
		g.Go(func() error {
			var b bytes.Buffer
			err := pg.render(gctx, &b)
			if errors.Is(err, errSkip) {
				mu.Lock()
				report.Skipped = append(report.Skipped, pg.key)
				mu.Unlock()
				return nil
			}
			if err == nil {
				err = p.Store.Put(gctx, pg.key, htmlContentType, b.Bytes())
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("page publish failed", "key", pg.key, "error", err)
				report.Failed = append(report.Failed, pg.key)
				errs = append(errs, fmt.Errorf("%s: %w", pg.key, err))
				return nil
			}
			report.Published = append(report.Published, pg.key)
			return nil
		})
	}
	g.Wait()

	slices.Sort(report.Published)
	slices.Sort(report.Skipped)
	slices.Sort(report.Failed)
	logger.Info("snapshot published",
		"published", len(report.Published),
		"skipped", len(report.Skipped),
		"failed", len(report.Failed))

	if len(errs) > 0 {
		return report, catalogerrors.New(catalogerrors.CodePublish).
			WithDetail(fmt.Sprintf("%d of %d pages failed", len(errs), len(pages))).
			Wrap(errors.Join(errs...))
	}
	return report, nil
}

// errSkip marks pages that have nothing to publish.
var errSkip = errors.New("snapshot: skip")

func (p *Publisher) renderList(ctx context.Context, b *bytes.Buffer) error {
	lp, err := p.Selector.ListURL(ctx, p.Selector.BaseRoute())
	if err != nil {
		return err
	}
	return p.Views.List(b, lp)
}

func (p *Publisher) detailRenderer(id string) func(context.Context, *bytes.Buffer) error {
	return func(ctx context.Context, b *bytes.Buffer) error {
		return resource.Match(p.Selector.Detail(ctx, id),
			resource.OnReady(func(dp render.DetailPage) error { return p.Views.Detail(b, dp) }),
			resource.OnNotFound[render.DetailPage](func() error { return errSkip }),
			resource.OnFailed[render.DetailPage](func(err error) error { return err }),
		)
	}
}
