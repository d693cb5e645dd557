package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/vango-dev/catalog/internal/config"
	"github.com/vango-dev/catalog/pkg/cache"
	"github.com/vango-dev/catalog/pkg/catalog"
	"github.com/vango-dev/catalog/pkg/catalog/fakestore"
	"github.com/vango-dev/catalog/pkg/features/filter"
	"github.com/vango-dev/catalog/pkg/render"
)

// app is the object graph shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	source   *catalog.CachedSource
	selector *render.Selector
	views    *render.Views
}

func loadApp(opts *globalOptions, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(opts.configDir)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	return newApp(cfg, cfg.Log.NewLogger(logOut)), nil
}

func newApp(cfg *config.Config, logger *slog.Logger) *app {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var limiter *rate.Limiter
	if cfg.API.RateLimit > 0 {
		burst := cfg.API.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.API.RateLimit), burst)
	}
	client := fakestore.New(fakestore.Config{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout.Std(),
		Limiter:    limiter,
		Logger:     logger,
		Registerer: reg,
	})

	cacheOpts := []cache.Option{
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
		cache.WithLogger(logger),
		cache.WithMetrics(cache.NewMetrics(reg, "catalog")),
	}
	source := catalog.NewCachedSource(client, catalog.TTLs{
		Catalog:    cfg.Cache.Catalog.Std(),
		Product:    cfg.Cache.Product.Std(),
		Categories: cfg.Cache.Categories.Std(),
	}, cacheOpts...)

	selector := render.NewSelector(render.Config{
		Source:          source,
		BaseRoute:       cfg.Server.BaseRoute,
		SearchKey:       cfg.Search.QueryKey,
		CategoryKey:     cfg.Search.FilterKey,
		MaxSearchLength: cfg.Search.MaxLength,
		ListTTL:         cfg.Cache.ListPage.Std(),
		DetailTTL:       cfg.Cache.DetailPage.Std(),
		CacheOptions:    cacheOpts,
		Logger:          logger,
	})
	views := render.MustViews(render.ViewConfig{
		BaseRoute:       cfg.Server.BaseRoute,
		SearchKey:       cfg.Search.QueryKey,
		CategoryKey:     cfg.Search.FilterKey,
		MaxSearchLength: cfg.Search.MaxLength,
		Live:            cfg.Live.Enabled,
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		source:   source,
		selector: selector,
		views:    views,
	}
}

// filters returns the category filter, allowing every known category.
func (a *app) filters(ctx context.Context) ([]filter.Config, error) {
	cats, err := a.selector.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return []filter.Config{{Key: a.cfg.Search.FilterKey, AllowedValues: cats}}, nil
}

// wait drains background cache refreshes.
func (a *app) wait() {
	a.selector.Wait()
	a.source.Wait()
}
