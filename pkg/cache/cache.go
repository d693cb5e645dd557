package cache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// FillFunc produces the value for a missing or expired key.
type FillFunc[V any] func(ctx context.Context) (V, error)

// Entry is a cached value with its freshness window.
type Entry[V any] struct {
	Value     V
	FetchedAt time.Time
	ExpiresAt time.Time
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	maxEntries   int
	swr          bool
	now          func() time.Time
	logger       *slog.Logger
	metrics      *Metrics
	fillTimeout  time.Duration
	warmParallel int
}

// WithMaxEntries bounds the cache; the least recently used entry is evicted
// when full. Zero means unbounded.
func WithMaxEntries(n int) Option {
	return func(o *options) { o.maxEntries = n }
}

// StaleWhileRevalidate serves expired entries immediately and refreshes them
// in the background.
func StaleWhileRevalidate() Option {
	return func(o *options) { o.swr = true }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger for fill failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records lookups and fills.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithFillTimeout bounds background refills. Default: 30 seconds.
func WithFillTimeout(d time.Duration) Option {
	return func(o *options) { o.fillTimeout = d }
}

// WithWarmParallelism bounds concurrent fills during Warm. Default: 4.
func WithWarmParallelism(n int) Option {
	return func(o *options) { o.warmParallel = n }
}

type item[V any] struct {
	key   string
	entry Entry[V]
}

// Cache is a TTL cache for one key class. It is safe for concurrent use.
type Cache[V any] struct {
	name string
	ttl  time.Duration
	opts options

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
	flight  singleflight.Group

	// bg tracks background refills so Close can wait for them.
	bg sync.WaitGroup
}

// New creates a cache named name whose entries expire after ttl.
func New[V any](name string, ttl time.Duration, opts ...Option) *Cache[V] {
	o := options{
		now:          time.Now,
		logger:       slog.Default(),
		fillTimeout:  30 * time.Second,
		warmParallel: 4,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		name:    name,
		ttl:     ttl,
		opts:    o,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Name returns the key class name.
func (c *Cache[V]) Name() string { return c.name }

// TTL returns the revalidation period.
func (c *Cache[V]) TTL() time.Duration { return c.ttl }

// Peek returns the entry for key without touching freshness or LRU order.
func (c *Cache[V]) Peek(key string) (Entry[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return Entry[V]{}, false
	}
	return elem.Value.(*item[V]).entry, true
}

// Get returns a fresh value for key. Expired entries are reported as absent.
func (c *Cache[V]) Get(key string) (V, bool) {
	entry, state := c.lookup(key)
	if state != stateFresh {
		var zero V
		return zero, false
	}
	return entry.Value, true
}

// Set stores value under key with a full revalidation period.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.now()
	entry := Entry[V]{Value: value, FetchedAt: now, ExpiresAt: now.Add(c.ttl)}

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*item[V]).entry = entry
		c.order.MoveToFront(elem)
		return
	}

	for c.opts.maxEntries > 0 && c.order.Len() >= c.opts.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*item[V]).key)
	}

	c.entries[key] = c.order.PushFront(&item[V]{key: key, entry: entry})
	c.opts.metrics.size(c.name, len(c.entries))
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.order.Remove(elem)
		delete(c.entries, key)
	}
	c.opts.metrics.size(c.name, len(c.entries))
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order = list.New()
	c.opts.metrics.size(c.name, 0)
}

// Len returns the number of entries, fresh or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the keys in most-recently-used order.
func (c *Cache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.order.Len())
	for e := c.order.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(*item[V]).key)
	}
	return keys
}

type lookupState int

const (
	stateMissing lookupState = iota
	stateStale
	stateFresh
)

func (c *Cache[V]) lookup(key string) (Entry[V], lookupState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return Entry[V]{}, stateMissing
	}
	c.order.MoveToFront(elem)
	entry := elem.Value.(*item[V]).entry
	if c.opts.now().Before(entry.ExpiresAt) {
		return entry, stateFresh
	}
	return entry, stateStale
}

// Load returns the value for key, calling fill when the key is missing or
// its revalidation period has elapsed.
func (c *Cache[V]) Load(ctx context.Context, key string, fill FillFunc[V]) (V, error) {
	entry, state := c.lookup(key)

	switch state {
	case stateFresh:
		c.opts.metrics.request(c.name, "hit")
		return entry.Value, nil

	case stateStale:
		c.opts.metrics.request(c.name, "stale")
		if c.opts.swr {
			c.revalidate(ctx, key, fill)
			return entry.Value, nil
		}
		v, err := c.fill(ctx, key, fill)
		if err != nil {
			c.opts.logger.Warn("cache refill failed, serving stale entry",
				"cache", c.name,
				"key", key,
				"age", c.opts.now().Sub(entry.FetchedAt).String(),
				"error", err)
			return entry.Value, nil
		}
		return v, nil

	default:
		c.opts.metrics.request(c.name, "miss")
		return c.fill(ctx, key, fill)
	}
}

// fill runs fill once per key across concurrent callers and stores the
// result. The shared fill is detached from the caller that started it, so
// one caller giving up does not fail the others.
func (c *Cache[V]) fill(ctx context.Context, key string, fill FillFunc[V]) (V, error) {
	ch := c.flight.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.fillTimeout)
		defer cancel()

		v, err := fill(fctx)
		c.opts.metrics.fill(c.name, err)
		if err != nil {
			return v, err
		}
		c.Set(key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		v, _ := res.Val.(V)
		return v, res.Err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// revalidate refreshes key in the background, detached from the caller's
// cancellation.
func (c *Cache[V]) revalidate(ctx context.Context, key string, fill FillFunc[V]) {
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()

		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.fillTimeout)
		defer cancel()

		if _, err := c.fill(bctx, key, fill); err != nil {
			c.opts.logger.Warn("background revalidation failed",
				"cache", c.name,
				"key", key,
				"error", err)
		}
	}()
}

// Wait blocks until background revalidations started so far have finished.
func (c *Cache[V]) Wait() {
	c.bg.Wait()
}

// Warm fills every key in keys, replacing existing entries. Failures are
// collected; keys that filled successfully stay cached.
func (c *Cache[V]) Warm(ctx context.Context, keys []string, fill func(ctx context.Context, key string) (V, error)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.opts.warmParallel, 1))

	var (
		mu   sync.Mutex
		errs []error
	)
	for _, key := range keys {
		g.Go(func() error {
			v, err := fill(gctx, key)
			c.opts.metrics.fill(c.name, err)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s %q: %w", c.name, key, err))
				mu.Unlock()
				return nil
			}
			c.Set(key, v)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
