// Package filter manages enumerated-value filters carried in the URL.
//
// Every write is validated against the filter's allow-list. Rejected
// writes are logged and dropped; they never reach the address bar. Reads
// are validated too, so hand-edited or outdated URLs cannot inject values.
package filter

import (
	"log/slog"
	"sort"

	catalogerrors "github.com/vango-dev/catalog/internal/errors"
	"github.com/vango-dev/catalog/pkg/urlparam"
)

// Config describes one filterable dimension.
type Config struct {
	Key           string
	AllowedValues []string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger that receives validation rejections.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// Controller owns a set of filters for one page view.
type Controller struct {
	urls    *urlparam.Controller
	keys    []string
	allowed map[string]map[string]struct{}
	logger  *slog.Logger
}

// New creates a controller for filters. A key configured twice merges its
// allowed values.
func New(urls *urlparam.Controller, filters []Config, opts ...Option) *Controller {
	c := &Controller{
		urls:    urls,
		allowed: make(map[string]map[string]struct{}, len(filters)),
		logger:  slog.Default(),
	}
	for _, f := range filters {
		set, ok := c.allowed[f.Key]
		if !ok {
			set = make(map[string]struct{}, len(f.AllowedValues))
			c.allowed[f.Key] = set
			c.keys = append(c.keys, f.Key)
		}
		for _, v := range f.AllowedValues {
			set[v] = struct{}{}
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Keys returns the configured filter keys in configuration order.
func (c *Controller) Keys() []string {
	return append([]string(nil), c.keys...)
}

// Allowed returns the sorted allowed values of key, or nil when key is not
// configured.
func (c *Controller) Allowed(key string) []string {
	set, ok := c.allowed[key]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// IsAllowed reports whether value is allowed for key.
func (c *Controller) IsAllowed(key, value string) bool {
	_, ok := c.allowed[key][value]
	return ok
}

// Values returns the URL value of each filter whose value is allowed.
func (c *Controller) Values() map[string]string {
	params := c.urls.Params()
	out := make(map[string]string)
	for _, k := range c.keys {
		if v, ok := params.Lookup(k); ok && c.IsAllowed(k, v) {
			out[k] = v
		}
	}
	return out
}

// Value returns the validated value of key, or "".
func (c *Controller) Value(key string) string {
	return c.Values()[key]
}

// HasActive reports whether any filter carries a valid value.
func (c *Controller) HasActive() bool {
	return len(c.Values()) > 0
}

// IsPending reports whether a navigation is in flight.
func (c *Controller) IsPending() bool { return c.urls.IsPending() }

// Set writes one filter in a single navigation. An empty value removes
// the filter. An unknown key or a value outside the allow-list is logged
// at warn level and ignored; Set reports whether it navigated.
func (c *Controller) Set(key, value string) bool {
	set, ok := c.allowed[key]
	if !ok {
		c.reject(catalogerrors.New(catalogerrors.CodeFilterKey), key, value)
		return false
	}
	if value == "" {
		c.urls.Navigate(nil, key)
		return true
	}
	if _, ok := set[value]; !ok {
		c.reject(catalogerrors.New(catalogerrors.CodeFilterValue), key, value)
		return false
	}
	c.urls.Navigate(map[string]string{key: value})
	return true
}

// Clear removes one filter.
func (c *Controller) Clear(key string) {
	c.urls.Navigate(nil, key)
}

// ClearAll removes every configured filter plus extraKeys in one
// navigation, keeping all other parameters.
func (c *Controller) ClearAll(extraKeys ...string) {
	remove := make(map[string]struct{}, len(c.keys)+len(extraKeys))
	for _, k := range c.keys {
		remove[k] = struct{}{}
	}
	for _, k := range extraKeys {
		remove[k] = struct{}{}
	}

	var keep []string
	for _, k := range c.urls.Params().Keys() {
		if _, ok := remove[k]; !ok {
			keep = append(keep, k)
		}
	}
	c.urls.NavigateToBase(keep...)
}

func (c *Controller) reject(err *catalogerrors.CatalogError, key, value string) {
	attrs := append([]any{"filter_key", key, "value", value}, err.LogAttrs()...)
	c.logger.Warn("filter write rejected", attrs...)
}
