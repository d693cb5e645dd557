// Package search buffers a search box and commits it to the address bar
// after a quiet period.
//
// The buffer updates on every keystroke. The URL follows once no input has
// arrived for the debounce window: the trimmed value is committed when it
// is non-empty and within MaxLength, otherwise the parameter is removed.
// Address changes the controller did not cause (back, forward, a sibling
// controller clearing the parameter) overwrite the buffer.
//
// A Controller belongs to one page view and must only be used from that
// view's event loop.
package search

import (
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vango-dev/catalog/pkg/urlparam"
)

// Defaults.
const (
	DefaultKey       = "search"
	DefaultDebounce  = 400 * time.Millisecond
	DefaultMaxLength = 100
)

// Scheduler runs fn on the event loop after d. Calling stop prevents fn
// from running if it has not started and reports whether it did so.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// Config configures a Controller.
type Config struct {
	// Key is the query parameter. Default: "search".
	Key string

	// Debounce is the quiet period before committing. Default: 400ms.
	Debounce time.Duration

	// MaxLength bounds committed values, in characters. Default: 100.
	MaxLength int

	// OnResync is called with the new buffer when an address change
	// overwrites it.
	OnResync func(value string)

	Logger *slog.Logger
}

// Controller owns the search buffer for one page view.
type Controller struct {
	urls  *urlparam.Controller
	sched Scheduler
	cfg   Config

	buffered  string
	committed string
	// observed is the URL value last seen, either committed by us or
	// delivered by an address change.
	observed string

	stop        func() bool
	unsubscribe func()
}

// New creates a controller whose buffer starts at the URL's current value.
func New(urls *urlparam.Controller, sched Scheduler, cfg Config) *Controller {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = DefaultMaxLength
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	initial := urls.Params().Get(cfg.Key)
	c := &Controller{
		urls:      urls,
		sched:     sched,
		cfg:       cfg,
		buffered:  initial,
		committed: initial,
		observed:  initial,
	}
	c.unsubscribe = urls.Subscribe(c.urlChanged)
	return c
}

// Key returns the query parameter name.
func (c *Controller) Key() string { return c.cfg.Key }

// Value returns the buffered input.
func (c *Controller) Value() string { return c.buffered }

// Committed returns the last value this controller wrote to the URL or
// adopted from it.
func (c *Controller) Committed() string { return c.committed }

// HasActive reports whether the buffer holds more than whitespace.
func (c *Controller) HasActive() bool {
	return strings.TrimSpace(c.buffered) != ""
}

// IsPending reports whether a navigation is in flight.
func (c *Controller) IsPending() bool { return c.urls.IsPending() }

// SetValue updates the buffer and restarts the debounce window. Only the
// value present when the window expires is committed.
func (c *Controller) SetValue(v string) {
	c.buffered = v
	c.cancelTimer()
	c.stop = c.sched.AfterFunc(c.cfg.Debounce, c.flush)
}

// Clear stops any pending commit and empties the buffer. Unless
// skipNavigation is set the parameter is removed right away; callers that
// batch several removals into one navigation pass true.
func (c *Controller) Clear(skipNavigation bool) {
	c.cancelTimer()
	c.buffered = ""
	if skipNavigation {
		return
	}
	c.committed = ""
	c.observed = ""
	c.urls.Navigate(nil, c.cfg.Key)
}

// Close stops the timer and the address subscription.
func (c *Controller) Close() {
	c.cancelTimer()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

func (c *Controller) cancelTimer() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
}

// flush runs when the debounce window expires.
func (c *Controller) flush() {
	c.stop = nil

	trimmed := strings.TrimSpace(c.buffered)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > c.cfg.MaxLength {
		if trimmed != "" {
			c.cfg.Logger.Debug("search value too long, removing parameter",
				"key", c.cfg.Key,
				"length", utf8.RuneCountInString(trimmed),
				"max", c.cfg.MaxLength)
		}
		c.committed = ""
		c.observed = ""
		c.urls.Navigate(nil, c.cfg.Key)
		return
	}

	c.committed = trimmed
	c.observed = trimmed
	c.urls.Navigate(map[string]string{c.cfg.Key: trimmed})
}

// urlChanged adopts the URL value when it differs from the last one seen.
// Our own commits arrive here with the value already recorded and are
// ignored.
func (c *Controller) urlChanged(url string) {
	_, params, err := urlparam.SplitURL(url)
	if err != nil {
		return
	}
	v := params.Get(c.cfg.Key)
	if v == c.observed {
		return
	}

	c.cancelTimer()
	c.observed = v
	c.committed = v
	c.buffered = v
	c.cfg.Logger.Debug("search buffer resynchronized from address", "key", c.cfg.Key, "value", v)
	if c.cfg.OnResync != nil {
		c.cfg.OnResync(v)
	}
}
