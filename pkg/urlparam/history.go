package urlparam

import (
	"context"
	"log/slog"
	"sync"

	catalogerrors "github.com/vango-dev/catalog/internal/errors"
)

// RenderFunc renders the page for url. It runs off the event loop and must
// return promptly once ctx is cancelled.
type RenderFunc[R any] func(ctx context.Context, url string) (R, error)

// HistoryConfig configures a History.
type HistoryConfig[R any] struct {
	// URL is the initial address (path plus optional query).
	URL string

	// Dispatcher delivers render completions to the event loop.
	// Default: Inline.
	Dispatcher Dispatcher

	// Render produces the result of a transition. Nil completes every
	// transition immediately with the zero R.
	Render RenderFunc[R]

	// OnCommit receives the result of the latest transition, on the event
	// loop. Results of superseded transitions are never delivered.
	OnCommit func(url string, result R, err error)

	// OnPending is called when the pending flag changes.
	OnPending func(pending bool)

	Logger *slog.Logger
}

// History is the in-process Navigator: the current address, back and
// forward stacks, and one transition at a time.
//
// Every push starts a transition identified by a monotonically increasing
// token. A newer transition cancels the older one's context, and only the
// result carrying the latest token is committed.
type History[R any] struct {
	cfg HistoryConfig[R]

	current string
	path    string
	params  Params
	back    []string
	forward []string

	token    uint64
	pending  bool
	cancel   context.CancelFunc
	inflight sync.WaitGroup

	listeners []*listener
	closed    bool
}

type listener struct {
	fn func(url string)
}

// NewHistory creates a History positioned at cfg.URL.
func NewHistory[R any](cfg HistoryConfig[R]) *History[R] {
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = Inline
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	h := &History[R]{cfg: cfg}
	h.setCurrent(cfg.URL)
	return h
}

// URL returns the current address.
func (h *History[R]) URL() string { return h.current }

// Path returns the current address without its query.
func (h *History[R]) Path() string { return h.path }

// Params returns a copy of the current query parameters.
func (h *History[R]) Params() Params { return h.params.Clone() }

// IsPending reports whether a transition is in flight.
func (h *History[R]) IsPending() bool { return h.pending }

// Push moves to url, recording the previous address on the back stack,
// and starts a transition. The new address is visible to Params and URL
// immediately.
func (h *History[R]) Push(url string) {
	if h.closed {
		return
	}
	if url != h.current {
		h.back = append(h.back, h.current)
		h.forward = h.forward[:0]
	}
	h.move(url)
}

// Replace moves to url without touching the back stack. Live sessions use
// it for browser popstate events, where the browser already moved.
func (h *History[R]) Replace(url string) {
	if h.closed {
		return
	}
	h.move(url)
}

// Back moves to the previous address. It reports false when there is none.
func (h *History[R]) Back() bool {
	if h.closed || len(h.back) == 0 {
		return false
	}
	prev := h.back[len(h.back)-1]
	h.back = h.back[:len(h.back)-1]
	h.forward = append(h.forward, h.current)
	h.move(prev)
	return true
}

// Forward undoes the last Back. It reports false when there is nothing to
// redo.
func (h *History[R]) Forward() bool {
	if h.closed || len(h.forward) == 0 {
		return false
	}
	next := h.forward[len(h.forward)-1]
	h.forward = h.forward[:len(h.forward)-1]
	h.back = append(h.back, h.current)
	h.move(next)
	return true
}

// Reload re-runs the transition for the current address.
func (h *History[R]) Reload() {
	if h.closed {
		return
	}
	h.start(h.current)
}

// Subscribe registers fn to be called with the new address after every
// change. The returned function removes the subscription.
func (h *History[R]) Subscribe(fn func(url string)) (unsubscribe func()) {
	l := &listener{fn: fn}
	h.listeners = append(h.listeners, l)
	return func() {
		for i, x := range h.listeners {
			if x == l {
				h.listeners = append(h.listeners[:i:i], h.listeners[i+1:]...)
				return
			}
		}
	}
}

// Close cancels the in-flight transition and waits for its render to
// return. Later navigation calls are ignored.
func (h *History[R]) Close() {
	if h.closed {
		return
	}
	h.closed = true
	if h.cancel != nil {
		h.cancel()
	}
	h.inflight.Wait()
}

func (h *History[R]) setCurrent(url string) {
	path, params, err := SplitURL(url)
	if err != nil {
		h.cfg.Logger.Warn("unparseable query, dropping parameters",
			"url", url,
			"code", catalogerrors.CodeBadURL,
			"error", err)
		params = Params{}
	}
	h.current = url
	h.path = path
	h.params = params
}

func (h *History[R]) move(url string) {
	changed := url != h.current
	h.setCurrent(url)
	if changed {
		for _, l := range append([]*listener(nil), h.listeners...) {
			l.fn(url)
		}
		if h.current != url {
			// A listener navigated again; its transition already started.
			return
		}
	}
	h.start(url)
}

// start begins a transition to url, superseding any earlier one.
func (h *History[R]) start(url string) {
	if h.cancel != nil {
		h.cancel()
	}
	h.token++
	token := h.token
	h.setPending(true)

	if h.cfg.Render == nil {
		var zero R
		h.cfg.Dispatcher.Dispatch(func() { h.complete(token, url, zero, nil) })
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	render := h.cfg.Render
	dispatcher := h.cfg.Dispatcher

	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		result, err := render(ctx, url)
		dispatcher.Dispatch(func() { h.complete(token, url, result, err) })
	}()
}

// complete runs on the event loop. Results of superseded transitions are
// dropped.
func (h *History[R]) complete(token uint64, url string, result R, err error) {
	if token != h.token || h.closed {
		h.cfg.Logger.Debug("discarding superseded navigation",
			"code", catalogerrors.CodeSuperseded,
			"url", url,
			"token", token,
			"latest", h.token)
		return
	}
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.setPending(false)
	if h.cfg.OnCommit != nil {
		h.cfg.OnCommit(url, result, err)
	}
}

func (h *History[R]) setPending(p bool) {
	if h.pending == p {
		return
	}
	h.pending = p
	if h.cfg.OnPending != nil {
		h.cfg.OnPending(p)
	}
}

var _ Navigator = (*History[string])(nil)
