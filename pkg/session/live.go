package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	catalogerrors "github.com/vango-dev/catalog/internal/errors"
	"github.com/vango-dev/catalog/pkg/features/filter"
	"github.com/vango-dev/catalog/pkg/features/search"
	"github.com/vango-dev/catalog/pkg/urlparam"
)

// Message types sent by the browser.
const (
	MsgInput   = "input"
	MsgFilter  = "filter"
	MsgClear   = "clear"
	MsgPop     = "pop"
	MsgBack    = "back"
	MsgForward = "forward"
	MsgRetry   = "retry"
)

// Frame types sent to the browser.
const (
	FrameURL     = "url"
	FramePending = "pending"
	FrameValue   = "value"
	FrameHTML    = "html"
)

// Message is a browser to server frame.
type Message struct {
	T   string `json:"t"`
	K   string `json:"k,omitempty"`
	V   string `json:"v,omitempty"`
	URL string `json:"url,omitempty"`
}

// Frame is a server to browser frame.
type Frame struct {
	T   string `json:"t"`
	V   any    `json:"v,omitempty"`
	URL string `json:"url,omitempty"`
}

// Live is one live list page. The search and filter controllers, the
// History and every frame built from them belong to the session's Loop.
type Live struct {
	id     string
	conn   *websocket.Conn
	cfg    Config
	logger *slog.Logger

	loop    *Loop
	history *urlparam.History[string]
	urls    *urlparam.Controller
	search  *search.Controller
	filters *filter.Controller

	writeMu    sync.Mutex
	lastActive atomic.Int64
	messages   atomic.Uint64
	frames     atomic.Uint64

	closed  atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
	onClose func(*Live)
}

func newLive(id string, conn *websocket.Conn, url string, filters []filter.Config, cfg Config, onClose func(*Live)) *Live {
	l := &Live{
		id:      id,
		conn:    conn,
		cfg:     cfg,
		logger:  cfg.Logger.With("session_id", id),
		done:    make(chan struct{}),
		onClose: onClose,
	}
	l.touch()

	l.loop = NewLoop(cfg.QueueSize, l.logger)
	l.history = urlparam.NewHistory(urlparam.HistoryConfig[string]{
		URL:        url,
		Dispatcher: l.loop,
		Render:     l.renderResults,
		OnCommit:   l.commit,
		OnPending:  l.pendingChanged,
		Logger:     l.logger,
	})
	l.urls = urlparam.NewController(l.history, cfg.Selector.BaseRoute())
	l.search = search.New(l.urls, l.loop, search.Config{
		Key:       cfg.Selector.SearchKey(),
		Debounce:  cfg.Debounce,
		MaxLength: cfg.Selector.MaxSearchLength(),
		OnResync:  l.resync,
		Logger:    l.logger,
	})
	l.filters = filter.New(l.urls, filters, filter.WithLogger(l.logger))
	l.history.Subscribe(l.urlChanged)
	return l
}

// ID returns the session identifier.
func (l *Live) ID() string { return l.id }

// LastActive returns when the browser last sent a message.
func (l *Live) LastActive() time.Time { return time.Unix(0, l.lastActive.Load()) }

// IsClosed reports whether Close has been called.
func (l *Live) IsClosed() bool { return l.closed.Load() }

// Done is closed when the session shuts down.
func (l *Live) Done() <-chan struct{} { return l.done }

// Dispatch runs fn on the session loop.
func (l *Live) Dispatch(fn func()) {
	if l.closed.Load() {
		return
	}
	l.loop.Dispatch(fn)
}

// Start launches the read and heartbeat goroutines.
func (l *Live) Start() {
	l.wg.Add(2)
	go l.readLoop()
	go l.pingLoop()
}

func (l *Live) touch() { l.lastActive.Store(time.Now().UnixNano()) }

func (l *Live) readLoop() {
	defer l.Close()
	defer l.wg.Done()

	l.conn.SetReadLimit(l.cfg.MaxMessageSize)
	l.conn.SetReadDeadline(time.Now().Add(l.cfg.ReadTimeout))
	l.conn.SetPongHandler(func(string) error {
		return l.conn.SetReadDeadline(time.Now().Add(l.cfg.ReadTimeout))
	})

	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				l.logger.Error("read error", "error", err)
			}
			return
		}

		l.touch()
		l.conn.SetReadDeadline(time.Now().Add(l.cfg.ReadTimeout))

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			l.reject(catalogerrors.New(catalogerrors.CodeBadMessage).Wrap(err), "")
			continue
		}
		l.messages.Add(1)
		l.cfg.metrics.message(msg.T)
		l.loop.Dispatch(func() { l.handle(msg) })
	}
}

func (l *Live) pingLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := l.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(l.cfg.WriteTimeout))
			if err != nil {
				l.logger.Debug("ping error", "error", err)
				return
			}
		case <-l.done:
			return
		}
	}
}

// handle runs on the loop.
func (l *Live) handle(msg Message) {
	switch msg.T {
	case MsgInput:
		l.search.SetValue(msg.V)
	case MsgFilter:
		l.filters.Set(msg.K, msg.V)
	case MsgClear:
		l.search.Clear(true)
		l.filters.ClearAll(l.search.Key())
	case MsgPop:
		url, err := urlparam.CanonicalPath(msg.URL)
		if err != nil {
			l.reject(catalogerrors.New(catalogerrors.CodeBadURL).Wrap(err), msg.T)
			return
		}
		l.history.Replace(url)
	case MsgBack:
		l.history.Back()
	case MsgForward:
		l.history.Forward()
	case MsgRetry:
		l.history.Reload()
	default:
		l.reject(catalogerrors.New(catalogerrors.CodeUnknownMessage), msg.T)
	}
}

func (l *Live) reject(err *catalogerrors.CatalogError, msgType string) {
	attrs := append([]any{"type", msgType}, err.LogAttrs()...)
	l.logger.Warn("live message rejected", attrs...)
}

// renderResults runs off the loop, on the History's render goroutine.
func (l *Live) renderResults(ctx context.Context, url string) (string, error) {
	page, err := l.cfg.Selector.ListURL(ctx, url)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := l.cfg.Views.Results(&b, page); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (l *Live) commit(url, html string, err error) {
	if err != nil {
		l.logger.Warn("results render failed", "url", url, "error", err)
		var b strings.Builder
		if rerr := l.cfg.Views.ResultsError(&b, url); rerr != nil {
			l.logger.Error("error view failed", "error", rerr)
			return
		}
		html = b.String()
	}
	l.send(Frame{T: FrameHTML, V: html})
}

func (l *Live) pendingChanged(pending bool) {
	l.send(Frame{T: FramePending, V: pending})
}

func (l *Live) urlChanged(url string) {
	l.send(Frame{T: FrameURL, URL: url})
}

func (l *Live) resync(value string) {
	l.send(Frame{T: FrameValue, V: value})
}

func (l *Live) send(f Frame) {
	if l.closed.Load() {
		return
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.conn.SetWriteDeadline(time.Now().Add(l.cfg.WriteTimeout))
	if err := l.conn.WriteJSON(f); err != nil {
		l.logger.Warn("write error", "frame", f.T, "error", err)
		// The read loop sees the closed connection and shuts the session.
		l.conn.Close()
		return
	}
	l.frames.Add(1)
}

// Close shuts the session down and waits for its goroutines. It must not
// be called from the session loop.
func (l *Live) Close() {
	if l.closed.Swap(true) {
		return
	}
	close(l.done)

	l.writeMu.Lock()
	l.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	l.writeMu.Unlock()
	l.conn.Close()

	// With the loop stopped this goroutine owns the controllers.
	l.loop.Close()
	l.search.Close()
	l.history.Close()
	l.wg.Wait()

	if l.onClose != nil {
		l.onClose(l)
	}
	l.logger.Info("live session closed",
		"messages", l.messages.Load(),
		"frames", l.frames.Load())
}
