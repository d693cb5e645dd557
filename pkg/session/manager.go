package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/catalog/pkg/features/filter"
	"github.com/vango-dev/catalog/pkg/render"
	"github.com/vango-dev/catalog/pkg/urlparam"
)

var (
	// ErrSessionClosed is returned when the manager has shut down.
	ErrSessionClosed = errors.New("session: closed")

	// ErrMaxSessionsReached is returned when MaxSessions sessions are live.
	ErrMaxSessionsReached = errors.New("session: max sessions reached")
)

// Config configures a Manager and the sessions it creates.
type Config struct {
	Selector *render.Selector
	Views    *render.Views

	// Filters returns the filter allow-lists for a new session. Nil means
	// no filters.
	Filters func(ctx context.Context) ([]filter.Config, error)

	// Debounce is the search debounce. Default: search.DefaultDebounce.
	Debounce time.Duration

	// MaxSessions caps live sessions; 0 means unlimited.
	MaxSessions int

	// IdleTimeout closes sessions that have not sent a message for this
	// long. Default: 5m.
	IdleTimeout time.Duration

	// CleanupInterval is how often idle sessions are collected. Default: 30s.
	CleanupInterval time.Duration

	// ReadTimeout bounds the wait for a message or pong. Default: 60s.
	ReadTimeout time.Duration

	// WriteTimeout bounds every frame write. Default: 10s.
	WriteTimeout time.Duration

	// PingInterval is the heartbeat period. Default: 30s.
	PingInterval time.Duration

	// MaxMessageSize is the largest accepted browser frame. Default: 4KiB.
	MaxMessageSize int64

	// QueueSize is the loop dispatch buffer. Default: DefaultQueueSize.
	QueueSize int

	// CheckOrigin overrides the websocket same-origin check.
	CheckOrigin func(r *http.Request) bool

	// Registerer receives the session metrics. Nil disables them.
	Registerer prometheus.Registerer

	Logger *slog.Logger

	metrics *metrics
}

func (c *Config) defaults() {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 30 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 4 << 10
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

type metrics struct {
	live     prometheus.Gauge
	created  prometheus.Counter
	messages *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	f := promauto.With(reg)
	return &metrics{
		live: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "catalog",
			Name:      "live_sessions",
			Help:      "Number of open live sessions.",
		}),
		created: f.NewCounter(prometheus.CounterOpts{
			Namespace: "catalog",
			Name:      "live_sessions_created_total",
			Help:      "Live sessions opened since start.",
		}),
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalog",
			Name:      "live_messages_total",
			Help:      "Browser messages received by type.",
		}, []string{"type"}),
	}
}

func (m *metrics) opened() {
	if m == nil {
		return
	}
	m.live.Inc()
	m.created.Inc()
}

func (m *metrics) closed() {
	if m != nil {
		m.live.Dec()
	}
}

func (m *metrics) message(t string) {
	if m == nil {
		return
	}
	switch t {
	case MsgInput, MsgFilter, MsgClear, MsgPop, MsgBack, MsgForward, MsgRetry:
	default:
		t = "unknown"
	}
	m.messages.WithLabelValues(t).Inc()
}

// Stats is a snapshot of manager counters.
type Stats struct {
	Active  int
	Created uint64
	Closed  uint64
	Peak    int
}

// Manager tracks live sessions and closes idle ones.
type Manager struct {
	cfg      Config
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*Live
	created  uint64
	closed   uint64
	peak     int
	shutdown bool

	done        chan struct{}
	cleanupDone chan struct{}
	logger      *slog.Logger
}

// NewManager creates a Manager and starts its idle cleanup goroutine.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	cfg.metrics = newMetrics(cfg.Registerer)

	m := &Manager{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
		sessions:    make(map[string]*Live),
		done:        make(chan struct{}),
		cleanupDone: make(chan struct{}),
		logger:      cfg.Logger.With("component", "session_manager"),
	}
	go m.cleanupLoop()
	return m
}

// Create starts tracking a session for conn positioned at url. The caller
// calls Start on the result.
func (m *Manager) Create(ctx context.Context, conn *websocket.Conn, url string) (*Live, error) {
	var filters []filter.Config
	if m.cfg.Filters != nil {
		f, err := m.cfg.Filters(ctx)
		if err != nil {
			return nil, err
		}
		filters = f
	}

	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		m.logger.Warn("max sessions reached", "max", m.cfg.MaxSessions)
		return nil, ErrMaxSessionsReached
	}

	id := uuid.NewString()
	live := newLive(id, conn, url, filters, m.cfg, m.remove)
	m.sessions[id] = live
	m.created++
	if len(m.sessions) > m.peak {
		m.peak = len(m.sessions)
	}
	m.mu.Unlock()

	m.cfg.metrics.opened()
	m.logger.Debug("session created", "session_id", id, "url", url)
	return live, nil
}

// remove is the sessions' close hook.
func (m *Manager) remove(l *Live) {
	m.mu.Lock()
	_, ok := m.sessions[l.ID()]
	if ok {
		delete(m.sessions, l.ID())
		m.closed++
	}
	m.mu.Unlock()
	if ok {
		m.cfg.metrics.closed()
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Stats returns manager counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Active:  len(m.sessions),
		Created: m.created,
		Closed:  m.closed,
		Peak:    m.peak,
	}
}

// cleanupLoop periodically closes idle sessions.
func (m *Manager) cleanupLoop() {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			m.cleanupExpired(now)
		case <-m.done:
			return
		}
	}
}

// cleanupExpired closes sessions idle for longer than IdleTimeout.
func (m *Manager) cleanupExpired(now time.Time) int {
	m.mu.Lock()
	var expired []*Live
	for _, l := range m.sessions {
		if now.Sub(l.LastActive()) > m.cfg.IdleTimeout {
			expired = append(expired, l)
		}
	}
	m.mu.Unlock()

	for _, l := range expired {
		l.Close()
	}
	if len(expired) > 0 {
		m.logger.Info("closed idle sessions",
			"count", len(expired),
			"remaining", m.Count())
	}
	return len(expired)
}

// Shutdown closes every session.
func (m *Manager) Shutdown() {
	m.ShutdownWithContext(context.Background())
}

// ShutdownWithContext closes every session, giving up when ctx is done.
func (m *Manager) ShutdownWithContext(ctx context.Context) error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	sessions := make([]*Live, 0, len(m.sessions))
	for _, l := range m.sessions {
		sessions = append(sessions, l)
	}
	m.mu.Unlock()

	close(m.done)
	<-m.cleanupDone

	var wg sync.WaitGroup
	for _, l := range sessions {
		wg.Add(1)
		go func(l *Live) {
			defer wg.Done()
			l.Close()
		}(l)
	}
	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		m.logger.Info("session manager shutdown", "closed_sessions", len(sessions))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeHTTP upgrades the request to a live session. The page address comes
// from the url query parameter and defaults to the list route.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	url, err := urlparam.CanonicalPath(r.URL.Query().Get("url"))
	if err != nil {
		url = m.cfg.Selector.BaseRoute()
	}

	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		m.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	live, err := m.Create(r.Context(), conn, url)
	if err != nil {
		code := websocket.CloseTryAgainLater
		if errors.Is(err, ErrSessionClosed) {
			code = websocket.CloseGoingAway
		}
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, err.Error()),
			time.Now().Add(time.Second),
		)
		conn.Close()
		if !errors.Is(err, ErrMaxSessionsReached) && !errors.Is(err, ErrSessionClosed) {
			m.logger.Error("session create failed", "error", err)
		}
		return
	}
	live.Start()
}
