package session

import (
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultQueueSize is the dispatch buffer of a Loop.
const DefaultQueueSize = 256

// Loop is a single-goroutine executor. Functions passed to Dispatch run one
// at a time, in order, on the loop goroutine.
type Loop struct {
	queue   chan func()
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	logger  *slog.Logger
}

// NewLoop starts a loop with a dispatch buffer of size.
func NewLoop(size int, logger *slog.Logger) *Loop {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		queue:   make(chan func(), size),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		logger:  logger,
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.stopped)
	for {
		select {
		case fn := <-l.queue:
			l.execute(fn)
		case <-l.done:
			return
		}
	}
}

func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("dispatch panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

// Dispatch queues fn to run on the loop. It is safe to call from any
// goroutine and never blocks: after Close, or when the queue is full, fn is
// discarded.
func (l *Loop) Dispatch(fn func()) {
	select {
	case <-l.done:
		return
	default:
	}
	select {
	case l.queue <- fn:
	case <-l.done:
	default:
		l.logger.Warn("dispatch queue full, discarding callback")
	}
}

// Timer states.
const (
	timerArmed int32 = iota
	timerStopped
	timerFired
)

// AfterFunc runs fn on the loop after d. The returned stop function
// reports whether it prevented fn from running. A callback already queued
// on the loop when stop is called is skipped.
func (l *Loop) AfterFunc(d time.Duration, fn func()) (stop func() bool) {
	var state atomic.Int32
	t := time.AfterFunc(d, func() {
		l.Dispatch(func() {
			if state.CompareAndSwap(timerArmed, timerFired) {
				fn()
			}
		})
	})
	return func() bool {
		t.Stop()
		return state.CompareAndSwap(timerArmed, timerStopped)
	}
}

// Done is closed when the loop starts shutting down.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Close stops the loop and waits for the running function to return.
// Queued functions are discarded. Close must not be called from the loop.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
	<-l.stopped
}
