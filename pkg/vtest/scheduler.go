package vtest

import (
	"sort"
	"sync"
	"time"
)

// Scheduler is a manual clock and dispatch queue. The test goroutine plays
// the event loop: timers fire during Advance and dispatched functions run
// during Flush or RunUntil.
type Scheduler struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer

	queue chan func()
}

type manualTimer struct {
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

// NewScheduler creates a scheduler whose clock starts at a fixed instant.
func NewScheduler() *Scheduler {
	return &Scheduler{
		now:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		queue: make(chan func(), 1024),
	}
}

// Now returns the virtual time.
func (s *Scheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// AfterFunc schedules fn to run when the clock passes d from now. The
// returned function cancels it and reports whether it did.
func (s *Scheduler) AfterFunc(d time.Duration, fn func()) (stop func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &manualTimer{at: s.now.Add(d), seq: s.seq, fn: fn}
	s.timers = append(s.timers, t)

	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t.fired || t.stopped {
			return false
		}
		t.stopped = true
		return true
	}
}

// Pending returns the number of armed timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, firing due timers in deadline
// order, then flushes the dispatch queue.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	for {
		t := s.nextDue(target)
		if t == nil {
			break
		}
		t.fn()
		s.Flush()
	}

	s.mu.Lock()
	s.now = target
	s.mu.Unlock()
	s.Flush()
}

// nextDue pops the earliest armed timer due at or before target and moves
// the clock to its deadline.
func (s *Scheduler) nextDue(target time.Time) *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	sort.SliceStable(s.timers, func(i, j int) bool {
		if s.timers[i].at.Equal(s.timers[j].at) {
			return s.timers[i].seq < s.timers[j].seq
		}
		return s.timers[i].at.Before(s.timers[j].at)
	})
	for i, t := range s.timers {
		if t.fired || t.stopped {
			continue
		}
		if t.at.After(target) {
			return nil
		}
		t.fired = true
		s.timers = append(s.timers[:i:i], s.timers[i+1:]...)
		s.now = t.at
		return t
	}
	return nil
}

// Dispatch queues fn. It is safe to call from any goroutine.
func (s *Scheduler) Dispatch(fn func()) {
	s.queue <- fn
}

// Flush runs queued functions until the queue is empty.
func (s *Scheduler) Flush() {
	for {
		select {
		case fn := <-s.queue:
			fn()
		default:
			return
		}
	}
}

// RunUntil runs queued functions as they arrive until cond holds or
// timeout elapses. It reports whether cond held.
func (s *Scheduler) RunUntil(cond func() bool, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for !cond() {
		select {
		case fn := <-s.queue:
			fn()
		case <-deadline.C:
			return cond()
		}
	}
	return true
}
