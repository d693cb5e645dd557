package vtest_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/vango-dev/catalog/pkg/vtest"
)

func TestSchedulerFiresInDeadlineOrder(t *testing.T) {
	s := vtest.NewScheduler()
	var got []string

	s.AfterFunc(300*time.Millisecond, func() { got = append(got, "c") })
	s.AfterFunc(100*time.Millisecond, func() { got = append(got, "a") })
	s.AfterFunc(100*time.Millisecond, func() { got = append(got, "b") })

	s.Advance(99 * time.Millisecond)
	if len(got) != 0 {
		t.Fatalf("fired early: %v", got)
	}
	s.Advance(time.Millisecond)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("after 100ms got %v, want [a b]", got)
	}
	s.Advance(time.Second)
	if len(got) != 3 || got[2] != "c" {
		t.Fatalf("after 1.1s got %v, want [a b c]", got)
	}
}

func TestSchedulerStop(t *testing.T) {
	s := vtest.NewScheduler()
	fired := false
	stop := s.AfterFunc(time.Second, func() { fired = true })

	if !stop() {
		t.Fatal("first stop should report true")
	}
	if stop() {
		t.Error("second stop should report false")
	}
	s.Advance(2 * time.Second)
	if fired {
		t.Error("stopped timer fired")
	}
	if s.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", s.Pending())
	}
}

func TestSchedulerTimerArmedByTimer(t *testing.T) {
	s := vtest.NewScheduler()
	var at []time.Time
	start := s.Now()

	s.AfterFunc(100*time.Millisecond, func() {
		at = append(at, s.Now())
		s.AfterFunc(100*time.Millisecond, func() { at = append(at, s.Now()) })
	})
	s.Advance(250 * time.Millisecond)

	if len(at) != 2 {
		t.Fatalf("fired %d times, want 2", len(at))
	}
	if d := at[1].Sub(start); d != 200*time.Millisecond {
		t.Errorf("nested timer fired at +%v, want +200ms", d)
	}
}

func TestSchedulerRunUntil(t *testing.T) {
	s := vtest.NewScheduler()
	done := false
	go s.Dispatch(func() { done = true })

	if !s.RunUntil(func() bool { return done }, time.Second) {
		t.Fatal("dispatched function did not run")
	}
}

func TestNavigatorNotifiesOnChangeOnly(t *testing.T) {
	nav := vtest.NewNavigator("/products?search=shoe")
	var seen []string
	unsubscribe := nav.Subscribe(func(url string) { seen = append(seen, url) })

	nav.Push("/products?search=shoe")
	nav.SetURL("/products")
	unsubscribe()
	nav.SetURL("/products?category=electronics")

	if len(seen) != 1 || seen[0] != "/products" {
		t.Errorf("notifications = %v, want [/products]", seen)
	}
	if got := nav.Params().Get("category"); got != "electronics" {
		t.Errorf("Params().Get(category) = %q", got)
	}
	if len(nav.Pushes()) != 1 || !nav.IsPending() {
		t.Errorf("pushes = %v pending = %v", nav.Pushes(), nav.IsPending())
	}
}

func TestLogRecorder(t *testing.T) {
	rec := vtest.NewLogRecorder()
	logger := rec.Logger().With("component", "filter")

	logger.Warn("rejected", "filter_key", "category", "value", "toys")
	logger.Info("ok")

	got, ok := rec.Find(slog.LevelWarn, "rejected")
	if !ok {
		t.Fatal("warn record not captured")
	}
	if got.Attrs["component"] != "filter" || got.Attrs["value"] != "toys" {
		t.Errorf("attrs = %v", got.Attrs)
	}
	if rec.Count(slog.LevelInfo) != 1 {
		t.Errorf("info count = %d, want 1", rec.Count(slog.LevelInfo))
	}
	rec.Reset()
	if len(rec.Records()) != 0 {
		t.Error("Reset should drop records")
	}
}
