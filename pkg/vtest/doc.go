// Package vtest provides test doubles for the catalog's page-view machinery.
//
// # Deterministic Time
//
// Scheduler is a virtual clock and event queue. Controllers that debounce
// take it in place of a session loop:
//
//	sched := vtest.NewScheduler()
//	nav := vtest.NewNavigator("/products")
//	ctrl := search.New(urlparam.NewController(nav, "/products"), sched, search.Config{})
//
//	ctrl.SetValue("sh")
//	sched.Advance(200 * time.Millisecond)
//	ctrl.SetValue("shirt")
//	sched.Advance(400 * time.Millisecond)
//	// nav.Pushes() == []string{"/products?search=shirt"}
//
// # Log Assertions
//
// LogRecorder is a slog.Handler that keeps every record:
//
//	rec := vtest.NewLogRecorder()
//	ctrl := filter.New(urls, filters, filter.WithLogger(rec.Logger()))
//	ctrl.Set("category", "toys")
//	if rec.Count(slog.LevelWarn) != 1 {
//	    t.Error("expected a rejection warning")
//	}
//
// # Fakes
//
// Navigator records pushes and applies them synchronously. Source serves a
// fixed product list and counts upstream calls.
package vtest
