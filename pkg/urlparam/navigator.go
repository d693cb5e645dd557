package urlparam

// Navigator is the navigation primitive the controllers drive.
//
// It performs no validation. Push is fire and forget: it returns before
// the resulting render completes, and IsPending stays true until the latest
// push has settled.
type Navigator interface {
	// Params returns the current query parameters.
	Params() Params

	// Push replaces the address with url.
	Push(url string)

	// IsPending reports whether a navigation is in flight.
	IsPending() bool
}

// Dispatcher runs fn on the owning page view's event loop.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(fn func())

// Dispatch calls f(fn).
func (f DispatcherFunc) Dispatch(fn func()) { f(fn) }

// Inline is a Dispatcher that runs fn immediately on the calling goroutine.
var Inline Dispatcher = DispatcherFunc(func(fn func()) { fn() })

// Watcher is implemented by navigators that report address changes,
// including ones the controllers did not cause (back, forward, popstate).
type Watcher interface {
	Subscribe(fn func(url string)) (unsubscribe func())
}
