package resource

// Handler renders one outcome state.
type Handler[T, R any] interface {
	handle(Outcome[T]) (R, bool)
}

// Match returns the result of the first handler that accepts o's state,
// or the zero R when none does.
func Match[T, R any](o Outcome[T], handlers ...Handler[T, R]) R {
	for _, h := range handlers {
		if r, ok := h.handle(o); ok {
			return r
		}
	}
	var zero R
	return zero
}

type readyHandler[T, R any] struct{ fn func(T) R }

func (h readyHandler[T, R]) handle(o Outcome[T]) (R, bool) {
	if o.State != Ready {
		var zero R
		return zero, false
	}
	return h.fn(o.Data), true
}

type notFoundHandler[T, R any] struct{ fn func() R }

func (h notFoundHandler[T, R]) handle(o Outcome[T]) (R, bool) {
	if o.State != NotFound {
		var zero R
		return zero, false
	}
	return h.fn(), true
}

type failedHandler[T, R any] struct{ fn func(error) R }

func (h failedHandler[T, R]) handle(o Outcome[T]) (R, bool) {
	if o.State != Failed {
		var zero R
		return zero, false
	}
	return h.fn(o.Err), true
}

// OnReady handles the Ready state.
func OnReady[T, R any](fn func(T) R) Handler[T, R] {
	return readyHandler[T, R]{fn: fn}
}

// OnNotFound handles the NotFound state.
func OnNotFound[T, R any](fn func() R) Handler[T, R] {
	return notFoundHandler[T, R]{fn: fn}
}

// OnFailed handles the Failed state.
func OnFailed[T, R any](fn func(error) R) Handler[T, R] {
	return failedHandler[T, R]{fn: fn}
}
