package resource

import (
	"context"
	"time"

	"github.com/vango-dev/catalog/pkg/catalog"
)

// State is the outcome of a fetch.
type State int

const (
	Ready    State = iota + 1 // Data loaded
	NotFound                  // Upstream reported a missing item
	Failed                    // Any other failure
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case NotFound:
		return "not_found"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is a settled fetch. The zero Outcome is in no state and matches
// no handler.
type Outcome[T any] struct {
	State     State
	Data      T
	Err       error
	FetchedAt time.Time
}

// From classifies a fetch result. catalog.ErrNotFound anywhere in err's
// chain yields NotFound; any other error yields Failed.
func From[T any](data T, err error) Outcome[T] {
	out := Outcome[T]{FetchedAt: time.Now()}
	switch {
	case err == nil:
		out.State = Ready
		out.Data = data
	case catalog.IsNotFound(err):
		out.State = NotFound
		out.Err = err
	default:
		out.State = Failed
		out.Err = err
	}
	return out
}

// Fetch runs fn and classifies its result.
func Fetch[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) Outcome[T] {
	data, err := fn(ctx)
	return From(data, err)
}

// IsReady reports whether the data is available.
func (o Outcome[T]) IsReady() bool { return o.State == Ready }

// Retryable reports whether the page should offer a retry.
func (o Outcome[T]) Retryable() bool { return o.State == Failed }

// DataOr returns the data when ready, otherwise fallback.
func (o Outcome[T]) DataOr(fallback T) T {
	if o.State == Ready {
		return o.Data
	}
	return fallback
}
