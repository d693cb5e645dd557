package resource

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/vango-dev/catalog/pkg/catalog"
)

func TestFrom(t *testing.T) {
	transport := &catalog.TransportError{Op: "get", Status: 503, Err: errors.New("unavailable")}

	tests := []struct {
		name      string
		err       error
		want      State
		retryable bool
	}{
		{name: "ok", err: nil, want: Ready},
		{name: "not found", err: catalog.ErrNotFound, want: NotFound},
		{name: "wrapped not found", err: fmt.Errorf("detail 7: %w", catalog.ErrNotFound), want: NotFound},
		{name: "transport", err: transport, want: Failed, retryable: true},
		{name: "cancelled", err: context.Canceled, want: Failed, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := From(42, tt.err)
			if out.State != tt.want {
				t.Errorf("State = %v, want %v", out.State, tt.want)
			}
			if out.Retryable() != tt.retryable {
				t.Errorf("Retryable() = %v, want %v", out.Retryable(), tt.retryable)
			}
			if got := out.DataOr(-1); (tt.want == Ready) != (got == 42) {
				t.Errorf("DataOr(-1) = %d in state %v", got, out.State)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	handlers := []Handler[string, string]{
		OnReady[string, string](func(s string) string { return "ready:" + s }),
		OnNotFound[string, string](func() string { return "missing" }),
		OnFailed[string, string](func(err error) string { return "failed:" + err.Error() }),
	}

	tests := []struct {
		out  Outcome[string]
		want string
	}{
		{out: From("x", nil), want: "ready:x"},
		{out: From("", catalog.ErrNotFound), want: "missing"},
		{out: From("", errors.New("boom")), want: "failed:boom"},
		{out: Outcome[string]{}, want: ""},
	}
	for _, tt := range tests {
		if got := Match(tt.out, handlers...); got != tt.want {
			t.Errorf("Match(%v) = %q, want %q", tt.out.State, got, tt.want)
		}
	}
}

func TestFetch(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("flaky")
		}
		return 7, nil
	}

	first := Fetch(context.Background(), fetch)
	if first.State != Failed {
		t.Fatalf("first = %v, want failed", first.State)
	}
	// Retry re-issues the same fetch.
	second := Fetch(context.Background(), fetch)
	if !second.IsReady() || second.Data != 7 {
		t.Errorf("retry = %+v", second)
	}
	if first.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}
}
