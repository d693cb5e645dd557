package urlparam

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParamsOrderAndUniqueness(t *testing.T) {
	var p Params
	p.Set("category", "electronics")
	p.Set("search", "drive")
	p.Set("category", "jewelery")

	if diff := cmp.Diff([]string{"category", "search"}, p.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	if got := p.Get("category"); got != "jewelery" {
		t.Errorf("Get(category) = %q, want jewelery", got)
	}

	p.Delete("category")
	p.Delete("missing")
	if got := p.Encode(); got != "search=drive" {
		t.Errorf("Encode() = %q, want search=drive", got)
	}
}

func TestParamsRoundTrip(t *testing.T) {
	tests := []Params{
		{},
		NewParams("search", "shirt"),
		NewParams("category", "men's clothing", "search", "slim fit"),
		NewParams("q", "a&b=c", "z", "100%", "emoji", "café ☕"),
		NewParams("b", "2", "a", "1"),
	}

	for _, p := range tests {
		t.Run(p.Encode(), func(t *testing.T) {
			got, err := ParseParams(p.Encode())
			if err != nil {
				t.Fatalf("ParseParams() error = %v", err)
			}
			if !got.Equal(p) {
				t.Errorf("round trip = %v, want %v", got.Map(), p.Map())
			}
		})
	}
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		raw  string
		keys []string
		want map[string]string
	}{
		{raw: "", keys: nil, want: map[string]string{}},
		{raw: "?search=shirt", keys: []string{"search"}, want: map[string]string{"search": "shirt"}},
		{raw: "a=1&a=2&b=", keys: []string{"a", "b"}, want: map[string]string{"a": "1", "b": ""}},
		{raw: "&&flag&x=y+z", keys: []string{"flag", "x"}, want: map[string]string{"flag": "", "x": "y z"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			p, err := ParseParams(tt.raw)
			if err != nil {
				t.Fatalf("ParseParams(%q) error = %v", tt.raw, err)
			}
			if diff := cmp.Diff(tt.keys, p.Keys()); diff != "" {
				t.Errorf("keys mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.want, p.Map()); diff != "" {
				t.Errorf("values mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := ParseParams("search=%zz"); err == nil {
		t.Error("expected error for bad escape")
	}
}

func TestParamsCloneIsIndependent(t *testing.T) {
	p := NewParams("a", "1")
	c := p.Clone()
	c.Set("b", "2")
	c.Delete("a")

	if p.Len() != 1 || p.Get("a") != "1" {
		t.Errorf("original modified: %v", p.Map())
	}
}

func TestJoinURL(t *testing.T) {
	if got := JoinURL("/products", Params{}); got != "/products" {
		t.Errorf("JoinURL(empty) = %q, want bare base", got)
	}
	if got := JoinURL("/products", NewParams("search", "a b")); got != "/products?search=a+b" {
		t.Errorf("JoinURL = %q", got)
	}

	path, p, err := SplitURL("/products?category=electronics")
	if err != nil || path != "/products" || p.Get("category") != "electronics" {
		t.Errorf("SplitURL = %q, %v, %v", path, p.Map(), err)
	}
}
