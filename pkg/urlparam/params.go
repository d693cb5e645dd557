package urlparam

import (
	"fmt"
	"net/url"
	"strings"
)

// Params is an ordered set of query parameters with unique keys.
//
// Set on an existing key keeps its position; new keys are appended. The zero
// value is an empty set ready to use.
type Params struct {
	keys   []string
	values map[string]string
}

// NewParams builds a set from key/value pairs. An odd trailing key is
// ignored.
func NewParams(kv ...string) Params {
	var p Params
	for i := 0; i+1 < len(kv); i += 2 {
		p.Set(kv[i], kv[i+1])
	}
	return p
}

// ParseParams decodes a raw query string, with or without the leading "?".
// When a key repeats, the first value wins.
func ParseParams(raw string) (Params, error) {
	raw = strings.TrimPrefix(raw, "?")

	var p Params
	for raw != "" {
		var pair string
		pair, raw, _ = strings.Cut(raw, "&")
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return Params{}, fmt.Errorf("urlparam: key %q: %w", k, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return Params{}, fmt.Errorf("urlparam: value for %q: %w", key, err)
		}
		if key == "" || p.Has(key) {
			continue
		}
		p.Set(key, value)
	}
	return p, nil
}

// SplitURL separates a path from its query parameters.
func SplitURL(raw string) (path string, params Params, err error) {
	path, query, _ := strings.Cut(raw, "?")
	params, err = ParseParams(query)
	return path, params, err
}

// JoinURL returns base with the encoded parameters appended, or the bare
// base when p is empty.
func JoinURL(base string, p Params) string {
	if p.Len() == 0 {
		return base
	}
	return base + "?" + p.Encode()
}

// Get returns the value for key, or "" when absent.
func (p Params) Get(key string) string {
	return p.values[key]
}

// Lookup returns the value for key and whether it is present.
func (p Params) Lookup(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Len returns the number of parameters.
func (p Params) Len() int {
	return len(p.keys)
}

// Keys returns the keys in order.
func (p Params) Keys() []string {
	return append([]string(nil), p.keys...)
}

// Set inserts or replaces key.
func (p *Params) Set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Delete removes key if present.
func (p *Params) Delete(key string) {
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i:i], p.keys[i+1:]...)
			break
		}
	}
}

// Clone returns an independent copy.
func (p Params) Clone() Params {
	out := Params{keys: append([]string(nil), p.keys...)}
	if p.values != nil {
		out.values = make(map[string]string, len(p.values))
		for k, v := range p.values {
			out.values[k] = v
		}
	}
	return out
}

// Map returns the parameters as a plain map.
func (p Params) Map() map[string]string {
	out := make(map[string]string, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// Equal reports whether p and o hold the same pairs in the same order.
func (p Params) Equal(o Params) bool {
	if len(p.keys) != len(o.keys) {
		return false
	}
	for i, k := range p.keys {
		if o.keys[i] != k || o.values[k] != p.values[k] {
			return false
		}
	}
	return true
}

// Encode serializes the parameters in key order using form escaping.
func (p Params) Encode() string {
	var b strings.Builder
	for i, k := range p.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.values[k]))
	}
	return b.String()
}

// String returns the encoded form.
func (p Params) String() string {
	return p.Encode()
}
