package vtest

import (
	"slices"
	"sync"

	"github.com/vango-dev/catalog/pkg/urlparam"
)

// Navigator is a urlparam.Navigator that applies pushes synchronously and
// records them.
type Navigator struct {
	mu        sync.Mutex
	url       string
	params    urlparam.Params
	pushes    []string
	pending   bool
	listeners map[int]func(string)
	nextID    int
}

// NewNavigator creates a navigator positioned at url.
func NewNavigator(url string) *Navigator {
	n := &Navigator{listeners: make(map[int]func(string))}
	n.set(url)
	return n
}

// Params returns the current parameters.
func (n *Navigator) Params() urlparam.Params {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.params.Clone()
}

// Push records url, makes it current and marks a navigation pending.
func (n *Navigator) Push(url string) {
	n.mu.Lock()
	n.pushes = append(n.pushes, url)
	n.pending = true
	n.mu.Unlock()
	n.change(url)
}

// IsPending reports the pending flag.
func (n *Navigator) IsPending() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pending
}

// Settle clears the pending flag, as a completed render would.
func (n *Navigator) Settle() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = false
}

// SetURL simulates an address change the controllers did not cause, such
// as the back button. It is not recorded as a push.
func (n *Navigator) SetURL(url string) {
	n.change(url)
}

// URL returns the current address.
func (n *Navigator) URL() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.url
}

// Pushes returns every pushed URL in order.
func (n *Navigator) Pushes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.pushes...)
}

// LastPush returns the most recent push, or "" when there was none.
func (n *Navigator) LastPush() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.pushes) == 0 {
		return ""
	}
	return n.pushes[len(n.pushes)-1]
}

// Subscribe implements urlparam.Watcher.
func (n *Navigator) Subscribe(fn func(url string)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.listeners, id)
	}
}

func (n *Navigator) change(url string) {
	n.mu.Lock()
	changed := url != n.url
	n.set(url)
	var fns []func(string)
	if changed {
		ids := make([]int, 0, len(n.listeners))
		for id := range n.listeners {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			fns = append(fns, n.listeners[id])
		}
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(url)
	}
}

func (n *Navigator) set(url string) {
	_, params, err := urlparam.SplitURL(url)
	if err != nil {
		params = urlparam.Params{}
	}
	n.url = url
	n.params = params
}

var (
	_ urlparam.Navigator = (*Navigator)(nil)
	_ urlparam.Watcher   = (*Navigator)(nil)
)
