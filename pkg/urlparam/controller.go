package urlparam

import "sort"

// Request describes one navigation: a base route, values to set, keys to
// remove, and whether parameters not named are kept.
type Request struct {
	BaseRoute      string
	Upserts        map[string]string
	Deletions      []string
	PreserveOthers bool
}

// Compose returns the target URL of req applied to current.
//
// Deletions are applied first, then upserts. An upsert with an empty value
// deletes its key, so the result never carries an empty parameter. Keys
// that already exist keep their position; new keys are appended in sorted
// order. With no parameters left the bare base route is returned.
func Compose(current Params, req Request) string {
	var next Params
	if req.PreserveOthers {
		next = current.Clone()
	}
	for _, k := range req.Deletions {
		next.Delete(k)
	}

	keys := make([]string, 0, len(req.Upserts))
	for k := range req.Upserts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := req.Upserts[k]; v == "" {
			next.Delete(k)
		} else {
			next.Set(k, v)
		}
	}

	return JoinURL(req.BaseRoute, next)
}

// Option configures a Controller.
type Option func(*Controller)

// PreserveOthers sets whether navigations keep parameters they do not
// name. Default: true.
func PreserveOthers(keep bool) Option {
	return func(c *Controller) { c.preserve = keep }
}

// Controller builds navigation targets for one base route and pushes them
// through a Navigator.
//
// Supersession and the pending flag are owned by the Navigator: when two
// navigations are issued back to back, the second is composed from the
// parameters the first produced, and only the last one renders.
type Controller struct {
	nav      Navigator
	base     string
	preserve bool
}

// NewController creates a controller for base.
func NewController(nav Navigator, base string, opts ...Option) *Controller {
	c := &Controller{nav: nav, base: base, preserve: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseRoute returns the route navigations target.
func (c *Controller) BaseRoute() string { return c.base }

// Params returns the navigator's current parameters.
func (c *Controller) Params() Params { return c.nav.Params() }

// IsPending reports whether a navigation is in flight.
func (c *Controller) IsPending() bool { return c.nav.IsPending() }

// Request returns a navigation request using the controller's base route
// and preserve setting.
func (c *Controller) Request(upserts map[string]string, deletions ...string) Request {
	return Request{
		BaseRoute:      c.base,
		Upserts:        upserts,
		Deletions:      deletions,
		PreserveOthers: c.preserve,
	}
}

// URL returns the target of req against the current parameters.
func (c *Controller) URL(req Request) string {
	return Compose(c.nav.Params(), req)
}

// Apply composes req and pushes the result.
func (c *Controller) Apply(req Request) string {
	target := c.URL(req)
	c.nav.Push(target)
	return target
}

// Navigate upserts and deletes parameters in one navigation.
func (c *Controller) Navigate(upserts map[string]string, deletions ...string) string {
	return c.Apply(c.Request(upserts, deletions...))
}

// NavigateToBase pushes the base route keeping only preserveKeys. With no
// keys, or when the controller does not preserve parameters, the bare base
// route is pushed regardless of the current parameters. Listed keys that
// are absent or empty are skipped.
func (c *Controller) NavigateToBase(preserveKeys ...string) string {
	var next Params
	if c.preserve {
		current := c.nav.Params()
		for _, k := range preserveKeys {
			if v := current.Get(k); v != "" {
				next.Set(k, v)
			}
		}
	}
	target := JoinURL(c.base, next)
	c.nav.Push(target)
	return target
}

// Subscribe registers fn for address changes when the navigator reports
// them. Otherwise it does nothing and the returned function is a no-op.
func (c *Controller) Subscribe(fn func(url string)) (unsubscribe func()) {
	if w, ok := c.nav.(Watcher); ok {
		return w.Subscribe(fn)
	}
	return func() {}
}
