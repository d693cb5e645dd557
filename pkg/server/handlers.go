package server

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	clientdist "github.com/vango-dev/catalog/client/dist"
	"github.com/vango-dev/catalog/pkg/features/resource"
	"github.com/vango-dev/catalog/pkg/render"
	"github.com/vango-dev/catalog/pkg/urlparam"
)

// Response headers describing how a list page was produced.
const (
	HeaderRenderMode = "X-Render-Mode"

	cacheControlCached = "public, s-maxage=3600, stale-while-revalidate"
	cacheControlFresh  = "no-store"
)

// write renders into a buffer so a template failure still yields a clean
// 500 instead of a truncated page.
func (s *Server) write(w http.ResponseWriter, r *http.Request, status int, fn func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		s.logger.Error("render failed", "path", r.URL.Path, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.write(w, r, http.StatusOK, func(b *bytes.Buffer) error { return s.cfg.Views.Home(b) })
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	params, err := urlparam.ParseParams(r.URL.RawQuery)
	if err != nil {
		s.logger.Warn("unparseable query, dropping parameters", "query", r.URL.RawQuery, "error", err)
		params = urlparam.Params{}
	}

	page, err := s.cfg.Selector.List(r.Context(), s.cfg.Selector.QueryFrom(params))
	if err != nil {
		s.logger.Warn("list page failed", "url", r.URL.RequestURI(), "error", err)
		w.Header().Set("Cache-Control", cacheControlFresh)
		s.write(w, r, http.StatusBadGateway, func(b *bytes.Buffer) error {
			return s.cfg.Views.Error(b, r.URL.RequestURI())
		})
		return
	}

	w.Header().Set(HeaderRenderMode, page.Mode.String())
	if page.Mode == render.Cached {
		w.Header().Set("Cache-Control", cacheControlCached)
	} else {
		w.Header().Set("Cache-Control", cacheControlFresh)
	}
	s.write(w, r, http.StatusOK, func(b *bytes.Buffer) error { return s.cfg.Views.List(b, page) })
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	out := s.cfg.Selector.Detail(r.Context(), chi.URLParam(r, "id"))
	res := resource.Match(out,
		resource.OnReady(func(page render.DetailPage) viewResult {
			w.Header().Set("Cache-Control", cacheControlCached)
			return viewResult{http.StatusOK, func(b *bytes.Buffer) error { return s.cfg.Views.Detail(b, page) }}
		}),
		resource.OnNotFound[render.DetailPage](func() viewResult {
			return viewResult{http.StatusNotFound, func(b *bytes.Buffer) error {
				return s.cfg.Views.NotFound(b, render.ProductNotFound)
			}}
		}),
		resource.OnFailed[render.DetailPage](func(err error) viewResult {
			s.logger.Warn("detail page failed", "url", r.URL.RequestURI(), "error", err)
			return viewResult{http.StatusBadGateway, func(b *bytes.Buffer) error {
				return s.cfg.Views.Error(b, r.URL.RequestURI())
			}}
		}),
	)
	s.write(w, r, res.status, res.view)
}

type viewResult struct {
	status int
	view   func(*bytes.Buffer) error
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.write(w, r, http.StatusNotFound, func(b *bytes.Buffer) error {
		return s.cfg.Views.NotFound(b, render.PageNotFound)
	})
}

func (s *Server) handleLiveJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(clientdist.LiveJS)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
