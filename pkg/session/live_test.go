package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	catalogerrors "github.com/vango-dev/catalog/internal/errors"
	"github.com/vango-dev/catalog/pkg/features/filter"
	"github.com/vango-dev/catalog/pkg/render"
	"github.com/vango-dev/catalog/pkg/vtest"
)

type harness struct {
	src *vtest.Source
	rec *vtest.LogRecorder
	mgr *Manager
	srv *httptest.Server
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	t.Cleanup(func() { goleak.VerifyNone(t) })

	src := vtest.NewSource(vtest.Products()...)
	rec := vtest.NewLogRecorder()
	sel := render.NewSelector(render.Config{Source: src, Logger: rec.Logger()})
	cfg := Config{
		Selector: sel,
		Views:    render.MustViews(render.ViewConfig{Live: true}),
		Filters: func(ctx context.Context) ([]filter.Config, error) {
			cats, err := sel.Categories(ctx)
			if err != nil {
				return nil, err
			}
			return []filter.Config{{Key: "category", AllowedValues: cats}}, nil
		},
		Debounce:   50 * time.Millisecond,
		Registerer: prometheus.NewRegistry(),
		Logger:     rec.Logger(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	mgr := NewManager(cfg)
	srv := httptest.NewServer(mgr)
	t.Cleanup(func() {
		mgr.Shutdown()
		srv.Close()
		sel.Wait()
	})
	return &harness{src: src, rec: rec, mgr: mgr, srv: srv}
}

func (h *harness) dial(t *testing.T, page string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/live?url=" + url.QueryEscape(page)
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (h *harness) waitCount(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.mgr.Count() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Count() = %d, want %d", h.mgr.Count(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func send(t *testing.T, conn *websocket.Conn, msg Message) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntil collects frames up to and including the first of type want.
func readUntil(t *testing.T, conn *websocket.Conn, want string) []Frame {
	t.Helper()
	var frames []Frame
	for {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read after %v: %v", frames, err)
		}
		frames = append(frames, f)
		if f.T == want {
			return frames
		}
	}
}

func ofType(frames []Frame, typ string) []Frame {
	var out []Frame
	for _, f := range frames {
		if f.T == typ {
			out = append(out, f)
		}
	}
	return out
}

func lastHTML(t *testing.T, frames []Frame) string {
	t.Helper()
	html, ok := frames[len(frames)-1].V.(string)
	if !ok {
		t.Fatalf("html frame value = %T", frames[len(frames)-1].V)
	}
	return html
}

func TestLiveSearchCommitsAfterDebounce(t *testing.T) {
	h := newHarness(t, nil)
	conn := h.dial(t, "/products")

	for _, v := range []string{"s", "sh", "shirt"} {
		send(t, conn, Message{T: MsgInput, V: v})
	}
	frames := readUntil(t, conn, FrameHTML)

	urls := ofType(frames, FrameURL)
	if len(urls) != 1 || urls[0].URL != "/products?search=shirt" {
		t.Fatalf("url frames = %v, want one for /products?search=shirt", urls)
	}
	if p := ofType(frames, FramePending); len(p) == 0 || p[0].V != true {
		t.Errorf("pending frames = %v, want pending=true first", p)
	}
	html := lastHTML(t, frames)
	for _, want := range []string{"Mens Casual Premium Slim Fit T-Shirts", "Opna Women&#39;s Short Sleeve Moisture Shirt"} {
		if !strings.Contains(html, want) {
			t.Errorf("results missing %q", want)
		}
	}
	if strings.Contains(html, "Fjallraven") {
		t.Error("results include a product that does not match")
	}
}

func TestLiveFilterRejectsDisallowed(t *testing.T) {
	h := newHarness(t, nil)
	conn := h.dial(t, "/products")

	send(t, conn, Message{T: MsgFilter, K: "category", V: "toys"})
	send(t, conn, Message{T: MsgFilter, K: "category", V: "electronics"})
	frames := readUntil(t, conn, FrameHTML)

	urls := ofType(frames, FrameURL)
	if len(urls) != 1 || urls[0].URL != "/products?category=electronics" {
		t.Fatalf("url frames = %v, want only the electronics navigation", urls)
	}
	if !strings.Contains(lastHTML(t, frames), "WD 2TB Elements") {
		t.Error("electronics results missing")
	}
	r, ok := h.rec.Find(slog.LevelWarn, "filter write rejected")
	if !ok {
		t.Fatal("expected a rejection record")
	}
	if r.Attrs["value"] != "toys" || r.Attrs["code"] != catalogerrors.CodeFilterValue {
		t.Errorf("rejection attrs = %v", r.Attrs)
	}
}

func TestLiveClearAllNavigatesOnce(t *testing.T) {
	h := newHarness(t, nil)
	conn := h.dial(t, "/products?category=electronics&search=drive")

	send(t, conn, Message{T: MsgClear})
	frames := readUntil(t, conn, FrameHTML)

	urls := ofType(frames, FrameURL)
	if len(urls) != 1 || urls[0].URL != "/products" {
		t.Fatalf("url frames = %v, want one for /products", urls)
	}
	values := ofType(frames, FrameValue)
	if len(values) != 1 || values[0].V != "" {
		t.Errorf("value frames = %v, want the emptied search box", values)
	}
	if !strings.Contains(lastHTML(t, frames), "Fjallraven") {
		t.Error("unfiltered results missing")
	}
}

func TestLivePopResyncsSearch(t *testing.T) {
	h := newHarness(t, nil)
	conn := h.dial(t, "/products")

	send(t, conn, Message{T: MsgPop, URL: "/products?search=backpack"})
	frames := readUntil(t, conn, FrameHTML)

	values := ofType(frames, FrameValue)
	if len(values) != 1 || values[0].V != "backpack" {
		t.Errorf("value frames = %v, want backpack", values)
	}
	if !strings.Contains(lastHTML(t, frames), "Fjallraven Foldsack Backpack") {
		t.Error("popped results missing")
	}
}

func TestLiveRenderFailureOffersRetry(t *testing.T) {
	h := newHarness(t, nil)
	conn := h.dial(t, "/products")
	h.waitCount(t, 1)

	h.src.Fail(errors.New("upstream down"))
	send(t, conn, Message{T: MsgInput, V: "shirt"})
	html := lastHTML(t, readUntil(t, conn, FrameHTML))
	if !strings.Contains(html, "Something went wrong!") || !strings.Contains(html, "data-retry") {
		t.Fatalf("failure fragment = %q", html)
	}

	h.src.Fail(nil)
	send(t, conn, Message{T: MsgRetry})
	html = lastHTML(t, readUntil(t, conn, FrameHTML))
	if !strings.Contains(html, "Mens Casual Premium Slim Fit T-Shirts") {
		t.Errorf("retried fragment = %q", html)
	}
}

func TestLiveRejectsBadMessages(t *testing.T) {
	h := newHarness(t, nil)
	conn := h.dial(t, "/products")

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{")); err != nil {
		t.Fatal(err)
	}
	send(t, conn, Message{T: "dance"})
	send(t, conn, Message{T: MsgPop, URL: "products"})
	send(t, conn, Message{T: MsgFilter, K: "category", V: "electronics"})
	readUntil(t, conn, FrameURL)

	var codes []string
	for _, r := range h.rec.Records() {
		if r.Message == "live message rejected" {
			codes = append(codes, r.Attrs["code"].(string))
		}
	}
	want := []string{catalogerrors.CodeBadMessage, catalogerrors.CodeUnknownMessage, catalogerrors.CodeBadURL}
	if strings.Join(codes, ",") != strings.Join(want, ",") {
		t.Errorf("rejection codes = %v, want %v", codes, want)
	}
}

func TestManagerMaxSessions(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.MaxSessions = 1 })
	h.dial(t, "/products")
	h.waitCount(t, 1)

	second := h.dial(t, "/products")
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := second.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseTryAgainLater) {
		t.Fatalf("second session read error = %v, want try-again-later close", err)
	}
	if got := h.mgr.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
}

func TestManagerClosesIdleSessions(t *testing.T) {
	h := newHarness(t, nil)
	conn := h.dial(t, "/products")
	h.waitCount(t, 1)

	if got := testutil.ToFloat64(h.mgr.cfg.metrics.live); got != 1 {
		t.Errorf("live sessions gauge = %v, want 1", got)
	}
	if n := h.mgr.cleanupExpired(time.Now()); n != 0 {
		t.Fatalf("cleanupExpired(now) closed %d sessions", n)
	}
	if n := h.mgr.cleanupExpired(time.Now().Add(time.Hour)); n != 1 {
		t.Fatalf("cleanupExpired(+1h) closed %d sessions, want 1", n)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("read after idle close = %v, want normal closure", err)
	}
	if got := h.mgr.Stats(); got != (Stats{Active: 0, Created: 1, Closed: 1, Peak: 1}) {
		t.Errorf("Stats() = %+v", got)
	}
	if got := testutil.ToFloat64(h.mgr.cfg.metrics.live); got != 0 {
		t.Errorf("live sessions gauge = %v, want 0", got)
	}
}

func TestManagerShutdownRejectsNewSessions(t *testing.T) {
	h := newHarness(t, nil)
	h.mgr.Shutdown()

	if _, err := h.mgr.Create(context.Background(), nil, "/products"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("Create after Shutdown = %v, want ErrSessionClosed", err)
	}
}
