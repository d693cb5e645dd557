// Package fakestore implements catalog.Source against a FakeStoreAPI-compatible
// HTTP endpoint.
package fakestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/vango-dev/catalog/pkg/catalog"
)

// HTTPClient is the subset of *http.Client the client needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// maxBody bounds how much of a response is read.
const maxBody = 8 << 20

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. "https://fakestoreapi.com".
	BaseURL string

	// HTTPClient performs requests. Default: &http.Client{Timeout: Timeout}.
	HTTPClient HTTPClient

	// Timeout is used for the default HTTPClient. Default: 10s.
	Timeout time.Duration

	// Limiter throttles outgoing requests. Nil means unlimited.
	Limiter *rate.Limiter

	Logger *slog.Logger

	// Registerer receives the upstream request histogram. Nil disables it.
	Registerer prometheus.Registerer
}

// Client talks to the product API.
type Client struct {
	base     string
	http     HTTPClient
	limiter  *rate.Limiter
	logger   *slog.Logger
	tracer   trace.Tracer
	duration *prometheus.HistogramVec
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		http:    cfg.HTTPClient,
		limiter: cfg.Limiter,
		logger:  cfg.Logger,
		tracer:  otel.Tracer("catalog/fakestore"),
	}
	if cfg.Registerer != nil {
		c.duration = promauto.With(cfg.Registerer).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "catalog",
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Product API request latency by operation and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"})
	}
	return c
}

// List returns every product.
func (c *Client) List(ctx context.Context) ([]catalog.Product, error) {
	var out []catalog.Product
	if _, err := c.get(ctx, "list", "/products", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one product. The API answers unknown ids with either 404 or
// a 200 carrying a null body; both map to catalog.ErrNotFound.
func (c *Client) Get(ctx context.Context, id string) (catalog.Product, error) {
	var out *catalog.Product
	status, err := c.get(ctx, "get", "/products/"+url.PathEscape(id), &out)
	if err != nil {
		return catalog.Product{}, err
	}
	if out == nil {
		c.logger.Debug("product not found", "id", id, "status", status)
		return catalog.Product{}, catalog.ErrNotFound
	}
	return *out, nil
}

// ListByCategory returns the products of one category.
func (c *Client) ListByCategory(ctx context.Context, category string) ([]catalog.Product, error) {
	var out []catalog.Product
	if _, err := c.get(ctx, "category", "/products/category/"+url.PathEscape(category), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Categories returns the category names.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var out []string
	if _, err := c.get(ctx, "categories", "/products/categories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// get issues a GET for path and decodes the JSON body into dst.
// A 404 is returned as catalog.ErrNotFound.
func (c *Client) get(ctx context.Context, op, path string, dst any) (status int, err error) {
	ctx, span := c.tracer.Start(ctx, "fakestore."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.url.path", path)),
	)
	start := time.Now()
	defer func() {
		c.observe(op, status, time.Since(start))
		if err != nil && !catalog.IsNotFound(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		span.End()
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, &catalog.TransportError{Op: op, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return 0, &catalog.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &catalog.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	status = resp.StatusCode
	if status == http.StatusNotFound {
		return status, catalog.ErrNotFound
	}
	if status < 200 || status > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return status, &catalog.TransportError{
			Op:     op,
			Status: status,
			Err:    fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(snippet))),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return status, &catalog.TransportError{Op: op, Status: status, Err: err}
	}
	// An empty body decodes like null.
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("null")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return status, &catalog.TransportError{Op: op, Status: status, Err: fmt.Errorf("decode: %w", err)}
	}
	return status, nil
}

func (c *Client) observe(op string, status int, d time.Duration) {
	if c.duration == nil {
		return
	}
	label := "error"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	c.duration.WithLabelValues(op, label).Observe(d.Seconds())
}

var _ catalog.Source = (*Client)(nil)
