package snapshot

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/go-cmp/cmp"

	catalogerrors "github.com/vango-dev/catalog/internal/errors"
	"github.com/vango-dev/catalog/pkg/render"
	"github.com/vango-dev/catalog/pkg/vtest"
)

type object struct {
	contentType  string
	cacheControl string
	body         string
}

type fakePutter struct {
	mu      sync.Mutex
	objects map[string]object
	fail    map[string]bool
}

func newFakePutter(failKeys ...string) *fakePutter {
	f := &fakePutter{objects: make(map[string]object), fail: make(map[string]bool)}
	for _, k := range failKeys {
		f.fail[k] = true
	}
	return f
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	if aws.ToString(in.Bucket) != "site" {
		return nil, errors.New("no such bucket")
	}
	if f.fail[key] {
		return nil, errors.New("access denied")
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = object{
		contentType:  aws.ToString(in.ContentType),
		cacheControl: aws.ToString(in.CacheControl),
		body:         string(body),
	}
	return &s3.PutObjectOutput{}, nil
}

func newPublisher(t *testing.T, store Store) (*Publisher, *vtest.Source) {
	t.Helper()
	src := vtest.NewSource(vtest.Products()...)
	sel := render.NewSelector(render.Config{Source: src})
	t.Cleanup(sel.Wait)
	return &Publisher{
		Selector: sel,
		Views:    render.MustViews(render.ViewConfig{}),
		Store:    store,
	}, src
}

func TestPublishToS3(t *testing.T) {
	putter := newFakePutter()
	pub, _ := newPublisher(t, NewS3Store(putter, "site", "/catalog/"))

	report, err := pub.Publish(context.Background())
	if err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	want := []string{
		"index.html",
		"products/1/index.html",
		"products/19/index.html",
		"products/2/index.html",
		"products/9/index.html",
		"products/index.html",
	}
	if diff := cmp.Diff(want, report.Published); diff != "" {
		t.Errorf("published mismatch (-want +got):\n%s", diff)
	}

	obj, ok := putter.objects["catalog/products/19/index.html"]
	if !ok {
		t.Fatalf("detail page not uploaded under the prefix; have %d objects", len(putter.objects))
	}
	if obj.contentType != "text/html; charset=utf-8" {
		t.Errorf("ContentType = %q", obj.contentType)
	}
	if obj.cacheControl != "public, s-maxage=3600, stale-while-revalidate" {
		t.Errorf("CacheControl = %q", obj.cacheControl)
	}
	if !strings.Contains(obj.body, "Opna Women&#39;s Short Sleeve Moisture Shirt | Product Catalog") {
		t.Error("detail page body missing product title")
	}
	if list := putter.objects["catalog/products/index.html"].body; !strings.Contains(list, "4 products") {
		t.Error("list page is not the full snapshot")
	}
}

func TestPublishContinuesPastFailures(t *testing.T) {
	putter := newFakePutter("products/2/index.html")
	pub, _ := newPublisher(t, NewS3Store(putter, "site", ""))

	report, err := pub.Publish(context.Background())
	if !catalogerrors.HasCode(err, catalogerrors.CodePublish) {
		t.Fatalf("Publish() error = %v, want %s", err, catalogerrors.CodePublish)
	}
	if diff := cmp.Diff([]string{"products/2/index.html"}, report.Failed); diff != "" {
		t.Errorf("failed mismatch (-want +got):\n%s", diff)
	}
	if len(report.Published) != 5 {
		t.Errorf("published %d pages, want 5", len(report.Published))
	}
}

func TestPublishFailsWithoutSnapshot(t *testing.T) {
	putter := newFakePutter()
	pub, src := newPublisher(t, NewS3Store(putter, "site", ""))
	src.Fail(errors.New("upstream down"))

	if _, err := pub.Publish(context.Background()); !catalogerrors.HasCode(err, catalogerrors.CodePublish) {
		t.Fatalf("Publish() error = %v, want %s", err, catalogerrors.CodePublish)
	}
	if len(putter.objects) != 0 {
		t.Errorf("uploaded %d objects without a snapshot", len(putter.objects))
	}
}

func TestS3StoreMetadata(t *testing.T) {
	var got *s3.PutObjectInput
	putter := putterFunc(func(in *s3.PutObjectInput) { got = in })
	store := NewS3Store(putter, "site", "a/b").WithCacheControl("no-cache")
	store.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	if err := store.Put(context.Background(), "x.html", "text/html", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if aws.ToString(got.Key) != "a/b/x.html" {
		t.Errorf("Key = %q", aws.ToString(got.Key))
	}
	if aws.ToString(got.CacheControl) != "no-cache" {
		t.Errorf("CacheControl = %q", aws.ToString(got.CacheControl))
	}
	if got.Metadata["rendered-at"] != "2024-01-02T03:04:05Z" {
		t.Errorf("rendered-at = %q", got.Metadata["rendered-at"])
	}
}

type putterFunc func(in *s3.PutObjectInput)

func (f putterFunc) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f(in)
	return &s3.PutObjectOutput{}, nil
}

func TestPublishToDisk(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(filepath.Join(dir, "out"))
	if err != nil {
		t.Fatal(err)
	}
	pub, _ := newPublisher(t, store)

	if _, err := pub.Publish(context.Background()); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "out", "products", "9", "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "WD 2TB Elements") {
		t.Error("detail page on disk missing product")
	}
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	if _, err := envCredentials(context.Background()); err == nil {
		t.Fatal("expected an error without credentials")
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "AKID")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	creds, err := envCredentials(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if creds.AccessKeyID != "AKID" || creds.Source != "environment" {
		t.Errorf("credentials = %+v", creds)
	}
}
