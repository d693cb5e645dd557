package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/catalog/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.BaseRoute != DefaultBaseRoute {
		t.Errorf("Server.BaseRoute = %q, want %q", cfg.Server.BaseRoute, DefaultBaseRoute)
	}
	if cfg.Cache.Catalog.Std() != time.Hour {
		t.Errorf("Cache.Catalog = %v, want 1h", cfg.Cache.Catalog)
	}
	if cfg.Cache.Product.Std() != 24*time.Hour {
		t.Errorf("Cache.Product = %v, want 24h", cfg.Cache.Product)
	}
	if cfg.Search.Debounce.Std() != 400*time.Millisecond {
		t.Errorf("Search.Debounce = %v, want 400ms", cfg.Search.Debounce)
	}
	if cfg.Search.MaxLength != 100 {
		t.Errorf("Search.MaxLength = %d, want 100", cfg.Search.MaxLength)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != DefaultAPIBaseURL {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Path() != "" {
		t.Errorf("Path() = %q, want empty", cfg.Path())
	}
}

func TestLoadJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configJSON := `{
  "server": {"port": 8080, "baseRoute": "shop/"},
  "api": {"baseURL": "http://upstream.local/"},
  "cache": {"catalog": "30m"},
  "search": {"debounce": "250ms", "maxLength": 40}
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(filepath.Join(tmpDir, ConfigFileName))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.BaseRoute != "/shop" {
		t.Errorf("Server.BaseRoute = %q, want /shop", cfg.Server.BaseRoute)
	}
	if cfg.API.BaseURL != "http://upstream.local" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Cache.Catalog.Std() != 30*time.Minute {
		t.Errorf("Cache.Catalog = %v", cfg.Cache.Catalog)
	}
	// The list page follows the catalog period unless set.
	if cfg.Cache.ListPage.Std() != 30*time.Minute {
		t.Errorf("Cache.ListPage = %v, want 30m", cfg.Cache.ListPage)
	}
	if cfg.Cache.Product.Std() != ProductRevalidate {
		t.Errorf("Cache.Product = %v", cfg.Cache.Product)
	}
	if cfg.Search.Debounce.Std() != 250*time.Millisecond {
		t.Errorf("Search.Debounce = %v", cfg.Search.Debounce)
	}
	if cfg.Search.MaxLength != 40 {
		t.Errorf("Search.MaxLength = %d", cfg.Search.MaxLength)
	}
	if cfg.Search.QueryKey != "search" {
		t.Errorf("Search.QueryKey = %q", cfg.Search.QueryKey)
	}
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")

	tmpDir := t.TempDir()
	configYAML := `server:
  port: 9090
cache:
  detailPage: 2h
log:
  level: debug
  format: text
`
	if err := os.WriteFile(filepath.Join(tmpDir, "catalog.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Cache.DetailPage.Std() != 2*time.Hour {
		t.Errorf("Cache.DetailPage = %v", cfg.Cache.DetailPage)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if !strings.HasSuffix(cfg.Path(), "catalog.yaml") {
		t.Errorf("Path() = %q", cfg.Path())
	}
}

func TestPagePeriodsFollowSourcePeriods(t *testing.T) {
	tests := []struct {
		name       string
		cache      string
		listPage   time.Duration
		detailPage time.Duration
	}{
		{"defaults", `{}`, CatalogRevalidate, ProductRevalidate},
		{"source periods set", `{"catalog": "30m", "product": "6h"}`, 30 * time.Minute, 6 * time.Hour},
		{"page periods set", `{"catalog": "30m", "listPage": "5m", "detailPage": "1h"}`, 5 * time.Minute, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ConfigFileName)
			if err := os.WriteFile(path, []byte(`{"cache": `+tt.cache+`}`), 0644); err != nil {
				t.Fatal(err)
			}
			cfg, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile() error = %v", err)
			}
			if got := cfg.Cache.ListPage.Std(); got != tt.listPage {
				t.Errorf("Cache.ListPage = %v, want %v", got, tt.listPage)
			}
			if got := cfg.Cache.DetailPage.Std(); got != tt.detailPage {
				t.Errorf("Cache.DetailPage = %v, want %v", got, tt.detailPage)
			}
		})
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(path, []byte(`{"cache": {"catalog": "soon"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(path)
	if !errors.HasCode(err, errors.CodeConfigInvalid) {
		t.Fatalf("LoadFile() error = %v, want %s", err, errors.CodeConfigInvalid)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"API_BASE_URL": "http://mirror.local/",
		"PORT":         "4000",
		"LOG_LEVEL":    "WARN",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := New()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.API.BaseURL != "http://mirror.local" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}

	env["PORT"] = "forty"
	if err := New().ApplyEnv(lookup); !errors.HasCode(err, errors.CodeConfigValue) {
		t.Errorf("ApplyEnv(bad port) error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"relative base route", func(c *Config) { c.Server.BaseRoute = "products" }, "server.baseRoute"},
		{"bad api url", func(c *Config) { c.API.BaseURL = "not a url" }, "api.baseURL"},
		{"zero catalog ttl", func(c *Config) { c.Cache.Catalog = 0 }, "cache.catalog"},
		{"same query and filter key", func(c *Config) { c.Search.FilterKey = "search" }, "search.queryKey"},
		{"unknown log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.HasCode(err, errors.CodeConfigValue) {
				t.Fatalf("Validate() error = %v, want %s", err, errors.CodeConfigValue)
			}
			ce := errors.FromError(err, errors.CodeConfigValue)
			if !strings.Contains(ce.Detail, tt.field) {
				t.Errorf("Detail = %q, want mention of %q", ce.Detail, tt.field)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	cfg := New()
	cfg.Server.Port = 5050
	cfg.Search.Debounce = Duration(time.Second)
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"debounce": "1s"`) {
		t.Errorf("saved file should encode durations as strings:\n%s", data)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if loaded.Server.Port != 5050 || loaded.Search.Debounce.Std() != time.Second {
		t.Errorf("round trip = %+v %+v", loaded.Server, loaded.Search)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("unexpected output: %s", out)
	}
}
