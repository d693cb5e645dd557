package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/catalog/internal/errors"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "catalog.json"

	// DefaultPort is the default server port.
	DefaultPort = 3000

	// DefaultHost is the default bind host.
	DefaultHost = "0.0.0.0"

	// DefaultBaseRoute is the list page route.
	DefaultBaseRoute = "/products"

	// DefaultAPIBaseURL is the FakeStoreAPI root.
	DefaultAPIBaseURL = "https://fakestoreapi.com"

	// CatalogRevalidate is the revalidation period of the full catalog, the
	// per-category lists and the cached list page.
	CatalogRevalidate = time.Hour

	// ProductRevalidate is the revalidation period of single items and the
	// detail pages.
	ProductRevalidate = 24 * time.Hour

	// CategoriesRevalidate is the revalidation period of category names.
	CategoriesRevalidate = 24 * time.Hour

	// DefaultDebounce is the search input debounce window.
	DefaultDebounce = 400 * time.Millisecond

	// DefaultMaxSearchLength bounds committed search terms.
	DefaultMaxSearchLength = 100
)

// yamlNames are the alternative file names checked after ConfigFileName.
var yamlNames = []string{"catalog.yaml", "catalog.yml"}

// Duration is a time.Duration that reads and writes Go duration strings.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String implements fmt.Stringer.
func (d Duration) String() string { return time.Duration(d).String() }

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("duration must be a string like \"1h\": %s", data)
	}
	*d = Duration(n)
	return nil
}

// MarshalYAML writes the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML accepts a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config represents the complete catalog configuration.
type Config struct {
	// Name is shown in page titles.
	Name string `json:"name,omitempty" yaml:"name,omitempty" validate:"required"`

	Server  ServerConfig  `json:"server" yaml:"server"`
	API     APIConfig     `json:"api" yaml:"api"`
	Cache   CacheConfig   `json:"cache" yaml:"cache"`
	Search  SearchConfig  `json:"search" yaml:"search"`
	Live    LiveConfig    `json:"live" yaml:"live"`
	Log     LogConfig     `json:"log" yaml:"log"`
	Publish PublishConfig `json:"publish,omitempty" yaml:"publish,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	Port int    `json:"port,omitempty" yaml:"port,omitempty" validate:"min=1,max=65535"`

	// BaseRoute is the list page route.
	BaseRoute string `json:"baseRoute,omitempty" yaml:"baseRoute,omitempty" validate:"required,startswith=/"`

	ReadTimeout     Duration `json:"readTimeout,omitempty" yaml:"readTimeout,omitempty" validate:"gt=0"`
	WriteTimeout    Duration `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty" validate:"gt=0"`
	ShutdownTimeout Duration `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty" validate:"gt=0"`

	// MetricsEnabled exposes /metrics.
	MetricsEnabled bool `json:"metricsEnabled" yaml:"metricsEnabled"`
}

// APIConfig contains product API client settings.
type APIConfig struct {
	BaseURL string   `json:"baseURL,omitempty" yaml:"baseURL,omitempty" validate:"required,url"`
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" validate:"gt=0"`

	// RateLimit caps upstream requests per second; 0 disables the limiter.
	RateLimit float64 `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty" validate:"gte=0"`
	Burst     int     `json:"burst,omitempty" yaml:"burst,omitempty" validate:"gte=0"`
}

// CacheConfig contains per key-class revalidation periods.
type CacheConfig struct {
	Catalog    Duration `json:"catalog,omitempty" yaml:"catalog,omitempty" validate:"gt=0"`
	Product    Duration `json:"product,omitempty" yaml:"product,omitempty" validate:"gt=0"`
	Categories Duration `json:"categories,omitempty" yaml:"categories,omitempty" validate:"gt=0"`
	ListPage   Duration `json:"listPage,omitempty" yaml:"listPage,omitempty" validate:"gt=0"`
	DetailPage Duration `json:"detailPage,omitempty" yaml:"detailPage,omitempty" validate:"gt=0"`

	// MaxEntries bounds each cache; 0 means unbounded.
	MaxEntries int `json:"maxEntries,omitempty" yaml:"maxEntries,omitempty" validate:"gte=0"`

	// WarmOnStart pre-materializes the list page and every detail page.
	WarmOnStart bool `json:"warmOnStart" yaml:"warmOnStart"`
}

// SearchConfig contains search box and filter settings.
type SearchConfig struct {
	QueryKey  string   `json:"queryKey,omitempty" yaml:"queryKey,omitempty" validate:"required,nefield=FilterKey"`
	FilterKey string   `json:"filterKey,omitempty" yaml:"filterKey,omitempty" validate:"required"`
	Debounce  Duration `json:"debounce,omitempty" yaml:"debounce,omitempty" validate:"gte=0"`
	MaxLength int      `json:"maxLength,omitempty" yaml:"maxLength,omitempty" validate:"min=1"`
}

// LiveConfig contains websocket live session settings.
type LiveConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled"`
	MaxSessions    int      `json:"maxSessions,omitempty" yaml:"maxSessions,omitempty" validate:"gte=0"`
	IdleTimeout    Duration `json:"idleTimeout,omitempty" yaml:"idleTimeout,omitempty" validate:"gt=0"`
	WriteTimeout   Duration `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty" validate:"gt=0"`
	MaxMessageSize int64    `json:"maxMessageSize,omitempty" yaml:"maxMessageSize,omitempty" validate:"gt=0"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty" validate:"oneof=debug info warn error"`
	Format string `json:"format,omitempty" yaml:"format,omitempty" validate:"oneof=json text"`
}

// PublishConfig contains S3 publishing defaults.
type PublishConfig struct {
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Name: "Product Catalog",
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			BaseRoute:       DefaultBaseRoute,
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
			MetricsEnabled:  true,
		},
		API: APIConfig{
			BaseURL: DefaultAPIBaseURL,
			Timeout: Duration(10 * time.Second),
		},
		Cache: CacheConfig{
			Catalog:     Duration(CatalogRevalidate),
			Product:     Duration(ProductRevalidate),
			Categories:  Duration(CategoriesRevalidate),
			ListPage:    Duration(CatalogRevalidate),
			DetailPage:  Duration(ProductRevalidate),
			WarmOnStart: true,
		},
		Search: SearchConfig{
			QueryKey:  "search",
			FilterKey: "category",
			Debounce:  Duration(DefaultDebounce),
			MaxLength: DefaultMaxSearchLength,
		},
		Live: LiveConfig{
			Enabled:        true,
			MaxSessions:    1000,
			IdleTimeout:    Duration(5 * time.Minute),
			WriteTimeout:   Duration(10 * time.Second),
			MaxMessageSize: 4 << 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from the specified directory, applies
// environment overrides and validates the result. A directory without a
// configuration file yields the defaults.
func Load(dir string) (*Config, error) {
	var cfg *Config
	for _, name := range append([]string{ConfigFileName}, yamlNames...) {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		break
	}
	if cfg == nil {
		cfg = New()
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads configuration from the specified file path. The format is
// chosen by extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeConfigUnreadable).
			WithDetail("Could not read " + path).
			Wrap(err)
	}

	cfg := New()
	// Page periods left out of the file follow their source period.
	cfg.Cache.ListPage, cfg.Cache.DetailPage = 0, 0
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check the file syntax and that durations are strings like \"1h\"")
	}

	cfg.configPath = path
	cfg.applyDefaults()
	return cfg, nil
}

// SaveTo writes the configuration as JSON to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New(errors.CodeConfigInvalid).Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.CodeConfigUnreadable).Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// ApplyEnv applies environment overrides using lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("API_BASE_URL"); ok && v != "" {
		c.API.BaseURL = strings.TrimRight(v, "/")
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.New(errors.CodeConfigValue).
				WithDetail(fmt.Sprintf("PORT=%q is not a number", v))
		}
		c.Server.Port = port
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	return nil
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := New()

	if c.Name == "" {
		c.Name = d.Name
	}

	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.BaseRoute == "" {
		c.Server.BaseRoute = d.Server.BaseRoute
	}
	c.Server.BaseRoute = "/" + strings.Trim(c.Server.BaseRoute, "/")
	defaultDuration(&c.Server.ReadTimeout, d.Server.ReadTimeout)
	defaultDuration(&c.Server.WriteTimeout, d.Server.WriteTimeout)
	defaultDuration(&c.Server.ShutdownTimeout, d.Server.ShutdownTimeout)

	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	defaultDuration(&c.API.Timeout, d.API.Timeout)

	defaultDuration(&c.Cache.Catalog, d.Cache.Catalog)
	defaultDuration(&c.Cache.Product, d.Cache.Product)
	defaultDuration(&c.Cache.Categories, d.Cache.Categories)
	defaultDuration(&c.Cache.ListPage, c.Cache.Catalog)
	defaultDuration(&c.Cache.DetailPage, c.Cache.Product)

	if c.Search.QueryKey == "" {
		c.Search.QueryKey = d.Search.QueryKey
	}
	if c.Search.FilterKey == "" {
		c.Search.FilterKey = d.Search.FilterKey
	}
	if c.Search.MaxLength == 0 {
		c.Search.MaxLength = d.Search.MaxLength
	}

	if c.Live.MaxSessions == 0 {
		c.Live.MaxSessions = d.Live.MaxSessions
	}
	defaultDuration(&c.Live.IdleTimeout, d.Live.IdleTimeout)
	defaultDuration(&c.Live.WriteTimeout, d.Live.WriteTimeout)
	if c.Live.MaxMessageSize == 0 {
		c.Live.MaxMessageSize = d.Live.MaxMessageSize
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

func defaultDuration(v *Duration, def Duration) {
	if *v == 0 {
		*v = def
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the configuration against its field rules.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return errors.New(errors.CodeConfigValue).Wrap(err)
	}

	fe := verrs[0]
	detail := fmt.Sprintf("%s fails %q", fieldPath(fe.Namespace()), fe.Tag())
	if fe.Param() != "" {
		detail = fmt.Sprintf("%s fails %q (%s)", fieldPath(fe.Namespace()), fe.Tag(), fe.Param())
	}
	return errors.New(errors.CodeConfigValue).
		WithDetail(detail).
		Wrap(err)
}

// fieldPath turns "Config.server.port" into "server.port".
func fieldPath(ns string) string {
	_, rest, ok := strings.Cut(ns, ".")
	if !ok {
		return ns
	}
	return rest
}

// Address returns the listen address.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// NewLogger builds the process logger described by the log settings.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch l.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
