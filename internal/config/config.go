// Package config loads and validates dashboard configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata" // display time zones must resolve on minimal images

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
	"github.com/JakeFAU/econ-dashboard/internal/logging"
)

// NoProxy disables the global proxy for one dataset.
const NoProxy = "none"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig                     `mapstructure:"server"`
	Auth     AuthConfig                       `mapstructure:"auth"`
	HTTP     HTTPConfig                       `mapstructure:"http"`
	Headless HeadlessConfig                   `mapstructure:"headless"`
	Sources  SourcesConfig                    `mapstructure:"sources"`
	PubSub   PubSubConfig                     `mapstructure:"pubsub"`
	Logging  logging.Config                   `mapstructure:"logging"`
	Display  DisplayConfig                    `mapstructure:"display"`
	Datasets []dashboard.Dataset              `mapstructure:"datasets"`
	Charts   map[string]dashboard.ChartPreset `mapstructure:"charts"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// HTTPConfig configures the static fetcher.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	RespectRobots  bool   `mapstructure:"respect_robots"`
	// Proxy is prepended to every http(s) source URL unless a dataset overrides it.
	Proxy string `mapstructure:"proxy"`
	// RatePerSecond caps fetches per source host; zero means unlimited.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

// HeadlessConfig configures the headless rendering fallback.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
	MinBodyBytes  int  `mapstructure:"min_body_bytes"`
	// MarkerWaitSec bounds the wait for a rendered page to expose its embedded data.
	MarkerWaitSec int `mapstructure:"marker_wait_seconds"`
}

// SourcesConfig enables the non-HTTP source readers.
type SourcesConfig struct {
	LocalDir   string `mapstructure:"local_dir"`
	GCSEnabled bool   `mapstructure:"gcs_enabled"`
}

// PubSubConfig holds metadata for refresh notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// DisplayConfig controls presentation-only settings.
type DisplayConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDatasetDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadEnvFile exports the variables of a dotenv file into the process environment
// so DASHBOARD_* overrides can live next to the binary. A missing file is not an error.
// Variables already set in the environment win.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.user_agent", "econ-dashboard/0.1")
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("http.proxy", DefaultProxy)
	v.SetDefault("http.rate_per_second", 2.0)
	v.SetDefault("http.burst", 3)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.min_body_bytes", 2048)
	v.SetDefault("headless.marker_wait_seconds", 10)
	v.SetDefault("sources.gcs_enabled", false)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("display.timezone", "America/La_Paz")
}

// applyDatasetDefaults fills in the stock datasets and chart presets when the
// configuration declares none, and normalizes per-dataset fallbacks.
func (c *Config) applyDatasetDefaults() {
	if len(c.Datasets) == 0 {
		c.Datasets = DefaultDatasets()
	}
	if c.Charts == nil {
		c.Charts = map[string]dashboard.ChartPreset{}
	}
	for name, preset := range DefaultCharts() {
		if _, ok := c.Charts[name]; !ok {
			c.Charts[name] = preset
		}
	}
	for i := range c.Datasets {
		ds := &c.Datasets[i]
		if ds.Title == "" {
			ds.Title = ds.Name
		}
		for j := range ds.Spreadsheet.Columns {
			if ds.Spreadsheet.Columns[j].Match == "" {
				ds.Spreadsheet.Columns[j].Match = dashboard.MatchExact
			}
		}
	}
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.RatePerSecond < 0 {
		return fmt.Errorf("http.rate_per_second must be >= 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Headless.MarkerWaitSec < 0 {
		return fmt.Errorf("headless.marker_wait_seconds must be >= 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Datasets))
	for i, ds := range c.Datasets {
		if strings.TrimSpace(ds.Name) == "" {
			return fmt.Errorf("datasets[%d].name is required", i)
		}
		if seen[ds.Name] {
			return fmt.Errorf("datasets[%d].name %q is declared twice", i, ds.Name)
		}
		seen[ds.Name] = true
		if err := validateDataset(ds); err != nil {
			return fmt.Errorf("datasets[%d] %q: %w", i, ds.Name, err)
		}
	}
	return nil
}

func validateDataset(ds dashboard.Dataset) error {
	if strings.TrimSpace(ds.Source.URL) == "" {
		return fmt.Errorf("source.url is required")
	}
	if _, err := url.Parse(ds.Source.URL); err != nil {
		return fmt.Errorf("source.url: %w", err)
	}
	switch ds.Source.Format {
	case "", "csv", "xlsx", "html":
	default:
		return fmt.Errorf("source.format %q must be csv, xlsx or html", ds.Source.Format)
	}

	fields := map[string]bool{}
	switch ds.Kind {
	case dashboard.KindSpreadsheet:
		for _, rule := range ds.Spreadsheet.Columns {
			if rule.Field == "" || rule.Header == "" {
				return fmt.Errorf("column rules need field and header")
			}
			switch rule.Match {
			case "", dashboard.MatchExact, dashboard.MatchContains:
			default:
				return fmt.Errorf("column %q: match %q must be exact or contains", rule.Field, rule.Match)
			}
			fields[rule.Field] = true
		}
	case dashboard.KindScraped:
		for _, binding := range ds.Scraped.Fields {
			if binding.Key == "" {
				return fmt.Errorf("field bindings need a key")
			}
			field := binding.Field
			if field == "" {
				field = binding.Key
			}
			fields[field] = true
		}
		if ds.Scraped.Primary == "" {
			return fmt.Errorf("scraped.primary is required")
		}
		if !fields[ds.Scraped.Primary] {
			return fmt.Errorf("scraped.primary %q is not a bound field", ds.Scraped.Primary)
		}
	default:
		return fmt.Errorf("kind %q must be spreadsheet or scraped", ds.Kind)
	}
	for _, kpi := range ds.KPIs {
		if !fields[kpi.Field] {
			return fmt.Errorf("kpi field %q is not declared", kpi.Field)
		}
	}
	for i, panel := range ds.Panels {
		if len(panel.Fields) == 0 {
			return fmt.Errorf("panels[%d] needs at least one field", i)
		}
		for _, field := range panel.Fields {
			if !fields[field] {
				return fmt.Errorf("panels[%d] field %q is not declared", i, field)
			}
		}
	}
	return nil
}

// Location resolves the display time zone.
func (c Config) Location() (*time.Location, error) {
	if c.Display.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Display.Timezone)
	if err != nil {
		return nil, fmt.Errorf("display.timezone: %w", err)
	}
	return loc, nil
}

// FetchTimeout converts the HTTP timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// NavTimeout converts the headless navigation timeout into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSec) * time.Second
}

// MarkerWait converts the headless data-marker wait into a duration.
func (c Config) MarkerWait() time.Duration {
	return time.Duration(c.Headless.MarkerWaitSec) * time.Second
}

// ProxyFor returns the proxy applied to ds: its own override, none when the
// override is NoProxy, and the global proxy otherwise.
func (c Config) ProxyFor(ds dashboard.Dataset) string {
	switch ds.Source.Proxy {
	case "":
		return c.HTTP.Proxy
	case NoProxy:
		return ""
	default:
		return ds.Source.Proxy
	}
}

// Dataset looks up a declared dataset by name.
func (c Config) Dataset(name string) (dashboard.Dataset, bool) {
	for _, ds := range c.Datasets {
		if ds.Name == name {
			return ds, true
		}
	}
	return dashboard.Dataset{}, false
}
