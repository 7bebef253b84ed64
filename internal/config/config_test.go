package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.HTTP.Proxy != DefaultProxy {
		t.Fatalf("expected default proxy, got %q", cfg.HTTP.Proxy)
	}
	if cfg.HTTP.RatePerSecond != 2 || cfg.HTTP.Burst != 3 {
		t.Fatalf("expected 2 rps burst 3, got %v/%d", cfg.HTTP.RatePerSecond, cfg.HTTP.Burst)
	}
	if got := cfg.MarkerWait(); got != 10*time.Second {
		t.Fatalf("expected 10s marker wait, got %v", got)
	}
	if got := cfg.FetchTimeout(); got != 15*time.Second {
		t.Fatalf("expected 15s timeout, got %v", got)
	}
	names := make([]string, 0, len(cfg.Datasets))
	for _, ds := range cfg.Datasets {
		names = append(names, ds.Name)
	}
	if strings.Join(names, ",") != "macro,cpi,trade" {
		t.Fatalf("expected stock datasets in order, got %v", names)
	}
	trade, ok := cfg.Dataset("trade")
	if !ok || !trade.Scraped.StripProvisional || trade.Scraped.Primary != "balance" {
		t.Fatalf("unexpected trade dataset: %+v", trade)
	}
	cpi, _ := cfg.Dataset("cpi")
	if !cpi.Scraped.StripProvisional {
		t.Fatal("expected cpi labels to drop the provisional marker")
	}
	if _, ok := cfg.Charts["trade"]; !ok {
		t.Fatalf("expected stock chart presets, got %v", cfg.Charts)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "America/La_Paz" {
		t.Fatalf("expected La Paz display zone, got %v (%v)", loc, err)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server:
  port: 9090
auth:
  enabled: true
  api_key: secret
http:
  timeout_seconds: 45
  user_agent: real-agent
  proxy: "https://api.allorigins.win/raw?url={url}"
headless:
  enabled: true
  max_parallel: 2
  nav_timeout_seconds: 30
  marker_wait_seconds: 4
logging:
  development: false
  level: warn
display:
  timezone: UTC
charts:
  mono:
    type: line
    height: 200
    colors: ["#000000"]
datasets:
  - name: local-macro
    kind: spreadsheet
    source:
      url: file://macro.csv
      format: csv
      proxy: none
    spreadsheet:
      category_token: anio
      columns:
        - field: gdp
          header: PIB
        - field: balance
          header: balanza
          match: contains
    kpis:
      - field: gdp
        unit: "%"
    chart: mono
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 || !cfg.Auth.Enabled || cfg.Auth.APIKey != "secret" {
		t.Fatalf("expected server and auth overrides, got %+v %+v", cfg.Server, cfg.Auth)
	}
	if cfg.Logging.Development || cfg.Logging.Level != "warn" {
		t.Fatalf("expected logging overrides, got %+v", cfg.Logging)
	}
	if cfg.NavTimeout() != 30*time.Second {
		t.Fatalf("expected nav timeout 30s, got %v", cfg.NavTimeout())
	}
	if cfg.MarkerWait() != 4*time.Second {
		t.Fatalf("expected marker wait 4s, got %v", cfg.MarkerWait())
	}
	if len(cfg.Datasets) != 1 {
		t.Fatalf("expected declared datasets to replace the stock ones, got %d", len(cfg.Datasets))
	}
	ds := cfg.Datasets[0]
	if ds.Title != "local-macro" {
		t.Fatalf("expected title to default to name, got %q", ds.Title)
	}
	if ds.Spreadsheet.CategoryToken != "anio" || len(ds.Spreadsheet.Columns) != 2 {
		t.Fatalf("unexpected spreadsheet options: %+v", ds.Spreadsheet)
	}
	if ds.Spreadsheet.Columns[0].Match != dashboard.MatchExact || ds.Spreadsheet.Columns[1].Match != dashboard.MatchContains {
		t.Fatalf("unexpected match modes: %+v", ds.Spreadsheet.Columns)
	}
	if ds.KPIs[0].Unit != "%" {
		t.Fatalf("expected KPI unit, got %+v", ds.KPIs)
	}
	if got := cfg.ProxyFor(ds); got != "" {
		t.Fatalf("expected proxy disabled for dataset, got %q", got)
	}
	if mono := cfg.Charts["mono"]; mono.Height != 200 || mono.Type != "line" {
		t.Fatalf("expected custom preset, got %+v", mono)
	}
	if _, ok := cfg.Charts["cpi"]; !ok {
		t.Fatal("expected stock presets to remain available")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DASHBOARD_SERVER_PORT", "7070")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Fatalf("expected env port 7070, got %d", cfg.Server.Port)
	}
}

func TestProxyFor(t *testing.T) {
	t.Parallel()

	cfg := Config{HTTP: HTTPConfig{Proxy: DefaultProxy}}
	if got := cfg.ProxyFor(dashboard.Dataset{}); got != DefaultProxy {
		t.Fatalf("expected global proxy, got %q", got)
	}
	custom := dashboard.Dataset{Source: dashboard.Source{Proxy: "https://proxy.local/?u="}}
	if got := cfg.ProxyFor(custom); got != "https://proxy.local/?u=" {
		t.Fatalf("expected dataset proxy, got %q", got)
	}
	off := dashboard.Dataset{Source: dashboard.Source{Proxy: NoProxy}}
	if got := cfg.ProxyFor(off); got != "" {
		t.Fatalf("expected no proxy, got %q", got)
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	base := func() Config {
		cfg := Config{
			Server: ServerConfig{Port: 8080},
			HTTP:   HTTPConfig{TimeoutSeconds: 15},
		}
		cfg.applyDatasetDefaults()
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"timeout", func(c *Config) { c.HTTP.TimeoutSeconds = 0 }, "http.timeout_seconds"},
		{"rate", func(c *Config) { c.HTTP.RatePerSecond = -1 }, "http.rate_per_second"},
		{"headless parallel", func(c *Config) { c.Headless = HeadlessConfig{Enabled: true} }, "headless.max_parallel"},
		{"marker wait", func(c *Config) { c.Headless.MarkerWaitSec = -1 }, "headless.marker_wait_seconds"},
		{"auth key", func(c *Config) { c.Auth.Enabled = true }, "auth.api_key"},
		{"pubsub project", func(c *Config) { c.PubSub.TopicName = "refresh" }, "pubsub.project_id"},
		{"timezone", func(c *Config) { c.Display.Timezone = "Mars/Olympus" }, "display.timezone"},
		{"duplicate", func(c *Config) { c.Datasets = append(c.Datasets, c.Datasets[0]) }, "declared twice"},
		{"empty name", func(c *Config) { c.Datasets[0].Name = " " }, "name is required"},
		{"kind", func(c *Config) { c.Datasets[0].Kind = "pdf" }, "must be spreadsheet or scraped"},
		{"format", func(c *Config) { c.Datasets[0].Source.Format = "ods" }, "source.format"},
		{"url", func(c *Config) { c.Datasets[0].Source.URL = "" }, "source.url is required"},
		{"match", func(c *Config) { c.Datasets[0].Spreadsheet.Columns[0].Match = "prefix" }, "must be exact or contains"},
		{"primary unbound", func(c *Config) { c.Datasets[1].Scraped.Primary = "gdp" }, "not a bound field"},
		{"primary missing", func(c *Config) { c.Datasets[2].Scraped.Primary = "" }, "scraped.primary is required"},
		{"kpi undeclared", func(c *Config) { c.Datasets[0].KPIs = []dashboard.KPISpec{{Field: "m2"}} }, "kpi field"},
		{"panel empty", func(c *Config) { c.Datasets[0].Panels = []dashboard.PanelSpec{{Title: "PIB"}} }, "needs at least one field"},
		{"panel undeclared", func(c *Config) { c.Datasets[2].Panels[0].Fields = []string{"gdp"} }, "panels[0] field"},
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("base config invalid: %v", err)
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("DASHBOARD_SERVER_PORT=9191\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("DASHBOARD_SERVER_PORT", "")
	if err := os.Unsetenv("DASHBOARD_SERVER_PORT"); err != nil {
		t.Fatalf("unset: %v", err)
	}

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Fatalf("expected port from env file, got %d", cfg.Server.Port)
	}

	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing env file should be ignored, got %v", err)
	}
	if err := LoadEnvFile(""); err != nil {
		t.Fatalf("empty path should be ignored, got %v", err)
	}
}
