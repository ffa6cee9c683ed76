package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Path != "./alx" || cfg.Storage.Database != "database.json" {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.Server.Port != 8000 || cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Fetch.Engine != EngineWget || cfg.Fetch.Depth != 1 || cfg.Fetch.UserAgent != "Mozilla" {
		t.Fatalf("unexpected fetch defaults: %+v", cfg.Fetch)
	}
	if cfg.Screenshot.Enabled || cfg.Screenshot.WindowWidth != 1920 || cfg.Screenshot.WindowHeight != 4000 {
		t.Fatalf("unexpected screenshot defaults: %+v", cfg.Screenshot)
	}
	if !cfg.Export.Readme || cfg.Export.HTML || cfg.Git.Enabled {
		t.Fatalf("unexpected export defaults: %+v %+v", cfg.Export, cfg.Git)
	}
	if got := cfg.DatabasePath(); got != filepath.Join("alx", "database.json") {
		t.Fatalf("unexpected database path %q", got)
	}
	if got := cfg.MirrorsDir(); got != filepath.Join("alx", "mirrors") {
		t.Fatalf("unexpected mirrors dir %q", got)
	}
	if cfg.HTMLPath() != "" {
		t.Fatalf("expected HTML export disabled by default")
	}
	if got := cfg.ReadmePath(); got != filepath.Join("alx", "README.md") {
		t.Fatalf("unexpected readme path %q", got)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
storage:
  path: /srv/archive
  mirrors: sites
server:
  port: 9090
  shutdown_timeout: 10s
fetch:
  engine: colly
  depth: 2
  delay: 1500ms
  respect_robots: true
screenshot:
  enabled: true
  engine: chromedp
  window_width: 800
  window_height: 600
database:
  driver: postgres
  dsn: postgres://localhost/alx
  table: archive
export:
  html: true
git:
  enabled: true
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 || cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Fatalf("expected server overrides, got %+v", cfg.Server)
	}
	if cfg.Fetch.Engine != EngineColly || cfg.Fetch.Depth != 2 || cfg.Fetch.Delay != 1500*time.Millisecond || !cfg.Fetch.RespectRobots {
		t.Fatalf("expected fetch overrides, got %+v", cfg.Fetch)
	}
	if !cfg.Screenshot.Enabled || cfg.Screenshot.Engine != EngineChromedp || cfg.Screenshot.WindowWidth != 800 {
		t.Fatalf("expected screenshot overrides, got %+v", cfg.Screenshot)
	}
	if cfg.Database.Driver != DriverPostgres || cfg.Database.Table != "archive" {
		t.Fatalf("expected database overrides, got %+v", cfg.Database)
	}
	if cfg.MirrorsDir() != filepath.Join("/srv/archive", "sites") {
		t.Fatalf("unexpected mirrors dir %q", cfg.MirrorsDir())
	}
	if cfg.HTMLPath() != filepath.Join("/srv/archive", "index.html") {
		t.Fatalf("unexpected html path %q", cfg.HTMLPath())
	}
	if !cfg.Git.Enabled || cfg.Logging.Development {
		t.Fatalf("expected git and logging overrides")
	}
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9090\nfetch:\n  depth: 3\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.IntP("port", "p", 8000, "")
	flags.Int("depth", 1, "")
	flags.Bool("readme", true, "")
	flags.Bool("screenshot", false, "")
	flags.String("path", "./alx", "")
	if err := flags.Parse([]string{"-p", "7000", "--readme=false", "--screenshot", "--path", dir}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Fatalf("expected flag port 7000, got %d", cfg.Server.Port)
	}
	if cfg.Fetch.Depth != 3 {
		t.Fatalf("expected unset flag to leave file depth 3, got %d", cfg.Fetch.Depth)
	}
	if cfg.Export.Readme {
		t.Fatal("expected --readme=false to disable the readme")
	}
	if !cfg.Screenshot.Enabled {
		t.Fatal("expected --screenshot to enable screenshots")
	}
	if cfg.Storage.Path != dir {
		t.Fatalf("expected storage path %q, got %q", dir, cfg.Storage.Path)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ALEXANDRIA_SERVER_PORT", "8181")
	t.Setenv("ALEXANDRIA_FETCH_ENGINE", "colly")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8181 || cfg.Fetch.Engine != EngineColly {
		t.Fatalf("expected env overrides, got port=%d engine=%q", cfg.Server.Port, cfg.Fetch.Engine)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty path", func(c *Config) { c.Storage.Path = " " }, "storage.path"},
		{"empty mirrors", func(c *Config) { c.Storage.Mirrors = "" }, "storage.mirrors"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad shutdown", func(c *Config) { c.Server.ShutdownTimeout = 0 }, "server.shutdown_timeout"},
		{"bad engine", func(c *Config) { c.Fetch.Engine = "curl" }, "fetch.engine"},
		{"bad depth", func(c *Config) { c.Fetch.Depth = 0 }, "fetch.depth"},
		{"negative delay", func(c *Config) { c.Fetch.Delay = -time.Second }, "fetch.delay"},
		{"bad timeout", func(c *Config) { c.Fetch.Timeout = 0 }, "fetch.timeout"},
		{"bad screenshot engine", func(c *Config) { c.Screenshot.Engine = "firefox" }, "screenshot.engine"},
		{"bad window", func(c *Config) { c.Screenshot.Enabled = true; c.Screenshot.WindowWidth = 0 }, "screenshot window"},
		{"bad budget", func(c *Config) { c.Screenshot.Enabled = true; c.Screenshot.Budget = 0 }, "screenshot.budget"},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = DriverPostgres }, "database.dsn"},
		{"bad driver", func(c *Config) { c.Database.Driver = "sqlite" }, "database.driver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
