// Package config loads and validates archive configuration via Viper.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Fetch and screenshot engines.
const (
	EngineWget     = "wget"
	EngineColly    = "colly"
	EngineChromium = "chromium"
	EngineChromedp = "chromedp"
)

// Database drivers.
const (
	DriverJSON     = "json"
	DriverPostgres = "postgres"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Storage    StorageConfig    `mapstructure:"storage"`
	Server     ServerConfig     `mapstructure:"server"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Screenshot ScreenshotConfig `mapstructure:"screenshot"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Export     ExportConfig     `mapstructure:"export"`
	Git        GitConfig        `mapstructure:"git"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// StorageConfig locates the archive on disk. File and directory names are
// relative to Path.
type StorageConfig struct {
	Path        string `mapstructure:"path"`
	Database    string `mapstructure:"database"`
	Mirrors     string `mapstructure:"mirrors"`
	Screenshots string `mapstructure:"screenshots"`
	Readme      string `mapstructure:"readme"`
	HTML        string `mapstructure:"html"`
}

// ServerConfig controls the index server.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// FetchConfig governs how pages are mirrored.
type FetchConfig struct {
	Engine        string        `mapstructure:"engine"`
	Depth         int           `mapstructure:"depth"`
	UserAgent     string        `mapstructure:"user_agent"`
	Delay         time.Duration `mapstructure:"delay"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RespectRobots bool          `mapstructure:"respect_robots"`
	Skip          bool          `mapstructure:"skip"`
}

// ScreenshotConfig configures page screenshots.
type ScreenshotConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Engine       string        `mapstructure:"engine"`
	WindowWidth  int           `mapstructure:"window_width"`
	WindowHeight int           `mapstructure:"window_height"`
	Budget       time.Duration `mapstructure:"budget"`
}

// DatabaseConfig selects where snapshot identities are kept.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Table  string `mapstructure:"table"`
}

// ExportConfig toggles the files regenerated after archiving.
type ExportConfig struct {
	Readme bool `mapstructure:"readme"`
	HTML   bool `mapstructure:"html"`
}

// GitConfig toggles committing the storage directory.
type GitConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
	Verbose     bool `mapstructure:"verbose"`
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"path":       "storage.path",
	"port":       "server.port",
	"verbose":    "logging.verbose",
	"depth":      "fetch.depth",
	"engine":     "fetch.engine",
	"delay":      "fetch.delay",
	"skip":       "fetch.skip",
	"screenshot": "screenshot.enabled",
	"readme":     "export.readme",
	"html":       "export.html",
	"git":        "git.enabled",
}

// Load builds a Config from defaults, an optional file, ALEXANDRIA_* environment
// variables and any flags in flags that were set explicitly.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ALEXANDRIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.path", "./alx")
	v.SetDefault("storage.database", "database.json")
	v.SetDefault("storage.mirrors", "mirrors")
	v.SetDefault("storage.screenshots", "screenshots")
	v.SetDefault("storage.readme", "README.md")
	v.SetDefault("storage.html", "index.html")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("fetch.engine", EngineWget)
	v.SetDefault("fetch.depth", 1)
	v.SetDefault("fetch.user_agent", "Mozilla")
	v.SetDefault("fetch.delay", time.Duration(0))
	v.SetDefault("fetch.timeout", 15*time.Second)
	v.SetDefault("fetch.respect_robots", false)
	v.SetDefault("fetch.skip", false)
	v.SetDefault("screenshot.enabled", false)
	v.SetDefault("screenshot.engine", EngineChromium)
	v.SetDefault("screenshot.window_width", 1920)
	v.SetDefault("screenshot.window_height", 4000)
	v.SetDefault("screenshot.budget", 30*time.Second)
	v.SetDefault("database.driver", DriverJSON)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.table", "snapshots")
	v.SetDefault("export.readme", true)
	v.SetDefault("export.html", false)
	v.SetDefault("git.enabled", false)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.verbose", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage.path is required")
	}
	for key, name := range map[string]string{
		"storage.database":    c.Storage.Database,
		"storage.mirrors":     c.Storage.Mirrors,
		"storage.screenshots": c.Storage.Screenshots,
		"storage.readme":      c.Storage.Readme,
		"storage.html":        c.Storage.HTML,
	} {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%s is required", key)
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}
	switch c.Fetch.Engine {
	case EngineWget, EngineColly:
	default:
		return fmt.Errorf("fetch.engine must be %q or %q, got %q", EngineWget, EngineColly, c.Fetch.Engine)
	}
	if c.Fetch.Depth <= 0 {
		return fmt.Errorf("fetch.depth must be > 0")
	}
	if c.Fetch.Delay < 0 {
		return fmt.Errorf("fetch.delay must be >= 0")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be > 0")
	}
	switch c.Screenshot.Engine {
	case EngineChromium, EngineChromedp:
	default:
		return fmt.Errorf("screenshot.engine must be %q or %q, got %q", EngineChromium, EngineChromedp, c.Screenshot.Engine)
	}
	if c.Screenshot.Enabled && (c.Screenshot.WindowWidth <= 0 || c.Screenshot.WindowHeight <= 0) {
		return fmt.Errorf("screenshot window must be positive when screenshots are enabled")
	}
	if c.Screenshot.Enabled && c.Screenshot.Budget <= 0 {
		return fmt.Errorf("screenshot.budget must be > 0 when screenshots are enabled")
	}
	switch c.Database.Driver {
	case DriverJSON:
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn must be set when database.driver is %q", DriverPostgres)
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverJSON, DriverPostgres, c.Database.Driver)
	}
	return nil
}

// DatabasePath is the flat database file.
func (c Config) DatabasePath() string { return filepath.Join(c.Storage.Path, c.Storage.Database) }

// MirrorsDir is the mirror root.
func (c Config) MirrorsDir() string { return filepath.Join(c.Storage.Path, c.Storage.Mirrors) }

// ScreenshotsDir is the screenshot root.
func (c Config) ScreenshotsDir() string { return filepath.Join(c.Storage.Path, c.Storage.Screenshots) }

// ReadmePath is the Markdown export, or "" when disabled.
func (c Config) ReadmePath() string {
	if !c.Export.Readme {
		return ""
	}
	return filepath.Join(c.Storage.Path, c.Storage.Readme)
}

// HTMLPath is the static HTML export, or "" when disabled.
func (c Config) HTMLPath() string {
	if !c.Export.HTML {
		return ""
	}
	return filepath.Join(c.Storage.Path, c.Storage.HTML)
}
