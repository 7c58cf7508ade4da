package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Holiday source kinds.
const (
	HolidaySourceJSON   = "json"
	HolidaySourceICS    = "ics"
	HolidaySourceStatic = "static"
)

const (
	defaultListen         = "127.0.0.1:8080"
	defaultTimezone       = "Asia/Tokyo"
	defaultLocale         = "ja-JP"
	defaultLogLevel       = "info"
	defaultHolidayURL     = "https://holidays-jp.github.io/api/v1/{year}/date.json"
	defaultHolidayCache   = "./cache/holidays"
	defaultHolidayCron    = "0 4 * * *"
	defaultHolidayTimeout = "15s"
	defaultRasterBackend  = "native"
	defaultRasterTimeout  = "30s"
	defaultExportDir      = "./exports"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// HolidaysConfig selects where holiday tables come from.
type HolidaysConfig struct {
	// Source is one of "json", "ics" or "static".
	Source string `yaml:"source" json:"source"`
	// URL may contain a {year} placeholder.
	URL      string `yaml:"url" json:"url"`
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
	// Refresh is a cron expression for periodic reloads of the displayed year.
	Refresh string `yaml:"refresh" json:"refresh"`
	Timeout string `yaml:"timeout" json:"timeout"`
}

// RenderConfig controls text rendering.
type RenderConfig struct {
	// FontPath is a TrueType font used by the native rasterizer. CJK labels
	// need a font that covers them (e.g. Noto Sans CJK).
	FontPath     string `yaml:"font_path" json:"font_path"`
	BoldFontPath string `yaml:"bold_font_path" json:"bold_font_path"`
}

// RasterConfig picks the PNG backend.
type RasterConfig struct {
	// Backend is "native" or "chromium".
	Backend string `yaml:"backend" json:"backend"`
	Timeout string `yaml:"timeout" json:"timeout"`
}

// ExportConfig controls scheduled PNG snapshots.
type ExportConfig struct {
	Dir string `yaml:"dir" json:"dir"`
	// Cron, when set, writes the displayed month into Dir on that schedule.
	Cron string `yaml:"cron" json:"cron"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone calendar dates are interpreted in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Locale selects label text; "ja*" or "en*".
	Locale string `yaml:"locale" json:"locale"`

	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogFile, if set, additionally writes rotated JSON logs there.
	LogFile string `yaml:"log_file,omitempty" json:"log_file,omitempty"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	Holidays HolidaysConfig `yaml:"holidays" json:"holidays"`
	Render   RenderConfig   `yaml:"render" json:"render"`
	Raster   RasterConfig   `yaml:"raster" json:"raster"`
	Export   ExportConfig   `yaml:"export" json:"export"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.Locale == "" {
		c.Locale = defaultLocale
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}

	switch c.Holidays.Source {
	case HolidaySourceJSON, HolidaySourceICS, HolidaySourceStatic:
	default:
		// Unknown value; the JSON API is the usual source.
		c.Holidays.Source = HolidaySourceJSON
	}
	if c.Holidays.URL == "" && c.Holidays.Source == HolidaySourceJSON {
		c.Holidays.URL = defaultHolidayURL
	}
	if c.Holidays.CacheDir == "" {
		c.Holidays.CacheDir = defaultHolidayCache
	}
	if c.Holidays.Refresh == "" {
		c.Holidays.Refresh = defaultHolidayCron
	}
	if _, err := time.ParseDuration(c.Holidays.Timeout); err != nil {
		c.Holidays.Timeout = defaultHolidayTimeout
	}

	switch c.Raster.Backend {
	case "native", "chromium":
	default:
		c.Raster.Backend = defaultRasterBackend
	}
	if _, err := time.ParseDuration(c.Raster.Timeout); err != nil {
		c.Raster.Timeout = defaultRasterTimeout
	}

	if c.Export.Dir == "" {
		c.Export.Dir = defaultExportDir
	}
}

// Validate reports settings that Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	if c.Holidays.Source == HolidaySourceICS && c.Holidays.URL == "" {
		return errors.New("config: holidays.url is required for the ics source")
	}
	return nil
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// HolidayTimeout is the parsed holidays.timeout.
func (c *Config) HolidayTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Holidays.Timeout)
	return d
}

// RasterTimeout is the parsed raster.timeout.
func (c *Config) RasterTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Raster.Timeout)
	return d
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file + rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".markcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
