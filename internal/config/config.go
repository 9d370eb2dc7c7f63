package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SourceConfig describes a remote nets data file fetched over HTTP
// (alongside, or instead of, the local file).
type SourceConfig struct {
	// URL is the nets file endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used as the site's default display zone
	// and as the fallback for nets without their own time_zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// NetsPath is the local nets data file. Empty disables local loading
	// (then at least one source must be configured).
	NetsPath string `yaml:"nets_path" json:"nets_path"`

	// Sources are remote nets files merged after the local one. Local
	// entries win on duplicate net ids.
	Sources []SourceConfig `yaml:"sources,omitempty" json:"sources,omitempty"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// driving periodic feed rebuilds.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays is how far ahead occurrences are expanded.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// WeekWindowDays bounds the "this week" list in generated artifacts.
	WeekWindowDays int `yaml:"week_window_days" json:"week_window_days"`

	// Categories is the closed set of net categories accepted at load
	// time.
	Categories []string `yaml:"categories" json:"categories"`

	// PrimaryCategory is highlighted as the next net when possible.
	PrimaryCategory string `yaml:"primary_category" json:"primary_category"`

	// OutputPath, when set, is where the next_net.yml site artifact is
	// written on every refresh.
	OutputPath string `yaml:"output_path,omitempty" json:"output_path,omitempty"`

	// CacheDir is the disk cache root for remote source fetching.
	CacheDir string `yaml:"cache_dir,omitempty" json:"cache_dir,omitempty"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          "127.0.0.1:8080",
		Timezone:        "America/New_York",
		NetsPath:        "_data/nets.yml",
		RefreshCron:     "*/15 * * * *",
		HorizonDays:     60,
		WeekWindowDays:  7,
		Categories:      []string{"bhn", "accessibility", "general"},
		PrimaryCategory: "bhn",
		Sources:         []SourceConfig{},
		BasicAuth:       nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "America/New_York"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 60
	}
	if c.WeekWindowDays <= 0 {
		c.WeekWindowDays = 7
	}
	if len(c.Categories) == 0 {
		c.Categories = []string{"bhn", "accessibility", "general"}
	}
	if c.PrimaryCategory == "" {
		c.PrimaryCategory = c.Categories[0]
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
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
			// First run: create default config file.
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
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
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

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".netsched-config-*.tmp")
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

// Save is a convenience method on Config that delegates to the
// package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
