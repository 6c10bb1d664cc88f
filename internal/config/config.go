// Package config loads leetbot's YAML configuration.
package config

import (
	"embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"leetbot-cli/internal/queries"
	"leetbot-cli/internal/query"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

const (
	envConfigDir    = "LEETBOT_CONFIG_DIR"
	envStateDir     = "LEETBOT_STATE_DIR"
	envAPIURL       = "LEETBOT_API_URL"
	envLogLevel     = "LEETBOT_LOG_LEVEL"
	envPrefsBackend = "LEETBOT_PREFS_BACKEND"

	PrefsBackendFile   = "file"
	PrefsBackendSQLite = "sqlite"
)

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type CacheConfig struct {
	StaleTime          time.Duration `yaml:"stale_time"`
	CompaniesStaleTime time.Duration `yaml:"companies_stale_time"`
	ProblemsStaleTime  time.Duration `yaml:"problems_stale_time"`
	GCTime             time.Duration `yaml:"gc_time"`
	MaxEntries         int           `yaml:"max_entries"`
	Retries            int           `yaml:"retries"`
	RetryDelay         time.Duration `yaml:"retry_delay"`
	Persist            bool          `yaml:"persist"`
}

type PrefsConfig struct {
	Backend    string        `yaml:"backend"`
	FlushDelay time.Duration `yaml:"flush_delay"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ThemeConfig struct {
	FollowEnvironmentInterval time.Duration `yaml:"follow_environment_interval"`
}

type Config struct {
	API     APIConfig     `yaml:"api"`
	Cache   CacheConfig   `yaml:"cache"`
	Prefs   PrefsConfig   `yaml:"prefs"`
	Logging LoggingConfig `yaml:"logging"`
	Theme   ThemeConfig   `yaml:"theme"`

	// StateDir holds preferences, the query snapshot and the TUI log.
	StateDir string `yaml:"state_dir,omitempty"`
}

// ConfigDir is $LEETBOT_CONFIG_DIR, else $XDG_CONFIG_HOME/leetbot.
func ConfigDir() string {
	if v := strings.TrimSpace(os.Getenv(envConfigDir)); v != "" {
		return v
	}
	return filepath.Join(xdg.ConfigHome, "leetbot")
}

func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ResolveStateDir is $LEETBOT_STATE_DIR, else the configured state_dir,
// else $XDG_STATE_HOME/leetbot.
func (c *Config) ResolveStateDir() string {
	if v := strings.TrimSpace(os.Getenv(envStateDir)); v != "" {
		return v
	}
	if strings.TrimSpace(c.StateDir) != "" {
		return c.StateDir
	}
	return filepath.Join(xdg.StateHome, "leetbot")
}

// LogPath is where interactive sessions write their log.
func (c *Config) LogPath() string {
	return filepath.Join(c.ResolveStateDir(), "leetbot.log")
}

// QueryOptions are the base cache options; per-family stale times are applied
// by StaleTimes.
func (c *Config) QueryOptions() query.Options {
	o := query.DefaultOptions()
	o.StaleTime = c.Cache.StaleTime
	o.Retries = c.Cache.Retries
	o.RetryDelay = c.Cache.RetryDelay
	return o
}

func (c *Config) StaleTimes() queries.StaleTimes {
	return queries.StaleTimes{
		Companies:  c.Cache.CompaniesStaleTime,
		Timeframes: c.Cache.StaleTime,
		Problems:   c.Cache.ProblemsStaleTime,
	}
}

func Defaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads path (DefaultConfigPath when empty) over the embedded defaults,
// then applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		// Fields absent from the file keep their default.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteDefaults writes the embedded default config to path unless it exists.
func WriteDefaults(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Validate checks cfg after flag overrides have been applied on top of Load.
func (c *Config) Validate() error {
	return validate(c)
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(envAPIURL)); v != "" {
		cfg.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(envLogLevel)); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(envPrefsBackend)); v != "" {
		cfg.Prefs.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("LEETBOT_CACHE_PERSIST")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Cache.Persist = b
		}
	}
}

func validate(cfg *Config) error {
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url: scheme must be http or https, got %q", u.Scheme)
	}
	switch cfg.Prefs.Backend {
	case PrefsBackendFile, PrefsBackendSQLite:
	default:
		return fmt.Errorf("prefs.backend: unknown backend %q (valid: file, sqlite)", cfg.Prefs.Backend)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format: unknown format %q (valid: text, json)", cfg.Logging.Format)
	}
	if cfg.Cache.Retries < 0 {
		return fmt.Errorf("cache.retries: must be >= 0, got %d", cfg.Cache.Retries)
	}
	if cfg.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries: must be >= 0, got %d", cfg.Cache.MaxEntries)
	}
	return nil
}
