package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/earlyspark/scrollguard/internal/classify"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

// PatternWeight is one tunable scoring phrase.
type PatternWeight struct {
	Phrase string  `yaml:"phrase"`
	Weight float64 `yaml:"weight"`
}

// OracleConfig points at an optional external classification service.
type OracleConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

// Config is the preference surface supplied at startup.
type Config struct {
	Concurrency      int    `yaml:"concurrency"`
	CacheCapacity    int    `yaml:"cache_capacity"`
	DebounceWindow   string `yaml:"debounce_window"`
	MaskLifetime     string `yaml:"mask_lifetime"`
	ClassifyTimeout  string `yaml:"classify_timeout"`
	HistoryRetention string `yaml:"history_retention,omitempty"`

	// Apps the pipeline filters. Empty means all apps.
	EnabledApps []string `yaml:"enabled_apps,omitempty"`

	// App-id substrings driving context adjustment.
	ProfessionalApps []string `yaml:"professional_apps,omitempty"`
	ShortVideoApps   []string `yaml:"short_video_apps,omitempty"`

	// Optional overrides for the reference scoring tables.
	UnproductivePatterns []PatternWeight `yaml:"unproductive_patterns,omitempty"`
	ProductivePatterns   []PatternWeight `yaml:"productive_patterns,omitempty"`

	Oracle *OracleConfig `yaml:"oracle,omitempty"`
}

// OracleEnabled returns true if an oracle endpoint is configured.
func (c *Config) OracleEnabled() bool {
	return c.Oracle != nil && c.Oracle.Endpoint != ""
}

// OracleKey returns the resolved API key (config or env var).
func (c *Config) OracleKey() string {
	if c.Oracle != nil && c.Oracle.APIKey != "" {
		return c.Oracle.APIKey
	}
	return os.Getenv("SCROLLGUARD_ORACLE_KEY")
}

// ConcurrencyCeiling returns the admission ceiling, defaulting to 3.
func (c *Config) ConcurrencyCeiling() int {
	if c.Concurrency <= 0 {
		return 3
	}
	return c.Concurrency
}

// CacheSize returns the dedup cache capacity, defaulting to 1000.
func (c *Config) CacheSize() int {
	if c.CacheCapacity <= 0 {
		return 1000
	}
	return c.CacheCapacity
}

func (c *Config) DebounceDuration() time.Duration {
	return parseDuration(c.DebounceWindow, 100*time.Millisecond)
}

func (c *Config) MaskLifetimeDuration() time.Duration {
	return parseDuration(c.MaskLifetime, 30*time.Second)
}

func (c *Config) ClassifyTimeoutDuration() time.Duration {
	return parseDuration(c.ClassifyTimeout, 600*time.Millisecond)
}

func (c *Config) HistoryRetentionDuration() time.Duration {
	if c.HistoryRetention == "" {
		return 30 * 24 * time.Hour
	}
	// Support "Nd" day syntax
	if n := len(c.HistoryRetention); n > 1 && c.HistoryRetention[n-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(c.HistoryRetention, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	return parseDuration(c.HistoryRetention, 30*24*time.Hour)
}

// AppEnabled reports whether the pipeline should process an app. An empty
// enabled set means every app is in scope.
func (c *Config) AppEnabled(appID string) bool {
	if len(c.EnabledApps) == 0 {
		return true
	}
	for _, a := range c.EnabledApps {
		if a == appID {
			return true
		}
	}
	return false
}

// EngineOptions translates configured overrides into engine options.
func (c *Config) EngineOptions() []classify.Option {
	var opts []classify.Option
	if len(c.UnproductivePatterns) > 0 || len(c.ProductivePatterns) > 0 {
		opts = append(opts, classify.WithPatterns(
			toPatterns(c.UnproductivePatterns),
			toPatterns(c.ProductivePatterns),
		))
	}
	if len(c.ProfessionalApps) > 0 || len(c.ShortVideoApps) > 0 {
		opts = append(opts, classify.WithAppCategories(c.ProfessionalApps, c.ShortVideoApps))
	}
	return opts
}

func toPatterns(pw []PatternWeight) []classify.Pattern {
	if len(pw) == 0 {
		return nil
	}
	out := make([]classify.Pattern, 0, len(pw))
	for _, p := range pw {
		out = append(out, classify.Pattern{Phrase: p.Phrase, Weight: p.Weight})
	}
	return out
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "scrollguard", "config.yaml")
}

func HistoryPath() string {
	return filepath.Join(xdg.CacheHome, "scrollguard", "scrollguard.db")
}

func loadDefaults() (*Config, error) {
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

func Load(path string) (*Config, error) {
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Write defaults to config path on first run
			if err := writeDefaults(path); err != nil {
				// Non-fatal: just use embedded defaults
				return defaults, nil
			}
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	if cfg.Oracle != nil && cfg.Oracle.Endpoint != "" {
		u, err := url.Parse(cfg.Oracle.Endpoint)
		if err != nil {
			return fmt.Errorf("oracle: invalid endpoint: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("oracle: endpoint scheme must be http or https, got %q", u.Scheme)
		}
	}
	for i, p := range cfg.UnproductivePatterns {
		if err := validatePattern(p); err != nil {
			return fmt.Errorf("unproductive_patterns[%d]: %w", i, err)
		}
	}
	for i, p := range cfg.ProductivePatterns {
		if err := validatePattern(p); err != nil {
			return fmt.Errorf("productive_patterns[%d]: %w", i, err)
		}
	}
	return nil
}

func validatePattern(p PatternWeight) error {
	if p.Phrase == "" {
		return fmt.Errorf("phrase is required")
	}
	if p.Weight <= 0 || p.Weight > 1 {
		return fmt.Errorf("phrase %q: weight must be in (0, 1], got %g", p.Phrase, p.Weight)
	}
	return nil
}
