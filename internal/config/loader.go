package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/leakhound/leakhound/internal/model"
)

// File is the YAML representation of a LeakHound configuration file.
// All fields are optional; unset fields keep their defaults. The
// targets list seeds the monitored target table on startup.
type File struct {
	TorProxyAddress   string       `yaml:"tor_proxy_address,omitempty"`
	TorControlAddress string       `yaml:"tor_control_address,omitempty"`
	UseExternalTor    bool         `yaml:"use_external_tor,omitempty"`
	FetchTimeout      string       `yaml:"fetch_timeout,omitempty"`
	MaxRetries        *int         `yaml:"max_retries,omitempty"`
	RetryInterval     string       `yaml:"retry_interval,omitempty"`
	Workers           int          `yaml:"workers,omitempty"`
	DataDir           string       `yaml:"data_dir,omitempty"`
	PluginDir         string       `yaml:"plugin_dir,omitempty"`
	UserAgent         string       `yaml:"user_agent,omitempty"`
	SearchQuota       *int         `yaml:"search_quota,omitempty"`
	Targets           []TargetSeed `yaml:"targets,omitempty"`
}

// TargetSeed is a monitored target declared in the configuration file.
// Seeds are upserted by name, so editing the file and restarting
// updates the stored target instead of duplicating it.
type TargetSeed struct {
	Name             string   `yaml:"name"`
	URL              string   `yaml:"url"`
	ExtraURLs        []string `yaml:"extra_urls,omitempty"`
	Kind             string   `yaml:"kind"`
	Scraper          string   `yaml:"scraper"`
	NeedsRendering   bool     `yaml:"needs_rendering,omitempty"`
	Enabled          *bool    `yaml:"enabled,omitempty"`
	FrequencyMinutes int      `yaml:"frequency_minutes,omitempty"`
	UseProxies       bool     `yaml:"use_proxies,omitempty"`
	RotateUserAgent  bool     `yaml:"rotate_user_agent,omitempty"`
}

// LoadConfigFile loads a YAML configuration file from the given path.
// It returns ErrConfigNotFound if the file does not exist.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &f, nil
}

// FindConfigFile returns the first existing configuration file among,
// in order: the explicit path (if non-empty), ./leakhound.yml in the
// current directory, and leakhound.yml in the XDG config directory.
// It returns ErrConfigNotFound when none exists.
func FindConfigFile(explicit string) (string, error) {
	candidates := make([]string, 0, 3)
	if explicit != "" {
		candidates = append(candidates, explicit)
	}
	candidates = append(candidates,
		"leakhound.yml",
		filepath.Join(XDGConfigDir(), "leakhound.yml"),
	)

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", ErrConfigNotFound
}

// Apply overlays the file's settings onto cfg. Only fields that are
// set in the file override the existing values.
func (f *File) Apply(cfg *Config) error {
	if f.TorProxyAddress != "" {
		cfg.TorProxyAddress = f.TorProxyAddress
	}
	if f.TorControlAddress != "" {
		cfg.TorControlAddress = f.TorControlAddress
	}
	if f.UseExternalTor {
		cfg.UseExternalTor = true
	}
	if f.FetchTimeout != "" {
		d, err := time.ParseDuration(f.FetchTimeout)
		if err != nil {
			return fmt.Errorf("invalid fetch_timeout: %w", err)
		}
		cfg.FetchTimeout = d
	}
	if f.MaxRetries != nil {
		cfg.MaxRetries = *f.MaxRetries
	}
	if f.RetryInterval != "" {
		d, err := time.ParseDuration(f.RetryInterval)
		if err != nil {
			return fmt.Errorf("invalid retry_interval: %w", err)
		}
		cfg.RetryInterval = d
	}
	if f.Workers > 0 {
		cfg.Workers = f.Workers
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.PluginDir != "" {
		cfg.PluginDir = f.PluginDir
	}
	if f.UserAgent != "" {
		cfg.UserAgent = f.UserAgent
	}
	if f.SearchQuota != nil {
		cfg.SearchQuota = *f.SearchQuota
	}
	return nil
}

// SeededTarget pairs a parsed target with the extra URLs to register
// alongside its primary URL.
type SeededTarget struct {
	Target    model.Target
	ExtraURLs []string
}

// SeedTargets converts the file's target entries into model targets.
// Each entry must carry a name, a primary URL, a valid source kind,
// and a scraper slug; a bad entry fails the whole load so a typo is
// noticed at startup rather than silently skipped.
func (f *File) SeedTargets() ([]SeededTarget, error) {
	targets := make([]SeededTarget, 0, len(f.Targets))
	for i, seed := range f.Targets {
		if seed.Name == "" {
			return nil, fmt.Errorf("%w: entry %d: missing name", ErrInvalidTargetSeed, i)
		}
		if seed.URL == "" {
			return nil, fmt.Errorf("%w: %s: missing url", ErrInvalidTargetSeed, seed.Name)
		}
		kind := model.SourceKind(seed.Kind)
		if !kind.IsValid() {
			return nil, fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidTargetSeed, seed.Name, seed.Kind)
		}
		if seed.Scraper == "" {
			return nil, fmt.Errorf("%w: %s: missing scraper", ErrInvalidTargetSeed, seed.Name)
		}

		enabled := true
		if seed.Enabled != nil {
			enabled = *seed.Enabled
		}
		freq := seed.FrequencyMinutes
		if freq <= 0 {
			freq = DefaultFrequencyMinutes
		}

		target := model.Target{
			Name:             seed.Name,
			URL:              seed.URL,
			Kind:             kind,
			Scraper:          seed.Scraper,
			NeedsRendering:   seed.NeedsRendering,
			Enabled:          enabled,
			FrequencyMinutes: freq,
		}
		if seed.UseProxies || seed.RotateUserAgent {
			target.Bypass = &model.BypassPolicy{
				UseProxies:      seed.UseProxies,
				RotateUserAgent: seed.RotateUserAgent,
			}
		}
		targets = append(targets, SeededTarget{Target: target, ExtraURLs: seed.ExtraURLs})
	}
	return targets, nil
}
