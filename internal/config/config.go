// Package config loads pcstore configuration from YAML and PCSTORE_*
// environment variables
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backends understood by RepositoryConfig.Backend
const (
	BackendBadger = "badger"
	BackendDir    = "dir"
)

var (
	// ErrNoRepositories is returned when the configuration names no repository
	ErrNoRepositories = errors.New("config: no repositories configured")

	// ErrInvalidRepository is returned for an incomplete or inconsistent repository
	ErrInvalidRepository = errors.New("config: invalid repository")
)

// Config is the root configuration
type Config struct {
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	Metrics      MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
	Preload      PreloadConfig      `yaml:"preload" mapstructure:"preload"`
	Repositories []RepositoryConfig `yaml:"repositories" mapstructure:"repositories"`
}

// LogConfig configures the zerolog logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Pretty bool   `yaml:"pretty" mapstructure:"pretty"`
	Caller bool   `yaml:"caller" mapstructure:"caller"`
}

// MetricsConfig configures the observability HTTP server
type MetricsConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	UptimeInterval time.Duration `yaml:"uptime_interval" mapstructure:"uptime_interval"`
}

// PreloadConfig controls cache warm-up at startup
type PreloadConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	Workers int  `yaml:"workers" mapstructure:"workers"`
}

// RepositoryConfig describes one repository source and what it references
type RepositoryConfig struct {
	Name       string   `yaml:"name" mapstructure:"name"`
	Manifest   string   `yaml:"manifest" mapstructure:"manifest"`
	DataDir    string   `yaml:"data_dir" mapstructure:"data_dir"`
	Backend    string   `yaml:"backend" mapstructure:"backend"`
	References []string `yaml:"references" mapstructure:"references"`
}

// Load reads the YAML file at path, applies defaults and environment
// overrides, then validates the result
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("PCSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	for i := range cfg.Repositories {
		if cfg.Repositories[i].Backend == "" {
			cfg.Repositories[i].Backend = BackendDir
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.caller", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("metrics.uptime_interval", 15*time.Second)

	v.SetDefault("preload.enabled", false)
	v.SetDefault("preload.workers", 8)
}

// Validate checks names are unique, backends known and references resolvable
func (c *Config) Validate() error {
	if len(c.Repositories) == 0 {
		return ErrNoRepositories
	}

	names := make(map[string]bool, len(c.Repositories))
	for _, r := range c.Repositories {
		switch {
		case r.Name == "":
			return fmt.Errorf("%w: missing name", ErrInvalidRepository)
		case names[r.Name]:
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidRepository, r.Name)
		case r.Manifest == "":
			return fmt.Errorf("%w: %s: missing manifest", ErrInvalidRepository, r.Name)
		case r.Backend != BackendBadger && r.Backend != BackendDir:
			return fmt.Errorf("%w: %s: unknown backend %q", ErrInvalidRepository, r.Name, r.Backend)
		}
		names[r.Name] = true
	}

	for _, r := range c.Repositories {
		for _, ref := range r.References {
			if !names[ref] {
				return fmt.Errorf("%w: %s references unknown repository %q", ErrInvalidRepository, r.Name, ref)
			}
			if ref == r.Name {
				return fmt.Errorf("%w: %s references itself", ErrInvalidRepository, r.Name)
			}
		}
	}

	if c.Metrics.UptimeInterval <= 0 {
		return fmt.Errorf("config: metrics uptime interval must be positive, got %s", c.Metrics.UptimeInterval)
	}
	if c.Preload.Workers < 1 {
		return fmt.Errorf("config: preload workers must be positive, got %d", c.Preload.Workers)
	}
	return nil
}

// Repository returns the repository named name
func (c *Config) Repository(name string) (RepositoryConfig, bool) {
	for _, r := range c.Repositories {
		if r.Name == name {
			return r, true
		}
	}
	return RepositoryConfig{}, false
}
