// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Engine  EngineConfig            `yaml:"engine"`
	Catalog CatalogConfig           `yaml:"catalog"`
	Store   StoreConfig             `yaml:"store"`
	Filters map[string]FilterConfig `yaml:"filters"`
}

// EngineConfig represents session engine configuration.
type EngineConfig struct {
	TickResolutionMs int `yaml:"tick_resolution_ms" default:"100" validate:"gte=10,lte=1000"`
	SinkTimeoutMs    int `yaml:"sink_timeout_ms" default:"10000" validate:"gte=0,lte=60000"`
}

// CatalogConfig represents practice catalog configuration.
type CatalogConfig struct {
	Path   string `yaml:"path"`
	Locale string `yaml:"locale" default:"en" validate:"min=2"`
}

// StoreConfig represents practice log storage configuration.
type StoreConfig struct {
	Path string `yaml:"path" default:"stillpoint.db" validate:"required"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// Load loads configuration from a YAML file.
// A missing file is not an error; defaults apply.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, errors.Wrap(err, "failed to read config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("STILLPOINT_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("STILLPOINT_CATALOG_PATH"); v != "" {
		c.Catalog.Path = v
	}
	if v := os.Getenv("STILLPOINT_LOCALE"); v != "" {
		c.Catalog.Locale = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// TickResolution returns the engine tick interval.
func (c *Config) TickResolution() time.Duration {
	return time.Duration(c.Engine.TickResolutionMs) * time.Millisecond
}

// SinkTimeout returns the completion sink deadline.
func (c *Config) SinkTimeout() time.Duration {
	return time.Duration(c.Engine.SinkTimeoutMs) * time.Millisecond
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// EnabledFilters returns the settings of every enabled filter keyed by name.
func (c *Config) EnabledFilters() map[string]map[string]any {
	enabled := make(map[string]map[string]any)
	for name, f := range c.Filters {
		if f.Enabled {
			enabled[name] = f.Settings
		}
	}
	return enabled
}

// FilterNames returns the configured filter names in order.
func (c *Config) FilterNames() []string {
	names := make([]string, 0, len(c.Filters))
	for name := range c.Filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
