package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid config",
			config: Config{
				Engine:  EngineConfig{TickResolutionMs: 100, SinkTimeoutMs: 5000},
				Catalog: CatalogConfig{Locale: "en"},
				Store:   StoreConfig{Path: "test.db"},
			},
			wantErr: false,
		},
		{
			name: "tick too fine",
			config: Config{
				Engine:  EngineConfig{TickResolutionMs: 5},
				Catalog: CatalogConfig{Locale: "en"},
				Store:   StoreConfig{Path: "test.db"},
			},
			wantErr: true,
			errMsg:  "TickResolutionMs",
		},
		{
			name: "tick too coarse",
			config: Config{
				Engine:  EngineConfig{TickResolutionMs: 5000},
				Catalog: CatalogConfig{Locale: "en"},
				Store:   StoreConfig{Path: "test.db"},
			},
			wantErr: true,
			errMsg:  "TickResolutionMs",
		},
		{
			name: "negative sink timeout",
			config: Config{
				Engine:  EngineConfig{TickResolutionMs: 100, SinkTimeoutMs: -1},
				Catalog: CatalogConfig{Locale: "en"},
				Store:   StoreConfig{Path: "test.db"},
			},
			wantErr: true,
			errMsg:  "SinkTimeoutMs",
		},
		{
			name: "missing store path",
			config: Config{
				Engine:  EngineConfig{TickResolutionMs: 100},
				Catalog: CatalogConfig{Locale: "en"},
			},
			wantErr: true,
			errMsg:  "Path",
		},
		{
			name: "short locale",
			config: Config{
				Engine:  EngineConfig{TickResolutionMs: 100},
				Catalog: CatalogConfig{Locale: "e"},
				Store:   StoreConfig{Path: "test.db"},
			},
			wantErr: true,
			errMsg:  "Locale",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Engine.TickResolutionMs)
	assert.Equal(t, 10000, cfg.Engine.SinkTimeoutMs)
	assert.Equal(t, "en", cfg.Catalog.Locale)
	assert.Equal(t, "stillpoint.db", cfg.Store.Path)
	assert.Equal(t, 100*time.Millisecond, cfg.TickResolution())
	assert.Equal(t, 10*time.Second, cfg.SinkTimeout())
	assert.Empty(t, cfg.EnabledFilters())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
engine:
  tick_resolution_ms: 250
catalog:
  path: practices.yaml
  locale: ja
store:
  path: /tmp/log.db
filters:
  duration_limit_filter:
    enabled: true
    settings:
      min_minutes: 2
  locale_filter:
    enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.TickResolution())
	assert.Equal(t, 10*time.Second, cfg.SinkTimeout(), "unset fields take defaults")
	assert.Equal(t, "practices.yaml", cfg.Catalog.Path)
	assert.Equal(t, "ja", cfg.Catalog.Locale)
	assert.Equal(t, "/tmp/log.db", cfg.Store.Path)

	assert.True(t, cfg.IsFilterEnabled("duration_limit_filter"))
	assert.False(t, cfg.IsFilterEnabled("locale_filter"))
	assert.False(t, cfg.IsFilterEnabled("unknown_filter"))
	assert.Equal(t, []string{"duration_limit_filter", "locale_filter"}, cfg.FilterNames())

	enabled := cfg.EnabledFilters()
	require.Len(t, enabled, 1)
	assert.Equal(t, 2, enabled["duration_limit_filter"]["min_minutes"])
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("STILLPOINT_STORE_PATH", "/var/lib/stillpoint.db")
	t.Setenv("STILLPOINT_CATALOG_PATH", "/etc/stillpoint/practices.yaml")
	t.Setenv("STILLPOINT_LOCALE", "ja")

	path := writeConfig(t, `
store:
  path: file.db
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/stillpoint.db", cfg.Store.Path)
	assert.Equal(t, "/etc/stillpoint/practices.yaml", cfg.Catalog.Path)
	assert.Equal(t, "ja", cfg.Catalog.Locale)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeConfig(t, "engine: [not a map"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")

	_, err = Load(writeConfig(t, "engine:\n  tick_resolution_ms: 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}
