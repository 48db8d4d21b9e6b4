package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("JFPAGER_JELLYFIN_URL", "http://jellyfin:8096")
	t.Setenv("JFPAGER_JELLYFIN_USER_ID", "user-1")
	t.Setenv("JFPAGER_PAGER_SERIES_GROUPING", "true")

	cfg, err := LoadConfig(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "http://jellyfin:8096", cfg.Jellyfin.URL)
	assert.Equal(t, "user-1", cfg.Jellyfin.UserID)
	assert.True(t, cfg.Pager.SeriesGrouping)

	// Untouched keys keep their defaults.
	d := DefaultConfig()
	assert.Equal(t, d.Pager.PageSize, cfg.Pager.PageSize)
	assert.Equal(t, d.Pager.CacheCapacity, cfg.Pager.CacheCapacity)
	assert.Equal(t, d.Serve.Listen, cfg.Serve.Listen)
	assert.Equal(t, d.Jellyfin.Timeout, cfg.Jellyfin.Timeout)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jfpager.yaml")
	content := `
jellyfin:
  url: http://jellyfin:8096
  token: secret
  user_id: user-1
seerr:
  url: http://seerr:5055
  timeout: 5s
  max_retries: 1
redis:
  addr: localhost:6379
  cache_ttl: 1m
pager:
  page_size: 25
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Jellyfin.Token)
	assert.Equal(t, 5*time.Second, cfg.Seerr.Timeout)
	assert.Equal(t, 1, cfg.Seerr.MaxRetries)
	assert.Equal(t, 3, cfg.Jellyfin.MaxRetries)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, 25, cfg.Pager.PageSize)
	assert.Equal(t, "debug", cfg.Log.Level)

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("JFPAGER_PAGER_PAGE_SIZE", "50")

		cfg, err := LoadConfig(viper.New(), path)
		require.NoError(t, err)
		assert.Equal(t, 50, cfg.Pager.PageSize)
	})
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})

	t.Run("no server", func(t *testing.T) {
		_, err := LoadConfig(viper.New(), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jellyfin.url or seerr.url is required")
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Jellyfin.URL = "http://jellyfin:8096"
		cfg.Jellyfin.UserID = "user-1"
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"seerr only", func(c *Config) {
			c.Jellyfin = JellyfinConfig{}
			c.Seerr.URL = "http://seerr:5055"
		}, ""},
		{"no user", func(c *Config) { c.Jellyfin.UserID = "" }, "jellyfin.user_id is required"},
		{"negative retries", func(c *Config) { c.Jellyfin.MaxRetries = -1 }, "jellyfin.max_retries must be >= 0"},
		{"negative seerr retries", func(c *Config) { c.Seerr.MaxRetries = -1 }, "seerr.max_retries must be >= 0"},
		{"zero page size", func(c *Config) { c.Pager.PageSize = 0 }, "pager.page_size must be greater than 0"},
		{"zero capacity", func(c *Config) { c.Pager.CacheCapacity = 0 }, "pager.cache_capacity must be greater than 0"},
		{"zero concurrency", func(c *Config) { c.Export.Concurrency = 0 }, "export.concurrency must be greater than 0"},
		{"zero lists", func(c *Config) { c.Serve.MaxLists = 0 }, "serve.max_lists must be greater than 0"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
