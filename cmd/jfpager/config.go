package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/jellyfin-pager/pkg/logging"
	"github.com/Sternrassler/jellyfin-pager/pkg/pagination"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. JFPAGER_JELLYFIN_URL.
const EnvPrefix = "JFPAGER"

// Config represents the complete jfpager configuration
type Config struct {
	Jellyfin JellyfinConfig `yaml:"jellyfin" mapstructure:"jellyfin"`
	Seerr    SeerrConfig    `yaml:"seerr" mapstructure:"seerr"`
	Redis    RedisConfig    `yaml:"redis" mapstructure:"redis"`
	Pager    PagerConfig    `yaml:"pager" mapstructure:"pager"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Serve    ServeConfig    `yaml:"serve" mapstructure:"serve"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// JellyfinConfig represents the Jellyfin server connection
type JellyfinConfig struct {
	URL        string        `yaml:"url" mapstructure:"url"`
	Token      string        `yaml:"token" mapstructure:"token"`
	UserID     string        `yaml:"user_id" mapstructure:"user_id"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"`
}

// SeerrConfig represents the optional Seerr server connection
type SeerrConfig struct {
	URL        string        `yaml:"url" mapstructure:"url"`
	APIKey     string        `yaml:"api_key" mapstructure:"api_key"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"`
}

// RedisConfig represents the response cache backend. An empty address
// disables caching and backpressure tracking.
type RedisConfig struct {
	Addr     string        `yaml:"addr" mapstructure:"addr"`
	Password string        `yaml:"password" mapstructure:"password"`
	DB       int           `yaml:"db" mapstructure:"db"`
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// PagerConfig represents paged list tuning
type PagerConfig struct {
	PageSize       int  `yaml:"page_size" mapstructure:"page_size"`
	CacheCapacity  int  `yaml:"cache_capacity" mapstructure:"cache_capacity"`
	SeriesGrouping bool `yaml:"series_grouping" mapstructure:"series_grouping"`
}

// ExportConfig represents bulk export tuning
type ExportConfig struct {
	Concurrency int           `yaml:"concurrency" mapstructure:"concurrency"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ServeConfig represents the HTTP server
type ServeConfig struct {
	Listen   string `yaml:"listen" mapstructure:"listen"`
	MaxLists int    `yaml:"max_lists" mapstructure:"max_lists"`
}

// LogConfig represents logging output
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Pretty     bool   `yaml:"pretty" mapstructure:"pretty"`
	File       string `yaml:"file" mapstructure:"file"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	batch := pagination.DefaultBatchConfig()
	return &Config{
		Jellyfin: JellyfinConfig{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Seerr: SeerrConfig{
			Timeout:    15 * time.Second,
			MaxRetries: 2,
		},
		Redis: RedisConfig{
			CacheTTL: 30 * time.Second,
		},
		Pager: PagerConfig{
			PageSize:      pagination.DefaultPageSize,
			CacheCapacity: pagination.DefaultCacheCapacity,
		},
		Export: ExportConfig{
			Concurrency: batch.MaxConcurrency,
			Timeout:     batch.Timeout,
		},
		Serve: ServeConfig{
			Listen:   ":8080",
			MaxLists: 64,
		},
		Log: LogConfig{
			Level:      string(logging.LevelInfo),
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("jellyfin.url", d.Jellyfin.URL)
	v.SetDefault("jellyfin.token", d.Jellyfin.Token)
	v.SetDefault("jellyfin.user_id", d.Jellyfin.UserID)
	v.SetDefault("jellyfin.timeout", d.Jellyfin.Timeout)
	v.SetDefault("jellyfin.max_retries", d.Jellyfin.MaxRetries)

	v.SetDefault("seerr.url", d.Seerr.URL)
	v.SetDefault("seerr.api_key", d.Seerr.APIKey)
	v.SetDefault("seerr.timeout", d.Seerr.Timeout)
	v.SetDefault("seerr.max_retries", d.Seerr.MaxRetries)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.cache_ttl", d.Redis.CacheTTL)

	v.SetDefault("pager.page_size", d.Pager.PageSize)
	v.SetDefault("pager.cache_capacity", d.Pager.CacheCapacity)
	v.SetDefault("pager.series_grouping", d.Pager.SeriesGrouping)

	v.SetDefault("export.concurrency", d.Export.Concurrency)
	v.SetDefault("export.timeout", d.Export.Timeout)

	v.SetDefault("serve.listen", d.Serve.Listen)
	v.SetDefault("serve.max_lists", d.Serve.MaxLists)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
}

// LoadConfig merges defaults, the optional config file, JFPAGER_* environment
// variables and bound flags, in increasing precedence.
func LoadConfig(v *viper.Viper, configFile string) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}

	config := DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Jellyfin.URL == "" && c.Seerr.URL == "" {
		return fmt.Errorf("jellyfin.url or seerr.url is required")
	}

	if c.Jellyfin.URL != "" && c.Jellyfin.UserID == "" {
		return fmt.Errorf("jellyfin.user_id is required")
	}

	if c.Jellyfin.MaxRetries < 0 {
		return fmt.Errorf("jellyfin.max_retries must be >= 0")
	}

	if c.Seerr.MaxRetries < 0 {
		return fmt.Errorf("seerr.max_retries must be >= 0")
	}

	if c.Pager.PageSize <= 0 {
		return fmt.Errorf("pager.page_size must be greater than 0")
	}

	if c.Pager.CacheCapacity <= 0 {
		return fmt.Errorf("pager.cache_capacity must be greater than 0")
	}

	if c.Export.Concurrency <= 0 {
		return fmt.Errorf("export.concurrency must be greater than 0")
	}

	if c.Serve.MaxLists <= 0 {
		return fmt.Errorf("serve.max_lists must be greater than 0")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	return nil
}

// pagerConfig converts the pager section to pagination.Config.
func (c *Config) pagerConfig() pagination.Config {
	return pagination.Config{
		PageSize:             c.Pager.PageSize,
		CacheCapacity:        c.Pager.CacheCapacity,
		PreferSeriesGrouping: c.Pager.SeriesGrouping,
	}
}

func (c *Config) batchConfig() pagination.BatchConfig {
	return pagination.BatchConfig{
		MaxConcurrency: c.Export.Concurrency,
		Timeout:        c.Export.Timeout,
		PageSize:       c.Pager.PageSize,
	}
}
