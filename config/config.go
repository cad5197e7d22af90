// Package config loads modq settings from <profile>/config.yaml, MODQ_*
// environment variables, an optional .env file and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/miosa/modq/paging"
)

// Config holds the resolved settings.
type Config struct {
	BaseURL     string        `mapstructure:"url"`
	Token       string        `mapstructure:"token"`
	CSRFToken   string        `mapstructure:"csrf_token"`
	Theme       string        `mapstructure:"theme"`
	Mobile      bool          `mapstructure:"mobile"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	RateLimit   float64       `mapstructure:"rate_limit"`
	RateBurst   int           `mapstructure:"rate_burst"`
	Timeout     time.Duration `mapstructure:"timeout"`
	DefaultMode string        `mapstructure:"default_mode"`
	PageSize    int           `mapstructure:"page_size"`
	FetchBatch  int           `mapstructure:"fetch_batch"`
	ScrollBatch int           `mapstructure:"scroll_batch"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
	DBPath      string        `mapstructure:"db_path"`
}

const (
	filename  = "config.yaml"
	envPrefix = "MODQ"
)

// Path returns the config file location inside profileDir.
func Path(profileDir string) string {
	return filepath.Join(profileDir, filename)
}

// SetDefaults registers every key with its default so environment
// variables resolve for all of them.
func SetDefaults(v *viper.Viper) {
	d := defaults()
	v.SetDefault("url", d.BaseURL)
	v.SetDefault("token", d.Token)
	v.SetDefault("csrf_token", d.CSRFToken)
	v.SetDefault("theme", d.Theme)
	v.SetDefault("mobile", d.Mobile)
	v.SetDefault("cache_ttl", d.CacheTTL)
	v.SetDefault("rate_limit", d.RateLimit)
	v.SetDefault("rate_burst", d.RateBurst)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("default_mode", d.DefaultMode)
	v.SetDefault("page_size", d.PageSize)
	v.SetDefault("fetch_batch", d.FetchBatch)
	v.SetDefault("scroll_batch", d.ScrollBatch)
	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("db_path", d.DBPath)
}

// New resolves a Config from v. file overrides the default
// <profileDir>/config.yaml; a missing file is not an error.
func New(v *viper.Viper, profileDir, file string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if file == "" {
		file = Path(profileDir)
	}
	v.SetConfigFile(file)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DBPath == "" && profileDir != "" {
		cfg.DBPath = filepath.Join(profileDir, "modq.db")
	}
	return cfg, nil
}

// Load reads .env from the working directory, then resolves a Config with a
// fresh viper instance.
func Load(profileDir string) (Config, error) {
	LoadDotEnv()
	return New(viper.New(), profileDir, "")
}

// LoadDotEnv loads .env into the process environment without overriding
// variables that are already set.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// Validate checks the settings that have no usable fallback.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("board url is required (--url or MODQ_URL)")
	}
	if _, err := paging.ParseMode(c.DefaultMode); err != nil {
		return err
	}
	if c.PageSize < 1 || c.FetchBatch < 1 || c.ScrollBatch < 1 {
		return errors.New("page_size, fetch_batch and scroll_batch must be positive")
	}
	return nil
}

// Paging returns the engine widths.
func (c Config) Paging() paging.Config {
	return paging.Config{PageSize: c.PageSize, FetchBatch: c.FetchBatch, ScrollBatch: c.ScrollBatch}
}

// Mode returns the configured starting mode, falling back to scroll.
func (c Config) Mode() paging.Mode {
	m, err := paging.ParseMode(c.DefaultMode)
	if err != nil {
		return paging.ModeScroll
	}
	return m
}

// fileConfig is the on-disk form. Durations are written as strings.
type fileConfig struct {
	URL         string  `yaml:"url,omitempty"`
	Token       string  `yaml:"token,omitempty"`
	CSRFToken   string  `yaml:"csrf_token,omitempty"`
	Theme       string  `yaml:"theme,omitempty"`
	Mobile      bool    `yaml:"mobile,omitempty"`
	CacheTTL    string  `yaml:"cache_ttl,omitempty"`
	RateLimit   float64 `yaml:"rate_limit,omitempty"`
	RateBurst   int     `yaml:"rate_burst,omitempty"`
	Timeout     string  `yaml:"timeout,omitempty"`
	DefaultMode string  `yaml:"default_mode,omitempty"`
	PageSize    int     `yaml:"page_size,omitempty"`
	FetchBatch  int     `yaml:"fetch_batch,omitempty"`
	ScrollBatch int     `yaml:"scroll_batch,omitempty"`
	MetricsAddr string  `yaml:"metrics_addr,omitempty"`
	DBPath      string  `yaml:"db_path,omitempty"`
}

// Save writes cfg to <profileDir>/config.yaml, creating the directory if needed.
func Save(profileDir string, cfg Config) error {
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return err
	}
	fc := fileConfig{
		URL:         cfg.BaseURL,
		Token:       cfg.Token,
		CSRFToken:   cfg.CSRFToken,
		Theme:       cfg.Theme,
		Mobile:      cfg.Mobile,
		CacheTTL:    cfg.CacheTTL.String(),
		RateLimit:   cfg.RateLimit,
		RateBurst:   cfg.RateBurst,
		Timeout:     cfg.Timeout.String(),
		DefaultMode: cfg.DefaultMode,
		PageSize:    cfg.PageSize,
		FetchBatch:  cfg.FetchBatch,
		ScrollBatch: cfg.ScrollBatch,
		MetricsAddr: cfg.MetricsAddr,
		DBPath:      cfg.DBPath,
	}
	data, err := yaml.Marshal(fc)
	if err != nil {
		return err
	}
	return os.WriteFile(Path(profileDir), data, 0o600)
}

func defaults() Config {
	return Config{
		Theme:       "dark",
		CacheTTL:    time.Second,
		RateLimit:   10,
		RateBurst:   5,
		Timeout:     30 * time.Second,
		DefaultMode: paging.ModeScroll.String(),
		PageSize:    paging.DefaultPageSize,
		FetchBatch:  paging.DefaultFetchBatch,
		ScrollBatch: paging.DefaultScrollBatch,
	}
}
