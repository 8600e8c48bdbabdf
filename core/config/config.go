// Package config loads tracker connection settings from YAML files and
// YOUTRACK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opensdd/youtrack-core/core/transport"
	"github.com/spf13/viper"
)

const EnvPrefix = "YOUTRACK"

type Config struct {
	URL      string        `mapstructure:"url" yaml:"url"`
	Username string        `mapstructure:"username" yaml:"username"`
	Password string        `mapstructure:"password" yaml:"password"`
	Token    string        `mapstructure:"token" yaml:"token"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// PageSize bounds search results per request; zero leaves it to the server.
	PageSize int `mapstructure:"page_size" yaml:"page_size"`
	// TrackingDisabled identifies work-item responses that mean time
	// tracking is off for the issue.
	TrackingDisabled transport.Matcher `mapstructure:"tracking_disabled" yaml:"tracking_disabled"`
}

// keys lists every setting so environment variables are honoured even when
// no file mentions them.
var keys = []string{
	"url",
	"username",
	"password",
	"token",
	"timeout",
	"page_size",
	"tracking_disabled.status",
	"tracking_disabled.code",
}

func Default() *Config {
	return &Config{
		Timeout:          30 * time.Second,
		PageSize:         100,
		TrackingDisabled: transport.Matcher{Status: http.StatusBadRequest},
	}
}

// GlobalPath returns ~/.config/youtrack/config.yaml.
func GlobalPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "youtrack", "config.yaml")
}

// ProjectPath returns .youtrack.yaml in the working directory.
func ProjectPath() string {
	cwd, _ := os.Getwd()
	return filepath.Join(cwd, ".youtrack.yaml")
}

// Load reads the global file, then the project file, then the environment.
// Missing files are skipped.
func Load() (*Config, error) {
	return LoadFiles(GlobalPath(), ProjectPath())
}

// LoadFiles merges the given files in order over the defaults and applies
// environment overrides last.
func LoadFiles(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	def := Default()
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("page_size", def.PageSize)
	v.SetDefault("tracking_disabled.status", def.TrackingDisabled.Status)
	v.SetDefault("tracking_disabled.code", def.TrackingDisabled.Code)

	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		v.SetConfigFile(p)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", p, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", k, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return cfg, nil
}

// Validate reports the first setting that makes the config unusable.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is required (set it in %s or %s_URL)", GlobalPath(), EnvPrefix)
	}
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return fmt.Errorf("url must start with http:// or https://: %s", c.URL)
	}
	if c.Password != "" && c.Username == "" {
		return fmt.Errorf("username is required when a password is set")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative: %s", c.Timeout)
	}
	if c.PageSize < 0 {
		return fmt.Errorf("page_size cannot be negative: %d", c.PageSize)
	}
	return nil
}

// Client builds the HTTP transport described by the config.
func (c *Config) Client() *transport.Client {
	cl := transport.NewClient(c.URL, c.Username, c.Password)
	cl.Token = c.Token
	cl.HTTPClient = &http.Client{Timeout: c.Timeout}
	return cl
}
