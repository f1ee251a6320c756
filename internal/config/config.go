// Package config provides client configuration management with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.olexi/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// The research host address is deliberately a plain configuration value: the
// client performs no endpoint discovery or probing.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidBaseURL indicates the research host URL is missing or malformed.
	ErrInvalidBaseURL = errors.New("invalid base URL")

	// ErrInvalidExtensionID indicates the client identifier is empty.
	ErrInvalidExtensionID = errors.New("invalid extension id")

	// ErrInvalidTimeout indicates a timeout value is out of range.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidSessionBudget indicates the sessions-per-hour budget is out of range.
	ErrInvalidSessionBudget = errors.New("invalid session budget")
)

const (
	// DefaultBaseURL is the production research host. Overridable via
	// OLEXI_BASE_URL for local development against a host on 3000/8080.
	DefaultBaseURL = "https://olexi-extension-host-655512577217.australia-southeast1.run.app"

	// DefaultExtensionID identifies this client to the host's security
	// validator, sent as the X-Extension-Id header.
	DefaultExtensionID = "olexi-local"

	// DefaultSessionTimeout bounds one research session end to end. Remote
	// search plus summarisation routinely takes tens of seconds.
	DefaultSessionTimeout = 120 * time.Second

	// DefaultRequestTimeout bounds the short token endpoints.
	DefaultRequestTimeout = 15 * time.Second

	// DefaultSessionsPerHour mirrors the host's per-fingerprint hourly
	// rate budget so well-behaved clients stop before the server says 429.
	DefaultSessionsPerHour = 10
)

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `mapstructure:"level" json:"level"` // debug, info, warn, error
	JSON  bool   `mapstructure:"json" json:"json"`
}

// Config stores the client configuration.
type Config struct {
	BaseURL     string `mapstructure:"base_url" json:"base_url"`
	ExtensionID string `mapstructure:"extension_id" json:"extension_id"`

	// CacheDir holds the durable token cache. Empty means ~/.olexi.
	CacheDir string `mapstructure:"cache_dir" json:"cache_dir"`

	SessionTimeoutSeconds int `mapstructure:"session_timeout_seconds" json:"session_timeout_seconds"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds" json:"request_timeout_seconds"`
	SessionsPerHour       int `mapstructure:"sessions_per_hour" json:"sessions_per_hour"`

	Logging LoggingConfig `mapstructure:"logging" json:"logging"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".olexi")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".") // Also support current directory

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = configDir
	}

	// Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with all default values and the given
// cache directory. Used by tests to avoid touching the real home directory.
func Default(cacheDir string) *Config {
	return &Config{
		BaseURL:               DefaultBaseURL,
		ExtensionID:           DefaultExtensionID,
		CacheDir:              cacheDir,
		SessionTimeoutSeconds: int(DefaultSessionTimeout / time.Second),
		RequestTimeoutSeconds: int(DefaultRequestTimeout / time.Second),
		SessionsPerHour:       DefaultSessionsPerHour,
		Logging:               LoggingConfig{Level: "info"},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("extension_id", DefaultExtensionID)
	v.SetDefault("session_timeout_seconds", int(DefaultSessionTimeout/time.Second))
	v.SetDefault("request_timeout_seconds", int(DefaultRequestTimeout/time.Second))
	v.SetDefault("sessions_per_hour", DefaultSessionsPerHour)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json", false)
}

// bindEnvVariables binds environment overrides explicitly. Hardcoded keys
// cannot fail to bind; a panic here is a bug, not a runtime error.
func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("base_url", "OLEXI_BASE_URL")
	mustBind("extension_id", "OLEXI_EXTENSION_ID")
	mustBind("cache_dir", "OLEXI_CACHE_DIR")
	mustBind("session_timeout_seconds", "OLEXI_SESSION_TIMEOUT_SECONDS")
	mustBind("sessions_per_hour", "OLEXI_SESSIONS_PER_HOUR")
	mustBind("logging.level", "OLEXI_LOG_LEVEL")
	mustBind("logging.json", "OLEXI_LOG_JSON")
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q (http or https URL required)", ErrInvalidBaseURL, c.BaseURL)
	}

	if strings.TrimSpace(c.ExtensionID) == "" {
		return fmt.Errorf("%w: must not be empty", ErrInvalidExtensionID)
	}

	if c.SessionTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: session_timeout_seconds must be positive, got %d", ErrInvalidTimeout, c.SessionTimeoutSeconds)
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: request_timeout_seconds must be positive, got %d", ErrInvalidTimeout, c.RequestTimeoutSeconds)
	}

	if c.SessionsPerHour < 1 {
		return fmt.Errorf("%w: sessions_per_hour must be at least 1, got %d", ErrInvalidSessionBudget, c.SessionsPerHour)
	}

	return nil
}

// SessionTimeout returns the session time budget as a duration.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutSeconds) * time.Second
}

// RequestTimeout returns the token endpoint time budget as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}
