package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.ExtensionID != DefaultExtensionID {
		t.Errorf("ExtensionID = %q, want %q", cfg.ExtensionID, DefaultExtensionID)
	}
	if cfg.SessionTimeout() != DefaultSessionTimeout {
		t.Errorf("SessionTimeout() = %v, want %v", cfg.SessionTimeout(), DefaultSessionTimeout)
	}
	if cfg.SessionsPerHour != DefaultSessionsPerHour {
		t.Errorf("SessionsPerHour = %d, want %d", cfg.SessionsPerHour, DefaultSessionsPerHour)
	}
	if cfg.CacheDir == "" {
		t.Error("CacheDir should default to the config directory, got empty string")
	}
}

func TestEnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("OLEXI_BASE_URL", "http://127.0.0.1:3000")
	t.Setenv("OLEXI_SESSION_TIMEOUT_SECONDS", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.BaseURL != "http://127.0.0.1:3000" {
		t.Errorf("BaseURL = %q, want env override", cfg.BaseURL)
	}
	if cfg.SessionTimeout() != 30*time.Second {
		t.Errorf("SessionTimeout() = %v, want 30s", cfg.SessionTimeout())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "empty base url",
			mutate:  func(c *Config) { c.BaseURL = "" },
			wantErr: ErrInvalidBaseURL,
		},
		{
			name:    "non-http scheme",
			mutate:  func(c *Config) { c.BaseURL = "ftp://example.com" },
			wantErr: ErrInvalidBaseURL,
		},
		{
			name:    "missing host",
			mutate:  func(c *Config) { c.BaseURL = "https://" },
			wantErr: ErrInvalidBaseURL,
		},
		{
			name:    "blank extension id",
			mutate:  func(c *Config) { c.ExtensionID = "  " },
			wantErr: ErrInvalidExtensionID,
		},
		{
			name:    "zero session timeout",
			mutate:  func(c *Config) { c.SessionTimeoutSeconds = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "negative request timeout",
			mutate:  func(c *Config) { c.RequestTimeoutSeconds = -1 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "zero session budget",
			mutate:  func(c *Config) { c.SessionsPerHour = 0 },
			wantErr: ErrInvalidSessionBudget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default(t.TempDir())
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want errors.Is(%v)", err, tt.wantErr)
			}
		})
	}
}
