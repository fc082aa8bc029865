// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validTestConfig() *Config {
	cfg := defaultConfig()
	cfg.TMDB.AccessToken = "test-token"
	return cfg
}

func TestDefaultConfigIsValidWithToken(t *testing.T) {
	cfg := validTestConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with token should validate, got: %v", err)
	}
}

func TestValidateRejectsMissingToken(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing TMDB access token")
	}
}

func TestValidateCrossFieldRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name: "window larger than batch",
			mutate: func(c *Config) {
				c.Engine.WindowSize = 12
				c.Engine.BatchSize = 9
			},
		},
		{
			name: "min results larger than batch",
			mutate: func(c *Config) {
				c.Engine.MinResults = 20
			},
		},
		{
			name: "reccache enabled without url",
			mutate: func(c *Config) {
				c.RecCache.Enabled = true
				c.RecCache.URL = ""
			},
		},
		{
			name: "invalid port",
			mutate: func(c *Config) {
				c.Server.Port = 0
			},
		},
		{
			name: "invalid log level",
			mutate: func(c *Config) {
				c.Logging.Level = "verbose"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"MOVIEREC_SERVER_PORT", "server.port"},
		{"MOVIEREC_ENGINE_BATCH_SIZE", "engine.batch_size"},
		{"MOVIEREC_TMDB_ACCESS_TOKEN", "tmdb.access_token"},
		{"MOVIEREC_CACHE_GC_INTERVAL", "cache.gc_interval"},
		{"MOVIEREC_LOGGING_LEVEL", "logging.level"},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.input); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("MOVIEREC_SERVER_PORT", "9999")
	t.Setenv("MOVIEREC_TMDB_ACCESS_TOKEN", "env-token")
	t.Setenv("MOVIEREC_ENGINE_BATCH_SIZE", "12")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.TMDB.AccessToken != "env-token" {
		t.Errorf("TMDB.AccessToken = %q, want env-token", cfg.TMDB.AccessToken)
	}
	if cfg.Engine.BatchSize != 12 {
		t.Errorf("Engine.BatchSize = %d, want 12", cfg.Engine.BatchSize)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
tmdb:
  access_token: file-token
engine:
  fetch_timeout: 45s
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.TMDB.AccessToken != "file-token" {
		t.Errorf("TMDB.AccessToken = %q, want file-token", cfg.TMDB.AccessToken)
	}
	if cfg.Engine.FetchTimeout != 45*time.Second {
		t.Errorf("Engine.FetchTimeout = %v, want 45s", cfg.Engine.FetchTimeout)
	}
	// Untouched values keep their defaults.
	if cfg.Engine.BatchSize != 9 {
		t.Errorf("Engine.BatchSize = %d, want default 9", cfg.Engine.BatchSize)
	}
}
