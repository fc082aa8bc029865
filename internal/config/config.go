// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

// Package config provides layered configuration for Movierec using Koanf v2.
//
// Precedence (highest wins): environment variables > config file > defaults.
// Environment variables use the MOVIEREC_ prefix with the section as the
// first underscore-delimited token, e.g. MOVIEREC_SERVER_PORT=8080,
// MOVIEREC_ENGINE_BATCH_SIZE=9, MOVIEREC_TMDB_ACCESS_TOKEN=....
package config

import (
	"time"
)

// Config is the root configuration for the Movierec server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	TMDB     TMDBConfig     `koanf:"tmdb"`
	RecCache RecCacheConfig `koanf:"reccache"`
	UserData UserDataConfig `koanf:"userdata"`
	Cache    CacheConfig    `koanf:"cache"`
	Engine   EngineConfig   `koanf:"engine"`
	API      APIConfig      `koanf:"api"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment" validate:"oneof=development production"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// TMDBConfig holds catalog discovery service settings.
type TMDBConfig struct {
	BaseURL     string        `koanf:"base_url" validate:"required,url"`
	AccessToken string        `koanf:"access_token" validate:"required"`
	Timeout     time.Duration `koanf:"timeout"`

	// RateLimit is the maximum outbound requests per second.
	RateLimit float64 `koanf:"rate_limit" validate:"gt=0"`
	Burst     int     `koanf:"burst" validate:"min=1"`
}

// RecCacheConfig holds settings for the server-side recommendation cache
// collaborator. When disabled the cache tier always reports zero results.
type RecCacheConfig struct {
	Enabled bool          `koanf:"enabled"`
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// UserDataConfig holds settings for the user data store collaborator
// (favorites, watchlist, raw preference records).
type UserDataConfig struct {
	URL     string        `koanf:"url" validate:"required,url"`
	Timeout time.Duration `koanf:"timeout"`
}

// CacheConfig holds local batch cache (BadgerDB) settings.
type CacheConfig struct {
	// Path is the BadgerDB directory. Empty means in-memory (tests only).
	Path string `koanf:"path"`

	// TTL is how long a cached batch stays valid.
	TTL time.Duration `koanf:"ttl" validate:"gt=0"`

	// GCInterval is how often the value log garbage collector runs.
	GCInterval time.Duration `koanf:"gc_interval" validate:"gt=0"`
}

// EngineConfig holds aggregation engine tunables.
type EngineConfig struct {
	// BatchSize is the target number of items per recommendation batch.
	BatchSize int `koanf:"batch_size" validate:"min=1"`

	// WindowSize is the number of items shown at once.
	WindowSize int `koanf:"window_size" validate:"min=1"`

	// MinResults is the minimum acceptable item count before the next
	// tier is consulted.
	MinResults int `koanf:"min_results" validate:"min=1"`

	// DiscoverPages is the number of discovery pages fetched in parallel.
	DiscoverPages int `koanf:"discover_pages" validate:"min=1,max=20"`

	// SupplementaryPages bounds the top-rated fallback tier.
	SupplementaryPages int `koanf:"supplementary_pages" validate:"min=1,max=20"`

	// OverRequestFactor multiplies the cache tier request size so the
	// batch survives later exclusion filtering.
	OverRequestFactor int `koanf:"over_request_factor" validate:"min=1"`

	// HistoryCap bounds the rolling shown-item history (FIFO).
	HistoryCap int `koanf:"history_cap" validate:"min=1"`

	// FetchTimeout bounds one full aggregation run.
	FetchTimeout time.Duration `koanf:"fetch_timeout" validate:"gt=0"`

	// MaxRetries is the retry budget for unexpected orchestration errors.
	MaxRetries int `koanf:"max_retries" validate:"min=0"`

	// RetryDelay is the fixed delay between retries.
	RetryDelay time.Duration `koanf:"retry_delay"`

	// Seed seeds the orchestrator RNG. 0 means a fixed default, keeping
	// runs reproducible unless explicitly overridden.
	Seed int64 `koanf:"seed"`
}

// APIConfig holds HTTP API settings.
type APIConfig struct {
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8970,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		TMDB: TMDBConfig{
			BaseURL:     "https://api.themoviedb.org/3",
			AccessToken: "",
			Timeout:     10 * time.Second,
			RateLimit:   4.0,
			Burst:       8,
		},
		RecCache: RecCacheConfig{
			Enabled: false,
			URL:     "",
			Timeout: 5 * time.Second,
		},
		UserData: UserDataConfig{
			URL:     "http://127.0.0.1:8971",
			Timeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			Path:       "/data/movierec",
			TTL:        24 * time.Hour,
			GCInterval: 10 * time.Minute,
		},
		Engine: EngineConfig{
			BatchSize:          9,
			WindowSize:         3,
			MinResults:         3,
			DiscoverPages:      5,
			SupplementaryPages: 3,
			OverRequestFactor:  3,
			HistoryCap:         150,
			FetchTimeout:       30 * time.Second,
			MaxRetries:         2,
			RetryDelay:         1500 * time.Millisecond,
			Seed:               0,
		},
		API: APIConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
	}
}
