// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

// Package config loads Casefinder configuration.
//
// Loading order (later layers override earlier ones):
//  1. Defaults from defaultConfig()
//  2. Optional YAML file (CONFIG_PATH, then DefaultConfigPaths)
//  3. Environment variables, including an optional .env file
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load configuration")
//	}
//	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Data      DataConfig      `koanf:"data"`
	Database  DatabaseConfig  `koanf:"database"`
	Encoder   EncoderConfig   `koanf:"encoder"`
	Recommend RecommendConfig `koanf:"recommend"`
	API       APIConfig       `koanf:"api"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	FrontendDir     string        `koanf:"frontend_dir"` // static build served at "/"; empty disables
}

// DataConfig locates the two row-aligned input tables.
type DataConfig struct {
	RecordsPath    string        `koanf:"records_path"`
	EmbeddingsPath string        `koanf:"embeddings_path"`
	Columns        ColumnsConfig `koanf:"columns"`
}

// ColumnsConfig maps record fields to CSV header names.
// County, FIPS and Income may be empty when the file lacks them.
type ColumnsConfig struct {
	ID        string `koanf:"id"`
	Text      string `koanf:"text"`
	Category  string `koanf:"category"`
	Age       string `koanf:"age"`
	Ethnicity string `koanf:"ethnicity"`
	Gender    string `koanf:"gender"`
	State     string `koanf:"state"`
	County    string `koanf:"county"`
	FIPS      string `koanf:"fips"`
	Income    string `koanf:"income"`
}

// DatabaseConfig configures the embedded DuckDB used for ingestion and aggregates.
type DatabaseConfig struct {
	Path      string `koanf:"path"` // empty means in-memory
	Threads   int    `koanf:"threads"`
	MaxMemory string `koanf:"max_memory"`
}

// EncoderConfig selects and tunes the text encoder.
type EncoderConfig struct {
	Backend         string        `koanf:"backend"` // sentence-transformers or hash
	Model           string        `koanf:"model"`
	PythonPath      string        `koanf:"python_path"`
	Device          string        `koanf:"device"`
	Dimension       int           `koanf:"dimension"` // hash backend only
	MaxTokens       int           `koanf:"max_tokens"`
	StartupTimeout  time.Duration `koanf:"startup_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	RestartInterval time.Duration `koanf:"restart_interval"`
	CacheSize       int           `koanf:"cache_size"` // 0 disables the encoding cache
	CacheTTL        time.Duration `koanf:"cache_ttl"`
}

// RecommendConfig tunes the recommendation paths.
type RecommendConfig struct {
	K int `koanf:"k"`

	// Timeout bounds how long an HTTP caller waits on the worker. An accepted
	// request still runs to completion after the caller gives up.
	Timeout time.Duration `koanf:"timeout"`
}

// APIConfig holds HTTP boundary settings.
type APIConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	MaxBodyBytes      int64         `koanf:"max_body_bytes"`
}

// LoggingConfig mirrors logging.Config for the parts that are configurable.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from defaults, file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
