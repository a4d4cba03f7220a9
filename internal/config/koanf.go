// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/casefinder/config.yaml",
	"/etc/casefinder/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvPath is loaded into the process environment before the env layer.
// Variables already set in the environment win.
var DotEnvPath = ".env"

// Encoder backends.
const (
	EncoderBackendSentenceTransformers = "sentence-transformers"
	EncoderBackendHash                 = "hash"
)

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8889,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			FrontendDir:     "./web/build",
		},
		Data: DataConfig{
			RecordsPath:    "./data/client_questionposts.csv",
			EmbeddingsPath: "./data/question_embeddings.csv",
			Columns: ColumnsConfig{
				ID:        "QuestionUno",
				Text:      "PostText",
				Category:  "Category",
				Age:       "Age_x",
				Ethnicity: "EthnicIdentity",
				Gender:    "Gender",
				State:     "StateName_x",
				County:    "County_x",
				FIPS:      "fips_codes",
				Income:    "AnnualIncome_y",
			},
		},
		Database: DatabaseConfig{
			Path:      "",
			Threads:   0,
			MaxMemory: "1GB",
		},
		Encoder: EncoderConfig{
			Backend:         EncoderBackendSentenceTransformers,
			Model:           "sentence-transformers/all-MiniLM-L6-v2",
			PythonPath:      "python3",
			Device:          "cpu",
			Dimension:       384,
			MaxTokens:       256,
			StartupTimeout:  2 * time.Minute,
			RequestTimeout:  30 * time.Second,
			RestartInterval: 10 * time.Second,
			CacheSize:       1024,
			CacheTTL:        30 * time.Minute,
		},
		Recommend: RecommendConfig{
			K:       5,
			Timeout: 60 * time.Second,
		},
		API: APIConfig{
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
			MaxBodyBytes:    1 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf layers defaults, the optional YAML file and the environment,
// then validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := loadDotEnv(DotEnvPath); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths accept comma-separated values from the environment.
var sliceConfigPaths = []string{
	"api.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Server
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"frontend_dir":          "server.frontend_dir",

	// Data files
	"records_path":     "data.records_path",
	"embeddings_path":  "data.embeddings_path",
	"column_id":        "data.columns.id",
	"column_text":      "data.columns.text",
	"column_category":  "data.columns.category",
	"column_age":       "data.columns.age",
	"column_ethnicity": "data.columns.ethnicity",
	"column_gender":    "data.columns.gender",
	"column_state":     "data.columns.state",
	"column_county":    "data.columns.county",
	"column_fips":      "data.columns.fips",
	"column_income":    "data.columns.income",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_threads":    "database.threads",
	"duckdb_max_memory": "database.max_memory",

	// Encoder
	"encoder_backend":          "encoder.backend",
	"encoder_model":            "encoder.model",
	"encoder_python":           "encoder.python_path",
	"encoder_device":           "encoder.device",
	"encoder_dimension":        "encoder.dimension",
	"encoder_max_tokens":       "encoder.max_tokens",
	"encoder_startup_timeout":  "encoder.startup_timeout",
	"encoder_request_timeout":  "encoder.request_timeout",
	"encoder_restart_interval": "encoder.restart_interval",
	"encoder_cache_size":       "encoder.cache_size",
	"encoder_cache_ttl":        "encoder.cache_ttl",

	// Recommendation
	"recommend_k":       "recommend.k",
	"recommend_timeout": "recommend.timeout",

	// API
	"rate_limit_requests": "api.rate_limit_reqs",
	"rate_limit_window":   "api.rate_limit_window",
	"disable_rate_limit":  "api.rate_limit_disabled",
	"cors_origins":        "api.cors_origins",
	"max_body_bytes":      "api.max_body_bytes",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
