// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package config

import (
	"fmt"
	"strings"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateData(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateRecommend(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateData() error {
	if c.Data.RecordsPath == "" {
		return fmt.Errorf("RECORDS_PATH is required")
	}
	if c.Data.EmbeddingsPath == "" {
		return fmt.Errorf("EMBEDDINGS_PATH is required")
	}

	required := map[string]string{
		"COLUMN_ID":        c.Data.Columns.ID,
		"COLUMN_TEXT":      c.Data.Columns.Text,
		"COLUMN_CATEGORY":  c.Data.Columns.Category,
		"COLUMN_AGE":       c.Data.Columns.Age,
		"COLUMN_ETHNICITY": c.Data.Columns.Ethnicity,
		"COLUMN_GENDER":    c.Data.Columns.Gender,
		"COLUMN_STATE":     c.Data.Columns.State,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
		if strings.Contains(value, `"`) {
			return fmt.Errorf("%s must not contain double quotes", name)
		}
	}
	return nil
}

func (c *Config) validateEncoder() error {
	switch c.Encoder.Backend {
	case EncoderBackendSentenceTransformers:
		if c.Encoder.Model == "" {
			return fmt.Errorf("ENCODER_MODEL is required for the %s backend", EncoderBackendSentenceTransformers)
		}
		if c.Encoder.PythonPath == "" {
			return fmt.Errorf("ENCODER_PYTHON is required for the %s backend", EncoderBackendSentenceTransformers)
		}
		if c.Encoder.StartupTimeout <= 0 || c.Encoder.RequestTimeout <= 0 {
			return fmt.Errorf("ENCODER_STARTUP_TIMEOUT and ENCODER_REQUEST_TIMEOUT must be positive")
		}
	case EncoderBackendHash:
		if c.Encoder.Dimension < 1 {
			return fmt.Errorf("ENCODER_DIMENSION must be at least 1 for the %s backend", EncoderBackendHash)
		}
	default:
		return fmt.Errorf("ENCODER_BACKEND must be one of: %s, %s", EncoderBackendSentenceTransformers, EncoderBackendHash)
	}

	if c.Encoder.MaxTokens < 1 {
		return fmt.Errorf("ENCODER_MAX_TOKENS must be at least 1")
	}
	if c.Encoder.CacheSize < 0 {
		return fmt.Errorf("ENCODER_CACHE_SIZE must not be negative")
	}
	return nil
}

func (c *Config) validateRecommend() error {
	if c.Recommend.K < 1 {
		return fmt.Errorf("RECOMMEND_K must be at least 1")
	}
	if c.Recommend.Timeout <= 0 {
		return fmt.Errorf("RECOMMEND_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.RateLimitDisabled {
		return nil
	}
	if c.API.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
	}
	if c.API.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	if c.API.MaxBodyBytes < 1 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1")
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
