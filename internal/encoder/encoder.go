// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

// Package encoder turns question text into fixed-length vectors.
//
// Two backends exist. SubprocessEncoder drives a long-lived Python
// sentence-transformers process and produces the same vectors as the
// precomputed embeddings file. HashEncoder is a model-free feature hasher
// used for tests, demos and files generated by cmd/embed.
//
// Every backend truncates input to the configured number of whitespace
// tokens before encoding. Truncation is silent.
//
// Encoders are not safe for concurrent use. On the serving path only the
// embedding worker calls Encode.
package encoder

import (
	"context"
	"fmt"

	"github.com/tomtom215/casefinder/internal/config"
	"github.com/tomtom215/casefinder/internal/logging"
)

// Encoder maps text to a vector of Dimension() components.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Close() error
}

// New builds the configured backend and wraps it in the encoding cache when
// cfg.CacheSize is positive.
func New(ctx context.Context, cfg *config.EncoderConfig) (Encoder, error) {
	var (
		enc Encoder
		err error
	)
	switch cfg.Backend {
	case config.EncoderBackendHash:
		enc, err = NewHashEncoder(cfg.Dimension, cfg.MaxTokens)
	case config.EncoderBackendSentenceTransformers:
		enc, err = NewSubprocessEncoder(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown encoder backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	logging.Info().
		Str("backend", cfg.Backend).
		Int("dimension", enc.Dimension()).
		Int("max_tokens", cfg.MaxTokens).
		Msg("Encoder ready")

	if cfg.CacheSize > 0 {
		return NewCached(enc, cfg.CacheSize, cfg.CacheTTL, cfg.MaxTokens), nil
	}
	return enc, nil
}
