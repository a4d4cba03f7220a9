// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package encoder

import (
	"context"
	"time"

	"github.com/tomtom215/casefinder/internal/cache"
	"github.com/tomtom215/casefinder/internal/metrics"
)

// Cached remembers recent encodings keyed by the truncated input text.
type Cached struct {
	inner     Encoder
	cache     *cache.LRUCache[[]float32]
	maxTokens int
}

// NewCached wraps inner with an LRU cache of size entries.
func NewCached(inner Encoder, size int, ttl time.Duration, maxTokens int) *Cached {
	return &Cached{
		inner:     inner,
		cache:     cache.NewLRUCache[[]float32](size, ttl),
		maxTokens: maxTokens,
	}
}

// Encode returns a cached vector when one exists, otherwise encodes through
// the wrapped encoder and stores the result. Failures are not cached.
func (c *Cached) Encode(ctx context.Context, text string) ([]float32, error) {
	key := Truncate(text, c.maxTokens)
	if vec, ok := c.cache.Get(key); ok {
		metrics.RecordEncoderCache(true)
		return clone(vec), nil
	}
	metrics.RecordEncoderCache(false)

	vec, err := c.inner.Encode(ctx, key)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, clone(vec))
	return vec, nil
}

// Dimension returns the wrapped encoder's dimension.
func (c *Cached) Dimension() int { return c.inner.Dimension() }

// Close clears the cache and closes the wrapped encoder.
func (c *Cached) Close() error {
	c.cache.Clear()
	return c.inner.Close()
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
