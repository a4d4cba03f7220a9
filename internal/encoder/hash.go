// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package encoder

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/minio/highwayhash"

	"github.com/tomtom215/casefinder/internal/metrics"
)

const backendHash = "hash"

// hashKey is fixed so vectors are stable across processes and releases.
var hashKey = []byte("casefinder-feature-hash-key-0001")

// HashEncoder projects lower-cased word tokens into Dimension() buckets
// with signed feature hashing and L2-normalises the result.
type HashEncoder struct {
	dim       int
	maxTokens int
}

// NewHashEncoder returns a hashing encoder producing dim-length vectors.
func NewHashEncoder(dim, maxTokens int) (*HashEncoder, error) {
	if dim < 1 {
		return nil, fmt.Errorf("hash encoder dimension must be positive, got %d", dim)
	}
	if len(hashKey) != 32 {
		return nil, fmt.Errorf("hash key must be 32 bytes, got %d", len(hashKey))
	}
	return &HashEncoder{dim: dim, maxTokens: maxTokens}, nil
}

// Encode returns the hashed vector for text. Text without word tokens maps
// to the zero vector.
func (h *HashEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, &EncodingError{Backend: backendHash, Err: err}
	}
	start := time.Now()

	vec := make([]float32, h.dim)
	for _, tok := range tokens(Truncate(text, h.maxTokens)) {
		sum := highwayhash.Sum64([]byte(tok), hashKey)
		bucket := sum % uint64(h.dim)
		if sum>>63 == 1 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}
	normalize(vec)

	metrics.RecordEncode(backendHash, time.Since(start), nil)
	return vec, nil
}

// Dimension returns the vector length.
func (h *HashEncoder) Dimension() int { return h.dim }

// Close is a no-op.
func (h *HashEncoder) Close() error { return nil }

func tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
}
