// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/casefinder/internal/config"
	"github.com/tomtom215/casefinder/internal/models"
)

// MiddlewareConfig holds the settings for the CORS and rate limit middleware.
type MiddlewareConfig struct {
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	CORSMaxAge         int // seconds

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
}

// MiddlewareConfigFromAPI maps the api config section onto MiddlewareConfig.
func MiddlewareConfigFromAPI(cfg *config.APIConfig) *MiddlewareConfig {
	return &MiddlewareConfig{
		CORSAllowedOrigins: cfg.CORSOrigins,
		CORSAllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		CORSAllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		CORSMaxAge:         86400,

		RateLimitRequests: cfg.RateLimitReqs,
		RateLimitWindow:   cfg.RateLimitWindow,
		RateLimitDisabled: cfg.RateLimitDisabled,
	}
}

// CORS returns the go-chi/cors handler for cfg.
func (cfg *MiddlewareConfig) CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: cfg.CORSAllowedMethods,
		AllowedHeaders: cfg.CORSAllowedHeaders,
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         cfg.CORSMaxAge,
	})
}

// RateLimit returns a per-IP httprate limiter, or a no-op when disabled.
// Rejections use the standard error envelope.
func (cfg *MiddlewareConfig) RateLimit() func(http.Handler) http.Handler {
	if cfg.RateLimitDisabled || cfg.RateLimitRequests < 1 {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(
		cfg.RateLimitRequests,
		cfg.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			newResponder(w, r).Error(http.StatusTooManyRequests, &models.APIError{
				Code:    models.ErrCodeTooManyRequests,
				Message: "Rate limit exceeded, retry later",
			}, nil)
		}),
	)
}

// SecurityHeaders sets the headers every response carries. HSTS is only sent
// over TLS or behind a TLS-terminating proxy.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}
