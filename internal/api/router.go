// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

// Package api is the HTTP boundary of Casefinder.
//
// Routes, all JSON:
//
//	POST /api/text              similar questions by free text or questionUno
//	POST /api/categoricalQuery  one random question matching demographic filters
//	GET  /api/regions           per-county usage summary for the choropleth
//	GET  /api/health            dataset size and worker state
//	GET  /metrics               Prometheus exposition
//
// Everything else is served from the frontend build directory, falling back
// to index.html for client-side routes.
package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/casefinder/internal/logging"
	"github.com/tomtom215/casefinder/internal/middleware"
	"github.com/tomtom215/casefinder/internal/models"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	Middleware   *MiddlewareConfig
	MaxBodyBytes int64
	FrontendDir  string // empty disables static serving
}

// NewRouter mounts every route on a chi router.
func NewRouter(cfg RouterConfig, h *Handler) http.Handler {
	mw := cfg.Middleware
	if mw == nil {
		mw = &MiddlewareConfig{RateLimitDisabled: true}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())
	r.Use(SecurityHeaders)
	r.Use(chimiddleware.Compress(5, "application/json", "text/html", "text/css", "text/javascript", "application/javascript"))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(chimiddleware.StripSlashes)
		r.Use(mw.RateLimit())
		r.Use(middleware.PrometheusMetrics)
		if cfg.MaxBodyBytes > 0 {
			r.Use(chimiddleware.RequestSize(cfg.MaxBodyBytes))
		}

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			newResponder(w, r).NotFound("Unknown API endpoint")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			newResponder(w, r).Error(http.StatusMethodNotAllowed, &models.APIError{
				Code:    models.ErrCodeBadRequest,
				Message: "Method not allowed",
			}, nil)
		})

		r.Post("/text", h.Text)
		r.Post("/categoricalQuery", h.CategoricalQuery)
		r.Get("/regions", h.Regions)
		r.Get("/health", h.Health)
	})

	if cfg.FrontendDir != "" {
		r.Get("/*", staticHandler(cfg.FrontendDir))
	}

	return r
}

// staticHandler serves the frontend build with SPA fallback to index.html.
func staticHandler(dir string) http.HandlerFunc {
	root := http.Dir(dir)
	files := http.FileServer(root)

	return func(w http.ResponseWriter, r *http.Request) {
		p := path.Clean("/" + r.URL.Path)
		setStaticCacheControl(w, p)

		if p != "/" && p != "/index.html" && fileExists(root, p) {
			files.ServeHTTP(w, r)
			return
		}
		serveIndex(w, r, dir)
	}
}

func setStaticCacheControl(w http.ResponseWriter, p string) {
	switch ext := strings.ToLower(path.Ext(p)); ext {
	case ".js", ".css":
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	case ".png", ".svg", ".jpg", ".webp", ".ico":
		w.Header().Set("Cache-Control", "public, max-age=604800")
	case ".json":
		w.Header().Set("Cache-Control", "public, max-age=3600")
	default:
		w.Header().Set("Cache-Control", "public, max-age=300")
	}
}

func serveIndex(w http.ResponseWriter, r *http.Request, dir string) {
	f, err := os.Open(filepath.Join(dir, "index.html"))
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("dir", dir).Msg("Frontend index.html not found")
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "failed to read index.html", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	http.ServeContent(w, r, "index.html", info.ModTime(), f)
}

func fileExists(root http.FileSystem, p string) bool {
	f, err := root.Open(p)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	return err == nil && !info.IsDir()
}
