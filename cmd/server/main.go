// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

// Package main is the Casefinder server.
//
// Casefinder recommends previously answered pro bono legal questions that are
// similar to a new one, and samples questions by demographic filters for the
// exploration views.
//
// # Startup
//
// Components are initialized in order, and any inconsistency is fatal before
// the listener starts:
//
//  1. Configuration (koanf: defaults, config.yaml, environment)
//  2. DuckDB, then the records and embeddings CSVs into the record store
//  3. The exact nearest-neighbour index over the stored embeddings
//  4. The text encoder, whose dimension must match the index
//  5. The embedding worker, recommendation engine and categorical filter
//  6. The chi router, served under a suture supervisor tree
//
// # Configuration
//
// Common environment variables:
//
//	HTTP_PORT=8889
//	RECORDS_PATH=./data/client_questionposts.csv
//	EMBEDDINGS_PATH=./data/question_embeddings.csv
//	ENCODER_BACKEND=sentence-transformers   # or hash
//	ENCODER_MODEL=sentence-transformers/all-MiniLM-L6-v2
//	RECOMMEND_K=5
//	LOG_LEVEL=info
//
// # Signal Handling
//
// SIGINT and SIGTERM stop the HTTP server gracefully, then stop the worker
// after it finishes queued requests.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tomtom215/casefinder/internal/api"
	"github.com/tomtom215/casefinder/internal/config"
	"github.com/tomtom215/casefinder/internal/database"
	"github.com/tomtom215/casefinder/internal/encoder"
	"github.com/tomtom215/casefinder/internal/filter"
	"github.com/tomtom215/casefinder/internal/index"
	"github.com/tomtom215/casefinder/internal/logging"
	"github.com/tomtom215/casefinder/internal/recommend"
	"github.com/tomtom215/casefinder/internal/records"
	"github.com/tomtom215/casefinder/internal/supervisor"
	"github.com/tomtom215/casefinder/internal/supervisor/services"
	"github.com/tomtom215/casefinder/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("records", cfg.Data.RecordsPath).
		Str("embeddings", cfg.Data.EmbeddingsPath).
		Str("encoder", cfg.Encoder.Backend).
		Int("k", cfg.Recommend.K).
		Msg("Starting Casefinder")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := records.Load(ctx, db.Conn(), cfg.Data)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load question data")
	}

	idx, err := index.Build(store.Embeddings())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build vector index")
	}

	enc, err := encoder.New(ctx, &cfg.Encoder)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to start text encoder")
	}
	defer func() {
		if err := enc.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing text encoder")
		}
	}()
	if enc.Dimension() != idx.Dimension() {
		logging.Fatal().
			Int("encoder_dimension", enc.Dimension()).
			Int("index_dimension", idx.Dimension()).
			Msg("Encoder dimension does not match the stored embeddings")
	}

	w := worker.New(worker.Config{K: cfg.Recommend.K}, enc, idx, store)
	engine := recommend.NewEngine(recommend.Config{K: cfg.Recommend.K}, w, store, idx)
	categorical := filter.New(store)

	handler := api.NewHandler(engine, categorical, store, w, cfg.Recommend.Timeout)
	router := api.NewRouter(api.RouterConfig{
		Middleware:   api.MiddlewareConfigFromAPI(&cfg.API),
		MaxBodyBytes: cfg.API.MaxBodyBytes,
		FrontendDir:  frontendDir(cfg.Server.FrontendDir),
	}, handler)

	// The write deadline has to outlast a free-text query waiting on the worker.
	writeTimeout := cfg.Server.Timeout
	if limit := cfg.Recommend.Timeout + 5*time.Second; limit > writeTimeout {
		writeTimeout = limit
	}
	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout + 5*time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.AddDataService(services.NewWorkerService(w))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
		treeErr = <-errCh
	case treeErr = <-errCh:
	}
	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		logging.Error().Err(treeErr).Msg("Supervisor tree error")
	}

	// Idempotent; covers a tree that exited without stopping the worker.
	w.Stop()

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	logging.Info().Msg("Casefinder stopped")
}

// frontendDir returns dir when it holds a frontend build, or "" to disable
// static serving.
func frontendDir(dir string) string {
	if dir == "" {
		return ""
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		logging.Warn().Str("dir", dir).Msg("Frontend build not found, serving the API only")
		return ""
	}
	return dir
}
