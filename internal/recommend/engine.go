// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

// Package recommend answers "which past questions are most like this one".
//
// Two paths exist. QueryByText sends arbitrary text through the embedding
// worker. QueryByExistingEmbedding reuses the stored vector of a known
// question and searches the index directly, so it never waits on the worker
// and runs concurrently with everything else.
//
// # Usage
//
//	engine := recommend.NewEngine(recommend.Config{K: 5}, w, store, idx)
//	recs, err := engine.QueryByExistingEmbedding(ctx, "Q1")
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/casefinder/internal/encoder"
	"github.com/tomtom215/casefinder/internal/index"
	"github.com/tomtom215/casefinder/internal/logging"
	"github.com/tomtom215/casefinder/internal/metrics"
	"github.com/tomtom215/casefinder/internal/models"
	"github.com/tomtom215/casefinder/internal/records"
)

// ErrEmptyQuery is returned for blank query text.
var ErrEmptyQuery = errors.New("query text is empty")

// UnknownIdentifierError is returned when no record has the given id.
type UnknownIdentifierError struct {
	ID string
}

func (e *UnknownIdentifierError) Error() string {
	return fmt.Sprintf("unknown question identifier %q", e.ID)
}

const (
	pathText      = "text"
	pathEmbedding = "embedding"
)

// TextQuerier runs a free-text query. *worker.Worker implements it.
type TextQuerier interface {
	Submit(ctx context.Context, text string) ([]models.Recommendation, error)
}

// Searcher is the nearest-neighbour index.
type Searcher interface {
	Search(query []float32, k int) ([]index.Neighbor, error)
}

// Store is the part of the record store the engine reads.
type Store interface {
	FindOrdinal(id string) (int, bool)
	Embedding(ordinal int) ([]float32, error)
	Resolve(ordinal int) (records.Record, error)
}

// Config tunes the engine.
type Config struct {
	// K is the number of recommendations returned.
	K int
}

// Engine serves both recommendation paths. It is safe for concurrent use.
type Engine struct {
	cfg    Config
	text   TextQuerier
	store  Store
	search Searcher
}

// NewEngine wires the engine to its collaborators.
func NewEngine(cfg Config, text TextQuerier, store Store, search Searcher) *Engine {
	if cfg.K < 1 {
		cfg.K = 5
	}
	return &Engine{cfg: cfg, text: text, store: store, search: search}
}

// K returns the configured result count.
func (e *Engine) K() int { return e.cfg.K }

// QueryByText returns the K records nearest to the encoding of text.
func (e *Engine) QueryByText(ctx context.Context, text string) ([]models.Recommendation, error) {
	if strings.TrimSpace(text) == "" {
		metrics.RecordRecommendation(pathText, "invalid")
		return nil, ErrEmptyQuery
	}

	recs, err := e.text.Submit(ctx, text)
	if err != nil {
		metrics.RecordRecommendation(pathText, "error")
		return nil, err
	}
	metrics.RecordRecommendation(pathText, "success")
	return recs, nil
}

// QueryByExistingEmbedding returns the K records nearest to the stored vector
// of id, excluding id itself. When the dataset holds K or fewer other rows,
// all of them are returned.
func (e *Engine) QueryByExistingEmbedding(ctx context.Context, id string) ([]models.Recommendation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	self, ok := e.store.FindOrdinal(id)
	if !ok {
		metrics.RecordRecommendation(pathEmbedding, "unknown_id")
		return nil, &UnknownIdentifierError{ID: id}
	}

	recs, err := e.nearestExcluding(self)
	if err != nil {
		metrics.RecordRecommendation(pathEmbedding, "error")
		logging.Ctx(ctx).Error().Err(err).Str("question_uno", id).Msg("Stored-embedding query failed")
		return nil, err
	}
	metrics.RecordRecommendation(pathEmbedding, "success")
	return recs, nil
}

func (e *Engine) nearestExcluding(self int) ([]models.Recommendation, error) {
	vec, err := e.store.Embedding(self)
	if err != nil {
		return nil, err
	}

	neighbors, err := e.search.Search(vec, e.cfg.K+1)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	// Drop self. If a tie pushed self out of the window, the extra
	// neighbour is dropped from the far end instead.
	kept := make([]index.Neighbor, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Ordinal == self {
			continue
		}
		kept = append(kept, n)
	}
	if len(kept) > e.cfg.K {
		kept = kept[:e.cfg.K]
	}

	recs := make([]models.Recommendation, 0, len(kept))
	for _, n := range kept {
		rec, err := e.store.Resolve(n.Ordinal)
		if err != nil {
			return nil, fmt.Errorf("resolve ordinal %d: %w", n.Ordinal, err)
		}
		recs = append(recs, models.Recommendation{
			ID:       rec.ID,
			Text:     encoder.Redact(rec.Text),
			Distance: n.Distance,
		})
	}
	return recs, nil
}
