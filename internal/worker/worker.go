// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

// Package worker runs free-text similarity queries one at a time.
//
// The encoder is slow and not reentrant, so every text query goes through a
// single goroutine fed by a one-slot channel. A caller blocks while the slot
// is taken and then waits for its own reply; requests never interleave.
//
// A request that has been accepted runs to completion even if its caller
// gives up. Stop queues a sentinel behind whatever is pending, so accepted
// work drains before the goroutine exits.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/casefinder/internal/encoder"
	"github.com/tomtom215/casefinder/internal/index"
	"github.com/tomtom215/casefinder/internal/logging"
	"github.com/tomtom215/casefinder/internal/metrics"
	"github.com/tomtom215/casefinder/internal/models"
	"github.com/tomtom215/casefinder/internal/records"
)

var (
	// ErrStopped is returned by Submit once Stop has been called.
	ErrStopped = errors.New("embedding worker stopped")

	// ErrPanic wraps a value recovered from a panic during processing.
	ErrPanic = errors.New("embedding worker panic")
)

// State is the worker lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateBusy
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBusy:
		return "busy"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Encoder turns query text into a vector.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// Searcher returns the k nearest stored vectors.
type Searcher interface {
	Search(query []float32, k int) ([]index.Neighbor, error)
}

// Resolver maps an ordinal back to its record.
type Resolver interface {
	Resolve(ordinal int) (records.Record, error)
}

// Config tunes request processing.
type Config struct {
	// K is the number of results per query.
	K int
}

type result struct {
	recs []models.Recommendation
	err  error
}

type request struct {
	ctx      context.Context
	text     string
	enqueued time.Time
	reply    chan result
	stop     bool
}

// Worker is the single-slot embedding worker.
type Worker struct {
	cfg      Config
	encoder  Encoder
	searcher Searcher
	resolver Resolver
	logger   zerolog.Logger

	requests chan request
	stopping chan struct{}
	done     chan struct{}
	state    atomic.Int32

	mu      sync.Mutex
	started bool
	stopped bool
}

// New creates a worker. Call Start before submitting.
func New(cfg Config, enc Encoder, searcher Searcher, resolver Resolver) *Worker {
	if cfg.K < 1 {
		cfg.K = 5
	}
	return &Worker{
		cfg:      cfg,
		encoder:  enc,
		searcher: searcher,
		resolver: resolver,
		logger:   logging.WithComponent("worker"),
		requests: make(chan request, 1),
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Start launches the worker goroutine. Calling Start again, or after Stop,
// does nothing.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true
	go w.run()
	w.logger.Info().Int("k", w.cfg.K).Msg("Embedding worker started")
}

// Stop queues the stop sentinel behind pending work and waits for the worker
// goroutine to exit. It is safe to call more than once.
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.stopped = true
	started := w.started
	close(w.stopping)
	w.mu.Unlock()

	if !started {
		w.state.Store(int32(StateStopped))
		close(w.done)
		return
	}
	w.requests <- request{stop: true}
	<-w.done
}

// Done is closed when the worker goroutine has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Submit queues text and waits for its recommendations. If ctx ends first the
// caller stops waiting, but a request that was already accepted still runs.
func (w *Worker) Submit(ctx context.Context, text string) ([]models.Recommendation, error) {
	select {
	case <-w.stopping:
		return nil, ErrStopped
	default:
	}

	req := request{
		ctx:      ctx,
		text:     text,
		enqueued: time.Now(),
		reply:    make(chan result, 1),
	}

	select {
	case w.requests <- req:
	case <-w.stopping:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.recs, res.err
	case <-w.done:
		select {
		case res := <-req.reply:
			return res.recs, res.err
		default:
			return nil, ErrStopped
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *Worker) run() {
	defer close(w.done)

	for {
		req := <-w.requests
		if req.stop {
			break
		}
		w.handle(req)
	}

	w.state.Store(int32(StateStopped))
	metrics.SetWorkerBusy(false)

	// Requests that slipped into the slot after the sentinel are refused.
	for {
		select {
		case req := <-w.requests:
			if !req.stop {
				req.reply <- result{err: ErrStopped}
				metrics.RecordWorkerRequest("stopped", time.Since(req.enqueued), 0)
			}
		default:
			w.logger.Info().Msg("Embedding worker stopped")
			return
		}
	}
}

func (w *Worker) handle(req request) {
	wait := time.Since(req.enqueued)
	w.state.Store(int32(StateBusy))
	metrics.SetWorkerBusy(true)

	start := time.Now()
	recs, err := w.process(req)
	elapsed := time.Since(start)

	outcome := "success"
	switch {
	case errors.Is(err, ErrPanic):
		outcome = "panic"
	case err != nil:
		outcome = "error"
		logging.Ctx(req.ctx).Warn().Err(err).Dur("duration", elapsed).Msg("Text query failed")
	}
	metrics.RecordWorkerRequest(outcome, wait, elapsed)

	w.state.Store(int32(StateIdle))
	metrics.SetWorkerBusy(false)
	req.reply <- result{recs: recs, err: err}
}

func (w *Worker) process(req request) (recs []models.Recommendation, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(req.ctx).Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Recovered panic in embedding worker")
			recs, err = nil, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	// An accepted request runs to completion. A hung model is bounded by the
	// encoder's own request timeout.
	ctx := context.WithoutCancel(req.ctx)

	vec, err := w.encoder.Encode(ctx, req.text)
	if err != nil {
		return nil, err
	}

	neighbors, err := w.searcher.Search(vec, w.cfg.K)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	recs = make([]models.Recommendation, 0, len(neighbors))
	for _, n := range neighbors {
		rec, err := w.resolver.Resolve(n.Ordinal)
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
