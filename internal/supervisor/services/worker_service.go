// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package services

import (
	"context"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/casefinder/internal/logging"
)

// Worker is the lifecycle of the embedding worker. *worker.Worker implements it.
type Worker interface {
	Start()
	Stop()
	Done() <-chan struct{}
}

// WorkerService runs the embedding worker under supervision. Cancelling the
// context stops the worker: the in-flight request and the one holding the
// slot still complete, and only callers still waiting to enter the slot get
// worker.ErrStopped.
type WorkerService struct {
	worker Worker
}

// NewWorkerService wraps w.
func NewWorkerService(w Worker) *WorkerService {
	return &WorkerService{worker: w}
}

// Serve implements suture.Service. A worker cannot be restarted once stopped,
// so a worker that stops on its own ends the service for good.
func (s *WorkerService) Serve(ctx context.Context) error {
	s.worker.Start()

	select {
	case <-ctx.Done():
		logging.Info().Msg("Stopping embedding worker")
		s.worker.Stop()
		return ctx.Err()
	case <-s.worker.Done():
		logging.Warn().Msg("Embedding worker stopped outside of shutdown")
		return suture.ErrDoNotRestart
	}
}

// String implements fmt.Stringer for suture logging.
func (s *WorkerService) String() string {
	return "embedding-worker"
}
