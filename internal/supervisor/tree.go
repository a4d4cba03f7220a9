// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration. Zero fields take the
// DefaultTreeConfig values.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay, in seconds.
	FailureDecay float64

	// FailureBackoff is how long to wait once the threshold is exceeded.
	FailureBackoff time.Duration

	// ShutdownTimeout bounds how long each service gets to stop.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns suture's own defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// SupervisorTree is the Casefinder process tree:
//
//	casefinder
//	├── data-layer   embedding worker
//	└── api-layer    HTTP server
//
// Suture stops the children of one supervisor concurrently, so the layers are
// separate supervisors and Serve orders their shutdown: the api layer drains
// first, then the data layer stops the worker it was feeding.
type SupervisorTree struct {
	data   *suture.Supervisor
	api    *suture.Supervisor
	logger *slog.Logger
	config TreeConfig
}

// NewSupervisorTree builds the tree. Supervisor events are logged through
// sutureslog onto logger.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	defaults := DefaultTreeConfig()
	if config.FailureThreshold == 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = defaults.FailureDecay
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = defaults.FailureBackoff
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}

	// MustHook has a pointer receiver.
	handler := &sutureslog.Handler{Logger: logger}

	spec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	return &SupervisorTree{
		data:   suture.New("casefinder/data-layer", spec),
		api:    suture.New("casefinder/api-layer", spec),
		logger: logger,
		config: config,
	}, nil
}

// AddDataService adds a service to the data layer (the embedding worker).
func (t *SupervisorTree) AddDataService(svc suture.Service) suture.ServiceToken {
	return t.data.Add(svc)
}

// AddAPIService adds a service to the api layer (the HTTP server).
func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve runs both layers until ctx is canceled, then stops the api layer
// before the data layer. It returns ctx.Err() after a normal shutdown.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	dataCtx, stopData := context.WithCancel(context.WithoutCancel(ctx))
	defer stopData()

	dataDone := t.data.ServeBackground(dataCtx)
	apiErr := t.api.Serve(ctx)

	t.logger.Info("api layer stopped, stopping data layer")
	stopData()
	dataErr := <-dataDone

	for _, err := range []error{apiErr, dataErr} {
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return ctx.Err()
}

// ServeBackground runs Serve in a goroutine. The channel receives exactly one
// value once the tree has stopped.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- t.Serve(ctx)
	}()
	return errCh
}

// UnstoppedServiceReport lists services that missed the shutdown timeout in
// either layer.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	var all []suture.UnstoppedService
	for _, sup := range []*suture.Supervisor{t.api, t.data} {
		report, err := sup.UnstoppedServiceReport()
		if err != nil {
			return all, err
		}
		all = append(all, report...)
	}
	return all, nil
}
