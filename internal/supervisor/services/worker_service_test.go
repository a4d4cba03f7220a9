// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/casefinder/internal/index"
	"github.com/tomtom215/casefinder/internal/records"
	"github.com/tomtom215/casefinder/internal/worker"
)

type fakeWorker struct {
	starts atomic.Int32
	stops  atomic.Int32
	once   sync.Once
	done   chan struct{}
}

func newFakeWorker() *fakeWorker { return &fakeWorker{done: make(chan struct{})} }

func (f *fakeWorker) Start() { f.starts.Add(1) }
func (f *fakeWorker) Stop() {
	f.stops.Add(1)
	f.once.Do(func() { close(f.done) })
}
func (f *fakeWorker) Done() <-chan struct{} { return f.done }

var _ suture.Service = (*WorkerService)(nil)

func TestWorkerService_StopsOnCancel(t *testing.T) {
	w := newFakeWorker()
	svc := NewWorkerService(w)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}

	if w.starts.Load() != 1 || w.stops.Load() != 1 {
		t.Errorf("starts=%d stops=%d, want 1 and 1", w.starts.Load(), w.stops.Load())
	}
	if svc.String() != "embedding-worker" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestWorkerService_ExternalStopIsFinal(t *testing.T) {
	w := newFakeWorker()
	w.Stop()

	err := NewWorkerService(w).Serve(context.Background())
	if !errors.Is(err, suture.ErrDoNotRestart) {
		t.Errorf("err = %v, want suture.ErrDoNotRestart", err)
	}
}

func TestWorkerService_RealWorker(t *testing.T) {
	w := worker.New(worker.Config{}, nil, nil, nil)

	sup := suture.New("test-sup", suture.Spec{Timeout: 2 * time.Second})
	sup.Add(NewWorkerService(w))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	time.Sleep(50 * time.Millisecond)

	cancel()
	<-errCh

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not stop with the supervisor")
	}
	if w.State() != worker.StateStopped {
		t.Errorf("state = %v, want stopped", w.State())
	}
	if _, err := w.Submit(context.Background(), "late"); !errors.Is(err, worker.ErrStopped) {
		t.Errorf("Submit after stop = %v, want ErrStopped", err)
	}
}

type gatedEncoder struct {
	entered chan struct{}
	gate    chan struct{}
}

func (g *gatedEncoder) Encode(context.Context, string) ([]float32, error) {
	g.entered <- struct{}{}
	<-g.gate
	return []float32{0, 0}, nil
}

func TestWorkerService_CancelCompletesInFlight(t *testing.T) {
	emb := [][]float32{{0, 0}, {3, 0}}
	store, err := records.New(nil, []records.Record{{ID: "Q1", Text: "a"}, {ID: "Q2", Text: "b"}}, emb)
	if err != nil {
		t.Fatalf("records.New() error = %v", err)
	}
	idx, err := index.Build(emb)
	if err != nil {
		t.Fatalf("index.Build() error = %v", err)
	}
	enc := &gatedEncoder{entered: make(chan struct{}, 1), gate: make(chan struct{})}
	w := worker.New(worker.Config{K: 1}, enc, idx, store)
	svc := NewWorkerService(w)

	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() { serveErr <- svc.Serve(ctx) }()

	type reply struct {
		id  string
		err error
	}
	inFlight := make(chan reply, 1)
	go func() {
		recs, err := w.Submit(context.Background(), "in flight")
		r := reply{err: err}
		if len(recs) > 0 {
			r.id = recs[0].ID
		}
		inFlight <- r
	}()
	<-enc.entered

	cancel()
	close(enc.gate)

	if r := <-inFlight; r.err != nil || r.id != "Q1" {
		t.Errorf("in-flight request = %+v, want Q1 and no error", r)
	}
	select {
	case err := <-serveErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
	if _, err := w.Submit(context.Background(), "late"); !errors.Is(err, worker.ErrStopped) {
		t.Errorf("Submit after stop = %v, want ErrStopped", err)
	}
}
