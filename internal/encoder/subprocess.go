// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package encoder

import (
	"bufio"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/casefinder/internal/config"
	"github.com/tomtom215/casefinder/internal/logging"
	"github.com/tomtom215/casefinder/internal/metrics"
)

//go:embed scripts/encode.py
var encodeScript string

const backendSentenceTransformers = "sentence-transformers"

type processConfig struct {
	ModelName string `json:"model_name"`
	Device    string `json:"device,omitempty"`
}

type readyMessage struct {
	Status       string `json:"status"`
	EmbeddingDim int    `json:"embedding_dim"`
	Error        string `json:"error,omitempty"`
}

type encodeRequest struct {
	Text string `json:"text"`
}

type encodeResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// process is one running interpreter.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
}

// SubprocessEncoder encodes through a long-lived Python process running the
// embedded bridge script. A process that dies or times out is killed and
// started again on the next call, no more often than cfg.RestartInterval.
type SubprocessEncoder struct {
	cfg     config.EncoderConfig
	limiter *rate.Limiter
	breaker *breaker

	mu     sync.Mutex
	proc   *process
	dim    int
	closed bool
}

// NewSubprocessEncoder starts the model process and waits for its ready
// message, bounded by cfg.StartupTimeout.
func NewSubprocessEncoder(ctx context.Context, cfg *config.EncoderConfig) (*SubprocessEncoder, error) {
	interval := cfg.RestartInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	e := &SubprocessEncoder{
		cfg:     *cfg,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		breaker: newBreaker("encoder-"+backendSentenceTransformers, 30*time.Second),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.startLocked(ctx); err != nil {
		return nil, &EncodingError{Backend: backendSentenceTransformers, Err: err}
	}
	return e, nil
}

// Encode sends the truncated text to the model process.
func (e *SubprocessEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	text = Truncate(text, e.cfg.MaxTokens)

	vec, err := e.breaker.execute(func() ([]float32, error) {
		return e.encode(ctx, text)
	})
	metrics.RecordEncode(backendSentenceTransformers, time.Since(start), err)
	if err != nil {
		return nil, &EncodingError{Backend: backendSentenceTransformers, Err: err}
	}
	return vec, nil
}

// Dimension returns the dimension reported by the model at startup.
func (e *SubprocessEncoder) Dimension() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dim
}

// Close stops the model process. Further Encode calls fail with ErrClosed.
func (e *SubprocessEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.stopLocked()
	return nil
}

func (e *SubprocessEncoder) encode(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	if e.proc == nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting to restart encoder process: %w", err)
		}
		if err := e.startLocked(ctx); err != nil {
			return nil, err
		}
	}

	if e.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RequestTimeout)
		defer cancel()
	}

	line, err := json.Marshal(encodeRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	if _, err := e.proc.stdin.Write(append(line, '\n')); err != nil {
		e.stopLocked()
		return nil, fmt.Errorf("write request: %w", err)
	}

	var resp encodeResponse
	if err := e.readLocked(ctx, &resp); err != nil {
		e.stopLocked()
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("python error: %s", resp.Error)
	}
	if len(resp.Embedding) != e.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnexpectedDimension, len(resp.Embedding), e.dim)
	}
	return resp.Embedding, nil
}

// startLocked must be called with mu held.
func (e *SubprocessEncoder) startLocked(ctx context.Context) error {
	python := e.cfg.PythonPath
	if python == "" {
		python = "python3"
	}

	cmd := exec.Command(python, "-u", "-c", encodeScript)
	cmd.Stderr = logging.WithComponent("encoder-process")
	cmd.WaitDelay = time.Second

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", python, err)
	}
	metrics.EncoderRestarts.Inc()

	e.proc = &process{cmd: cmd, stdin: stdin, stdout: bufio.NewReader(stdout)}

	cfgLine, err := json.Marshal(processConfig{ModelName: e.cfg.Model, Device: e.cfg.Device})
	if err != nil {
		e.stopLocked()
		return fmt.Errorf("marshal config: %w", err)
	}
	if _, err := stdin.Write(append(cfgLine, '\n')); err != nil {
		e.stopLocked()
		return fmt.Errorf("send config: %w", err)
	}

	if e.cfg.StartupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.StartupTimeout)
		defer cancel()
	}

	var ready readyMessage
	if err := e.readLocked(ctx, &ready); err != nil {
		e.stopLocked()
		return fmt.Errorf("read ready message: %w", err)
	}
	if ready.Status != "ready" {
		e.stopLocked()
		return fmt.Errorf("unexpected startup status %q: %s", ready.Status, ready.Error)
	}
	if ready.EmbeddingDim < 1 {
		e.stopLocked()
		return fmt.Errorf("%w: model reported %d", ErrUnexpectedDimension, ready.EmbeddingDim)
	}
	if e.dim != 0 && ready.EmbeddingDim != e.dim {
		e.stopLocked()
		return fmt.Errorf("%w: restarted model reported %d, want %d", ErrUnexpectedDimension, ready.EmbeddingDim, e.dim)
	}
	e.dim = ready.EmbeddingDim

	logging.Info().
		Str("model", e.cfg.Model).
		Int("pid", cmd.Process.Pid).
		Int("embedding_dim", e.dim).
		Msg("Encoder process ready")
	return nil
}

// readLocked reads one JSON line into v. The read runs in its own goroutine so
// ctx can abandon it; the caller then kills the process, which unblocks it.
func (e *SubprocessEncoder) readLocked(ctx context.Context, v any) error {
	type result struct {
		line []byte
		err  error
	}
	out := e.proc.stdout
	ch := make(chan result, 1)
	go func() {
		line, err := out.ReadBytes('\n')
		ch <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case r := <-ch:
		if r.err != nil {
			if errors.Is(r.err, io.EOF) {
				return errors.New("encoder process exited")
			}
			return fmt.Errorf("read response: %w", r.err)
		}
		if err := json.Unmarshal(r.line, v); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
		return nil
	}
}

// stopLocked must be called with mu held.
func (e *SubprocessEncoder) stopLocked() {
	if e.proc == nil {
		return
	}
	p := e.proc
	e.proc = nil

	_ = p.stdin.Close()
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	if err := p.cmd.Wait(); err != nil {
		logging.Debug().Err(err).Msg("Encoder process exited")
	}
}
