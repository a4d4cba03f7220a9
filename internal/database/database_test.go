// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/casefinder/internal/config"
)

func TestNewInMemory(t *testing.T) {
	db, err := New(&config.DatabaseConfig{Threads: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer db.Close()

	var got int
	if err := db.Conn().QueryRowContext(context.Background(), "SELECT 40 + 2").Scan(&got); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if got != 42 {
		t.Errorf("SELECT 40 + 2 = %d, want 42", got)
	}
}

func TestNewCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "casefinder.duckdb")

	db, err := New(&config.DatabaseConfig{Path: path, Threads: 1, MaxMemory: "256MB"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestWithTimeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := WithTimeout(context.Background())
	defer cancel()
	if _, ok := ctx.Deadline(); !ok {
		t.Error("expected default deadline to be applied")
	}

	parent, parentCancel := context.WithTimeout(context.Background(), time.Second)
	defer parentCancel()
	ctx2, cancel2 := WithTimeout(parent)
	defer cancel2()
	d1, _ := parent.Deadline()
	d2, _ := ctx2.Deadline()
	if !d1.Equal(d2) {
		t.Error("existing deadline should be preserved")
	}
}

func TestCloseNil(t *testing.T) {
	t.Parallel()

	var db *DB
	if err := db.Close(); err != nil {
		t.Errorf("Close() on nil DB = %v, want nil", err)
	}
}
