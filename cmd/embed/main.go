// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

// Command embed encodes every question in the records CSV and writes the
// headerless embeddings CSV the server loads, one vector per line in record
// order. It uses the same configuration and encoder as the server, so the
// vectors match what free-text queries are compared against.
//
//	embed -out ./data/question_embeddings.csv
//	ENCODER_BACKEND=hash embed -records ./testdata/posts.csv -out /tmp/emb.csv
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tomtom215/casefinder/internal/config"
	"github.com/tomtom215/casefinder/internal/database"
	"github.com/tomtom215/casefinder/internal/encoder"
	"github.com/tomtom215/casefinder/internal/logging"
	"github.com/tomtom215/casefinder/internal/records"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	flags := flag.NewFlagSet("embed", flag.ExitOnError)
	recordsPath := flags.String("records", cfg.Data.RecordsPath, "records CSV with a header row")
	outPath := flags.String("out", cfg.Data.EmbeddingsPath, "embeddings CSV to write")
	backend := flags.String("backend", cfg.Encoder.Backend, "encoder backend: sentence-transformers|hash")
	progressEvery := flags.Int("progress", 500, "log progress every N records (0 disables)")
	_ = flags.Parse(os.Args[1:])

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: "console"})

	cfg.Encoder.Backend = *backend
	// every text is encoded once, caching would only hold memory
	cfg.Encoder.CacheSize = 0

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	// run's deferred cleanup (temp file, encoder process, database) has to
	// finish before the exit code is set.
	err = run(ctx, cfg, *recordsPath, *outPath, *progressEvery)
	cancel()
	if err != nil {
		logging.Error().Err(err).Msg("Embedding failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, recordsPath, outPath string, progressEvery int) error {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	recs, err := records.LoadRecords(ctx, db.Conn(), recordsPath, cfg.Data.Columns)
	if err != nil {
		return err
	}

	enc, err := encoder.New(ctx, &cfg.Encoder)
	if err != nil {
		return fmt.Errorf("start encoder: %w", err)
	}
	defer enc.Close()

	tmp := outPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp)

	start := time.Now()
	if err := writeEmbeddings(ctx, f, enc, recs, progressEvery); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp, outPath); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}

	logging.Info().
		Int("records", len(recs)).
		Int("dimension", enc.Dimension()).
		Str("out", outPath).
		Dur("duration", time.Since(start)).
		Msg("Embeddings written")
	return nil
}

// writeEmbeddings encodes each record text and writes one CSV row per record.
func writeEmbeddings(ctx context.Context, w io.Writer, enc encoder.Encoder, recs []records.Record, progressEvery int) error {
	cw := csv.NewWriter(w)
	row := make([]string, enc.Dimension())

	for i, rec := range recs {
		vec, err := enc.Encode(ctx, rec.Text)
		if err != nil {
			return fmt.Errorf("encode record %q: %w", rec.ID, err)
		}
		if len(vec) != len(row) {
			return fmt.Errorf("encode record %q: %w: got %d, want %d", rec.ID, encoder.ErrUnexpectedDimension, len(vec), len(row))
		}
		for j, v := range vec {
			row[j] = strconv.FormatFloat(float64(v), 'g', -1, 32)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
		if progressEvery > 0 && (i+1)%progressEvery == 0 {
			logging.Info().Int("done", i+1).Int("total", len(recs)).Msg("Encoding progress")
		}
	}

	cw.Flush()
	return cw.Error()
}
