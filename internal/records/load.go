// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/casefinder/internal/config"
	"github.com/tomtom215/casefinder/internal/logging"
	"github.com/tomtom215/casefinder/internal/metrics"
)

const (
	postsRawTable   = "question_posts_raw"
	postsView       = "question_posts"
	embeddingsTable = "question_embeddings"
)

// Load reads the records CSV and the headerless embeddings CSV through DuckDB
// and returns a consistent Store. The records file needs a header row naming
// the configured columns. The embeddings file has one comma-separated vector
// per line, in the same order as the records.
func Load(ctx context.Context, db *sql.DB, cfg config.DataConfig) (*Store, error) {
	start := time.Now()

	for _, p := range []string{cfg.RecordsPath, cfg.EmbeddingsPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, &DataLoadError{Stage: StageOpen, Path: p, Err: err}
		}
	}

	var (
		recs       []Record
		embeddings [][]float32
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recs, err = loadRecords(gctx, db, cfg.RecordsPath, cfg.Columns)
		if err != nil {
			return &DataLoadError{Stage: StageRecords, Path: cfg.RecordsPath, Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		embeddings, err = loadEmbeddings(gctx, db, cfg.EmbeddingsPath)
		if err != nil {
			return &DataLoadError{Stage: StageEmbeddings, Path: cfg.EmbeddingsPath, Err: err}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	store, err := New(db, recs, embeddings)
	if err != nil {
		var dle *DataLoadError
		if errors.As(err, &dle) && dle.Path == "" {
			switch dle.Stage {
			case StageRecords:
				dle.Path = cfg.RecordsPath
			case StageEmbeddings:
				dle.Path = cfg.EmbeddingsPath
			}
		}
		return nil, err
	}

	metrics.RecordDataLoad(store.Count(), store.Dimension(), time.Since(start))
	logging.Info().
		Int("records", store.Count()).
		Int("dimension", store.Dimension()).
		Dur("duration", time.Since(start)).
		Msg("Record store loaded")
	return store, nil
}

// LoadRecords reads only the records CSV. It is used by tools that produce
// the embeddings file and so cannot require it yet.
func LoadRecords(ctx context.Context, db *sql.DB, path string, cols config.ColumnsConfig) ([]Record, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &DataLoadError{Stage: StageOpen, Path: path, Err: err}
	}
	recs, err := loadRecords(ctx, db, path, cols)
	if err != nil {
		return nil, &DataLoadError{Stage: StageRecords, Path: path, Err: err}
	}
	return recs, nil
}

func loadRecords(ctx context.Context, db *sql.DB, path string, cols config.ColumnsConfig) ([]Record, error) {
	create := fmt.Sprintf(
		"CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv(%s, header = true, all_varchar = true)",
		postsRawTable, sqlString(path))
	if _, err := db.ExecContext(ctx, create); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	present, err := tableColumns(ctx, db, postsRawTable)
	if err != nil {
		return nil, err
	}

	required := []string{cols.ID, cols.Text, cols.Category, cols.Age, cols.Ethnicity, cols.Gender, cols.State}
	for _, c := range required {
		if !present[c] {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, c)
		}
	}

	optional := func(c, expr string) string {
		if c == "" || !present[c] {
			return "NULL"
		}
		return fmt.Sprintf(expr, quoteIdent(c))
	}

	view := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT
		rowid AS ordinal,
		%s AS id,
		coalesce(%s, '') AS text,
		coalesce(%s, '') AS category,
		TRY_CAST(round(TRY_CAST(%s AS DOUBLE)) AS INTEGER) AS age,
		coalesce(%s, '') AS ethnicity,
		coalesce(%s, '') AS gender,
		coalesce(%s, '') AS state,
		CAST(%s AS VARCHAR) AS county,
		CAST(%s AS VARCHAR) AS fips,
		CAST(%s AS DOUBLE) AS income
		FROM %s`,
		postsView,
		quoteIdent(cols.ID),
		quoteIdent(cols.Text),
		quoteIdent(cols.Category),
		quoteIdent(cols.Age),
		quoteIdent(cols.Ethnicity),
		quoteIdent(cols.Gender),
		quoteIdent(cols.State),
		optional(cols.County, "%s"),
		optional(cols.FIPS, "lpad(CAST(TRY_CAST(TRY_CAST(%s AS DOUBLE) AS BIGINT) AS VARCHAR), 5, '0')"),
		optional(cols.Income, "TRY_CAST(%s AS DOUBLE)"),
		postsRawTable,
	)
	if _, err := db.ExecContext(ctx, view); err != nil {
		return nil, fmt.Errorf("failed to create records view: %w", err)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(
		"SELECT id, text, category, age, ethnicity, gender, state, county, fips FROM %s ORDER BY ordinal", postsView))
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			id, county, fips sql.NullString
			age              sql.NullInt64
			r                Record
		)
		if err := rows.Scan(&id, &r.Text, &r.Category, &age, &r.Ethnicity, &r.Gender, &r.State, &county, &fips); err != nil {
			return nil, fmt.Errorf("failed to scan record %d: %w", len(out), err)
		}
		r.ID = strings.TrimSpace(id.String)
		r.Age, r.HasAge = int(age.Int64), age.Valid
		r.County = county.String
		r.FIPS = fips.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return out, nil
}

func loadEmbeddings(ctx context.Context, db *sql.DB, path string) ([][]float32, error) {
	create := fmt.Sprintf(
		"CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv(%s, header = false, null_padding = true)",
		embeddingsTable, sqlString(path))
	if _, err := db.ExecContext(ctx, create); err != nil {
		return nil, fmt.Errorf("failed to read embeddings: %w", err)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY rowid", embeddingsTable))
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding columns: %w", err)
	}

	cells := make([]sql.NullFloat64, len(cols))
	dest := make([]any, len(cols))
	for i := range cells {
		dest[i] = &cells[i]
	}

	var out [][]float32
	for rows.Next() {
		row := len(out)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%w at row %d: %v", ErrMalformedEmbedding, row, err)
		}
		vec, err := rowVector(cells)
		if err != nil {
			return nil, fmt.Errorf("%w at row %d: %v", ErrMalformedEmbedding, row, err)
		}
		out = append(out, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate embeddings: %w", err)
	}
	return out, nil
}

// rowVector converts one scanned row. Trailing NULLs come from null_padding
// on short rows and shorten the vector; a NULL followed by a value is a hole.
func rowVector(cells []sql.NullFloat64) ([]float32, error) {
	n := 0
	for n < len(cells) && cells[n].Valid {
		n++
	}
	for _, c := range cells[n:] {
		if c.Valid {
			return nil, errors.New("empty cell inside vector")
		}
	}
	if n == 0 {
		return nil, errors.New("empty vector")
	}
	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		vec[i] = float32(cells[i].Float64)
	}
	return vec, nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT column_name FROM information_schema.columns WHERE table_name = ?", table)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w", table, err)
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}
		present[name] = true
	}
	return present, rows.Err()
}

func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
