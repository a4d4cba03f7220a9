// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

// Package records holds the immutable question dataset and its row-aligned
// embedding table.
//
// Both tables are read once at startup. Row i of the records file and row i
// of the embedding file describe the same question; that position is the
// question's ordinal and is how the vector index refers to it. After Load
// returns nothing is mutated, so every accessor is safe for concurrent use
// without locking.
package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomtom215/casefinder/internal/database"
	"github.com/tomtom215/casefinder/internal/database/query"
	"github.com/tomtom215/casefinder/internal/index"
)

// Store is the loaded dataset.
type Store struct {
	db         *sql.DB
	records    []Record
	embeddings [][]float32
	byID       map[string]int
	dim        int
}

// New builds a Store from in-memory tables. It applies the same consistency
// checks as Load. db may be nil, in which case Regions is unavailable.
func New(db *sql.DB, recs []Record, embeddings [][]float32) (*Store, error) {
	if len(recs) != len(embeddings) {
		return nil, &DataLoadError{
			Stage: StageAlign,
			Err:   fmt.Errorf("%w: %d records, %d embeddings", ErrRowCountMismatch, len(recs), len(embeddings)),
		}
	}

	byID := make(map[string]int, len(recs))
	for i, r := range recs {
		if r.ID == "" {
			return nil, &DataLoadError{Stage: StageRecords, Err: fmt.Errorf("%w at row %d", ErrEmptyID, i)}
		}
		if prev, dup := byID[r.ID]; dup {
			return nil, &DataLoadError{Stage: StageRecords, Err: fmt.Errorf("%w %q at rows %d and %d", ErrDuplicateID, r.ID, prev, i)}
		}
		byID[r.ID] = i
	}

	dim := 0
	if len(embeddings) > 0 {
		dim = len(embeddings[0])
	}
	for i, v := range embeddings {
		if len(v) != dim {
			return nil, &DataLoadError{
				Stage: StageEmbeddings,
				Err:   &index.DimensionMismatchError{Expected: dim, Actual: len(v), Ordinal: i},
			}
		}
	}

	return &Store{
		db:         db,
		records:    recs,
		embeddings: embeddings,
		byID:       byID,
		dim:        dim,
	}, nil
}

// Count returns the number of records.
func (s *Store) Count() int { return len(s.records) }

// Dimension returns the embedding length, or 0 for an empty store.
func (s *Store) Dimension() int { return s.dim }

// Resolve returns the record at ordinal.
func (s *Store) Resolve(ordinal int) (Record, error) {
	if ordinal < 0 || ordinal >= len(s.records) {
		return Record{}, fmt.Errorf("%w: %d", ErrOrdinalOutOfRange, ordinal)
	}
	return s.records[ordinal], nil
}

// FindOrdinal returns the ordinal of the record with the given identifier.
func (s *Store) FindOrdinal(id string) (int, bool) {
	ord, ok := s.byID[id]
	return ord, ok
}

// Embedding returns the stored vector for ordinal. The slice is shared and
// must not be modified.
func (s *Store) Embedding(ordinal int) ([]float32, error) {
	if ordinal < 0 || ordinal >= len(s.embeddings) {
		return nil, fmt.Errorf("%w: %d", ErrOrdinalOutOfRange, ordinal)
	}
	return s.embeddings[ordinal], nil
}

// Embeddings returns the full embedding table in ordinal order. It is shared
// and must not be modified.
func (s *Store) Embeddings() [][]float32 { return s.embeddings }

// Records returns every record in ordinal order. It is shared and must not
// be modified.
func (s *Store) Records() []Record { return s.records }

// ErrNoDatabase is returned by Regions on a Store built without DuckDB.
var ErrNoDatabase = errors.New("records: store has no database")

// RegionFilter narrows the regions summary. Empty fields match everything.
type RegionFilter struct {
	// Categories keeps questions whose category contains any of the values.
	Categories []string
	// States keeps questions asked from one of the named states.
	States []string
}

// Regions summarizes questions per county, ordered by FIPS code. Records
// without a FIPS code are left out.
func (s *Store) Regions(ctx context.Context, f RegionFilter) ([]RegionSummary, error) {
	if s.db == nil {
		return nil, ErrNoDatabase
	}

	ctx, cancel := database.WithTimeout(ctx)
	defer cancel()

	where, args := query.NewWhereBuilder().
		AddClause("fips IS NOT NULL").
		AddContainsAny("category", f.Categories).
		AddIn("state", f.States).
		BuildWithPrefix()

	rows, err := s.db.QueryContext(ctx, `
		SELECT fips,
		       coalesce(max(state), '')  AS state,
		       coalesce(max(county), '') AS county,
		       median(age)               AS median_age,
		       median(income)            AS median_income,
		       count(*)                  AS usage
		FROM `+postsView+`
		`+where+`
		GROUP BY fips
		ORDER BY fips`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query regions: %w", err)
	}
	defer database.CloseWithLog(rows, "region rows")

	var out []RegionSummary
	for rows.Next() {
		var (
			r        RegionSummary
			age, inc sql.NullFloat64
		)
		if err := rows.Scan(&r.FIPS, &r.State, &r.County, &age, &inc, &r.Usage); err != nil {
			return nil, fmt.Errorf("failed to scan region: %w", err)
		}
		if age.Valid {
			r.MedianAge = &age.Float64
		}
		if inc.Valid {
			r.MedianIncome = &inc.Float64
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate regions: %w", err)
	}
	return out, nil
}
