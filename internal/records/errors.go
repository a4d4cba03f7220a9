// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package records

import (
	"errors"
	"fmt"
)

var (
	// ErrRowCountMismatch means the record and embedding tables have different lengths.
	ErrRowCountMismatch = errors.New("record and embedding row counts differ")

	// ErrDuplicateID means two records share an identifier.
	ErrDuplicateID = errors.New("duplicate record identifier")

	// ErrEmptyID means a record has no identifier.
	ErrEmptyID = errors.New("empty record identifier")

	// ErrMissingColumn means a required column is absent from the records file.
	ErrMissingColumn = errors.New("required column missing")

	// ErrMalformedEmbedding means an embedding row has a missing or non-numeric cell.
	ErrMalformedEmbedding = errors.New("malformed embedding row")

	// ErrOrdinalOutOfRange is returned by Resolve and Embedding for unknown ordinals.
	ErrOrdinalOutOfRange = errors.New("ordinal out of range")
)

// Load stages reported by DataLoadError.
const (
	StageOpen       = "open"
	StageRecords    = "records"
	StageEmbeddings = "embeddings"
	StageAlign      = "align"
)

// DataLoadError reports why the startup tables could not be loaded. Any
// DataLoadError is fatal to the process.
type DataLoadError struct {
	Stage string
	Path  string
	Err   error
}

func (e *DataLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("data load failed at %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("data load failed at %s (%s): %v", e.Stage, e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }
