// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package index

import (
	"errors"
	"fmt"
)

// ErrInvalidK is returned when a search asks for fewer than one neighbour.
var ErrInvalidK = errors.New("index: k must be at least 1")

// DimensionMismatchError reports a vector whose length differs from the
// index dimension. Ordinal is -1 for query vectors.
type DimensionMismatchError struct {
	Expected int
	Actual   int
	Ordinal  int
}

func (e *DimensionMismatchError) Error() string {
	if e.Ordinal >= 0 {
		return fmt.Sprintf("dimension mismatch at row %d: expected %d, got %d", e.Ordinal, e.Expected, e.Actual)
	}
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}
