// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package encoder

import (
	"errors"
	"fmt"
)

// ErrUnexpectedDimension is wrapped by EncodingError when a backend returns
// a vector whose length differs from its advertised dimension.
var ErrUnexpectedDimension = errors.New("unexpected embedding dimension")

// ErrClosed is returned by Encode after Close.
var ErrClosed = errors.New("encoder closed")

// EncodingError reports a failed encode.
type EncodingError struct {
	Backend string
	Err     error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding with %s failed: %v", e.Backend, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}
