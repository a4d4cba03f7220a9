// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package encoder

import "strings"

const (
	// RedactionMarker is the literal anonymisation marker found in question text.
	RedactionMarker = "###"

	// RedactionPlaceholder replaces RedactionMarker in text shown to callers.
	RedactionPlaceholder = "[REDACTED]"
)

// Truncate keeps the first maxTokens whitespace-separated tokens of text.
// Text within the limit, or any text when maxTokens < 1, is returned as is.
func Truncate(text string, maxTokens int) string {
	if maxTokens < 1 {
		return text
	}
	fields := strings.Fields(text)
	if len(fields) <= maxTokens {
		return text
	}
	return strings.Join(fields[:maxTokens], " ")
}

// Redact replaces every redaction marker with the placeholder.
func Redact(text string) string {
	return strings.ReplaceAll(text, RedactionMarker, RedactionPlaceholder)
}
