// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/casefinder/internal/logging"
	"github.com/tomtom215/casefinder/internal/models"
)

// responder writes the standard envelope for one request.
type responder struct {
	w     http.ResponseWriter
	r     *http.Request
	start time.Time
}

func newResponder(w http.ResponseWriter, r *http.Request) *responder {
	return &responder{w: w, r: r, start: time.Now()}
}

func (rw *responder) metadata(count int) models.Metadata {
	return models.Metadata{
		Timestamp:   time.Now().UTC(),
		QueryTimeMS: time.Since(rw.start).Milliseconds(),
		RequestID:   logging.RequestIDFromContext(rw.r.Context()),
		Count:       count,
	}
}

// Success writes a 200 envelope around data.
func (rw *responder) Success(data any, count int) {
	writeJSON(rw.w, http.StatusOK, &models.APIResponse{
		Success:  true,
		Data:     data,
		Metadata: rw.metadata(count),
	})
}

// Error writes an error envelope. Server errors are logged with the request ID.
func (rw *responder) Error(status int, apiErr *models.APIError, cause error) {
	if status >= http.StatusInternalServerError {
		event := logging.Ctx(rw.r.Context()).Error()
		if cause != nil {
			event = event.Str("error", sanitizeLogValue(cause.Error()))
		}
		event.Str("code", apiErr.Code).Int("status", status).Msg("API error")
	}

	writeJSON(rw.w, status, &models.APIResponse{
		Success:  false,
		Error:    apiErr,
		Metadata: rw.metadata(0),
	})
}

func (rw *responder) BadRequest(message string) {
	rw.Error(http.StatusBadRequest, &models.APIError{Code: models.ErrCodeBadRequest, Message: message}, nil)
}

func (rw *responder) NotFound(message string) {
	rw.Error(http.StatusNotFound, &models.APIError{Code: models.ErrCodeNotFound, Message: message}, nil)
}

func (rw *responder) ServiceUnavailable(message string, cause error) {
	rw.Error(http.StatusServiceUnavailable, &models.APIError{Code: models.ErrCodeServiceUnavailable, Message: message}, cause)
}

func (rw *responder) Internal(cause error) {
	rw.Error(http.StatusInternalServerError, &models.APIError{Code: models.ErrCodeInternal, Message: "Internal server error"}, cause)
}

// writeJSON encodes v as the response body. API responses are never cached.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("Failed to write JSON response")
	}
}

// sanitizeLogValue escapes control characters so user input cannot forge log lines.
func sanitizeLogValue(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7F {
			return '?'
		}
		return r
	}, s)
}
