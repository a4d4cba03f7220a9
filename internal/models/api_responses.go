// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package models

import "time"

// APIResponse is the envelope returned by every /api endpoint except
// categoricalQuery, which keeps its original flat shape.
//
//	{
//	  "success": true,
//	  "data": {"result": ["...", "..."]},
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z", "query_time_ms": 41}
//	}
type APIResponse struct {
	Success  bool      `json:"success"`
	Data     any       `json:"data,omitempty"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata carries per-response observability fields.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	Count       int       `json:"count,omitempty"`
}

// APIError is the error body of a failed request.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error codes.
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeRequestTooLarge    = "REQUEST_TOO_LARGE"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeDatabase           = "DATABASE_ERROR"
)

// TextResult is the data payload of POST /api/text.
type TextResult struct {
	Result []string `json:"result"`
}

// HealthStatus is the data payload of GET /api/health.
type HealthStatus struct {
	Status      string `json:"status"`
	Records     int    `json:"records"`
	Dimension   int    `json:"dimension"`
	WorkerState string `json:"worker_state"`
}
