// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

/*
Package models defines the data structures shared between the query services
and the HTTP layer.

Key Components:

  - Recommendation: one nearest-neighbour result (identifier, display text, distance)
  - CategoricalMatch: one question drawn by the categorical filter
  - APIResponse: standard response envelope with Metadata and APIError
  - TextQueryRequest, CategoricalQueryRequest: request bodies

Display text in Recommendation and CategoricalMatch is always redacted before
it leaves the query services.
*/
package models
