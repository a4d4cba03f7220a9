// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package records

// Record is one client-submitted question.
type Record struct {
	ID        string
	Text      string
	Category  string
	Age       int
	HasAge    bool
	Ethnicity string
	Gender    string
	State     string
	County    string
	FIPS      string // zero-padded to five digits; empty when unknown
}

// RegionSummary aggregates the questions asked from one county.
type RegionSummary struct {
	FIPS         string   `json:"fips"`
	State        string   `json:"state"`
	County       string   `json:"county"`
	MedianAge    *float64 `json:"median_age"`
	MedianIncome *float64 `json:"median_income"`
	Usage        int64    `json:"usage"`
}
