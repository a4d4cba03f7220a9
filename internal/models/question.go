// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package models

// Recommendation is one result of a similarity query.
type Recommendation struct {
	ID       string  `json:"questionUno"`
	Text     string  `json:"text"`
	Distance float32 `json:"distance"`
}

// CategoricalMatch is the question drawn for a categorical query.
type CategoricalMatch struct {
	ID   string `json:"questionUno"`
	Text string `json:"text"`
}

// Texts returns the display texts of recs in order.
func Texts(recs []Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Text
	}
	return out
}
