// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package models

// TextQueryRequest is the body of POST /api/text. A non-empty QuestionUno
// selects the stored-embedding path and wins over Text.
type TextQueryRequest struct {
	Text        string `json:"text" validate:"max=20000"`
	QuestionUno string `json:"questionUno" validate:"max=256"`
}

// CategoricalQueryRequest is the body of POST /api/categoricalQuery. Empty
// arrays mean the predicate was not supplied. Age, when present, is an
// inclusive [min, max] pair.
type CategoricalQueryRequest struct {
	Categories  []string `json:"categories" validate:"max=64,dive,max=256"`
	Age         []int    `json:"age" validate:"omitempty,len=2,agerange,dive,min=0,max=150"`
	Ethnicities []string `json:"ethnicities" validate:"max=64,dive,max=256"`
	Genders     []string `json:"genders" validate:"max=64,dive,max=256"`
	States      []string `json:"states" validate:"max=64,dive,max=256"`
}

// CategoricalQueryResponse is the flat response of POST /api/categoricalQuery.
type CategoricalQueryResponse struct {
	Success     bool   `json:"success"`
	QuestionUno string `json:"questionUno,omitempty"`
	Text        string `json:"text,omitempty"`
}
