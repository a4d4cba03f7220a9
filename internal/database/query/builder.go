// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package query

import (
	"fmt"
	"strings"
)

// WhereBuilder constructs SQL WHERE clauses with positional parameters.
// Column names are written into the SQL as given and must come from code,
// never from request input. Values are always bound as arguments.
//
//	wb := query.NewWhereBuilder()
//	wb.AddClause("fips IS NOT NULL")
//	wb.AddIn("state", []string{"Texas", "Ohio"})
//	wb.AddContainsAny("category", []string{"Housing"})
//	where, args := wb.BuildWithPrefix()
//	// WHERE fips IS NOT NULL AND state IN (?, ?) AND (contains(category, ?))
type WhereBuilder struct {
	clauses []string
	args    []any
}

// NewWhereBuilder creates an empty builder.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{}
}

// AddClause adds a raw condition and the arguments for its placeholders.
func (wb *WhereBuilder) AddClause(clause string, args ...any) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddIn adds "column IN (?, ...)". An empty values slice adds nothing.
func (wb *WhereBuilder) AddIn(column string, values []string) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		wb.args = append(wb.args, v)
	}
	wb.clauses = append(wb.clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
	return wb
}

// AddContainsAny matches rows whose column contains any of values as a
// substring, using DuckDB's contains(). An empty values slice adds nothing.
func (wb *WhereBuilder) AddContainsAny(column string, values []string) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	terms := make([]string, len(values))
	for i, v := range values {
		terms[i] = fmt.Sprintf("contains(%s, ?)", column)
		wb.args = append(wb.args, v)
	}
	wb.clauses = append(wb.clauses, "("+strings.Join(terms, " OR ")+")")
	return wb
}

// Build joins the clauses with AND. With no clauses it returns "1=1".
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.clauses) == 0 {
		return "1=1", []any{}
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// BuildWithPrefix is Build with a leading "WHERE ".
func (wb *WhereBuilder) BuildWithPrefix() (string, []any) {
	whereClause, args := wb.Build()
	return "WHERE " + whereClause, args
}

// Count returns the number of clauses added.
func (wb *WhereBuilder) Count() int {
	return len(wb.clauses)
}

// IsEmpty reports whether no clauses were added.
func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}
