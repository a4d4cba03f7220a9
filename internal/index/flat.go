// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

// Package index provides exact k-nearest-neighbour search over the
// precomputed question embeddings.
//
// The index is built once at startup and is read-only afterwards, so Search
// is safe for any number of concurrent callers without locking. Distances are
// squared Euclidean; callers that need the true distance take the square root.
//
// Results are ordered by ascending distance with ties broken by ascending
// ordinal, which makes every search fully deterministic.
package index

import (
	"container/heap"
	"sort"
)

// Neighbor is one search hit.
type Neighbor struct {
	Ordinal  int
	Distance float32
}

// Flat is an exhaustive-scan index. Every search compares the query against
// every stored vector.
type Flat struct {
	dim     int
	vectors [][]float32
}

// Build copies embeddings into a new index. All vectors must share the
// length of the first one. An empty input builds an empty index.
func Build(embeddings [][]float32) (*Flat, error) {
	idx := &Flat{vectors: make([][]float32, len(embeddings))}
	if len(embeddings) == 0 {
		return idx, nil
	}

	idx.dim = len(embeddings[0])
	for i, v := range embeddings {
		if len(v) != idx.dim {
			return nil, &DimensionMismatchError{Expected: idx.dim, Actual: len(v), Ordinal: i}
		}
		idx.vectors[i] = append([]float32(nil), v...)
	}
	return idx, nil
}

// Dimension returns the vector length, or 0 for an empty index.
func (f *Flat) Dimension() int { return f.dim }

// Len returns the number of indexed vectors.
func (f *Flat) Len() int { return len(f.vectors) }

// Search returns the k nearest rows to query. If k exceeds Len, every row is
// returned.
func (f *Flat) Search(query []float32, k int) ([]Neighbor, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	if len(f.vectors) == 0 {
		return []Neighbor{}, nil
	}
	if len(query) != f.dim {
		return nil, &DimensionMismatchError{Expected: f.dim, Actual: len(query), Ordinal: -1}
	}
	if k > len(f.vectors) {
		k = len(f.vectors)
	}

	h := make(worstFirst, 0, k)
	for ord, v := range f.vectors {
		n := Neighbor{Ordinal: ord, Distance: SquaredL2(query, v)}
		if h.Len() < k {
			heap.Push(&h, n)
			continue
		}
		if closer(n, h[0]) {
			h[0] = n
			heap.Fix(&h, 0)
		}
	}

	out := []Neighbor(h)
	sort.Slice(out, func(i, j int) bool { return closer(out[i], out[j]) })
	return out, nil
}

// closer reports whether a ranks before b.
func closer(a, b Neighbor) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Ordinal < b.Ordinal
}

// worstFirst is a max-heap: the root is the neighbour that would be evicted
// first.
type worstFirst []Neighbor

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return closer(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) { *h = append(*h, x.(Neighbor)) }

func (h *worstFirst) Pop() any {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}
