// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package index

import (
	"errors"
	"math/rand/v2"
	"sort"
	"testing"
)

func line(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(i), 0}
	}
	return out
}

func TestBuildDimensionMismatch(t *testing.T) {
	t.Parallel()

	_, err := Build([][]float32{{1, 2, 3}, {4, 5, 6}, {7, 8}})
	var dm *DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatalf("Build() error = %v, want *DimensionMismatchError", err)
	}
	if dm.Expected != 3 || dm.Actual != 2 || dm.Ordinal != 2 {
		t.Errorf("got %+v, want Expected=3 Actual=2 Ordinal=2", dm)
	}
}

func TestBuildCopiesInput(t *testing.T) {
	t.Parallel()

	src := [][]float32{{0, 0}, {10, 10}}
	idx, err := Build(src)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	src[0][0] = 100

	got, err := idx.Search([]float32{0, 0}, 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got[0].Ordinal != 0 || got[0].Distance != 0 {
		t.Errorf("mutating the input changed the index: %+v", got)
	}
}

func TestSearchCounts(t *testing.T) {
	t.Parallel()

	idx, err := Build(line(10))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	tests := []struct {
		k    int
		want int
	}{
		{1, 1},
		{3, 3},
		{10, 10},
		{11, 10},
		{1000, 10},
	}
	for _, tt := range tests {
		got, err := idx.Search([]float32{4.2, 0}, tt.k)
		if err != nil {
			t.Fatalf("Search(k=%d) error = %v", tt.k, err)
		}
		if len(got) != tt.want {
			t.Errorf("Search(k=%d) returned %d results, want %d", tt.k, len(got), tt.want)
		}
		for i := 1; i < len(got); i++ {
			if got[i].Distance < got[i-1].Distance {
				t.Errorf("Search(k=%d) not sorted at %d: %+v", tt.k, i, got)
			}
		}
	}
}

func TestSearchInvalidK(t *testing.T) {
	t.Parallel()

	idx, _ := Build(line(3))
	for _, k := range []int{0, -1} {
		if _, err := idx.Search([]float32{0, 0}, k); !errors.Is(err, ErrInvalidK) {
			t.Errorf("Search(k=%d) error = %v, want ErrInvalidK", k, err)
		}
	}
}

func TestSearchQueryDimension(t *testing.T) {
	t.Parallel()

	idx, _ := Build(line(3))
	_, err := idx.Search([]float32{1, 2, 3}, 1)
	var dm *DimensionMismatchError
	if !errors.As(err, &dm) || dm.Ordinal != -1 {
		t.Errorf("Search() error = %v, want query DimensionMismatchError", err)
	}
}

func TestSearchTiesByOrdinal(t *testing.T) {
	t.Parallel()

	// Rows 1, 2 and 4 are all at distance 1 from the origin.
	idx, _ := Build([][]float32{{5, 5}, {1, 0}, {0, 1}, {3, 3}, {-1, 0}})
	got, err := idx.Search([]float32{0, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got[0].Ordinal != 1 || got[1].Ordinal != 2 {
		t.Errorf("ties resolved as %+v, want ordinals 1 then 2", got)
	}

	all, _ := idx.Search([]float32{0, 0}, 5)
	want := []int{1, 2, 4, 3, 0}
	for i, n := range all {
		if n.Ordinal != want[i] {
			t.Fatalf("full ordering = %+v, want ordinals %v", all, want)
		}
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	t.Parallel()

	idx, err := Build(nil)
	if err != nil {
		t.Fatalf("Build(nil) error = %v", err)
	}
	got, err := idx.Search([]float32{1}, 3)
	if err != nil || len(got) != 0 {
		t.Errorf("Search() on empty index = %v, %v; want empty, nil", got, err)
	}
}

// TestSearchMatchesFullSort checks the heap selection against a plain sort
// of every distance.
func TestSearchMatchesFullSort(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(1, 2))
	vectors := make([][]float32, 200)
	for i := range vectors {
		vectors[i] = []float32{float32(r.IntN(5)), float32(r.IntN(5)), float32(r.IntN(5))}
	}
	idx, _ := Build(vectors)
	query := []float32{2, 2, 2}

	expected := make([]Neighbor, len(vectors))
	for i, v := range vectors {
		expected[i] = Neighbor{Ordinal: i, Distance: SquaredL2(query, v)}
	}
	sort.Slice(expected, func(i, j int) bool { return closer(expected[i], expected[j]) })

	for _, k := range []int{1, 7, 50, 200} {
		got, _ := idx.Search(query, k)
		for i := range got {
			if got[i] != expected[i] {
				t.Fatalf("k=%d position %d = %+v, want %+v", k, i, got[i], expected[i])
			}
		}
	}
}

func TestSquaredL2(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b []float32
		want float32
	}{
		{[]float32{0, 0}, []float32{3, 4}, 25},
		{[]float32{1, 2, 3, 4, 5}, []float32{1, 2, 3, 4, 5}, 0},
		{[]float32{1, 1, 1, 1, 1}, []float32{0, 0, 0, 0, 0}, 5},
	}
	for _, tt := range tests {
		if got := SquaredL2(tt.a, tt.b); got != tt.want {
			t.Errorf("SquaredL2(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func BenchmarkSearch(b *testing.B) {
	r := rand.New(rand.NewPCG(3, 4))
	vectors := make([][]float32, 10000)
	for i := range vectors {
		v := make([]float32, 384)
		for j := range v {
			v[j] = r.Float32()
		}
		vectors[i] = v
	}
	idx, _ := Build(vectors)
	query := vectors[0]

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(query, 6)
	}
}
