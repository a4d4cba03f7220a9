// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

// Package filter draws a random question matching demographic and category
// predicates.
//
// Every distinct value of category, ethnicity, gender and state gets a
// roaring bitmap of the ordinals holding it. A query ORs the bitmaps of the
// values each predicate group accepts, ANDs the groups together and picks a
// uniformly random member of the result with Select.
package filter

import (
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/tomtom215/casefinder/internal/encoder"
	"github.com/tomtom215/casefinder/internal/logging"
	"github.com/tomtom215/casefinder/internal/metrics"
	"github.com/tomtom215/casefinder/internal/models"
	"github.com/tomtom215/casefinder/internal/records"
)

// SectionSeparator divides a post into its user-facing lead and the rest.
const SectionSeparator = "\n---\n"

// notHispanic is the ethnicity phrase that must not satisfy a request for
// Hispanic or Latino questions even though it contains both words.
const notHispanic = "Not Hispanic or Latino"

// AgeRange is an inclusive age interval.
type AgeRange struct {
	Min int
	Max int
}

// Predicates selects rows. A nil or empty group is not applied.
type Predicates struct {
	Categories  []string
	Age         *AgeRange
	Ethnicities []string
	Genders     []string
	States      []string
}

// Source provides the rows to index.
type Source interface {
	Records() []records.Record
}

type ageEntry struct {
	age     int
	ordinal uint32
}

// Service answers categorical queries. It is safe for concurrent use.
type Service struct {
	records []records.Record
	all     *roaring.Bitmap

	category  map[string]*roaring.Bitmap
	ethnicity map[string]*roaring.Bitmap
	gender    map[string]*roaring.Bitmap
	state     map[string]*roaring.Bitmap

	// sorted by age, rows without an age are absent
	ages []ageEntry

	randMu sync.Mutex
	rng    *rand.Rand
}

// Option configures a Service.
type Option func(*Service)

// WithRand makes selection use r, for reproducible draws in tests.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rng = r }
}

// New indexes the rows of src.
func New(src Source, opts ...Option) *Service {
	recs := src.Records()
	s := &Service{
		records:   recs,
		all:       roaring.New(),
		category:  make(map[string]*roaring.Bitmap),
		ethnicity: make(map[string]*roaring.Bitmap),
		gender:    make(map[string]*roaring.Bitmap),
		state:     make(map[string]*roaring.Bitmap),
	}
	for _, opt := range opts {
		opt(s)
	}

	for i, r := range recs {
		ord := uint32(i)
		s.all.Add(ord)
		addPosting(s.category, r.Category, ord)
		addPosting(s.ethnicity, r.Ethnicity, ord)
		addPosting(s.gender, r.Gender, ord)
		addPosting(s.state, r.State, ord)
		if r.HasAge {
			s.ages = append(s.ages, ageEntry{age: r.Age, ordinal: ord})
		}
	}
	sort.Slice(s.ages, func(i, j int) bool {
		if s.ages[i].age != s.ages[j].age {
			return s.ages[i].age < s.ages[j].age
		}
		return s.ages[i].ordinal < s.ages[j].ordinal
	})
	for _, m := range []map[string]*roaring.Bitmap{s.category, s.ethnicity, s.gender, s.state} {
		for _, bm := range m {
			bm.RunOptimize()
		}
	}

	logging.Debug().
		Int("rows", len(recs)).
		Int("categories", len(s.category)).
		Int("ethnicities", len(s.ethnicity)).
		Int("states", len(s.state)).
		Msg("Categorical filter indexed")
	return s
}

func addPosting(m map[string]*roaring.Bitmap, value string, ord uint32) {
	bm, ok := m[value]
	if !ok {
		bm = roaring.New()
		m[value] = bm
	}
	bm.Add(ord)
}

// Matching returns the ordinals satisfying every supplied predicate group.
func (s *Service) Matching(p Predicates) *roaring.Bitmap {
	result := s.all.Clone()

	if len(p.Categories) > 0 {
		result.And(unionContaining(s.category, p.Categories))
	}
	if p.Age != nil {
		result.And(s.ageRange(*p.Age))
	}
	if len(p.Ethnicities) > 0 {
		eth := unionContaining(s.ethnicity, p.Ethnicities)
		if wantsHispanic(p.Ethnicities) {
			eth.AndNot(unionContaining(s.ethnicity, []string{notHispanic}))
		}
		result.And(eth)
	}
	if len(p.Genders) > 0 {
		result.And(unionContaining(s.gender, p.Genders))
	}
	if len(p.States) > 0 {
		result.And(unionEqual(s.state, p.States))
	}
	return result
}

// Query draws one row uniformly at random from those matching p. The second
// result is false when nothing matches.
func (s *Service) Query(p Predicates) (models.CategoricalMatch, bool) {
	matches := s.Matching(p)
	card := matches.GetCardinality()
	if card == 0 {
		metrics.RecordCategoricalQuery(false)
		return models.CategoricalMatch{}, false
	}

	ord, err := matches.Select(uint32(s.intN(int(card))))
	if err != nil {
		// unreachable for a position below the cardinality
		logging.Error().Err(err).Uint64("cardinality", card).Msg("Bitmap select failed")
		metrics.RecordCategoricalQuery(false)
		return models.CategoricalMatch{}, false
	}

	rec := s.records[ord]
	metrics.RecordCategoricalQuery(true)
	return models.CategoricalMatch{
		ID:   rec.ID,
		Text: encoder.Redact(LeadSection(rec.Text)),
	}, true
}

func (s *Service) intN(n int) int {
	if s.rng == nil {
		return rand.IntN(n)
	}
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.rng.IntN(n)
}

func (s *Service) ageRange(r AgeRange) *roaring.Bitmap {
	bm := roaring.New()
	i := sort.Search(len(s.ages), func(i int) bool { return s.ages[i].age >= r.Min })
	for ; i < len(s.ages) && s.ages[i].age <= r.Max; i++ {
		bm.Add(s.ages[i].ordinal)
	}
	return bm
}

// unionContaining ORs the postings of every value containing any of wanted.
func unionContaining(m map[string]*roaring.Bitmap, wanted []string) *roaring.Bitmap {
	out := roaring.New()
	for value, bm := range m {
		for _, w := range wanted {
			if strings.Contains(value, w) {
				out.Or(bm)
				break
			}
		}
	}
	return out
}

func unionEqual(m map[string]*roaring.Bitmap, wanted []string) *roaring.Bitmap {
	out := roaring.New()
	for _, w := range wanted {
		if bm, ok := m[w]; ok {
			out.Or(bm)
		}
	}
	return out
}

// wantsHispanic reports whether a requested ethnicity asks for Hispanic or
// Latino rows. Requesting the negated phrase itself does not count.
func wantsHispanic(wanted []string) bool {
	for _, w := range wanted {
		if strings.Contains(w, notHispanic) {
			continue
		}
		if strings.Contains(w, "Hispanic") || strings.Contains(w, "Latino") {
			return true
		}
	}
	return false
}

// LeadSection returns text up to the first SectionSeparator.
func LeadSection(text string) string {
	if i := strings.Index(text, SectionSeparator); i >= 0 {
		return text[:i]
	}
	return text
}
