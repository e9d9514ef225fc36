// Package match classifies how a fact candidate relates to the facts already
// stored under its identity: identical, conflicting, or an unrelated facet of
// the same subject.
package match

import (
	"github.com/agext/levenshtein"

	"github.com/papercomputeco/verity/pkg/fact"
)

const (
	// DefaultTitleSimilarity is the minimum normalized edit-distance ratio for
	// two risk titles to be treated as the same risk.
	DefaultTitleSimilarity = 0.8

	// DefaultNumericTolerance is the relative difference under which two
	// numeric values are considered equal.
	DefaultNumericTolerance = 0.05
)

// Relationship is the classification of one existing fact against a candidate.
type Relationship int

const (
	// Unrelated facts share a subject but not a predicate.
	Unrelated Relationship = iota

	// Identical facts carry a compatible value for the same identity.
	Identical

	// ValueConflict facts carry an incompatible value for the same identity.
	ValueConflict
)

func (r Relationship) String() string {
	switch r {
	case Identical:
		return "IDENTICAL"
	case ValueConflict:
		return "VALUE_CONFLICT"
	default:
		return "UNRELATED"
	}
}

// Config tunes the matching heuristics.
type Config struct {
	// TitleSimilarity is the risk title threshold, in (0,1].
	TitleSimilarity float64

	// NumericTolerance is the relative tolerance for numeric values, in [0,1).
	NumericTolerance float64
}

// Match is one existing fact tagged with its relationship to the candidate.
type Match struct {
	Fact         *fact.Fact
	Relationship Relationship

	// Similarity is the title similarity for risk facts and 1 otherwise.
	Similarity float64
}

// Matcher classifies working sets. It holds no state across calls.
type Matcher struct {
	titleSimilarity  float64
	numericTolerance float64
}

// New creates a Matcher, falling back to defaults for unset or out of range
// values.
func New(c Config) *Matcher {
	m := &Matcher{
		titleSimilarity:  c.TitleSimilarity,
		numericTolerance: c.NumericTolerance,
	}

	if m.titleSimilarity <= 0 || m.titleSimilarity > 1 {
		m.titleSimilarity = DefaultTitleSimilarity
	}
	if m.numericTolerance <= 0 || m.numericTolerance >= 1 {
		m.numericTolerance = DefaultNumericTolerance
	}

	return m
}

// TitleThreshold returns the configured risk title threshold.
func (m *Matcher) TitleThreshold() float64 {
	return m.titleSimilarity
}

// Classify tags every fact in existing that shares the candidate's identity.
// Inactive facts, facts of other users or kinds, and risk facts whose title
// falls below the similarity threshold are dropped. Input order is kept.
func (m *Matcher) Classify(c *fact.Candidate, existing []*fact.Fact) []Match {
	matches := make([]Match, 0, len(existing))

	for _, f := range existing {
		if f == nil || !f.Active() || f.UserID != c.UserID || f.Kind != c.Kind() {
			continue
		}

		switch id := c.Identity.(type) {
		case fact.RelationalKey:
			stored := fact.RelationalKey{Subject: f.Subject, Predicate: f.Predicate}
			if stored.Scope() != id.Scope() {
				continue
			}
			if !id.SamePredicate(stored) {
				matches = append(matches, Match{Fact: f, Relationship: Unrelated, Similarity: 1})
				continue
			}
			matches = append(matches, Match{Fact: f, Relationship: m.compare(c.Value, f.Value), Similarity: 1})

		case fact.RiskKey:
			sim := m.TitleSimilarity(id.Title, f.Title)
			if sim < m.titleSimilarity {
				continue
			}
			matches = append(matches, Match{Fact: f, Relationship: m.compare(c.Value, f.Value), Similarity: sim})

		case fact.ContextKey:
			if f.IdentityKey != id.Key() {
				continue
			}
			matches = append(matches, Match{Fact: f, Relationship: m.compare(c.Value, f.Value), Similarity: 1})
		}
	}

	return matches
}

// TitleSimilarity returns the normalized edit-distance ratio of two titles
// after punctuation and case folding: 1 for identical titles, 0 for titles
// with nothing in common.
func (m *Matcher) TitleSimilarity(a, b string) float64 {
	return levenshtein.Similarity(fact.NormalizeTitle(a), fact.NormalizeTitle(b), nil)
}

func (m *Matcher) compare(a, b string) Relationship {
	if m.Compatible(a, b) {
		return Identical
	}
	return ValueConflict
}
