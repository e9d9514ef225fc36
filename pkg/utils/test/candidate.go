package testutils

import (
	"time"

	"github.com/papercomputeco/verity/pkg/fact"
)

// NewRelational creates a relational candidate for user about subject/predicate.
func NewRelational(user, subject, predicate, value, authority string, confidence float64) *fact.Candidate {
	return &fact.Candidate{
		UserID:          user,
		Identity:        fact.RelationalKey{Subject: subject, Predicate: predicate},
		Value:           value,
		Confidence:      confidence,
		SourceAuthority: authority,
	}
}

// NewRisk creates a risk candidate for user with the given title.
func NewRisk(user, title, value, authority string, confidence float64) *fact.Candidate {
	return &fact.Candidate{
		UserID:          user,
		Identity:        fact.RiskKey{Title: title},
		Value:           value,
		Confidence:      confidence,
		SourceAuthority: authority,
	}
}

// NewContext creates a company context candidate for user under key.
func NewContext(user, key, value, authority string, confidence float64) *fact.Candidate {
	return &fact.Candidate{
		UserID:          user,
		Identity:        fact.ContextKey{Name: key},
		Value:           value,
		Confidence:      confidence,
		SourceAuthority: authority,
	}
}

// At returns a copy of c observed at t.
func At(c *fact.Candidate, t time.Time) *fact.Candidate {
	cp := *c
	cp.ValidFrom = &t
	return &cp
}
