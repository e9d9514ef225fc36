// Package resolve applies the authority and temporal policy to a classified
// working set and picks exactly one action for a fact candidate.
package resolve

import (
	"github.com/papercomputeco/verity/pkg/fact"
	"github.com/papercomputeco/verity/pkg/match"
)

// DefaultVerifiedThreshold is the confidence at or above which a fact is
// considered verified.
const DefaultVerifiedThreshold = 0.9

// Confirmation blend: boosted = existingWeight*old + candidateWeight*new.
const (
	existingWeight  = 0.7
	candidateWeight = 0.3
)

// Reasons attached to decisions.
const (
	ReasonNoExisting        = "no existing fact"
	ReasonNewFacet          = "new facet of subject"
	ReasonIdentical         = "identical value"
	ReasonTemporal          = "temporal progression"
	ReasonHigherAuthority   = "higher authority source"
	ReasonExistingAuthority = "existing source more authoritative"
	ReasonEqualAuthority    = "equal authority with conflicting values"
	ReasonUnknownKind       = "unknown fact kind"
)

// Config tunes the resolver.
type Config struct {
	Weights           *fact.Weights
	VerifiedThreshold float64
}

// Resolver maps a candidate and its classified matches to a Decision.
type Resolver struct {
	weights           *fact.Weights
	verifiedThreshold float64
}

// New creates a Resolver. Nil weights use fact.DefaultWeights and an out of
// range threshold uses DefaultVerifiedThreshold.
func New(c Config) *Resolver {
	r := &Resolver{
		weights:           c.Weights,
		verifiedThreshold: c.VerifiedThreshold,
	}
	if r.weights == nil {
		r.weights = fact.DefaultWeights()
	}
	if r.verifiedThreshold <= 0 || r.verifiedThreshold > 1 {
		r.verifiedThreshold = DefaultVerifiedThreshold
	}
	return r
}

// Weights returns the authority table in use.
func (r *Resolver) Weights() *fact.Weights {
	return r.weights
}

// VerifiedThreshold returns the confidence needed for VERIFIED status.
func (r *Resolver) VerifiedThreshold() float64 {
	return r.verifiedThreshold
}

// Resolve evaluates the decision table in order and returns the first
// matching action:
//
//  1. no match: INSERT
//  2. an IDENTICAL match: CONFIRM the first one
//  3. a VALUE_CONFLICT match: temporal progression (where the kind's policy
//     allows it), then authority comparison
//  4. only UNRELATED matches: INSERT as a new facet
func (r *Resolver) Resolve(c *fact.Candidate, matches []match.Match) Decision {
	if len(matches) == 0 {
		return r.insert(c, ReasonNoExisting)
	}

	if m, ok := first(matches, match.Identical); ok {
		return r.confirm(c, m.Fact)
	}

	if m, ok := first(matches, match.ValueConflict); ok {
		return r.conflict(c, m.Fact, PolicyFor(c.Kind()))
	}

	return r.insert(c, ReasonNewFacet)
}

func (r *Resolver) insert(c *fact.Candidate, reason string) Decision {
	return Decision{
		Action:     ActionInsert,
		Reason:     reason,
		Confidence: clamp(c.Confidence),
		Status:     r.InitialStatus(c.Confidence),
	}
}

func (r *Resolver) confirm(c *fact.Candidate, existing *fact.Fact) Decision {
	boosted := BoostConfidence(existing.ConfidenceScore, c.Confidence)

	status := existing.VerificationStatus
	if status == fact.StatusProvisional && boosted >= r.verifiedThreshold {
		status = fact.StatusVerified
	}

	return Decision{
		Action:     ActionConfirm,
		Target:     existing,
		Reason:     ReasonIdentical,
		Confidence: boosted,
		Status:     status,
	}
}

func (r *Resolver) conflict(c *fact.Candidate, existing *fact.Fact, p Policy) Decision {
	if p.TemporalProgression && c.ValidFrom != nil && c.ValidFrom.After(existing.ValidFrom) {
		return r.update(c, existing, ReasonTemporal)
	}

	switch r.weights.Compare(c.SourceAuthority, existing.SourceAuthority) {
	case 1:
		return r.update(c, existing, ReasonHigherAuthority)
	case -1:
		return Decision{
			Action: ActionSkip,
			Target: existing,
			Reason: ReasonExistingAuthority,
		}
	default:
		return Decision{
			Action: ActionContested,
			Target: existing,
			Reason: ReasonEqualAuthority,
			Status: fact.StatusContested,
			Conflict: &fact.ConflictDetails{
				ExistingValue:      existing.Value,
				NewValue:           c.Value,
				ExistingAuthority:  existing.SourceAuthority,
				NewAuthority:       fact.NormalizeAuthority(c.SourceAuthority),
				ExistingConfidence: existing.ConfidenceScore,
				NewConfidence:      c.Confidence,
				NewValidFrom:       c.ValidFrom,
			},
		}
	}
}

func (r *Resolver) update(c *fact.Candidate, existing *fact.Fact, reason string) Decision {
	return Decision{
		Action:     ActionUpdate,
		Target:     existing,
		Reason:     reason,
		Confidence: clamp(c.Confidence),
		Status:     r.InitialStatus(c.Confidence),
	}
}

// InitialStatus is the status of a newly inserted fact with confidence.
func (r *Resolver) InitialStatus(confidence float64) fact.Status {
	if confidence >= r.verifiedThreshold {
		return fact.StatusVerified
	}
	return fact.StatusProvisional
}

// BoostConfidence blends an existing confidence with a confirming one,
// clamped to [0,1].
func BoostConfidence(existing, candidate float64) float64 {
	return clamp(existingWeight*existing + candidateWeight*candidate)
}

func first(matches []match.Match, rel match.Relationship) (match.Match, bool) {
	for _, m := range matches {
		if m.Relationship == rel {
			return m, true
		}
	}
	return match.Match{}, false
}

func clamp(v float64) float64 {
	return min(max(v, 0), 1)
}
