// Package fact defines the knowledge base data model for verity: the facts a
// user's knowledge base holds, the candidates proposed against it, the
// conflict ledger and the source authority table used to arbitrate between
// disagreeing sources.
//
// Facts are never physically deleted. Supersession closes a fact's validity
// interval (ValidTo) and marks it DEPRECATED, so the full history for an
// identity stays queryable.
package fact

import "time"

// Status is the verification status of a stored fact.
type Status string

const (
	// StatusProvisional is assigned to facts inserted below the verified threshold.
	StatusProvisional Status = "PROVISIONAL"

	// StatusVerified is assigned once confidence reaches the verified threshold.
	StatusVerified Status = "VERIFIED"

	// StatusContested marks an active fact whose value is disputed by an
	// equally authoritative source. It stays active pending human review.
	StatusContested Status = "CONTESTED"

	// StatusDeprecated marks a fact superseded by a newer or more
	// authoritative one. Deprecated facts always carry a ValidTo.
	StatusDeprecated Status = "DEPRECATED"
)

// Fact is the atomic unit of knowledge in a user's knowledge base.
type Fact struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Kind   Kind   `json:"kind"`

	// IdentityKey is the normalized key produced by the fact's Identity.
	IdentityKey string `json:"identity_key"`

	// Subject and Predicate are set for relational facts.
	Subject   string `json:"subject,omitempty"`
	Predicate string `json:"predicate,omitempty"`

	// Title is set for risk facts, as originally written.
	Title string `json:"title,omitempty"`

	// ContextKey is set for company context facts.
	ContextKey string `json:"context_key,omitempty"`

	Value              string  `json:"value"`
	ConfidenceScore    float64 `json:"confidence_score"`
	SourceAuthority    string  `json:"source_authority"`
	VerificationStatus Status  `json:"verification_status"`

	// ValidFrom / ValidTo bound the fact's validity. A nil ValidTo means the
	// fact is currently active.
	ValidFrom      time.Time  `json:"valid_from"`
	ValidTo        *time.Time `json:"valid_to,omitempty"`
	LastVerifiedAt time.Time  `json:"last_verified_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Active reports whether the fact's validity interval is still open.
func (f *Fact) Active() bool {
	return f.ValidTo == nil
}

// Identity rebuilds the typed identity the fact was stored under.
func (f *Fact) Identity() Identity {
	switch f.Kind {
	case KindRelational:
		return RelationalKey{Subject: f.Subject, Predicate: f.Predicate}
	case KindRisk:
		return RiskKey{Title: f.Title}
	case KindContext:
		return ContextKey{Name: f.ContextKey}
	default:
		return nil
	}
}

// Clone returns a deep copy of the fact.
func (f *Fact) Clone() *Fact {
	if f == nil {
		return nil
	}

	c := *f
	if f.ValidTo != nil {
		validTo := *f.ValidTo
		c.ValidTo = &validTo
	}
	return &c
}
