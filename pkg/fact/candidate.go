package fact

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidCandidate is returned when a candidate is missing required
// fields or carries an out of range confidence.
var ErrInvalidCandidate = errors.New("invalid fact candidate")

// Candidate is a proposed observation awaiting reconciliation against the
// user's existing knowledge.
type Candidate struct {
	UserID          string
	Identity        Identity
	Value           string
	Confidence      float64
	SourceAuthority string

	// ValidFrom is when the observation became true. Nil means "now".
	ValidFrom *time.Time
}

// Kind returns the fact family of the candidate's identity.
func (c *Candidate) Kind() Kind {
	if c.Identity == nil {
		return 0
	}
	return c.Identity.Kind()
}

// Validate checks the candidate before it reaches the store.
func (c *Candidate) Validate() error {
	switch {
	case c == nil:
		return fmt.Errorf("%w: nil candidate", ErrInvalidCandidate)
	case strings.TrimSpace(c.UserID) == "":
		return fmt.Errorf("%w: user id is required", ErrInvalidCandidate)
	case c.Identity == nil:
		return fmt.Errorf("%w: identity is required", ErrInvalidCandidate)
	case c.Identity.Empty():
		return fmt.Errorf("%w: %s identity has empty fields", ErrInvalidCandidate, c.Identity.Kind())
	case strings.TrimSpace(c.Value) == "":
		return fmt.Errorf("%w: value is required", ErrInvalidCandidate)
	case c.Confidence < 0 || c.Confidence > 1:
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidCandidate, c.Confidence)
	}
	return nil
}

// Data is the loose shape extraction components emit for a fact. Which
// identity fields are read depends on the kind it is paired with.
type Data struct {
	UserID          string     `json:"user_id"`
	Subject         string     `json:"subject,omitempty"`
	Predicate       string     `json:"predicate,omitempty"`
	Title           string     `json:"title,omitempty"`
	Key             string     `json:"key,omitempty"`
	Value           string     `json:"value"`
	Confidence      float64    `json:"confidence_score"`
	SourceAuthority string     `json:"source_authority"`
	ValidFrom       *Timestamp `json:"valid_from,omitempty"`
}

// Candidate builds a typed candidate for kind k.
func (d Data) Candidate(k Kind) (*Candidate, error) {
	var id Identity
	switch k {
	case KindRelational:
		id = RelationalKey{Subject: d.Subject, Predicate: d.Predicate}
	case KindRisk:
		id = RiskKey{Title: d.Title}
	case KindContext:
		id = ContextKey{Name: d.Key}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}

	var validFrom *time.Time
	if d.ValidFrom != nil {
		t := d.ValidFrom.Time
		validFrom = &t
	}

	return &Candidate{
		UserID:          d.UserID,
		Identity:        id,
		Value:           d.Value,
		Confidence:      d.Confidence,
		SourceAuthority: d.SourceAuthority,
		ValidFrom:       validFrom,
	}, nil
}
