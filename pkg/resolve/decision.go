package resolve

import (
	"fmt"

	"github.com/papercomputeco/verity/pkg/fact"
)

// Action is what the mutator does with a candidate.
type Action int

const (
	// ActionSkip leaves the store untouched.
	ActionSkip Action = iota

	// ActionInsert writes the candidate as a new active fact.
	ActionInsert

	// ActionConfirm boosts the confidence of an identical active fact.
	ActionConfirm

	// ActionUpdate deprecates the target and inserts the candidate.
	ActionUpdate

	// ActionContested records a conflict and marks the target contested.
	ActionContested
)

var actionNames = map[Action]string{
	ActionSkip:      "SKIP",
	ActionInsert:    "INSERT",
	ActionConfirm:   "CONFIRM",
	ActionUpdate:    "UPDATE",
	ActionContested: "CONTESTED",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Mutates reports whether the action writes to the store.
func (a Action) Mutates() bool {
	return a != ActionSkip
}

// Decision is the resolver's verdict for one candidate along with the values
// the mutator needs to apply it.
type Decision struct {
	Action Action

	// Target is the existing fact the action applies to. It is nil for
	// INSERT and set for every other action, including SKIP on authority.
	Target *fact.Fact

	Reason string

	// Confidence is the confidence to write: the candidate's for INSERT and
	// UPDATE, the boosted value for CONFIRM.
	Confidence float64

	// Status is the verification status to write: for the new fact on
	// INSERT and UPDATE, for the target on CONFIRM and CONTESTED.
	Status fact.Status

	// Conflict is the payload of the conflict record written on CONTESTED.
	Conflict *fact.ConflictDetails
}

// Policy is the per-kind conflict policy.
type Policy struct {
	// TemporalProgression lets a candidate with a later valid_from supersede
	// a conflicting fact before authority is compared.
	TemporalProgression bool
}

// PolicyFor returns the conflict policy for a fact kind. Relational and risk
// facts are temporal-first. Context facts go straight to authority.
func PolicyFor(k fact.Kind) Policy {
	switch k {
	case fact.KindRelational, fact.KindRisk:
		return Policy{TemporalProgression: true}
	case fact.KindContext:
		// TODO: product review of whether context facts should honour
		// temporal progression like relational facts do.
		return Policy{TemporalProgression: false}
	default:
		return Policy{}
	}
}
