package tms

import (
	"github.com/papercomputeco/verity/pkg/fact"
	"github.com/papercomputeco/verity/pkg/resolve"
)

// Result is the outcome of verifying one candidate.
type Result struct {
	Action resolve.Action `json:"action"`

	// FactID is the fact the action produced or touched: the new fact on
	// INSERT and UPDATE, the existing fact on CONFIRM, CONTESTED and an
	// authority SKIP.
	FactID string `json:"fact_id,omitempty"`

	// SupersededID is the fact deprecated by an UPDATE.
	SupersededID string `json:"superseded_id,omitempty"`

	// ConflictID is the conflict record written by CONTESTED.
	ConflictID string `json:"conflict_id,omitempty"`

	Reason     string      `json:"reason"`
	Message    string      `json:"message"`
	Confidence float64     `json:"confidence,omitempty"`
	Status     fact.Status `json:"status,omitempty"`
}
