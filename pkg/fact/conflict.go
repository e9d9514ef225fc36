package fact

import "time"

// ConflictType classifies a detected disagreement.
type ConflictType string

// ConflictValueMismatch is recorded when two equally authoritative sources
// disagree on the value of one identity.
const ConflictValueMismatch ConflictType = "VALUE_MISMATCH"

// ResolutionStatus tracks a conflict through human review.
type ResolutionStatus string

const (
	ResolutionPending  ResolutionStatus = "PENDING"
	ResolutionResolved ResolutionStatus = "RESOLVED"
)

// ConflictDetails captures both sides of a conflict at detection time. The
// losing candidate is only ever preserved here.
type ConflictDetails struct {
	ExistingValue      string     `json:"existing_value"`
	NewValue           string     `json:"new_value"`
	ExistingAuthority  string     `json:"existing_authority"`
	NewAuthority       string     `json:"new_authority"`
	ExistingConfidence float64    `json:"existing_confidence"`
	NewConfidence      float64    `json:"new_confidence"`
	NewValidFrom       *time.Time `json:"new_valid_from,omitempty"`
}

// ConflictRecord is an entry in the append-only conflict ledger.
type ConflictRecord struct {
	ID               string           `json:"id"`
	UserID           string           `json:"user_id"`
	FactKind         Kind             `json:"fact_kind"`
	FactTable        string           `json:"fact_table"`
	FactID           string           `json:"fact_id"`
	ConflictType     ConflictType     `json:"conflict_type"`
	ResolutionStatus ResolutionStatus `json:"resolution_status"`
	Details          ConflictDetails  `json:"details"`
	CreatedAt        time.Time        `json:"created_at"`
}
