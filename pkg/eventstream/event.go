package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeFactResolved is emitted after a fact candidate is resolved
	// and any resulting mutation is committed.
	EventTypeFactResolved = "verity.fact.resolved"
)

// ResolutionEvent is a transport-neutral event payload for one resolved
// fact candidate.
type ResolutionEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	UserID      string `json:"user_id"`
	Kind        string `json:"kind"`
	IdentityKey string `json:"identity_key"`
	Action      string `json:"action"`
	Reason      string `json:"reason,omitempty"`

	FactID       string `json:"fact_id,omitempty"`
	SupersededID string `json:"superseded_id,omitempty"`
	ConflictID   string `json:"conflict_id,omitempty"`

	Value           string  `json:"value"`
	Confidence      float64 `json:"confidence"`
	SourceAuthority string  `json:"source_authority"`
}

// NewResolutionEvent stamps a v1 resolution event with a fresh id.
func NewResolutionEvent(now time.Time) *ResolutionEvent {
	return &ResolutionEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeFactResolved,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     now.UTC(),
	}
}

// PartitionKey groups events for one identity so consumers see them in
// order.
func (e *ResolutionEvent) PartitionKey() string {
	return e.UserID + "/" + e.Kind + "/" + e.IdentityKey
}
