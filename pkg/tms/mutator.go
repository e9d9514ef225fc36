package tms

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/verity/pkg/fact"
	"github.com/papercomputeco/verity/pkg/resolve"
	"github.com/papercomputeco/verity/pkg/storage"
)

// mutator applies a decision inside a store transaction.
type mutator struct {
	now func() time.Time
}

func (m *mutator) apply(ctx context.Context, tx storage.Tx, c *fact.Candidate, d resolve.Decision) (*Result, error) {
	now := m.now().UTC()

	switch d.Action {
	case resolve.ActionInsert:
		return m.insert(ctx, tx, c, d, now)
	case resolve.ActionConfirm:
		return m.confirm(ctx, tx, d, now)
	case resolve.ActionUpdate:
		return m.update(ctx, tx, c, d, now)
	case resolve.ActionContested:
		return m.contest(ctx, tx, c, d, now)
	case resolve.ActionSkip:
		return m.skip(d), nil
	default:
		return nil, fmt.Errorf("unhandled action %s", d.Action)
	}
}

func (m *mutator) insert(ctx context.Context, tx storage.Tx, c *fact.Candidate, d resolve.Decision, now time.Time) (*Result, error) {
	f := newFact(c, d, now)
	if err := tx.InsertFact(ctx, f); err != nil {
		return nil, storage.Write("insert fact", err)
	}

	return &Result{
		Action:     resolve.ActionInsert,
		FactID:     f.ID,
		Reason:     d.Reason,
		Message:    fmt.Sprintf("Inserted %s fact %q (%s)", f.Kind, f.IdentityKey, d.Reason),
		Confidence: f.ConfidenceScore,
		Status:     f.VerificationStatus,
	}, nil
}

func (m *mutator) confirm(ctx context.Context, tx storage.Tx, d resolve.Decision, now time.Time) (*Result, error) {
	f := d.Target.Clone()
	f.ConfidenceScore = d.Confidence
	f.VerificationStatus = d.Status
	f.LastVerifiedAt = now

	if err := tx.UpdateFact(ctx, f); err != nil {
		return nil, storage.Write("confirm fact", err)
	}

	return &Result{
		Action:     resolve.ActionConfirm,
		FactID:     f.ID,
		Reason:     d.Reason,
		Message:    fmt.Sprintf("Confirmed fact %s, confidence %.2f → %.2f", f.ID, d.Target.ConfidenceScore, f.ConfidenceScore),
		Confidence: f.ConfidenceScore,
		Status:     f.VerificationStatus,
	}, nil
}

// update deprecates the target and inserts the candidate in its place. Both
// writes share the caller's transaction.
func (m *mutator) update(ctx context.Context, tx storage.Tx, c *fact.Candidate, d resolve.Decision, now time.Time) (*Result, error) {
	old := d.Target.Clone()
	old.ValidTo = &now
	old.VerificationStatus = fact.StatusDeprecated

	if err := tx.UpdateFact(ctx, old); err != nil {
		return nil, storage.Write("deprecate fact", err)
	}

	f := newFact(c, d, now)
	if err := tx.InsertFact(ctx, f); err != nil {
		return nil, &PartialUpdateError{FactID: old.ID, Err: storage.Write("insert fact", err)}
	}

	return &Result{
		Action:       resolve.ActionUpdate,
		FactID:       f.ID,
		SupersededID: old.ID,
		Reason:       d.Reason,
		Message:      fmt.Sprintf("Replaced %q with %q (%s)", old.Value, f.Value, d.Reason),
		Confidence:   f.ConfidenceScore,
		Status:       f.VerificationStatus,
	}, nil
}

// contest records the disagreement and suspends the target. The candidate is
// not stored as a fact; its value survives in the conflict details. A
// disagreement already pending review is not recorded twice.
func (m *mutator) contest(ctx context.Context, tx storage.Tx, c *fact.Candidate, d resolve.Decision, now time.Time) (*Result, error) {
	details := fact.ConflictDetails{}
	if d.Conflict != nil {
		details = *d.Conflict
	}

	open, err := pendingFor(ctx, tx, c.UserID, d.Target, details.NewValue)
	if err != nil {
		return nil, err
	}
	if open != nil {
		f := d.Target
		if f.VerificationStatus != fact.StatusContested {
			f = f.Clone()
			f.VerificationStatus = fact.StatusContested
			if err := tx.UpdateFact(ctx, f); err != nil {
				return nil, storage.Write("contest fact", err)
			}
		}
		return &Result{
			Action:     resolve.ActionContested,
			FactID:     f.ID,
			ConflictID: open.ID,
			Reason:     d.Reason,
			Message:    fmt.Sprintf("Conflict: %q vs %q, already held for review", details.ExistingValue, details.NewValue),
			Confidence: f.ConfidenceScore,
			Status:     f.VerificationStatus,
		}, nil
	}

	rec := &fact.ConflictRecord{
		ID:               uuid.NewString(),
		UserID:           c.UserID,
		FactKind:         d.Target.Kind,
		FactTable:        d.Target.Kind.Table(),
		FactID:           d.Target.ID,
		ConflictType:     fact.ConflictValueMismatch,
		ResolutionStatus: fact.ResolutionPending,
		Details:          details,
		CreatedAt:        now,
	}
	if err := tx.InsertConflict(ctx, rec); err != nil {
		return nil, storage.Write("insert conflict", err)
	}

	f := d.Target.Clone()
	f.VerificationStatus = fact.StatusContested
	if err := tx.UpdateFact(ctx, f); err != nil {
		return nil, storage.Write("contest fact", err)
	}

	return &Result{
		Action:     resolve.ActionContested,
		FactID:     f.ID,
		ConflictID: rec.ID,
		Reason:     d.Reason,
		Message:    fmt.Sprintf("Conflict: %q vs %q, held for review", details.ExistingValue, details.NewValue),
		Confidence: f.ConfidenceScore,
		Status:     f.VerificationStatus,
	}, nil
}

// pendingFor returns the pending conflict against target proposing value,
// if there is one.
func pendingFor(ctx context.Context, tx storage.Tx, userID string, target *fact.Fact, value string) (*fact.ConflictRecord, error) {
	pending, err := tx.PendingConflicts(ctx, userID)
	if err != nil {
		return nil, storage.Read("pending conflicts", err)
	}
	want := fact.NormalizeText(value)
	for _, rec := range pending {
		if rec.FactKind == target.Kind && rec.FactID == target.ID && fact.NormalizeText(rec.Details.NewValue) == want {
			return rec, nil
		}
	}
	return nil, nil
}

func (m *mutator) skip(d resolve.Decision) *Result {
	r := &Result{
		Action:  resolve.ActionSkip,
		Reason:  d.Reason,
		Message: "Skipped: " + d.Reason,
	}
	if d.Target != nil {
		r.FactID = d.Target.ID
		r.Confidence = d.Target.ConfidenceScore
		r.Status = d.Target.VerificationStatus
	}
	return r
}

// newFact builds the row written for a candidate on INSERT and UPDATE.
func newFact(c *fact.Candidate, d resolve.Decision, now time.Time) *fact.Fact {
	validFrom := now
	if c.ValidFrom != nil {
		validFrom = c.ValidFrom.UTC()
	}

	f := &fact.Fact{
		ID:                 uuid.NewString(),
		UserID:             c.UserID,
		Kind:               c.Kind(),
		IdentityKey:        c.Identity.Key(),
		Value:              c.Value,
		ConfidenceScore:    d.Confidence,
		SourceAuthority:    fact.NormalizeAuthority(c.SourceAuthority),
		VerificationStatus: d.Status,
		ValidFrom:          validFrom,
		LastVerifiedAt:     now,
		CreatedAt:          now,
	}

	switch id := c.Identity.(type) {
	case fact.RelationalKey:
		f.Subject, f.Predicate = id.Subject, id.Predicate
	case fact.RiskKey:
		f.Title = id.Title
	case fact.ContextKey:
		f.ContextKey = id.Name
	}

	return f
}
