// Package storage defines the persistence contract for facts and the
// conflict ledger.
package storage

import (
	"context"
	"slices"
	"strings"

	"github.com/papercomputeco/verity/pkg/fact"
)

// FactQuery selects the active facts of one user and kind. Scope filters on
// the identity scope (see fact.Identity); an empty Scope selects every
// active fact of the kind.
type FactQuery struct {
	UserID string
	Kind   fact.Kind
	Scope  string
}

// Reader is the read path shared by drivers and transactions.
type Reader interface {
	// ActiveFacts returns facts with no valid_to matching q, newest
	// valid_from first and then by id.
	ActiveFacts(ctx context.Context, q FactQuery) ([]*fact.Fact, error)

	// PendingConflicts returns the user's unresolved conflict records,
	// oldest first.
	PendingConflicts(ctx context.Context, userID string) ([]*fact.ConflictRecord, error)
}

// Tx is a unit of work against the store. All writes made through a Tx
// commit together or not at all.
type Tx interface {
	Reader

	// Lock takes a store-level exclusive lock on key for the rest of the
	// transaction. Drivers without cross-process locking treat it as a no-op.
	Lock(ctx context.Context, key string) error

	// InsertFact writes a new fact row. f.ID must be set.
	InsertFact(ctx context.Context, f *fact.Fact) error

	// UpdateFact rewrites the mutable columns of an existing fact:
	// confidence, verification status, valid_to and last_verified_at.
	UpdateFact(ctx context.Context, f *fact.Fact) error

	// InsertConflict appends a record to the conflict ledger.
	InsertConflict(ctx context.Context, c *fact.ConflictRecord) error
}

// Driver defines the interface for persisting and retrieving facts in a
// storage backend.
type Driver interface {
	Reader

	// WithTx runs fn inside a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise; fn's error is returned as is.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// GetFact retrieves a fact of kind by id, active or not.
	GetFact(ctx context.Context, kind fact.Kind, id string) (*fact.Fact, error)

	// Close closes the store and releases any resources.
	Close() error
}

// Scope returns the FactQuery scope for a fact.
func Scope(f *fact.Fact) string {
	if id := f.Identity(); id != nil {
		return id.Scope()
	}
	return ""
}

// SortFacts orders facts the way ActiveFacts returns them: newest
// valid_from first, then by id.
func SortFacts(facts []*fact.Fact) {
	slices.SortStableFunc(facts, func(a, b *fact.Fact) int {
		if c := b.ValidFrom.Compare(a.ValidFrom); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
