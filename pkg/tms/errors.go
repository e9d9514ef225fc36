package tms

import (
	"errors"
	"fmt"

	"github.com/papercomputeco/verity/pkg/fact"
	"github.com/papercomputeco/verity/pkg/storage"
)

var (
	// ErrUnknownFactKind is returned for a candidate whose kind is not one
	// of the supported fact families. The candidate is never coerced.
	ErrUnknownFactKind = fact.ErrUnknownKind

	// ErrInvalidCandidate is returned for candidates that fail validation.
	ErrInvalidCandidate = fact.ErrInvalidCandidate

	// ErrStoreRead matches every failure on the store's read path.
	ErrStoreRead = storage.ErrRead

	// ErrStoreWrite matches every failure on the store's write path.
	ErrStoreWrite = storage.ErrWrite

	// ErrPartialUpdate matches every PartialUpdateError.
	ErrPartialUpdate = errors.New("partial update")

	// ErrNilDriver is returned by New without a storage driver.
	ErrNilDriver = errors.New("tms: nil storage driver")
)

// PartialUpdateError reports an UPDATE whose deprecation write succeeded
// but whose insert of the replacement fact failed. Callers should retry the
// whole candidate.
type PartialUpdateError struct {
	// FactID is the fact that was being deprecated.
	FactID string

	// RolledBack is true when the deprecation was rolled back with the rest
	// of the transaction, leaving FactID active. When false the store must
	// be repaired before FactID can be trusted.
	RolledBack bool

	Err error
}

func (e *PartialUpdateError) Error() string {
	state := "deprecation rolled back"
	if !e.RolledBack {
		state = "deprecation may be applied"
	}
	return fmt.Sprintf("%s of fact %s (%s): %v", ErrPartialUpdate, e.FactID, state, e.Err)
}

func (e *PartialUpdateError) Unwrap() error { return e.Err }

// Is matches ErrPartialUpdate.
func (e *PartialUpdateError) Is(target error) bool { return target == ErrPartialUpdate }
