// Package inmemory provides a map-backed storage driver for tests and
// ephemeral runs.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/papercomputeco/verity/pkg/fact"
	"github.com/papercomputeco/verity/pkg/storage"
)

// WriteHook is consulted before every transactional write. A non-nil error
// fails the write as if the store had rejected it.
type WriteHook func(op string) error

// Option configures a Driver.
type Option func(*Driver)

// WithWriteHook installs a write hook.
func WithWriteHook(h WriteHook) Option {
	return func(d *Driver) {
		d.hook = h
	}
}

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	// mu guards facts and conflicts. Transactions hold it exclusively for
	// their whole lifetime, which makes them serializable.
	mu sync.RWMutex

	// facts maps fact id to fact, one map per kind
	facts map[fact.Kind]map[string]*fact.Fact

	// conflicts is the append-only conflict ledger
	conflicts []*fact.ConflictRecord

	hook   WriteHook
	closed bool
}

// NewDriver creates a new in-memory driver.
func NewDriver(opts ...Option) *Driver {
	d := &Driver{
		facts: make(map[fact.Kind]map[string]*fact.Fact, len(fact.Kinds())),
	}
	for _, k := range fact.Kinds() {
		d.facts[k] = make(map[string]*fact.Fact)
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetWriteHook replaces the write hook.
func (d *Driver) SetWriteHook(h WriteHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hook = h
}

// ActiveFacts implements storage.Reader.
func (d *Driver) ActiveFacts(_ context.Context, q storage.FactQuery) ([]*fact.Fact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, storage.Read("active facts", errClosed)
	}
	return activeFacts(d.facts[q.Kind], q), nil
}

// GetFact implements storage.Driver.
func (d *Driver) GetFact(_ context.Context, kind fact.Kind, id string) (*fact.Fact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, storage.Read("get fact", errClosed)
	}

	f, ok := d.facts[kind][id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}
	return f.Clone(), nil
}

// PendingConflicts implements storage.Reader.
func (d *Driver) PendingConflicts(_ context.Context, userID string) ([]*fact.ConflictRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, storage.Read("pending conflicts", errClosed)
	}
	return pendingConflicts(userID, d.conflicts), nil
}

// WithTx implements storage.Driver. Writes are staged on the transaction and
// applied to the maps only when fn succeeds.
func (d *Driver) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return storage.Write("begin", errClosed)
	}

	t := &tx{driver: d, staged: make(map[string]*fact.Fact)}
	if err := fn(ctx, t); err != nil {
		return err
	}

	for id, f := range t.staged {
		d.facts[f.Kind][id] = f
	}
	d.conflicts = append(d.conflicts, t.conflicts...)
	return nil
}

// Count returns the number of stored facts of kind, active or not.
func (d *Driver) Count(kind fact.Kind) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.facts[kind])
}

// Close is a no-op beyond rejecting further calls.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

var errClosed = errors.New("in-memory store is closed")

func activeFacts(facts map[string]*fact.Fact, q storage.FactQuery) []*fact.Fact {
	out := make([]*fact.Fact, 0)
	for _, f := range facts {
		if !f.Active() || f.UserID != q.UserID {
			continue
		}
		if q.Scope != "" && storage.Scope(f) != q.Scope {
			continue
		}
		out = append(out, f.Clone())
	}
	storage.SortFacts(out)
	return out
}

func pendingConflicts(userID string, ledgers ...[]*fact.ConflictRecord) []*fact.ConflictRecord {
	var out []*fact.ConflictRecord
	for _, ledger := range ledgers {
		for _, c := range ledger {
			if c.UserID == userID && c.ResolutionStatus == fact.ResolutionPending {
				cp := *c
				out = append(out, &cp)
			}
		}
	}
	return out
}

// tx stages writes on top of the driver state. The driver mutex is held by
// WithTx for the lifetime of a tx.
type tx struct {
	driver    *Driver
	staged    map[string]*fact.Fact
	conflicts []*fact.ConflictRecord
}

func (t *tx) Lock(context.Context, string) error { return nil }

func (t *tx) ActiveFacts(_ context.Context, q storage.FactQuery) ([]*fact.Fact, error) {
	merged := make(map[string]*fact.Fact, len(t.driver.facts[q.Kind])+len(t.staged))
	for id, f := range t.driver.facts[q.Kind] {
		merged[id] = f
	}
	for id, f := range t.staged {
		if f.Kind == q.Kind {
			merged[id] = f
		}
	}
	return activeFacts(merged, q), nil
}

func (t *tx) PendingConflicts(_ context.Context, userID string) ([]*fact.ConflictRecord, error) {
	return pendingConflicts(userID, t.driver.conflicts, t.conflicts), nil
}

func (t *tx) InsertFact(_ context.Context, f *fact.Fact) error {
	if err := t.check("insert fact"); err != nil {
		return err
	}
	if _, ok := t.driver.facts[f.Kind]; !ok {
		return storage.Write("insert fact", fmt.Errorf("%w: %d", fact.ErrUnknownKind, int(f.Kind)))
	}
	if _, ok := t.lookup(f.Kind, f.ID); ok {
		return storage.Write("insert fact", fmt.Errorf("duplicate fact id %s", f.ID))
	}
	t.stage(f)
	return nil
}

func (t *tx) UpdateFact(_ context.Context, f *fact.Fact) error {
	if err := t.check("update fact"); err != nil {
		return err
	}
	current, ok := t.lookup(f.Kind, f.ID)
	if !ok {
		return storage.Write("update fact", storage.NotFoundError{ID: f.ID})
	}

	next := current.Clone()
	next.ConfidenceScore = f.ConfidenceScore
	next.VerificationStatus = f.VerificationStatus
	next.ValidTo = f.Clone().ValidTo
	next.LastVerifiedAt = f.LastVerifiedAt
	t.staged[next.ID] = next
	return nil
}

func (t *tx) InsertConflict(_ context.Context, c *fact.ConflictRecord) error {
	if err := t.check("insert conflict"); err != nil {
		return err
	}
	cp := *c
	t.conflicts = append(t.conflicts, &cp)
	return nil
}

func (t *tx) check(op string) error {
	if t.driver.hook == nil {
		return nil
	}
	return storage.Write(op, t.driver.hook(op))
}

func (t *tx) lookup(kind fact.Kind, id string) (*fact.Fact, bool) {
	if f, ok := t.staged[id]; ok && f.Kind == kind {
		return f, true
	}
	f, ok := t.driver.facts[kind][id]
	return f, ok
}

func (t *tx) stage(f *fact.Fact) {
	t.staged[f.ID] = f.Clone()
}
