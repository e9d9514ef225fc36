// Package entdriver implements storage.Driver on top of ent's SQL dialect
// driver and query builder. It is database-agnostic and is embedded by the
// sqlite and postgres drivers.
package entdriver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/verity/pkg/fact"
	"github.com/papercomputeco/verity/pkg/storage"
	"github.com/papercomputeco/verity/pkg/storage/ent/schema"
)

// Locker takes a transaction scoped lock on key.
type Locker func(ctx context.Context, tx dialect.ExecQuerier, key string) error

// Option configures an EntDriver.
type Option func(*EntDriver)

// WithLocker sets the store-level lock used by Tx.Lock.
func WithLocker(l Locker) Option {
	return func(ed *EntDriver) {
		ed.locker = l
	}
}

// EntDriver provides storage operations using an ent SQL driver.
type EntDriver struct {
	Driver *entsql.Driver

	locker Locker
}

// New wraps drv and migrates the schema.
func New(ctx context.Context, drv *entsql.Driver, opts ...Option) (*EntDriver, error) {
	ed := &EntDriver{Driver: drv}
	for _, opt := range opts {
		opt(ed)
	}

	// Run the append-only migration to create/update the schema
	if err := schema.Migrate(ctx, drv); err != nil {
		return nil, err
	}
	return ed, nil
}

func (ed *EntDriver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(ed.Driver.Dialect())
}

// ActiveFacts implements storage.Reader.
func (ed *EntDriver) ActiveFacts(ctx context.Context, q storage.FactQuery) ([]*fact.Fact, error) {
	return ed.activeFacts(ctx, ed.Driver, q)
}

func (ed *EntDriver) activeFacts(ctx context.Context, conn dialect.ExecQuerier, q storage.FactQuery) ([]*fact.Fact, error) {
	if !q.Kind.Valid() {
		return nil, storage.Read("active facts", fmt.Errorf("%w: %d", fact.ErrUnknownKind, int(q.Kind)))
	}

	preds := []*entsql.Predicate{
		entsql.EQ(schema.ColumnUserID, q.UserID),
		entsql.IsNull(schema.ColumnValidTo),
	}
	if q.Scope != "" {
		preds = append(preds, entsql.EQ(schema.ColumnScope, q.Scope))
	}

	b := ed.builder()
	query, args := b.Select(schema.FactColumns(q.Kind)...).
		From(b.Table(q.Kind.Table())).
		Where(entsql.And(preds...)).
		OrderBy(entsql.Desc(schema.ColumnValidFrom), entsql.Asc(schema.ColumnID)).
		Query()

	facts, err := queryFacts(ctx, conn, q.Kind, query, args)
	if err != nil {
		return nil, storage.Read("active facts", err)
	}
	return facts, nil
}

// GetFact implements storage.Driver.
func (ed *EntDriver) GetFact(ctx context.Context, kind fact.Kind, id string) (*fact.Fact, error) {
	if !kind.Valid() {
		return nil, storage.Read("get fact", fmt.Errorf("%w: %d", fact.ErrUnknownKind, int(kind)))
	}

	b := ed.builder()
	query, args := b.Select(schema.FactColumns(kind)...).
		From(b.Table(kind.Table())).
		Where(entsql.EQ(schema.ColumnID, id)).
		Query()

	facts, err := queryFacts(ctx, ed.Driver, kind, query, args)
	if err != nil {
		return nil, storage.Read("get fact", err)
	}
	if len(facts) == 0 {
		return nil, storage.NotFoundError{ID: id}
	}
	return facts[0], nil
}

// PendingConflicts implements storage.Reader.
func (ed *EntDriver) PendingConflicts(ctx context.Context, userID string) ([]*fact.ConflictRecord, error) {
	return ed.pendingConflicts(ctx, ed.Driver, userID)
}

func (ed *EntDriver) pendingConflicts(ctx context.Context, conn dialect.ExecQuerier, userID string) ([]*fact.ConflictRecord, error) {
	b := ed.builder()
	query, args := b.Select(
		schema.ColumnID,
		schema.ColumnUserID,
		schema.ColumnFactKind,
		schema.ColumnFactTable,
		schema.ColumnFactID,
		schema.ColumnConflictType,
		schema.ColumnResolutionStatus,
		schema.ColumnDetails,
		schema.ColumnCreatedAt,
	).
		From(b.Table(schema.ConflictsTable)).
		Where(entsql.And(
			entsql.EQ(schema.ColumnUserID, userID),
			entsql.EQ(schema.ColumnResolutionStatus, string(fact.ResolutionPending)),
		)).
		OrderBy(entsql.Asc(schema.ColumnCreatedAt), entsql.Asc(schema.ColumnID)).
		Query()

	var rows entsql.Rows
	if err := conn.Query(ctx, query, args, &rows); err != nil {
		return nil, storage.Read("pending conflicts", err)
	}
	defer rows.Close()

	var out []*fact.ConflictRecord
	for rows.Next() {
		var (
			c       fact.ConflictRecord
			kind    string
			details []byte
		)
		if err := rows.Scan(
			&c.ID,
			&c.UserID,
			&kind,
			&c.FactTable,
			&c.FactID,
			&c.ConflictType,
			&c.ResolutionStatus,
			&details,
			&c.CreatedAt,
		); err != nil {
			return nil, storage.Read("pending conflicts", fmt.Errorf("failed to scan conflict: %w", err))
		}
		k, err := fact.ParseKind(kind)
		if err != nil {
			return nil, storage.Read("pending conflicts", err)
		}
		c.FactKind = k
		if err := json.Unmarshal(details, &c.Details); err != nil {
			return nil, storage.Read("pending conflicts", fmt.Errorf("failed to unmarshal conflict details: %w", err))
		}
		c.CreatedAt = c.CreatedAt.UTC()
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Read("pending conflicts", err)
	}
	return out, nil
}

// WithTx implements storage.Driver.
func (ed *EntDriver) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	dtx, err := ed.Driver.Tx(ctx)
	if err != nil {
		return storage.Write("begin", err)
	}

	if err := fn(ctx, &entTx{driver: ed, tx: dtx}); err != nil {
		if rerr := dtx.Rollback(); rerr != nil {
			return errors.Join(err, storage.Write("rollback", rerr))
		}
		return err
	}

	if err := dtx.Commit(); err != nil {
		return storage.Write("commit", err)
	}
	return nil
}

// Close closes the underlying database.
func (ed *EntDriver) Close() error {
	return ed.Driver.Close()
}

// entTx implements storage.Tx on a dialect transaction.
type entTx struct {
	driver *EntDriver
	tx     dialect.Tx
}

func (t *entTx) Lock(ctx context.Context, key string) error {
	if t.driver.locker == nil {
		return nil
	}
	if err := t.driver.locker(ctx, t.tx, key); err != nil {
		return storage.Write("lock", err)
	}
	return nil
}

func (t *entTx) ActiveFacts(ctx context.Context, q storage.FactQuery) ([]*fact.Fact, error) {
	return t.driver.activeFacts(ctx, t.tx, q)
}

func (t *entTx) PendingConflicts(ctx context.Context, userID string) ([]*fact.ConflictRecord, error) {
	return t.driver.pendingConflicts(ctx, t.tx, userID)
}

func (t *entTx) InsertFact(ctx context.Context, f *fact.Fact) error {
	if !f.Kind.Valid() {
		return storage.Write("insert fact", fmt.Errorf("%w: %d", fact.ErrUnknownKind, int(f.Kind)))
	}

	values := []any{
		f.ID,
		f.UserID,
		f.IdentityKey,
		storage.Scope(f),
		f.Value,
		f.ConfidenceScore,
		f.SourceAuthority,
		string(f.VerificationStatus),
		f.ValidFrom.UTC(),
		nullTime(f.ValidTo),
		f.LastVerifiedAt.UTC(),
		f.CreatedAt.UTC(),
	}
	switch f.Kind {
	case fact.KindRelational:
		values = append(values, f.Subject, f.Predicate)
	case fact.KindRisk:
		values = append(values, f.Title)
	case fact.KindContext:
		values = append(values, f.ContextKey)
	}

	query, args := t.driver.builder().Insert(f.Kind.Table()).
		Columns(schema.FactColumns(f.Kind)...).
		Values(values...).
		Query()

	if err := t.tx.Exec(ctx, query, args, nil); err != nil {
		return storage.Write("insert fact", err)
	}
	return nil
}

func (t *entTx) UpdateFact(ctx context.Context, f *fact.Fact) error {
	if !f.Kind.Valid() {
		return storage.Write("update fact", fmt.Errorf("%w: %d", fact.ErrUnknownKind, int(f.Kind)))
	}

	u := t.driver.builder().Update(f.Kind.Table()).
		Set(schema.ColumnConfidenceScore, f.ConfidenceScore).
		Set(schema.ColumnVerificationStatus, string(f.VerificationStatus)).
		Set(schema.ColumnLastVerifiedAt, f.LastVerifiedAt.UTC())
	if f.ValidTo != nil {
		u.Set(schema.ColumnValidTo, f.ValidTo.UTC())
	} else {
		u.SetNull(schema.ColumnValidTo)
	}
	query, args := u.Where(entsql.EQ(schema.ColumnID, f.ID)).Query()

	var res sql.Result
	if err := t.tx.Exec(ctx, query, args, &res); err != nil {
		return storage.Write("update fact", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.Write("update fact", err)
	}
	if n == 0 {
		return storage.Write("update fact", storage.NotFoundError{ID: f.ID})
	}
	return nil
}

func (t *entTx) InsertConflict(ctx context.Context, c *fact.ConflictRecord) error {
	details, err := json.Marshal(c.Details)
	if err != nil {
		return storage.Write("insert conflict", fmt.Errorf("failed to marshal conflict details: %w", err))
	}

	query, args := t.driver.builder().Insert(schema.ConflictsTable).
		Columns(
			schema.ColumnID,
			schema.ColumnUserID,
			schema.ColumnFactKind,
			schema.ColumnFactTable,
			schema.ColumnFactID,
			schema.ColumnConflictType,
			schema.ColumnResolutionStatus,
			schema.ColumnDetails,
			schema.ColumnCreatedAt,
		).
		Values(
			c.ID,
			c.UserID,
			c.FactKind.String(),
			c.FactTable,
			c.FactID,
			string(c.ConflictType),
			string(c.ResolutionStatus),
			string(details),
			c.CreatedAt.UTC(),
		).
		Query()

	if err := t.tx.Exec(ctx, query, args, nil); err != nil {
		return storage.Write("insert conflict", err)
	}
	return nil
}

func queryFacts(ctx context.Context, conn dialect.ExecQuerier, kind fact.Kind, query string, args []any) ([]*fact.Fact, error) {
	var rows entsql.Rows
	if err := conn.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	facts := make([]*fact.Fact, 0)
	for rows.Next() {
		f, err := scanFact(&rows, kind)
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

func scanFact(rows *entsql.Rows, kind fact.Kind) (*fact.Fact, error) {
	var (
		f       = &fact.Fact{Kind: kind}
		scope   string
		status  string
		validTo sql.NullTime
	)

	dest := []any{
		&f.ID,
		&f.UserID,
		&f.IdentityKey,
		&scope,
		&f.Value,
		&f.ConfidenceScore,
		&f.SourceAuthority,
		&status,
		&f.ValidFrom,
		&validTo,
		&f.LastVerifiedAt,
		&f.CreatedAt,
	}
	switch kind {
	case fact.KindRelational:
		dest = append(dest, &f.Subject, &f.Predicate)
	case fact.KindRisk:
		dest = append(dest, &f.Title)
	case fact.KindContext:
		dest = append(dest, &f.ContextKey)
	}

	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("failed to scan fact: %w", err)
	}

	f.VerificationStatus = fact.Status(status)
	f.ValidFrom = f.ValidFrom.UTC()
	f.LastVerifiedAt = f.LastVerifiedAt.UTC()
	f.CreatedAt = f.CreatedAt.UTC()
	if validTo.Valid {
		t := validTo.Time.UTC()
		f.ValidTo = &t
	}
	return f, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
