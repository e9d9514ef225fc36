// Package postgres provides a PostgreSQL-backed storage driver using ent.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/jackc/pgx/v5/stdlib" // register the pgx PostgreSQL driver as "pgx"

	entdriver "github.com/papercomputeco/verity/pkg/storage/ent/driver"
)

// Driver implements storage.Driver using PostgreSQL via the ent driver.
type Driver struct {
	*entdriver.EntDriver
}

// NewDriver connects to dsn, a key=value connection string or a
// postgres:// URI, and migrates the fact tables.
func NewDriver(ctx context.Context, dsn string) (*Driver, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("reaching postgres: %w", err)
	}

	drv := entsql.OpenDB(dialect.Postgres, db)

	ed, err := entdriver.New(ctx, drv, entdriver.WithLocker(advisoryLock))
	if err != nil {
		drv.Close()
		return nil, err
	}

	return &Driver{EntDriver: ed}, nil
}

// advisoryLock serializes transactions on key across every process sharing
// the database. The lock is released when the transaction ends.
func advisoryLock(ctx context.Context, tx dialect.ExecQuerier, key string) error {
	return tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", []any{key}, nil)
}
