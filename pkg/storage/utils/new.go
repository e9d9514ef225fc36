package storageutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/verity/pkg/logger"
	"github.com/papercomputeco/verity/pkg/storage"
	"github.com/papercomputeco/verity/pkg/storage/inmemory"
	"github.com/papercomputeco/verity/pkg/storage/postgres"
	"github.com/papercomputeco/verity/pkg/storage/sqlite"
)

type NewDriverOpts struct {
	// ProviderType is one of "memory", "sqlite" or "postgres".
	ProviderType string
	SQLitePath   string
	PostgresDSN  string
	Logger       *slog.Logger
}

func NewDriver(ctx context.Context, o *NewDriverOpts) (storage.Driver, error) {
	log := logger.Component(o.Logger, "storage")

	switch o.ProviderType {
	case "memory":
		log.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	case "sqlite", "":
		if o.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite storage requires a database path")
		}
		driver, err := sqlite.NewSQLiteDriver(ctx, o.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
		}
		log.Info("using SQLite storage", "path", o.SQLitePath)
		return driver, nil

	case "postgres":
		if o.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage requires a connection string")
		}
		driver, err := postgres.NewDriver(ctx, o.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL storer: %w", err)
		}
		log.Info("using PostgreSQL storage")
		return driver, nil

	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", o.ProviderType)
	}
}
