package storageutils

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/relay/pkg/storage"
	"github.com/papercomputeco/relay/pkg/storage/inmemory"
	"github.com/papercomputeco/relay/pkg/storage/postgres"
	"github.com/papercomputeco/relay/pkg/storage/sqlite"
)

// ErrNoPostgresDSN is returned when the postgres provider has no DSN.
var ErrNoPostgresDSN = errors.New("postgres storage requires a DSN")

type NewDriverOpts struct {
	// ProviderType is one of inmemory, sqlite or postgres.
	ProviderType string

	// SQLitePath is the database file for the sqlite provider.
	SQLitePath string

	// PostgresDSN is the connection string for the postgres provider.
	PostgresDSN string

	Logger *slog.Logger
}

func NewDriver(ctx context.Context, o *NewDriverOpts) (storage.Driver, error) {
	log := o.Logger
	if log == nil {
		log = slog.Default()
	}

	switch o.ProviderType {
	case "", "inmemory":
		log.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	case "sqlite":
		driver, err := sqlite.NewDriver(ctx, o.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite driver: %w", err)
		}
		log.Info("using SQLite storage", "path", o.SQLitePath)
		return driver, nil

	case "postgres":
		if o.PostgresDSN == "" {
			return nil, ErrNoPostgresDSN
		}
		driver, err := postgres.NewDriver(ctx, o.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL driver: %w", err)
		}
		log.Info("using PostgreSQL storage")
		return driver, nil

	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", o.ProviderType)
	}
}
