package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/url-shortener-demo/internal/adapter/storage/memory"
	pgstorage "github.com/vadimbarashkov/url-shortener-demo/internal/adapter/storage/postgres"
	"github.com/vadimbarashkov/url-shortener-demo/internal/adapter/storage/sqlite"
	"github.com/vadimbarashkov/url-shortener-demo/internal/config"
	"github.com/vadimbarashkov/url-shortener-demo/pkg/postgres"
)

// keyValueStorage is the persistence shared by the record store and the event log.
type keyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

func openStorage(ctx context.Context, cfg config.Storage) (keyValueStorage, error) {
	const op = "app.openStorage"

	switch cfg.Type {
	case config.StorageMemory:
		return memory.New(memory.WithCapacity(cfg.Memory.CapacityBytes)), nil

	case config.StorageSQLite:
		s, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return s, nil

	case config.StoragePostgres:
		dsn := cfg.Postgres.DSN()

		db, err := postgres.New(
			ctx,
			dsn,
			postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
			postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
			postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
			postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
		}

		if err := postgres.RunMigrations(pgstorage.Migrations, pgstorage.MigrationsDir, dsn); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
		}

		return newPostgresStorage(db, cfg.Postgres), nil

	default:
		return nil, fmt.Errorf("%s: unknown storage type %q", op, cfg.Type)
	}
}

func newPostgresStorage(db *sqlx.DB, cfg config.Postgres) *pgstorage.Storage {
	return pgstorage.New(db, pgstorage.WithMaxValueBytes(cfg.MaxValueBytes))
}
