// Package postgres provides a key-value storage backed by a single
// kv_entries table.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/url-shortener-demo/internal/entity"
)

// Migrations holds the schema of the kv_entries table.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations holding the sql files.
const MigrationsDir = "migrations"

const (
	diskFullErrCode             = "53100"
	programLimitExceededErrCode = "54000"
)

func isQuotaError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == diskFullErrCode || pgErr.Code == programLimitExceededErrCode
}

type Storage struct {
	db            *sqlx.DB
	maxValueBytes int
}

type Option func(*Storage)

// WithMaxValueBytes rejects values larger than n bytes with entity.ErrQuotaExceeded.
func WithMaxValueBytes(n int) Option {
	return func(s *Storage) {
		s.maxValueBytes = n
	}
}

func New(db *sqlx.DB, opts ...Option) *Storage {
	s := &Storage{db: db}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	const op = "adapter.storage.postgres.Storage.Get"
	const query = `SELECT value FROM kv_entries WHERE key = $1`

	var value string
	if err := s.db.GetContext(ctx, &value, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%s: %q: %w", op, key, entity.ErrKeyNotFound)
		}

		return "", fmt.Errorf("%s: failed to get row from kv_entries table: %w", op, err)
	}

	return value, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	const op = "adapter.storage.postgres.Storage.Set"
	const query = `INSERT INTO kv_entries(key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	if s.maxValueBytes > 0 && len(value) > s.maxValueBytes {
		return fmt.Errorf("%s: %q is %d bytes: %w", op, key, len(value), entity.ErrQuotaExceeded)
	}

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		if isQuotaError(err) {
			return fmt.Errorf("%s: %w: %w", op, entity.ErrQuotaExceeded, err)
		}

		return fmt.Errorf("%s: failed to upsert into kv_entries table: %w", op, err)
	}

	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	const op = "adapter.storage.postgres.Storage.Delete"
	const query = `DELETE FROM kv_entries WHERE key = $1`

	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("%s: failed to delete from kv_entries table: %w", op, err)
	}

	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}
