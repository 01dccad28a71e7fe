// Package sqlite provides a file-backed key-value storage on top of gorm and
// the sqlite driver.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vadimbarashkov/url-shortener-demo/internal/entity"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type kvEntry struct {
	Key       string `gorm:"column:entry_key;primaryKey;size:255"`
	Value     string `gorm:"column:entry_value;not null"`
	UpdatedAt time.Time
}

func (kvEntry) TableName() string {
	return "kv_entries"
}

type Storage struct {
	db *gorm.DB
}

// Open connects to the database file at path (":memory:" is accepted) and
// migrates the key-value table.
func Open(path string) (*Storage, error) {
	const op = "adapter.storage.sqlite.Open"

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open database %s: %w", op, path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get connection pool: %w", op, err)
	}
	// One connection keeps ":memory:" databases shared and writes serialized.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%s: failed to migrate database: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	const op = "adapter.storage.sqlite.Storage.Get"

	var e kvEntry
	if err := s.db.WithContext(ctx).Where("entry_key = ?", key).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%s: %q: %w", op, key, entity.ErrKeyNotFound)
		}
		return "", fmt.Errorf("%s: failed to get entry %q: %w", op, key, err)
	}

	return e.Value, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	const op = "adapter.storage.sqlite.Storage.Set"

	e := kvEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"entry_value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("%s: failed to upsert entry %q: %w", op, key, err)
	}

	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	const op = "adapter.storage.sqlite.Storage.Delete"

	if err := s.db.WithContext(ctx).Where("entry_key = ?", key).Delete(&kvEntry{}).Error; err != nil {
		return fmt.Errorf("%s: failed to delete entry %q: %w", op, key, err)
	}

	return nil
}

func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
