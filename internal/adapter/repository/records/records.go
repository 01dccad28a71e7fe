// Package records owns the collection of shortened URL records and keeps it
// persisted as one serialized value in a key-value storage.
//
// Every change rewrites the whole collection. Persistence failures are written
// to the event log and never returned: the in-memory collection stays the
// best-effort state.
package records

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/vadimbarashkov/url-shortener-demo/internal/entity"
)

type keyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type eventLog interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
}

type Store struct {
	mu      sync.Mutex
	storage keyValueStorage
	log     eventLog
	nowFunc func() time.Time
	records []entity.Record
}

type Option func(*Store)

func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = now
	}
}

func New(storage keyValueStorage, log eventLog, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		log:     log,
		nowFunc: entity.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Load replaces the in-memory collection with the persisted one.
// A missing or unreadable value leaves the collection empty.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil

	raw, err := s.storage.Get(ctx, entity.RecordsKey)
	if err != nil {
		if errors.Is(err, entity.ErrKeyNotFound) {
			s.log.Debug(ctx, "no persisted records")
			return
		}
		s.log.Warn(ctx, "failed to read persisted records", "err", err)
		return
	}

	var records []entity.Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		s.log.Warn(ctx, "failed to decode persisted records", "err", err)
		return
	}

	s.records = records
	s.log.Info(ctx, "records loaded", "count", len(records))
}

// Save persists records as the full collection, replacing prior state.
func (s *Store) Save(ctx context.Context, records []entity.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = cloneRecords(records)
	s.persist(ctx)
}

// AddRecord appends rec and persists the collection.
func (s *Store) AddRecord(ctx context.Context, rec entity.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, cloneRecord(rec))
	s.persist(ctx)

	s.log.Info(ctx, "record added", "shortCode", rec.ShortCode, "id", rec.ID)
}

// AddClick appends click to every active record with code and persists the
// collection. It returns the number of records updated.
func (s *Store) AddClick(ctx context.Context, code string, click entity.ClickEvent) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for i := range s.records {
		if s.records[i].ShortCode == code && s.records[i].IsActive {
			s.records[i].Clicks = append(s.records[i].Clicks, click)
			n++
		}
	}

	if n == 0 {
		s.log.Warn(ctx, "click for unknown short code dropped", "shortCode", code)
		return 0
	}

	s.persist(ctx)

	return n
}

// FindActiveRecordByCode returns the first active record with code.
// Expiry is not considered.
func (s *Store) FindActiveRecordByCode(code string) (entity.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ShortCode == code && s.records[i].IsActive {
			return cloneRecord(s.records[i]), true
		}
	}

	return entity.Record{}, false
}

// IsExpired reports whether now is strictly after the record's expiry.
func (s *Store) IsExpired(rec entity.Record) bool {
	return s.nowFunc().After(rec.ExpiresAt)
}

// GetActiveRecords returns the records that are active and not expired.
func (s *Store) GetActiveRecords() []entity.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()

	active := make([]entity.Record, 0, len(s.records))
	for _, rec := range s.records {
		if rec.IsActive && !now.After(rec.ExpiresAt) {
			active = append(active, cloneRecord(rec))
		}
	}

	return active
}

// All returns a copy of the whole collection.
func (s *Store) All() []entity.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneRecords(s.records)
}

// Now returns the store's current instant.
func (s *Store) Now() time.Time {
	return s.nowFunc()
}

// ClearAll drops the persisted collection and empties memory.
func (s *Store) ClearAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil

	if err := s.storage.Delete(ctx, entity.RecordsKey); err != nil {
		s.log.Error(ctx, "failed to clear persisted records", "err", err)
		return
	}

	s.log.Info(ctx, "all records cleared")
}

func (s *Store) persist(ctx context.Context) {
	records := s.records
	if records == nil {
		records = []entity.Record{}
	}

	b, err := json.Marshal(records)
	if err != nil {
		s.log.Error(ctx, "failed to encode records", "err", err)
		return
	}

	if err := s.storage.Set(ctx, entity.RecordsKey, string(b)); err != nil {
		if errors.Is(err, entity.ErrQuotaExceeded) {
			s.log.Error(ctx, "storage quota exceeded, records kept in memory only", "err", err, "bytes", len(b))
			return
		}
		s.log.Error(ctx, "failed to persist records", "err", err)
	}
}

func cloneRecord(rec entity.Record) entity.Record {
	if rec.Clicks != nil {
		rec.Clicks = append(make([]entity.ClickEvent, 0, len(rec.Clicks)), rec.Clicks...)
	}
	return rec
}

func cloneRecords(records []entity.Record) []entity.Record {
	if records == nil {
		return nil
	}

	out := make([]entity.Record, len(records))
	for i := range records {
		out[i] = cloneRecord(records[i])
	}

	return out
}
