package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/url-shortener-demo/internal/adapter/repository/records"
	"github.com/vadimbarashkov/url-shortener-demo/internal/adapter/storage/memory"
	"github.com/vadimbarashkov/url-shortener-demo/internal/entity"
	"github.com/vadimbarashkov/url-shortener-demo/internal/eventlog"
	"github.com/vadimbarashkov/url-shortener-demo/internal/identifier"
)

var baseTime = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

// storeSuite wires a record store over in-memory storage with a fixed clock.
type storeSuite struct {
	suite.Suite
	now    time.Time
	events *eventlog.Log
	store  *records.Store
}

func (s *storeSuite) SetupSubTest() {
	s.now = baseTime
	s.events = eventlog.New(memory.New(), nil)
	s.store = records.New(memory.New(), s.events.Source("record-store"), records.WithNow(func() time.Time {
		return s.now
	}))
}

func (s *storeSuite) addRecord(code string, createdAt time.Time, minutes int, clicks ...time.Time) entity.Record {
	rec := entity.Record{
		ID:              identifier.NewID(),
		OriginalURL:     "https://example.com/" + code,
		ShortCode:       code,
		CreatedAt:       createdAt,
		ExpiresAt:       entity.ExpiryFor(createdAt, minutes),
		ValidityMinutes: minutes,
		Clicks:          []entity.ClickEvent{},
		IsActive:        true,
	}
	for _, at := range clicks {
		rec.Clicks = append(rec.Clicks, entity.ClickEvent{ID: identifier.NewID(), Timestamp: at})
	}

	s.store.AddRecord(context.Background(), rec)

	return rec
}

type fakeTicker struct {
	c       chan time.Time
	stopped atomic.Bool
}

func newFakeTicker() *fakeTicker {
	return &fakeTicker{c: make(chan time.Time)}
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }
func (t *fakeTicker) Stop()               { t.stopped.Store(true) }

func (t *fakeTicker) tick() {
	t.c <- time.Now()
}
