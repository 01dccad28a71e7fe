package records

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/url-shortener-demo/internal/adapter/storage/memory"
	"github.com/vadimbarashkov/url-shortener-demo/internal/entity"
	"github.com/vadimbarashkov/url-shortener-demo/internal/eventlog"
	"github.com/vadimbarashkov/url-shortener-demo/internal/identifier"
)

var baseTime = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func newRecord(code string, createdAt time.Time, minutes int) entity.Record {
	return entity.Record{
		ID:              identifier.NewID(),
		OriginalURL:     "https://example.com/" + code,
		ShortCode:       code,
		CreatedAt:       createdAt,
		ExpiresAt:       entity.ExpiryFor(createdAt, minutes),
		ValidityMinutes: minutes,
		Clicks:          []entity.ClickEvent{},
		IsActive:        true,
	}
}

func newClick(at time.Time) entity.ClickEvent {
	return entity.ClickEvent{
		ID:        identifier.NewID(),
		Timestamp: at,
		UserAgent: "Mozilla/5.0",
		Referrer:  "https://referrer.example",
		IP:        identifier.SimulatedIP(),
		Location:  identifier.CoarseLocation(),
	}
}

type StoreTestSuite struct {
	suite.Suite
	now     time.Time
	storage *memory.Storage
	events  *eventlog.Log
	store   *Store
}

func (suite *StoreTestSuite) SetupSubTest() {
	suite.now = baseTime
	suite.storage = memory.New()
	suite.events = eventlog.New(memory.New(), nil)
	suite.store = suite.newStore()
}

func (suite *StoreTestSuite) newStore() *Store {
	return New(suite.storage, suite.events.Source("record-store"), WithNow(func() time.Time {
		return suite.now
	}))
}

func (suite *StoreTestSuite) TestLoad() {
	ctx := context.Background()

	suite.Run("nothing persisted", func() {
		suite.store.Load(ctx)

		suite.Empty(suite.store.All())
	})

	suite.Run("corrupt data", func() {
		suite.Require().NoError(suite.storage.Set(ctx, entity.RecordsKey, `[{"id":`))

		suite.store.Load(ctx)

		suite.Empty(suite.store.All())
		suite.NotEmpty(suite.events.Entries(eventlog.Filter{Level: entity.LevelWarn, Source: "record-store"}))
	})

	suite.Run("round trip", func() {
		for n := 0; n <= 5; n++ {
			want := make([]entity.Record, 0, n)
			for i := 0; i < n; i++ {
				rec := newRecord(fmt.Sprintf("code%d", i), baseTime.Add(time.Duration(i)*time.Minute), i+1)
				for j := 0; j < i; j++ {
					rec.Clicks = append(rec.Clicks, newClick(baseTime.Add(time.Duration(j)*time.Second)))
				}
				rec.IsActive = i%2 == 0
				want = append(want, rec)
			}

			suite.store.Save(ctx, want)

			reloaded := suite.newStore()
			reloaded.Load(ctx)

			suite.Equal(want, reloaded.All(), "collection of %d records", n)
		}
	})
}

func (suite *StoreTestSuite) TestAddRecord() {
	ctx := context.Background()

	suite.Run("appends and persists", func() {
		first := newRecord("abc", baseTime, 10)
		second := newRecord("def", baseTime, 10)

		suite.store.AddRecord(ctx, first)
		suite.store.AddRecord(ctx, second)

		reloaded := suite.newStore()
		reloaded.Load(ctx)

		suite.Equal([]entity.Record{first, second}, reloaded.All())
	})

	suite.Run("quota exceeded keeps memory state", func() {
		suite.storage = memory.New(memory.WithCapacity(64))
		suite.store = suite.newStore()

		rec := newRecord("abc", baseTime, 10)
		suite.store.AddRecord(ctx, rec)

		suite.Equal([]entity.Record{rec}, suite.store.All())

		_, err := suite.storage.Get(ctx, entity.RecordsKey)
		suite.ErrorIs(err, entity.ErrKeyNotFound)

		errs := suite.events.Entries(eventlog.Filter{Level: entity.LevelError, Source: "record-store"})
		suite.Require().Len(errs, 1)
		suite.Contains(errs[0].Message, "quota exceeded")
	})
}

func (suite *StoreTestSuite) TestAddClick() {
	ctx := context.Background()

	suite.Run("only active records with the code", func() {
		active := newRecord("abc", baseTime, 10)
		inactive := newRecord("abc", baseTime, 10)
		inactive.IsActive = false
		other := newRecord("xyz", baseTime, 10)

		suite.store.Save(ctx, []entity.Record{inactive, active, other})

		click := newClick(baseTime.Add(time.Minute))
		n := suite.store.AddClick(ctx, "abc", click)

		suite.Equal(1, n)

		all := suite.store.All()
		suite.Empty(all[0].Clicks)
		suite.Equal([]entity.ClickEvent{click}, all[1].Clicks)
		suite.Empty(all[2].Clicks)

		reloaded := suite.newStore()
		reloaded.Load(ctx)
		suite.Equal(all, reloaded.All())
	})

	suite.Run("arrival order", func() {
		suite.store.AddRecord(ctx, newRecord("abc", baseTime, 10))

		first := newClick(baseTime.Add(time.Second))
		second := newClick(baseTime.Add(2 * time.Second))
		suite.store.AddClick(ctx, "abc", first)
		suite.store.AddClick(ctx, "abc", second)

		rec, ok := suite.store.FindActiveRecordByCode("abc")

		suite.True(ok)
		suite.Equal([]entity.ClickEvent{first, second}, rec.Clicks)
	})

	suite.Run("unknown code", func() {
		n := suite.store.AddClick(ctx, "nope", newClick(baseTime))

		suite.Zero(n)
	})
}

func (suite *StoreTestSuite) TestFindActiveRecordByCode() {
	ctx := context.Background()

	suite.Run("ignores inactive and keeps expired", func() {
		inactive := newRecord("abc", baseTime, 1)
		inactive.IsActive = false
		expired := newRecord("abc", baseTime.Add(-time.Hour), 1)

		suite.store.Save(ctx, []entity.Record{inactive, expired})

		rec, ok := suite.store.FindActiveRecordByCode("abc")

		suite.True(ok)
		suite.Equal(expired.ID, rec.ID)
		suite.True(suite.store.IsExpired(rec))
	})

	suite.Run("not found", func() {
		_, ok := suite.store.FindActiveRecordByCode("abc")

		suite.False(ok)
	})

	suite.Run("returned record is a copy", func() {
		suite.store.AddRecord(ctx, newRecord("abc", baseTime, 1))

		rec, _ := suite.store.FindActiveRecordByCode("abc")
		rec.Clicks = append(rec.Clicks, newClick(baseTime))

		again, _ := suite.store.FindActiveRecordByCode("abc")
		suite.Empty(again.Clicks)
	})
}

func (suite *StoreTestSuite) TestIsExpired() {
	suite.Run("one minute boundary", func() {
		rec := newRecord("abc", baseTime, 1)

		suite.now = baseTime.Add(59999 * time.Millisecond)
		suite.False(suite.store.IsExpired(rec))

		suite.now = baseTime.Add(time.Minute)
		suite.False(suite.store.IsExpired(rec))

		suite.now = baseTime.Add(60001 * time.Millisecond)
		suite.True(suite.store.IsExpired(rec))
	})
}

func (suite *StoreTestSuite) TestGetActiveRecords() {
	ctx := context.Background()

	suite.Run("filters inactive and expired", func() {
		live := newRecord("live", baseTime, 10)
		expired := newRecord("old", baseTime.Add(-time.Hour), 10)
		inactive := newRecord("off", baseTime, 10)
		inactive.IsActive = false

		suite.store.Save(ctx, []entity.Record{live, expired, inactive})

		suite.Equal([]entity.Record{live}, suite.store.GetActiveRecords())
	})
}

func (suite *StoreTestSuite) TestClearAll() {
	ctx := context.Background()

	suite.Run("idempotent", func() {
		suite.store.AddRecord(ctx, newRecord("abc", baseTime, 10))

		suite.store.ClearAll(ctx)
		suite.Empty(suite.store.All())

		suite.store.ClearAll(ctx)
		suite.Empty(suite.store.All())

		_, err := suite.storage.Get(ctx, entity.RecordsKey)
		suite.ErrorIs(err, entity.ErrKeyNotFound)
		suite.Empty(suite.events.Entries(eventlog.Filter{Level: entity.LevelError}))

		reloaded := suite.newStore()
		reloaded.Load(ctx)
		suite.Empty(reloaded.All())
	})
}

func TestStore(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
