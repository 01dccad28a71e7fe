package usecase

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/vadimbarashkov/url-shortener-demo/internal/entity"
)

type RecordStatus string

const (
	StatusActive   RecordStatus = "active"
	StatusExpired  RecordStatus = "expired"
	StatusInactive RecordStatus = "inactive"
)

type SortOrder string

const (
	SortCreated SortOrder = "created"
	SortClicks  SortOrder = "clicks"
)

// SummaryFilter selects and orders records for Summary.
// Zero values select every status and sort by creation time.
type SummaryFilter struct {
	Status RecordStatus
	Sort   SortOrder
}

type RecordSummary struct {
	ShortCode   string       `json:"shortCode"`
	OriginalURL string       `json:"originalUrl"`
	Clicks      int          `json:"clicks"`
	Status      RecordStatus `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	LastClickAt *time.Time   `json:"lastClickAt,omitempty"`
}

type Totals struct {
	Records int `json:"records"`
	Active  int `json:"active"`
	Expired int `json:"expired"`
	Clicks  int `json:"clicks"`
}

type Summary struct {
	Totals  Totals          `json:"totals"`
	Records []RecordSummary `json:"records"`
}

type StatsUseCase struct {
	store recordStore
	log   eventLog
}

func NewStatsUseCase(store recordStore, log eventLog) *StatsUseCase {
	return &StatsUseCase{
		store: store,
		log:   log,
	}
}

func (uc *StatsUseCase) statusOf(rec entity.Record) RecordStatus {
	switch {
	case !rec.IsActive:
		return StatusInactive
	case uc.store.IsExpired(rec):
		return StatusExpired
	default:
		return StatusActive
	}
}

// Summary aggregates the click history of every record. Totals always cover
// the whole collection; the filter only applies to Records.
func (uc *StatsUseCase) Summary(filter SummaryFilter) (Summary, error) {
	const op = "usecase.StatsUseCase.Summary"

	switch filter.Status {
	case "", StatusActive, StatusExpired, StatusInactive:
	default:
		return Summary{}, fmt.Errorf("%s: unknown status %q: %w", op, filter.Status, entity.ErrInvalidFilter)
	}

	switch filter.Sort {
	case "", SortCreated, SortClicks:
	default:
		return Summary{}, fmt.Errorf("%s: unknown sort %q: %w", op, filter.Sort, entity.ErrInvalidFilter)
	}

	all := uc.store.All()

	var sum Summary
	sum.Records = make([]RecordSummary, 0, len(all))

	for _, rec := range all {
		status := uc.statusOf(rec)

		sum.Totals.Records++
		sum.Totals.Clicks += rec.ClickCount()
		switch status {
		case StatusActive:
			sum.Totals.Active++
		case StatusExpired:
			sum.Totals.Expired++
		}

		if filter.Status != "" && filter.Status != status {
			continue
		}

		rs := RecordSummary{
			ShortCode:   rec.ShortCode,
			OriginalURL: rec.OriginalURL,
			Clicks:      rec.ClickCount(),
			Status:      status,
			CreatedAt:   rec.CreatedAt,
			ExpiresAt:   rec.ExpiresAt,
		}
		if last, ok := rec.LastClick(); ok {
			rs.LastClickAt = &last
		}

		sum.Records = append(sum.Records, rs)
	}

	byCreated := func(a, b RecordSummary) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	}

	if filter.Sort == SortClicks {
		slices.SortStableFunc(sum.Records, func(a, b RecordSummary) int {
			if a.Clicks != b.Clicks {
				return b.Clicks - a.Clicks
			}
			return byCreated(a, b)
		})
	} else {
		slices.SortStableFunc(sum.Records, byCreated)
	}

	return sum, nil
}

// Clicks returns the click log of the first record with code, newest first.
// Inactive and expired records are included.
func (uc *StatsUseCase) Clicks(code string) ([]entity.ClickEvent, error) {
	const op = "usecase.StatsUseCase.Clicks"

	for _, rec := range uc.store.All() {
		if rec.ShortCode != code {
			continue
		}

		clicks := slices.Clone(rec.Clicks)
		if clicks == nil {
			clicks = []entity.ClickEvent{}
		}
		slices.Reverse(clicks)

		return clicks, nil
	}

	return nil, fmt.Errorf("%s: %s: %w", op, code, entity.ErrURLNotFound)
}

// ClearAll removes every record.
func (uc *StatsUseCase) ClearAll(ctx context.Context) {
	uc.store.ClearAll(ctx)
	uc.log.Info(ctx, "all records cleared on request")
}
