// Package usecase implements URL submission, redirect resolution and click
// statistics on top of the record store.
package usecase

import (
	"context"
	"time"

	"github.com/vadimbarashkov/url-shortener-demo/internal/entity"
)

type recordStore interface {
	AddRecord(ctx context.Context, rec entity.Record)
	AddClick(ctx context.Context, code string, click entity.ClickEvent) int
	FindActiveRecordByCode(code string) (entity.Record, bool)
	IsExpired(rec entity.Record) bool
	All() []entity.Record
	Now() time.Time
	ClearAll(ctx context.Context)
}

type eventLog interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
}
