package http

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/url-shortener-demo/internal/entity"
	"github.com/vadimbarashkov/url-shortener-demo/internal/eventlog"
	"github.com/vadimbarashkov/url-shortener-demo/internal/usecase"
)

type MockSubmissionUseCase struct {
	mock.Mock
}

func (m *MockSubmissionUseCase) Submit(ctx context.Context, reqs []entity.CreateRequest) ([]entity.Record, error) {
	args := m.Called(ctx, reqs)
	if recs := args.Get(0); recs != nil {
		return recs.([]entity.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockRedirectUseCase struct {
	mock.Mock
}

func (m *MockRedirectUseCase) Resolve(ctx context.Context, code string, requester usecase.Requester, handoff usecase.Handoff) (usecase.RedirectState, error) {
	args := m.Called(ctx, code, requester, handoff)
	return args.Get(0).(usecase.RedirectState), args.Error(1)
}

type MockStatsUseCase struct {
	mock.Mock
}

func (m *MockStatsUseCase) Summary(filter usecase.SummaryFilter) (usecase.Summary, error) {
	args := m.Called(filter)
	return args.Get(0).(usecase.Summary), args.Error(1)
}

func (m *MockStatsUseCase) Clicks(code string) ([]entity.ClickEvent, error) {
	args := m.Called(code)
	if clicks := args.Get(0); clicks != nil {
		return clicks.([]entity.ClickEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStatsUseCase) ClearAll(ctx context.Context) {
	m.Called(ctx)
}

type MockEventLog struct {
	mock.Mock
}

func (m *MockEventLog) Entries(f eventlog.Filter) []entity.LogEvent {
	args := m.Called(f)
	return args.Get(0).([]entity.LogEvent)
}

func (m *MockEventLog) Clear(ctx context.Context) {
	m.Called(ctx)
}
