// Package eventlog keeps the bounded, most-recent-first diagnostic log that is
// persisted next to the records. Each entry is also written to the process
// logger.
package eventlog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/vadimbarashkov/url-shortener-demo/internal/entity"
	"github.com/vadimbarashkov/url-shortener-demo/internal/identifier"
)

// DefaultCapacity is the number of entries kept when no capacity is configured.
const DefaultCapacity = 1000

type keyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

type Log struct {
	mu       sync.Mutex
	storage  keyValueStorage
	logger   *slog.Logger
	capacity int
	nowFunc  func() time.Time
	events   []entity.LogEvent
}

type Option func(*Log)

// WithCapacity sets the number of entries kept. Values below one are ignored.
func WithCapacity(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.capacity = n
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(l *Log) {
		l.nowFunc = now
	}
}

// New returns an empty log. Call Load to restore persisted entries.
// A nil logger discards the process-side output.
func New(storage keyValueStorage, logger *slog.Logger, opts ...Option) *Log {
	if logger == nil {
		logger = slog.New(discardHandler{})
	}

	l := &Log{
		storage:  storage,
		logger:   logger,
		capacity: DefaultCapacity,
		nowFunc:  entity.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load replaces the in-memory entries with the persisted sequence.
// Missing or corrupt data resets the log to empty.
func (l *Log) Load(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = nil

	raw, err := l.storage.Get(ctx, entity.LogsKey)
	if err != nil {
		return
	}

	var events []entity.LogEvent
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		return
	}

	if len(events) > l.capacity {
		events = events[:l.capacity]
	}
	l.events = events
}

// Append prepends an entry, drops the oldest ones beyond capacity and
// persists the whole sequence. Persistence failures are only reported to the
// process logger.
func (l *Log) Append(ctx context.Context, level entity.LogLevel, message string, data map[string]any, source string) entity.LogEvent {
	if !level.Valid() {
		level = entity.LevelInfo
	}

	ev := entity.LogEvent{
		ID:        identifier.NewID(),
		Timestamp: l.nowFunc(),
		Level:     level,
		Message:   message,
		Data:      data,
		Source:    source,
	}

	l.mirror(ctx, ev)

	l.mu.Lock()
	defer l.mu.Unlock()

	events := make([]entity.LogEvent, 0, min(len(l.events)+1, l.capacity))
	events = append(events, ev)
	events = append(events, l.events[:min(len(l.events), l.capacity-1)]...)
	l.events = events

	l.persist(ctx)

	return ev
}

// Source returns a handle that tags every entry with source.
func (l *Log) Source(source string) *Source {
	return &Source{log: l, source: source}
}

// Filter selects entries returned by Entries. Zero values match everything.
type Filter struct {
	Level  entity.LogLevel
	Source string
	Limit  int
}

// Entries returns a copy of the matching entries, most recent first.
func (l *Log) Entries(f Filter) []entity.LogEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]entity.LogEvent, 0, len(l.events))
	for _, ev := range l.events {
		if f.Level != "" && ev.Level != f.Level {
			continue
		}
		if f.Source != "" && ev.Source != f.Source {
			continue
		}
		out = append(out, ev)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}

	return out
}

// Len returns the number of entries held.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.events)
}

// Clear drops every entry and persists the empty sequence.
func (l *Log) Clear(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = nil
	l.persist(ctx)
}

func (l *Log) persist(ctx context.Context) {
	const op = "eventlog.Log.persist"

	events := l.events
	if events == nil {
		events = []entity.LogEvent{}
	}

	b, err := json.Marshal(events)
	if err != nil {
		l.logger.WarnContext(ctx, "failed to encode event log", slog.String("op", op), slog.Any("err", err))
		return
	}

	if err := l.storage.Set(ctx, entity.LogsKey, string(b)); err != nil {
		l.logger.WarnContext(ctx, "failed to persist event log", slog.String("op", op), slog.Any("err", err))
	}
}

func (l *Log) mirror(ctx context.Context, ev entity.LogEvent) {
	attrs := make([]slog.Attr, 0, len(ev.Data)+1)
	if ev.Source != "" {
		attrs = append(attrs, slog.String("source", ev.Source))
	}

	keys := make([]string, 0, len(ev.Data))
	for k := range ev.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, ev.Data[k]))
	}

	l.logger.LogAttrs(ctx, slogLevel(ev.Level), ev.Message, attrs...)
}

func slogLevel(level entity.LogLevel) slog.Level {
	switch level {
	case entity.LevelDebug:
		return slog.LevelDebug
	case entity.LevelWarn:
		return slog.LevelWarn
	case entity.LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Source writes entries tagged with a fixed source. Arguments after the
// message are alternating keys and values, as with slog.
type Source struct {
	log    *Log
	source string
}

func (s *Source) Debug(ctx context.Context, msg string, args ...any) {
	s.log.Append(ctx, entity.LevelDebug, msg, dataFromArgs(args), s.source)
}

func (s *Source) Info(ctx context.Context, msg string, args ...any) {
	s.log.Append(ctx, entity.LevelInfo, msg, dataFromArgs(args), s.source)
}

func (s *Source) Warn(ctx context.Context, msg string, args ...any) {
	s.log.Append(ctx, entity.LevelWarn, msg, dataFromArgs(args), s.source)
}

func (s *Source) Error(ctx context.Context, msg string, args ...any) {
	s.log.Append(ctx, entity.LevelError, msg, dataFromArgs(args), s.source)
}

const badKey = "!BADKEY"

func dataFromArgs(args []any) map[string]any {
	if len(args) == 0 {
		return nil
	}

	data := make(map[string]any, (len(args)+1)/2)
	for len(args) > 0 {
		key, ok := args[0].(string)
		if !ok || len(args) == 1 {
			data[badKey] = jsonValue(args[0])
			args = args[1:]
			continue
		}
		data[key] = jsonValue(args[1])
		args = args[2:]
	}

	return data
}

func jsonValue(v any) any {
	switch v := v.(type) {
	case error:
		return v.Error()
	case time.Time:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return v
	}
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
