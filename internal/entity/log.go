package entity

import (
	"errors"
	"time"
)

var (
	// ErrKeyNotFound is returned by a storage backend when a key has no value.
	ErrKeyNotFound = errors.New("key not found")
	// ErrQuotaExceeded is returned by a storage backend when a write exceeds its capacity.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Storage keys of the persisted collections.
const (
	RecordsKey = "shortened-urls"
	LogsKey    = "app-logs"
)

// LogLevel is the severity of a LogEvent.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Valid reports whether l is one of the known levels.
func (l LogLevel) Valid() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return true
	default:
		return false
	}
}

// LogEvent is one diagnostic entry of the event log.
type LogEvent struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Level     LogLevel       `json:"level"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Source    string         `json:"source,omitempty"`
}
