// Package entity defines the entities and errors used in the application.
// It includes the Record struct, which represents a shortened URL together with
// its click history, the diagnostic LogEvent, and the error values shared across
// layers.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrURLNotFound is returned when no active record exists for a short code.
	ErrURLNotFound = errors.New("url not found")
	// ErrURLExpired is returned when the record for a short code has passed its expiry.
	ErrURLExpired = errors.New("url expired")
	// ErrValidation is returned when a submission batch fails validation.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidBatchSize is returned when a submission batch is empty or too large.
	ErrInvalidBatchSize = errors.New("invalid batch size")
	// ErrInvalidFilter is returned when a statistics filter or sort order is unknown.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrAttemptStarted is returned when a redirect attempt is run a second time.
	ErrAttemptStarted = errors.New("redirect attempt already started")
)

const (
	// MinValidityMinutes is the smallest accepted validity period.
	MinValidityMinutes = 1
	// MaxValidityMinutes is the largest accepted validity period (30 days).
	MaxValidityMinutes = 43200
	// DefaultValidityMinutes is applied when a request does not specify a validity.
	DefaultValidityMinutes = 30
	// MaxBatchSize is the number of URLs accepted in one submission.
	MaxBatchSize = 5
)

// Record represents a shortened URL.
type Record struct {
	ID              string       `json:"id"`              // ID is the opaque unique identifier of the record.
	OriginalURL     string       `json:"originalUrl"`     // OriginalURL is the full URL that the short code resolves to.
	ShortCode       string       `json:"shortCode"`       // ShortCode is the code used in the short link.
	CreatedAt       time.Time    `json:"createdAt"`       // CreatedAt is the creation instant.
	ExpiresAt       time.Time    `json:"expiresAt"`       // ExpiresAt is CreatedAt plus ValidityMinutes.
	ValidityMinutes int          `json:"validityMinutes"` // ValidityMinutes is the lifetime requested at creation.
	Clicks          []ClickEvent `json:"clicks"`          // Clicks holds redirect events in arrival order.
	IsActive        bool         `json:"isActive"`        // IsActive is the soft-delete flag.
}

// ClickCount returns the number of recorded clicks.
func (r *Record) ClickCount() int {
	return len(r.Clicks)
}

// LastClick returns the timestamp of the most recent click, if any.
func (r *Record) LastClick() (time.Time, bool) {
	if len(r.Clicks) == 0 {
		return time.Time{}, false
	}
	return r.Clicks[len(r.Clicks)-1].Timestamp, true
}

// ClickEvent is one recorded redirect against a record.
// IP and Location are simulated values, not real telemetry.
type ClickEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserAgent string    `json:"userAgent"`
	Referrer  string    `json:"referrer"`
	IP        string    `json:"ip"`
	Location  string    `json:"location"`
}

// Now returns the current instant in UTC at millisecond precision,
// the resolution timestamps are persisted with.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// ExpiryFor returns the expiry instant for a record created at createdAt.
func ExpiryFor(createdAt time.Time, validityMinutes int) time.Time {
	return createdAt.Add(time.Duration(validityMinutes) * time.Minute)
}

// CreateRequest is one entry of a submission batch.
type CreateRequest struct {
	OriginalURL     string `json:"originalUrl" validate:"required,absurl"`
	CustomShortCode string `json:"customShortCode" validate:"omitempty,shortcode"`
	ValidityMinutes int    `json:"validityMinutes" validate:"min=1,max=43200"`
}

// FieldErrors maps a request field name to a user-facing message.
type FieldErrors map[string]string

// BatchErrors maps a request index within the batch to its field errors.
type BatchErrors map[int]FieldErrors

// Add records msg for field of request i, keeping the first message per field.
func (b BatchErrors) Add(i int, field, msg string) {
	fe, ok := b[i]
	if !ok {
		fe = make(FieldErrors)
		b[i] = fe
	}
	if _, exists := fe[field]; !exists {
		fe[field] = msg
	}
}

// Empty reports whether no request has an error.
func (b BatchErrors) Empty() bool {
	return len(b) == 0
}
